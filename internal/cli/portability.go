package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/comitanigiacomo/kanso-grid/internal/core/services"
)

type ExportCmd struct {
	Out string `short:"o" help:"Write to this file instead of stdout."`
}

func (c *ExportCmd) Run(ctx *Context) (err error) {
	b, err := ctx.Backend()
	if err != nil {
		return err
	}
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}

	w := ctx.Out
	if c.Out != "" {
		f, err := os.Create(c.Out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", c.Out, err)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if b.Remote != nil {
		return b.Remote.DownloadExport(ctx.Ctx, w)
	}

	file, err := services.NewPortabilityService(b.Store).Export(ctx.Ctx, userID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(file)
}

type ImportCmd struct {
	File string `arg:"" help:"Backup file, or - for stdin."`
}

func (c *ImportCmd) Run(ctx *Context) error {
	var r io.Reader = os.Stdin
	if c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", c.File, err)
		}
		defer f.Close()
		r = f
	}

	file, err := services.Decode(r)
	if err != nil {
		return err
	}

	b, err := ctx.Backend()
	if err != nil {
		return err
	}
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}

	res, err := services.NewPortabilityService(b.Store).Import(ctx.Ctx, userID, file)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Imported %d habits and %d logs", res.Habits, res.Logs)
	if res.DuplicatesRemoved > 0 {
		fmt.Fprintf(ctx.Out, " (%d duplicates dropped)", res.DuplicatesRemoved)
	}
	fmt.Fprintln(ctx.Out)
	return nil
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *Context) error {
	if ctx.API != "" {
		return fmt.Errorf("migrate works on a database, not on --api")
	}
	// opening the backend already applies the schema
	if _, err := ctx.Backend(); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, "Schema is up to date")
	return nil
}
