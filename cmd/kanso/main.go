package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/comitanigiacomo/kanso-grid/internal/cli"
	"github.com/comitanigiacomo/kanso-grid/internal/logger"
)

var version = "dev"

func main() {
	var root cli.Root
	kctx := kong.Parse(&root,
		kong.Name("kanso"),
		kong.Description("Habit tracking on a pannable habits × days grid."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if err := logger.Init(logger.Config{
		Level: root.LogLevel,
		File:  root.LogFile,
		// the grid owns the terminal
		Quiet: kctx.Command() == "grid",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	appCtx := cli.NewContext(ctx, root.Globals)

	err := kctx.Run(appCtx)
	appCtx.Close()
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
