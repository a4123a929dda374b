// Package cli implements the kanso command line on top of kong.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-grid/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-grid/internal/core/clock"
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/services"
	"github.com/comitanigiacomo/kanso-grid/internal/core/viewport"
)

type Globals struct {
	DB       string `help:"SQLite file or postgres:// URL." default:"~/.config/kanso/kanso.db" env:"KANSO_DB"`
	API      string `help:"Base URL of a kanso API server. Overrides --db." env:"KANSO_API"`
	Token    string `help:"Bearer token for --api." env:"KANSO_TOKEN"`
	User     string `help:"User the local store is scoped to." default:"local" env:"KANSO_USER"`
	Timezone string `help:"IANA time zone that decides what today is." env:"TIMEZONE"`
	LogLevel string `help:"Log level." default:"warn" env:"LOG_LEVEL"`
	LogFile  string `help:"Also write logs to this file." env:"LOG_FILE"`
}

// Root is the whole command tree.
type Root struct {
	Globals

	Grid    GridCmd    `cmd:"" help:"Open the interactive grid." default:"1"`
	Stats   StatsCmd   `cmd:"" help:"Show completion statistics."`
	Habit   HabitCmd   `cmd:"" help:"Manage habits."`
	Log     LogCmd     `cmd:"" help:"Set or clear a single cell."`
	Export  ExportCmd  `cmd:"" help:"Write a JSON backup."`
	Import  ImportCmd  `cmd:"" help:"Restore a JSON backup."`
	Migrate MigrateCmd `cmd:"" help:"Create the database schema."`
	Token   TokenCmd   `cmd:"" help:"Issue an API token for a user."`
}

// Backend is the storage a command works against.
type Backend struct {
	Store     services.ImportStore
	Viewports viewport.Store
	// DB is nil for the remote backend.
	DB     *sqlx.DB
	Remote *repository.APIClient
}

func (b *Backend) Close() {
	if b.DB != nil {
		b.DB.Close()
	}
}

type Context struct {
	Globals
	Ctx   context.Context
	Out   io.Writer
	Clock clock.Clock

	backend *Backend
}

func NewContext(ctx context.Context, g Globals) *Context {
	return &Context{Globals: g, Ctx: ctx, Out: os.Stdout, Clock: clock.Real()}
}

// Backend opens the configured storage on first use.
func (c *Context) Backend() (*Backend, error) {
	if c.backend != nil {
		return c.backend, nil
	}
	b, err := openBackend(c.Ctx, c.Globals)
	if err != nil {
		return nil, err
	}
	c.backend = b
	return b, nil
}

func (c *Context) Close() {
	if c.backend != nil {
		c.backend.Close()
		c.backend = nil
	}
}

// UserID is the --user flag locally and the token subject remotely.
func (c *Context) UserID() (string, error) {
	if c.API == "" {
		return c.User, nil
	}
	if c.Token == "" {
		return "", fmt.Errorf("--token is required with --api")
	}
	return services.SubjectOf(c.Token)
}

func (c *Context) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Context) Today() (domain.Date, error) {
	loc, err := c.Location()
	if err != nil {
		return domain.Date{}, err
	}
	return domain.DateOf(c.Clock.Now().In(loc)), nil
}

// dateOrToday parses s, falling back to today when it is empty.
func (c *Context) dateOrToday(s string) (domain.Date, error) {
	if s == "" {
		return c.Today()
	}
	return domain.ParseDate(s)
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func openBackend(ctx context.Context, g Globals) (*Backend, error) {
	if g.API != "" {
		client := repository.NewAPIClient(g.API, g.Token, nil)
		return &Backend{Store: client, Viewports: client, Remote: client}, nil
	}

	driver, dsn := repository.DriverPgx, g.DB
	if !isPostgresURL(dsn) {
		path, err := expandHome(dsn)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		driver, dsn = repository.DriverSQLite, path
	}

	db, err := repository.Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Backend{
		Store:     repository.NewSQLStore(db),
		Viewports: repository.NewSQLViewportStore(db),
		DB:        db,
	}, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// parseSchedule accepts "everyday", "3x" (times per week) or a comma list of
// weekdays by name or number (0=Sunday).
func parseSchedule(s string) (domain.Schedule, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "everyday", "daily":
		return domain.Everyday(), nil
	}

	if n, ok := strings.CutSuffix(s, "x"); ok {
		times, err := strconv.Atoi(n)
		if err != nil {
			return domain.Schedule{}, fmt.Errorf("invalid frequency: %s", s)
		}
		sched := domain.Frequency(times)
		return sched, sched.Validate()
	}

	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if wd, ok := weekdayNames[part]; ok {
			days = append(days, wd)
			continue
		}
		num, err := strconv.Atoi(part)
		if err != nil || num < 0 || num > 6 {
			return domain.Schedule{}, fmt.Errorf("invalid weekday: %s", part)
		}
		days = append(days, time.Weekday(num))
	}
	sched := domain.SpecificDays(days...)
	return sched, sched.Validate()
}

// resolveHabit finds a habit by id, exact name (case-insensitive) or unique
// id prefix, archived habits included.
func resolveHabit(ctx context.Context, store domain.HabitRepository, userID, ref string) (*domain.Habit, error) {
	habits, err := store.ListHabits(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	var byName, byPrefix []*domain.Habit
	for _, h := range habits {
		switch {
		case h.ID == ref:
			return h, nil
		case strings.EqualFold(h.Name, ref):
			byName = append(byName, h)
		case strings.HasPrefix(h.ID, ref):
			byPrefix = append(byPrefix, h)
		}
	}
	if len(byName) == 1 {
		return byName[0], nil
	}
	if len(byName) == 0 && len(byPrefix) == 1 {
		return byPrefix[0], nil
	}
	if len(byName)+len(byPrefix) > 1 {
		return nil, domain.NewValidationError("habit", fmt.Sprintf("%q matches more than one habit", ref))
	}
	return nil, domain.ErrHabitNotFound
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
