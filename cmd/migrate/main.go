package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/migrate"
)

// gooseCommands pass straight through to goose and need a live database.
var gooseCommands = map[string]bool{
	"up":     true,
	"down":   true,
	"status": true,
	"redo":   true,
}

type options struct {
	command string
	dir     string
	name    string
	version string
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.command, "cmd", "up", "up|down|status|redo|version|create|validate")
	fs.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	fs.StringVar(&opts.name, "name", "", "migration name, required by create")
	fs.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS), required by version")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	switch {
	case opts.command == "create" && opts.name == "":
		return options{}, errors.New("create needs -name")
	case opts.command == "version" && opts.version == "":
		return options{}, errors.New("version needs -version")
	case opts.command == "create", opts.command == "validate", opts.command == "version", gooseCommands[opts.command]:
		return opts, nil
	default:
		return options{}, fmt.Errorf("unknown -cmd %q", opts.command)
	}
}

// needsDB reports whether the command talks to the database.
func (o options) needsDB() bool {
	return o.command != "create" && o.command != "validate"
}

func main() {
	_ = godotenv.Load()

	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.command,
		"dir": opts.dir,
	})

	if err := run(ctx, cfg, logg, opts); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) error {
	if !opts.needsDB() {
		return runOffline(opts, time.Now())
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("open sql handle: %w", err)
	}

	dialect := migrate.Dialect(client.Driver())
	logg.Info(logg.WithField(ctx, "dialect", dialect), "running migrations")

	if opts.command == "version" {
		return migrate.MigrateToVersion(ctx, sqlDB, dialect, opts.dir, opts.version)
	}
	return migrate.Run(ctx, sqlDB, dialect, opts.dir, opts.command)
}

func runOffline(opts options, now time.Time) error {
	switch opts.command {
	case "create":
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name, now)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
	}
	return nil
}
