// Package cli provides the command-line interface for canonsync.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/klauern/canonsync/internal/config"
	"github.com/klauern/canonsync/internal/logging"
	"github.com/klauern/canonsync/internal/ui"
)

var (
	// Version is the current version of the application.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// BuildDate is the date and time of the build.
	BuildDate = "unknown"
)

// Run executes the CLI application with the given context and arguments.
// Without a subcommand it syncs the current directory from the canonical source.
func Run(ctx context.Context, args []string) error {
	app := &cli.Command{
		Name:  "canonsync",
		Usage: "Propagate canonical configuration files into project directories",
		Description: `Without a command, syncs the current directory from the canonical source.
   Local customizations survive: each manifest entry has a merge strategy and
   every overwritten artifact is backed up first.`,
		Version: Version,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output (info level logging)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug output (debug level logging, implies verbose)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Diagnostic log level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to the configuration file (default: $CANONSYNC_HOME/config.yaml)",
			},
		}, syncFlags()...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			configureColors(cmd)
			return ctx, configureLogging(cmd)
		},
		Action: runSync,
		Commands: []*cli.Command{
			syncCommand(),
			statusCommand(),
			backupsCommand(),
			manifestCommand(),
			configCommand(),
			versionCommand(),
		},
	}
	return app.Run(ctx, args)
}

// configureColors sets up color output based on CLI flags.
func configureColors(cmd *cli.Command) {
	if cmd.Bool("no-color") {
		ui.DisableColors()
	}
}

// configureLogging sets up the logging level based on CLI flags.
func configureLogging(cmd *cli.Command) error {
	opts := logging.DefaultOptions()

	if v := cmd.String("log-level"); v != "" {
		level, err := logging.ParseLevel(v)
		if err != nil {
			return err
		}
		opts.Level = level
	}

	if cmd.Bool("debug") {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	} else if cmd.Bool("verbose") {
		opts.Level = slog.LevelInfo
	}

	logger := logging.New(opts)
	logging.SetDefault(logger)

	logging.Debug("logging configured", slog.String("level", opts.Level.String()))

	return nil
}

// loadConfig reads the configuration named by --config, or the default file,
// and applies its output preferences.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := cmd.String("config"); path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ui.ConfigureColors(cfg.Output.Color, cmd.Bool("no-color"))
	if cfg.Output.Verbose && !cmd.Bool("verbose") && !cmd.Bool("debug") {
		opts := logging.DefaultOptions()
		opts.Level = slog.LevelInfo
		logging.SetDefault(logging.New(opts))
	}

	return cfg, nil
}

// workingDir returns the current directory, the default destination root.
func workingDir() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}
	return wd, nil
}
