package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/dokzlo13/smartpanel/internal/app"
	"github.com/dokzlo13/smartpanel/internal/config"
)

func main() {
	panel := cli.App{
		Name:      "smartpanel",
		HelpName:  "smartpanel",
		Usage:     "appliance timers and control for the home panel",
		UsageText: "smartpanel [--config FILE] <command> [arguments...]",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "config, c",
				Value: "config.yaml",
				Usage: "path to configuration file (defaults are used when it does not exist)",
			},
		},
		Commands: []cli.Command{
			{
				Name:   "run",
				Usage:  "run the timer engine, transports and panel API",
				Action: run,
			},
			{
				Name:   "timers",
				Usage:  "print persisted timers and their next action",
				Action: timers,
			},
			{
				Name:   "appliances",
				Usage:  "list configured appliances and their transport bindings",
				Action: appliances,
			},
			{
				Name:      "history",
				Usage:     "show recent timer and delivery events",
				ArgsUsage: "[appliance-id]",
				Action:    history,
				Flags:     historyFlags,
			},
		},
		Action: run,
	}

	if err := panel.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("smartpanel failed")
	}
}

// loadConfig reads the global --config flag and sets up logging from it.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	path := ctx.GlobalString("config")
	cfg, err := config.LoadOrDefault(afero.NewOsFs(), path)
	if err != nil {
		return nil, cli.NewExitError("failed to load configuration: "+err.Error(), 1)
	}
	setupLogging(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Colors)
	log.Debug().Str("config", path).Msg("Configuration loaded")
	return cfg, nil
}

func run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	log.Info().Str("config", ctx.GlobalString("config")).Msg("Starting smartpanel")

	// Create application
	application, err := app.New(cfg)
	if err != nil {
		return cli.NewExitError("failed to create application: "+err.Error(), 1)
	}

	// Create context that cancels on shutdown signal
	sigCtx := app.SignalContext()

	if err := application.Start(sigCtx); err != nil {
		application.Stop()
		return cli.NewExitError("failed to start application: "+err.Error(), 1)
	}

	// Wait for shutdown
	application.Wait()

	// Graceful shutdown
	if err := application.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
	return nil
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
