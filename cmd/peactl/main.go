package main

import (
	"context"
	"flag"
	"os"
	"path"
	_ "time/tzdata"

	"github.com/google/subcommands"

	"peatracker/internal/cli"
	"peatracker/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(envOr("LOG_LEVEL", "warn"), os.Stderr).WithComponent(log.ComponentCLI)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	app, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open tracker", log.FieldError, err)
		os.Exit(1)
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range cli.Commands(&cli.Env{Tracker: app.Tracker, Out: os.Stdout, Err: os.Stderr}) {
		commander.Register(c, "")
	}

	flag.Parse()
	status := commander.Execute(ctx)

	// Drains pending replication before exiting.
	if err := app.Close(ctx); err != nil {
		logger.Error("Failed to close tracker", log.FieldError, err)
	}
	os.Exit(int(status))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
