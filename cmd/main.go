package main

import (
	"context"
	"os"

	"github.com/desertthunder/tunegate/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{ConfigPath: defaultConfigPath, Logger: logger})

	app := &cli.Command{
		Name:     "tunegate",
		Usage:    "OAuth proxy for the Spotify catalog",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
