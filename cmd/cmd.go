// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

// serveCommand runs the HTTP proxy.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the OAuth proxy HTTP server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to listen on (overrides config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides config and PORT)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Session backend: memory, sqlite or redis (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Destination path",
						Value: defaultConfigPath,
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the SQLite session database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// checkConfigCommand reports which settings are present without printing secrets.
func checkConfigCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "check-config",
		Usage: "Report whether OAuth credentials and endpoints are configured",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the checks as JSON",
			},
		},
		Action: r.CheckConfig,
	}
}

// sessionsCommand handles session store maintenance.
func sessionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Session store maintenance",
		Commands: []*cli.Command{
			{
				Name:  "prune",
				Usage: "Delete idle sessions from the configured backend",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "backend",
						Usage: "Session backend (overrides config)",
					},
				},
				Action: r.SessionsPrune,
			},
		},
	}
}

// openCommand opens the login route of a running server in the browser.
func openCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "open",
		Usage:  "Open the authorization start page in the default browser",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Open,
	}
}
