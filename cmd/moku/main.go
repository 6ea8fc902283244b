// Package main provides the CLI entry point for moku.
package main

import (
	"fmt"
	"os"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "moku",
		Usage:   l10n.T("Read manga from a Suwayomi server or its downloads directory."),
		Version: version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			readCommand(),
			browseCommand(),
			groupsCommand(),
			exportCommand(),
			storageCommand(),
			{
				Name:  "version",
				Usage: l10n.T("Show version information."),
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, l10n.F("moku version %s", version))
					return nil
				},
			},
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.PathFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("Configuration file (YAML)")},

		// Server
		&cli.StringFlag{Name: "server", Aliases: []string{"s"}, Usage: l10n.T("Suwayomi server URL (env: MOKU_SERVER)")},
		&cli.StringFlag{Name: "username", Usage: l10n.T("Server user name (env: MOKU_USERNAME)")},
		&cli.StringFlag{Name: "password", Usage: l10n.T("Server password (env: MOKU_PASSWORD)")},

		// Presentation
		&cli.StringFlag{Name: "preset", Aliases: []string{"p"}, Usage: l10n.T("Reading preset (manga, webtoon, comic)")},
		&cli.StringFlag{Name: "style", Usage: l10n.T("Presentation style (single, spread, scroll)")},
		&cli.StringFlag{Name: "direction", Usage: l10n.T("Reading direction (ltr, rtl)")},
		&cli.BoolFlag{Name: "offset-first-spread", Usage: l10n.T("Show the first page alone in spread mode")},

		// Browser
		&cli.StringFlag{Name: "chrome-path", Usage: l10n.T("Path to Chrome executable (env: CHROME_PATH)")},
		&cli.BoolFlag{Name: "headless", Usage: l10n.T("Run browser in headless mode")},

		// Debug
		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: l10n.T("Enable debug output")},
		&cli.PathFlag{Name: "debug-dir", Usage: l10n.T("Directory for debug output")},

		// Logging
		&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: l10n.T("Log level (debug, info, warn, error)")},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: l10n.T("Suppress all log output")},
	}
}

// sourceFlags select the chapters a command works on.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "manga", Aliases: []string{"m"}, Usage: l10n.T("Manga id on the server")},
		&cli.PathFlag{Name: "local", Usage: l10n.T("Manga directory inside the downloads directory")},
		&cli.StringFlag{Name: "chapter", Usage: l10n.T("Chapter id to start at (default: first chapter)")},
	}
}
