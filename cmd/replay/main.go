// Command replay folds a file of recorded order events offline and prints the
// resulting snapshot. It also prints the transition table and mints API tokens.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/josh-kwaku/order-replay/internal/auth"
	"github.com/josh-kwaku/order-replay/internal/logging"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "replay",
		Usage: "replay order events and inspect the order lifecycle",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "log level (debug shows every folded event)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logging.Init("replay", c.String("log-level"), "development")
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "fold a JSON array of event envelopes into an order snapshot",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "events file, - for stdin", Required: true},
					&cli.StringFlag{Name: "order", Aliases: []string{"o"}, Usage: "order id, defaults to the id found in the events"},
				},
				Action: runAction,
			},
			{
				Name:   "table",
				Usage:  "print the order lifecycle transition table",
				Action: tableAction,
			},
			{
				Name:  "token",
				Usage: "mint a bearer token for the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Required: true},
					&cli.StringFlag{Name: "role", Value: string(auth.RoleOperator), Usage: "operator or viewer"},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
					&cli.StringFlag{Name: "secret", EnvVars: []string{"JWT_SECRET"}, Required: true},
				},
				Action: tokenAction,
			},
		},
	}
}
