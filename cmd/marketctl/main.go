// Command marketctl browses and searches a campus-market server from the
// terminal.
package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"campus-market/internal/client"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "marketctl",
		Usage: "Browse and search the campus marketplace",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "Base URL of the marketplace server",
				Value:   "http://localhost:8080",
				Sources: cli.EnvVars("MARKET_SERVER"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token, for listings only their owner can see",
				Sources: cli.EnvVars("MARKET_TOKEN"),
			},
		},
		Commands: []*cli.Command{
			BrowseCommand(),
			SearchCommand(),
			SuggestCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// newClient builds a client from the root flags.
func newClient(cmd *cli.Command) (*client.Client, error) {
	root := cmd.Root()
	var opts []client.Option
	if token := root.String("token"); token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(root.String("server"), opts...)
}
