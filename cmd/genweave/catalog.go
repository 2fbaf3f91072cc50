package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	cli "github.com/urfave/cli/v3"

	"github.com/genweave/genweave/pkg/capability"
	"github.com/genweave/genweave/pkg/log"
)

func NewCatalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Fetch and list the engine's known node classes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "engine-url",
				Usage:    "Engine base URL",
				Required: true,
				Sources:  cli.EnvVars("ENGINE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("genweave").With("action", "catalog")

			tracer, err := commandTracer(ctx)
			if err != nil {
				return err
			}

			client := capability.NewClient(command.String("engine-url"), capability.WithTracer(tracer))

			catalog, err := client.FetchCatalog(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch catalog: %w", err)
			}

			logger.InfoContext(ctx, "fetched capability catalog", "classes", len(catalog))

			names := make([]string, 0, len(catalog))
			for name := range catalog {
				names = append(names, name)
			}

			sort.Strings(names)

			for _, name := range names {
				class := catalog[name]
				_, _ = fmt.Fprintf(os.Stdout, "%s (required: %d, optional: %d, outputs: %d)\n",
					name, len(class.Required), len(class.Optional), len(class.Outputs))
			}

			return nil
		},
	}
}
