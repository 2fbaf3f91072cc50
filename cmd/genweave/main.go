package main

import (
	"context"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/genweave/genweave/pkg/otelhelper"
)

func main() {
	cmd := &cli.Command{
		Name:                  "genweave",
		EnableShellCompletion: true,
		Usage:                 "Build and validate generation workflow graphs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			NewBuildCommand(),
			NewValidateCommand(),
			NewCatalogCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// commandTracer returns the tracer for a CLI action: a real exporting one
// when an OTLP endpoint is configured in the environment, a no-op otherwise.
func commandTracer(ctx context.Context) (trace.Tracer, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return noop.NewTracerProvider().Tracer("genweave"), nil
	}

	return otelhelper.NewTracer(ctx, "genweave")
}
