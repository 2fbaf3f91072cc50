package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/genweave/genweave/pkg/graph"
	"github.com/genweave/genweave/pkg/log"
	"github.com/genweave/genweave/pkg/otelhelper"
	"github.com/genweave/genweave/pkg/pipeline"
)

func NewBuildCommand() *cli.Command {
	return &cli.Command{
		Name:    "build",
		Aliases: []string{"b"},
		Usage:   "Assemble a workflow graph from generation parameters",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "params",
				Usage:    "Path to a JSON file with the build request",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "model",
				Usage:   "Override the model identifier from the params file",
				Sources: cli.EnvVars("GENWEAVE_MODEL"),
			},
			&cli.StringFlag{
				Name:  "architecture",
				Usage: "Explicit architecture family (skips auto-detection)",
			},
			&cli.StringFlag{
				Name:  "loras",
				Usage: "JSON list of LoRA specs applied in order",
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

			logger := log.WithModule("genweave").With("action", "build")

			data, err := os.ReadFile(command.String("params"))
			if err != nil {
				return fmt.Errorf("failed to read params file: %w", err)
			}

			var req pipeline.BuildRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("failed to decode params file: %w", err)
			}

			if model := command.String("model"); model != "" {
				req.Model = model
			}

			if arch := command.String("architecture"); arch != "" {
				req.Architecture = arch
			}

			if loras := command.String("loras"); loras != "" {
				var specs []graph.LoraSpec
				if err := json.Unmarshal([]byte(loras), &specs); err != nil {
					return fmt.Errorf("failed to decode --loras: %w", err)
				}

				req.Loras = specs
			}

			tracer, err := commandTracer(ctx)
			if err != nil {
				return err
			}

			return runBuild(ctx, tracer, logger, req, os.Stdout)
		},
	}
}

// runBuild assembles the graph for one request under a span and writes the
// wire-format JSON to out.
func runBuild(ctx context.Context, tracer trace.Tracer, logger *slog.Logger, req pipeline.BuildRequest, out io.Writer) error {
	family := req.Architecture
	if family == "" {
		family = pipeline.DetectFamily(req.Model)
	}

	ctx, span := otelhelper.StartSpan(ctx, tracer, "genweave.build",
		attribute.String(otelhelper.ModelKey, req.Model),
		attribute.String(otelhelper.FamilyKey, family))
	defer span.End()

	g, err := pipeline.Build(req)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	span.SetAttributes(attribute.Int(otelhelper.NodeCountKey, len(g)))

	logger.InfoContext(ctx, "graph assembled",
		"model", req.Model,
		"family", family,
		"nodes", len(g))

	encoded, err := g.Encode()
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(out, string(encoded))

	return nil
}
