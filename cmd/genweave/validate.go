package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/genweave/genweave/pkg/capability"
	"github.com/genweave/genweave/pkg/log"
	"github.com/genweave/genweave/pkg/otelhelper"
	"github.com/genweave/genweave/pkg/validation"
)

// ErrValidationFailed signals a graph that must not be submitted.
var ErrValidationFailed = errors.New("workflow validation failed")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate a workflow graph file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "workflow",
				Usage:    "Path to the workflow graph JSON file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "engine-url",
				Usage:   "Engine base URL; enables the capability pass",
				Sources: cli.EnvVars("ENGINE_URL"),
			},
			&cli.BoolFlag{
				Name:  "check-inputs",
				Usage: "Also check declared required inputs of every node",
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

			logger := log.WithModule("genweave").With("action", "validate")

			data, err := os.ReadFile(command.String("workflow"))
			if err != nil {
				return fmt.Errorf("failed to read workflow file: %w", err)
			}

			tracer, err := commandTracer(ctx)
			if err != nil {
				return err
			}

			opts := []validation.Option{validation.WithLogger(logger)}

			if engineURL := command.String("engine-url"); engineURL != "" {
				client := capability.NewClient(engineURL, capability.WithTracer(tracer))
				cache := capability.NewCache(client)
				opts = append(opts, validation.WithFeatureChecker(capability.NewChecker(cache)))

				if command.Bool("check-inputs") {
					opts = append(opts, validation.WithInputChecks())
				}
			}

			result := runValidate(ctx, tracer, validation.NewPipeline(opts...), data, os.Stdout)
			if !result.Valid() {
				return ErrValidationFailed
			}

			logger.InfoContext(ctx, "workflow is valid", "warnings", len(result.Warnings))

			return nil
		},
	}
}

// runValidate runs the pipeline under a span carrying the issue counts and
// prints the report to out.
func runValidate(ctx context.Context, tracer trace.Tracer, p *validation.Pipeline, data []byte, out io.Writer) validation.Result {
	ctx, span := otelhelper.StartSpan(ctx, tracer, "genweave.validate")
	defer span.End()

	result := p.Validate(ctx, data)

	span.SetAttributes(
		attribute.Int(otelhelper.ErrorCountKey, len(result.Errors)),
		attribute.Int(otelhelper.WarnCountKey, len(result.Warnings)),
	)

	for _, issue := range result.Errors {
		_, _ = fmt.Fprintf(out, "ERROR   %-24s %s\n", issue.Code, issue.Message)

		if issue.Suggestion != "" {
			_, _ = fmt.Fprintf(out, "        did you mean %q?\n", issue.Suggestion)
		}
	}

	for _, issue := range result.Warnings {
		_, _ = fmt.Fprintf(out, "WARNING %-24s [%s] %s\n", issue.Code, issue.Severity, issue.Message)
	}

	_, _ = fmt.Fprintln(out, validation.Summary(result))

	return result
}
