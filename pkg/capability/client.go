package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/genweave/genweave/pkg/graph"
	"github.com/genweave/genweave/pkg/otelhelper"
)

const defaultTimeoutSeconds = 30

// Client talks to the generation engine's HTTP surface: the read-only
// object-info endpoint for the capability catalog and the job endpoint for
// prompt submission.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
	tracer     trace.Tracer
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithTracer enables tracing of engine calls.
func WithTracer(tracer trace.Tracer) ClientOption {
	return func(c *Client) { c.tracer = tracer }
}

// NewClient creates a client for one engine instance. Each client carries a
// generated id that the engine uses to route progress events back to the
// owning session.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		clientID:   uuid.New().String(),
		httpClient: &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
		tracer:     noop.NewTracerProvider().Tracer("capability"),
		logger:     slog.With("module", "capability"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ClientID returns the generated engine session id.
func (c *Client) ClientID() string {
	return c.clientID
}

// FetchCatalog retrieves and parses the engine's node schema.
func (c *Client) FetchCatalog(ctx context.Context) (Catalog, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "capability.fetch_catalog",
		attribute.String(otelhelper.EngineURLKey, c.baseURL))
	defer span.End()

	body, err := c.get(ctx, "/object_info")
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	catalog, err := ParseCatalog(body)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	c.logger.DebugContext(ctx, "fetched capability catalog", "classes", len(catalog))

	return catalog, nil
}

// SubmitPrompt posts a built graph to the engine's job endpoint and returns
// the queued prompt id. Queue management past submission belongs to the
// caller.
func (c *Client) SubmitPrompt(ctx context.Context, g graph.Graph) (string, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "capability.submit_prompt",
		attribute.String(otelhelper.EngineURLKey, c.baseURL),
		attribute.String(otelhelper.ClientIDKey, c.clientID),
		attribute.Int(otelhelper.NodeCountKey, len(g)))
	defer span.End()

	payload, err := json.Marshal(map[string]any{
		"prompt":    g,
		"client_id": c.clientID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode prompt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		otelhelper.SetError(span, err)

		return "", fmt.Errorf("failed to submit prompt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("engine rejected prompt: status %d: %s", resp.StatusCode, body)
		otelhelper.SetError(span, err)

		return "", err
	}

	var queued struct {
		PromptID string `json:"prompt_id"`
	}
	if err := json.Unmarshal(body, &queued); err != nil {
		return "", fmt.Errorf("failed to decode submission response: %w", err)
	}

	return queued.PromptID, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine returned status %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}
