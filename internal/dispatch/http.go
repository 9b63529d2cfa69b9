package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/assistant-session/internal/model"
	"github.com/capitalize-ai/assistant-session/pkg/logger"
	"github.com/capitalize-ai/assistant-session/pkg/metrics"
	"github.com/capitalize-ai/assistant-session/pkg/tracing"
)

// maxResponseBytes bounds how much of a reply body is read.
const maxResponseBytes = 1 << 20

// ChatRequest is the body posted to the completion endpoint.
type ChatRequest struct {
	Message             string           `json:"message"`
	ConversationHistory []*model.Message `json:"conversationHistory"`
	SystemPrompt        string           `json:"systemPrompt"`
	ToolsContext        string           `json:"toolsContext"`
}

// ChatResponse is the body returned by the completion endpoint.
type ChatResponse struct {
	Response     *string        `json:"response"`
	Suggestions  []string       `json:"suggestions,omitempty"`
	ToolLink     string         `json:"toolLink,omitempty"`
	ToolName     string         `json:"toolName,omitempty"`
	ToolLinks    []wireToolLink `json:"toolLinks,omitempty"`
	ResponseTime *float64       `json:"responseTime,omitempty"`
	TokensUsed   *int           `json:"tokensUsed,omitempty"`
}

type wireToolLink struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Client posts chat requests to the completion endpoint over HTTP.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	systemPrompt string
	toolsContext string
	logger       *logger.Logger
	now          func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. Zero leaves timeouts to the transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Transport: c.httpClient.Transport, Timeout: d}
		}
	}
}

// WithPrompts overrides the injected system prompt and tools catalog.
func WithPrompts(systemPrompt, toolsContext string) Option {
	return func(c *Client) {
		c.systemPrompt = systemPrompt
		c.toolsContext = toolsContext
	}
}

// WithLogger sets the client logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.logger = log
		}
	}
}

// NewClient creates a client for the endpoint host at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{},
		systemPrompt: SystemPrompt,
		toolsContext: ToolsContext,
		logger:       logger.Global(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the dispatcher name.
func (c *Client) Name() string {
	return "endpoint"
}

// Send posts text with its context window and waits for the parsed reply.
// Latency covers request start to response parse completion.
func (c *Client) Send(ctx context.Context, text string, window []*model.Message) (*Reply, error) {
	ctx, span := tracing.Tracer().Start(ctx, "dispatch.Send")
	defer span.End()
	span.SetAttributes(
		attribute.String("dispatch.endpoint", c.baseURL),
		attribute.Int("dispatch.history_len", len(window)),
	)

	start := c.now()
	reply, err := c.send(ctx, text, window)
	elapsed := c.now().Sub(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordDispatch(c.Name(), "error", elapsed.Seconds(), 0)
		c.logger.Warn("completion request failed",
			zap.Error(err),
			zap.Int64("latency_ms", elapsed.Milliseconds()),
		)
		return nil, err
	}

	reply.ResponseLatencyMs = elapsed.Milliseconds()
	tokens := 0
	if reply.TokensUsed != nil {
		tokens = *reply.TokensUsed
	}
	metrics.RecordDispatch(c.Name(), "success", elapsed.Seconds(), tokens)
	span.SetAttributes(attribute.Int64("dispatch.latency_ms", reply.ResponseLatencyMs))

	return reply, nil
}

func (c *Client) send(ctx context.Context, text string, window []*model.Message) (*Reply, error) {
	body, err := json.Marshal(&ChatRequest{
		Message:             text,
		ConversationHistory: window,
		SystemPrompt:        c.systemPrompt,
		ToolsContext:        c.toolsContext,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &Error{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var chat ChatResponse
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, &Error{Malformed: true, Err: err}
	}
	if chat.Response == nil {
		return nil, &Error{Malformed: true, Err: fmt.Errorf("missing response field")}
	}
	if strings.TrimSpace(*chat.Response) == "" {
		return nil, &Error{Malformed: true, Err: fmt.Errorf("empty response")}
	}

	return &Reply{
		Text:           *chat.Response,
		Suggestions:    chat.Suggestions,
		ToolReferences: toolReferences(chat.ToolLink, chat.ToolName, chat.ToolLinks),
		TokensUsed:     chat.TokensUsed,
	}, nil
}
