package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/assistant-session/internal/llm"
	"github.com/capitalize-ai/assistant-session/internal/model"
	"github.com/capitalize-ai/assistant-session/pkg/logger"
	"github.com/capitalize-ai/assistant-session/pkg/metrics"
	"github.com/capitalize-ai/assistant-session/pkg/tracing"
)

// ProviderDispatcher sends chats straight to a model vendor through an
// llm.Client. Provider replies carry no suggestions or tool links.
type ProviderDispatcher struct {
	client llm.Client
	model  string
	logger *logger.Logger
	now    func() time.Time
}

// NewProviderDispatcher wraps an llm client.
func NewProviderDispatcher(client llm.Client, modelName string, log *logger.Logger) *ProviderDispatcher {
	if log == nil {
		log = logger.Global()
	}
	return &ProviderDispatcher{
		client: client,
		model:  modelName,
		logger: log,
		now:    time.Now,
	}
}

// Name returns the dispatcher name.
func (d *ProviderDispatcher) Name() string {
	return d.client.Name()
}

// Send completes the window with the configured provider. Locally
// synthesized fallback messages are left out of the provider history.
func (d *ProviderDispatcher) Send(ctx context.Context, text string, window []*model.Message) (*Reply, error) {
	ctx, span := tracing.Tracer().Start(ctx, "dispatch.ProviderSend")
	defer span.End()
	span.SetAttributes(attribute.String("dispatch.provider", d.client.Name()))

	history := make([]llm.ChatMessage, 0, len(window)+1)
	for _, m := range window {
		if m.Sender == model.SenderAssistant && !m.IsAPIResponse {
			continue
		}
		history = append(history, llm.ChatMessage{Role: string(m.Sender), Content: m.Text})
	}
	if n := len(history); n == 0 || history[n-1].Role != string(model.SenderUser) || history[n-1].Content != text {
		history = append(history, llm.ChatMessage{Role: string(model.SenderUser), Content: text})
	}

	start := d.now()
	resp, err := d.client.Complete(ctx, &llm.CompletionRequest{
		Model:    d.model,
		System:   SystemPrompt + "\n\n" + ToolsContext,
		Messages: history,
	})
	elapsed := d.now().Sub(start)

	if err != nil {
		derr := &Error{Err: err}
		if status, ok := llm.StatusCode(err); ok {
			derr.StatusCode = status
		}
		span.RecordError(derr)
		span.SetStatus(codes.Error, derr.Error())
		metrics.RecordDispatch(d.Name(), "error", elapsed.Seconds(), 0)
		d.logger.Warn("provider completion failed", zap.String("provider", d.Name()), zap.Error(err))
		return nil, derr
	}

	if strings.TrimSpace(resp.Content) == "" {
		derr := &Error{Malformed: true, Err: errors.New("empty completion")}
		metrics.RecordDispatch(d.Name(), "error", elapsed.Seconds(), 0)
		return nil, derr
	}

	tokens := resp.TokensIn + resp.TokensOut
	metrics.RecordDispatch(d.Name(), "success", elapsed.Seconds(), tokens)

	return &Reply{
		Text:              resp.Content,
		ResponseLatencyMs: elapsed.Milliseconds(),
		TokensUsed:        &tokens,
	}, nil
}
