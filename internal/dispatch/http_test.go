package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/assistant-session/internal/model"
	"github.com/capitalize-ai/assistant-session/pkg/logger"
)

func newTestClient(url string) *Client {
	return NewClient(url+"/", WithLogger(logger.NewNop()))
}

func TestSendSuccess(t *testing.T) {
	userMsg := model.NewUserMessage("How should I start investing?", time.Now())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "How should I start investing?", req.Message)
		assert.Equal(t, SystemPrompt, req.SystemPrompt)
		assert.Equal(t, ToolsContext, req.ToolsContext)
		require.Len(t, req.ConversationHistory, 1)
		assert.Equal(t, userMsg.ID, req.ConversationHistory[0].ID)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"response": "Start with a monthly SIP.",
			"suggestions": ["What is a SIP?", "How much to invest?"],
			"toolLink": "/calculators/sip",
			"toolName": "SIP Calculator",
			"toolLinks": [
				{"url": "/calculators/sip", "name": "SIP Calculator", "icon": "chart"},
				{"url": "/calculators/lumpsum", "name": "Lumpsum Calculator", "icon": "coins"}
			],
			"responseTime": 999999,
			"tokensUsed": 321
		}`))
	}))
	defer server.Close()

	reply, err := newTestClient(server.URL).Send(context.Background(), userMsg.Text, []*model.Message{userMsg})
	require.NoError(t, err)

	assert.Equal(t, "Start with a monthly SIP.", reply.Text)
	assert.Equal(t, []string{"What is a SIP?", "How much to invest?"}, reply.Suggestions)
	assert.Equal(t, []model.ToolReference{
		{Label: "SIP Calculator", Target: "/calculators/sip"},
		{Label: "Lumpsum Calculator", Target: "/calculators/lumpsum", Icon: "coins"},
	}, reply.ToolReferences)
	require.NotNil(t, reply.TokensUsed)
	assert.Equal(t, 321, *reply.TokensUsed)
	assert.GreaterOrEqual(t, reply.ResponseLatencyMs, int64(0))
	assert.Less(t, reply.ResponseLatencyMs, int64(999999))
}

func TestSendStatusErrors(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusBadRequest} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`not json at all`))
		}))

		_, err := newTestClient(server.URL).Send(context.Background(), "hi", nil)
		server.Close()

		var derr *Error
		require.True(t, errors.As(err, &derr), "status %d", status)
		assert.Equal(t, status, derr.StatusCode)
		assert.False(t, derr.Malformed)
		assert.False(t, derr.Transport())
	}
}

func TestSendMalformedResponse(t *testing.T) {
	for name, body := range map[string]string{
		"invalid json":     `{"response": `,
		"missing response": `{"suggestions": ["a"]}`,
		"wrong type":       `{"response": 42}`,
		"empty response":   `{"response": ""}`,
		"blank response":   `{"response": "  \n"}`,
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Send(context.Background(), "hi", nil)

			var derr *Error
			require.True(t, errors.As(err, &derr))
			assert.True(t, derr.Malformed)
			assert.Zero(t, derr.StatusCode)
		})
	}
}

func TestSendTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Send(context.Background(), "hi", nil)

	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.True(t, derr.Transport())
	assert.Zero(t, derr.StatusCode)
}

func TestSendTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, WithLogger(logger.NewNop()), WithTimeout(50*time.Millisecond))
	_, err := client.Send(context.Background(), "hi", nil)

	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.True(t, derr.Transport())
}

func TestToolReferencesDedup(t *testing.T) {
	refs := toolReferences("", "", []wireToolLink{
		{URL: "/a", Name: "A"},
		{URL: "/a", Name: "A again"},
		{URL: "", Name: "no target"},
		{URL: "/b"},
	})

	assert.Equal(t, []model.ToolReference{
		{Label: "A", Target: "/a"},
		{Label: "/b", Target: "/b"},
	}, refs)
}
