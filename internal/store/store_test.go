package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/assistant-session/internal/model"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	fileBackend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   fileBackend,
	}
}

func TestMessagesRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	latency := int64(420)
	msgs := []*model.Message{
		model.NewAssistantMessage("Hi! How can I help?", false, now),
		model.NewUserMessage("How should I start investing?", now.Add(time.Second)),
		{
			ID:                model.NewMessageID(),
			Sender:            model.SenderAssistant,
			Timestamp:         now.Add(2 * time.Second),
			Text:              "Start with a SIP.",
			Status:            model.StatusDelivered,
			IsAPIResponse:     true,
			Suggestions:       []string{"What is a SIP?", "How much should I invest?"},
			ToolReferences:    []model.ToolReference{{Label: "SIP Calculator", Target: "/calculators/sip"}},
			ResponseLatencyMs: &latency,
		},
	}

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(backend, nil)
			require.NoError(t, s.Save(ctx, KeyMessages, msgs))

			var loaded []*model.Message
			require.True(t, s.Load(ctx, KeyMessages, &loaded))
			require.Len(t, loaded, len(msgs))
			for i := range msgs {
				require.Equal(t, msgs[i].ID, loaded[i].ID)
				require.Equal(t, msgs[i].Text, loaded[i].Text)
				require.Equal(t, msgs[i].Sender, loaded[i].Sender)
				require.True(t, msgs[i].Timestamp.Equal(loaded[i].Timestamp))
			}
			require.Equal(t, msgs[2].Suggestions, loaded[2].Suggestions)
			require.Equal(t, msgs[2].ToolReferences, loaded[2].ToolReferences)
			require.Equal(t, latency, *loaded[2].ResponseLatencyMs)
		})
	}
}

func TestLoadMissingKey(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(backend, nil)
			var prefs model.Preferences
			require.False(t, s.Load(context.Background(), KeyPreferences, &prefs))
		})
	}
}

func TestLoadCorruptedValue(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, backend.Put(ctx, KeyMessages, []byte(`[{"id":`)))

			s := New(backend, nil)
			var loaded []*model.Message
			require.False(t, s.Load(ctx, KeyMessages, &loaded))
		})
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(backend, nil)
			require.NoError(t, s.Save(ctx, KeyPreferences, model.Preferences{model.TopicTax: true}))
			require.NoError(t, s.Clear(ctx, KeyPreferences))
			require.NoError(t, s.Clear(ctx, KeyPreferences))

			var prefs model.Preferences
			require.False(t, s.Load(ctx, KeyPreferences, &prefs))
		})
	}
}

func TestFileBackendSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	require.NoError(t, b.Put(context.Background(), "../escape/key", []byte(`{}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ".._escape_key.json", entries[0].Name())
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape"))
	require.True(t, os.IsNotExist(err))
}
