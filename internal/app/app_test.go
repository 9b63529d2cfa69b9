package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/assistant-session/internal/config"
	"github.com/capitalize-ai/assistant-session/internal/session"
	"github.com/capitalize-ai/assistant-session/pkg/logger"
)

func TestBuildFileStore(t *testing.T) {
	cfg := config.Defaults()
	cfg.StoreDir = t.TempDir()

	rt, err := Build(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, "endpoint", rt.Dispatcher.Name())
	msgs := rt.Session.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, session.Greeting, msgs[0].Text)
}

func TestBuildRejectsUnknownStore(t *testing.T) {
	cfg := config.Defaults()
	cfg.Store = "redis"

	_, err := Build(context.Background(), cfg, logger.NewNop())
	require.Error(t, err)
}

func TestNewDispatcherProviders(t *testing.T) {
	cfg := config.Defaults()

	cfg.Provider = "openai"
	_, err := NewDispatcher(cfg, logger.NewNop())
	require.Error(t, err)

	cfg.OpenAIAPIKey = "sk-test"
	d, err := NewDispatcher(cfg, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "openai", d.Name())

	cfg.Provider = "anthropic"
	cfg.AnthropicAPIKey = "sk-ant-test"
	d, err = NewDispatcher(cfg, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "anthropic", d.Name())

	cfg.Provider = "carrier-pigeon"
	_, err = NewDispatcher(cfg, logger.NewNop())
	require.Error(t, err)
}
