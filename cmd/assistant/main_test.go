package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/assistant-session/internal/config"
	"github.com/capitalize-ai/assistant-session/internal/dispatch"
	"github.com/capitalize-ai/assistant-session/internal/model"
	"github.com/capitalize-ai/assistant-session/internal/netcheck"
	"github.com/capitalize-ai/assistant-session/internal/session"
	"github.com/capitalize-ai/assistant-session/internal/store"
	"github.com/capitalize-ai/assistant-session/pkg/logger"
)

type echoDispatcher struct{}

func (echoDispatcher) Name() string { return "echo" }

func (echoDispatcher) Send(ctx context.Context, text string, window []*model.Message) (*dispatch.Reply, error) {
	return &dispatch.Reply{Text: "echo: " + text}, nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestREPL(t *testing.T) (*repl, *session.Session, *syncBuffer) {
	t.Helper()
	color.NoColor = true

	log := logger.NewNop()
	sess := session.New(context.Background(), session.Options{
		Dispatcher:   echoDispatcher{},
		Store:        store.New(store.NewMemoryBackend(), log),
		Connectivity: netcheck.Static(true),
		Logger:       log,
	})
	out := &syncBuffer{}
	return newREPL(sess, out), sess, out
}

func TestLoopSendsAndQuits(t *testing.T) {
	r, sess, out := newTestREPL(t)

	err := r.loop(context.Background(), strings.NewReader("what is a sip?\nexit\n"))
	require.NoError(t, err)

	msgs := sess.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "echo: what is a sip?", msgs[2].Text)
	assert.Contains(t, out.String(), session.Greeting)
	assert.Contains(t, out.String(), "echo: what is a sip?")
}

func TestLoopPrintsReplyBeforeEOF(t *testing.T) {
	r, _, out := newTestREPL(t)

	require.NoError(t, r.loop(context.Background(), strings.NewReader("budget tips")))
	assert.Contains(t, out.String(), "echo: budget tips")
}

func TestCommands(t *testing.T) {
	r, sess, out := newTestREPL(t)
	ctx := context.Background()

	_, err := sess.Submit(ctx, "my budget")
	require.NoError(t, err)
	userID := sess.Messages()[1].ID

	assert.False(t, r.handle(ctx, "/edit "+shortID(userID)+" my monthly budget"))
	assert.Equal(t, "my monthly budget", sess.Messages()[1].Text)

	r.handle(ctx, "/prefs")
	assert.Contains(t, out.String(), "budgeting")

	r.handle(ctx, "/delete "+shortID(userID))
	assert.Len(t, sess.Messages(), 2)

	r.handle(ctx, "/delete zzzzzzzz")
	assert.Contains(t, out.String(), session.ErrMessageNotFound.Error())

	r.handle(ctx, "/clear")
	require.Len(t, sess.Messages(), 1)

	r.handle(ctx, "/bogus")
	assert.Contains(t, out.String(), "unknown command /bogus")

	assert.True(t, r.handle(ctx, "exit"))
}

func TestParseFlagsKeepsConfiguredLogLevel(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogLevel = "debug"

	logOutput, help, err := parseFlags([]string{"--store", "memory"}, cfg)
	require.NoError(t, err)
	assert.False(t, help)
	assert.Equal(t, "stderr", logOutput)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.Store)

	_, _, err = parseFlags([]string{"--log-level", "error"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "89abcdef", shortID("0123456789abcdef"))
}
