package contextwindow

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/assistant-session/internal/model"
)

func conversation(n int) []*model.Message {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	msgs := make([]*model.Message, 0, n)
	for i := 0; i < n; i++ {
		at := start.Add(time.Duration(i) * time.Second)
		if i%2 == 0 {
			msgs = append(msgs, model.NewAssistantMessage(fmt.Sprintf("reply %d", i), true, at))
		} else {
			msgs = append(msgs, model.NewUserMessage(fmt.Sprintf("question %d", i), at))
		}
	}
	return msgs
}

func TestBuildBoundsLongHistory(t *testing.T) {
	history := conversation(50)
	newMsg := model.NewUserMessage("latest", time.Now())

	window := NewBuilder(0).Build(history, newMsg)

	require.Len(t, window, DefaultSize)
	require.Equal(t, newMsg.ID, window[len(window)-1].ID)
	require.Equal(t, history[41].ID, window[0].ID)
	for i := 1; i < len(window)-1; i++ {
		require.Equal(t, history[41+i].ID, window[i].ID)
	}
}

func TestBuildWhenNewMessageAlreadyAppended(t *testing.T) {
	history := conversation(50)
	newMsg := model.NewUserMessage("latest", time.Now())
	history = append(history, newMsg)

	window := NewBuilder(10).Build(history, newMsg)

	require.Len(t, window, 10)
	require.Equal(t, newMsg.ID, window[9].ID)
	require.Equal(t, history[49].ID, window[8].ID)
}

func TestBuildShortHistory(t *testing.T) {
	history := conversation(3)
	newMsg := model.NewUserMessage("hi", time.Now())

	window := NewBuilder(10).Build(history, newMsg)

	require.Len(t, window, 4)
	require.Equal(t, history[0].ID, window[0].ID)
	require.Equal(t, newMsg.ID, window[3].ID)
}

func TestBuildIsDeterministic(t *testing.T) {
	history := conversation(25)
	newMsg := model.NewUserMessage("same", time.Now())
	b := NewBuilder(10)

	first := b.Build(history, newMsg)
	second := b.Build(history, newMsg)
	require.Equal(t, first, second)
}

func TestBuildDoesNotAlias(t *testing.T) {
	history := conversation(4)
	newMsg := model.NewUserMessage("hi", time.Now())

	window := NewBuilder(10).Build(history, newMsg)
	window[0].Text = "changed"

	require.Equal(t, "reply 0", history[0].Text)
}

func TestNewBuilderSize(t *testing.T) {
	require.Equal(t, DefaultSize, NewBuilder(0).Size())
	require.Equal(t, DefaultSize, NewBuilder(-3).Size())
	require.Equal(t, 4, NewBuilder(4).Size())
}
