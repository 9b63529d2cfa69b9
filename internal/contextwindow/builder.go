// Package contextwindow derives the bounded message history sent with each
// completion request.
package contextwindow

import (
	"github.com/capitalize-ai/assistant-session/internal/model"
)

// DefaultSize is the number of messages sent with a request, including the
// newly submitted user message.
const DefaultSize = 10

// Builder selects the newest messages of a conversation. Older history is
// truncated, never summarized.
type Builder struct {
	size int
}

// NewBuilder creates a builder keeping at most size messages.
// A non-positive size selects DefaultSize.
func NewBuilder(size int) *Builder {
	if size <= 0 {
		size = DefaultSize
	}
	return &Builder{size: size}
}

// Size returns the window size.
func (b *Builder) Size() int {
	return b.size
}

// Build returns the newest messages in chronological order, ending with
// newUserMessage. If newUserMessage is already the last element of messages
// it is not repeated. The result is a fresh slice of cloned messages.
func (b *Builder) Build(messages []*model.Message, newUserMessage *model.Message) []*model.Message {
	history := messages
	if newUserMessage != nil {
		if n := len(history); n > 0 && history[n-1].ID == newUserMessage.ID {
			history = history[:n-1]
		}
	}

	keep := b.size
	if newUserMessage != nil {
		keep--
	}
	if len(history) > keep {
		history = history[len(history)-keep:]
	}

	window := make([]*model.Message, 0, len(history)+1)
	for _, m := range history {
		window = append(window, m.Clone())
	}
	if newUserMessage != nil {
		window = append(window, newUserMessage.Clone())
	}
	return window
}
