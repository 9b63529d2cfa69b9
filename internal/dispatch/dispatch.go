// Package dispatch performs the round-trip to the chat completion service.
package dispatch

import (
	"context"
	"fmt"

	"github.com/capitalize-ai/assistant-session/internal/model"
)

// SystemPrompt is injected into every request.
const SystemPrompt = `You are Capitalize's personal finance assistant. Give clear, practical guidance on ` +
	`investing, budgeting, credit, tax and insurance for retail investors. Keep answers short, avoid ` +
	`recommending specific securities, and point the user to a relevant calculator when one fits.`

// ToolsContext describes the calculator catalog the service may link to.
const ToolsContext = `Available tools: SIP Calculator (/calculators/sip), Step-up SIP Calculator ` +
	`(/calculators/step-up-sip), Lumpsum Calculator (/calculators/lumpsum), EMI Calculator ` +
	`(/calculators/emi), Income Tax Calculator (/calculators/income-tax), Budget Planner ` +
	`(/calculators/budget), Retirement Planner (/calculators/retirement), Term Insurance ` +
	`Calculator (/calculators/term-insurance).`

// Reply is a settled, successful completion.
type Reply struct {
	Text              string
	Suggestions       []string
	ToolReferences    []model.ToolReference
	ResponseLatencyMs int64
	TokensUsed        *int
}

// Dispatcher sends one user message with its context window. Implementations
// never retry; a failed call returns an *Error.
type Dispatcher interface {
	Send(ctx context.Context, text string, window []*model.Message) (*Reply, error)
	Name() string
}

// Error is a failed dispatch. StatusCode is set when an HTTP response was
// received; zero means the request never completed.
type Error struct {
	StatusCode int
	Malformed  bool
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Malformed:
		return fmt.Sprintf("malformed completion response: %v", e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("completion endpoint returned status %d", e.StatusCode)
	default:
		return fmt.Sprintf("completion request failed: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transport reports whether the request failed before any response arrived.
func (e *Error) Transport() bool {
	return e.StatusCode == 0 && !e.Malformed
}

// toolReferences merges the single-link and list forms of a reply, keeping
// order and dropping repeated targets.
func toolReferences(link, name string, links []wireToolLink) []model.ToolReference {
	var refs []model.ToolReference
	seen := make(map[string]bool)

	add := func(ref model.ToolReference) {
		if ref.Target == "" || seen[ref.Target] {
			return
		}
		if ref.Label == "" {
			ref.Label = ref.Target
		}
		seen[ref.Target] = true
		refs = append(refs, ref)
	}

	add(model.ToolReference{Label: name, Target: link})
	for _, l := range links {
		add(model.ToolReference{Label: l.Name, Target: l.URL, Icon: l.Icon})
	}
	return refs
}
