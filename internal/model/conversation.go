// Package model defines data structures for the conversation session.
package model

// SessionStatus is the dispatch state of a conversation session.
type SessionStatus string

const (
	SessionIdle             SessionStatus = "idle"
	SessionAwaitingResponse SessionStatus = "awaiting-response"
)

// ErrorDescriptor is the classified form of a failed exchange or a rejected
// submission.
type ErrorDescriptor struct {
	Kind        string `json:"kind"`
	UserMessage string `json:"userMessage"`
	StatusCode  int    `json:"statusCode,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// Snapshot is a point-in-time copy of a session's observable state.
type Snapshot struct {
	Messages    []*Message       `json:"messages"`
	Status      SessionStatus    `json:"status"`
	LastError   *ErrorDescriptor `json:"lastError,omitempty"`
	InputError  *ErrorDescriptor `json:"inputError,omitempty"`
	RateLimited bool             `json:"rateLimited"`
	Pending     int              `json:"pending"`
}

// Topic is a coarse personalization tag derived from user text.
type Topic string

const (
	TopicSystematicInvesting Topic = "systematic-investing"
	TopicBudgeting           Topic = "budgeting"
	TopicCredit              Topic = "credit"
	TopicTax                 Topic = "tax"
	TopicInsurance           Topic = "insurance"
	TopicRetirement          Topic = "retirement"
)

// Topics lists every known tag in a stable order.
var Topics = []Topic{
	TopicSystematicInvesting,
	TopicBudgeting,
	TopicCredit,
	TopicTax,
	TopicInsurance,
	TopicRetirement,
}

// Preferences maps a topic tag to its "interested" flag.
type Preferences map[Topic]bool

// Merge sets every tag in update that is true. Tags are never reset.
func (p Preferences) Merge(update Preferences) {
	for tag, interested := range update {
		if interested {
			p[tag] = true
		}
	}
}

// Clone returns a copy of the preferences.
func (p Preferences) Clone() Preferences {
	out := make(Preferences, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
