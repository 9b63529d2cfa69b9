package model

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// DeliveryStatus is set on assistant messages only.
type DeliveryStatus string

const (
	StatusDelivered DeliveryStatus = "delivered"
	StatusError     DeliveryStatus = "error"
)

// MaxMessageLength is the submission limit in characters (Unicode code points).
const MaxMessageLength = 1000

// ToolReference points the user at a calculator or tool page.
type ToolReference struct {
	Label  string `json:"label"`
	Target string `json:"target"`
	Icon   string `json:"icon,omitempty"`
}

// Message represents one entry of a conversation.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Text string `json:"text"`

	// Assistant metadata
	Status            DeliveryStatus  `json:"status,omitempty"`
	IsAPIResponse     bool            `json:"isApiResponse"`
	Suggestions       []string        `json:"suggestions,omitempty"`
	ToolReferences    []ToolReference `json:"toolReferences,omitempty"`
	ResponseLatencyMs *int64          `json:"responseLatencyMs,omitempty"`
	TokensUsed        *int            `json:"tokensUsed,omitempty"`
	ErrorKind         string          `json:"errorKind,omitempty"`
}

// NewMessageID returns a time-ordered unique identifier.
func NewMessageID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewUserMessage creates a user message stamped with now.
func NewUserMessage(text string, now time.Time) *Message {
	return &Message{
		ID:        NewMessageID(),
		Sender:    SenderUser,
		Timestamp: now,
		Text:      text,
	}
}

// NewAssistantMessage creates a delivered assistant message.
func NewAssistantMessage(text string, fromAPI bool, now time.Time) *Message {
	return &Message{
		ID:            NewMessageID(),
		Sender:        SenderAssistant,
		Timestamp:     now,
		Text:          text,
		Status:        StatusDelivered,
		IsAPIResponse: fromAPI,
	}
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	c := *m
	if m.Suggestions != nil {
		c.Suggestions = append([]string(nil), m.Suggestions...)
	}
	if m.ToolReferences != nil {
		c.ToolReferences = append([]ToolReference(nil), m.ToolReferences...)
	}
	if m.ResponseLatencyMs != nil {
		v := *m.ResponseLatencyMs
		c.ResponseLatencyMs = &v
	}
	if m.TokensUsed != nil {
		v := *m.TokensUsed
		c.TokensUsed = &v
	}
	return &c
}

// CloneMessages deep-copies a message list, preserving order.
func CloneMessages(msgs []*Message) []*Message {
	out := make([]*Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
