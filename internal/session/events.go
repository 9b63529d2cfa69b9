package session

import (
	"github.com/capitalize-ai/assistant-session/internal/model"
)

// Subscribe registers an observer of session changes. Events are dropped for
// a subscriber whose buffer is full. The returned function unsubscribes and
// closes the channel.
func (s *Session) Subscribe(buffer int) (<-chan model.SessionEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan model.SessionEvent, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
}

func (s *Session) notifyLocked(eventType model.EventType, msg *model.Message, messageID string) {
	if len(s.subscribers) == 0 {
		return
	}

	event := model.SessionEvent{
		Type:      eventType,
		MessageID: messageID,
		Status:    s.statusLocked(),
		CreatedAt: s.now(),
	}
	if msg != nil {
		event.Message = msg.Clone()
	}

	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
