// Package session owns a conversation: its message list, dispatch status and
// persisted state.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/assistant-session/internal/contextwindow"
	"github.com/capitalize-ai/assistant-session/internal/dispatch"
	"github.com/capitalize-ai/assistant-session/internal/failure"
	"github.com/capitalize-ai/assistant-session/internal/intent"
	"github.com/capitalize-ai/assistant-session/internal/model"
	"github.com/capitalize-ai/assistant-session/internal/netcheck"
	"github.com/capitalize-ai/assistant-session/internal/store"
	"github.com/capitalize-ai/assistant-session/pkg/logger"
	"github.com/capitalize-ai/assistant-session/pkg/metrics"
)

// Greeting seeds every fresh or cleared session.
const Greeting = "Hi! I'm your Capitalize assistant. Ask me anything about investing, budgeting, credit, tax or insurance."

var (
	// ErrEmptyMessage rejects blank submissions.
	ErrEmptyMessage = errors.New("message cannot be empty")
	// ErrMessageTooLong rejects submissions over model.MaxMessageLength characters.
	ErrMessageTooLong = errors.New("message exceeds 1000 characters")
	// ErrMessageNotFound is returned for unknown message ids.
	ErrMessageNotFound = errors.New("message not found")
	// ErrNotEditable is returned when editing a non-user message.
	ErrNotEditable = errors.New("only user messages can be edited")
	// ErrNothingToRetry is returned by Retry when no user message exists.
	ErrNothingToRetry = errors.New("no user message to retry")
	// ErrDiscarded is returned when a send settled after the session was
	// cleared with cancellation enabled.
	ErrDiscarded = errors.New("reply discarded after session clear")
)

// Options configures a Session.
type Options struct {
	Dispatcher   dispatch.Dispatcher
	Store        *store.Store
	Connectivity netcheck.Checker
	Window       *contextwindow.Builder
	Logger       *logger.Logger

	// CancelOnClear aborts in-flight sends when the session is cleared and
	// drops their results. When false, a pending send still appends its
	// result after a clear.
	CancelOnClear bool

	Now func() time.Time
}

// Session is a conversation with the completion service. Sends are not
// serialized: concurrent Submit calls each append their reply when their own
// dispatch settles, so replies land in completion order.
type Session struct {
	id            string
	dispatcher    dispatch.Dispatcher
	store         *store.Store
	online        netcheck.Checker
	window        *contextwindow.Builder
	logger        *logger.Logger
	cancelOnClear bool
	now           func() time.Time

	mu          sync.Mutex
	messages    []*model.Message
	prefs       model.Preferences
	pending     int
	lastError   *model.ErrorDescriptor
	inputError  error
	rateLimited bool
	generation  uint64
	inflight    map[uint64]context.CancelFunc
	nextCall    uint64

	subscribers map[int]chan model.SessionEvent
	nextSub     int
}

// New creates a session, restoring messages and preferences from the store
// when a structurally valid prior state exists.
func New(ctx context.Context, opts Options) *Session {
	s := &Session{
		id:            uuid.Must(uuid.NewV7()).String(),
		dispatcher:    opts.Dispatcher,
		store:         opts.Store,
		online:        opts.Connectivity,
		window:        opts.Window,
		cancelOnClear: opts.CancelOnClear,
		now:           opts.Now,
		prefs:         model.Preferences{},
		inflight:      make(map[uint64]context.CancelFunc),
		subscribers:   make(map[int]chan model.SessionEvent),
	}
	if s.store == nil {
		s.store = store.New(store.NewMemoryBackend(), opts.Logger)
	}
	if s.online == nil {
		s.online = netcheck.NewInterfaces()
	}
	if s.window == nil {
		s.window = contextwindow.NewBuilder(contextwindow.DefaultSize)
	}
	if s.now == nil {
		s.now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logger.Global()
	}
	s.logger = log.WithSession(s.id)

	var restored []*model.Message
	if s.store.Load(ctx, store.KeyMessages, &restored) && validHistory(restored) {
		s.messages = restored
		s.logger.Info("session restored", zap.Int("message_count", len(restored)))
	} else {
		s.messages = []*model.Message{s.greeting()}
		s.logger.Info("session started")
	}

	var prefs model.Preferences
	if s.store.Load(ctx, store.KeyPreferences, &prefs) && prefs != nil {
		s.prefs = prefs
	}

	return s
}

// ID returns the process-local session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Submit validates text, appends it as a user message and dispatches it.
// Validation failures return ErrEmptyMessage or ErrMessageTooLong and append
// nothing. Any dispatch failure is turned into an assistant error message;
// the returned error is nil in that case. The returned message is the
// assistant message appended for this send.
func (s *Session) Submit(ctx context.Context, text string) (*model.Message, error) {
	if err := validate(text); err != nil {
		s.mu.Lock()
		s.inputError = err
		s.mu.Unlock()
		metrics.RecordFailure(string(failure.KindValidation))
		s.logger.Debug("submission rejected", zap.Error(err))
		return nil, err
	}

	userMsg := model.NewUserMessage(text, s.now())

	s.mu.Lock()
	s.inputError = nil
	s.pending++
	metrics.PendingDispatches.Inc()
	s.appendLocked(ctx, userMsg)
	window := s.window.Build(s.messages, userMsg)
	generation := s.generation

	callCtx := ctx
	callID := s.nextCall
	s.nextCall++
	if s.cancelOnClear {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithCancel(ctx)
		s.inflight[callID] = cancel
	}

	s.mu.Unlock()

	s.logger.Info("dispatching message",
		zap.String("message_id", userMsg.ID),
		zap.String("dispatcher", s.dispatcher.Name()),
		zap.Int("window", len(window)),
		zap.Int("window_size", s.window.Size()),
	)

	reply, err := s.dispatcher.Send(callCtx, text, window)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending--
	metrics.PendingDispatches.Dec()
	if cancel, ok := s.inflight[callID]; ok {
		cancel()
		delete(s.inflight, callID)
	}

	if s.cancelOnClear && generation != s.generation {
		s.logger.Info("discarding reply for cleared session", zap.String("message_id", userMsg.ID))
		s.notifyLocked(model.EventStatus, nil, "")
		return nil, ErrDiscarded
	}

	var assistantMsg *model.Message
	if err != nil {
		assistantMsg = s.failureMessageLocked(err)
	} else {
		assistantMsg = s.replyMessage(reply)
		s.lastError = nil
		s.rateLimited = false
		s.observeLocked(context.WithoutCancel(ctx), text)
	}

	s.appendLocked(context.WithoutCancel(ctx), assistantMsg)
	return assistantMsg.Clone(), nil
}

// Retry re-submits the text of the newest user message.
func (s *Session) Retry(ctx context.Context) (*model.Message, error) {
	s.mu.Lock()
	var text string
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Sender == model.SenderUser {
			text = s.messages[i].Text
			break
		}
	}
	s.mu.Unlock()

	if text == "" {
		return nil, ErrNothingToRetry
	}
	return s.Submit(ctx, text)
}

// Edit replaces the text of a user message. Id, sender and timestamp are
// unchanged and no other message is touched.
func (s *Session) Edit(ctx context.Context, id, newText string) error {
	if err := validate(newText); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return ErrMessageNotFound
	}
	if s.messages[i].Sender != model.SenderUser {
		return ErrNotEditable
	}

	s.messages[i].Text = newText
	s.persistMessagesLocked(ctx)
	s.notifyLocked(model.EventEdited, s.messages[i], id)
	s.logger.Info("message edited", zap.String("message_id", id))
	return nil
}

// Delete removes a message. Deleting the last remaining message re-seeds the
// greeting so the list is never empty.
func (s *Session) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return ErrMessageNotFound
	}

	s.messages = append(s.messages[:i:i], s.messages[i+1:]...)
	s.notifyLocked(model.EventDeleted, nil, id)

	if len(s.messages) == 0 {
		greeting := s.greeting()
		s.messages = []*model.Message{greeting}
		s.notifyLocked(model.EventAppended, greeting, greeting.ID)
	}

	s.persistMessagesLocked(ctx)
	s.logger.Info("message deleted", zap.String("message_id", id))
	return nil
}

// Clear resets the conversation to the greeting and purges the stored
// message list. Preference signals survive.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if s.cancelOnClear {
		for id, cancel := range s.inflight {
			cancel()
			delete(s.inflight, id)
		}
	}

	s.messages = []*model.Message{s.greeting()}
	s.lastError = nil
	s.inputError = nil
	s.rateLimited = false

	s.notifyLocked(model.EventCleared, s.messages[0], "")
	s.logger.Info("session cleared", zap.Int("pending", s.pending))

	return s.store.Clear(ctx, store.KeyMessages)
}

// Messages returns a copy of the message list in insertion order.
func (s *Session) Messages() []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneMessages(s.messages)
}

// Status returns idle when no send is in flight.
func (s *Session) Status() model.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// LastError returns the classified error of the last failed exchange, or nil
// once an exchange has succeeded since.
func (s *Session) LastError() *model.ErrorDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastError == nil {
		return nil
	}
	e := *s.lastError
	return &e
}

// RateLimited reports whether the service asked the user to slow down.
func (s *Session) RateLimited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rateLimited
}

// InputError returns the last local validation error, cleared by the next
// accepted submission.
func (s *Session) InputError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputError
}

// Preferences returns a copy of the accumulated preference signals.
func (s *Session) Preferences() model.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.Clone()
}

// Snapshot returns the observable state at one instant.
func (s *Session) Snapshot() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &model.Snapshot{
		Messages:    model.CloneMessages(s.messages),
		Status:      s.statusLocked(),
		RateLimited: s.rateLimited,
		Pending:     s.pending,
	}
	if s.lastError != nil {
		e := *s.lastError
		snap.LastError = &e
	}
	if s.inputError != nil {
		snap.InputError = DescribeValidation(s.inputError)
	}
	return snap
}

func (s *Session) statusLocked() model.SessionStatus {
	if s.pending > 0 {
		return model.SessionAwaitingResponse
	}
	return model.SessionIdle
}

func (s *Session) greeting() *model.Message {
	return model.NewAssistantMessage(Greeting, false, s.now())
}

func (s *Session) replyMessage(reply *dispatch.Reply) *model.Message {
	msg := model.NewAssistantMessage(reply.Text, true, s.now())
	msg.Suggestions = reply.Suggestions
	msg.ToolReferences = reply.ToolReferences
	latency := reply.ResponseLatencyMs
	msg.ResponseLatencyMs = &latency
	msg.TokensUsed = reply.TokensUsed

	s.logger.Info("reply received",
		zap.String("message_id", msg.ID),
		zap.Int64("latency_ms", latency),
	)
	return msg
}

func (s *Session) failureMessageLocked(err error) *model.Message {
	c := failure.Classify(err, s.online.Online())

	msg := model.NewAssistantMessage(c.UserMessage, false, s.now())
	msg.Status = model.StatusError
	msg.ErrorKind = string(c.Kind)

	s.lastError = &model.ErrorDescriptor{
		Kind:        string(c.Kind),
		UserMessage: c.UserMessage,
		StatusCode:  c.StatusCode,
	}
	if c.Kind == failure.KindRateLimited {
		s.rateLimited = true
	}

	metrics.RecordFailure(string(c.Kind))
	s.logger.Warn("send failed",
		zap.String("kind", string(c.Kind)),
		zap.Int("status_code", c.StatusCode),
		zap.Error(err),
	)
	return msg
}

func (s *Session) appendLocked(ctx context.Context, msg *model.Message) {
	s.messages = append(s.messages, msg)
	metrics.RecordMessage(string(msg.Sender), string(msg.Status))
	s.persistMessagesLocked(ctx)
	s.notifyLocked(model.EventAppended, msg, msg.ID)
}

func (s *Session) indexLocked(id string) int {
	for i, m := range s.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// persistMessagesLocked writes the list immediately. Failures are logged;
// the in-memory list stays authoritative.
func (s *Session) persistMessagesLocked(ctx context.Context) {
	if err := s.store.Save(ctx, store.KeyMessages, s.messages); err != nil {
		s.logger.Error("failed to persist messages", zap.Error(err))
	}
}

// observeLocked records topics newly detected in user text.
func (s *Session) observeLocked(ctx context.Context, text string) {
	update := intent.Observe(text, s.prefs)
	if len(update) == 0 {
		return
	}
	s.prefs.Merge(update)
	for topic := range update {
		metrics.RecordPreference(string(topic))
	}
	s.persistPrefsLocked(ctx)
}

func (s *Session) persistPrefsLocked(ctx context.Context) {
	if err := s.store.Save(ctx, store.KeyPreferences, s.prefs); err != nil {
		s.logger.Error("failed to persist preferences", zap.Error(err))
	}
}

// DescribeValidation classifies a rejected submission. Detail carries the
// specific rule that failed.
func DescribeValidation(err error) *model.ErrorDescriptor {
	c := failure.Validation()
	return &model.ErrorDescriptor{
		Kind:        string(c.Kind),
		UserMessage: c.UserMessage,
		Detail:      err.Error(),
	}
}

func validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > model.MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// validHistory reports whether a restored list can seed a session.
func validHistory(msgs []*model.Message) bool {
	if len(msgs) == 0 {
		return false
	}
	seen := make(map[string]bool, len(msgs))
	for _, m := range msgs {
		if m == nil || m.ID == "" || seen[m.ID] || m.Timestamp.IsZero() {
			return false
		}
		if m.Sender != model.SenderUser && m.Sender != model.SenderAssistant {
			return false
		}
		seen[m.ID] = true
	}
	return true
}
