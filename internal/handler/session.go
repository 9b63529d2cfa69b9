package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/assistant-session/internal/middleware"
	"github.com/capitalize-ai/assistant-session/internal/model"
	"github.com/capitalize-ai/assistant-session/internal/session"
	"github.com/capitalize-ai/assistant-session/pkg/logger"
)

// SessionHandler handles the conversation endpoints.
type SessionHandler struct {
	session *session.Session
	logger  *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sess *session.Session, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		session: sess,
		logger:  log,
	}
}

// Routes mounts the session endpoints on r.
func (h *SessionHandler) Routes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/messages", h.Send)
	r.Put("/messages/{id}", h.Edit)
	r.Delete("/messages/{id}", h.Delete)
	r.Post("/retry", h.Retry)
	r.Get("/preferences", h.Preferences)
}

// Get handles GET /session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// Send handles POST /session/messages
func (h *SessionHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The reply is appended even if the caller goes away.
	reply, err := h.session.Submit(context.WithoutCancel(r.Context()), req.Text)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, &model.ReplyResponse{
		Reply:  reply,
		Status: h.session.Status(),
	})
}

// Retry handles POST /session/retry
func (h *SessionHandler) Retry(w http.ResponseWriter, r *http.Request) {
	reply, err := h.session.Retry(context.WithoutCancel(r.Context()))
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, &model.ReplyResponse{
		Reply:  reply,
		Status: h.session.Status(),
	})
}

// Edit handles PUT /session/messages/{id}
func (h *SessionHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateMessageID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.session.Edit(r.Context(), id, req.Text); err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /session/messages/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateMessageID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.session.Delete(r.Context(), id); err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /session
func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Clear(r.Context()); err != nil {
		// The in-memory conversation is already reset.
		h.logger.Warn("failed to purge stored messages",
			zap.Error(err),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		)
	}

	w.WriteHeader(http.StatusNoContent)
}

// Preferences handles GET /session/preferences
func (h *SessionHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &model.PreferencesResponse{
		Preferences: h.session.Preferences(),
	})
}

func (h *SessionHandler) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrEmptyMessage), errors.Is(err, session.ErrMessageTooLong):
		writeJSON(w, http.StatusUnprocessableEntity, session.DescribeValidation(err))
	case errors.Is(err, session.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNotEditable), errors.Is(err, session.ErrNothingToRetry):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrDiscarded):
		writeError(w, http.StatusGone, err.Error())
	default:
		log := h.logger.WithRequest(middleware.GetCorrelationID(r.Context()), middleware.GetUserID(r.Context()))
		log.Error("session operation failed", zap.Error(err), zap.String("path", r.URL.Path))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
