package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/haven/backend/internal/model/chat"
	chatService "github.com/zhouzirui/haven/backend/internal/service/chat"
	"github.com/zhouzirui/haven/backend/internal/store"
	"github.com/zhouzirui/haven/backend/pkg/logging"
	"github.com/zhouzirui/haven/backend/pkg/utils"
)

// maxHistoryLimit caps ?limit= on the history endpoint.
const maxHistoryLimit = 200

// TurnService is the conversation pipeline as seen by the transports.
type TurnService interface {
	SubmitTurn(ctx context.Context, sessionID, message string) (chatService.TurnResult, error)
	CreateSession(ctx context.Context) string
	History(ctx context.Context, sessionID string, limit int) ([]chat.Turn, error)
}

// Handler serves the request/response chat endpoints.
type Handler struct {
	svc    TurnService
	logger *logging.Logger
}

// New creates the chat handler.
func New(svc TurnService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the chat routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.HandleSubmitTurn)
	r.Post("/session", h.handleCreateSession)
	r.Get("/sessions/{sessionID}/messages", h.handleHistory)
}

type turnRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// HandleSubmitTurn runs one turn for {session_id, message}.
func (h *Handler) HandleSubmitTurn(w http.ResponseWriter, r *http.Request) {
	var payload turnRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.SubmitTurn(r.Context(), payload.SessionID, payload.Message)
	if err != nil {
		status, message := ErrorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("chat turn failed", "session_id", payload.SessionID, "error", err)
		}
		utils.RespondError(w, status, message)
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusCreated, map[string]string{
		"session_id": h.svc.CreateSession(r.Context()),
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}

	turns, err := h.svc.History(r.Context(), sessionID, limit)
	if err != nil {
		status, message := ErrorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("history lookup failed", "session_id", sessionID, "error", err)
		}
		utils.RespondError(w, status, message)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   turns,
	})
}

// ErrorStatus maps a pipeline error to an HTTP status and client message.
func ErrorStatus(err error) (int, string) {
	var verr *chatService.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Reason
	case errors.Is(err, store.ErrInvalidLimit), errors.Is(err, store.ErrSessionRequired):
		return http.StatusBadRequest, err.Error()
	case store.IsStorageError(err):
		return http.StatusServiceUnavailable, "message store unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
