package stream

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	chatHandler "github.com/zhouzirui/haven/backend/internal/handler/chat"
	"github.com/zhouzirui/haven/backend/pkg/logging"
	"github.com/zhouzirui/haven/backend/pkg/utils"
)

// SSE event names, in emission order.
const (
	EventStart   = "start"
	EventEmotion = "emotion"
	EventMessage = "message"
	EventEnd     = "end"
	EventError   = "error"
)

var errStreamingUnsupported = errors.New("streaming unsupported")

// Handler runs one turn and reports its stages as Server-Sent Events.
type Handler struct {
	svc    chatHandler.TurnService
	logger *logging.Logger
}

// New creates a stream handler.
func New(svc chatHandler.TurnService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts GET /stream.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.HandleStream)
}

// HandleStream serves GET /stream?session_id=...&message=...
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	message := r.URL.Query().Get("message")

	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "Empty message")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, errStreamingUnsupported.Error())
		return
	}

	utils.SetupSSEHeaders(w)
	log := h.logger.With("session_id", sessionID)

	if err := utils.SendSSEEvent(w, flusher, EventStart, map[string]string{"session_id": sessionID}); err != nil {
		log.Warn("failed to open stream", "error", err)
		return
	}

	result, err := h.svc.SubmitTurn(r.Context(), sessionID, message)
	if err != nil {
		status, text := chatHandler.ErrorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Error("stream turn failed", "error", err)
		}
		_ = utils.SendSSEEvent(w, flusher, EventError, map[string]any{"status": status, "error": text})
		return
	}

	events := []struct {
		name string
		data any
	}{
		{EventEmotion, map[string]any{"emotion": result.Emotion}},
		{EventMessage, result},
		{EventEnd, map[string]string{"session_id": sessionID}},
	}
	for _, event := range events {
		if err := utils.SendSSEEvent(w, flusher, event.name, event.data); err != nil {
			log.Warn("client went away mid-stream", "event", event.name, "error", err)
			return
		}
	}
}
