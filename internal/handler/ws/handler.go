package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatHandler "github.com/zhouzirui/haven/backend/internal/handler/chat"
	"github.com/zhouzirui/haven/backend/internal/middleware"
	"github.com/zhouzirui/haven/backend/pkg/logging"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Frame types.
const (
	TypeText      = "text"
	TypeConnected = "connected"
	TypeReply     = "reply"
	TypeError     = "error"
)

// Handler serves chat turns over a WebSocket bound to one session.
type Handler struct {
	svc      chatHandler.TurnService
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

// New creates the WebSocket handler. Browser upgrades are accepted only from
// allowedOrigins, the same list the CORS middleware uses.
func New(svc chatHandler.TurnService, logger *logging.Logger, allowedOrigins []string) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     middleware.NewOriginPolicy(allowedOrigins).CheckOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts GET /ws/{sessionID}.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage carries one user message.
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	log := h.logger.With("session_id", sessionID)
	log.Info("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go pingLoop(ctx, conn)

	h.send(conn, log, outgoingMessage{Type: TypeConnected, SessionID: sessionID})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read error", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		h.handleMessage(ctx, conn, log, sessionID, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, log *logging.Logger, sessionID string, msg *inboundMessage) {
	if msg.Type != TypeText {
		h.sendError(conn, log, http.StatusBadRequest, "unsupported message type")
		return
	}

	var text TextMessage
	if err := json.Unmarshal(msg.Data, &text); err != nil {
		h.sendError(conn, log, http.StatusBadRequest, "invalid text payload")
		return
	}

	result, err := h.svc.SubmitTurn(ctx, sessionID, text.Text)
	if err != nil {
		status, message := chatHandler.ErrorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Error("websocket turn failed", "error", err)
		}
		h.sendError(conn, log, status, message)
		return
	}

	h.send(conn, log, outgoingMessage{Type: TypeReply, SessionID: sessionID, Data: result})
}

func (h *Handler) sendError(conn *websocket.Conn, log *logging.Logger, status int, message string) {
	h.send(conn, log, outgoingMessage{
		Type: TypeError,
		Data: map[string]any{"status": status, "message": message},
	})
}

// send is only called from the read loop goroutine, which is the sole writer
// of data frames.
func (h *Handler) send(conn *websocket.Conn, log *logging.Logger, msg outgoingMessage) {
	msg.Timestamp = time.Now().Unix()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		log.Warn("websocket write failed", "type", msg.Type, "error", err)
	}
}

func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
