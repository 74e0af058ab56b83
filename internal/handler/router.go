package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zhouzirui/haven/backend/internal/handler/chat"
	"github.com/zhouzirui/haven/backend/internal/handler/stream"
	"github.com/zhouzirui/haven/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/haven/backend/internal/middleware"
	"github.com/zhouzirui/haven/backend/pkg/logging"
	"github.com/zhouzirui/haven/backend/pkg/utils"
)

// RouterConfig carries what the HTTP layer needs from main.
type RouterConfig struct {
	Chat           chat.TurnService
	Logger         *logging.Logger
	AllowedOrigins []string
	// Gatherer backs /metrics. Nil uses the default Prometheus registry.
	Gatherer prometheus.Gatherer
}

// NewRouter wires HTTP routes to the conversation pipeline.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.AllowedOrigins))

	chatHandler := chat.New(cfg.Chat, logger)
	streamHandler := stream.New(cfg.Chat, logger)
	wsHandler := ws.New(cfg.Chat, logger, cfg.AllowedOrigins)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Legacy path used by the original web client.
	r.Post("/chat", chatHandler.HandleSubmitTurn)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	return r
}
