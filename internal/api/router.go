package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warden-bot/warden/internal/blacklist"
	"github.com/warden-bot/warden/internal/chread"
	"go.uber.org/zap"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Store          blacklist.Store
	Reader         *chread.Reader // nil if ClickHouse unavailable
	Logger         *zap.Logger
	AdminTokenHash string // bcrypt hash of the operator token
	CacheTTL       time.Duration
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Blacklist management (Bearer token required)
	mux.HandleFunc("GET /api/warden/blacklist", deps.authMiddleware(deps.handleListBlacklist))
	mux.HandleFunc("POST /api/warden/blacklist", deps.authMiddleware(deps.handleAddBlacklist))
	mux.HandleFunc("DELETE /api/warden/blacklist/{identifier}", deps.authMiddleware(deps.handleRemoveBlacklist))

	// Moderation audit trail (Bearer token required)
	mux.HandleFunc("GET /api/warden/events", deps.authMiddleware(deps.handleListEvents))
	mux.HandleFunc("GET /api/warden/analytics", deps.authMiddleware(deps.handleGetAnalytics))

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return corsMiddleware(requestLogging(mux, deps.Logger))
}
