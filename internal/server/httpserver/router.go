package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/shopmate-go/internal/server/httpserver/handler"
	"github.com/yndnr/shopmate-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Deps    handler.Deps
	Metrics *metric.Registry
	Logger  *slog.Logger
}

// NewRouter builds the full handler: API routes, /metrics and the
// middleware chain RequestID -> Recover -> AccessLog -> mux.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.Deps.Logger == nil {
		cfg.Deps.Logger = log
	}

	api := handler.New(cfg.Deps)

	mux := http.NewServeMux()
	for _, pattern := range handler.Routes() {
		mux.Handle(pattern, api)
	}
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	return Chain(mux,
		RequestID(),
		Recover(log),
		AccessLog(log, cfg.Metrics),
	)
}
