package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vnmchuo/pricing-service/internal/metrics"
	"github.com/vnmchuo/pricing-service/internal/requestid"
	"github.com/vnmchuo/pricing-service/pkg/ratelimit"
)

const DefaultRequestTimeout = 10 * time.Second

type RouterConfig struct {
	Handler        *Handler
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	Limiter        *ratelimit.Limiter // nil disables rate limiting
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	h := cfg.Handler

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(chimiddleware.RealIP)
	r.Use(AccessLog(cfg.Logger, cfg.Metrics))
	r.Use(Recoverer(cfg.Logger))

	// Probes and scraping stay outside rate limiting.
	r.Get("/", h.HandleRoot)
	r.Get("/health", h.HandleHealth)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
		if cfg.Limiter != nil {
			r.Use(RateLimit(cfg.Limiter, cfg.Logger))
		}
		r.Post("/calculate", h.HandleCalculate)
		r.Post("/roi", h.HandleROI)
		r.Get("/tiers", h.HandleTiers)
		r.Get("/stats/quotes", h.HandleQuoteStats)
	})

	return r
}
