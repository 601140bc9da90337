// Package api serves the pricing HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vnmchuo/pricing-service/internal/catalog"
	"github.com/vnmchuo/pricing-service/internal/pricing"
	"github.com/vnmchuo/pricing-service/internal/quote"
	"github.com/vnmchuo/pricing-service/internal/quotelog"
	"github.com/vnmchuo/pricing-service/internal/requestid"
)

const (
	ServiceName    = "Vaultheir™ Pricing Service"
	ServiceVersion = "1.0.0"

	maxBodyBytes = 1 << 16
)

type Handler struct {
	quotes *quote.Service
	stats  quotelog.Store // nil when the quote log is disabled
	tracer trace.Tracer
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(quotes *quote.Service, stats quotelog.Store, tracer trace.Tracer, logger *zap.Logger) *Handler {
	return &Handler{
		quotes: quotes,
		stats:  stats,
		tracer: tracer,
		logger: logger,
		now:    time.Now,
	}
}

type calculateRequest struct {
	Tier         *string `json:"tier"`
	Assets       *int64  `json:"assets"`
	BillingCycle string  `json:"billing_cycle"`
}

type calculateResponse struct {
	Tier            string  `json:"tier"`
	BillingCycle    string  `json:"billing_cycle"`
	BasePrice       float64 `json:"base_price"`
	BasePriceAnnual float64 `json:"base_price_annual"`
	Assets          int64   `json:"assets"`
	OverLimit       int64   `json:"over_limit"`
	OverLimitCost   float64 `json:"over_limit_cost"`
	TotalMonthly    float64 `json:"total_monthly"`
	TotalAnnual     float64 `json:"total_annual"`
	Savings         float64 `json:"savings"`
	Cached          bool    `json:"cached"`
}

type roiRequest struct {
	Patents    int64  `json:"patents"`
	Trademarks int64  `json:"trademarks"`
	Copyrights int64  `json:"copyrights"`
	Tier       string `json:"tier"`
}

type roiResponse struct {
	TraditionalCost float64 `json:"traditional_cost"`
	VaultheirCost   float64 `json:"vaultheir_cost"`
	Savings         float64 `json:"savings"`
	SavingsPercent  float64 `json:"savings_percent"`
	ROI             float64 `json:"roi"`
}

type tierResponse struct {
	Monthly        float64 `json:"monthly"`
	Annual         float64 `json:"annual"`
	Limit          *int64  `json:"limit"` // null means unlimited
	OverLimitPrice float64 `json:"over_limit_price"`
}

func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": ServiceName,
		"version": ServiceVersion,
		"status":  "operational",
	})
}

// HandleHealth always answers 200; a broken cache only degrades the report.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
		"redis":     h.quotes.CacheStatus(r.Context()),
	})
}

func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Tier == nil {
		h.writeError(w, r, fmt.Errorf("%w: tier is required", pricing.ErrInvalidArgument), "")
		return
	}
	if req.Assets == nil {
		h.writeError(w, r, fmt.Errorf("%w: assets is required", pricing.ErrInvalidArgument), *req.Tier)
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "pricing.calculate")
	defer span.End()
	span.SetAttributes(
		attribute.String("tier", *req.Tier),
		attribute.Int64("assets", *req.Assets),
		attribute.String("billing_cycle", req.BillingCycle),
	)

	q, err := h.quotes.Price(ctx, quote.PricingRequest{
		Tier:         *req.Tier,
		Assets:       *req.Assets,
		BillingCycle: req.BillingCycle,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.writeError(w, r, err, *req.Tier)
		return
	}
	span.SetAttributes(attribute.Bool("cached", q.Cached))

	writeJSON(w, http.StatusOK, calculateResponse{
		Tier:            q.Tier,
		BillingCycle:    string(q.BillingCycle),
		BasePrice:       q.BasePriceMonthly.InexactFloat64(),
		BasePriceAnnual: q.BasePriceAnnual.InexactFloat64(),
		Assets:          q.Assets,
		OverLimit:       q.OverageUnits,
		OverLimitCost:   q.OverageCost.InexactFloat64(),
		TotalMonthly:    q.TotalMonthly.InexactFloat64(),
		TotalAnnual:     q.TotalAnnual.InexactFloat64(),
		Savings:         q.AnnualSavingsVsMonthly.InexactFloat64(),
		Cached:          q.Cached,
	})
}

func (h *Handler) HandleROI(w http.ResponseWriter, r *http.Request) {
	var req roiRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "pricing.roi")
	defer span.End()
	span.SetAttributes(
		attribute.String("tier", req.Tier),
		attribute.Int64("patents", req.Patents),
		attribute.Int64("trademarks", req.Trademarks),
		attribute.Int64("copyrights", req.Copyrights),
	)

	res, err := h.quotes.ROI(ctx, quote.ROIRequest{
		Tier: req.Tier,
		Portfolio: pricing.Portfolio{
			Patents:    req.Patents,
			Trademarks: req.Trademarks,
			Copyrights: req.Copyrights,
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.writeError(w, r, err, req.Tier)
		return
	}

	writeJSON(w, http.StatusOK, roiResponse{
		TraditionalCost: res.TraditionalCost.InexactFloat64(),
		VaultheirCost:   res.ServiceCost.InexactFloat64(),
		Savings:         res.Savings.InexactFloat64(),
		SavingsPercent:  res.SavingsPercent.InexactFloat64(),
		ROI:             res.ROI.InexactFloat64(),
	})
}

func (h *Handler) HandleTiers(w http.ResponseWriter, r *http.Request) {
	c := h.quotes.Catalog()

	tiers := make(map[string]tierResponse)
	for _, t := range c.Tiers() {
		tr := tierResponse{
			Monthly:        t.MonthlyPrice.InexactFloat64(),
			Annual:         t.AnnualPrice.InexactFloat64(),
			OverLimitPrice: t.OveragePrice.InexactFloat64(),
		}
		if !t.Unlimited {
			limit := t.IncludedLimit
			tr.Limit = &limit
		}
		tiers[t.Name] = tr
	}

	traditional := make(map[string]float64)
	for _, kind := range catalog.AssetKinds {
		traditional[string(kind)] = c.TraditionalCost(kind).InexactFloat64()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tiers":             tiers,
		"traditional_costs": traditional,
	})
}

// HandleQuoteStats reports how many quotes each tier served in [from, to].
func (h *Handler) HandleQuoteStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "quote log disabled"})
		return
	}

	now := h.now()
	from := now.AddDate(0, 0, -30) // Default: last 30 days
	to := now

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid 'from' date format (use RFC3339)"})
			return
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid 'to' date format (use RFC3339)"})
			return
		}
		to = t
	}

	counts, err := h.stats.CountByTier(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"from":    from,
		"to":      to,
		"total":   total,
		"by_tier": counts,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// writeError maps service errors onto status codes. rawTier is echoed
// verbatim for unknown tiers; internal causes are logged, never returned.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, rawTier string) {
	switch {
	case errors.Is(err, catalog.ErrUnknownTier):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid tier: " + rawTier})
	case errors.Is(err, pricing.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, context.Canceled):
		// Client went away; nobody is reading the response.
		h.logger.Debug("request canceled", zap.String("request_id", requestid.FromContext(r.Context())))
	case errors.Is(err, context.DeadlineExceeded):
		// The timeout middleware answers with 504.
		h.logger.Warn("request timed out",
			zap.String("request_id", requestid.FromContext(r.Context())),
			zap.String("path", r.URL.Path),
		)
	default:
		h.logger.Error("request failed",
			zap.String("request_id", requestid.FromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeInternalError(w, h.now())
	}
}

func writeInternalError(w http.ResponseWriter, now time.Time) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":     "Internal server error",
		"timestamp": now.UTC().Format(time.RFC3339Nano),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
