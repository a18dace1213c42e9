package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pghie87/salem-invoice-system2/internal/domain"
	"github.com/pghie87/salem-invoice-system2/internal/fuelindex"
	"github.com/pghie87/salem-invoice-system2/internal/pricing"
	"github.com/pghie87/salem-invoice-system2/internal/quote"
	"github.com/pghie87/salem-invoice-system2/internal/telemetry"
)

// GlobalTenantID marks rate cards that apply to all tenants.
const GlobalTenantID = "*"

// Handler holds dependencies for API handlers.
type Handler struct {
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	catalog *pricing.Catalog
	builder *quote.Builder
	fuel    *fuelindex.Service
	version string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, catalog *pricing.Catalog, builder *quote.Builder, fuel *fuelindex.Service, version string) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		bus:     bus,
		catalog: catalog,
		builder: builder,
		fuel:    fuel,
		version: version,
	}
}

// Quote handles POST /quote: price a trip synchronously and persist the
// resulting quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req domain.TripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Origin == "" || req.Destination == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "origin and destination are required",
		})
		return
	}

	trip := req.ToTrip(tenantID)
	trip.ID = uuid.New().String()

	if h.repo != nil {
		if err := h.repo.SaveTrip(ctx, tenantID, trip); err != nil {
			slog.Error("failed to save trip", "trip_id", trip.ID, "error", err)
			// Pricing proceeds; the trip can be re-saved by replaying the request.
		}
	}

	selectStart := time.Now()
	result, err := h.catalog.Price(ctx, &pricing.PriceInput{
		TenantID: tenantID,
		Trip:     trip,
	})
	if err != nil {
		h.writePricingError(w, trip.ID, err)
		return
	}
	selectMs := time.Since(selectStart).Milliseconds()

	q := h.builder.Build(ctx, &quote.BuildInput{
		TenantID:  tenantID,
		TraceID:   traceID,
		Trip:      trip,
		Result:    result,
		SelectMs:  selectMs,
		StartTime: start,
	})

	if h.repo != nil {
		if err := h.repo.SaveQuote(ctx, tenantID, q); err != nil {
			slog.Error("failed to save quote", "quote_id", q.ID, "error", err)
		}
	}

	if h.bus != nil {
		payload, _ := json.Marshal(q)
		if err := h.bus.Publish(ctx, tenantID, domain.TopicQuoteComputed, payload); err != nil {
			slog.Error("failed to publish quote event", "quote_id", q.ID, "error", err)
		}
	}

	telemetry.QuoteComputed(tenantID, time.Since(start).Seconds())

	if h.cache != nil {
		day := time.Now().UTC().Format("2006-01-02")
		_, _ = h.cache.IncrementCounter(ctx, tenantID, "quotes:"+day, 24*time.Hour)
	}

	writeJSON(w, http.StatusOK, q.ToResponse())
}

// writePricingError maps pricing failures to HTTP statuses. A trip no rule
// covers and a trip failing rule conditions are client-visible outcomes;
// authoring defects in stored cards are server errors.
func (h *Handler) writePricingError(w http.ResponseWriter, tripID string, err error) {
	var (
		noRule   *pricing.NoApplicableRuleError
		notMet   *pricing.ConditionsNotMetError
		rateType *pricing.UnsupportedRateTypeError
		operator *pricing.UnsupportedOperatorError
		operand  *pricing.InvalidOperandError
	)

	switch {
	case errors.As(err, &noRule):
		telemetry.QuoteFailed("no_rule")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": err.Error(),
			"code":  "NO_APPLICABLE_RULE",
		})
	case errors.As(err, &notMet):
		telemetry.QuoteFailed("conditions_not_met")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": err.Error(),
			"code":  "CONDITIONS_NOT_MET",
		})
	case errors.As(err, &rateType):
		telemetry.QuoteFailed("rate_type")
		slog.Error("rate card defect", "trip_id", tripID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "rate card configuration error",
		})
	case errors.As(err, &operator), errors.As(err, &operand):
		telemetry.QuoteFailed("condition")
		slog.Error("rate card defect", "trip_id", tripID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "rate card configuration error",
		})
	default:
		telemetry.QuoteFailed("internal")
		slog.Error("pricing failed", "trip_id", tripID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "pricing failed",
		})
	}
}

// SubmitTrip handles POST /trips: persist a trip and hand it to the async
// pipeline for pricing.
func (h *Handler) SubmitTrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req domain.TripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Origin == "" || req.Destination == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "origin and destination are required",
		})
		return
	}

	trip := req.ToTrip(tenantID)
	trip.ID = uuid.New().String()

	if h.repo != nil {
		if err := h.repo.SaveTrip(ctx, tenantID, trip); err != nil {
			slog.Error("failed to save trip", "trip_id", trip.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save trip",
			})
			return
		}
	}

	if h.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "event bus not available",
		})
		return
	}

	payload, _ := json.Marshal(trip)
	if err := h.bus.Publish(ctx, tenantID, domain.TopicTripReceived, payload); err != nil {
		slog.Error("failed to publish trip", "trip_id", trip.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to enqueue trip",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"tripId": trip.ID,
		"status": "accepted",
	})
}

// GetQuote retrieves a quote by ID.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	quoteID := chi.URLParam(r, "id")

	if quoteID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "quote id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	q, err := h.repo.GetQuote(ctx, tenantID, quoteID)
	if err != nil {
		slog.Error("failed to get quote", "id", quoteID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "quote not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, q)
}

// GetTrip retrieves a trip by ID.
func (h *Handler) GetTrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	tripID := chi.URLParam(r, "id")

	if tripID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "trip id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	trip, err := h.repo.GetTrip(ctx, tenantID, tripID)
	if err != nil {
		slog.Error("failed to get trip", "id", tripID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "trip not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, trip)
}

// ListRateCards returns the cards currently loaded in the catalog for the
// requesting tenant.
func (h *Handler) ListRateCards(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())

	cards := h.catalog.LoadedCards(tenantID)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rateCards": cards,
		"count":     len(cards),
		"source":    "database",
	})
}

// GetRateCard retrieves a loaded rate card by ID.
func (h *Handler) GetRateCard(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())
	cardID := chi.URLParam(r, "id")

	if cardID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rate card id is required",
		})
		return
	}

	for _, card := range h.catalog.LoadedCards(tenantID) {
		if card.ID == cardID {
			writeJSON(w, http.StatusOK, card)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rate card not found",
	})
}

// CreateRateCard validates, persists, and loads a rate card for the
// requesting tenant.
func (h *Handler) CreateRateCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var card domain.RateCard
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if card.ID == "" || card.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id and name are required",
		})
		return
	}
	if len(card.Rules) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "at least one rule is required",
		})
		return
	}

	card.TenantID = tenantID

	// Compile check before anything is persisted.
	if err := h.catalog.ValidateCard(&card); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid rate card: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveRateCard(ctx, tenantID, &card); err != nil {
			slog.Error("failed to save rate card", "id", card.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rate card",
			})
			return
		}
	}

	if card.Enabled {
		if err := h.catalog.LoadCard(&card); err != nil {
			slog.Error("failed to load rate card", "id", card.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to load rate card",
			})
			return
		}
	}
	telemetry.CardsLoaded(h.catalog.CardCount())

	if h.bus != nil {
		payload, _ := json.Marshal(map[string]string{"cardId": card.ID, "action": "created"})
		_ = h.bus.Publish(ctx, tenantID, domain.TopicRateCardChanged, payload)
	}

	slog.Info("rate card created", "id", card.ID, "name", card.Name, "rules", len(card.Rules))
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rateCard": card,
	})
}

// DeleteRateCard disables a rate card and unloads it from the catalog.
func (h *Handler) DeleteRateCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	cardID := chi.URLParam(r, "id")

	if cardID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rate card id is required",
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.DeleteRateCard(ctx, tenantID, cardID); err != nil {
			slog.Error("failed to delete rate card", "id", cardID, "error", err)
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "rate card not found",
			})
			return
		}
	}

	h.catalog.RemoveCard(tenantID, cardID)
	telemetry.CardsLoaded(h.catalog.CardCount())

	if h.bus != nil {
		payload, _ := json.Marshal(map[string]string{"cardId": cardID, "action": "deleted"})
		_ = h.bus.Publish(ctx, tenantID, domain.TopicRateCardChanged, payload)
	}

	slog.Info("rate card deleted", "id", cardID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rate card deleted",
	})
}

// ReloadRateCards reloads the tenant's cards and the global cards from the
// database into the catalog. Enables hot-reloading without restart.
func (h *Handler) ReloadRateCards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	cards, err := h.repo.ListRateCards(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list rate cards", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rate cards from database",
		})
		return
	}

	if tenantID != GlobalTenantID {
		global, err := h.repo.ListRateCards(ctx, GlobalTenantID)
		if err != nil {
			slog.Error("failed to list global rate cards", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to load rate cards from database",
			})
			return
		}
		cards = append(cards, global...)
	}

	if err := h.catalog.ReloadCards(cards); err != nil {
		slog.Error("failed to reload rate cards", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rate cards: " + err.Error(),
		})
		return
	}

	telemetry.CardsReloaded()
	telemetry.CardsLoaded(h.catalog.CardCount())

	slog.Info("rate cards reloaded from database", "count", len(cards))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rate cards reloaded successfully",
		"count":   len(cards),
	})
}

// FuelPriceRequest is the request body for PUT /fuel-price.
type FuelPriceRequest struct {
	Price float64 `json:"price"`
}

// SetFuelPrice records a new live fuel price for the tenant.
func (h *Handler) SetFuelPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.fuel == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "fuel index not available",
		})
		return
	}

	var req FuelPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Price <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "price must be positive",
		})
		return
	}

	if err := h.fuel.Record(ctx, tenantID, req.Price); err != nil {
		slog.Error("failed to record fuel price", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to record fuel price",
		})
		return
	}

	telemetry.FuelPriceUpdated(tenantID)
	slog.Info("fuel price updated", "tenant_id", tenantID, "price", req.Price)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"price": req.Price,
	})
}

// GetFuelPrice returns the tenant's current live fuel price.
func (h *Handler) GetFuelPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.fuel == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "fuel index not available",
		})
		return
	}

	price, err := h.fuel.Current(ctx, tenantID)
	if err != nil {
		slog.Error("failed to get fuel price", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get fuel price",
		})
		return
	}
	if price == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no fuel price recorded",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"price": price,
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
