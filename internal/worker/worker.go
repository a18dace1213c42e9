// Package worker prices submitted trips asynchronously from the EventBus.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pghie87/salem-invoice-system2/internal/domain"
	"github.com/pghie87/salem-invoice-system2/internal/pricing"
	"github.com/pghie87/salem-invoice-system2/internal/quote"
	"github.com/pghie87/salem-invoice-system2/internal/telemetry"
)

// Worker consumes trip-received events and turns them into stored quotes.
type Worker struct {
	bus     domain.EventBus
	repo    domain.Repository
	catalog *pricing.Catalog
	builder *quote.Builder

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process.
	TenantIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, catalog *pricing.Catalog, builder *quote.Builder) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:     bus,
		repo:    repo,
		catalog: catalog,
		builder: builder,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins processing trips for the given tenants.
func (w *Worker) Start(cfg Config) error {
	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicTripReceived, func(ctx context.Context, msg *domain.Message) error {
		return w.processTrip(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicTripReceived,
	)

	return nil
}

// QuoteFailure is the payload published when a trip cannot be priced.
type QuoteFailure struct {
	TripID   string `json:"tripId"`
	TenantID string `json:"tenantId"`
	Reason   string `json:"reason"`
}

// processTrip prices a submitted trip and publishes the outcome.
func (w *Worker) processTrip(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var trip domain.TripRecord
	if err := json.Unmarshal(msg.Payload, &trip); err != nil {
		slog.Error("failed to parse trip message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if trip.TenantID != "" {
		tenantID = trip.TenantID
	}

	slog.Debug("processing trip",
		"trip_id", trip.ID,
		"tenant_id", tenantID,
	)

	selectStart := time.Now()
	result, err := w.catalog.Price(ctx, &pricing.PriceInput{
		TenantID: tenantID,
		Trip:     &trip,
	})
	if err != nil {
		w.publishFailure(ctx, tenantID, trip.ID, err)
		return nil
	}
	selectMs := time.Since(selectStart).Milliseconds()

	q := w.builder.Build(ctx, &quote.BuildInput{
		TenantID:  tenantID,
		TraceID:   msg.ID,
		Trip:      &trip,
		Result:    result,
		SelectMs:  selectMs,
		StartTime: start,
	})

	if w.repo != nil {
		if err := w.repo.SaveQuote(ctx, tenantID, q); err != nil {
			slog.Error("failed to save quote",
				"trip_id", trip.ID,
				"error", err,
			)
		}
	}

	resultPayload, _ := json.Marshal(q)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicQuoteComputed, resultPayload); err != nil {
		slog.Error("failed to publish quote",
			"trip_id", trip.ID,
			"error", err,
		)
	}

	telemetry.QuoteComputed(tenantID, time.Since(start).Seconds())

	slog.Info("trip priced",
		"trip_id", trip.ID,
		"tenant_id", tenantID,
		"card_id", q.CardID,
		"rule_id", q.RuleID,
		"total", q.Breakdown.Total,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// publishFailure reports an unpriceable trip on the quote-failed topic.
// Pricing failures are terminal for the message; redelivery would just fail
// the same way until the tenant's rate cards change.
func (w *Worker) publishFailure(ctx context.Context, tenantID, tripID string, cause error) {
	telemetry.QuoteFailed(failureKind(cause))

	slog.Warn("trip could not be priced",
		"trip_id", tripID,
		"tenant_id", tenantID,
		"error", cause,
	)

	payload, _ := json.Marshal(QuoteFailure{
		TripID:   tripID,
		TenantID: tenantID,
		Reason:   cause.Error(),
	})
	if err := w.bus.Publish(ctx, tenantID, domain.TopicQuoteFailed, payload); err != nil {
		slog.Error("failed to publish quote failure",
			"trip_id", tripID,
			"error", err,
		)
	}
}

func failureKind(err error) string {
	var (
		noRule   *pricing.NoApplicableRuleError
		notMet   *pricing.ConditionsNotMetError
		rateType *pricing.UnsupportedRateTypeError
		operator *pricing.UnsupportedOperatorError
		operand  *pricing.InvalidOperandError
	)
	switch {
	case errors.As(err, &noRule):
		return "no_rule"
	case errors.As(err, &notMet):
		return "conditions_not_met"
	case errors.As(err, &rateType):
		return "rate_type"
	case errors.As(err, &operator), errors.As(err, &operand):
		return "condition"
	default:
		return "internal"
	}
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
