// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pghie87/salem-invoice-system2/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveTrip stores a trip with tenant isolation.
func (r *SQLRepository) SaveTrip(ctx context.Context, tenantID string, trip *domain.TripRecord) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	fields, _ := json.Marshal(trip.Fields)

	query := `
		INSERT INTO trips (
			id, tenant_id, origin, destination, vehicle_type,
			distance, weight, volume, trip_date, created_at, fields
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		trip.ID, tenantID, trip.Origin, trip.Destination, trip.VehicleType,
		trip.Distance, trip.Weight, trip.Volume,
		trip.Date, trip.CreatedAt,
		string(fields),
	)
	return err
}

// GetTrip retrieves a trip by ID with tenant isolation.
func (r *SQLRepository) GetTrip(ctx context.Context, tenantID string, tripID string) (*domain.TripRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, origin, destination, vehicle_type,
			   distance, weight, volume, trip_date, created_at, fields
		FROM trips
		WHERE tenant_id = ? AND id = ?
	`

	var trip domain.TripRecord
	var fields string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, tripID).Scan(
		&trip.ID, &trip.TenantID, &trip.Origin, &trip.Destination, &trip.VehicleType,
		&trip.Distance, &trip.Weight, &trip.Volume,
		&trip.Date, &trip.CreatedAt,
		&fields,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if fields != "" && fields != "null" {
		json.Unmarshal([]byte(fields), &trip.Fields)
	}

	return &trip, nil
}

// SaveRateCard stores a rate card with tenant isolation. Saving an existing
// card ID replaces its rules and window.
func (r *SQLRepository) SaveRateCard(ctx context.Context, tenantID string, card *domain.RateCard) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	rules, _ := json.Marshal(card.Rules)

	enabled := 0
	if card.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO rate_cards (
			id, tenant_id, client_id, name, currency,
			valid_from, valid_to, rules, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			client_id = excluded.client_id,
			name = excluded.name,
			currency = excluded.currency,
			valid_from = excluded.valid_from,
			valid_to = excluded.valid_to,
			rules = excluded.rules,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		card.ID, tenantID, card.ClientID, card.Name, card.Currency,
		card.ValidFrom, card.ValidTo, string(rules), enabled,
		now, now,
	)
	return err
}

// GetRateCard retrieves a rate card with tenant isolation.
func (r *SQLRepository) GetRateCard(ctx context.Context, tenantID string, cardID string) (*domain.RateCard, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, client_id, name, currency,
			   valid_from, valid_to, rules, enabled, created_at, updated_at
		FROM rate_cards
		WHERE tenant_id = ? AND id = ?
	`

	card, err := r.scanRateCard(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, cardID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return card, err
}

// ListRateCards retrieves all enabled rate cards for a tenant ordered by
// creation time, oldest first, so load order matches authoring order.
func (r *SQLRepository) ListRateCards(ctx context.Context, tenantID string) ([]*domain.RateCard, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, client_id, name, currency,
			   valid_from, valid_to, rules, enabled, created_at, updated_at
		FROM rate_cards
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []*domain.RateCard
	for rows.Next() {
		card, err := r.scanRateCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}

	return cards, rows.Err()
}

// DeleteRateCard soft-deletes a rate card by setting enabled = 0.
func (r *SQLRepository) DeleteRateCard(ctx context.Context, tenantID string, cardID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE rate_cards
		SET enabled = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), tenantID, cardID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveQuote stores a quote with tenant isolation.
func (r *SQLRepository) SaveQuote(ctx context.Context, tenantID string, quote *domain.Quote) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	breakdown, _ := json.Marshal(quote.Breakdown)
	metadata, _ := json.Marshal(quote.Metadata)

	query := `
		INSERT INTO quotes (
			id, tenant_id, trip_id, card_id, rule_id, currency,
			total, breakdown, metadata, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		quote.ID, tenantID, quote.TripID, quote.CardID, quote.RuleID, quote.Currency,
		quote.Breakdown.Total, string(breakdown), string(metadata), quote.Timestamp,
	)
	return err
}

// GetQuote retrieves a quote by ID with tenant isolation.
func (r *SQLRepository) GetQuote(ctx context.Context, tenantID string, quoteID string) (*domain.Quote, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, trip_id, card_id, rule_id, currency,
			   breakdown, metadata, timestamp
		FROM quotes
		WHERE tenant_id = ? AND id = ?
	`

	var q domain.Quote
	var breakdown, metadata string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, quoteID).Scan(
		&q.ID, &q.TenantID, &q.TripID, &q.CardID, &q.RuleID, &q.Currency,
		&breakdown, &metadata, &q.Timestamp,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(breakdown), &q.Breakdown)
	json.Unmarshal([]byte(metadata), &q.Metadata)

	return &q, nil
}

// SaveFuelPrice appends a fuel price observation for a tenant.
func (r *SQLRepository) SaveFuelPrice(ctx context.Context, tenantID string, price float64, recordedAt time.Time) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}

	query := `
		INSERT INTO fuel_prices (tenant_id, price, recorded_at)
		VALUES (?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query), tenantID, price, recordedAt)
	return err
}

// LatestFuelPrice returns the most recent fuel price for a tenant.
func (r *SQLRepository) LatestFuelPrice(ctx context.Context, tenantID string) (float64, time.Time, error) {
	if tenantID == "" {
		return 0, time.Time{}, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT price, recorded_at
		FROM fuel_prices
		WHERE tenant_id = ?
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	var price float64
	var recordedAt time.Time

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID).Scan(&price, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, ErrNotFound
	}
	if err != nil {
		return 0, time.Time{}, err
	}

	return price, recordedAt, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLRepository) scanRateCard(row scanner) (*domain.RateCard, error) {
	var card domain.RateCard
	var rules string
	var enabled int

	if err := row.Scan(
		&card.ID, &card.TenantID, &card.ClientID, &card.Name, &card.Currency,
		&card.ValidFrom, &card.ValidTo, &rules, &enabled,
		&card.CreatedAt, &card.UpdatedAt,
	); err != nil {
		return nil, err
	}

	card.Enabled = enabled == 1
	if err := json.Unmarshal([]byte(rules), &card.Rules); err != nil {
		return nil, fmt.Errorf("failed to parse rate card rules for %s: %w", card.ID, err)
	}

	return &card, nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
