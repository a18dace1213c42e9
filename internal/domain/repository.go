package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Trip operations
	SaveTrip(ctx context.Context, tenantID string, trip *TripRecord) error
	GetTrip(ctx context.Context, tenantID string, tripID string) (*TripRecord, error)

	// Rate card operations
	SaveRateCard(ctx context.Context, tenantID string, card *RateCard) error
	GetRateCard(ctx context.Context, tenantID string, cardID string) (*RateCard, error)
	ListRateCards(ctx context.Context, tenantID string) ([]*RateCard, error)
	DeleteRateCard(ctx context.Context, tenantID string, cardID string) error

	// Quote operations
	SaveQuote(ctx context.Context, tenantID string, quote *Quote) error
	GetQuote(ctx context.Context, tenantID string, quoteID string) (*Quote, error)

	// Fuel price history
	SaveFuelPrice(ctx context.Context, tenantID string, price float64, recordedAt time.Time) error
	LatestFuelPrice(ctx context.Context, tenantID string) (float64, time.Time, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
