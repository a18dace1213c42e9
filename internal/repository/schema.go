package repository

// Schema definitions for the rate service database.
// Compatible with both SQLite and PostgreSQL.

const schemaTrips = `
CREATE TABLE IF NOT EXISTS trips (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    origin TEXT NOT NULL,
    destination TEXT NOT NULL,
    vehicle_type TEXT NOT NULL,
    distance REAL NOT NULL DEFAULT 0,
    weight REAL NOT NULL DEFAULT 0,
    volume REAL NOT NULL DEFAULT 0,
    trip_date TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    fields TEXT
);

CREATE INDEX IF NOT EXISTS idx_trips_tenant ON trips(tenant_id);
CREATE INDEX IF NOT EXISTS idx_trips_lane ON trips(tenant_id, origin, destination);
CREATE INDEX IF NOT EXISTS idx_trips_date ON trips(tenant_id, trip_date);
`

const schemaRateCards = `
CREATE TABLE IF NOT EXISTS rate_cards (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    client_id TEXT NOT NULL,
    name TEXT NOT NULL,
    currency TEXT NOT NULL,
    valid_from TIMESTAMP,
    valid_to TIMESTAMP,
    rules TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_rate_cards_tenant ON rate_cards(tenant_id);
CREATE INDEX IF NOT EXISTS idx_rate_cards_enabled ON rate_cards(tenant_id, enabled);
CREATE INDEX IF NOT EXISTS idx_rate_cards_client ON rate_cards(tenant_id, client_id);
`

const schemaQuotes = `
CREATE TABLE IF NOT EXISTS quotes (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    trip_id TEXT NOT NULL,
    card_id TEXT NOT NULL,
    rule_id TEXT NOT NULL,
    currency TEXT NOT NULL,
    total REAL NOT NULL,
    breakdown TEXT NOT NULL,
    metadata TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quotes_tenant ON quotes(tenant_id);
CREATE INDEX IF NOT EXISTS idx_quotes_trip ON quotes(tenant_id, trip_id);
CREATE INDEX IF NOT EXISTS idx_quotes_timestamp ON quotes(tenant_id, timestamp);
`

const schemaFuelPrices = `
CREATE TABLE IF NOT EXISTS fuel_prices (
    tenant_id TEXT NOT NULL,
    price REAL NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fuel_prices_tenant ON fuel_prices(tenant_id, recorded_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaTrips,
		schemaRateCards,
		schemaQuotes,
		schemaFuelPrices,
	}
}
