//go:build integration
// +build integration

// Package integration provides end-to-end tests for the ratesvc rate
// calculation engine.
//
// These tests verify the COMPLETE pricing pipeline:
//
//	Trip → Rate Card Selection → Rule Matching → Charge Composition → Quote
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// UNDERSTANDING THE DOMAIN:
//
// 1. TRIP: A transport movement (origin → destination) with a vehicle type
//    and measured distance/weight/volume.
//
// 2. RATE CARD: An ordered set of pricing rules for one client and validity
//    window. Tenant cards are consulted before global ("*") cards.
//
// 3. RULE: Matches a trip by origin/destination/vehicleType (with "*"
//    wildcards) and derives a base charge from its rate type. The FIRST
//    matching rule in stored order wins.
//
// 4. CHARGE COMPOSITION: base + additional charges + fuel adjustment
//    + surcharges - discounts, each rounded to 2 decimal places.
//
// The tests seed their own rate cards via POST /ratecards, so a clean
// server is enough; no fixture script is required.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// TestConfig holds test environment configuration
type TestConfig struct {
	BaseURL  string
	TenantID string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("RATESVC_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return TestConfig{
		BaseURL:  baseURL,
		TenantID: "test-tenant",
	}
}

// ============================================================================
// API Request/Response Types (matching the ratesvc API contract)
// ============================================================================

// TripRequest is the trip sent to POST /quote
type TripRequest struct {
	Origin      string         `json:"origin"`
	Destination string         `json:"destination"`
	VehicleType string         `json:"vehicleType"`
	Distance    float64        `json:"distance"`
	Weight      float64        `json:"weight"`
	Volume      float64        `json:"volume"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// QuoteResponse is what POST /quote returns
type QuoteResponse struct {
	QuoteID   string           `json:"quoteId"`
	TripID    string           `json:"tripId"`
	CardID    string           `json:"cardId"`
	RuleID    string           `json:"ruleId"`
	Currency  string           `json:"currency"`
	Total     float64          `json:"total"`
	Breakdown Breakdown        `json:"breakdown"`
	Metadata  ResponseMetadata `json:"metadata"`
}

type Breakdown struct {
	Base           float64      `json:"base"`
	Additional     []ChargeLine `json:"additional"`
	FuelAdjustment float64      `json:"fuelAdjustment"`
	Discounts      []ChargeLine `json:"discounts"`
	Surcharges     []ChargeLine `json:"surcharges"`
	Total          float64      `json:"total"`
}

type ChargeLine struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type ResponseMetadata struct {
	TraceID string `json:"traceId"`
	TotalMs int64  `json:"totalMs"`
}

// ============================================================================
// Test Helper Functions
// ============================================================================

func postJSON(t *testing.T, config TestConfig, path string, payload any) (*http.Response, []byte) {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	httpReq, err := http.NewRequest("POST", config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", config.TenantID)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	return resp, respBody
}

func quoteTrip(t *testing.T, config TestConfig, req TripRequest) QuoteResponse {
	t.Helper()

	resp, respBody := postJSON(t, config, "/quote", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, string(respBody))
	}

	var result QuoteResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, string(respBody))
	}

	return result
}

// seedRateCard installs the shared test card. Idempotent: re-creating the
// same card ID replaces the loaded copy.
func seedRateCard(t *testing.T, config TestConfig) {
	t.Helper()

	card := map[string]any{
		"id":       "it-card-001",
		"name":     "Integration Test Card",
		"currency": "INR",
		"enabled":  true,
		"rules": []map[string]any{
			{
				// Lane-specific per-km rate with a volume discount above 1000 km.
				"id":          "it-lane-mum-del",
				"origin":      "MUM",
				"destination": "DEL",
				"vehicleType": "32FT_MXL",
				"rateType":    "PER_DISTANCE",
				"baseRate":    10,
				"charges": []map[string]any{
					{
						"name":         "loading",
						"kind":         "LOADING",
						"magnitude":    500,
						"isPercentage": false,
					},
					{
						"name":         "long-haul-discount",
						"kind":         "DISCOUNT",
						"magnitude":    5,
						"isPercentage": true,
						"conditions": []map[string]any{
							{"parameter": "distance", "operator": "GREATER_THAN", "value": "1000"},
						},
					},
				},
			},
			{
				// Minimum charge clamp: short trips never bill below 2000.
				"id":          "it-min-charge",
				"origin":      "MUM",
				"destination": "PUN",
				"vehicleType": "*",
				"rateType":    "PER_DISTANCE",
				"baseRate":    10,
				"minimumCharge": 2000,
			},
			{
				// Conditional rule: only heavy loads qualify.
				"id":          "it-heavy-only",
				"origin":      "DEL",
				"destination": "BLR",
				"vehicleType": "*",
				"rateType":    "FIXED",
				"baseRate":    30000,
				"conditions": []map[string]any{
					{"parameter": "weight", "operator": "GREATER_THAN_EQUAL", "value": "20"},
				},
			},
			{
				// Catch-all flat rate for any other trip.
				"id":          "it-fallback",
				"origin":      "*",
				"destination": "*",
				"vehicleType": "*",
				"rateType":    "FIXED",
				"baseRate":    5000,
			},
		},
	}

	resp, respBody := postJSON(t, config, "/ratecards", card)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Failed to seed rate card: %d: %s", resp.StatusCode, string(respBody))
	}
}

// ============================================================================
// SCENARIO 1: Lane Rate With Charges and Conditional Discount
// ============================================================================

func TestLaneQuote_ChargesAndDiscount(t *testing.T) {
	/*
	   SCENARIO: A 1400 km MUM→DEL trip on a 32FT_MXL

	   EXPECTED BEHAVIOR:
	   - it-lane-mum-del matches (exact lane + vehicle)
	   - Base: 10/km * 1400 = 14,000
	   - Loading: +500 (absolute)
	   - Discount: distance > 1000 → 5% of base = 700
	   - Total: 14,000 + 500 - 700 = 13,800
	*/
	config := getTestConfig()
	seedRateCard(t, config)

	result := quoteTrip(t, config, TripRequest{
		Origin:      "MUM",
		Destination: "DEL",
		VehicleType: "32FT_MXL",
		Distance:    1400,
		Weight:      12,
	})

	if result.RuleID != "it-lane-mum-del" {
		t.Errorf("Expected rule it-lane-mum-del, got %s", result.RuleID)
	}
	if result.Breakdown.Base != 14000 {
		t.Errorf("Expected base 14000, got %.2f", result.Breakdown.Base)
	}
	if result.Total != 13800 {
		t.Errorf("Expected total 13800, got %.2f", result.Total)
	}
	if result.Currency != "INR" {
		t.Errorf("Expected currency INR, got %s", result.Currency)
	}

	t.Logf("✓ Lane quote: rule=%s total=%.2f", result.RuleID, result.Total)
}

// ============================================================================
// SCENARIO 2: Minimum Charge Clamp
// ============================================================================

func TestShortTrip_MinimumChargeApplies(t *testing.T) {
	/*
	   SCENARIO: A 150 km MUM→PUN trip

	   EXPECTED BEHAVIOR:
	   - it-min-charge matches
	   - Raw base: 10/km * 150 = 1,500 — below the 2,000 minimum
	   - Base clamped to 2,000

	   WHY THIS TEST:
	   Minimum charges protect short hauls from being under-billed;
	   the clamp must apply before percentage components are computed.
	*/
	config := getTestConfig()
	seedRateCard(t, config)

	result := quoteTrip(t, config, TripRequest{
		Origin:      "MUM",
		Destination: "PUN",
		VehicleType: "TATA_ACE",
		Distance:    150,
	})

	if result.RuleID != "it-min-charge" {
		t.Errorf("Expected rule it-min-charge, got %s", result.RuleID)
	}
	if result.Breakdown.Base != 2000 {
		t.Errorf("Expected clamped base 2000, got %.2f", result.Breakdown.Base)
	}

	t.Logf("✓ Minimum charge: 150 km → base=%.2f", result.Breakdown.Base)
}

// ============================================================================
// SCENARIO 3: Conditions Gate the Rule, First Match Wins
// ============================================================================

func TestConditionalRule_HeavyLoadQualifies(t *testing.T) {
	/*
	   SCENARIO: DEL→BLR with 25 t vs 10 t

	   EXPECTED BEHAVIOR:
	   - 25 t: it-heavy-only's weight >= 20 condition holds → 30,000 flat
	   - 10 t: the first match (it-heavy-only) fails its conditions, which
	     rejects the trip for this card — pricing does NOT fall through to
	     the catch-all rule within the same card
	*/
	config := getTestConfig()
	seedRateCard(t, config)

	heavy := quoteTrip(t, config, TripRequest{
		Origin:      "DEL",
		Destination: "BLR",
		VehicleType: "32FT_SXL",
		Distance:    2100,
		Weight:      25,
	})

	if heavy.RuleID != "it-heavy-only" {
		t.Errorf("Expected rule it-heavy-only, got %s", heavy.RuleID)
	}
	if heavy.Total != 30000 {
		t.Errorf("Expected total 30000, got %.2f", heavy.Total)
	}

	resp, respBody := postJSON(t, config, "/quote", TripRequest{
		Origin:      "DEL",
		Destination: "BLR",
		VehicleType: "32FT_SXL",
		Distance:    2100,
		Weight:      10,
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for light load on conditional lane, got %d: %s",
			resp.StatusCode, string(respBody))
	}

	t.Logf("✓ Conditional rule: 25t → %.2f, 10t → HTTP %d", heavy.Total, resp.StatusCode)
}

// ============================================================================
// SCENARIO 4: Wildcard Fallback
// ============================================================================

func TestUnknownLane_FallbackRule(t *testing.T) {
	/*
	   SCENARIO: A lane no specific rule covers (CHN→HYD)

	   EXPECTED: it-fallback (all-wildcard) prices it at the flat 5,000.
	*/
	config := getTestConfig()
	seedRateCard(t, config)

	result := quoteTrip(t, config, TripRequest{
		Origin:      "CHN",
		Destination: "HYD",
		VehicleType: "20FT_CONTAINER",
		Distance:    630,
	})

	if result.RuleID != "it-fallback" {
		t.Errorf("Expected rule it-fallback, got %s", result.RuleID)
	}
	if result.Total != 5000 {
		t.Errorf("Expected total 5000, got %.2f", result.Total)
	}

	t.Logf("✓ Fallback rule priced unknown lane at %.2f", result.Total)
}

// ============================================================================
// SCENARIO 5: Input Validation
// ============================================================================

func TestMissingOrigin_Error(t *testing.T) {
	config := getTestConfig()

	resp, _ := postJSON(t, config, "/quote", TripRequest{
		Destination: "DEL",
		VehicleType: "32FT_MXL",
		Distance:    1400,
	})

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing origin, got %d", resp.StatusCode)
	}

	t.Logf("✓ Validation test passed: missing origin → HTTP %d", resp.StatusCode)
}

func TestMissingTenantHeader_Error(t *testing.T) {
	config := getTestConfig()

	body, _ := json.Marshal(TripRequest{
		Origin:      "MUM",
		Destination: "DEL",
		VehicleType: "32FT_MXL",
	})
	httpReq, _ := http.NewRequest("POST", config.BaseURL+"/quote", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	// NO X-Tenant-ID header!

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing tenant, got %d", resp.StatusCode)
	}

	t.Logf("✓ Validation test passed: missing tenant → HTTP %d", resp.StatusCode)
}

// ============================================================================
// SCENARIO 6: Quote Persistence and Retrieval
// ============================================================================

func TestQuoteRetrievableByID(t *testing.T) {
	config := getTestConfig()
	seedRateCard(t, config)

	result := quoteTrip(t, config, TripRequest{
		Origin:      "MUM",
		Destination: "DEL",
		VehicleType: "32FT_MXL",
		Distance:    1400,
	})

	httpReq, _ := http.NewRequest("GET",
		fmt.Sprintf("%s/quotes/%s", config.BaseURL, result.QuoteID), nil)
	httpReq.Header.Set("X-Tenant-ID", config.TenantID)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected 200 fetching stored quote, got %d: %s", resp.StatusCode, string(body))
	}

	var stored struct {
		ID        string `json:"id"`
		TripID    string `json:"tripId"`
		Breakdown struct {
			Total float64 `json:"total"`
		} `json:"breakdown"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		t.Fatalf("Failed to decode stored quote: %v", err)
	}

	if stored.ID != result.QuoteID {
		t.Errorf("Expected stored id %s, got %s", result.QuoteID, stored.ID)
	}
	if stored.Breakdown.Total != result.Total {
		t.Errorf("Stored total %.2f differs from response total %.2f",
			stored.Breakdown.Total, result.Total)
	}

	t.Logf("✓ Quote %s persisted and retrievable", result.QuoteID[:8])
}

// ============================================================================
// SCENARIO 7: Response Metadata Verification
// ============================================================================

func TestResponseMetadata(t *testing.T) {
	/*
	   SCENARIO: Verify response includes all required metadata

	   This ensures the API contract is stable for clients.
	*/
	config := getTestConfig()
	seedRateCard(t, config)

	result := quoteTrip(t, config, TripRequest{
		Origin:      "MUM",
		Destination: "DEL",
		VehicleType: "32FT_MXL",
		Distance:    1400,
	})

	if result.QuoteID == "" {
		t.Error("Missing quoteId")
	}
	if result.TripID == "" {
		t.Error("Missing tripId")
	}
	if result.CardID == "" {
		t.Error("Missing cardId")
	}
	if result.Metadata.TraceID == "" {
		t.Error("Missing metadata.traceId")
	}
	// Note: TotalMs can be 0 for very fast operations (sub-millisecond)
	if result.Metadata.TotalMs < 0 {
		t.Error("Invalid metadata.totalMs (negative)")
	}

	t.Logf("✓ Metadata complete: quoteId=%s, tripId=%s, traceId=%s, totalMs=%d",
		result.QuoteID[:8], result.TripID[:8], result.Metadata.TraceID[:8], result.Metadata.TotalMs)
}
