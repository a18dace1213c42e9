package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pghie87/salem-invoice-system2/internal/domain"
	"github.com/pghie87/salem-invoice-system2/internal/pricing"
	"github.com/pghie87/salem-invoice-system2/internal/quote"
)

// createTestServer creates a server with a catalog holding one flat-rate card.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	catalog, err := pricing.NewCatalog(nil)
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}

	card := &domain.RateCard{
		ID:        "card-test",
		TenantID:  "tenant-001",
		Name:      "Test Card",
		Currency:  "INR",
		ValidFrom: time.Now().Add(-time.Hour),
		ValidTo:   time.Now().Add(24 * time.Hour),
		Enabled:   true,
		Rules: []*domain.RateRule{
			{
				ID:          "rule-flat",
				Origin:      domain.Wildcard,
				Destination: domain.Wildcard,
				VehicleType: domain.Wildcard,
				RateType:    domain.RateFixed,
				BaseRate:    1000,
			},
		},
	}
	if err := catalog.LoadCard(card); err != nil {
		t.Fatalf("failed to load card: %v", err)
	}

	builder := quote.NewBuilder("USD")

	return NewServer(cfg, nil, nil, nil, catalog, builder, nil, "test-v1")
}

func TestQuoteEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("SuccessfulQuote", func(t *testing.T) {
		reqBody := domain.TripRequest{
			Origin:      "MUM",
			Destination: "DEL",
			VehicleType: "32FT_MXL",
			Distance:    1400,
		}

		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/quote", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp domain.QuoteResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.QuoteID == "" {
			t.Error("expected quoteId in response")
		}
		if resp.TripID == "" {
			t.Error("expected tripId in response")
		}
		if resp.CardID != "card-test" {
			t.Errorf("expected cardId card-test, got %s", resp.CardID)
		}
		if resp.RuleID != "rule-flat" {
			t.Errorf("expected ruleId rule-flat, got %s", resp.RuleID)
		}
		if resp.Currency != "INR" {
			t.Errorf("expected currency INR, got %s", resp.Currency)
		}
		if resp.Total != 1000 {
			t.Errorf("expected total 1000, got %f", resp.Total)
		}
		if resp.Metadata.TraceID == "" {
			t.Error("expected traceId in metadata")
		}
	})

	t.Run("MissingTenantID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/quote", bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		// No X-Tenant-ID header

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/quote", bytes.NewBufferString("not-json"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("MissingOrigin", func(t *testing.T) {
		reqBody := domain.TripRequest{
			Destination: "DEL",
			VehicleType: "32FT_MXL",
		}
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/quote", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("NoApplicableRule", func(t *testing.T) {
		reqBody := domain.TripRequest{
			Origin:      "MUM",
			Destination: "DEL",
			VehicleType: "32FT_MXL",
		}
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/quote", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-without-cards")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp["code"] != "NO_APPLICABLE_RULE" {
			t.Errorf("expected code NO_APPLICABLE_RULE, got %s", resp["code"])
		}
	})

	t.Run("ResponseHeaders", func(t *testing.T) {
		reqBody := domain.TripRequest{
			Origin:      "MUM",
			Destination: "DEL",
			VehicleType: "32FT_MXL",
		}
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/quote", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header in response")
		}
		if rr.Header().Get("X-Trace-ID") == "" {
			t.Error("expected X-Trace-ID header in response")
		}
		if rr.Header().Get("Content-Type") != "application/json" {
			t.Error("expected Content-Type: application/json")
		}
	})
}

func TestRateCardEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("ListRateCards", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ratecards", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Count int `json:"count"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.Count != 1 {
			t.Errorf("expected 1 rate card, got %d", resp.Count)
		}
	})

	t.Run("GetRateCard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ratecards/card-test", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var card domain.RateCard
		if err := json.Unmarshal(rr.Body.Bytes(), &card); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if card.ID != "card-test" {
			t.Errorf("expected card-test, got %s", card.ID)
		}
	})

	t.Run("GetRateCardNotFound", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ratecards/no-such-card", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("CreateRateCard", func(t *testing.T) {
		card := domain.RateCard{
			ID:        "card-new",
			Name:      "New Card",
			Currency:  "INR",
			ValidFrom: time.Now().Add(-time.Hour),
			ValidTo:   time.Now().Add(24 * time.Hour),
			Enabled:   true,
			Rules: []*domain.RateRule{
				{
					ID:          "r1",
					Origin:      "BLR",
					Destination: "HYD",
					VehicleType: domain.Wildcard,
					RateType:    domain.RatePerDistance,
					BaseRate:    14,
				},
			},
		}
		body, _ := json.Marshal(card)
		req := httptest.NewRequest(http.MethodPost, "/ratecards", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-002")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated {
			t.Errorf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		// The new card should be priceable immediately.
		quoteReq := domain.TripRequest{
			Origin:      "BLR",
			Destination: "HYD",
			VehicleType: "TATA_ACE",
			Distance:    570,
		}
		body, _ = json.Marshal(quoteReq)
		req = httptest.NewRequest(http.MethodPost, "/quote", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-002")

		rr = httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp domain.QuoteResponse
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.Total != 7980 {
			t.Errorf("expected total 7980, got %f", resp.Total)
		}
	})

	t.Run("CreateRateCardRejectsBadGuard", func(t *testing.T) {
		card := domain.RateCard{
			ID:       "card-bad",
			Name:     "Bad Card",
			Currency: "INR",
			Enabled:  true,
			Rules: []*domain.RateRule{
				{
					ID:          "r1",
					Origin:      domain.Wildcard,
					Destination: domain.Wildcard,
					VehicleType: domain.Wildcard,
					RateType:    domain.RateFixed,
					BaseRate:    100,
					Guard:       "distance >>> nonsense",
				},
			},
		}
		body, _ := json.Marshal(card)
		req := httptest.NewRequest(http.MethodPost, "/ratecards", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-002")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("CreateRateCardRequiresRules", func(t *testing.T) {
		card := domain.RateCard{
			ID:      "card-empty",
			Name:    "Empty Card",
			Enabled: true,
		}
		body, _ := json.Marshal(card)
		req := httptest.NewRequest(http.MethodPost, "/ratecards", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-002")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("DeleteRateCard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/ratecards/card-test", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		req = httptest.NewRequest(http.MethodGet, "/ratecards/card-test", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr = httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 after delete, got %d", rr.Code)
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("HealthCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("ReadyCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("TenantMiddlewareExtractsID", func(t *testing.T) {
		var capturedTenantID string

		handler := TenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedTenantID = GetTenantID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "my-tenant-123")

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedTenantID != "my-tenant-123" {
			t.Errorf("expected tenant ID 'my-tenant-123', got '%s'", capturedTenantID)
		}
	})

	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v, ok := r.Context().Value(RequestIDKey).(string); ok {
				capturedRequestID = v
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		// Should not panic
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})
}
