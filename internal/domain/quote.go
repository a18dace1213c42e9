package domain

import "time"

// ChargeLine is one named amount inside a breakdown category.
type ChargeLine struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// ChargeBreakdown is the composed result of one rate calculation. Lines keep
// the insertion order of the rule's components; Total is computed once when
// the breakdown is built and never recomputed.
type ChargeBreakdown struct {
	Base           float64      `json:"base"`
	Additional     []ChargeLine `json:"additional,omitempty"`
	FuelAdjustment float64      `json:"fuelAdjustment"`
	Discounts      []ChargeLine `json:"discounts,omitempty"`
	Surcharges     []ChargeLine `json:"surcharges,omitempty"`
	Total          float64      `json:"total"`
}

// Quote is a persisted pricing result for one trip.
type Quote struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenantId"`
	TripID    string          `json:"tripId"`
	CardID    string          `json:"cardId"`
	RuleID    string          `json:"ruleId"`
	Currency  string          `json:"currency"`
	Breakdown ChargeBreakdown `json:"breakdown"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  QuoteMetadata   `json:"metadata"`
}

// QuoteMetadata contains processing information for auditing.
type QuoteMetadata struct {
	TraceID         string `json:"traceId"`
	SelectMs        int64  `json:"selectMs"`
	PriceMs         int64  `json:"priceMs"`
	TotalMs         int64  `json:"totalMs"`
	RulesConsidered int    `json:"rulesConsidered"`
	EngineVersion   string `json:"engineVersion"`
}

// QuoteResponse is the API response for a priced trip.
type QuoteResponse struct {
	QuoteID   string          `json:"quoteId"`
	TripID    string          `json:"tripId"`
	CardID    string          `json:"cardId"`
	RuleID    string          `json:"ruleId"`
	Currency  string          `json:"currency"`
	Total     float64         `json:"total"`
	Breakdown ChargeBreakdown `json:"breakdown"`
	Metadata  QuoteMetadata   `json:"metadata"`
}

// ToResponse converts a Quote to an API response.
func (q *Quote) ToResponse() *QuoteResponse {
	return &QuoteResponse{
		QuoteID:   q.ID,
		TripID:    q.TripID,
		CardID:    q.CardID,
		RuleID:    q.RuleID,
		Currency:  q.Currency,
		Total:     q.Breakdown.Total,
		Breakdown: q.Breakdown,
		Metadata:  q.Metadata,
	}
}
