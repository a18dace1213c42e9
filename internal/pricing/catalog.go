package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/pghie87/salem-invoice-system2/internal/domain"
)

// FuelPriceGetter returns the current fuel price for a tenant. A zero price
// means no live price is known and the rule's stored price applies.
type FuelPriceGetter func(ctx context.Context, tenantID string) (float64, error)

// Catalog holds compiled rate cards keyed by tenant and prices trips
// against them. Guard expressions are compiled once at load time; pricing
// only evaluates.
type Catalog struct {
	mu        sync.RWMutex
	env       *cel.Env
	cards     map[string][]*CompiledCard
	fuelPrice FuelPriceGetter
}

// CompiledCard pairs a rate card with the compiled guard programs of its
// rules, keyed by rule ID.
type CompiledCard struct {
	Card   *domain.RateCard
	guards map[string]cel.Program
}

// NewCatalog creates an empty catalog. The fuel price getter may be nil,
// in which case rules fall back to their stored current price.
func NewCatalog(fuelPrice FuelPriceGetter) (*Catalog, error) {
	env, err := cel.NewEnv(
		cel.Variable("trip", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("origin", cel.StringType),
		cel.Variable("destination", cel.StringType),
		cel.Variable("vehicle_type", cel.StringType),
		cel.Variable("distance", cel.DoubleType),
		cel.Variable("weight", cel.DoubleType),
		cel.Variable("volume", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Catalog{
		env:       env,
		cards:     make(map[string][]*CompiledCard),
		fuelPrice: fuelPrice,
	}, nil
}

// ValidateCard compiles and checks a card without mutating the catalog.
func (c *Catalog) ValidateCard(card *domain.RateCard) error {
	if card == nil {
		return fmt.Errorf("rate card is required")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	_, err := c.compileCard(card)
	return err
}

// LoadCard compiles and loads a card, replacing any loaded card with the
// same ID for the same tenant.
func (c *Catalog) LoadCard(card *domain.RateCard) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	compiled, err := c.compileCard(card)
	if err != nil {
		return err
	}

	tenant := card.TenantID
	for i, existing := range c.cards[tenant] {
		if existing.Card.ID == card.ID {
			c.cards[tenant][i] = compiled
			return nil
		}
	}
	c.cards[tenant] = append(c.cards[tenant], compiled)
	return nil
}

// LoadCards compiles and loads multiple cards, skipping disabled ones.
func (c *Catalog) LoadCards(cards []*domain.RateCard) error {
	for _, card := range cards {
		if card.Enabled {
			if err := c.LoadCard(card); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadCards drops every loaded card and loads the given set. Enables
// hot-reloading from the database without a restart.
func (c *Catalog) ReloadCards(cards []*domain.RateCard) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[string][]*CompiledCard)
	for _, card := range cards {
		if !card.Enabled {
			continue
		}
		compiled, err := c.compileCard(card)
		if err != nil {
			return err
		}
		next[card.TenantID] = append(next[card.TenantID], compiled)
	}

	c.cards = next
	return nil
}

// RemoveCard unloads a card. Removing an unknown card is a no-op.
func (c *Catalog) RemoveCard(tenantID, cardID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	loaded := c.cards[tenantID]
	for i, compiled := range loaded {
		if compiled.Card.ID == cardID {
			c.cards[tenantID] = append(loaded[:i:i], loaded[i+1:]...)
			return
		}
	}
}

// CardCount returns the number of loaded cards across all tenants.
func (c *Catalog) CardCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, cards := range c.cards {
		n += len(cards)
	}
	return n
}

// LoadedCards returns the loaded cards for a tenant in load order.
func (c *Catalog) LoadedCards(tenantID string) []*domain.RateCard {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cards := make([]*domain.RateCard, 0, len(c.cards[tenantID]))
	for _, compiled := range c.cards[tenantID] {
		cards = append(cards, compiled.Card)
	}
	return cards
}

// PriceInput carries one trip to price.
type PriceInput struct {
	TenantID string
	Trip     *domain.TripRecord
}

// PriceResult is the outcome of pricing a trip: the winning card and rule
// plus the composed breakdown.
type PriceResult struct {
	CardID          string
	RuleID          string
	Currency        string
	Breakdown       domain.ChargeBreakdown
	RulesConsidered int
}

// Price selects a rule and computes the charge for a trip. Tenant cards
// are searched in load order before global cards; within a card the first
// matching rule wins. A card with no matching rule is skipped; any other
// failure stops the search.
func (c *Catalog) Price(ctx context.Context, input *PriceInput) (*PriceResult, error) {
	if input == nil || input.Trip == nil {
		return nil, fmt.Errorf("trip is required")
	}
	trip := input.Trip

	c.mu.RLock()
	candidates := make([]*CompiledCard, 0, len(c.cards[input.TenantID])+len(c.cards[domain.Wildcard]))
	candidates = append(candidates, c.cards[input.TenantID]...)
	if input.TenantID != domain.Wildcard {
		candidates = append(candidates, c.cards[domain.Wildcard]...)
	}
	c.mu.RUnlock()

	asOf := trip.Date
	if asOf.IsZero() {
		asOf = time.Now()
	}

	considered := 0
	for _, compiled := range candidates {
		card := compiled.Card
		if !card.CoversDate(asOf) {
			continue
		}

		considered += len(card.Rules)
		rule, err := selectRule(card.Rules, trip)
		if err != nil {
			continue
		}

		if guard, ok := compiled.guards[rule.ID]; ok {
			pass, err := evalGuard(guard, trip)
			if err != nil {
				return nil, fmt.Errorf("guard for rule %s: %w", rule.ID, err)
			}
			if !pass {
				return nil, &ConditionsNotMetError{RuleID: rule.ID, TripID: trip.ID}
			}
		}

		breakdown, err := calculateCharge(rule, trip, c.currentFuelPrice(ctx, input.TenantID))
		if err != nil {
			return nil, err
		}

		return &PriceResult{
			CardID:          card.ID,
			RuleID:          rule.ID,
			Currency:        card.Currency,
			Breakdown:       breakdown,
			RulesConsidered: considered,
		}, nil
	}

	return nil, &NoApplicableRuleError{TripID: trip.ID}
}

// currentFuelPrice asks the getter for a live price. Lookup failures fall
// back to zero so a cache or database outage degrades to stored prices
// instead of failing the quote.
func (c *Catalog) currentFuelPrice(ctx context.Context, tenantID string) float64 {
	if c.fuelPrice == nil {
		return 0
	}
	price, err := c.fuelPrice(ctx, tenantID)
	if err != nil {
		return 0
	}
	return price
}

// Close unloads all cards.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cards = make(map[string][]*CompiledCard)
	return nil
}

func (c *Catalog) compileCard(card *domain.RateCard) (*CompiledCard, error) {
	compiled := &CompiledCard{
		Card:   card,
		guards: make(map[string]cel.Program),
	}

	for _, rule := range card.Rules {
		if err := checkRule(rule); err != nil {
			return nil, fmt.Errorf("card %s: %w", card.ID, err)
		}
		if rule.Guard == "" {
			continue
		}

		ast, issues := c.env.Compile(rule.Guard)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("failed to compile guard for rule %s: %w", rule.ID, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("rule %s: guard must return bool, got %s", rule.ID, ast.OutputType())
		}
		program, err := c.env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create guard program for rule %s: %w", rule.ID, err)
		}
		compiled.guards[rule.ID] = program
	}

	return compiled, nil
}

// checkRule validates a rule's rate type and condition operands at load
// time.
func checkRule(rule *domain.RateRule) error {
	switch rule.RateType {
	case domain.RateFixed, domain.RatePerDistance, domain.RatePerWeight,
		domain.RatePerVolume, domain.RateSlabBased, domain.RateZoneBased:
	default:
		return &UnsupportedRateTypeError{RuleID: rule.ID, RateType: rule.RateType}
	}

	for _, cond := range rule.Conditions {
		if err := checkCondition(cond); err != nil {
			return err
		}
	}
	for _, comp := range rule.Charges {
		for _, cond := range comp.Conditions {
			if err := checkCondition(cond); err != nil {
				return err
			}
		}
	}
	return nil
}

func evalGuard(program cel.Program, trip *domain.TripRecord) (bool, error) {
	out, _, err := program.Eval(guardActivation(trip))
	if err != nil {
		return false, err
	}
	pass, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("guard returned non-bool value")
	}
	return bool(pass), nil
}

func guardActivation(trip *domain.TripRecord) map[string]any {
	tripMap := map[string]any{
		"id":           trip.ID,
		"origin":       trip.Origin,
		"destination":  trip.Destination,
		"vehicle_type": trip.VehicleType,
		"distance":     trip.Distance,
		"weight":       trip.Weight,
		"volume":       trip.Volume,
	}
	for name, val := range trip.Fields {
		if n, numeric := val.Float(); numeric {
			tripMap[name] = n
			continue
		}
		tripMap[name] = val.String()
	}

	return map[string]any{
		"trip":         tripMap,
		"origin":       trip.Origin,
		"destination":  trip.Destination,
		"vehicle_type": trip.VehicleType,
		"distance":     trip.Distance,
		"weight":       trip.Weight,
		"volume":       trip.Volume,
	}
}
