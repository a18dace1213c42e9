// Package domain defines the core types and collaborator interfaces for the
// rate calculation service.
package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// ValueKind discriminates the variants of a trip field value.
type ValueKind int

const (
	ValueNumber ValueKind = iota
	ValueString
	ValueTime
)

// Value is a single trip field: a number, a string, or a timestamp.
// Conditions look fields up by name; an absent field evaluates the
// condition to false rather than failing the calculation.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Time time.Time
}

// Number returns a numeric field value.
func Number(v float64) Value { return Value{Kind: ValueNumber, Num: v} }

// Text returns a string field value.
func Text(s string) Value { return Value{Kind: ValueString, Str: s} }

// Timestamp returns a time field value.
func Timestamp(t time.Time) Value { return Value{Kind: ValueTime, Time: t} }

// Float returns the value as a float64 when it is numeric or a numeric-looking
// string.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case ValueNumber:
		return v.Num, true
	case ValueString:
		f, err := strconv.ParseFloat(v.Str, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// String renders the value for membership and substring matching.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueTime:
		return v.Time.Format(time.RFC3339)
	default:
		return v.Str
	}
}

// MarshalJSON renders numbers as JSON numbers, times as RFC3339 strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueNumber:
		return json.Marshal(v.Num)
	case ValueTime:
		return json.Marshal(v.Time.Format(time.RFC3339))
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON accepts a JSON number or a string; strings in RFC3339 form
// become time values.
func (v *Value) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*v = Number(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		*v = Timestamp(t)
		return nil
	}
	*v = Text(s)
	return nil
}

// TripRecord describes the trip being priced. The well-known fields drive
// rule selection and rate-type arithmetic; Fields carries anything else the
// rate card's conditions refer to.
type TripRecord struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	VehicleType string    `json:"vehicleType"`
	Distance    float64   `json:"distance"`
	Weight      float64   `json:"weight"`
	Volume      float64   `json:"volume"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`

	// Extra named fields referenced by conditions.
	Fields map[string]Value `json:"fields,omitempty"`
}

// Field resolves a named trip parameter. Extra fields shadow well-known
// ones; unset well-known fields (empty string, zero quantity) report absent
// so that conditions on them evaluate to false.
func (t *TripRecord) Field(name string) (Value, bool) {
	if v, ok := t.Fields[name]; ok {
		return v, true
	}
	switch name {
	case "id":
		return presentText(t.ID)
	case "origin":
		return presentText(t.Origin)
	case "destination":
		return presentText(t.Destination)
	case "vehicleType":
		return presentText(t.VehicleType)
	case "distance":
		return presentNumber(t.Distance)
	case "weight":
		return presentNumber(t.Weight)
	case "volume":
		return presentNumber(t.Volume)
	case "date":
		if t.Date.IsZero() {
			return Value{}, false
		}
		return Timestamp(t.Date), true
	}
	return Value{}, false
}

func presentText(s string) (Value, bool) {
	if s == "" {
		return Value{}, false
	}
	return Text(s), true
}

func presentNumber(f float64) (Value, bool) {
	if f == 0 {
		return Value{}, false
	}
	return Number(f), true
}

// TripRequest is the API payload for pricing a trip.
type TripRequest struct {
	Origin      string           `json:"origin"`
	Destination string           `json:"destination"`
	VehicleType string           `json:"vehicleType"`
	Distance    float64          `json:"distance"`
	Weight      float64          `json:"weight"`
	Volume      float64          `json:"volume"`
	Date        string           `json:"date,omitempty"` // RFC3339, defaults to now
	Fields      map[string]Value `json:"fields,omitempty"`
}

// ToTrip converts a request to a TripRecord domain object.
func (r *TripRequest) ToTrip(tenantID string) *TripRecord {
	now := time.Now().UTC()
	date := now
	if r.Date != "" {
		if parsed, err := time.Parse(time.RFC3339, r.Date); err == nil {
			date = parsed
		}
	}
	return &TripRecord{
		TenantID:    tenantID,
		Origin:      r.Origin,
		Destination: r.Destination,
		VehicleType: r.VehicleType,
		Distance:    r.Distance,
		Weight:      r.Weight,
		Volume:      r.Volume,
		Date:        date,
		CreatedAt:   now,
		Fields:      r.Fields,
	}
}
