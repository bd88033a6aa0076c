package models

import (
	"strings"
	"time"
)

// EventKind discriminates the two timeline event variants
type EventKind string

const (
	EventKindVisit    EventKind = "visit"
	EventKindMovement EventKind = "movement"
)

// Event is a single entry on a day timeline. It is implemented only by
// VisitEvent and MovementEvent; consumers switch on the concrete type.
type Event interface {
	Kind() EventKind
	StartAt() time.Time
	EndAt() time.Time
	StableID() int64

	isEvent()
}

// VisitEvent represents a stay at a named location
type VisitEvent struct {
	VisitID      int64     `json:"visit_id"` // negative for a synthesized ongoing stay
	LocationName string    `json:"location_name"`
	CategoryName string    `json:"category_name"`
	LocationType *int64    `json:"location_type"`
	POICategory  *string   `json:"poi_category"`
	Tags         []string  `json:"tags"` // sorted, no duplicates
	ArrivalAt    time.Time `json:"arrival_at"`
	DepartureAt  time.Time `json:"departure_at"`
	IsCrossDay   bool      `json:"is_cross_day"`
	IsOngoing    bool      `json:"is_ongoing"`
}

func (v VisitEvent) Kind() EventKind    { return EventKindVisit }
func (v VisitEvent) StartAt() time.Time { return v.ArrivalAt }
func (v VisitEvent) EndAt() time.Time   { return v.DepartureAt }
func (v VisitEvent) StableID() int64    { return v.VisitID }
func (VisitEvent) isEvent()             {}

// MovementEvent represents a transit segment between two places
type MovementEvent struct {
	MovementID       int64         `json:"movement_id"`
	TransportName    string        `json:"transport_name"`
	TransportMode    TransportMode `json:"transport_mode"`
	StartTime        time.Time     `json:"start_at"`
	EndTime          time.Time     `json:"end_at"`
	DurationMinutes  int64         `json:"duration_minutes"` // floored, never negative
	FromLocationName *string       `json:"from_location_name"`
	ToLocationName   *string       `json:"to_location_name"`
}

func (m MovementEvent) Kind() EventKind    { return EventKindMovement }
func (m MovementEvent) StartAt() time.Time { return m.StartTime }
func (m MovementEvent) EndAt() time.Time   { return m.EndTime }
func (m MovementEvent) StableID() int64    { return m.MovementID }
func (MovementEvent) isEvent()             {}

// TimelineResult is the ordered timeline of one calendar day
type TimelineResult struct {
	QueryDate time.Time // midnight of the requested day in the requested zone
	Timezone  string
	Events    []Event
}

// DayStart returns the inclusive start of the requested day
func (r TimelineResult) DayStart() time.Time {
	return r.QueryDate
}

// DayEnd returns the exclusive end of the requested day
func (r TimelineResult) DayEnd() time.Time {
	return r.QueryDate.AddDate(0, 0, 1)
}

// Placeholder names written by the source app or this service when a
// location could not be resolved.
const (
	UnknownLocationName = "Unknown Location"
	UncategorizedName   = "Uncategorized"
	HomeCategoryName    = "home"

	sourceUnknownLocationName = "未知地点"
)

// IsPlaceholderName reports whether a location name carries no identity
func IsPlaceholderName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed == "" ||
		strings.EqualFold(trimmed, UnknownLocationName) ||
		trimmed == sourceUnknownLocationName
}

// NormalizeText trims s and maps blank values to nil
func NormalizeText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
