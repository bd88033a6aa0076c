package formatter

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/jengzang/rond-timeline/internal/models"
)

// TimelinePayload is the serialized form of a timeline
type TimelinePayload struct {
	QueryDate string `json:"query_date"`
	Timezone  string `json:"timezone"`
	Events    []any  `json:"events"`
}

// VisitPayload is the serialized form of a visit
type VisitPayload struct {
	EventType    string   `json:"event_type"`
	VisitID      int64    `json:"visit_id"`
	LocationName string   `json:"location_name"`
	CategoryName string   `json:"category_name"`
	LocationType *int64   `json:"location_type"`
	POICategory  *string  `json:"poi_category"`
	Tags         []string `json:"tags"`
	ArrivalAt    string   `json:"arrival_at"`
	DepartureAt  string   `json:"departure_at"`
	IsCrossDay   bool     `json:"is_cross_day"`
	IsOngoing    bool     `json:"is_ongoing"`
}

// MovementPayload is the serialized form of a movement
type MovementPayload struct {
	EventType        string  `json:"event_type"`
	MovementID       int64   `json:"movement_id"`
	TransportName    string  `json:"transport_name"`
	TransportMode    string  `json:"transport_mode"`
	StartAt          string  `json:"start_at"`
	EndAt            string  `json:"end_at"`
	DurationMinutes  int64   `json:"duration_minutes"`
	FromLocationName *string `json:"from_location_name"`
	ToLocationName   *string `json:"to_location_name"`
}

// ToPayload projects a timeline into its JSON shape
func ToPayload(result *models.TimelineResult) TimelinePayload {
	payload := TimelinePayload{
		QueryDate: result.QueryDate.Format(time.DateOnly),
		Timezone:  result.Timezone,
		Events:    make([]any, 0, len(result.Events)),
	}

	for _, event := range result.Events {
		switch e := event.(type) {
		case models.VisitEvent:
			tags := e.Tags
			if tags == nil {
				tags = []string{}
			}
			payload.Events = append(payload.Events, VisitPayload{
				EventType:    string(models.EventKindVisit),
				VisitID:      e.VisitID,
				LocationName: e.LocationName,
				CategoryName: e.CategoryName,
				LocationType: e.LocationType,
				POICategory:  e.POICategory,
				Tags:         tags,
				ArrivalAt:    e.ArrivalAt.Format(time.RFC3339),
				DepartureAt:  e.DepartureAt.Format(time.RFC3339),
				IsCrossDay:   e.IsCrossDay,
				IsOngoing:    e.IsOngoing,
			})
		case models.MovementEvent:
			payload.Events = append(payload.Events, MovementPayload{
				EventType:        string(models.EventKindMovement),
				MovementID:       e.MovementID,
				TransportName:    e.TransportName,
				TransportMode:    string(e.TransportMode),
				StartAt:          e.StartTime.Format(time.RFC3339),
				EndAt:            e.EndTime.Format(time.RFC3339),
				DurationMinutes:  e.DurationMinutes,
				FromLocationName: e.FromLocationName,
				ToLocationName:   e.ToLocationName,
			})
		}
	}
	return payload
}

// RenderJSON renders the timeline as indented JSON. Non-ASCII text and HTML
// characters are written as is.
func RenderJSON(result *models.TimelineResult) (string, error) {
	data, err := sonic.MarshalIndent(ToPayload(result), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode timeline: %w", err)
	}
	return string(data), nil
}
