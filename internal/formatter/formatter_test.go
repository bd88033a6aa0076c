package formatter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/rond-timeline/internal/models"
)

var day = time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func strPtr(s string) *string { return &s }

func sampleTimeline() *models.TimelineResult {
	return &models.TimelineResult{
		QueryDate: day,
		Timezone:  "UTC",
		Events: []models.Event{
			models.VisitEvent{
				VisitID: 1, LocationName: "Example Home A", CategoryName: "home",
				Tags:      []string{},
				ArrivalAt: at(-2, 0), DepartureAt: at(8, 0), IsCrossDay: true,
			},
			models.MovementEvent{
				MovementID: 9, TransportName: "Drive", TransportMode: models.TransportDrive,
				StartTime: at(8, 0), EndTime: at(8, 20), DurationMinutes: 20,
				FromLocationName: strPtr("Example Home A"),
			},
			models.VisitEvent{
				VisitID: 2, LocationName: "Example Mall B", CategoryName: "Shopping",
				POICategory: strPtr("MKPOICategoryStore"),
				Tags:        []string{"Errands", "R&D"},
				ArrivalAt:   at(8, 30), DepartureAt: at(10, 30),
			},
		},
	}
}

func TestParseOutputMode(t *testing.T) {
	for raw, want := range map[string]OutputMode{"pretty": OutputPretty, " JSON ": OutputJSON, "both": OutputBoth} {
		got, err := ParseOutputMode(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseOutputMode("xml")
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "output", verr.Field)
}

func TestRenderJSON(t *testing.T) {
	out, err := RenderJSON(sampleTimeline())
	require.NoError(t, err)
	assert.Contains(t, out, "R&D")

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "2026-02-07", doc["query_date"])
	assert.Equal(t, "UTC", doc["timezone"])

	events := doc["events"].([]any)
	require.Len(t, events, 3)

	first := events[0].(map[string]any)
	assert.Equal(t, "visit", first["event_type"])
	assert.Equal(t, "2026-02-06T22:00:00Z", first["arrival_at"])
	assert.Equal(t, true, first["is_cross_day"])
	assert.Equal(t, []any{}, first["tags"])
	assert.Nil(t, first["location_type"])

	move := events[1].(map[string]any)
	assert.Equal(t, "movement", move["event_type"])
	assert.Equal(t, "drive", move["transport_mode"])
	assert.Equal(t, float64(20), move["duration_minutes"])
	assert.Equal(t, "Example Home A", move["from_location_name"])
	assert.Nil(t, move["to_location_name"])
}

func TestRenderJSONZoneOffset(t *testing.T) {
	zone := time.FixedZone("UTC+8", 8*3600)
	result := &models.TimelineResult{
		QueryDate: time.Date(2026, 2, 7, 0, 0, 0, 0, zone),
		Timezone:  "UTC+8",
		Events: []models.Event{models.VisitEvent{
			VisitID: 1, ArrivalAt: time.Date(2026, 2, 7, 9, 0, 0, 0, zone), DepartureAt: time.Date(2026, 2, 7, 10, 0, 0, 0, zone),
		}},
	}
	out, err := RenderJSON(result)
	require.NoError(t, err)
	assert.Contains(t, out, `"arrival_at": "2026-02-07T09:00:00+08:00"`)
	assert.Contains(t, out, `"tags": []`)
}

func TestRenderPrettyEmpty(t *testing.T) {
	out := RenderPretty(&models.TimelineResult{QueryDate: day, Timezone: "UTC"}, PrettyOptions{})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Timeline 2026-02-07 (UTC)", lines[0])
	assert.Equal(t, strings.Repeat("─", 72), lines[1])
	assert.Equal(t, "No data", lines[2])

	out = RenderPretty(&models.TimelineResult{QueryDate: day, Timezone: "UTC"}, PrettyOptions{Emoji: true})
	assert.True(t, strings.HasPrefix(out, "🗓️ Timeline 2026-02-07 (UTC)"))
}

func TestRenderPrettyPlain(t *testing.T) {
	out := RenderPretty(sampleTimeline(), PrettyOptions{})

	assert.Equal(t, strings.Join([]string{
		"Timeline 2026-02-07 (UTC)",
		strings.Repeat("─", 72),
		"[visit] 2026-02-06 22:00 -> 2026-02-07 08:00 (cross-day)",
		"   Location: Example Home A",
		"   Category: home",
		"",
		"[movement] 2026-02-07 08:00 -> 2026-02-07 08:20 (20m)",
		"   Route: Example Home A -> Example Mall B",
		"   Transport: Drive (20m)",
		"",
		"[visit] 2026-02-07 08:30 -> 2026-02-07 10:30",
		"   Location: Example Mall B",
		"   Category: Shopping",
		"   Tags: Errands, R&D",
	}, "\n"), out)
}

func TestRenderPrettyFullDayAndOngoing(t *testing.T) {
	result := &models.TimelineResult{
		QueryDate: day,
		Timezone:  "UTC",
		Events: []models.Event{
			models.VisitEvent{VisitID: 1, LocationName: "Cabin", CategoryName: "Travel",
				ArrivalAt: at(-5, 0), DepartureAt: at(26, 0), IsCrossDay: true},
			models.VisitEvent{VisitID: -4, LocationName: "Library", CategoryName: "Uncategorized",
				ArrivalAt: at(12, 0), DepartureAt: at(13, 0), IsOngoing: true},
		},
	}

	out := RenderPretty(result, PrettyOptions{Emoji: true})
	assert.Contains(t, out, "📍 2026-02-06 19:00 -> 2026-02-08 02:00 ☀️ full day")
	assert.NotContains(t, out, "cross-day")
	assert.Contains(t, out, "📚 2026-02-07 12:00 -> ongoing")
	assert.Contains(t, out, "   Status: staying")
}

func TestRenderPrettyGroupsMovements(t *testing.T) {
	var events []models.Event
	names := []string{"Walk", "Metro", "Walk", "Metro", "Walk"}
	for i, name := range names {
		mode := models.TransportWalk
		if name == "Metro" {
			mode = models.TransportPublicTransit
		}
		start := at(19, 53).Add(time.Duration(i*10) * time.Minute)
		duration := 10
		if name == "Metro" && i == 3 {
			duration = 25
		}
		events = append(events, models.MovementEvent{
			MovementID: int64(100 + i), TransportName: name, TransportMode: mode,
			StartTime: start, EndTime: start.Add(time.Duration(duration)*time.Minute + 30*time.Second),
			DurationMinutes: int64(duration),
		})
	}
	result := &models.TimelineResult{QueryDate: day, Timezone: "UTC", Events: events}

	out := RenderPretty(result, PrettyOptions{Emoji: true, WrapWidth: 30})
	lines := strings.Split(out, "\n")

	// dominant movement is the 25 minute metro ride
	assert.True(t, strings.HasPrefix(lines[2], "🚇 2026-02-07 19:53 -> 2026-02-07 20:43 (50m)"), lines[2])
	assert.Equal(t, "   Route: Unknown Location -> Unknown Location", lines[3])
	assert.True(t, strings.HasPrefix(lines[4], "   Transport: 🚶 Walk (10m)"))

	indent := strings.Repeat(" ", len("   Transport: "))
	require.Greater(t, len(lines), 5)
	for _, line := range lines[5:] {
		assert.True(t, strings.HasPrefix(line, indent+"-> "), line)
	}
	assert.NotContains(t, out, "\n\n")
}

func TestMovementMarker(t *testing.T) {
	tests := []struct {
		name string
		mode models.TransportMode
		want string
	}{
		{"地铁", models.TransportUnknown, "🚇"},
		{"City Bike", models.TransportUnknown, "🚴"},
		{"Taxi", models.TransportUnknown, "🚗"},
		{"Ferry", models.TransportPublicTransit, "🚇"},
		{"Something", models.TransportFlight, "✈️"},
		{"Something", models.TransportMode("hover"), "🛣️"},
		{"Night Bus", models.TransportDrive, "🚇"},
		{"公交车", models.TransportUnknown, "🚇"},
		{"机动车", models.TransportUnknown, "🚗"},
		{"Card Reader", models.TransportWalk, "🚶"},
		{"Scary Ride", models.TransportRun, "🏃"},
		{"Motorcycle", models.TransportUnknown, "🚗"},
		{"E-Bike", models.TransportUnknown, "🚴"},
		{"Bike骑行", models.TransportUnknown, "🚴"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, movementMarker(models.MovementEvent{TransportName: tt.name, TransportMode: tt.mode}, true), tt.name)
	}
	assert.Equal(t, "[movement]", movementMarker(models.MovementEvent{TransportName: "Walk"}, false))
}

func TestWrapPartsUsesDisplayWidth(t *testing.T) {
	// each CJK part is 8 columns wide but only 4 runes long
	parts := []string{"步行步行", "地铁地铁", "步行步行"}
	assert.Equal(t, []string{"步行步行 -> 地铁地铁", "-> 步行步行"}, wrapParts(parts, 20))
	assert.Equal(t, []string{"步行步行 -> 地铁地铁 -> 步行步行"}, wrapParts(parts, 40))
	assert.Empty(t, wrapParts(nil, 10))
}

func TestRender(t *testing.T) {
	result := sampleTimeline()

	both, err := Render(result, OutputBoth, PrettyOptions{})
	require.NoError(t, err)
	pretty := RenderPretty(result, PrettyOptions{})
	doc, err := RenderJSON(result)
	require.NoError(t, err)
	assert.Equal(t, pretty+"\n\n"+doc, both)

	_, err = Render(result, OutputMode("yaml"), PrettyOptions{})
	assert.Error(t, err)
}

func int64Ptr(n int64) *int64 { return &n }

func TestVisitMarker(t *testing.T) {
	tests := []struct {
		name  string
		visit models.VisitEvent
		want  string
	}{
		{"poi beats location type", models.VisitEvent{LocationName: "某某路", CategoryName: "未分类",
			LocationType: int64Ptr(1), POICategory: strPtr("MKPOICategoryPublicTransport")}, "🚉"},
		{"name keyword refines poi", models.VisitEvent{LocationName: "江苏机场", CategoryName: "未分类",
			LocationType: int64Ptr(1), POICategory: strPtr("MKPOICategoryPublicTransport")}, "🛫"},
		{"location type alone", models.VisitEvent{LocationName: "某某路", CategoryName: "未分类",
			LocationType: int64Ptr(1)}, "🛣️"},
		{"nothing known", models.VisitEvent{LocationName: "Cabin", CategoryName: "Travel"}, "📍"},
		{"poi only", models.VisitEvent{LocationName: "Corner Shop", LocationType: int64Ptr(0),
			POICategory: strPtr("MKPOICategoryCafe")}, "☕"},
		{"category", models.VisitEvent{LocationName: "Unknown Location", CategoryName: " Home "}, "🏠"},
		{"category beats poi", models.VisitEvent{LocationName: "示例社区A", CategoryName: "家",
			POICategory: strPtr("MKPOICategoryStore")}, "🏠"},
		{"keyword is a whole word", models.VisitEvent{LocationName: "Parking Lot B"}, "📍"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, visitMarker(tt.visit, true))
		})
	}
	assert.Equal(t, "[visit]", visitMarker(tests[0].visit, false))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes int64
		units   DurationUnits
		want    string
	}{
		{0, DurationCompact, "0m"},
		{20, DurationCompact, "20m"},
		{60, DurationCompact, "1h"},
		{80, DurationCompact, "1h20m"},
		{1500, DurationCompact, "1d1h"},
		{-5, DurationCompact, "0m"},
		{45, "", "45m"},
		{80, DurationCN, "1小时20分钟"},
		{2*24*60 + 5, DurationCN, "2天5分钟"},
		{0, DurationCN, "0分钟"},
		{80, DurationEN, "1 hr 20 min"},
		{1441, DurationEN, "1 day 1 min"},
		{2880, DurationEN, "2 days"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.minutes, tt.units), "%d %s", tt.minutes, tt.units)
	}
}

func TestParseDurationUnits(t *testing.T) {
	for raw, want := range map[string]DurationUnits{
		"compact": DurationCompact, "dhm": DurationCompact, " Short ": DurationCompact,
		"cn": DurationCN, "ZH": DurationCN, "chinese": DurationCN,
		"en": DurationEN, "english": DurationEN, "words": DurationEN,
	} {
		got, ok := ParseDurationUnits(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	got, ok := ParseDurationUnits("parsecs")
	assert.False(t, ok)
	assert.Equal(t, DurationCompact, got)
}

func complexSample() *models.TimelineResult {
	return &models.TimelineResult{
		QueryDate: day,
		Timezone:  "UTC",
		Events: []models.Event{
			models.VisitEvent{
				VisitID: 1, LocationName: "示例社区A", CategoryName: "家", LocationType: int64Ptr(0),
				Tags: []string{}, ArrivalAt: at(8, 0), DepartureAt: at(9, 0),
			},
			models.MovementEvent{
				MovementID: 9, TransportName: "机动车", TransportMode: models.TransportDrive,
				StartTime: at(9, 0), EndTime: at(9, 20), DurationMinutes: 20,
				FromLocationName: strPtr("示例社区A"), ToLocationName: strPtr("示例商场B"),
			},
			models.VisitEvent{
				VisitID: 2, LocationName: "示例商场B", CategoryName: "商场", LocationType: int64Ptr(0),
				POICategory: strPtr("MKPOICategoryStore"), Tags: []string{"购物"},
				ArrivalAt: at(9, 30), DepartureAt: at(10, 30),
			},
		},
	}
}

func TestRenderPrettyComplexVisit(t *testing.T) {
	v := models.VisitEvent{
		VisitID: 1, LocationName: "示例社区A", CategoryName: "家", LocationType: int64Ptr(0),
		Tags: []string{"休息"}, ArrivalAt: at(22, 7), DepartureAt: at(24, 7), IsCrossDay: true,
	}

	lines := formatVisitComplex(v, day, day.AddDate(0, 0, 1), PrettyOptions{Emoji: true, DurationUnits: DurationCN})
	assert.Equal(t, []string{
		"🏠 22:07 -> 02-08 00:07 (2小时) 🌙 cross-day",
		"   家 🏷️ 休息 | 示例社区A",
	}, lines)

	lines = formatVisitComplex(v, day, day.AddDate(0, 0, 1), PrettyOptions{})
	assert.Equal(t, "[visit] 22:07 -> 02-08 00:07 (2h) (cross-day)", lines[0])
	assert.Equal(t, "   家 tags: 休息 | 示例社区A", lines[1])
}

func TestRenderPrettyComplexMovementWraps(t *testing.T) {
	var group []models.MovementEvent
	for i, name := range []string{"步行", "地铁", "步行", "地铁", "步行"} {
		mode := models.TransportWalk
		if name == "地铁" {
			mode = models.TransportPublicTransit
		}
		start := at(19, 53).Add(time.Duration(i*10) * time.Minute)
		group = append(group, models.MovementEvent{
			MovementID: int64(100 + i), TransportName: name, TransportMode: mode,
			StartTime: start, EndTime: start.Add(10 * time.Minute), DurationMinutes: 10,
		})
	}

	lines := formatMovementGroupComplex(group, day, PrettyOptions{Emoji: true, DurationUnits: DurationCN, WrapWidth: DefaultWrapWidth})
	require.GreaterOrEqual(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[0], "   🚶 19:53 -> 20:43 (50分钟) 🚶 步行 (10分钟)"), lines[0])
	for _, line := range lines[1:] {
		assert.True(t, strings.HasPrefix(line, "   -> "), line)
		assert.False(t, strings.HasPrefix(line, "    "), line)
	}
}

func TestRenderPrettyComplexKeepsMovementsUnderVisits(t *testing.T) {
	out := RenderPretty(complexSample(), PrettyOptions{Complex: true})
	assert.Equal(t, strings.Join([]string{
		"Timeline 2026-02-07 (UTC)",
		strings.Repeat("─", 72),
		"[visit] 08:00 -> 09:00 (1h)",
		"   家 | 示例社区A",
		"   [movement] 09:00 -> 09:20 (20m) 机动车 (20m)",
		"",
		"[visit] 09:30 -> 10:30 (1h)",
		"   商场 tags: 购物 | 示例商场B",
	}, "\n"), out)
}

func TestRenderPrettyTree(t *testing.T) {
	out := RenderPretty(complexSample(), PrettyOptions{Emoji: true, Complex: true, Tree: true, DurationUnits: DurationCN})
	lines := strings.Split(out, "\n")
	assert.Equal(t, []string{
		"├─ 🏠 08:00 -> 09:00 (1小时)",
		"│     家 | 示例社区A",
		"├┈ 🚗 09:00 -> 09:20 (20分钟) 🚗 机动车 (20分钟)",
		"│",
		"└─ 🛍️ 09:30 -> 10:30 (1小时)",
		"      商场 🏷️ 购物 | 示例商场B",
	}, lines[2:])
}

func TestRenderPrettyTreeSimpleMode(t *testing.T) {
	out := RenderPretty(sampleTimeline(), PrettyOptions{Tree: true})
	assert.Equal(t, strings.Join([]string{
		"Timeline 2026-02-07 (UTC)",
		strings.Repeat("─", 72),
		"├─ [visit] 2026-02-06 22:00 -> 2026-02-07 08:00 (cross-day)",
		"│     Location: Example Home A",
		"│     Category: home",
		"│",
		"├┈ [movement] 2026-02-07 08:00 -> 2026-02-07 08:20 (20m)",
		"│     Route: Example Home A -> Example Mall B",
		"│     Transport: Drive (20m)",
		"│",
		"└─ [visit] 2026-02-07 08:30 -> 2026-02-07 10:30",
		"      Location: Example Mall B",
		"      Category: Shopping",
		"      Tags: Errands, R&D",
	}, "\n"), out)
}

func TestRenderPrettyDurationUnits(t *testing.T) {
	out := RenderPretty(sampleTimeline(), PrettyOptions{DurationUnits: DurationEN})
	assert.Contains(t, out, "[movement] 2026-02-07 08:00 -> 2026-02-07 08:20 (20 min)")
	assert.Contains(t, out, "   Transport: Drive (20 min)")
}
