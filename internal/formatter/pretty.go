package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/jengzang/rond-timeline/internal/models"
)

const (
	ruleWidth          = 72
	DefaultWrapWidth   = 48
	timestampLayout    = "2006-01-02 15:04"
	clockLayout        = "15:04"
	otherDayLayout     = "01-02 15:04"
	detailIndent       = "   "
	transportPrefix    = "   Transport: "
	noTransportSummary = "none"
)

// PrettyOptions controls the human readable view
type PrettyOptions struct {
	Emoji bool
	// Complex prints each visit on two lines and nests movements under the
	// visit they leave from.
	Complex bool
	// Tree draws branch connectors down the left margin.
	Tree          bool
	DurationUnits DurationUnits // DurationCompact when empty
	WrapWidth     int           // display columns for the transport chain, DefaultWrapWidth when zero
}

// block is the rendering of one visit or one group of consecutive
// movements. The first line is the headline, the rest are indented details.
type block struct {
	kind  models.EventKind
	lines []string
}

// RenderPretty renders the timeline for a terminal
func RenderPretty(result *models.TimelineResult, opts PrettyOptions) string {
	if opts.WrapWidth <= 0 {
		opts.WrapWidth = DefaultWrapWidth
	}

	header := fmt.Sprintf("Timeline %s (%s)", result.QueryDate.Format(time.DateOnly), result.Timezone)
	if opts.Emoji {
		header = "🗓️ " + header
	}
	lines := []string{header, strings.Repeat("─", ruleWidth)}

	if len(result.Events) == 0 {
		return strings.Join(append(lines, "No data"), "\n")
	}

	blocks := buildBlocks(result, opts)
	separator := ""
	if opts.Tree {
		separator = "│"
	}
	for i, b := range blocks {
		// complex mode keeps a movement attached to the visit above it
		if i > 0 && (!opts.Complex || b.kind == models.EventKindVisit) {
			lines = append(lines, separator)
		}
		if opts.Tree {
			lines = append(lines, treeLines(b, i == len(blocks)-1)...)
		} else {
			lines = append(lines, b.lines...)
		}
	}
	return strings.Join(lines, "\n")
}

func buildBlocks(result *models.TimelineResult, opts PrettyOptions) []block {
	dayStart, dayEnd := result.DayStart(), result.DayEnd()
	events := result.Events

	var blocks []block
	for i := 0; i < len(events); {
		switch e := events[i].(type) {
		case models.VisitEvent:
			var lines []string
			if opts.Complex {
				lines = formatVisitComplex(e, dayStart, dayEnd, opts)
			} else {
				lines = formatVisit(e, dayStart, dayEnd, opts)
			}
			blocks = append(blocks, block{kind: models.EventKindVisit, lines: lines})
			i++
		case models.MovementEvent:
			group := []models.MovementEvent{e}
			i++
			for i < len(events) {
				next, ok := events[i].(models.MovementEvent)
				if !ok {
					break
				}
				group = append(group, next)
				i++
			}
			var nextVisit *models.VisitEvent
			if i < len(events) {
				if v, ok := events[i].(models.VisitEvent); ok {
					nextVisit = &v
				}
			}
			var lines []string
			if opts.Complex {
				lines = formatMovementGroupComplex(group, dayStart, opts)
			} else {
				lines = formatMovementGroup(group, nextVisit, opts)
			}
			blocks = append(blocks, block{kind: models.EventKindMovement, lines: lines})
		default:
			i++
		}
	}
	return blocks
}

// treeLines hangs a block off the left margin. Detail lines keep their own
// indent behind the "│" rail.
func treeLines(b block, last bool) []string {
	branch, rail := "├", "│  "
	if last {
		branch, rail = "└", "   "
	}
	twig := "─ "
	if b.kind == models.EventKindMovement {
		twig = "┈ "
	}

	out := make([]string, 0, len(b.lines))
	for i, line := range b.lines {
		if i == 0 {
			out = append(out, branch+twig+strings.TrimPrefix(line, detailIndent))
			continue
		}
		out = append(out, rail+line)
	}
	return out
}

// IsFullDay reports whether a visit covers the whole [dayStart, dayEnd) window
func IsFullDay(v models.VisitEvent, dayStart, dayEnd time.Time) bool {
	return !v.ArrivalAt.After(dayStart) && !v.DepartureAt.Before(dayEnd)
}

func visitFlags(v models.VisitEvent, dayStart, dayEnd time.Time, emoji bool) string {
	if IsFullDay(v, dayStart, dayEnd) {
		return pick(emoji, " ☀️ full day", " (full day)")
	}
	if v.IsCrossDay {
		return pick(emoji, " 🌙 cross-day", " (cross-day)")
	}
	return ""
}

func formatVisit(v models.VisitEvent, dayStart, dayEnd time.Time, opts PrettyOptions) []string {
	end := v.DepartureAt.Format(timestampLayout)
	if v.IsOngoing {
		end = "ongoing"
	}

	lines := []string{
		fmt.Sprintf("%s %s -> %s%s", visitMarker(v, opts.Emoji), v.ArrivalAt.Format(timestampLayout), end,
			visitFlags(v, dayStart, dayEnd, opts.Emoji)),
		detailIndent + "Location: " + v.LocationName,
		detailIndent + "Category: " + v.CategoryName,
	}
	if v.IsOngoing {
		lines = append(lines, detailIndent+"Status: staying")
	}
	if len(v.Tags) > 0 {
		lines = append(lines, detailIndent+"Tags: "+strings.Join(v.Tags, ", "))
	}
	return lines
}

// formatVisitComplex prints "icon HH:MM -> HH:MM (duration)" followed by
// "category tags | location".
func formatVisitComplex(v models.VisitEvent, dayStart, dayEnd time.Time, opts PrettyOptions) []string {
	end := clock(v.DepartureAt, dayStart)
	if v.IsOngoing {
		end = "ongoing"
	}

	detail := v.CategoryName
	if len(v.Tags) > 0 {
		detail += pick(opts.Emoji, " 🏷️ ", " tags: ") + strings.Join(v.Tags, ", ")
	}
	detail += " | " + v.LocationName

	return []string{
		fmt.Sprintf("%s %s -> %s (%s)%s", visitMarker(v, opts.Emoji), clock(v.ArrivalAt, dayStart), end,
			FormatDuration(minutesBetween(v.ArrivalAt, v.DepartureAt), opts.DurationUnits),
			visitFlags(v, dayStart, dayEnd, opts.Emoji)),
		detailIndent + detail,
	}
}

func formatMovementGroup(group []models.MovementEvent, nextVisit *models.VisitEvent, opts PrettyOptions) []string {
	dominant := dominantMovement(group)
	start := group[0].StartTime
	end := group[len(group)-1].EndTime

	from := models.UnknownLocationName
	if group[0].FromLocationName != nil {
		from = *group[0].FromLocationName
	}
	to := models.UnknownLocationName
	switch {
	case group[len(group)-1].ToLocationName != nil:
		to = *group[len(group)-1].ToLocationName
	case nextVisit != nil && nextVisit.LocationName != "":
		to = nextVisit.LocationName
	}

	lines := []string{
		fmt.Sprintf("%s %s -> %s (%s)", movementMarker(dominant, opts.Emoji),
			start.Format(timestampLayout), end.Format(timestampLayout),
			FormatDuration(minutesBetween(start, end), opts.DurationUnits)),
		fmt.Sprintf("%sRoute: %s -> %s", detailIndent, from, to),
	}

	wrapped := wrapParts(movementParts(group, opts), opts.WrapWidth)
	if len(wrapped) == 0 {
		return append(lines, transportPrefix+noTransportSummary)
	}
	lines = append(lines, transportPrefix+wrapped[0])
	indent := strings.Repeat(" ", runewidth.StringWidth(transportPrefix))
	for _, line := range wrapped[1:] {
		lines = append(lines, indent+line)
	}
	return lines
}

// formatMovementGroupComplex prints the group indented under the previous
// visit, with the transport chain following the time range.
func formatMovementGroupComplex(group []models.MovementEvent, dayStart time.Time, opts PrettyOptions) []string {
	start := group[0].StartTime
	end := group[len(group)-1].EndTime
	head := fmt.Sprintf("%s %s -> %s (%s)", movementMarker(dominantMovement(group), opts.Emoji),
		clock(start, dayStart), clock(end, dayStart),
		FormatDuration(minutesBetween(start, end), opts.DurationUnits))

	wrapped := wrapParts(movementParts(group, opts), opts.WrapWidth)
	if len(wrapped) == 0 {
		wrapped = []string{noTransportSummary}
	}
	lines := []string{detailIndent + head + " " + wrapped[0]}
	for _, line := range wrapped[1:] {
		lines = append(lines, detailIndent+line)
	}
	return lines
}

// dominantMovement is the longest movement of the group, the first on ties
func dominantMovement(group []models.MovementEvent) models.MovementEvent {
	dominant := group[0]
	for _, m := range group[1:] {
		if m.DurationMinutes > dominant.DurationMinutes {
			dominant = m
		}
	}
	return dominant
}

func movementParts(group []models.MovementEvent, opts PrettyOptions) []string {
	parts := make([]string, 0, len(group))
	for _, m := range group {
		part := fmt.Sprintf("%s (%s)", m.TransportName, FormatDuration(m.DurationMinutes, opts.DurationUnits))
		if opts.Emoji {
			part = movementMarker(m, true) + " " + part
		}
		parts = append(parts, part)
	}
	return parts
}

// minutesBetween counts whole minutes between minute-floored endpoints
func minutesBetween(start, end time.Time) int64 {
	total := end.Truncate(time.Minute).Sub(start.Truncate(time.Minute))
	if total < 0 {
		return 0
	}
	return int64(total / time.Minute)
}

// clock drops the date for times on the requested day
func clock(t, dayStart time.Time) string {
	t = t.In(dayStart.Location())
	if t.Format(time.DateOnly) == dayStart.Format(time.DateOnly) {
		return t.Format(clockLayout)
	}
	return t.Format(otherDayLayout)
}

// wrapParts joins parts with " -> ", breaking lines at maxWidth display
// columns. A single part wider than maxWidth gets a line of its own.
func wrapParts(parts []string, maxWidth int) []string {
	var lines []string
	current := ""
	for _, part := range parts {
		candidate := part
		if current != "" {
			candidate = current + " -> " + part
		}
		if current == "" || runewidth.StringWidth(candidate) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = "-> " + part
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
