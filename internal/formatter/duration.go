package formatter

import (
	"fmt"
	"strings"
)

// DurationUnits selects how minute counts are spelled in pretty output
type DurationUnits string

const (
	DurationCompact DurationUnits = "compact" // 1h20m
	DurationCN      DurationUnits = "cn"      // 1小时20分钟
	DurationEN      DurationUnits = "en"      // 1 hr 20 min
)

// ParseDurationUnits maps a style name or one of its aliases to a style.
// Unknown names report false and fall back to DurationCompact.
func ParseDurationUnits(raw string) (DurationUnits, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "compact", "short", "dhm":
		return DurationCompact, true
	case "cn", "zh", "chinese":
		return DurationCN, true
	case "en", "english", "words":
		return DurationEN, true
	}
	return DurationCompact, false
}

var durationUnitNames = []struct {
	minutes int64
	compact string
	cn      string
	en      string
}{
	{24 * 60, "d", "天", "day"},
	{60, "h", "小时", "hr"},
	{1, "m", "分钟", "min"},
}

// FormatDuration spells a minute count in days, hours and minutes, skipping
// zero components. Negative counts render as zero.
func FormatDuration(minutes int64, units DurationUnits) string {
	if minutes < 0 {
		minutes = 0
	}

	var parts []string
	rest := minutes
	for i, u := range durationUnitNames {
		n := rest / u.minutes
		rest %= u.minutes
		last := i == len(durationUnitNames)-1
		if n == 0 && !(last && len(parts) == 0) {
			continue
		}

		switch units {
		case DurationCN:
			parts = append(parts, fmt.Sprintf("%d%s", n, u.cn))
		case DurationEN:
			label := u.en
			if label == "day" && n != 1 {
				label = "days"
			}
			parts = append(parts, fmt.Sprintf("%d %s", n, label))
		default:
			parts = append(parts, fmt.Sprintf("%d%s", n, u.compact))
		}
	}

	if units == DurationEN {
		return strings.Join(parts, " ")
	}
	return strings.Join(parts, "")
}
