package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/rond-timeline/internal/models"
)

var (
	isoDatePattern  = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	monthDayPattern = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})$`)
)

// ParseQueryDate resolves a date expression to midnight of that day in loc.
// Accepted: "today", "yesterday", "YYYY-MM-DD" (unpadded month and day are
// fine) and "MM-DD" for the current year.
func ParseQueryDate(expr string, loc *time.Location, now time.Time) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	normalized := strings.ToLower(strings.TrimSpace(expr))
	ty, tm, td := now.In(loc).Date()
	today := time.Date(ty, tm, td, 0, 0, 0, 0, loc)

	switch normalized {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	if m := isoDatePattern.FindStringSubmatch(normalized); m != nil {
		if date, ok := buildDate(m[1], m[2], m[3], loc); ok {
			return date, nil
		}
	} else if m := monthDayPattern.FindStringSubmatch(normalized); m != nil {
		if date, ok := buildDate(strconv.Itoa(ty), m[1], m[2], loc); ok {
			return date, nil
		}
	}

	return time.Time{}, &models.ValidationError{
		Field: "date",
		Value: expr,
		Msg:   fmt.Sprintf("Invalid date expression: %s. Use today, yesterday or YYYY-MM-DD.", expr),
	}
}

// buildDate rejects dates that time.Date would normalize, such as 02-30
func buildDate(year, month, day string, loc *time.Location) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 {
		return time.Time{}, false
	}
	date := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	if date.Day() != d || int(date.Month()) != m {
		return time.Time{}, false
	}
	return date, true
}
