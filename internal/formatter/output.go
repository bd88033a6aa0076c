package formatter

import (
	"fmt"
	"strings"

	"github.com/jengzang/rond-timeline/internal/models"
)

// OutputMode selects how a timeline is printed
type OutputMode string

const (
	OutputPretty OutputMode = "pretty"
	OutputJSON   OutputMode = "json"
	OutputBoth   OutputMode = "both"
)

// ParseOutputMode validates a user supplied output mode
func ParseOutputMode(raw string) (OutputMode, error) {
	switch mode := OutputMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case OutputPretty, OutputJSON, OutputBoth:
		return mode, nil
	}
	return "", &models.ValidationError{
		Field: "output",
		Value: raw,
		Msg:   fmt.Sprintf("Invalid output mode: %s. Use pretty, json or both.", raw),
	}
}

// Render produces the full text for mode. "both" prints the pretty view, a
// blank line, then the JSON document.
func Render(result *models.TimelineResult, mode OutputMode, opts PrettyOptions) (string, error) {
	switch mode {
	case OutputPretty:
		return RenderPretty(result, opts), nil
	case OutputJSON:
		return RenderJSON(result)
	case OutputBoth:
		doc, err := RenderJSON(result)
		if err != nil {
			return "", err
		}
		return RenderPretty(result, opts) + "\n\n" + doc, nil
	}
	_, err := ParseOutputMode(string(mode))
	return "", err
}
