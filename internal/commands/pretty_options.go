package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jengzang/rond-timeline/internal/formatter"
	"github.com/jengzang/rond-timeline/internal/models"
)

// Environment switches for the pretty layout. Lower case names are checked
// first; an empty value counts as unset.
var (
	complexEnvKeys       = []string{"complex", "COMPLEX"}
	treeEnvKeys          = []string{"tree", "TIMELINE_TREE", "TREE"}
	durationUnitsEnvKeys = []string{"duration_units", "DURATION_UNITS"}
)

// resolvePrettyOptions merges the layout flags with the environment. A flag
// given on the command line always wins.
func resolvePrettyOptions(cmd *cobra.Command, opts *timelineOptions) (formatter.PrettyOptions, error) {
	flags := cmd.Flags()
	pretty := formatter.PrettyOptions{Emoji: !opts.noEmoji}

	switch {
	case flags.Changed("complex"):
		pretty.Complex = opts.complex
	case flags.Changed("simple"):
		pretty.Complex = !opts.simple
	default:
		pretty.Complex = envEnabled(complexEnvKeys...)
	}

	if flags.Changed("tree") {
		pretty.Tree = opts.tree
	} else {
		pretty.Tree = envEnabled(treeEnvKeys...)
	}

	if flags.Changed("duration-units") {
		units, ok := formatter.ParseDurationUnits(opts.durationUnits)
		if !ok {
			return pretty, &models.ValidationError{
				Field: "duration-units",
				Value: opts.durationUnits,
				Msg:   fmt.Sprintf("Invalid duration units: %s. Use compact, cn or en.", opts.durationUnits),
			}
		}
		pretty.DurationUnits = units
	} else {
		// unknown names in the environment fall back to compact
		raw, _ := lookupEnv(durationUnitsEnvKeys...)
		pretty.DurationUnits, _ = formatter.ParseDurationUnits(raw)
	}

	return pretty, nil
}

func lookupEnv(keys ...string) (string, bool) {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v, true
		}
	}
	return "", false
}

func envEnabled(keys ...string) bool {
	raw, ok := lookupEnv(keys...)
	if !ok {
		return false
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
