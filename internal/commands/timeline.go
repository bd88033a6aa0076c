package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/jengzang/rond-timeline/internal/config"
	"github.com/jengzang/rond-timeline/internal/formatter"
	"github.com/jengzang/rond-timeline/internal/service"
)

type timelineOptions struct {
	date          string
	output        string
	noEmoji       bool
	complex       bool
	simple        bool
	tree          bool
	durationUnits string
}

func newTimelineCmd(global *globalOptions) *cobra.Command {
	opts := &timelineOptions{}

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Print the timeline of a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimeline(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.date, "date", "today",
		"Date expression: today | yesterday | YYYY-MM-DD | MM-DD")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "pretty",
		"Output format (pretty, json, both)")
	cmd.Flags().BoolVar(&opts.noEmoji, "no-emoji", false,
		"Disable emoji in pretty output")

	// Pretty layout, each falls back to the environment when not given
	cmd.Flags().BoolVar(&opts.complex, "complex", false,
		"Two-line visits with movements nested under them (env complex, COMPLEX)")
	cmd.Flags().BoolVar(&opts.simple, "simple", false,
		"Force the simple layout")
	cmd.MarkFlagsMutuallyExclusive("complex", "simple")
	cmd.Flags().BoolVar(&opts.tree, "tree", false,
		"Draw tree connectors (env tree, TIMELINE_TREE, TREE)")
	cmd.Flags().StringVar(&opts.durationUnits, "duration-units", "",
		"Duration style: compact, cn or en (env duration_units, DURATION_UNITS)")

	return cmd
}

func runTimeline(cmd *cobra.Command, global *globalOptions, opts *timelineOptions) error {
	mode, err := formatter.ParseOutputMode(opts.output)
	if err != nil {
		return err
	}

	cfg, err := config.Load(global.overrides())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, global.stderr)
	if err != nil {
		return err
	}
	defer logger.Sync()

	queryDate, err := service.ParseQueryDate(opts.date, cfg.Location, global.now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	pretty, err := resolvePrettyOptions(cmd, opts)
	if err != nil {
		return err
	}
	pretty.WrapWidth = wrapWidth(out)

	svc, err := service.NewTimelineServiceForStore(cfg.StoreConfig(), service.WithClock(global.now))
	if err != nil {
		return err
	}

	logger.Debug("building timeline",
		zap.String("db_path", cfg.DBPath),
		zap.String("date", queryDate.Format("2006-01-02")),
		zap.String("timezone", cfg.TimezoneName),
	)

	result, err := svc.BuildTimeline(cmd.Context(), queryDate, cfg.Location, cfg.TimezoneName)
	if err != nil {
		return err
	}
	logger.Debug("timeline built", zap.Int("events", len(result.Events)))

	text, err := formatter.Render(result, mode, pretty)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, text)
	return err
}

// wrapWidth sizes the transport chain to the terminal, if there is one
func wrapWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return formatter.DefaultWrapWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < 60 {
		return formatter.DefaultWrapWidth
	}

	// leave room for the "   Transport: " prefix
	width -= 16
	if width > 96 {
		width = 96
	}
	return width
}
