package commands

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jengzang/rond-timeline/internal/config"
)

// globalOptions are shared by every subcommand
type globalOptions struct {
	configFile string
	envFile    string
	dbPath     string
	timezone   string
	logLevel   string

	now    func() time.Time
	stderr io.Writer
}

// NewRootCmd builds the rond command tree
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{now: time.Now, stderr: os.Stderr}
	return newRootCmd(opts)
}

func newRootCmd(opts *globalOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rond",
		Short: "Day timelines from a Rond location history snapshot",
		Long: `rond reads a local snapshot of the Rond app's Core Data store and prints
the visits and movements of a calendar day.

Examples:
  rond timeline                                   # Today, in the system timezone
  rond timeline --date yesterday --output json    # Yesterday as JSON
  rond timeline --date 2026-01-29 --timezone UTC  # A specific day and zone
  rond serve --addr :8080                         # HTTP API on port 8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Data source
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db-path", "",
		"Path to the Rond sqlite database file (env ROND_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&opts.timezone, "timezone", "",
		"IANA timezone, e.g. Asia/Shanghai or UTC (default: system zone)")

	// Configuration
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"YAML config file (env ROND_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env",
		"dotenv file loaded before reading the environment")

	// System and debugging
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newTimelineCmd(opts), newServeCmd(opts))
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *globalOptions) overrides() config.Overrides {
	return config.Overrides{
		ConfigFile: o.configFile,
		EnvFile:    o.envFile,
		DBPath:     o.dbPath,
		Timezone:   o.timezone,
		LogLevel:   o.logLevel,
	}
}

// newLogger builds a console logger on stderr, keeping stdout for output
func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encoder := zap.NewProductionEncoderConfig()
	encoder.TimeKey = "timestamp"
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder.EncodeCaller = zapcore.ShortCallerEncoder
	encoder.EncodeDuration = zapcore.StringDurationEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoder), zapcore.AddSync(w), lvl)
	return zap.New(core, zap.AddCaller()), nil
}
