// Command heartweek drives the weekly life simulation from the terminal.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/heartweek/internal/config"
)

// Flags shared by every subcommand.
var (
	configPath   string
	dbPath       string
	tuningPath   string
	commandsPath string
	calendarPath string
	seed         uint64
	verbose      bool

	runInterval time.Duration
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "heartweek",
		Short:             "Weekly school life simulation",
		SilenceUsage:      true,
		PersistentPreRunE: prepare,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultConfigPath(), "path to config.toml")
	pf.StringVar(&dbPath, "db", config.DefaultDBPath(), "save database path")
	pf.StringVar(&tuningPath, "tuning", "", "tuning.yaml path (default: built-in)")
	pf.StringVar(&commandsPath, "commands", "", "commands.json path (default: built-in)")
	pf.StringVar(&calendarPath, "calendar", "", "calendar.json path (default: built-in)")
	pf.Uint64Var(&seed, "seed", 0, "random seed (0 picks one)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		newNewCmd(),
		newStatusCmd(),
		newAdvanceCmd(),
		newRunCmd(),
		newSelectCmd(),
		newActivitiesCmd(),
		newInteractCmd(),
		newBookCmd(),
		newEventsCmd(),
		newExportCmd(),
		newImportCmd(),
	)
	return rootCmd
}

// prepare merges the config file under any explicit flags and installs the
// logger.
func prepare(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "db", &dbPath, fileCfg.Paths.DB)
	applyStringConfig(cmd, "tuning", &tuningPath, fileCfg.Paths.Tuning)
	applyStringConfig(cmd, "commands", &commandsPath, fileCfg.Paths.Commands)
	applyStringConfig(cmd, "calendar", &calendarPath, fileCfg.Paths.Calendar)
	applyUint64Config(cmd, "seed", &seed, fileCfg.Run.Seed)
	applyBoolConfig(cmd, "verbose", &verbose, fileCfg.Run.Verbose)
	if fileCfg.Run.Interval != nil && cmd.Flags().Lookup("interval") != nil {
		applyDurationConfig(cmd, "interval", &runInterval, &fileCfg.Run.Interval.Duration)
	}

	setupLogging(verbose)
	return nil
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyUint64Config(cmd *cobra.Command, name string, target, value *uint64) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target, value *time.Duration) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}
