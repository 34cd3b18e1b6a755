package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/swdee/go-pnideval/config"
	"github.com/swdee/go-pnideval/region"
)

var (
	cfgFile     string
	logLevel    string
	classesFile string
	noColor     bool
)

var rootCmd = &cobra.Command{
	Use:   "pnideval",
	Short: "Evaluate P&ID symbol and text detection results",
	Long: `pnideval compares detection results of piping and instrumentation
diagrams against ground truth annotations and reports precision, recall,
text recognition ratios and COCO style average precision.  It can also
consolidate fragmented text detections into whole text regions.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func Execute() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&classesFile, "classes", "", "Class list file with id|name lines")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored log output")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// setupLogging installs the console log handler as the default logger
func setupLogging(cmd *cobra.Command, args []string) error {

	var level slog.Level

	if err := level.UnmarshalText([]byte(strings.ToUpper(logLevel))); err != nil {
		return fmt.Errorf("invalid log level %q", logLevel)
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	})))

	return nil
}

// loadConfig reads the configuration and applies the --classes flag
func loadConfig() (*config.Config, error) {

	cfg, err := config.Load(cfgFile)

	if err != nil {
		return nil, err
	}

	if classesFile != "" {
		cfg.Classes.File = classesFile
	}

	return cfg, nil
}

// loadClasses validates the configuration and loads its class map
func loadClasses(cfg *config.Config) (*region.ClassMap, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	classes, err := cfg.LoadClasses()

	if err != nil {
		return nil, fmt.Errorf("error loading classes: %w", err)
	}

	slog.Debug("classes loaded", "file", cfg.Classes.File, "subset", cfg.Classes.Subset, "count", classes.Len())

	return classes, nil
}
