// Command lockit is the maintenance CLI for the localization storage
// core: initialize a deployment, inspect it, run pretranslation and QA,
// and garbage-collect the trash.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lockitd/lockit/internal/configfile"
	"github.com/lockitd/lockit/internal/debug"
	"github.com/lockitd/lockit/internal/events"
	"github.com/lockitd/lockit/internal/ops"
	"github.com/lockitd/lockit/internal/storage/factory"
	"github.com/lockitd/lockit/internal/telemetry"
)

var (
	dataDir     string
	userID      int64
	adminMode   bool
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool

	logger zerolog.Logger

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "lockit",
	Short: "Localization storage maintenance tool",
	Long: `lockit manages a localization storage deployment: the online
PostgreSQL (or embedded) backend plus the offline mirror.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)
		setupLogger()
		if err := telemetry.Init(cmd.Context(), "lockit", Version); err != nil {
			// Telemetry failures must not block maintenance work.
			logger.Warn().Err(err).Msg("telemetry init failed")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		telemetry.Shutdown(ctx)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "dir", "", "data directory (default: nearest .lockit, or $LOCKIT_DIR)")
	pf.Int64Var(&userID, "user", 0, "acting user id for audited operations")
	pf.BoolVar(&adminMode, "admin", false, "act with admin privileges")
	pf.BoolVar(&jsonOutput, "json", false, "machine-readable output")
	pf.BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output")
	pf.BoolVarP(&quietFlag, "quiet", "q", false, "suppress non-essential output")

	viper.SetEnvPrefix("LOCKIT")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("dir", pf.Lookup("dir"))
	_ = viper.BindPFlag("user", pf.Lookup("user"))
}

// setupLogger builds the zerolog logger: console on stderr, plus a
// rotated file when the config asks for one.
func setupLogger() {
	level := zerolog.InfoLevel
	if debug.Enabled() {
		level = zerolog.DebugLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if cfg, _ := loadConfig(); cfg != nil && cfg.LogFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     30, // days
		}
		out = zerolog.MultiLevelWriter(out, rotated)
	}
	logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// resolveDataDir finds the deployment directory: --dir flag, LOCKIT_DIR
// env, then the nearest .lockit walking up from the working directory.
func resolveDataDir() (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	if env := viper.GetString("dir"); env != "" {
		return env, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, configfile.DefaultDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s directory found; run 'lockit init' first", configfile.DefaultDirName)
		}
		dir = parent
	}
}

// loadConfig reads the deployment config, nil when not initialized.
func loadConfig() (*configfile.Config, error) {
	dir, err := resolveDataDir()
	if err != nil {
		return nil, err
	}
	return configfile.Load(dir)
}

// openFactory loads the config and connects the primary backend.
func openFactory(ctx context.Context) (*factory.Factory, *configfile.Config, error) {
	dir, err := resolveDataDir()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := configfile.Load(dir)
	if err != nil {
		return nil, nil, err
	}
	if cfg == nil {
		return nil, nil, fmt.Errorf("%s is not initialized; run 'lockit init'", dir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	f, err := factory.Open(ctx, factory.Config{
		Backend:      cfg.Backend,
		PostgresDSN:  cfg.PostgresDSN,
		ServerDBPath: cfg.ServerDBPath(dir),
		OfflinePath:  cfg.OfflineDBPath(dir),
		TokenPrefix:  cfg.TokenPrefix,
	})
	if err != nil {
		return nil, nil, err
	}
	return f, cfg, nil
}

// parseID parses a positional ID argument. Negative values are valid:
// offline entities carry negative IDs.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// openCoordinator binds an online session and the orchestrators over it.
func openCoordinator(ctx context.Context) (*ops.Coordinator, *factory.Factory, *configfile.Config, error) {
	f, cfg, err := openFactory(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	sess, err := f.Session(ctx, "")
	if err != nil {
		_ = f.Close()
		return nil, nil, nil, err
	}
	coord := ops.New(sess, events.NewLogSink(logger), logger)
	return coord, f, cfg, nil
}

func main() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	if err := rootCmd.ExecuteContext(rootCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
