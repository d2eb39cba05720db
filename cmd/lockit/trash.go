package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lockitd/lockit/internal/configfile"
	"github.com/lockitd/lockit/internal/debug"
	"github.com/lockitd/lockit/internal/ops"
	"github.com/lockitd/lockit/internal/storage/factory"
	"github.com/lockitd/lockit/internal/timeparsing"
)

var (
	gcOlderThan string
	gcDaemon    bool
	gcInterval  time.Duration
)

var trashCmd = &cobra.Command{
	Use:   "trash",
	Short: "Inspect and clean the soft-delete trash",
}

var trashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the acting user's trash",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, _, err := openFactory(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		entries, err := f.Primary().Trash().GetForUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			debug.PrintlnNormal("Trash is empty.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%6d  %-12s  %-30s  deleted %s  expires %s\n",
				e.ID, e.ItemType, e.ItemName,
				e.DeletedAt.Format("2006-01-02"), e.ExpiresAt.Format("2006-01-02"))
		}
		return nil
	},
}

var trashRestoreCmd = &cobra.Command{
	Use:   "restore <trash-id>",
	Short: "Restore a trashed item with its original IDs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trashID, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		coord, f, _, err := openCoordinator(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		if err := coord.Restore(ctx, trashID, userID, adminMode); err != nil {
			return err
		}
		debug.PrintNormal("Restored trash entry %d\n", trashID)
		return nil
	},
}

var trashGCCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove expired trash entries",
	Long: `Removes trash past its retention window. --older-than additionally
purges the acting user's entries deleted before the given time
("30d ago", "2025-01-01", "-90d"). --daemon keeps sweeping on an
interval, reloading the config when it changes on disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		coord, f, cfg, err := openCoordinator(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		if gcDaemon {
			return runGCDaemon(ctx, coord, cfg)
		}

		removed, err := coord.CleanupTrash(ctx)
		if err != nil {
			return err
		}
		debug.PrintNormal("Removed %d expired entries\n", removed)

		if gcOlderThan != "" {
			purged, err := purgeOlderThan(ctx, f, gcOlderThan)
			if err != nil {
				return err
			}
			debug.PrintNormal("Purged %d entries older than %s\n", purged, gcOlderThan)
		}
		return nil
	},
}

// purgeOlderThan permanently deletes the acting user's live trash whose
// deletion predates the cutoff expression.
func purgeOlderThan(ctx context.Context, f *factory.Factory, expr string) (int, error) {
	cutoff, err := timeparsing.ParseRelativeTime(expr, time.Now())
	if err != nil {
		return 0, fmt.Errorf("--older-than: %w", err)
	}

	trash := f.Primary().Trash()
	entries, err := trash.GetForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, e := range entries {
		if !e.DeletedAt.Before(cutoff) {
			continue
		}
		ok, err := trash.PermanentDelete(ctx, e.ID, userID, adminMode)
		if err != nil {
			return purged, err
		}
		if ok {
			purged++
		}
	}
	return purged, nil
}

// runGCDaemon sweeps on the configured interval and watches the config
// file for retention/interval changes.
func runGCDaemon(ctx context.Context, coord *ops.Coordinator, cfg *configfile.Config) error {
	dir, err := resolveDataDir()
	if err != nil {
		return err
	}

	interval := gcInterval
	if interval == 0 {
		interval = cfg.GetGCInterval()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	// Watch the directory, not the file: editors replace files, which
	// drops a direct file watch.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	logger.Info().Dur("interval", interval).Msg("trash gc daemon started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep := func() {
		removed, err := coord.CleanupTrash(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("trash sweep failed")
			return
		}
		if removed > 0 {
			logger.Info().Int("removed", removed).Msg("trash sweep")
		}
	}
	sweep()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("trash gc daemon stopping")
			return nil
		case <-ticker.C:
			sweep()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if name != configfile.ConfigFileName && name != configfile.YAMLFileName {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			fresh, err := configfile.Load(dir)
			if err != nil || fresh == nil {
				logger.Warn().Err(err).Msg("config reload failed, keeping current settings")
				continue
			}
			if next := fresh.GetGCInterval(); gcInterval == 0 && next != interval {
				interval = next
				ticker.Reset(interval)
				logger.Info().Dur("interval", interval).Msg("gc interval reloaded")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func init() {
	trashGCCmd.Flags().StringVar(&gcOlderThan, "older-than", "", "also purge entries deleted before this time")
	trashGCCmd.Flags().BoolVar(&gcDaemon, "daemon", false, "keep sweeping on an interval")
	trashGCCmd.Flags().DurationVar(&gcInterval, "interval", 0, "daemon sweep interval (default from config)")
	trashCmd.AddCommand(trashListCmd, trashRestoreCmd, trashGCCmd)
	rootCmd.AddCommand(trashCmd)
}
