package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockitd/lockit/internal/debug"
	"github.com/lockitd/lockit/internal/types"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Inspect the offline mirror's pending changes",
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show journaled edits awaiting upload",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, _, err := openFactory(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		offline, err := f.Offline(ctx)
		if err != nil {
			return err
		}
		journal := offline.Journal()

		changes, err := journal.PendingChanges(ctx)
		if err != nil {
			return err
		}
		subs, err := journal.Subscriptions(ctx)
		if err != nil {
			return err
		}

		if jsonOutput {
			out := map[string]any{
				"pending_changes": changes,
				"subscriptions":   subs,
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Subscriptions:   %d\n", len(subs))
		fmt.Printf("Pending changes: %d\n", len(changes))
		for _, ch := range changes {
			fmt.Printf("%6d  %-5s %-8d %-8s %q -> %q\n",
				ch.ID, ch.EntityType, ch.EntityID, ch.Field, ch.OldValue, ch.NewValue)
		}
		return nil
	},
}

var syncDiscardCmd = &cobra.Command{
	Use:   "discard <change-id>...",
	Short: "Drop journaled edits without uploading them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]int64, 0, len(args))
		for _, a := range args {
			id, err := parseID(a)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		ctx := cmd.Context()
		f, _, err := openFactory(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		offline, err := f.Offline(ctx)
		if err != nil {
			return err
		}
		if err := offline.Journal().MarkChanges(ctx, ids, types.ChangeDiscarded); err != nil {
			return err
		}
		debug.PrintNormal("Discarded %d pending changes\n", len(ids))
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncStatusCmd, syncDiscardCmd)
	rootCmd.AddCommand(syncCmd)
}
