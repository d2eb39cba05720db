package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockitd/lockit/internal/debug"
)

var rmRetentionDays int

var rmCmd = &cobra.Command{
	Use:   "rm <file|folder|project> <id>",
	Short: "Soft-delete an entity into the trash",
	Long: `Moves the entity and its subtree into the trash. Original IDs are
kept inside the trash payload so a later restore brings everything back
unchanged. Entries expire after the retention window.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		coord, f, _, err := openCoordinator(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		var trashID int64
		switch args[0] {
		case "file":
			trashID, err = coord.SoftDeleteFile(ctx, id, userID, rmRetentionDays)
		case "folder":
			trashID, err = coord.SoftDeleteFolder(ctx, id, userID, rmRetentionDays)
		case "project":
			trashID, err = coord.SoftDeleteProject(ctx, id, userID, rmRetentionDays)
		default:
			return fmt.Errorf("unknown entity type %q (want file, folder or project)", args[0])
		}
		if err != nil {
			return err
		}
		debug.PrintNormal("Trashed %s %d (trash entry %d)\n", args[0], id, trashID)
		return nil
	},
}

func init() {
	rmCmd.Flags().IntVar(&rmRetentionDays, "retention-days", 0, "override the retention window for this entry")
	rootCmd.AddCommand(rmCmd)
}
