package main

import (
	"github.com/spf13/cobra"

	"github.com/lockitd/lockit/internal/debug"
)

var pretranslateCmd = &cobra.Command{
	Use:   "pretranslate <file-id>",
	Short: "Fill pending rows from the file's assigned TMs",
	Long: `Looks up each pending row's source against the TMs assigned to the
file, in priority order, and writes the first hit as the row's target.
Rows that already carry a target are left alone.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fileID, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		coord, f, _, err := openCoordinator(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		filled, err := coord.Pretranslate(ctx, fileID, userID)
		if err != nil {
			return err
		}
		debug.PrintNormal("Pretranslated %d rows in file %d\n", filled, fileID)
		return nil
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <row-id>...",
	Short: "Approve rows and push them into their file's writable TMs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rowIDs := make([]int64, 0, len(args))
		for _, a := range args {
			id, err := parseID(a)
			if err != nil {
				return err
			}
			rowIDs = append(rowIDs, id)
		}
		ctx := cmd.Context()
		coord, f, _, err := openCoordinator(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		confirmed, err := coord.ConfirmRows(ctx, rowIDs, userID)
		if err != nil {
			return err
		}
		debug.PrintNormal("Confirmed %d rows\n", confirmed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pretranslateCmd, confirmCmd)
}
