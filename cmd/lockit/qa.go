package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockitd/lockit/internal/debug"
)

var qaCmd = &cobra.Command{
	Use:   "qa <file-id>",
	Short: "Run quality checks over a file",
	Long: `Re-runs the full check set (empty target, placeholder mismatch,
length bounds, glossary terms) against every row of the file. Previous
findings for the file are replaced.`,
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

		findings, err := coord.RunQA(ctx, fileID, userID)
		if err != nil {
			return err
		}

		summary, err := f.Primary().QAResults().GetSummary(ctx, fileID)
		if err != nil {
			return err
		}
		if jsonOutput {
			data, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		debug.PrintNormal("QA produced %d findings for file %d\n", findings, fileID)
		for check, n := range summary.ByCheck {
			fmt.Printf("  %-22s %d\n", check, n)
		}
		if summary.Unresolved != summary.Total {
			fmt.Printf("  %d of %d resolved\n", summary.Total-summary.Unresolved, summary.Total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(qaCmd)
}
