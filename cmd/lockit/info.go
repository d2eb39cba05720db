package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show deployment statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, cfg, err := openFactory(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		stats, err := f.Primary().Stats(ctx)
		if err != nil {
			return err
		}

		if jsonOutput {
			out := map[string]any{
				"backend": cfg.Backend,
				"mode":    string(f.Primary().Mode()),
				"stats":   stats,
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Backend:   %s (%s mode)\n", cfg.Backend, f.Primary().Mode())
		fmt.Printf("Platforms: %d\n", stats.Platforms)
		fmt.Printf("Projects:  %d\n", stats.Projects)
		fmt.Printf("Folders:   %d\n", stats.Folders)
		fmt.Printf("Files:     %d\n", stats.Files)
		fmt.Printf("Rows:      %d\n", stats.Rows)
		fmt.Printf("TMs:       %d (%d entries)\n", stats.TMs, stats.TMEntries)
		fmt.Printf("QA:        %d findings\n", stats.QAResults)
		fmt.Printf("Trash:     %d\n", stats.TrashItems)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
