package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lockitd/lockit/internal/configfile"
	"github.com/lockitd/lockit/internal/debug"
)

var (
	initBackend   string
	initDSN       string
	initRetention int
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a lockit data directory",
	Long: `Creates the .lockit directory with its metadata file. With no flags
the embedded backend is used; --backend postgres requires --postgres-dsn.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := dataDir
		if dir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			dir = filepath.Join(cwd, configfile.DefaultDirName)
		}

		if existing, err := configfile.Load(dir); err != nil {
			return err
		} else if existing != nil {
			return fmt.Errorf("%s is already initialized", dir)
		}

		cfg := configfile.DefaultConfig()
		cfg.Backend = initBackend
		cfg.PostgresDSN = initDSN
		cfg.TrashRetentionDays = initRetention
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.Save(dir); err != nil {
			return err
		}
		debug.PrintNormal("Initialized lockit in %s (backend: %s)\n", dir, cfg.Backend)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initBackend, "backend", "sqlite", "primary backend: sqlite or postgres")
	initCmd.Flags().StringVar(&initDSN, "postgres-dsn", "", "postgres connection string")
	initCmd.Flags().IntVar(&initRetention, "retention-days", 0, "trash retention window in days (default 30)")
	rootCmd.AddCommand(initCmd)
}
