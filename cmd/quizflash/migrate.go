package main

import (
	"github.com/spf13/cobra"
	"github.com/vytor/quizflash/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		logger.Default().Info("migrations up to date (%s)", cfg.DBDriver)
		return nil
	},
}
