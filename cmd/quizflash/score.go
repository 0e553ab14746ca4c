package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vytor/quizflash/internal/mastery"
	"github.com/vytor/quizflash/internal/repository/sqlstore"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute a user's mastery score over a time window",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")
		days, _ := cmd.Flags().GetInt("days")
		if userID <= 0 {
			return fmt.Errorf("--user must be a positive id")
		}
		if days <= 0 {
			return fmt.Errorf("--days must be positive")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		end := time.Now().UTC()
		res, err := mastery.NewScorer(sqlstore.New(database)).Score(cmd.Context(), userID, end.AddDate(0, 0, -days), end)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	scoreCmd.Flags().Int64("user", 0, "User id to score")
	scoreCmd.Flags().Int("days", 30, "Window length in days, ending now")
}
