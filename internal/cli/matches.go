package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List persisted matches at or above a score threshold",
	Run: func(cmd *cobra.Command, _ []string) {
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		limit, _ := cmd.Flags().GetInt("limit")
		highMatches(threshold, limit)
	},
}

func init() {
	rootCmd.AddCommand(matchesCmd)

	matchesCmd.Flags().Float64("threshold", 70, "minimum match score")
	matchesCmd.Flags().Int("limit", 50, "maximum number of matches returned")
}

func highMatches(threshold float64, limit int) {
	logger := newLogger()
	ctx := context.Background()

	app, err := newApplication(ctx, logger)
	if err != nil {
		logger.Fatal("initialisation failed", zap.Error(err))
	}
	defer app.close()

	matches, err := app.ranker.HighMatches(ctx, threshold, limit)
	if err != nil {
		logger.Fatal("listing matches failed", zap.Error(err))
	}

	out, _ := json.MarshalIndent(matches, "", "  ")
	fmt.Println(string(out))
}
