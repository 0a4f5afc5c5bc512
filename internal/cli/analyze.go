package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [notice-id...]",
	Short: "Score opportunities against all active capabilities",
	Long: `Score one or more opportunities against all active capabilities and
persist the results. With --all, every stored opportunity is re-analyzed.`,
	Run: func(cmd *cobra.Command, args []string) {
		all, _ := cmd.Flags().GetBool("all")
		analyze(args, all)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Bool("all", false, "analyze every stored opportunity")
}

func analyze(ids []string, all bool) {
	logger := newLogger()
	ctx := context.Background()

	app, err := newApplication(ctx, logger)
	if err != nil {
		logger.Fatal("initialisation failed", zap.Error(err))
	}
	defer app.close()

	if all || len(ids) != 1 {
		if !all && len(ids) == 0 {
			logger.Fatal("pass at least one notice id or --all")
		}
		if all {
			ids = nil
		}
		count, err := app.ranker.AnalyzeBatch(ctx, ids)
		if err != nil {
			logger.Fatal("batch analysis failed", zap.Error(err))
		}
		fmt.Printf("analyzed %d opportunities\n", count)
		return
	}

	matches, err := app.ranker.Analyze(ctx, ids[0])
	if err != nil {
		logger.Fatal("analysis failed", zap.String("notice_id", ids[0]), zap.Error(err))
	}

	out, _ := json.MarshalIndent(matches, "", "  ")
	fmt.Println(string(out))
}
