package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one incremental sync pass and print the report",
	Run: func(cmd *cobra.Command, _ []string) {
		runSync()
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync() {
	logger := newLogger()
	ctx := context.Background()

	app, err := newApplication(ctx, logger)
	if err != nil {
		logger.Fatal("initialisation failed", zap.Error(err))
	}
	defer app.close()

	report, runErr := app.scheduler.TriggerSync(ctx)
	if report != nil {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
	}
	if runErr != nil {
		logger.Error("sync pass failed", zap.Error(runErr))
		os.Exit(1)
	}
}
