package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"samscout/opportunity-service/internal/model"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Manage organisational capability profiles",
}

var capabilitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List capability profiles",
	Run: func(cmd *cobra.Command, _ []string) {
		all, _ := cmd.Flags().GetBool("all")
		listCapabilities(all)
	},
}

var capabilitiesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a capability profile",
	Run: func(cmd *cobra.Command, _ []string) {
		c := model.Capability{Active: true}
		c.Name, _ = cmd.Flags().GetString("name")
		c.Description, _ = cmd.Flags().GetString("description")
		c.Keywords, _ = cmd.Flags().GetStringSlice("keywords")
		c.NAICSCodes, _ = cmd.Flags().GetStringSlice("naics")
		c.PreferredAgencies, _ = cmd.Flags().GetStringSlice("agencies")
		c.PreferredSetAsides, _ = cmd.Flags().GetStringSlice("set-asides")
		addCapability(&c)
	},
}

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
	capabilitiesCmd.AddCommand(capabilitiesListCmd, capabilitiesAddCmd)

	capabilitiesListCmd.Flags().Bool("all", false, "include inactive capabilities")

	capabilitiesAddCmd.Flags().String("name", "", "capability name (required)")
	capabilitiesAddCmd.Flags().String("description", "", "free-text description")
	capabilitiesAddCmd.Flags().StringSlice("keywords", nil, "keywords matched against title and description")
	capabilitiesAddCmd.Flags().StringSlice("naics", nil, "NAICS codes")
	capabilitiesAddCmd.Flags().StringSlice("agencies", nil, "preferred agencies")
	capabilitiesAddCmd.Flags().StringSlice("set-asides", nil, "preferred set-aside codes")
	capabilitiesAddCmd.MarkFlagRequired("name")
}

func listCapabilities(all bool) {
	logger := newLogger()
	ctx := context.Background()

	app, err := newApplication(ctx, logger)
	if err != nil {
		logger.Fatal("initialisation failed", zap.Error(err))
	}
	defer app.close()

	caps, err := app.store.ListCapabilities(ctx, !all)
	if err != nil {
		logger.Fatal("listing capabilities failed", zap.Error(err))
	}

	out, _ := json.MarshalIndent(caps, "", "  ")
	fmt.Println(string(out))
}

func addCapability(c *model.Capability) {
	logger := newLogger()
	ctx := context.Background()

	app, err := newApplication(ctx, logger)
	if err != nil {
		logger.Fatal("initialisation failed", zap.Error(err))
	}
	defer app.close()

	id, err := app.store.CreateCapability(ctx, c)
	if err != nil {
		logger.Fatal("creating capability failed", zap.Error(err))
	}
	fmt.Println(id)
}
