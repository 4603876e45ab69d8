package main

import (
	"github.com/spf13/cobra"

	"github.com/jellelicht/exposure-agent/internal/exposure"
	"github.com/jellelicht/exposure-agent/internal/notify"
)

var recordCmd = &cobra.Command{
	Use:   "record <token>",
	Short: "Record a potential exposure for an engine token",
	Long:  "Invoked by the platform when the matching engine reports an exposure for a previously submitted token. Stores the exposure if it is more recent than the one already recorded.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("record"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		notifier := notify.NewWebhook(cfg.Notify.WebhookURL)
		tracker := exposure.New(newEngine(), st, notifier)

		return tracker.RecordExposure(ctx, args[0])
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)
}
