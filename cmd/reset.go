package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jellelicht/exposure-agent/internal/exposure"
	"github.com/jellelicht/exposure-agent/internal/notify"
)

var resetAll bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the recorded exposure",
	Long:  "Clears the stored exposure token and date. With --all, also forgets the processed key sets and the last processing timestamp so the next cycle starts from scratch.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("reset"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		tracker := exposure.New(newEngine(), st, notify.NewWebhook(cfg.Notify.WebhookURL))
		if err := tracker.Reset(ctx); err != nil {
			return err
		}

		if resetAll {
			if err := st.SetProcessedKeySets(ctx, nil); err != nil {
				return eris.Wrap(err, "clear processed key sets")
			}
			if err := st.ClearLastKeysProcessed(ctx); err != nil {
				return eris.Wrap(err, "clear processing timestamp")
			}
		}

		zap.L().Info("state reset", zap.Bool("all", resetAll))
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "also clear processed key sets and the processing timestamp")
	rootCmd.AddCommand(resetCmd)
}
