package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jellelicht/exposure-agent/internal/processor"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run a single manifest processing cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("process"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		bc := newBackendClient()
		engine := newEngine()
		keys, err := newKeySync(st, bc, engine)
		if err != nil {
			return err
		}

		interval, err := processor.New(bc, engine, keys, st).Run(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("processing cycle complete", zap.Int("next_interval_minutes", interval))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}
