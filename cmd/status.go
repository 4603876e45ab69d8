package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jellelicht/exposure-agent/internal/monitoring"
)

type agentStatus struct {
	LastKeysProcessed *time.Time `json:"lastKeysProcessed"`
	KeysOverdue       bool       `json:"keysOverdue"`
	ProcessedKeySets  int        `json:"processedKeySets"`
	LastExposureDate  string     `json:"lastExposureDate,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the agent's processing and exposure state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("status"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		lastProcessed, err := st.LastKeysProcessed(ctx)
		if err != nil {
			return err
		}
		processed, err := st.ProcessedKeySets(ctx)
		if err != nil {
			return err
		}
		lastExposure, err := st.LastExposure(ctx)
		if err != nil {
			return err
		}

		status := agentStatus{
			LastKeysProcessed: lastProcessed,
			KeysOverdue:       monitoring.KeysOverdue(lastProcessed, time.Now()),
			ProcessedKeySets:  len(processed),
		}
		if lastExposure != nil {
			status.LastExposureDate = lastExposure.Date.Format("2006-01-02")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
