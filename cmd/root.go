package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jellelicht/exposure-agent/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "exposure-agent",
	Short: "Exposure notification client agent",
	Long:  "Synchronizes diagnosis key sets from the exposure notification backend, feeds them to the platform matching engine, and tracks detected exposures.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
