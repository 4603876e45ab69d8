package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jellelicht/exposure-agent/internal/exposure"
	"github.com/jellelicht/exposure-agent/internal/monitoring"
	"github.com/jellelicht/exposure-agent/internal/notify"
	"github.com/jellelicht/exposure-agent/internal/processor"
	"github.com/jellelicht/exposure-agent/internal/scheduler"
)

// cycleTimeout bounds a single processing cycle, downloads included.
const cycleTimeout = 10 * time.Minute

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the agent daemon",
	Long:  "Processes the backend manifest on the backend-controlled interval, watches for recorded exposures, and alerts when key processing falls behind.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("agent"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

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
		proc := processor.New(bc, engine, keys, st)
		notifier := notify.NewWebhook(cfg.Notify.WebhookURL)
		tracker := exposure.New(engine, st, notifier)

		checker := monitoring.NewChecker(st, notifier,
			time.Duration(cfg.Agent.OverdueCheckIntervalMinutes)*time.Minute)
		go checker.Run(ctx)

		go func() {
			for date := range tracker.ObserveLastExposureDate(ctx) {
				if date == nil {
					zap.L().Info("exposure state cleared")
					continue
				}
				zap.L().Info("exposure date changed", zap.Time("exposure_date", *date))
			}
		}()

		var sched *scheduler.Cron
		cycle := func() {
			cctx, cancel := context.WithTimeout(ctx, cycleTimeout)
			defer cancel()

			interval := cfg.Agent.DefaultIntervalMinutes
			if !engine.Enabled(cctx) {
				// The user has exposure notifications switched off. The
				// processing timestamp only has meaning while the engine
				// runs, so drop it and keep polling for re-enable.
				zap.L().Info("exposure engine disabled, skipping cycle")
				if err := st.ClearLastKeysProcessed(cctx); err != nil {
					zap.L().Error("failed to clear processing timestamp", zap.Error(err))
				}
			} else if got, err := proc.Run(cctx); err != nil {
				zap.L().Error("processing cycle failed", zap.Error(err))
			} else if got > 0 {
				interval = got
			}

			if err := sched.Schedule(interval); err != nil {
				zap.L().Error("failed to re-arm processing schedule", zap.Error(err))
			}
		}

		sched = scheduler.NewCron(cycle)
		defer sched.Stop()

		cycle()

		<-ctx.Done()
		zap.L().Info("agent shutting down")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)
}
