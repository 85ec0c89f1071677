package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Datta-sai-vvn/StormAlert/internal/app"
)

var (
	simulateInstruments []string
	simulateSubscriber  string
	simulateInterval    time.Duration
	simulateDuration    time.Duration
	simulateSeed        int64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "模拟行情并驱动完整告警管道",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SimulateOptions{
			Instruments: simulateInstruments,
			Subscriber:  simulateSubscriber,
			Interval:    simulateInterval,
			Duration:    simulateDuration,
			Seed:        simulateSeed,
		}
		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringSliceVar(&simulateInstruments, "instrument", []string{"RELIANCE", "TCS"}, "Instruments to simulate")
	simulateCmd.Flags().StringVar(&simulateSubscriber, "subscriber", "simulated-user", "Subscriber id watching the instruments")
	simulateCmd.Flags().DurationVar(&simulateInterval, "interval", time.Second, "Tick interval")
	simulateCmd.Flags().DurationVar(&simulateDuration, "duration", time.Minute, "How long to run")
	simulateCmd.Flags().Int64Var(&simulateSeed, "seed", time.Now().UnixNano(), "Random walk seed")
}
