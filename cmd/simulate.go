// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/joylink/pkg/sim"
	"github.com/spf13/cobra"
)

var (
	simPeriod       time.Duration
	simRate         float64
	simBatteryEvery int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Act as the vehicle end of the link for bench testing",
	Long: `Run a simulated vehicle on the given port.

The simulator accepts trainer commands, integrates them into an attitude and
streams attitude frames while telemetry is switched on. Connect two serial
ports with a null modem (or a pty pair) and run 'joylink run' on the other end.

The horizontal and vertical channels follow --horizontal-channel and
--vertical-channel.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().DurationVar(&simPeriod, "period", sim.DefaultPeriod, "Telemetry frame interval")
	simulateCmd.Flags().Float64Var(&simRate, "rate", sim.DefaultRate, "Attitude change per second at full deflection")
	simulateCmd.Flags().IntVar(&simBatteryEvery, "battery-every", 10, "Send a battery frame every N attitude frames (0 disables)")
	simulateCmd.Flags().IntVar(&cfg.HorizontalChannel, "horizontal-channel", cfg.HorizontalChannel, "Trainer channel for the horizontal axis")
	simulateCmd.Flags().IntVar(&cfg.VerticalChannel, "vertical-channel", cfg.VerticalChannel, "Trainer channel for the vertical axis")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Joylink - Vehicle Simulator\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	v := sim.NewVehicle()
	v.HorizontalChannel = cfg.HorizontalChannel
	v.VerticalChannel = cfg.VerticalChannel
	v.Rate = simRate

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sim.Serve(ctx, conn, v, sim.Options{
		Period:       simPeriod,
		BatteryEvery: simBatteryEvery,
		Logger:       logger,
	})
	logger.Info().Uint64("commands", v.Commands()).Stringer("attitude", v.Attitude()).Msg("simulator stopped")
	return err
}
