// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/joylink/pkg/joystick"
	"github.com/Thermoquad/joylink/pkg/link"
	"github.com/spf13/cobra"
)

var (
	joysticksTimeout int
	joysticksAxes    bool
)

var joysticksCmd = &cobra.Command{
	Use:   "joysticks",
	Short: "List joysticks and watch them being plugged in or removed",
	Long: `Open every joystick node in --input-dir and report devices as they appear.

The command keeps watching for --timeout seconds so hotplug can be checked by
plugging a controller in or pulling it out. With --axes every axis movement
is printed as well, which helps to find the axis numbers of a new controller.

Exit codes:
  0 - At least one joystick was seen
  1 - No joystick found before timeout
  2 - Input directory could not be watched`,
	RunE: runJoysticks,
}

func init() {
	rootCmd.AddCommand(joysticksCmd)
	joysticksCmd.Flags().IntVar(&joysticksTimeout, "timeout", 5, "Seconds to watch for devices")
	joysticksCmd.Flags().BoolVar(&joysticksAxes, "axes", false, "Print axis movements")
	joysticksCmd.Flags().StringVar(&cfg.InputDir, "input-dir", joystick.DefaultDir, "Directory watched for joystick devices")
}

func runJoysticks(cmd *cobra.Command, args []string) error {
	source, err := joystick.NewSource(joystick.Options{Dir: cfg.InputDir, Logger: logger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Input error: %v\n", err)
		os.Exit(2)
	}
	defer source.Close()

	fmt.Printf("Joylink - Joystick Discovery\n")
	fmt.Printf("Directory: %s\n", cfg.InputDir)
	fmt.Printf("Watching for %d seconds...\n\n", joysticksTimeout)

	seen := make(map[int]string)
	poll := time.NewTicker(20 * time.Millisecond)
	defer poll.Stop()
	timeout := time.After(time.Duration(joysticksTimeout) * time.Second)

	for watching := true; watching; {
		select {
		case <-poll.C:
			for _, ev := range source.Poll() {
				printInputEvent(ev, seen)
			}
		case <-timeout:
			watching = false
		}
	}

	fmt.Printf("\n--- Joystick summary ---\n")
	fmt.Printf("Devices seen: %d\n", len(seen))
	fmt.Printf("Devices open: %d\n", source.Devices())

	if len(seen) == 0 {
		fmt.Printf("No joysticks found. Check that the joydev module is loaded.\n")
		source.Close()
		os.Exit(1)
	}
	return nil
}

func printInputEvent(ev link.InputEvent, seen map[int]string) {
	switch ev.Kind {
	case link.InputDeviceAdded:
		seen[ev.Device] = ev.Name
		fmt.Printf("Added:   js%d  %s\n", ev.Device, ev.Name)
	case link.InputDeviceRemoved:
		fmt.Printf("Removed: js%d  %s\n", ev.Device, seen[ev.Device])
	case link.InputAxis:
		if joysticksAxes {
			fmt.Printf("  js%d axis %d: %+.3f\n", ev.Device, ev.Axis, ev.Value)
		}
	}
}
