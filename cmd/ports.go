// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports and their USB ids",
	Long: `List the serial ports on this machine with their USB vendor and product ids.

The port matching --vid/--pid (the one joylink opens when --port is not given)
is highlighted.`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("failed to list serial ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	matchStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	fmt.Printf("%-20s %-9s %-20s %s\n", "PORT", "VID:PID", "SERIAL", "PRODUCT")
	for _, p := range ports {
		if !p.IsUSB {
			fmt.Println(dimStyle.Render(fmt.Sprintf("%-20s %-9s", p.Name, "-")))
			continue
		}
		line := fmt.Sprintf("%-20s %-9s %-20s %s", p.Name, p.VID+":"+p.PID, p.SerialNumber, p.Product)
		if strings.EqualFold(p.VID, cfg.VID) && strings.EqualFold(p.PID, cfg.PID) {
			line = matchStyle.Render(line + "  <- default")
		}
		fmt.Println(line)
	}
	return nil
}
