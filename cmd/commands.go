// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/medjc09/pkg/hub"
	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

var (
	meAsVoltage  bool
	smeAsVoltage bool
)

// withHub opens a hub, runs fn and closes the hub. Ctrl+C cancels ctx.
func withHub(fn func(ctx context.Context, h *hub.Hub) error) error {
	h, _, err := openHub()
	if err != nil {
		return err
	}
	defer h.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, h)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the hub firmware version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHub(func(ctx context.Context, h *hub.Hub) error {
			r, err := h.GetVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%d.%d.%d\n", r.Version.Major, r.Version.Minor, r.Version.Patch)
			return nil
		})
	},
}

var voltageCmd = &cobra.Command{
	Use:   "voltage",
	Short: "Read the hub base voltage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHub(func(ctx context.Context, h *hub.Hub) error {
			r, err := h.GetBaseVoltage(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%.3f V\n", r.Voltage)
			return nil
		})
	},
}

var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "Show which channels have a digital connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHub(func(ctx context.Context, h *hub.Hub) error {
			r, err := h.GetConnections(ctx)
			if err != nil {
				return err
			}
			fmt.Print(medjc09.FormatResult(r))
			return nil
		})
	},
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Read the ME channels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHub(func(ctx context.Context, h *hub.Hub) error {
			if meAsVoltage {
				v, err := h.GetMEAsVoltage(ctx)
				if err != nil {
					return err
				}
				printVoltages("ME", v)
				return nil
			}
			r, err := h.GetME(ctx)
			if err != nil {
				return err
			}
			fmt.Print(medjc09.FormatResult(r))
			return nil
		})
	},
}

var smeCmd = &cobra.Command{
	Use:   "sme",
	Short: "Read the SME channels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHub(func(ctx context.Context, h *hub.Hub) error {
			if smeAsVoltage {
				v, err := h.GetSMEAsVoltage(ctx)
				if err != nil {
					return err
				}
				printVoltages("SME", v)
				return nil
			}
			r, err := h.GetSME(ctx)
			if err != nil {
				return err
			}
			fmt.Print(medjc09.FormatResult(r))
			return nil
		})
	},
}

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Get or set the polling rate",
}

var rateGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the polling rate in milliseconds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHub(func(ctx context.Context, h *hub.Hub) error {
			r, err := h.GetPollingRate(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%d ms\n", r.Rate)
			return nil
		})
	},
}

var rateSetCmd = &cobra.Command{
	Use:   "set <ms>",
	Short: "Set the polling rate in milliseconds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, err := parseRate(args[0])
		if err != nil {
			return err
		}
		return withHub(func(ctx context.Context, h *hub.Hub) error {
			if _, err := h.SetPollingRate(ctx, rate); err != nil {
				return err
			}
			fmt.Printf("Polling rate set to %d ms\n", rate)
			return nil
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Request a single polling report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHub(func(ctx context.Context, h *hub.Hub) error {
			r, err := h.GetPollingReport(ctx)
			if err != nil {
				return err
			}
			fmt.Print(medjc09.FormatResult(r))
			return nil
		})
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := hub.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	meCmd.Flags().BoolVar(&meAsVoltage, "voltage", false, "Convert channel codes to volts")
	smeCmd.Flags().BoolVar(&smeAsVoltage, "voltage", false, "Convert channel codes to volts")

	rateCmd.AddCommand(rateGetCmd, rateSetCmd)

	rootCmd.AddCommand(versionCmd, voltageCmd, connectionsCmd, meCmd, smeCmd, rateCmd, reportCmd, portsCmd)
}

func printVoltages(label string, v [medjc09.ChannelCount]float64) {
	fmt.Printf("  %s:", label)
	for i, x := range v {
		fmt.Printf(" ch%d=%+.4f V", i, x)
	}
	fmt.Println()
}

func parseRate(s string) (uint16, error) {
	rate, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q: must be 1..65535 ms", s)
	}
	if rate == 0 {
		return 0, fmt.Errorf("invalid rate %q: must be at least 1 ms", s)
	}
	return uint16(rate), nil
}
