package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/soocke/herbscan/domain/capture"
	"github.com/soocke/herbscan/domain/scan"
)

func newDevicesCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture devices and whether they can be opened",
		RunE: func(cmd *cobra.Command, _ []string) error {
			devs := capture.NewDevices(c.cfg.DeviceDir, c.cfg.RearDevice, nil, c.logger)
			statuses, err := devs.ProbeAll()
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "no capture devices in %s\n", c.cfg.DeviceDir)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDevices(statuses, modTimes(statuses), time.Now()))
			return nil
		},
	}
}

func modTimes(statuses []capture.ProbeStatus) map[string]time.Time {
	out := make(map[string]time.Time, len(statuses))
	for _, st := range statuses {
		if info, err := os.Stat(st.Device.Path); err == nil {
			out[st.Device.Path] = info.ModTime()
		}
	}
	return out
}

// renderDevices formats probe results as a table. seen maps device paths
// to the time the node appeared.
func renderDevices(statuses []capture.ProbeStatus, seen map[string]time.Time, now time.Time) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Device", "Path", "Rear", "Status", "Appeared"})
	usable := 0
	for _, st := range statuses {
		rear := ""
		if st.Device.Rear {
			rear = "yes"
		}
		appeared := "-"
		if t, ok := seen[st.Device.Path]; ok {
			appeared = humanize.RelTime(t, now, "ago", "from now")
		}
		if st.Err == nil {
			usable++
		}
		tbl.AppendRow(table.Row{st.Device.Name, st.Device.Path, rear, probeLabel(st.Err), appeared})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("%d usable", usable), "", "", "", fmt.Sprintf("%d total", len(statuses))})
	return tbl.Render()
}

func probeLabel(err error) string {
	switch {
	case err == nil:
		return color.GreenString("ok")
	case errors.Is(err, scan.ErrPermissionDenied):
		return color.RedString("permission denied")
	case errors.Is(err, scan.ErrDeviceBusy):
		return color.YellowString("busy")
	case errors.Is(err, scan.ErrDeviceNotFound):
		return color.RedString("gone")
	default:
		return color.RedString(err.Error())
	}
}

