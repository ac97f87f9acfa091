package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/soocke/herbscan/config"
	"github.com/soocke/herbscan/domain/capture"
	"github.com/soocke/herbscan/domain/decode"
	"github.com/soocke/herbscan/domain/scan"
)

func newScanCommand(c *cli) *cobra.Command {
	var timeout time.Duration
	var quiet bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan one barcode and print the sample ID",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			devices, slot, _ := capture.Headless(c.cfg, c.logger)
			out, err := scanOnce(ctx, c.cfg, devices, slot, c.logger)
			if err != nil {
				printFailure(cmd.ErrOrStderr(), err)
				return err
			}
			printOutcome(cmd.OutOrStdout(), out, quiet)
			return nil
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", time.Minute, "give up after this long")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the sample ID")
	return cmd
}

// outcome is a finished one-shot scan.
type outcome struct {
	Text    string
	URL     string
	Elapsed time.Duration
	Stats   scan.Stats
}

// scanOnce runs a single cycle and waits for its result or failure.
func scanOnce(ctx context.Context, cfg *config.Config, devices scan.MediaDevices, surfaces scan.SurfaceProvider, logger *slog.Logger) (outcome, error) {
	type reply struct {
		text   string
		detail *scan.ErrorDetail
	}
	replies := make(chan reply, 1)
	opts := capture.SessionOptions(cfg, logger)
	opts.OnResult = func(text string) {
		select {
		case replies <- reply{text: text}:
		default:
		}
	}
	opts.OnError = func(d scan.ErrorDetail) {
		select {
		case replies <- reply{detail: &d}:
		default:
		}
	}
	decoders := decode.Factory(decode.Options{TryHarder: cfg.TryHarder, RegionRatio: cfg.ScanRegionRatio})
	sess := scan.NewSession(devices, surfaces, decoders, opts)
	defer sess.Close()

	start := time.Now()
	sess.Open()
	select {
	case r := <-replies:
		if r.detail != nil {
			return outcome{}, *r.detail
		}
		return outcome{Text: r.text, URL: cfg.SampleLink(r.text), Elapsed: time.Since(start), Stats: sess.Stats()}, nil
	case <-ctx.Done():
		return outcome{}, fmt.Errorf("no barcode read: %w", ctx.Err())
	}
}

func printOutcome(w io.Writer, out outcome, quiet bool) {
	if quiet {
		fmt.Fprintln(w, out.Text)
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(w, "%s\n", out.Text)
	fmt.Fprintf(w, "  url:     %s\n", out.URL)
	fmt.Fprintf(w, "  elapsed: %s (%s decode passes)\n", out.Elapsed.Round(time.Millisecond), humanize.Comma(int64(out.Stats.Passes)))
	if out.Stats.Fallbacks > 0 {
		color.New(color.FgYellow).Fprintf(w, "  rear camera unavailable, used any camera\n")
	}
}

func printFailure(w io.Writer, err error) {
	var d scan.ErrorDetail
	if !errors.As(err, &d) {
		color.New(color.FgRed).Fprintf(w, "%v\n", err)
		return
	}
	color.New(color.FgRed).Fprintf(w, "%s: %s\n", d.Kind, d.Message)
	if d.Retryable() {
		color.New(color.FgCyan).Fprintf(w, "  run the scan again once the camera is free\n")
	} else {
		color.New(color.FgCyan).Fprintf(w, "  connect a camera and run the scan again\n")
	}
}
