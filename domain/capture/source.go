package capture

import (
	"image"
	"log/slog"

	"github.com/soocke/herbscan/config"
	"github.com/soocke/herbscan/domain/scan"
)

// NewSource builds the media devices selected by cfg.Source.
func NewSource(cfg *config.Config, logger *slog.Logger) scan.MediaDevices {
	if cfg.Source == config.SourceScreen {
		return NewScreen(func() *image.Rectangle {
			if cfg.SelectionW <= 0 || cfg.SelectionH <= 0 {
				return nil
			}
			r := image.Rect(cfg.SelectionX, cfg.SelectionY, cfg.SelectionX+cfg.SelectionW, cfg.SelectionY+cfg.SelectionH)
			return &r
		})
	}
	return NewDevices(cfg.DeviceDir, cfg.RearDevice, OpenCamera, logger)
}

// SessionOptions maps cfg onto scan session options. Callbacks are left to
// the host.
func SessionOptions(cfg *config.Config, logger *slog.Logger) scan.Options {
	formats := make([]scan.Format, 0, len(cfg.Formats))
	for _, f := range cfg.Formats {
		formats = append(formats, scan.Format(f))
	}
	return scan.Options{
		Logger:          logger,
		Formats:         formats,
		PreferredWidth:  cfg.PreferredWidth,
		PreferredHeight: cfg.PreferredHeight,
		ReadyTimeout:    cfg.ReadyTimeout(),
		MountRetryDelay: cfg.MountRetryDelay(),
		PassInterval:    cfg.PassInterval(),
		AutoCloseDelay:  cfg.AutoCloseDelay(),
	}
}

// Headless returns the configured media devices and a surface that is
// mounted from the start, for hosts without a preview widget.
func Headless(cfg *config.Config, logger *slog.Logger) (scan.MediaDevices, *Slot, *Surface) {
	surface := NewSurface(logger)
	return NewSource(cfg, logger), MountedSlot(surface), surface
}

// Reconfigurer accepts option updates for the next scan cycle.
type Reconfigurer interface {
	Reconfigure(update func(*scan.Options))
}

// ApplyConfig hands the per-cycle fields of cfg to target: formats,
// resolution and timing. Source, device and callbacks stay as they are.
func ApplyConfig(target Reconfigurer, cfg *config.Config) {
	next := SessionOptions(cfg, nil)
	target.Reconfigure(func(o *scan.Options) {
		o.Formats = next.Formats
		o.PreferredWidth = next.PreferredWidth
		o.PreferredHeight = next.PreferredHeight
		o.ReadyTimeout = next.ReadyTimeout
		o.MountRetryDelay = next.MountRetryDelay
		o.PassInterval = next.PassInterval
		o.AutoCloseDelay = next.AutoCloseDelay
	})
}
