package presenter

import (
	"log/slog"

	"github.com/soocke/herbscan/config"
	"github.com/soocke/herbscan/domain/capture"
	"github.com/soocke/herbscan/domain/decode"
)

// ConfigPresenter hands an applied configuration to the running session
// and decoder tuning. Changes take effect from the next scan cycle, except
// the scan region which live decoders and the preview follow at once.
type ConfigPresenter struct {
	Session capture.Reconfigurer
	Tuning  *decode.Tuning
	Logger  *slog.Logger
}

func NewConfigPresenter(session capture.Reconfigurer, tuning *decode.Tuning, logger *slog.Logger) *ConfigPresenter {
	return &ConfigPresenter{Session: session, Tuning: tuning, Logger: logger}
}

// Apply is called with the validated configuration after the panel saved it.
func (p *ConfigPresenter) Apply(cfg config.Config) {
	if p == nil {
		return
	}
	if p.Session != nil {
		capture.ApplyConfig(p.Session, &cfg)
	}
	if p.Tuning != nil {
		p.Tuning.Store(decode.FromConfig(&cfg))
	}
	if p.Logger != nil {
		p.Logger.Info("config applied", "formats", cfg.Formats, "try_harder", cfg.TryHarder, "scan_region_ratio", cfg.ScanRegionRatio)
	}
}
