package decode

import (
	"sync/atomic"

	"github.com/soocke/herbscan/config"
	"github.com/soocke/herbscan/domain/scan"
)

// FromConfig extracts the decoder options from cfg.
func FromConfig(cfg *config.Config) Options {
	return Options{TryHarder: cfg.TryHarder, RegionRatio: cfg.ScanRegionRatio}
}

// Tuning holds decoder options that may change while the host runs.
// Decoders built by its Factory pick up TryHarder when they are created and
// follow RegionRatio on every pass, so the decoded region always matches
// the one a preview draws from Load.
type Tuning struct {
	v atomic.Pointer[Options]
}

func NewTuning(opts Options) *Tuning {
	t := &Tuning{}
	t.Store(opts)
	return t
}

func (t *Tuning) Load() Options { return *t.v.Load() }

func (t *Tuning) Store(opts Options) { t.v.Store(&opts) }

// Factory returns a scan.DecoderFactory that reads the current options on
// each call.
func (t *Tuning) Factory() scan.DecoderFactory {
	return func(formats []scan.Format) (scan.Decoder, error) {
		d, err := New(formats, t.Load())
		if err != nil {
			return nil, err
		}
		d.region = func() float64 { return t.Load().RegionRatio }
		return d, nil
	}
}
