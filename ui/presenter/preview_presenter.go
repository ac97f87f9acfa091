package presenter

import (
	"image"

	"github.com/soocke/herbscan/domain/capture"
	"github.com/soocke/herbscan/ui/images"
)

// PreviewView displays scaled preview frames.
type PreviewView interface {
	UpdatePreview(img image.Image)
}

// PreviewPresenter pushes new surface frames to the preview with the scan
// region drawn on top.
type PreviewPresenter struct {
	Source      capture.FrameSource
	View        PreviewView
	RegionRatio func() float64
	MaxW, MaxH  int

	lastSeq uint64
}

const (
	defaultPreviewW = 400
	defaultPreviewH = 225
	reticleStroke   = 3
)

func NewPreviewPresenter(src capture.FrameSource, view PreviewView, ratio func() float64) *PreviewPresenter {
	return &PreviewPresenter{Source: src, View: view, RegionRatio: ratio, MaxW: defaultPreviewW, MaxH: defaultPreviewH}
}

// Tick renders the latest frame if it has not been shown yet. It reports
// whether the view was updated.
func (p *PreviewPresenter) Tick() bool {
	if p == nil || p.Source == nil || p.View == nil || !p.Source.Running() {
		return false
	}
	snap := p.Source.LatestFrame()
	if snap.Image == nil || snap.Sequence == p.lastSeq {
		return false
	}
	p.lastSeq = snap.Sequence
	scaled := images.ScaleToFit(snap.Image, p.MaxW, p.MaxH)
	ratio := 0.0
	if p.RegionRatio != nil {
		ratio = p.RegionRatio()
	}
	if ratio > 0 && ratio < 1 {
		images.DrawReticle(scaled, capture.ReticleRect(scaled.Bounds(), ratio), reticleStroke)
	}
	p.View.UpdatePreview(scaled)
	return true
}
