package model

import (
	"sync"
	"sync/atomic"

	"github.com/soocke/herbscan/domain/scan"
)

// ScanModel tracks what the scanner window shows: whether the camera is
// requested, the sample id last decoded and the current failure. The zero
// value is usable. Session callbacks arrive on worker goroutines while the
// UI reads on its tick, so access is synchronised.
type ScanModel struct {
	enabled atomic.Bool

	mu       sync.Mutex
	sampleID string
	failure  *scan.ErrorDetail
	hint     string
}

// Enabled reports whether scanning is switched on.
func (m *ScanModel) Enabled() bool {
	if m == nil {
		return false
	}
	return m.enabled.Load()
}

// SetEnabled stores the enabled flag.
func (m *ScanModel) SetEnabled(b bool) {
	if m == nil {
		return
	}
	m.enabled.Store(b)
}

// SetSample records a decoded sample id and clears any failure.
func (m *ScanModel) SetSample(id string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.sampleID = id
	m.failure = nil
	m.hint = ""
	m.mu.Unlock()
}

// Sample returns the last decoded sample id.
func (m *ScanModel) Sample() string {
	if m == nil {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sampleID
}

// SetFailure records the failure of the latest cycle.
func (m *ScanModel) SetFailure(d scan.ErrorDetail) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.failure = &d
	m.hint = ""
	m.mu.Unlock()
}

// ClearFailure drops the recorded failure, e.g. when a retry starts.
func (m *ScanModel) ClearFailure() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.failure = nil
	m.hint = ""
	m.mu.Unlock()
}

// Failure returns the recorded failure, if any.
func (m *ScanModel) Failure() (scan.ErrorDetail, bool) {
	if m == nil {
		return scan.ErrorDetail{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure == nil {
		return scan.ErrorDetail{}, false
	}
	return *m.failure, true
}

// SetHint sets a short operator hint shown next to the failure.
func (m *ScanModel) SetHint(h string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.hint = h
	m.mu.Unlock()
}

// Hint returns the current hint.
func (m *ScanModel) Hint() string {
	if m == nil {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hint
}
