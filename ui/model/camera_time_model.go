package model

import (
	"time"
)

// CameraTimeModel tracks how long the camera has been live in the current
// cycle and in total. Presenters poll Values() and update views.
// The zero value is ready to use.
type CameraTimeModel struct {
	live        bool
	liveSince   time.Time
	current     time.Duration
	accumulated time.Duration
	cycles      int
}

// NewCameraTimeModel returns a ready-to-use model.
func NewCameraTimeModel() *CameraTimeModel { return &CameraTimeModel{} }

// OnTick updates the model with whether the camera is live at now.
func (m *CameraTimeModel) OnTick(live bool, now time.Time) {
	if m == nil {
		return
	}
	if live {
		if !m.live {
			m.live = true
			m.liveSince = now
			m.current = 0
			m.cycles++
		}
		m.current = now.Sub(m.liveSince)
	} else if m.live {
		m.current = now.Sub(m.liveSince)
		m.accumulated += m.current
		m.live = false
	}
}

// Values returns the current (or last) live duration and the total, which
// includes the ongoing cycle.
func (m *CameraTimeModel) Values() (current, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	current = m.current
	total = m.accumulated
	if m.live {
		total += current
	}
	return
}

// Cycles returns how many times the camera went live.
func (m *CameraTimeModel) Cycles() int {
	if m == nil {
		return 0
	}
	return m.cycles
}
