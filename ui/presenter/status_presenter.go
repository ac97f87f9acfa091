package presenter

import (
	"sync"
	"time"

	"github.com/soocke/herbscan/domain/scan"
)

// StatusModel records outcomes for other presenters and the host.
type StatusModel interface {
	SetSample(id string)
	SetFailure(d scan.ErrorDetail)
	Hint() string
}

// StatusView shows the phase, the decoded sample and failures.
type StatusView interface {
	SetStateLabel(string)
	SetSample(id, link string)
	SetFailure(message string, retryable bool)
	SetHint(string)
}

// StatusPresenter receives transitions from the session listener and
// reflects them on the next Tick.
type StatusPresenter struct {
	model      StatusModel
	view       StatusView
	link       func(id string) string
	onTerminal func(scan.Phase)

	mu      sync.Mutex
	pending []scan.Transition

	latest   scan.Phase
	lastHint string
}

// NewStatusPresenter wires the presenter. link maps a sample id to the URL
// the host navigates to; onTerminal is called on the UI thread once a cycle
// has ended and no new cycle followed within the same tick.
func NewStatusPresenter(model StatusModel, view StatusView, link func(string) string, onTerminal func(scan.Phase)) *StatusPresenter {
	return &StatusPresenter{model: model, view: view, link: link, onTerminal: onTerminal}
}

// OnTransition is a scan.TransitionListener. It runs under the session lock
// and only queues the transition with its outcome.
func (p *StatusPresenter) OnTransition(tr scan.Transition) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.pending = append(p.pending, tr)
	p.mu.Unlock()
}

// Tick drains queued transitions and updates the view.
func (p *StatusPresenter) Tick(now time.Time) {
	if p == nil || p.view == nil {
		return
	}
	p.mu.Lock()
	queued := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, tr := range queued {
		switch tr.Next {
		case scan.PhaseSucceeded:
			if id := tr.Result; id != "" {
				if p.model != nil {
					p.model.SetSample(id)
				}
				link := id
				if p.link != nil {
					link = p.link(id)
				}
				p.view.SetSample(id, link)
			}
		case scan.PhaseFailed:
			if d := tr.Detail; d != nil {
				if p.model != nil {
					p.model.SetFailure(*d)
				}
				p.view.SetFailure(d.Message, d.Retryable())
			}
		case scan.PhaseInitializing:
			p.view.SetFailure("", false)
		}
	}
	if n := len(queued); n > 0 {
		last := queued[n-1].Next
		if last != p.latest {
			p.latest = last
			p.view.SetStateLabel("State: " + last.String())
		}
		// Only settle when the session is still at rest; a retry queued
		// behind the terminal phase keeps the scanner enabled.
		if terminal(last) && p.onTerminal != nil {
			p.onTerminal(last)
		}
	}

	if p.model != nil {
		if h := p.model.Hint(); h != p.lastHint {
			p.lastHint = h
			p.view.SetHint(h)
		}
	}
}

func terminal(ph scan.Phase) bool {
	return ph == scan.PhaseSucceeded || ph == scan.PhaseFailed || ph == scan.PhaseClosed
}
