package presenter

import (
	"time"

	"github.com/soocke/herbscan/domain/scan"
	"github.com/soocke/herbscan/ui/model"
)

// LiveSource reports whether the camera is streaming.
type LiveSource interface{ Running() bool }

// StatsSource exposes session counters.
type StatsSource interface{ Stats() scan.Stats }

// StatsView displays camera time and scan counters.
type StatsView interface {
	SetCameraTime(current, total time.Duration)
	SetCounters(opens, results, failures uint64)
}

// StatsPresenter advances the camera time model and pushes counters.
type StatsPresenter struct {
	times *model.CameraTimeModel
	live  LiveSource
	stats StatsSource
	view  StatsView
}

// NewStatsPresenter returns a new StatsPresenter.
func NewStatsPresenter(times *model.CameraTimeModel, live LiveSource, stats StatsSource, view StatsView) *StatsPresenter {
	return &StatsPresenter{times: times, live: live, stats: stats, view: view}
}

func (p *StatsPresenter) Tick(now time.Time) {
	if p == nil || p.times == nil || p.live == nil || p.view == nil {
		return
	}
	p.times.OnTick(p.live.Running(), now)
	cur, total := p.times.Values()
	p.view.SetCameraTime(cur, total)
	if p.stats != nil {
		st := p.stats.Stats()
		var failures uint64
		for _, n := range st.Failures {
			failures += n
		}
		p.view.SetCounters(st.Opens, st.Results, failures)
	}
}
