package view

import (
	"fmt"
	"time"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// ScanStats shows camera time and scan counters.
type ScanStats interface {
	SetCameraTime(current, total time.Duration)
	SetCounters(opens, results, failures uint64)
}

type scanStats struct {
	cameraLbl   *LabelWidget
	totalLbl    *LabelWidget
	countersLbl *LabelWidget
}

// NewScanStats places the camera, total and counter labels on row starting
// at startCol. A nil parent positions them relative to the App root.
func NewScanStats(parent *FrameWidget, row, startCol int) ScanStats {
	s := &scanStats{cameraLbl: Label(Width(14)), totalLbl: Label(Width(14)), countersLbl: Label(Width(28))}
	for i, lbl := range []*LabelWidget{s.cameraLbl, s.totalLbl, s.countersLbl} {
		if parent != nil {
			Grid(lbl, In(parent), Row(row), Column(startCol+i), Sticky("w"), Padx("0.2m"))
		} else {
			Grid(lbl, Row(row), Column(startCol+i), Sticky("w"), Padx("0.2m"))
		}
	}
	s.SetCameraTime(0, 0)
	s.SetCounters(0, 0, 0)
	return s
}

func (s *scanStats) SetCameraTime(current, total time.Duration) {
	if s == nil || s.cameraLbl == nil {
		return
	}
	s.cameraLbl.Configure(Txt("Camera: " + clock(current)))
	s.totalLbl.Configure(Txt("Total: " + clock(total)))
}

func (s *scanStats) SetCounters(opens, results, failures uint64) {
	if s == nil || s.countersLbl == nil {
		return
	}
	s.countersLbl.Configure(Txt(fmt.Sprintf("Scans: %d  Read: %d  Failed: %d", opens, results, failures)))
}

func clock(d time.Duration) string {
	seconds := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
