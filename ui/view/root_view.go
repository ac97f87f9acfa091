package view

import (
	"image"
	"log/slog"
	"time"

	"github.com/soocke/herbscan/config"
	"github.com/soocke/herbscan/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// RootView composes the top-level application layout and wires UI callbacks.
// It implements the view contracts of the scanner, status, stats and preview
// presenters by forwarding to its subviews.
type RootView struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger

	// Subviews
	Stats       ScanStats
	ConfigPanel ConfigPanel
	Preview     Preview

	// Widgets
	StateLabel   *LabelWidget
	SampleLabel  *LabelWidget
	FailureLabel *LabelWidget
	HintLabel    *LabelWidget
	retryBtn     *ButtonWidget

	// OnConfigApplied is handed to the config panel; set it before Build.
	OnConfigApplied func(config.Config)
}

func NewRootView(cfg *config.Config, cfgPath string, logger *slog.Logger) *RootView {
	return &RootView{cfg: cfg, cfgPath: cfgPath, logger: logger}
}

// Build constructs the layout. Handlers are invoked on user actions.
func (rv *RootView) Build(onToggleScan, onRetry, onExit func()) {
	if rv == nil {
		return
	}
	// Row 0: stats, state label, buttons frame
	statsFrame := Frame()
	Grid(statsFrame, Row(0), Column(0), Columnspan(2), Sticky("w"), Padx("0.3m"), Pady("0.3m"))
	rv.Stats = NewScanStats(statsFrame, 0, 0)
	rv.StateLabel = Label(Txt("State: idle"), Borderwidth(1), Relief("ridge"))
	Grid(rv.StateLabel, Row(0), Column(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))

	btnFrame := Frame()
	Grid(btnFrame, Row(0), Column(3), Rowspan(2), Sticky("ne"), Padx("0.3m"), Pady("0.3m"))
	scanBtn := Button(Txt("Scan"), Command(onToggleScan))
	Grid(scanBtn, In(btnFrame), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	rv.retryBtn = Button(Txt("Try Again"), Command(onRetry), State("disabled"))
	Grid(rv.retryBtn, In(btnFrame), Row(1), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	exitBtn := Button(Txt("Exit"), Command(onExit))
	Grid(exitBtn, In(btnFrame), Row(2), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))

	// Row 1: outcome labels
	rv.SampleLabel = Label(Txt(""), Anchor("w"), Foreground(theme.ColorPrimary))
	Grid(rv.SampleLabel, Row(1), Column(0), Sticky("w"), Padx("0.4m"))
	rv.FailureLabel = Label(Txt(""), Anchor("w"), Foreground(theme.ColorDanger))
	Grid(rv.FailureLabel, Row(1), Column(1), Sticky("w"), Padx("0.4m"))
	rv.HintLabel = Label(Txt(""), Anchor("w"), Foreground(theme.ColorTextMuted))
	Grid(rv.HintLabel, Row(1), Column(2), Sticky("w"), Padx("0.4m"))

	// Config panel rows
	rv.ConfigPanel = NewConfigPanel(rv.cfg, rv.cfgPath, rv.logger, rv.OnConfigApplied)
	endRow := rv.ConfigPanel.Build(2)

	rv.Preview = NewPreview(endRow, 4)
}

// SetStateLabel updates the state label text.
func (rv *RootView) SetStateLabel(text string) {
	if rv != nil && rv.StateLabel != nil {
		rv.StateLabel.Configure(Txt(text))
	}
}

// SetSample shows the decoded sample ID and where it leads.
func (rv *RootView) SetSample(id, link string) {
	if rv == nil || rv.SampleLabel == nil {
		return
	}
	text := "Sample: " + id
	if link != "" {
		text += "  ->  " + link
	}
	rv.SampleLabel.Configure(Txt(text))
}

// SetFailure shows msg; an empty msg clears the label. Try Again is enabled
// only for retryable failures.
func (rv *RootView) SetFailure(msg string, retryable bool) {
	if rv == nil || rv.FailureLabel == nil {
		return
	}
	rv.FailureLabel.Configure(Txt(msg), Foreground(theme.FailureColor(retryable)))
	state := "disabled"
	if msg != "" && retryable {
		state = "normal"
	}
	if rv.retryBtn != nil {
		rv.retryBtn.Configure(State(state))
	}
}

func (rv *RootView) SetHint(hint string) {
	if rv != nil && rv.HintLabel != nil {
		rv.HintLabel.Configure(Txt(hint))
	}
}

// SetConfigEditable toggles config panel editability.
func (rv *RootView) SetConfigEditable(enabled bool) {
	if rv != nil && rv.ConfigPanel != nil {
		rv.ConfigPanel.SetEditable(enabled)
	}
}

// ConfigEditable redirects to SetConfigEditable to satisfy the scanner view.
func (rv *RootView) ConfigEditable(b bool) { rv.SetConfigEditable(b) }

// UpdatePreview proxies to the preview subview.
func (rv *RootView) UpdatePreview(img image.Image) {
	if rv != nil && rv.Preview != nil {
		rv.Preview.UpdatePreview(img)
	}
}

// PreviewReset clears the preview canvas.
func (rv *RootView) PreviewReset() {
	if rv != nil && rv.Preview != nil {
		rv.Preview.Reset()
	}
}

func (rv *RootView) SetCameraTime(current, total time.Duration) {
	if rv != nil && rv.Stats != nil {
		rv.Stats.SetCameraTime(current, total)
	}
}

func (rv *RootView) SetCounters(opens, results, failures uint64) {
	if rv != nil && rv.Stats != nil {
		rv.Stats.SetCounters(opens, results, failures)
	}
}
