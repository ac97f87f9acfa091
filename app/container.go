package app

import (
	"log/slog"

	"github.com/soocke/herbscan/config"
	"github.com/soocke/herbscan/domain/capture"
	"github.com/soocke/herbscan/domain/decode"
	"github.com/soocke/herbscan/domain/scan"
	"github.com/soocke/herbscan/ui/model"
	"github.com/soocke/herbscan/ui/presenter"
	"github.com/soocke/herbscan/ui/view"
)

// Container assembles models, services, presenters and the root view.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Scan    *model.ScanModel
	Times   *model.CameraTimeModel
	Surface *capture.Surface
	Slot    *capture.Slot
	Devices scan.MediaDevices
	Session *scan.Session
	Tuning  *decode.Tuning

	RootView *view.RootView

	// Presenters
	Scanner *presenter.ScannerPresenter
	Status  *presenter.StatusPresenter
	Stats   *presenter.StatsPresenter
	Preview *presenter.PreviewPresenter
	Hotplug *presenter.HotplugWatcher
	Configs *presenter.ConfigPresenter
	Loop    *presenter.Loop
}

// BuildContainer constructs the session and models. The surface slot stays
// empty until the view has been built and MountView is called.
func BuildContainer(cfg *config.Config, logger *slog.Logger, cfgPath string) *Container {
	c := &Container{Config: cfg, Logger: logger}
	c.Scan = &model.ScanModel{}
	c.Times = model.NewCameraTimeModel()
	c.Surface = capture.NewSurface(logger)
	c.Slot = &capture.Slot{}
	c.Devices = capture.NewSource(cfg, logger)

	if _, ok := c.Devices.(*capture.Devices); ok {
		c.Hotplug = presenter.NewHotplugWatcher(logger, cfg.DeviceDir, func() {
			c.Scan.SetHint("Camera connected, press Try Again")
		})
	}

	opts := capture.SessionOptions(cfg, logger)
	opts.OnResult = c.onResult
	opts.OnError = c.onError
	c.Tuning = decode.NewTuning(decode.FromConfig(cfg))
	c.Session = scan.NewSession(c.Devices, c.Slot, c.Tuning.Factory(), opts)
	c.Configs = presenter.NewConfigPresenter(c.Session, c.Tuning, logger)

	c.RootView = view.NewRootView(cfg, cfgPath, logger)
	c.RootView.OnConfigApplied = c.Configs.Apply
	return c
}

// MountView wires the presenters to the built root view and makes the
// preview surface available to the session.
func (c *Container) MountView(schedule func()) {
	c.Scanner = presenter.NewScannerPresenter(c.Scan, c.Session, c.RootView)
	c.Status = presenter.NewStatusPresenter(c.Scan, c.RootView, c.Config.SampleLink, func(scan.Phase) {
		c.Scanner.Settle()
	})
	c.Stats = presenter.NewStatsPresenter(c.Times, c.Surface, c.Session, c.RootView)
	c.Preview = presenter.NewPreviewPresenter(c.Surface, c.RootView, func() float64 { return c.Tuning.Load().RegionRatio })
	c.Loop = presenter.NewLoop(c.Status, c.Stats, c.Preview, schedule)

	c.Session.AddTransitionListener(c.Status.OnTransition)
	c.Session.AddListener(c.Hotplug.OnPhase)
	c.Session.AddListener(func(_ string, _, next scan.Phase) {
		if next == scan.PhaseInitializing {
			c.Scan.SetHint("")
		}
	})
	c.Slot.Mount(c.Surface)
}

// Shutdown closes the session and unmounts the surface.
func (c *Container) Shutdown() {
	c.Session.Close()
	c.Slot.Unmount()
	c.Hotplug.OnPhase("", scan.PhaseIdle, scan.PhaseClosed)
}

func (c *Container) onResult(text string) {
	c.Logger.Info("navigate to sample", "id", text, "url", c.Config.SampleLink(text))
}

func (c *Container) onError(d scan.ErrorDetail) {
	c.Hotplug.OnFailure(d)
}
