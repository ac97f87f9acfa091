package app

import (
	"fmt"
	"log/slog"
	"time"

	tk "modernc.org/tk9.0"

	"github.com/soocke/herbscan/config"
	"github.com/soocke/herbscan/ui/theme"
)

const tick = 100 * time.Millisecond

type app struct {
	c       *Container
	afterID string
}

// NewApp prepares the main window. Widgets are created in Start.
func NewApp(title string, width, height int, cfg *config.Config, cfgPath string, logger *slog.Logger) *app {
	a := &app{c: BuildContainer(cfg, logger, cfgPath)}
	tk.App.WmTitle(title)
	tk.WmProtocol(tk.App, "WM_DELETE_WINDOW", a.exitHandler)
	tk.WmGeometry(tk.App, fmt.Sprintf("%dx%d+100+100", width, height))
	return a
}

// Start builds the layout, starts the update loop and blocks in the Tk
// event loop until the window is closed.
func (a *app) Start() {
	theme.InitStyles()
	rv := a.c.RootView
	rv.Build(
		func() { a.c.Scanner.Toggle() },
		func() { a.c.Scanner.Retry() },
		a.exitHandler,
	)
	a.c.MountView(a.scheduleUpdate)
	a.scheduleUpdate()
	tk.App.Wait()
}

func (a *app) exitHandler() {
	if a.afterID != "" {
		tk.TclAfterCancel(a.afterID)
		a.afterID = ""
	}
	a.c.Shutdown()
	tk.Destroy(tk.App)
}

// scheduleUpdate keeps presenter ticks on Tk's event loop thread.
func (a *app) scheduleUpdate() {
	a.afterID = tk.TclAfter(tick, func() { a.c.Loop.Tick() })
}
