package view

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/soocke/herbscan/config"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// ConfigPanel encapsulates the configuration form widgets and apply logic.
// It owns its widgets and writes back into *config.Config on ApplyChanges.
type ConfigPanel interface {
	Build(startRow int) (endRow int) // constructs widgets starting at startRow, returns next free row
	SetEditable(enabled bool)
	ApplyChanges() // parses widget text into underlying config and persists
}

type configPanel struct {
	cfg      *config.Config
	cfgPath  string
	logger   *slog.Logger
	applyBtn *ButtonWidget
	widgets  map[string]*TextWidget // keyed by config key
	applied  func(config.Config)
}

// NewConfigPanel creates the view bound to cfg. applied, if set, receives a
// copy of every configuration that passed validation.
func NewConfigPanel(cfg *config.Config, cfgPath string, logger *slog.Logger, applied func(config.Config)) ConfigPanel {
	return &configPanel{cfg: cfg, cfgPath: cfgPath, logger: logger, widgets: make(map[string]*TextWidget), applied: applied}
}

func (v *configPanel) Build(startRow int) (row int) {
	c := v.cfg
	row = startRow
	makeRow := func(id, label, value string) {
		lbl := Label(Txt(label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := Text(Height(1), Width(24))
		Grid(w, Row(row), Column(1), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		w.Delete("1.0", END)
		w.Insert("1.0", value)
		v.widgets[id] = w
		row++
	}
	makeRow("source", "Source (camera/screen)", c.Source)
	makeRow("rear_device", "Rear Device", c.RearDevice)
	makeRow("preferred_width", "Preferred Width", strconv.Itoa(c.PreferredWidth))
	makeRow("preferred_height", "Preferred Height", strconv.Itoa(c.PreferredHeight))
	makeRow("ready_timeout_ms", "Ready Timeout (ms)", strconv.Itoa(c.ReadyTimeoutMS))
	makeRow("pass_interval_ms", "Pass Interval (ms)", strconv.Itoa(c.PassIntervalMS))
	makeRow("auto_close_delay_ms", "Auto Close Delay (ms)", strconv.Itoa(c.AutoCloseDelayMS))
	makeRow("formats", "Formats (comma separated)", strings.Join(c.Formats, ","))
	makeRow("try_harder", "Try Harder (true/false)", fmt.Sprintf("%t", c.TryHarder))
	makeRow("scan_region_ratio", "Scan Region (0-1)", fmt.Sprintf("%.2f", c.ScanRegionRatio))
	makeRow("sample_url", "Sample URL", c.SampleURL)
	v.applyBtn = Button(Txt("Apply Changes"), Command(func() { v.ApplyChanges() }))
	Grid(v.applyBtn, Row(row), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	row++
	return row
}

func (v *configPanel) SetEditable(enabled bool) {
	state := "disabled"
	if enabled {
		state = "normal"
	}
	for _, w := range v.widgets {
		if w != nil {
			w.Configure(State(state))
		}
	}
	if v.applyBtn != nil {
		v.applyBtn.Configure(State(state))
	}
}

func (v *configPanel) text(id string) (string, bool) {
	w := v.widgets[id]
	if w == nil {
		return "", false
	}
	return strings.TrimSpace(strings.Join(w.Get("1.0", END), "")), true
}

func (v *configPanel) ApplyChanges() {
	if v.cfg == nil {
		return
	}
	cfg := *v.cfg // copy
	cfg.Formats = append([]string(nil), v.cfg.Formats...)
	assignInt := func(id string, dst *int) {
		if s, ok := v.text(id); ok {
			if i, err := strconv.Atoi(s); err == nil {
				*dst = i
			}
		}
	}
	assignString := func(id string, dst *string) {
		if s, ok := v.text(id); ok && s != "" {
			*dst = s
		}
	}
	assignString("source", &cfg.Source)
	if s, ok := v.text("rear_device"); ok {
		cfg.RearDevice = s
	}
	assignInt("preferred_width", &cfg.PreferredWidth)
	assignInt("preferred_height", &cfg.PreferredHeight)
	assignInt("ready_timeout_ms", &cfg.ReadyTimeoutMS)
	assignInt("pass_interval_ms", &cfg.PassIntervalMS)
	assignInt("auto_close_delay_ms", &cfg.AutoCloseDelayMS)
	if s, ok := v.text("formats"); ok && s != "" {
		cfg.Formats = splitList(s)
	}
	if s, ok := v.text("try_harder"); ok {
		if b, ok := parseBoolLoose(s); ok {
			cfg.TryHarder = b
		}
	}
	if s, ok := v.text("scan_region_ratio"); ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			cfg.ScanRegionRatio = f
		}
	}
	assignString("sample_url", &cfg.SampleURL)
	if err := cfg.Validate(); err != nil {
		if v.logger != nil {
			v.logger.Warn("config rejected", "error", err)
		}
		return
	}
	*v.cfg = cfg
	if v.applied != nil {
		v.applied(cfg)
	}
	if err := v.cfg.Save(v.cfgPath); err != nil {
		if v.logger != nil {
			v.logger.Error("config save failed", "error", err)
		}
	} else {
		if v.logger != nil {
			v.logger.Info("config saved", "path", v.cfgPath)
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBoolLoose(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "on", "t":
		return true, true
	case "false", "0", "no", "n", "off", "f":
		return false, true
	default:
		return false, false
	}
}
