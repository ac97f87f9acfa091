package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Capture sources.
const (
	SourceCamera = "camera"
	SourceScreen = "screen"
)

// Config holds runtime configuration for the scanner and its hosts.
// Fields may be loaded from a YAML/JSON file and overridden by HERBSCAN_*
// environment variables or command-line flags.
type Config struct {
	Debug bool `json:"debug" yaml:"debug" mapstructure:"debug"`

	// Capture source
	Source     string `json:"source" yaml:"source" mapstructure:"source"`
	DeviceDir  string `json:"device_dir" yaml:"device_dir" mapstructure:"device_dir"`
	RearDevice string `json:"rear_device" yaml:"rear_device" mapstructure:"rear_device"`

	PreferredWidth  int `json:"preferred_width" yaml:"preferred_width" mapstructure:"preferred_width"`
	PreferredHeight int `json:"preferred_height" yaml:"preferred_height" mapstructure:"preferred_height"`

	// Session timing
	ReadyTimeoutMS    int `json:"ready_timeout_ms" yaml:"ready_timeout_ms" mapstructure:"ready_timeout_ms"`
	MountRetryDelayMS int `json:"mount_retry_delay_ms" yaml:"mount_retry_delay_ms" mapstructure:"mount_retry_delay_ms"`
	PassIntervalMS    int `json:"pass_interval_ms" yaml:"pass_interval_ms" mapstructure:"pass_interval_ms"`
	AutoCloseDelayMS  int `json:"auto_close_delay_ms" yaml:"auto_close_delay_ms" mapstructure:"auto_close_delay_ms"`

	// Decoder
	Formats         []string `json:"formats" yaml:"formats" mapstructure:"formats"`
	TryHarder       bool     `json:"try_harder" yaml:"try_harder" mapstructure:"try_harder"`
	ScanRegionRatio float64  `json:"scan_region_ratio" yaml:"scan_region_ratio" mapstructure:"scan_region_ratio"`

	// Selection rectangle for the screen source
	SelectionX int `json:"selection_x" yaml:"selection_x" mapstructure:"selection_x"`
	SelectionY int `json:"selection_y" yaml:"selection_y" mapstructure:"selection_y"`
	SelectionW int `json:"selection_w" yaml:"selection_w" mapstructure:"selection_w"`
	SelectionH int `json:"selection_h" yaml:"selection_h" mapstructure:"selection_h"`

	// Bridge
	ListenAddr     string   `json:"listen_addr" yaml:"listen_addr" mapstructure:"listen_addr"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`
	SampleURL      string   `json:"sample_url" yaml:"sample_url" mapstructure:"sample_url"`
}

// Defaults.
const (
	DefaultSource            = SourceCamera
	DefaultDeviceDir         = "/dev"
	DefaultPreferredWidth    = 1280
	DefaultPreferredHeight   = 720
	DefaultReadyTimeoutMS    = 8000
	DefaultMountRetryDelayMS = 200
	DefaultPassIntervalMS    = 16
	DefaultAutoCloseDelayMS  = 500
	DefaultScanRegionRatio   = 0.6
	DefaultListenAddr        = "127.0.0.1:8765"
	DefaultSampleURL         = "/dashboard/{id}"
)

// DefaultFormats is the symbology list used when none is configured.
var DefaultFormats = []string{
	"code_128", "code_39", "code_93", "ean_13", "ean_8", "qr_code", "upc_a", "upc_e",
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Source:            DefaultSource,
		DeviceDir:         DefaultDeviceDir,
		PreferredWidth:    DefaultPreferredWidth,
		PreferredHeight:   DefaultPreferredHeight,
		ReadyTimeoutMS:    DefaultReadyTimeoutMS,
		MountRetryDelayMS: DefaultMountRetryDelayMS,
		PassIntervalMS:    DefaultPassIntervalMS,
		AutoCloseDelayMS:  DefaultAutoCloseDelayMS,
		Formats:           append([]string(nil), DefaultFormats...),
		ScanRegionRatio:   DefaultScanRegionRatio,
		ListenAddr:        DefaultListenAddr,
		SampleURL:         DefaultSampleURL,
	}
}

// Validate clamps/normalizes values to safe ranges. It only fails for
// values that cannot be repaired.
func (c *Config) Validate() error {
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	switch c.Source {
	case "":
		c.Source = DefaultSource
	case SourceCamera, SourceScreen:
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	if c.DeviceDir == "" {
		c.DeviceDir = DefaultDeviceDir
	}
	if c.PreferredWidth < 0 {
		c.PreferredWidth = 0
	}
	if c.PreferredHeight < 0 {
		c.PreferredHeight = 0
	}
	if c.ReadyTimeoutMS <= 0 {
		c.ReadyTimeoutMS = DefaultReadyTimeoutMS
	}
	if c.MountRetryDelayMS <= 0 {
		c.MountRetryDelayMS = DefaultMountRetryDelayMS
	}
	if c.PassIntervalMS <= 0 {
		c.PassIntervalMS = DefaultPassIntervalMS
	}
	if c.AutoCloseDelayMS <= 0 {
		c.AutoCloseDelayMS = DefaultAutoCloseDelayMS
	}
	if len(c.Formats) == 0 {
		c.Formats = append([]string(nil), DefaultFormats...)
	}
	for i, f := range c.Formats {
		c.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	if c.ScanRegionRatio < 0 || c.ScanRegionRatio > 1 {
		c.ScanRegionRatio = DefaultScanRegionRatio
	}
	if c.SelectionW < 0 || c.SelectionH < 0 {
		c.SelectionX, c.SelectionY, c.SelectionW, c.SelectionH = 0, 0, 0, 0
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.SampleURL == "" {
		c.SampleURL = DefaultSampleURL
	}
	return nil
}

// ReadyTimeout returns ReadyTimeoutMS as a duration.
func (c *Config) ReadyTimeout() time.Duration { return ms(c.ReadyTimeoutMS) }

// MountRetryDelay returns MountRetryDelayMS as a duration.
func (c *Config) MountRetryDelay() time.Duration { return ms(c.MountRetryDelayMS) }

// PassInterval returns PassIntervalMS as a duration.
func (c *Config) PassInterval() time.Duration { return ms(c.PassIntervalMS) }

// AutoCloseDelay returns AutoCloseDelayMS as a duration.
func (c *Config) AutoCloseDelay() time.Duration { return ms(c.AutoCloseDelayMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// SampleLink expands the {id} placeholder of SampleURL.
func (c *Config) SampleLink(id string) string {
	return strings.ReplaceAll(c.SampleURL, "{id}", id)
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
