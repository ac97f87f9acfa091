package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName = "herbscan"
	envPrefix  = "HERBSCAN"
)

// Load reads configuration from path (YAML or JSON, chosen by extension),
// HERBSCAN_* environment variables and defaults. An empty path searches the
// working directory and the user config dir for herbscan.yaml. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return finish(v)
		}
		v.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
			v.SetConfigType("yaml")
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, configName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return configName + ".yaml"
	}
	return filepath.Join(dir, configName, configName+".yaml")
}

func applyDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("debug", d.Debug)
	v.SetDefault("source", d.Source)
	v.SetDefault("device_dir", d.DeviceDir)
	v.SetDefault("rear_device", d.RearDevice)
	v.SetDefault("preferred_width", d.PreferredWidth)
	v.SetDefault("preferred_height", d.PreferredHeight)
	v.SetDefault("ready_timeout_ms", d.ReadyTimeoutMS)
	v.SetDefault("mount_retry_delay_ms", d.MountRetryDelayMS)
	v.SetDefault("pass_interval_ms", d.PassIntervalMS)
	v.SetDefault("auto_close_delay_ms", d.AutoCloseDelayMS)
	v.SetDefault("formats", d.Formats)
	v.SetDefault("try_harder", d.TryHarder)
	v.SetDefault("scan_region_ratio", d.ScanRegionRatio)
	v.SetDefault("selection_x", d.SelectionX)
	v.SetDefault("selection_y", d.SelectionY)
	v.SetDefault("selection_w", d.SelectionW)
	v.SetDefault("selection_h", d.SelectionH)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("sample_url", d.SampleURL)
}
