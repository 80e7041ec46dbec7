// Package config loads the reading-layout configuration the CLI hands
// to the pagination engine. It is an external concern, kept out of the
// engine's own surface: internal/layout never imports this package, and
// this package only ever produces a layout.Config value to pass in.
package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/pageflow/internal/layout"
)

// Config is the on-disk/env-overridable shape of a reading layout.
// Fields mirror layout.Config's material inputs one-to-one.
type Config struct {
	FontFamily             string  `mapstructure:"font_family" yaml:"font_family"`
	FontSize               float64 `mapstructure:"font_size" yaml:"font_size"`
	LineHeight             float64 `mapstructure:"line_height" yaml:"line_height"`
	MaxWidth               float64 `mapstructure:"max_width" yaml:"max_width"`
	MaxHeight              float64 `mapstructure:"max_height" yaml:"max_height"`
	ApplyHeightFirstAscent bool    `mapstructure:"apply_height_first_ascent" yaml:"apply_height_first_ascent"`
	ApplyHeightLastDescent bool    `mapstructure:"apply_height_last_descent" yaml:"apply_height_last_descent"`
	ScaleFactor            float64 `mapstructure:"scale_factor" yaml:"scale_factor"`
	CacheDir               string  `mapstructure:"cache_dir" yaml:"cache_dir"`
}

// DefaultConfig mirrors layout.DefaultConfig() in the shape the CLI's
// config file / env overrides work against.
func DefaultConfig() Config {
	d := layout.DefaultConfig()
	return Config{
		FontFamily:             d.FontFamily,
		FontSize:               d.FontSize,
		LineHeight:             d.LineHeight,
		MaxWidth:               d.MaxWidth,
		MaxHeight:              d.MaxHeight,
		ApplyHeightFirstAscent: d.ApplyHeightFirstAscent,
		ApplyHeightLastDescent: d.ApplyHeightLastDescent,
		ScaleFactor:            1.0,
		CacheDir:               "",
	}
}

// Layout converts the loaded Config into the layout.Config the engine
// consumes, wiring ScaleFactor into a layout.LinearScaler.
func (c Config) Layout() layout.Config {
	var scaler layout.Scaler = layout.IdentityScaler{}
	if c.ScaleFactor != 0 && c.ScaleFactor != 1.0 {
		scaler = layout.LinearScaler{Factor: c.ScaleFactor}
	}
	return layout.Config{
		FontFamily:             c.FontFamily,
		FontSize:               c.FontSize,
		LineHeight:             c.LineHeight,
		MaxWidth:               c.MaxWidth,
		MaxHeight:              c.MaxHeight,
		ApplyHeightFirstAscent: c.ApplyHeightFirstAscent,
		ApplyHeightLastDescent: c.ApplyHeightLastDescent,
		Scaler:                 scaler,
	}
}

// Manager handles loading and hot-reloading the layout configuration
// from a YAML file and its environment-variable overrides.
type Manager struct {
	mu     sync.RWMutex
	config *Config
}

// NewManager creates a Manager and loads its initial configuration from
// cfgFile (or the default search path if empty).
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{}
	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg
	return cm, nil
}

func (cm *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	viper.SetDefault("font_family", defaults.FontFamily)
	viper.SetDefault("font_size", defaults.FontSize)
	viper.SetDefault("line_height", defaults.LineHeight)
	viper.SetDefault("max_width", defaults.MaxWidth)
	viper.SetDefault("max_height", defaults.MaxHeight)
	viper.SetDefault("apply_height_first_ascent", defaults.ApplyHeightFirstAscent)
	viper.SetDefault("apply_height_last_descent", defaults.ApplyHeightLastDescent)
	viper.SetDefault("scale_factor", defaults.ScaleFactor)
	viper.SetDefault("cache_dir", defaults.CacheDir)

	viper.SetEnvPrefix("PAGEFLOW")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pageflow")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.pageflow")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: read config file: %w", err)
		}
	}
	return nil
}

func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// WatchConfig enables hot-reloading; onChange is invoked with the
// freshly reloaded configuration whenever the backing file changes.
func (cm *Manager) WatchConfig(onChange func(*Config)) {
	viper.OnConfigChange(func(fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}
		cm.mu.Lock()
		cm.config = cfg
		cm.mu.Unlock()
		if onChange != nil {
			onChange(cfg)
		}
	})
	viper.WatchConfig()
}

// WriteDefault writes the default configuration to path as YAML.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal default: %w", err)
	}
	header := []byte("# pageflow reading-layout configuration\n\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
