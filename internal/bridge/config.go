package bridge

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sebr/bhyve-bridge/internal/bhyve"
	"github.com/spf13/viper"
)

// Config is the bridge configuration below the `bridge` key.
type Config struct {
	// device names to bridge, empty bridges everything
	Devices []string `mapstructure:"devices"`

	// mqtt topic layout
	TopicPrefix     string `mapstructure:"topic_prefix"`
	DiscoveryPrefix string `mapstructure:"discovery_prefix"`

	// delay enabled via the rain delay switch, in hours
	DefaultRainDelay int `mapstructure:"default_rain_delay"`

	// watering runtime used when a device reports no manual preset
	DefaultRuntime time.Duration `mapstructure:"default_runtime"`

	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	StatsInterval   time.Duration `mapstructure:"stats_every"`

	Debug   bool `json:"debug,omitempty"   mapstructure:"debug"`
	Verbose bool `json:"verbose,omitempty" mapstructure:"verbose"`
}

// loadConfig unmarshals the bridge configuration.
func loadConfig() (*Config, error) {
	config := &Config{}

	if err := viper.UnmarshalKey("bridge", config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("decoding bridge config failed: %w", err)
	}

	return config, nil
}

// bridged reports whether a device passes the configured allowlist. Both
// device ids and names are accepted.
func (c *Config) bridged(device *bhyve.Device) bool {
	if len(c.Devices) == 0 {
		return true
	}

	for _, entry := range c.Devices {
		if entry == device.ID || entry == device.Name {
			return true
		}
	}

	return false
}
