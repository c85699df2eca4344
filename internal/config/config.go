package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DataDir    string `yaml:"data_dir"`
	ItemsPath  string `yaml:"items_path"`

	TickRateHz     int      `yaml:"tick_rate_hz"`
	Worlds         []string `yaml:"worlds"`
	ShopContainers []string `yaml:"shop_containers"`

	LockWaitMs   int  `yaml:"lock_wait_ms"`
	KeepArchives int  `yaml:"keep_archives"`
	TradeLog     bool `yaml:"trade_log"`
	BroadcastMs  int  `yaml:"broadcast_ms"`

	Display Display `yaml:"display"`

	ReconcileEveryTicks uint64 `yaml:"reconcile_every_ticks"`
	ValidateEveryTicks  uint64 `yaml:"validate_every_ticks"`
}

type Display struct {
	Enabled      bool    `yaml:"enabled"`
	ViewDistance float64 `yaml:"view_distance"`
	Height       float64 `yaml:"height"`
	Amplitude    float64 `yaml:"amplitude"`
	Frequency    float64 `yaml:"frequency"`
	SettleTicks  uint64  `yaml:"settle_ticks"`
}

func (c *Config) ApplyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	if c.LockWaitMs <= 0 {
		c.LockWaitMs = 500
	}
	if c.KeepArchives <= 0 {
		c.KeepArchives = 8
	}
	if c.BroadcastMs <= 0 {
		c.BroadcastMs = 1000
	}
	if c.ReconcileEveryTicks == 0 {
		c.ReconcileEveryTicks = 100
	}
	if c.ValidateEveryTicks == 0 {
		c.ValidateEveryTicks = 6000
	}
	if c.Display.ViewDistance <= 0 {
		c.Display.ViewDistance = 16
	}
}

// Load reads a yaml config file. A missing file is not an error: defaults
// apply.
func Load(path string) (Config, error) {
	var c Config
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.Display.Enabled = true
			c.ApplyDefaults()
			return c, nil
		}
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("config %s: %w", path, err)
	}
	c.ApplyDefaults()
	return c, nil
}
