package server

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aditya4503/YATRIK/internal/gps"
	"github.com/Aditya4503/YATRIK/internal/mapview"
	"github.com/Aditya4503/YATRIK/internal/quest"
	"github.com/Aditya4503/YATRIK/internal/visitlog"
)

// Config holds all server configuration.
type Config struct {
	mu sync.RWMutex

	// Position source
	Location LocationConfig `yaml:"location" json:"location"`

	// Checkpoints and conquest radius
	Quest QuestConfig `yaml:"quest" json:"quest"`

	// Interactive map widget
	Map mapview.Config `yaml:"map" json:"map"`

	// Visit log
	Logging visitlog.Config `yaml:"logging" json:"logging"`

	// Server
	Server ServerConfig `yaml:"server" json:"server"`

	path string // file path for save/load
}

type LocationConfig struct {
	Type         string `yaml:"type" json:"type"`          // "browser", "nmea", "demo"
	PortPath     string `yaml:"port_path" json:"portPath"` // e.g. /dev/ttyGPS
	BaudRate     int    `yaml:"baud_rate" json:"baudRate"`
	HighAccuracy bool   `yaml:"high_accuracy" json:"highAccuracy"`
	TimeoutMs    int    `yaml:"timeout_ms" json:"timeoutMs"`       // Max wait for first fix
	MaximumAgeMs int    `yaml:"maximum_age_ms" json:"maximumAgeMs"` // Oldest usable sample
}

type QuestConfig struct {
	ThresholdM      float64 `yaml:"threshold_m" json:"thresholdM"`
	CheckpointsFile string  `yaml:"checkpoints_file" json:"checkpointsFile"` // Empty = built-in seed
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listenAddr"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Location: LocationConfig{
			Type:         "browser",
			PortPath:     "/dev/ttyGPS",
			BaudRate:     9600,
			HighAccuracy: true,
			TimeoutMs:    10000,
			MaximumAgeMs: 60000,
		},
		Quest: QuestConfig{
			ThresholdM: quest.DefaultThresholdMeters,
		},
		Map: mapview.DefaultConfig(),
		Logging: visitlog.Config{
			Enabled: false,
			Path:    "/var/log/yatrik",
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
	}
}

// LoadConfig reads config from a YAML file, then applies .env and environment
// variable overrides. Falls back to defaults if YAML not found.
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[config] no config at %s, using defaults", path)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("[config] error parsing %s: %v, using defaults", path, err)
		cfg = DefaultConfig()
		cfg.path = path
	} else {
		log.Printf("[config] loaded from %s", path)
	}

	// Load .env file from the same directory as the config, or from CWD
	envPaths := []string{
		filepath.Join(filepath.Dir(path), ".env"),
		".env",
	}
	for _, ep := range envPaths {
		loadEnvFile(ep)
	}

	cfg.applyEnvOverrides()
	return cfg
}

// loadEnvFile reads a simple KEY=VALUE .env file and sets os env vars.
func loadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	log.Printf("[config] loading .env from %s", path)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		// Real env takes precedence
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

// applyEnvOverrides reads environment variables and overrides config values.
// Supported: LOCATION_TYPE, GPS_PORT, GPS_BAUD, LISTEN_ADDR, MAPBOX_TOKEN,
// QUEST_THRESHOLD_M, CHECKPOINTS_FILE, LOG_ENABLED, LOG_PATH
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LOCATION_TYPE"); v != "" {
		c.Location.Type = v
	}
	if v := os.Getenv("GPS_PORT"); v != "" {
		c.Location.PortPath = v
	}
	if v := os.Getenv("GPS_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Location.BaudRate = n
		}
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("MAPBOX_TOKEN"); v != "" {
		c.Map.Token = v
	}
	if v := os.Getenv("QUEST_THRESHOLD_M"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			c.Quest.ThresholdM = n
		}
	}
	if v := os.Getenv("CHECKPOINTS_FILE"); v != "" {
		c.Quest.CheckpointsFile = v
	}
	if v := os.Getenv("LOG_ENABLED"); v != "" {
		c.Logging.Enabled = v == "1" || v == "true" || v == "yes"
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		c.Logging.Path = v
	}
}

// WatchOptions converts the location settings for the providers.
func (c *Config) WatchOptions() gps.WatchOptions {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return gps.WatchOptions{
		HighAccuracy: c.Location.HighAccuracy,
		Timeout:      time.Duration(c.Location.TimeoutMs) * time.Millisecond,
		MaximumAge:   time.Duration(c.Location.MaximumAgeMs) * time.Millisecond,
	}
}

// MonitorConfig is what each new quest session runs with.
func (c *Config) MonitorConfig() quest.MonitorConfig {
	opts := c.WatchOptions()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return quest.MonitorConfig{ThresholdMeters: c.Quest.ThresholdM, Watch: opts}
}

// MapConfig returns the widget settings.
func (c *Config) MapConfig() mapview.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Map
}

// Save writes the config to its YAML file.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		c.path = "/etc/yatrik/config.yaml"
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0644)
}

// ToJSON serializes config for the API.
func (c *Config) ToJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(c)
}

// UpdateFromJSON applies a partial JSON config update by deep-merging
// incoming fields into the existing config. Fields not present in the
// incoming JSON are preserved.
func (c *Config) UpdateFromJSON(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	currentBytes, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal current config: %w", err)
	}
	var base map[string]interface{}
	if err := json.Unmarshal(currentBytes, &base); err != nil {
		return fmt.Errorf("unmarshal current config: %w", err)
	}

	var patch map[string]interface{}
	if err := json.Unmarshal(data, &patch); err != nil {
		return fmt.Errorf("unmarshal patch: %w", err)
	}

	deepMerge(base, patch)

	merged, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("marshal merged config: %w", err)
	}
	var next Config
	if err := json.Unmarshal(merged, &next); err != nil {
		return fmt.Errorf("unmarshal merged config: %w", err)
	}
	if next.Quest.ThresholdM <= 0 {
		return fmt.Errorf("quest.thresholdM must be positive, got %v", next.Quest.ThresholdM)
	}
	c.Location = next.Location
	c.Quest = next.Quest
	c.Map = next.Map
	c.Logging = next.Logging
	c.Server = next.Server
	return nil
}

// deepMerge recursively merges src into dst. For nested maps, values are
// merged rather than replaced. For all other types, src overwrites dst.
func deepMerge(dst, src map[string]interface{}) {
	for key, srcVal := range src {
		if srcMap, ok := srcVal.(map[string]interface{}); ok {
			if dstMap, ok := dst[key].(map[string]interface{}); ok {
				deepMerge(dstMap, srcMap)
				continue
			}
		}
		dst[key] = srcVal
	}
}

func (c *Config) loggingEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Logging.Enabled
}
