package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/battmock/battmock/internal/battery"
	"github.com/battmock/battmock/internal/scenario"
)

// envPrefix scopes environment overrides, e.g. BATTMOCK_CONTROLLERS_HTTP_ADDR.
const envPrefix = "BATTMOCK_"

type Config struct {
	DeviceID string        `json:"device_id"`
	Tick     time.Duration `json:"tick"`

	Controllers struct {
		HTTP   HTTPConfig   `json:"http"`
		MQTT   MQTTConfig   `json:"mqtt"`
		Modbus ModbusConfig `json:"modbus"`
	} `json:"controllers"`

	Battery scenario.ParamsConfig `json:"battery"`
	Usage   scenario.UsageConfig  `json:"usage"`
}

type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

type MQTTConfig struct {
	Enabled         bool          `json:"enabled"`
	BrokerURL       string        `json:"broker_url"`
	ClientID        string        `json:"client_id"`
	BaseTopic       string        `json:"base_topic"`
	QoS             byte          `json:"qos"`
	RetainSnapshot  bool          `json:"retain_snapshot"`
	PublishInterval time.Duration `json:"publish_interval"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
}

type ModbusConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
	UnitID  byte   `json:"unit_id"`
}

// LoadConfig layers defaults, an optional config file (.yaml/.yml/.json) and
// BATTMOCK_* environment overrides, in that order. A missing file falls back
// to defaults.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Config{}, "json"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			// Config file missing entirely is fine; anything else is not.
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("load config %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyTransform(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env overrides: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
}

// envKeyTransform maps BATTMOCK-stripped environment keys to config paths:
// DEVICE_ID -> device_id, CONTROLLERS_HTTP_ADDR -> controllers.http.addr,
// BATTERY_CAPACITY_AH -> battery.capacity_ah.
func envKeyTransform(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return ""
	}
	parts := strings.Split(key, "_")
	switch parts[0] {
	case "controllers":
		if len(parts) >= 3 {
			return "controllers." + parts[1] + "." + strings.Join(parts[2:], "_")
		}
	case "battery", "usage":
		if len(parts) >= 2 {
			return parts[0] + "." + strings.Join(parts[1:], "_")
		}
	}
	return key
}

func applyDefaults(cfg *Config) {
	if cfg.DeviceID == "" {
		cfg.DeviceID = "default"
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.Controllers.HTTP.Addr == "" {
		cfg.Controllers.HTTP.Addr = ":8080"
	}
	if !cfg.Controllers.HTTP.Enabled && !cfg.Controllers.MQTT.Enabled && !cfg.Controllers.Modbus.Enabled {
		cfg.Controllers.HTTP.Enabled = true
	}
	if cfg.Controllers.MQTT.PublishInterval <= 0 {
		cfg.Controllers.MQTT.PublishInterval = time.Second
	}
	if cfg.Controllers.Modbus.UnitID == 0 {
		cfg.Controllers.Modbus.UnitID = 1
	}
}

// Params resolves the configured battery constants over the defaults.
func (c Config) Params() battery.Params {
	return c.Battery.Params()
}

// InitialUsage resolves the workload the device starts with.
func (c Config) InitialUsage() battery.UsageInput {
	return c.Usage.Usage()
}
