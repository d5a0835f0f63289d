// Package hostconfig loads eggctl settings from eggctl.yaml, EGGCTL_*
// environment variables and command line flags.
package hostconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/config"
)

// EnvPrefix is prepended to every environment override, e.g. EGGCTL_SERIAL_PORT.
const EnvPrefix = "EGGCTL"

// Keys
const (
	KeySpecies             = "species"
	KeyFlameBody           = "flame_body"
	KeyInitialEggChecks    = "initial_egg_checks"
	KeySubsequentEggChecks = "subsequent_egg_checks"
	KeyBoxes               = "boxes"
	KeySavePolicy          = "save_policy"
	KeyTablesDir           = "tables_dir"
	KeySerialPort          = "serial.port"
	KeySerialBaud          = "serial.baud"
	KeySerialTimeout       = "serial.timeout"
	KeyGadgetDevice        = "gadget.device"
	KeyGadgetInterval      = "gadget.interval"
	KeyLogLevel            = "log.level"
	KeyLogPretty           = "log.pretty"
)

// Config is the resolved host configuration.
type Config struct {
	Species             int          `mapstructure:"species"`
	FlameBody           bool         `mapstructure:"flame_body"`
	InitialEggChecks    int          `mapstructure:"initial_egg_checks"`
	SubsequentEggChecks int          `mapstructure:"subsequent_egg_checks"`
	Boxes               int          `mapstructure:"boxes"`
	SavePolicy          string       `mapstructure:"save_policy"`
	TablesDir           string       `mapstructure:"tables_dir"`
	Serial              SerialConfig `mapstructure:"serial"`
	Gadget              GadgetConfig `mapstructure:"gadget"`
	Log                 LogConfig    `mapstructure:"log"`
}

type SerialConfig struct {
	Port    string        `mapstructure:"port"`
	Baud    int           `mapstructure:"baud"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GadgetConfig struct {
	Device   string        `mapstructure:"device"`
	Interval time.Duration `mapstructure:"interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// SetDefaults registers every key so environment overrides resolve even when
// no config file exists.
func SetDefaults(v *viper.Viper) {
	d := config.DefaultSettings()
	v.SetDefault(KeySpecies, int(d.Species))
	v.SetDefault(KeyFlameBody, d.FlameBody())
	v.SetDefault(KeyInitialEggChecks, int(d.InitialEggChecks))
	v.SetDefault(KeySubsequentEggChecks, int(d.SubsequentEggChecks))
	v.SetDefault(KeyBoxes, int(d.Boxes))
	v.SetDefault(KeySavePolicy, d.SavePolicy.String())
	v.SetDefault(KeyTablesDir, "")
	v.SetDefault(KeySerialPort, "/dev/ttyACM0")
	v.SetDefault(KeySerialBaud, 115200)
	v.SetDefault(KeySerialTimeout, 2*time.Second)
	v.SetDefault(KeyGadgetDevice, "/dev/hidg0")
	v.SetDefault(KeyGadgetInterval, 8*time.Millisecond)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogPretty, true)
}

// Load reads the configuration into v and decodes it. An empty path searches
// the working directory and $HOME/.config/eggctl for eggctl.yaml; a missing
// file is only an error when path was given explicitly.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("eggctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "eggctl"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges the firmware encoding cannot hold.
func (c *Config) Validate() error {
	if c.Species < 1 || c.Species > 0xFFFF {
		return fmt.Errorf("%s out of range: %d", KeySpecies, c.Species)
	}
	for key, n := range map[string]int{
		KeyInitialEggChecks:    c.InitialEggChecks,
		KeySubsequentEggChecks: c.SubsequentEggChecks,
		KeyBoxes:               c.Boxes,
	} {
		if n < 0 || n > 0xFF {
			return fmt.Errorf("%s out of range: %d", key, n)
		}
	}
	if c.Boxes == 0 {
		return fmt.Errorf("%s must be at least 1", KeyBoxes)
	}
	if _, err := config.ParseSavePolicy(c.SavePolicy); err != nil {
		return fmt.Errorf("%s %q: %w", KeySavePolicy, c.SavePolicy, err)
	}
	if c.Gadget.Interval <= 0 {
		return fmt.Errorf("%s must be positive", KeyGadgetInterval)
	}
	return nil
}

// Settings converts the run keys to the firmware settings record.
func (c *Config) Settings() (config.Settings, error) {
	if err := c.Validate(); err != nil {
		return config.Settings{}, err
	}
	policy, _ := config.ParseSavePolicy(c.SavePolicy)

	s := config.Settings{
		Version:             config.CurrentVersion,
		Species:             uint16(c.Species),
		InitialEggChecks:    uint8(c.InitialEggChecks),
		SubsequentEggChecks: uint8(c.SubsequentEggChecks),
		Boxes:               uint8(c.Boxes),
		SavePolicy:          policy,
	}
	s.SetFlameBody(c.FlameBody)
	return s, nil
}
