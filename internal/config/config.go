package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Run modes.
const (
	ModeHTTP = "http"
	ModeTerm = "term"
)

type Config struct {
	LogLevel          string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat         string        `yaml:"log-format" env:"LOG_FORMAT" env-default:"console"`
	Mode              string        `yaml:"mode" env:"MODE" env-default:"http"`
	HTTPAddr          string        `yaml:"http-addr" env:"HTTP_ADDR" env-default:":8080"`
	MaxGames          int           `yaml:"max-games" env:"MAX_GAMES" env-default:"1000"`
	HeartbeatInterval time.Duration `yaml:"heartbeat-interval" env:"HEARTBEAT_INTERVAL" env-default:"15s"`
}

var ErrUnknownMode = errors.New("unknown mode")

// Load reads the YAML file at path when it exists and applies env
// overrides. Without a file only env and defaults are used.
func Load(path string) (*Config, error) {
	conf := &Config{}

	var err error
	if _, statErr := os.Stat(path); path != "" && statErr == nil {
		err = cleanenv.ReadConfig(path, conf)
	} else if path != "" && !errors.Is(statErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat config file: %w", statErr)
	} else {
		err = cleanenv.ReadEnv(conf)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}

	if conf.Mode != ModeHTTP && conf.Mode != ModeTerm {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, conf.Mode)
	}
	return conf, nil
}
