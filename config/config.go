// Package config defines the settings of the preview service
package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/roboticeyes/arpreview/convert"
)

// Config defines all the settings of the preview service
type Config struct {
	Listen           string         `json:"Listen"`
	Debug            bool           `json:"Debug"`
	LogJSON          bool           `json:"LogJSON"`
	MaxUploadSize    int64          `json:"MaxUploadSize"` // bytes
	CORSOrigin       string         `json:"CORSOrigin"`
	VaultFile        string         `json:"VaultFile"` // empty disables token validation
	VaultPollSeconds int            `json:"VaultPollSeconds"`
	Converter        convert.Config `json:"Converter"`
}

// Default returns the configuration used for every value not set in a file
func Default() Config {
	return Config{
		Listen:           ":8000",
		MaxUploadSize:    64 << 20,
		CORSOrigin:       "*",
		VaultPollSeconds: 1,
		Converter:        convert.DefaultConfig(),
	}
}

// Load reads a JSON configuration file on top of the defaults
func Load(file string) (Config, error) {
	cfg := Default()
	if file == "" {
		return cfg, nil
	}

	buf, err := ioutil.ReadFile(file)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("cannot parse %s: %w", file, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the values which have no usable fallback
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("Listen must not be empty")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MaxUploadSize must be positive")
	}
	if c.Converter.URL == "" {
		return fmt.Errorf("Converter.URL must not be empty")
	}
	if c.Converter.MaxImageSide < 0 {
		return fmt.Errorf("Converter.MaxImageSide must not be negative")
	}
	return nil
}

// VaultPollInterval returns how often the vault file is checked for changes
func (c Config) VaultPollInterval() time.Duration {
	if c.VaultPollSeconds <= 0 {
		return time.Second
	}
	return time.Duration(c.VaultPollSeconds) * time.Second
}
