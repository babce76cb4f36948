package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// ErrConfigValueNotSet occurs when a config file omits a required key
var ErrConfigValueNotSet = errors.New("config value is not set")

// File Config implementation backed by a viper-parsed config file
type File struct {
	v *viper.Viper
}

// NewFile reads the config file at path. Format follows the extension
// (yaml, toml, json).
func NewFile(path string) (*File, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("timezone", "Local")

	err := v.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return &File{v: v}, nil
}

// BadgerPath for the database directory
func (f *File) BadgerPath() (string, error) {
	val := f.v.GetString("badger_path")
	if val == "" {
		return "", fmt.Errorf("badger_path missing from config file: %w", ErrConfigValueNotSet)
	}

	return val, nil
}

// PushoverAPIToken getter
func (f *File) PushoverAPIToken() (string, error) {
	val := f.v.GetString("pushover_api_token")
	if val == "" {
		return "", fmt.Errorf("pushover_api_token missing from config file: %w", ErrConfigValueNotSet)
	}

	return val, nil
}

// Timezone name for schedule wall-clock math
func (f *File) Timezone() (string, error) {
	return f.v.GetString("timezone"), nil
}
