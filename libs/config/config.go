// Package config reads service settings from the environment, optionally
// seeded by a dotenv file (CONFIG_FILE, default ".env").
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Source wraps a viper instance. Environment variables always win over the
// dotenv file.
type Source struct {
	v *viper.Viper
}

// Load builds a Source. A missing file is not an error.
func Load(file string) *Source {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("env")
	}
	v.AutomaticEnv()
	_ = v.ReadInConfig()
	return &Source{v: v}
}

var (
	defaultOnce sync.Once
	defaultSrc  *Source
)

// Default returns the process-wide source.
func Default() *Source {
	defaultOnce.Do(func() {
		file := os.Getenv("CONFIG_FILE")
		if file == "" {
			file = ".env"
		}
		defaultSrc = Load(file)
	})
	return defaultSrc
}

func (s *Source) String(key, fallback string) string {
	v := strings.TrimSpace(s.v.GetString(key))
	if v == "" {
		return fallback
	}
	return v
}

func (s *Source) RequiredString(key string) (string, error) {
	v := s.String(key, "")
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func (s *Source) Port(key, fallback string) (string, error) {
	v := s.String(key, fallback)
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("%s must be a valid TCP port (got %q)", key, v)
	}
	return v, nil
}

func (s *Source) Int(key string, fallback int) (int, error) {
	raw := s.String(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got %q)", key, raw)
	}
	return n, nil
}

func (s *Source) Bool(key string, fallback bool) bool {
	raw := s.String(key, "")
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}

func (s *Source) Duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := s.String(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s or 5m (got %q)", key, raw)
	}
	return d, nil
}

// List splits a comma separated value, dropping empty items.
func (s *Source) List(key, fallback string) []string {
	var out []string
	for _, item := range strings.Split(s.String(key, fallback), ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func String(key, fallback string) string { return Default().String(key, fallback) }

func RequiredString(key string) (string, error) { return Default().RequiredString(key) }

func Port(key, fallback string) (string, error) { return Default().Port(key, fallback) }

func Int(key string, fallback int) (int, error) { return Default().Int(key, fallback) }

func Bool(key string, fallback bool) bool { return Default().Bool(key, fallback) }

func Duration(key string, fallback time.Duration) (time.Duration, error) {
	return Default().Duration(key, fallback)
}

func List(key, fallback string) []string { return Default().List(key, fallback) }
