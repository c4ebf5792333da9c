package sessionguard

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the policy knobs after the file is read.
const (
	EnvMaxAttempts    = "SESSIONGUARD_LOCKOUT_MAX_ATTEMPTS"
	EnvLockoutMinutes = "SESSIONGUARD_LOCKOUT_MINUTES"
	EnvMaxSessions    = "SESSIONGUARD_MAX_SESSIONS"
)

// LoadConfig reads a YAML file over DefaultConfig, applies environment
// overrides and validates the result. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	overrides := []struct {
		name string
		dst  *int
	}{
		{EnvMaxAttempts, &cfg.Lockout.MaxAttempts},
		{EnvLockoutMinutes, &cfg.Lockout.DurationMinutes},
		{EnvMaxSessions, &cfg.Session.MaxPerAccount},
	}
	for _, o := range overrides {
		raw, ok := lookup(o.name)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", o.name, err)
		}
		*o.dst = v
	}
	return nil
}
