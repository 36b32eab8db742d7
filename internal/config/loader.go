package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix         = "LINECHAT"
	envConfigDir      = "LINECHAT_CONFIG_DIR"
	defaultConfigName = "linechat.yaml"
)

// Load resolves configuration and reports the file it used.
// Precedence: defaults < config file < LINECHAT_* env vars. Callers apply flag
// overrides on top with UpdateFrom.
// A missing file at the resolved path is created from the defaults.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()
	path := resolveConfigPath(explicitPath)

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	if err := setDefaults(v, cfg); err != nil {
		return cfg, path, err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
	case errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist):
		if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
			logWarn(logger, writeErr, path, "could not write default config")
		} else if logger != nil {
			logger.Info().Str("path", path).Msg("wrote default config")
		}
	default:
		return cfg, path, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, path, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

// setDefaults registers every yaml key of cfg so AutomaticEnv can see it.
func setDefaults(v *viper.Viper, cfg Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	var keys map[string]any
	if err := yaml.Unmarshal(raw, &keys); err != nil {
		return fmt.Errorf("decode defaults: %w", err)
	}
	for key, value := range keys {
		v.SetDefault(key, value)
	}
	return nil
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}
	if dir := os.Getenv(envConfigDir); dir != "" {
		return filepath.Join(dir, defaultConfigName)
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, defaultConfigName)
	}
	return defaultConfigName
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func logWarn(logger *zerolog.Logger, err error, path, msg string) {
	if logger == nil {
		return
	}
	logger.Warn().Err(err).Str("path", path).Msg(msg)
}
