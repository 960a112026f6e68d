package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Re-assign os.UserHomeDir to a variable so we can mock it in tests.
var osUserHomeDir = os.UserHomeDir

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.addr":                   ":8090",
		"server.read_timeout":           "30s",
		"server.write_timeout":          "5m",
		"server.shutdown_timeout":       "10s",
		"server.workspace_header":       "X-Pulse-Workspace",
		"redis.addr":                    "",
		"redis.username":                "",
		"redis.password":                "",
		"redis.db":                      0,
		"redis.key_prefix":              "pulse:",
		"gemini.api_key":                "",
		"gemini.text_model":             "gemini-2.5-flash",
		"gemini.chat_model":             "gemini-2.5-flash",
		"gemini.image_model":            "gemini-2.0-flash-preview-image-generation",
		"assessment.settle_delay":       "300ms",
		"assessment.generation_timeout": "90s",
		"assessment.image_workers":      4,
		"assessment.image_cache_size":   256,
		"assessment.drag_threshold":     100.0,
		"chat.document_budget":          32000,
		"documents.path":                "~/Pulse/data/documents.db",
		"documents.max_file_bytes":      10 << 20,
		"prompts.path":                  "",
		"log.level":                     "info",
		"log.development":               false,
	}
}

// expandPath resolves paths like "~/" to the user's home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := osUserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// DefaultPath is ~/Pulse/config/pulse.json.
func DefaultPath() (string, error) {
	return expandPath(filepath.Join("~/Pulse/config", "pulse.json"))
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file is created with default values. PULSE_* environment
// variables override file values, and GEMINI_API_KEY is honoured as well.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("gemini.api_key", "PULSE_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("could not bind environment: %w", err)
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeDefaults(path); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not decode config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("could not decode config file %s: %w", path, err)
	}

	docPath, err := expandPath(cfg.Documents.Path)
	if err != nil {
		return nil, err
	}
	cfg.Documents.Path = docPath
	promptPath, err := expandPath(cfg.Prompts.Path)
	if err != nil {
		return nil, err
	}
	cfg.Prompts.Path = promptPath

	return cfg, nil
}

func writeDefaults(path string) error {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("could not write default config file %s: %w", path, err)
	}
	return nil
}
