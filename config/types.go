package config

import "time"

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Assessment AssessmentConfig `mapstructure:"assessment"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Documents  DocumentsConfig  `mapstructure:"documents"`
	Prompts    PromptsConfig    `mapstructure:"prompts"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	WorkspaceHeader string        `mapstructure:"workspace_header"`
}

// RedisConfig selects the persistence backend. An empty Addr keeps state in
// process memory.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key"`
	TextModel  string `mapstructure:"text_model"`
	ChatModel  string `mapstructure:"chat_model"`
	ImageModel string `mapstructure:"image_model"`
}

type AssessmentConfig struct {
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
	ImageWorkers      int           `mapstructure:"image_workers"`
	ImageCacheSize    int           `mapstructure:"image_cache_size"`
	DragThreshold     float64       `mapstructure:"drag_threshold"`
}

type ChatConfig struct {
	DocumentBudget int `mapstructure:"document_budget"`
}

type DocumentsConfig struct {
	Path         string `mapstructure:"path"`
	MaxFileBytes int64  `mapstructure:"max_file_bytes"`
}

// PromptsConfig points at an optional prompt pack that replaces the
// embedded one.
type PromptsConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}
