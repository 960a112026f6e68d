package config

import (
	"errors"
)

// Validate reports every setting that would stop the service from serving.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Gemini.APIKey == "" {
		errs = append(errs, errors.New("gemini.api_key is empty (set it in the config file or GEMINI_API_KEY)"))
	}
	if c.Gemini.TextModel == "" || c.Gemini.ChatModel == "" {
		errs = append(errs, errors.New("gemini text and chat models must be set"))
	}
	if c.Assessment.GenerationTimeout <= 0 {
		errs = append(errs, errors.New("assessment.generation_timeout must be positive"))
	}
	if c.Assessment.SettleDelay < 0 {
		errs = append(errs, errors.New("assessment.settle_delay must not be negative"))
	}
	if c.Assessment.ImageWorkers < 1 {
		errs = append(errs, errors.New("assessment.image_workers must be at least 1"))
	}
	if c.Assessment.ImageCacheSize < 1 {
		errs = append(errs, errors.New("assessment.image_cache_size must be at least 1"))
	}
	if c.Documents.Path == "" {
		errs = append(errs, errors.New("documents.path is empty"))
	}
	return errors.Join(errs...)
}
