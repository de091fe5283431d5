package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Duration accepts either a Go duration string ("30m") or integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

// jsonConfig mirrors Config for file overlays. Pointer fields distinguish
// "absent" from "zero" so a file only overrides what it names.
type jsonConfig struct {
	Port        *string  `json:"port"`
	DatabaseURL *string  `json:"database_url"`
	LogLevel    *string  `json:"log_level"`
	CORSOrigins []string `json:"cors_origins"`

	JWTSecret    *string   `json:"jwt_secret"`
	JWTExpiresIn *Duration `json:"jwt_expires_in"`
	JWTNoExpiry  *bool     `json:"jwt_no_expiry"`

	ExchangeRateAPIURL  *string   `json:"exchange_rate_api_url"`
	ExchangeRateAPIKey  *string   `json:"exchange_rate_api_key"`
	RateCacheTTL        *Duration `json:"rate_cache_ttl"`
	RateProviderTimeout *Duration `json:"rate_provider_timeout"`

	AIProvider      *string   `json:"ai_provider"`
	AIModel         *string   `json:"ai_model"`
	OpenAIAPIKey    *string   `json:"openai_api_key"`
	AnthropicAPIKey *string   `json:"anthropic_api_key"`
	AITimeout       *Duration `json:"ai_timeout"`

	S3Bucket    *string `json:"s3_bucket"`
	S3Region    *string `json:"s3_region"`
	S3Endpoint  *string `json:"s3_endpoint"`
	S3AccessKey *string `json:"s3_access_key"`
	S3SecretKey *string `json:"s3_secret_key"`

	ImportWorkers *int `json:"import_workers"`
}

func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	var c jsonConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}

	setStr(&cfg.Port, c.Port)
	setStr(&cfg.DatabaseURL, c.DatabaseURL)
	setStr(&cfg.LogLevel, c.LogLevel)
	if len(c.CORSOrigins) > 0 {
		cfg.CORSOrigins = c.CORSOrigins
	}

	setStr(&cfg.JWTSecret, c.JWTSecret)
	setDur(&cfg.JWTExpiresIn, c.JWTExpiresIn)
	if c.JWTNoExpiry != nil {
		cfg.JWTNoExpiry = *c.JWTNoExpiry
	}

	setStr(&cfg.ExchangeRateAPIURL, c.ExchangeRateAPIURL)
	setStr(&cfg.ExchangeRateAPIKey, c.ExchangeRateAPIKey)
	setDur(&cfg.RateCacheTTL, c.RateCacheTTL)
	setDur(&cfg.RateProviderTimeout, c.RateProviderTimeout)

	setStr(&cfg.AIProvider, c.AIProvider)
	setStr(&cfg.AIModel, c.AIModel)
	setStr(&cfg.OpenAIAPIKey, c.OpenAIAPIKey)
	setStr(&cfg.AnthropicAPIKey, c.AnthropicAPIKey)
	setDur(&cfg.AITimeout, c.AITimeout)

	setStr(&cfg.S3Bucket, c.S3Bucket)
	setStr(&cfg.S3Region, c.S3Region)
	setStr(&cfg.S3Endpoint, c.S3Endpoint)
	setStr(&cfg.S3AccessKey, c.S3AccessKey)
	setStr(&cfg.S3SecretKey, c.S3SecretKey)

	if c.ImportWorkers != nil {
		if *c.ImportWorkers < 1 {
			return fmt.Errorf("parse config %q: import_workers must be positive", path)
		}
		cfg.ImportWorkers = *c.ImportWorkers
	}
	return nil
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDur(dst *time.Duration, v *Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
