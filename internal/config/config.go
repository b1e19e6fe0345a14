// Package config loads settings from a YAML file and LICOCR_-prefixed
// environment variables, env winning.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	OCR       OCRConfig       `mapstructure:"ocr"`
	Generate  GenerateConfig  `mapstructure:"generate"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Store     StoreConfig     `mapstructure:"store"`
	Validate  ValidateConfig  `mapstructure:"validate"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// MaxUploadMB bounds multipart upload size.
	MaxUploadMB int64 `mapstructure:"max_upload_mb"`
}

type OCRConfig struct {
	TesseractCmd     string `mapstructure:"tesseract_cmd"`
	PdftoppmCmd      string `mapstructure:"pdftoppm_cmd"`
	DPI              int    `mapstructure:"dpi"`
	Lang             string `mapstructure:"lang"`
	MaxParallelPages int    `mapstructure:"max_parallel_pages"`
}

type GenerateConfig struct {
	// Backend selects the model provider: "ollama", "gemini" or "none".
	Backend           string  `mapstructure:"backend"`
	OllamaURL         string  `mapstructure:"ollama_url"`
	OllamaModel       string  `mapstructure:"ollama_model"`
	GeminiAPIKey      string  `mapstructure:"gemini_api_key"`
	GeminiModel       string  `mapstructure:"gemini_model"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

type ExtractorConfig struct {
	LicensePrefix string `mapstructure:"license_prefix"`
	// Correct enables the deterministic cross-check of model output
	// against the OCR text.
	Correct bool `mapstructure:"correct"`
}

type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type ValidateConfig struct {
	LowConfidenceThreshold float64 `mapstructure:"low_confidence_threshold"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads the config file at path (optional) and applies env overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LICOCR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_mb", 16)

	v.SetDefault("ocr.tesseract_cmd", "tesseract")
	v.SetDefault("ocr.pdftoppm_cmd", "pdftoppm")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.lang", "eng")
	v.SetDefault("ocr.max_parallel_pages", 4)

	v.SetDefault("generate.backend", "ollama")
	v.SetDefault("generate.ollama_url", "http://localhost:11434")
	v.SetDefault("generate.ollama_model", "llama3:8b")
	v.SetDefault("generate.gemini_model", "gemini-2.0-flash")
	v.SetDefault("generate.timeout_seconds", 60)
	v.SetDefault("generate.requests_per_second", 1.0)

	v.SetDefault("extractor.license_prefix", "S")
	v.SetDefault("extractor.correct", true)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "licenses.db")

	v.SetDefault("validate.low_confidence_threshold", 0.7)

	v.SetDefault("log.level", "info")
}
