package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/plancost/internal/analysis"
	"github.com/Veraticus/plancost/internal/common"
	"github.com/Veraticus/plancost/internal/imagesource"
	"github.com/Veraticus/plancost/internal/llm"
	"github.com/Veraticus/plancost/internal/merge"
	"github.com/Veraticus/plancost/internal/normalize"
	"github.com/Veraticus/plancost/internal/pricing"
	"github.com/spf13/viper"
)

// SetDefaults registers the default value of every setting.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("pipeline.retry_delay", 2*time.Second)
	v.SetDefault("pipeline.max_image_bytes", imagesource.DefaultMaxBytes)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
}

// LoadLLMConfig builds the vision model client settings. The API key comes
// from llm.api_key, then from the provider's usual environment variable.
func LoadLLMConfig() (llm.Config, error) {
	provider := strings.ToLower(viper.GetString("llm.provider"))
	if provider == "" {
		provider = "anthropic"
	}

	config := llm.Config{
		Provider:    provider,
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		Timeout:     viper.GetDuration("llm.timeout"),
	}

	if config.APIKey == "" {
		switch provider {
		case "anthropic":
			config.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			config.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			return llm.Config{}, fmt.Errorf("%w: unknown llm provider %q", common.ErrInvalidConfig, provider)
		}
	}
	if config.APIKey == "" {
		return llm.Config{}, fmt.Errorf("%w: %s API key not found in config (llm.api_key) or environment",
			common.ErrMissingConfig, provider)
	}

	return config, nil
}

// Pipeline holds the settings of the analysis pipeline.
type Pipeline struct {
	Analysis      *analysis.Config
	PricingFile   string
	MaxImageBytes int64
}

// LoadPipelineConfig reads the pipeline settings. Categories listed under
// pipeline.additive_categories are summed across pages instead of taking
// the maximum.
func LoadPipelineConfig() (Pipeline, error) {
	cfg := analysis.DefaultConfig()
	if viper.IsSet("pipeline.max_attempts") {
		cfg.MaxAttempts = viper.GetInt("pipeline.max_attempts")
	}
	if viper.IsSet("pipeline.retry_delay") {
		cfg.RetryDelay = viper.GetDuration("pipeline.retry_delay")
	}
	if cfg.MaxAttempts < 1 {
		return Pipeline{}, fmt.Errorf("%w: pipeline.max_attempts must be at least 1", common.ErrInvalidConfig)
	}
	if cfg.RetryDelay < 0 {
		return Pipeline{}, fmt.Errorf("%w: pipeline.retry_delay cannot be negative", common.ErrInvalidConfig)
	}

	if names := viper.GetStringSlice("pipeline.additive_categories"); len(names) > 0 {
		cfg.Policy = merge.NewAdditivePolicy(normalize.CategoryKey, names...)
	}

	maxBytes := viper.GetInt64("pipeline.max_image_bytes")
	if maxBytes < 0 {
		return Pipeline{}, fmt.Errorf("%w: pipeline.max_image_bytes cannot be negative", common.ErrInvalidConfig)
	}

	return Pipeline{
		Analysis:      cfg,
		PricingFile:   ExpandPath(viper.GetString("pipeline.pricing_file")),
		MaxImageBytes: maxBytes,
	}, nil
}

// LoadPricingTable returns the table named by pipeline.pricing_file, or the
// built-in Québec table.
func LoadPricingTable() (*pricing.Table, error) {
	return pricing.Resolve(ExpandPath(viper.GetString("pipeline.pricing_file")))
}

// LoadS3Config reads the S3 settings. ok is false when S3 is not enabled.
func LoadS3Config() (cfg imagesource.S3Config, ok bool) {
	if !viper.GetBool("s3.enabled") {
		return imagesource.S3Config{}, false
	}
	return imagesource.S3Config{
		Region:          viper.GetString("s3.region"),
		Endpoint:        viper.GetString("s3.endpoint"),
		AccessKeyID:     viper.GetString("s3.access_key_id"),
		SecretAccessKey: viper.GetString("s3.secret_access_key"),
		UsePathStyle:    viper.GetBool("s3.use_path_style"),
	}, true
}

// NewImageSource builds the image router, with S3 when enabled.
func NewImageSource(ctx context.Context, maxBytes int64) (imagesource.Source, error) {
	var s3Source imagesource.Source
	if cfg, ok := LoadS3Config(); ok {
		src, err := imagesource.NewS3Source(ctx, cfg, maxBytes)
		if err != nil {
			return nil, err
		}
		s3Source = src
	}
	return imagesource.NewRouter(maxBytes, s3Source), nil
}

// Server holds the HTTP API settings.
type Server struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// TLS serves HTTPS with a self-signed certificate kept in TLSDir.
	TLS      bool
	TLSDir   string
	TLSHosts []string
}

// LoadServerConfig reads the HTTP API settings.
func LoadServerConfig() Server {
	s := Server{
		Address:         viper.GetString("server.address"),
		ReadTimeout:     viper.GetDuration("server.read_timeout"),
		WriteTimeout:    viper.GetDuration("server.write_timeout"),
		ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
		TLS:             viper.GetBool("server.tls"),
		TLSDir:          ExpandPath(viper.GetString("server.tls_dir")),
		TLSHosts:        viper.GetStringSlice("server.tls_hosts"),
	}
	if s.Address == "" {
		s.Address = ":8080"
	}
	if s.TLSDir == "" {
		if dir, err := ConfigDir(); err == nil {
			s.TLSDir = filepath.Join(dir, "certs")
		}
	}
	return s
}
