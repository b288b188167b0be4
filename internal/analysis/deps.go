// Package analysis turns plan pages, collected page extractions or a project
// description into a reconciled construction budget.
package analysis

import (
	"fmt"
	"time"

	"github.com/Veraticus/plancost/internal/completion"
	"github.com/Veraticus/plancost/internal/imagesource"
	"github.com/Veraticus/plancost/internal/llm"
	"github.com/Veraticus/plancost/internal/materials"
	"github.com/Veraticus/plancost/internal/merge"
	"github.com/Veraticus/plancost/internal/metrics"
	"github.com/Veraticus/plancost/internal/normalize"
	"github.com/Veraticus/plancost/internal/pricing"
)

// Deps contains all dependencies required by the analysis engine.
type Deps struct {
	// LLM performs the vision and text calls. Merge mode does not need it.
	LLM llm.Client
	// Images fetches plan pages. Only plan mode needs it.
	Images imagesource.Source
	// Pricing holds benchmarks, tax rates and trade materials.
	Pricing *pricing.Table
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	if d.Pricing == nil {
		return fmt.Errorf("pricing table dependency is required")
	}
	if err := d.Pricing.Validate(); err != nil {
		return fmt.Errorf("pricing table: %w", err)
	}
	return nil
}

// Config holds configuration options for the analysis engine.
type Config struct {
	// Policy decides how a category seen on several pages is combined.
	// Nil means MAX everywhere.
	Policy merge.Policy
	// MaxAttempts bounds the model calls per page.
	MaxAttempts int
	// RetryDelay is multiplied by the attempt number between attempts.
	RetryDelay time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		RetryDelay:  2 * time.Second,
	}
}

// Engine runs the three analysis modes.
type Engine struct {
	deps      Deps
	config    Config
	prompts   *PromptBuilder
	merger    *merge.Merger
	completer *completion.Engine
	filter    *materials.Filter
}

// NewEngine creates a new analysis engine with the provided dependencies.
func NewEngine(deps Deps) (*Engine, error) {
	return NewEngineWithConfig(deps, nil)
}

// NewEngineWithConfig creates an analysis engine with custom configuration.
func NewEngineWithConfig(deps Deps, config *Config) (*Engine, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}

	cfg := *DefaultConfig()
	if config != nil {
		cfg.Policy = config.Policy
		if config.MaxAttempts > 0 {
			cfg.MaxAttempts = config.MaxAttempts
		}
		if config.RetryDelay > 0 {
			cfg.RetryDelay = config.RetryDelay
		}
	}

	prompts, err := NewPromptBuilder()
	if err != nil {
		return nil, err
	}

	return &Engine{
		deps:      deps,
		config:    cfg,
		prompts:   prompts,
		merger:    merge.NewMerger(cfg.Policy, normalize.CategoryKey),
		completer: completion.NewEngine(deps.Pricing),
		filter:    materials.NewFilter(deps.Pricing),
	}, nil
}
