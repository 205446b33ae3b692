// Package config provides configuration loading and validation for the agent.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/freecad-agent/internal/llm"
)

// LLMConfig selects the model provider and its retry budget.
type LLMConfig struct {
	Provider     string            `json:"provider,omitempty" yaml:"provider"`
	Model        string            `json:"model,omitempty" yaml:"model"`
	APIKey       string            `json:"api_key,omitempty" yaml:"api_key"`
	BaseURL      string            `json:"base_url,omitempty" yaml:"base_url"`
	ExtraHeaders map[string]string `json:"extra_headers,omitempty" yaml:"extra_headers"`

	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens"`
	Temperature float32 `json:"temperature,omitempty" yaml:"temperature"`

	MaxRetries            int     `json:"max_retries,omitempty" yaml:"max_retries"`
	InitialBackoffMS      int     `json:"initial_backoff_ms,omitempty" yaml:"initial_backoff_ms"`
	MaxBackoffMS          int     `json:"max_backoff_ms,omitempty" yaml:"max_backoff_ms"`
	BackoffFactor         float64 `json:"backoff_factor,omitempty" yaml:"backoff_factor"`
	RequestTimeoutSeconds int     `json:"request_timeout_seconds,omitempty" yaml:"request_timeout_seconds"`
}

// EngineConfig describes how to invoke FreeCAD. An empty ExecutablePath
// selects the deterministic simulation path.
type EngineConfig struct {
	ExecutablePath string `json:"executable_path,omitempty" yaml:"executable_path"`
	Headless       bool   `json:"headless" yaml:"headless"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds"`
}

// RendererConfig controls projection image generation.
type RendererConfig struct {
	Views  []string `json:"views,omitempty" yaml:"views"`
	Width  int      `json:"width,omitempty" yaml:"width"`
	Height int      `json:"height,omitempty" yaml:"height"`
}

// PipelineConfig controls the orchestration loop.
type PipelineConfig struct {
	MaxIterations                   int    `json:"max_iterations,omitempty" yaml:"max_iterations"`
	Workspace                       string `json:"workspace,omitempty" yaml:"workspace"`
	VisualReview                    bool   `json:"visual_review" yaml:"visual_review"`
	RequestAdditionalViewsOnFailure bool   `json:"request_additional_views_on_failure" yaml:"request_additional_views_on_failure"`
	// ReuseScriptOnViewRequest re-executes the previous script when the
	// reviewer only asked for more projections, instead of regenerating.
	ReuseScriptOnViewRequest bool `json:"reuse_script_on_view_request" yaml:"reuse_script_on_view_request"`
}

// Config is the immutable snapshot passed into a run. There is no process-wide
// mutable configuration state.
type Config struct {
	LLM      LLMConfig      `json:"llm" yaml:"llm"`
	Engine   EngineConfig   `json:"engine" yaml:"engine"`
	Renderer RendererConfig `json:"renderer" yaml:"renderer"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
}

// Default returns the configuration used when no file is provided: offline
// stub provider, simulated engine, four projection views.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    string(llm.ProviderStub),
			Model:       "gpt-4o-mini",
			MaxTokens:   2048,
			Temperature: 0.1,
			MaxRetries:  3,
		},
		Engine: EngineConfig{
			Headless:       true,
			TimeoutSeconds: 180,
		},
		Renderer: RendererConfig{
			Views:  []string{"isometric", "front", "right", "top"},
			Width:  1280,
			Height: 720,
		},
		Pipeline: PipelineConfig{
			MaxIterations:                   5,
			Workspace:                       "artifacts",
			VisualReview:                    true,
			RequestAdditionalViewsOnFailure: true,
		},
	}
}

// Load reads a configuration file (JSON or YAML by extension) on top of the
// defaults. An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", filepath.Ext(path))
	}

	return cfg, nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.Pipeline.MaxIterations < 1 {
		return fmt.Errorf("config error: 'pipeline.max_iterations' must be at least 1")
	}
	if c.Pipeline.Workspace == "" {
		return fmt.Errorf("config error: 'pipeline.workspace' must not be empty")
	}
	if c.Engine.TimeoutSeconds <= 0 {
		return fmt.Errorf("config error: 'engine.timeout_seconds' must be positive")
	}
	if c.Renderer.Width <= 0 || c.Renderer.Height <= 0 {
		return fmt.Errorf("config error: renderer dimensions must be positive")
	}
	if len(c.Renderer.Views) == 0 {
		return fmt.Errorf("config error: 'renderer.views' must name at least one view")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("config error: 'llm.max_retries' must be non-negative")
	}
	return nil
}

// ClientConfig converts the LLM section into the model client configuration,
// filling unset retry parameters from the client defaults.
func (c *Config) ClientConfig() llm.Config {
	out := llm.DefaultConfig()
	out.Provider = llm.Provider(c.LLM.Provider)
	if c.LLM.Model != "" {
		out.Model = c.LLM.Model
	}
	out.APIKey = c.LLM.APIKey
	out.BaseURL = c.LLM.BaseURL
	out.ExtraHeaders = c.LLM.ExtraHeaders
	if c.LLM.MaxTokens > 0 {
		out.MaxTokens = c.LLM.MaxTokens
	}
	if c.LLM.Temperature > 0 {
		out.Temperature = c.LLM.Temperature
	}
	out.MaxRetries = c.LLM.MaxRetries
	if c.LLM.InitialBackoffMS > 0 {
		out.InitialBackoff = time.Duration(c.LLM.InitialBackoffMS) * time.Millisecond
	}
	if c.LLM.MaxBackoffMS > 0 {
		out.MaxBackoff = time.Duration(c.LLM.MaxBackoffMS) * time.Millisecond
	}
	if c.LLM.BackoffFactor > 0 {
		out.BackoffFactor = c.LLM.BackoffFactor
	}
	if c.LLM.RequestTimeoutSeconds > 0 {
		out.RequestTimeout = time.Duration(c.LLM.RequestTimeoutSeconds) * time.Second
	}
	return out
}
