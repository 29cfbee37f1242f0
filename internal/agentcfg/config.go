// Package agentcfg loads the YAML configuration file that assembles an
// agentloop.Agent, grounded on the teacher's internal/config.Load (env
// expansion over a YAML document, struct defaults, post-load
// validation).
package agentcfg

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentcore/orchestrator/internal/agentloop"
	"github.com/agentcore/orchestrator/internal/trace"
)

// Config is the top-level document a deployment hands to cmd/agentcore.
type Config struct {
	Agent    agentloop.Configuration `yaml:"agent"`
	Options  OptionsConfig           `yaml:"options"`
	Tracing  TracingConfig           `yaml:"tracing"`
	Logging  LoggingConfig           `yaml:"logging"`
	Registry RegistryConfig          `yaml:"registry"`
}

// OptionsConfig mirrors provider.InferenceOptions with yaml tags; kept
// separate from the provider package so provider stays free of the
// config package's dependency on yaml.
type OptionsConfig struct {
	Temperature      float64  `yaml:"temperature"`
	TopP             float64  `yaml:"top_p"`
	TopK             int      `yaml:"top_k"`
	MaxTokens        int      `yaml:"max_tokens"`
	FrequencyPenalty float64  `yaml:"frequency_penalty"`
	PresencePenalty  float64  `yaml:"presence_penalty"`
	StopSequences    []string `yaml:"stop_sequences"`
}

// TracingConfig selects and configures one of internal/trace's Tracer
// kinds, mirroring the teacher's LoggingConfig{Level,Format} shape
// generalized to tracer selection.
type TracingConfig struct {
	// Kind selects the Tracer implementation: "console", "buffered",
	// "noop", "oslog", or "otel". Defaults to "console".
	Kind string        `yaml:"kind"`
	OTel trace.OTelConfig `yaml:"otel"`
}

// LoggingConfig holds the logging level and format, mirroring the
// teacher's LoggingConfig{Level,Format}. Load fills in its defaults;
// cmd/agentcore does not apply it to the logger it builds.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RegistryConfig holds tool-executor settings. Load fills in its
// defaults; cmd/agentcore does not apply it (the agent's executor takes
// its parallelism from agent.parallel_tool_calls).
type RegistryConfig struct {
	ParallelToolCalls bool          `yaml:"parallel_tool_calls"`
	ToolTimeout       time.Duration `yaml:"tool_timeout"`
}

// Load reads and parses a YAML config file, expanding ${VAR} references
// against the environment the way the teacher's config.Load does, then
// applies defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agentcfg: reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("agentcfg: parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	cfg.Agent = agentloop.DefaultConfiguration().Merge(cfg.Agent)
	if cfg.Tracing.Kind == "" {
		cfg.Tracing.Kind = "console"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Registry.ToolTimeout == 0 {
		cfg.Registry.ToolTimeout = 30 * time.Second
	}
}

// ValidationError collects every config problem found, mirroring the
// teacher's ConfigValidationError accumulate-then-report shape.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "agentcfg: config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validate(cfg *Config) error {
	var issues []string

	switch strings.ToLower(strings.TrimSpace(cfg.Tracing.Kind)) {
	case "console", "buffered", "noop", "oslog", "otel":
	default:
		issues = append(issues, fmt.Sprintf("tracing.kind must be one of console, buffered, noop, oslog, otel, got %q", cfg.Tracing.Kind))
	}
	if cfg.Agent.MaxIterations <= 0 {
		issues = append(issues, "agent.max_iterations must be > 0")
	}
	if cfg.Agent.SessionHistoryLimit < 0 {
		issues = append(issues, "agent.session_history_limit must be >= 0")
	}
	if cfg.Options.Temperature < 0 || cfg.Options.Temperature > 2 {
		issues = append(issues, "options.temperature must be within [0, 2]")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
