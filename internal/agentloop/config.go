package agentloop

// Configuration is spec §6's AgentConfiguration: the enumerated set of
// options the loop recognizes. Plain struct with yaml tags, grounded on
// the teacher's own config-loader convention (internal/skills/parser.go,
// cmd/nexus-edge/config.go) rather than a bespoke options type.
type Configuration struct {
	Name                string `yaml:"name"`
	MaxIterations       int    `yaml:"max_iterations"`
	SessionHistoryLimit int    `yaml:"session_history_limit"`
	ParallelToolCalls   bool   `yaml:"parallel_tool_calls"`
	NestHandoffHistory  bool   `yaml:"nest_handoff_history"`

	// DefaultTracingEnabled defaults to true per spec §6, so it must be
	// a pointer to tell "unset" apart from "explicitly disabled" —
	// the same *bool convention the teacher uses for its own
	// defaults-to-true flags (CommandsConfig.Enabled).
	DefaultTracingEnabled *bool `yaml:"default_tracing_enabled"`

	// PromptTokenBudget bounds the Memory.Context() call the loop makes
	// each BUILD_PROMPT phase. Not spec-enumerated by name but required
	// to drive §4.6's context(for query, tokenLimit) contract; defaults
	// to a generous budget when unset.
	PromptTokenBudget int `yaml:"prompt_token_budget"`
}

// TracingEnabled reports the effective value of DefaultTracingEnabled,
// treating an unset pointer as the spec's documented default (true).
func (c Configuration) TracingEnabled() bool {
	return c.DefaultTracingEnabled == nil || *c.DefaultTracingEnabled
}

// DefaultConfiguration returns spec §6's documented defaults.
func DefaultConfiguration() Configuration {
	return Configuration{
		Name:                "Agent",
		MaxIterations:       10,
		SessionHistoryLimit: 20,
		ParallelToolCalls:   false,
		NestHandoffHistory:  false,
		PromptTokenBudget:   4000,
	}
}

// sanitize fills a zero Name, MaxIterations and PromptTokenBudget with
// defaults and replaces a negative SessionHistoryLimit; a zero
// SessionHistoryLimit is kept. Mirrors the teacher's sanitizeLoopConfig
// pattern (internal/agent/loop.go).
func sanitize(cfg Configuration) Configuration {
	d := DefaultConfiguration()
	if cfg.Name == "" {
		cfg.Name = d.Name
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = d.MaxIterations
	}
	if cfg.SessionHistoryLimit < 0 {
		cfg.SessionHistoryLimit = d.SessionHistoryLimit
	}
	if cfg.PromptTokenBudget <= 0 {
		cfg.PromptTokenBudget = d.PromptTokenBudget
	}
	return cfg
}

// Merge overlays non-zero fields of override onto the receiver,
// returning a sanitized result. Used by agentcfg to layer a loaded YAML
// document's agent section over DefaultConfiguration().
func (c Configuration) Merge(override Configuration) Configuration {
	merged := c
	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.MaxIterations != 0 {
		merged.MaxIterations = override.MaxIterations
	}
	if override.SessionHistoryLimit != 0 {
		merged.SessionHistoryLimit = override.SessionHistoryLimit
	}
	merged.ParallelToolCalls = override.ParallelToolCalls
	merged.NestHandoffHistory = override.NestHandoffHistory
	if override.DefaultTracingEnabled != nil {
		merged.DefaultTracingEnabled = override.DefaultTracingEnabled
	}
	if override.PromptTokenBudget != 0 {
		merged.PromptTokenBudget = override.PromptTokenBudget
	}
	return sanitize(merged)
}
