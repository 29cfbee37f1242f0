// Command agentcore runs a single agent turn loop against a scripted
// provider, prints the final output, and logs a run summary, demonstrating how
// internal/agentloop, internal/registry, internal/trace, and
// internal/agentcfg wire together. It is a demonstration harness, not a
// production entry point — concrete provider/channel adapters and a
// full CLI surface are out of this core's scope (see SPEC_FULL.md §4.12).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentcore/orchestrator/internal/agentcfg"
	"github.com/agentcore/orchestrator/internal/agentloop"
	"github.com/agentcore/orchestrator/internal/provider"
	"github.com/agentcore/orchestrator/internal/registry"
	"github.com/agentcore/orchestrator/internal/trace"
	"github.com/agentcore/orchestrator/pkg/core"
)

func main() {
	configPath := flag.String("config", "", "path to an agentcfg YAML document (optional)")
	input := flag.String("input", "What is 21 * 2?", "user input to run through the agent loop")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := defaultConfig()
	if *configPath != "" {
		loaded, err := agentcfg.Load(*configPath)
		if err != nil {
			logger.Error("loading config", "error", err)
			os.Exit(1)
		}
		cfg = *loaded
	}

	agent := buildAgent(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := agent.Run(ctx, *input, nil)
	if err != nil {
		ce, ok := core.IsCoreError(err)
		if ok {
			logger.Error("run failed", "kind", ce.Kind, "message", ce.Message)
		} else {
			logger.Error("run failed", "error", err)
		}
		os.Exit(1)
	}

	fmt.Println(result.Output)
	logger.Info("run completed",
		"iterations", result.Iterations,
		"tool_calls", len(result.ToolCalls),
		"duration", result.Duration,
	)
}

func defaultConfig() agentcfg.Config {
	return agentcfg.Config{
		Agent:   agentloop.DefaultConfiguration(),
		Tracing: agentcfg.TracingConfig{Kind: "console"},
		Logging: agentcfg.LoggingConfig{Level: "info", Format: "text"},
	}
}

// buildAgent assembles an Agent around a Scripted provider pre-loaded
// with a deterministic tool-call-then-answer script, and a calculator
// tool, so the binary is runnable with no external dependencies.
func buildAgent(cfg agentcfg.Config, logger *slog.Logger) *agentloop.Agent {
	p := provider.NewScripted("demo")
	p.QueueResponse(provider.InferenceResponse{
		ToolCalls: []core.ToolCall{{
			ToolName:  "calculator",
			Arguments: map[string]core.Value{"expression": core.String("21 * 2")},
		}},
		FinishReason: provider.FinishToolCall,
	})
	p.QueueResponse(provider.InferenceResponse{
		Content:      "The answer is 42.",
		FinishReason: provider.FinishCompleted,
	})

	reg := registry.New()
	_ = reg.Register(calculatorTool{})

	agent := agentloop.New(p, reg, cfg.Agent)
	agent.Logger = logger
	agent.Tracer = buildTracer(cfg.Tracing, logger)
	return agent
}

func buildTracer(cfg agentcfg.TracingConfig, logger *slog.Logger) core.Tracer {
	switch cfg.Kind {
	case "buffered":
		return trace.NewBuffered()
	case "noop":
		return trace.NoOp{}
	case "oslog":
		return trace.NewOSLog(logger)
	case "otel":
		t, _, err := trace.NewOTel(cfg.OTel)
		if err != nil {
			logger.Warn("otel tracer init failed, falling back to console", "error", err)
			return trace.NewConsole(logger)
		}
		return t
	default:
		return trace.NewConsole(logger)
	}
}

// calculatorTool is a trivial demonstration tool; production tool
// implementations live outside this core (see SPEC_FULL.md §1).
type calculatorTool struct{}

func (calculatorTool) Schema() core.ToolSchema {
	return core.ToolSchema{
		Name:        "calculator",
		Description: "evaluates a simple arithmetic expression",
		Parameters: []core.ToolParameter{
			{Name: "expression", Type: core.ParamString, Required: true},
		},
	}
}

func (calculatorTool) IsEnabled() bool { return true }

func (calculatorTool) Execute(ctx context.Context, args map[string]core.Value) (core.Value, error) {
	return core.String("= " + args["expression"].ToString()), nil
}
