package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/agentcore/orchestrator/pkg/core"
)

// SupervisorStrategy selects how Supervisor picks an agent for a given
// input, per spec §4.3.
type SupervisorStrategy string

const (
	StrategyKeyword SupervisorStrategy = "keyword"
	StrategyLLM     SupervisorStrategy = "llm"
)

// AgentDescriptor is one named agent a Supervisor can route to. Name,
// Description, and Capabilities feed the keyword strategy's scoring,
// grounded on the teacher's router.go keyword-trigger matching and
// supervisor.go's "enumerate available specialists" prompt building.
type AgentDescriptor struct {
	Name         string
	Description  string
	Capabilities []string
	Step         core.Step
}

// LLMSelector asks a provider to choose the best agent name for input;
// on error or an unparseable response, Supervisor falls back to the
// keyword strategy, per spec §4.3.
type LLMSelector func(ctx context.Context, input string, agents []AgentDescriptor) (agentName string, err error)

// Supervisor routes input to one of N named agents via a strategy,
// copying the chosen sub-agent's toolCalls/toolResults verbatim and
// recording selected_agent + routing_confidence metadata.
type Supervisor struct {
	Name          string
	Agents        []AgentDescriptor
	Strategy      SupervisorStrategy
	MinConfidence float64
	Fallback      core.Step
	LLMSelect     LLMSelector
}

func (s *Supervisor) StepName() string {
	if s.Name != "" {
		return s.Name
	}
	return "supervisor"
}

// Execute implements core.Step.
func (s *Supervisor) Execute(ctx context.Context, input string, rc *core.RunContext) (core.StepResult, error) {
	start := time.Now()

	agent, confidence, err := s.selectAgent(ctx, input)
	if err != nil {
		if s.Fallback != nil {
			result, ferr := s.Fallback.Execute(ctx, input, rc)
			if ferr != nil {
				return result, ferr
			}
			result = result.WithMetadata("selected_agent", core.String("fallback"))
			result.Duration = time.Since(start)
			return result, nil
		}
		return core.StepResult{}, err
	}

	result, execErr := agent.Step.Execute(ctx, input, rc)
	if execErr != nil {
		if s.Fallback != nil {
			fbResult, ferr := s.Fallback.Execute(ctx, input, rc)
			if ferr != nil {
				return fbResult, ferr
			}
			fbResult = fbResult.WithMetadata("selected_agent", core.String("fallback"))
			fbResult = fbResult.WithMetadata("routing_confidence", core.Double(confidence))
			fbResult.Duration = time.Since(start)
			return fbResult, nil
		}
		return result, execErr
	}

	result = result.WithMetadata("selected_agent", core.String(agent.Name))
	result = result.WithMetadata("routing_confidence", core.Double(confidence))
	result.Duration = time.Since(start)
	return result, nil
}

func (s *Supervisor) selectAgent(ctx context.Context, input string) (AgentDescriptor, float64, error) {
	if s.Strategy == StrategyLLM && s.LLMSelect != nil {
		name, err := s.LLMSelect(ctx, input, s.Agents)
		if err == nil {
			for _, a := range s.Agents {
				if a.Name == name {
					return a, 1.0, nil
				}
			}
		}
		// parse failure or unknown name: fall through to keyword strategy
	}
	return s.selectByKeyword(input)
}

func (s *Supervisor) selectByKeyword(input string) (AgentDescriptor, float64, error) {
	lowerInput := strings.ToLower(input)
	var best AgentDescriptor
	bestScore := -1.0
	found := false

	for _, a := range s.Agents {
		keywords := agentKeywords(a)
		if len(keywords) == 0 {
			continue
		}
		matches := 0
		for _, kw := range keywords {
			if strings.Contains(lowerInput, kw) {
				matches++
			}
		}
		score := float64(matches) / float64(len(keywords))
		if score > bestScore {
			bestScore = score
			best = a
			found = true
		}
	}

	if !found || bestScore < s.MinConfidence {
		return AgentDescriptor{}, 0, core.InternalError("supervisor: no agent met the minimum routing confidence")
	}
	return best, bestScore, nil
}

func agentKeywords(a AgentDescriptor) []string {
	var words []string
	for _, field := range append([]string{a.Name, a.Description}, a.Capabilities...) {
		for _, w := range strings.Fields(strings.ToLower(field)) {
			w = strings.Trim(w, ".,!?;:")
			if w != "" {
				words = append(words, w)
			}
		}
	}
	return dedupe(words)
}

func dedupe(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := words[:0]
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
