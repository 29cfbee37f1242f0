package workflow

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/agentcore/orchestrator/pkg/core"
)

// Condition evaluates a routing predicate against the current input and
// run context. Grounded on the teacher's router.go trigger-evaluation
// shape (evaluateTrigger dispatching per trigger type), generalized to
// the spec's simpler condition vocabulary.
type Condition func(input string, rc *core.RunContext) bool

// Contains matches when input contains substr.
func Contains(substr string) Condition {
	return func(input string, rc *core.RunContext) bool { return strings.Contains(input, substr) }
}

// MatchesRegex matches when input matches the given regular expression.
// An invalid pattern never matches.
func MatchesRegex(pattern string) Condition {
	re, err := regexp.Compile(pattern)
	return func(input string, rc *core.RunContext) bool {
		if err != nil {
			return false
		}
		return re.MatchString(input)
	}
}

// StartsWith matches on a string prefix.
func StartsWith(prefix string) Condition {
	return func(input string, rc *core.RunContext) bool { return strings.HasPrefix(input, prefix) }
}

// EndsWith matches on a string suffix.
func EndsWith(suffix string) Condition {
	return func(input string, rc *core.RunContext) bool { return strings.HasSuffix(input, suffix) }
}

// LengthInRange matches when len(input) is within [min, max] inclusive.
func LengthInRange(min, max int) Condition {
	return func(input string, rc *core.RunContext) bool {
		n := len(input)
		return n >= min && n <= max
	}
}

// ContextHas matches when the RunContext carries a value under key.
func ContextHas(key core.ContextKey) Condition {
	return func(input string, rc *core.RunContext) bool { return rc != nil && rc.ContextHas(key) }
}

// Always never fails to match.
func Always() Condition { return func(string, *core.RunContext) bool { return true } }

// Never never matches.
func Never() Condition { return func(string, *core.RunContext) bool { return false } }

// And matches when every sub-condition matches.
func And(conds ...Condition) Condition {
	return func(input string, rc *core.RunContext) bool {
		for _, c := range conds {
			if !c(input, rc) {
				return false
			}
		}
		return true
	}
}

// Or matches when any sub-condition matches.
func Or(conds ...Condition) Condition {
	return func(input string, rc *core.RunContext) bool {
		for _, c := range conds {
			if c(input, rc) {
				return true
			}
		}
		return false
	}
}

// Not inverts a condition.
func Not(cond Condition) Condition {
	return func(input string, rc *core.RunContext) bool { return !cond(input, rc) }
}

// RouteRule pairs a named condition with the Step to run when it
// matches first, in declaration order.
type RouteRule struct {
	Name      string
	Condition Condition
	Step      core.Step
}

// Route evaluates Rules in declaration order; the first match wins
// (ties broken by declaration order). If nothing matches and Default is
// nil, Execute raises core.NoRouteMatched.
type Route struct {
	Name    string
	Rules   []RouteRule
	Default core.Step
}

func (r *Route) StepName() string {
	if r.Name != "" {
		return r.Name
	}
	return "route"
}

// Execute implements core.Step.
func (r *Route) Execute(ctx context.Context, input string, rc *core.RunContext) (core.StepResult, error) {
	start := time.Now()
	var chosen core.Step
	matched := ""

	for _, rule := range r.Rules {
		if rule.Condition(input, rc) {
			chosen = rule.Step
			matched = rule.Name
			break
		}
	}
	if chosen == nil {
		if r.Default == nil {
			return core.StepResult{}, core.NoRouteMatched()
		}
		chosen = r.Default
		matched = "default"
	}

	result, err := chosen.Execute(ctx, input, rc)
	if err != nil {
		return result, err
	}
	result = result.WithMetadata("routing.matched", core.String(matched))
	result.Duration = time.Since(start)
	return result, nil
}
