package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agentcore/orchestrator/pkg/core"
)

type fakeTool struct {
	schema  core.ToolSchema
	enabled bool
	fn      func(ctx context.Context, args map[string]core.Value) (core.Value, error)
}

func (t *fakeTool) Schema() core.ToolSchema { return t.schema }
func (t *fakeTool) IsEnabled() bool         { return t.enabled }
func (t *fakeTool) Execute(ctx context.Context, args map[string]core.Value) (core.Value, error) {
	return t.fn(ctx, args)
}

func calcTool() *fakeTool {
	return &fakeTool{
		schema: core.ToolSchema{
			Name: "calculator",
			Parameters: []core.ToolParameter{
				{Name: "expression", Type: core.ParamString, Required: true},
			},
		},
		enabled: true,
		fn: func(ctx context.Context, args map[string]core.Value) (core.Value, error) {
			expr, _ := args["expression"].AsString()
			if expr == "2+2" {
				return core.String("4"), nil
			}
			return core.Null(), errors.New("cannot evaluate")
		},
	}
}

func TestRegistryDisabledToolInvisible(t *testing.T) {
	reg := New()
	tool := calcTool()
	tool.enabled = false
	if err := reg.Register(tool); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(reg.Schemas()) != 0 {
		t.Fatal("disabled tool must not appear in schemas()")
	}
	_, err := reg.Execute(context.Background(), "calculator", nil)
	ce, ok := core.IsCoreError(err)
	if !ok || ce.Kind != core.KindToolNotFound {
		t.Fatalf("expected toolNotFound for disabled tool, got %v", err)
	}
}

func TestRegistryExecuteValidatesArguments(t *testing.T) {
	reg := New()
	if err := reg.Register(calcTool()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := reg.Execute(context.Background(), "calculator", map[string]core.Value{})
	ce, ok := core.IsCoreError(err)
	if !ok || ce.Kind != core.KindInvalidToolArguments {
		t.Fatalf("expected invalidToolArguments for missing required field, got %v", err)
	}
}

func TestRegistryExecuteSuccess(t *testing.T) {
	reg := New()
	if err := reg.Register(calcTool()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	val, err := reg.Execute(context.Background(), "calculator", map[string]core.Value{
		"expression": core.String("2+2"),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	s, _ := val.AsString()
	if s != "4" {
		t.Fatalf("expected 4, got %s", s)
	}
}

func TestRegistryWrapsExecutionFailure(t *testing.T) {
	reg := New()
	if err := reg.Register(calcTool()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := reg.Execute(context.Background(), "calculator", map[string]core.Value{
		"expression": core.String("nonsense"),
	})
	ce, ok := core.IsCoreError(err)
	if !ok || ce.Kind != core.KindToolExecutionFailed {
		t.Fatalf("expected toolExecutionFailed, got %v", err)
	}
}

func TestExecutorPreservesOrderUnderConcurrency(t *testing.T) {
	reg := New()
	slow := &fakeTool{
		schema:  core.ToolSchema{Name: "slow"},
		enabled: true,
		fn: func(ctx context.Context, args map[string]core.Value) (core.Value, error) {
			time.Sleep(30 * time.Millisecond)
			return core.String("slow-result"), nil
		},
	}
	fast := &fakeTool{
		schema:  core.ToolSchema{Name: "fast"},
		enabled: true,
		fn: func(ctx context.Context, args map[string]core.Value) (core.Value, error) {
			return core.String("fast-result"), nil
		},
	}
	_ = reg.Register(slow)
	_ = reg.Register(fast)

	exec := NewExecutor(reg, true)
	calls := []core.ToolCall{
		{ID: "a", ToolName: "slow"},
		{ID: "b", ToolName: "fast"},
	}
	results := exec.ExecuteAll(context.Background(), calls)
	if results[0].Call.ID != "a" || results[1].Call.ID != "b" {
		t.Fatalf("expected declaration order preserved regardless of completion order, got %+v", results)
	}
}

func TestSchemasStableInsertionOrder(t *testing.T) {
	reg := New()
	names := []string{"z", "a", "m"}
	for _, n := range names {
		_ = reg.Register(&fakeTool{schema: core.ToolSchema{Name: n}, enabled: true, fn: func(ctx context.Context, args map[string]core.Value) (core.Value, error) {
			return core.Null(), nil
		}})
	}
	var got []string
	for _, s := range reg.Schemas() {
		got = append(got, s.Name)
	}
	for i, n := range names {
		if got[i] != n {
			t.Fatalf("expected insertion order %v, got %v", names, got)
		}
	}
}
