// Package registry implements the tool registry and parallel tool
// executor of spec §4.4, grounded on the teacher's
// internal/agent/tool_registry.go (name→ToolImpl map, schema
// publication, execute-by-name validation) and internal/agent/executor.go
// (bounded-concurrency fan-out executor with ordered results).
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/agentcore/orchestrator/pkg/core"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var nowFunc = time.Now

// MaxToolNameLength and MaxToolArgsBytes bound pathological inputs,
// mirroring the teacher's MaxToolNameLength / MaxToolParamsSize guards.
const (
	MaxToolNameLength = 256
	MaxToolArgsBytes  = 10 * 1024 * 1024
)

// Registry is a process- or agent-level map toolName → ToolImpl,
// grounded on the teacher's ToolRegistry (RWMutex-guarded map).
type Registry struct {
	mu    sync.RWMutex
	tools map[string]core.ToolImpl
	order []string // insertion order, for stable schemas()
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{tools: make(map[string]core.ToolImpl)}
}

// Register adds or replaces a tool by its schema name.
func (r *Registry) Register(tool core.ToolImpl) error {
	name := tool.Schema().Name
	if name == "" {
		return core.InvalidInput("tool schema name must not be empty")
	}
	if len(name) > MaxToolNameLength {
		return core.InvalidInput(fmt.Sprintf("tool name %q exceeds max length %d", name, MaxToolNameLength))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
	return nil
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the tool with the given name, if registered (regardless
// of its enable-gate).
func (r *Registry) Get(name string) (core.ToolImpl, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Schemas returns schemas for enabled tools only, in stable insertion
// order, per spec §4.4 (disabled tools are invisible).
func (r *Registry) Schemas() []core.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		if t.IsEnabled() {
			out = append(out, t.Schema())
		}
	}
	return out
}

// Execute validates args against the tool's schema and calls it,
// wrapping raw errors as toolExecutionFailed unless the error is
// already a taxonomy error (cancellation, guardrail, invalidToolArguments).
func (r *Registry) Execute(ctx context.Context, name string, args map[string]core.Value) (core.Value, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok || !t.IsEnabled() {
		return core.Null(), core.ToolNotFound(name)
	}

	if err := ValidateArguments(t.Schema(), args); err != nil {
		return core.Null(), err
	}

	val, err := t.Execute(ctx, args)
	if err != nil {
		if ce, ok := core.IsCoreError(err); ok {
			switch ce.Kind {
			case core.KindCancelled, core.KindGuardrailViolation, core.KindInvalidToolArguments, core.KindToolExecutionFailed:
				return core.Null(), err
			}
		}
		return core.Null(), core.ToolExecutionFailed(name, err.Error())
	}
	return val, nil
}

// ValidateArguments compiles schema's parameter list into a JSON Schema
// document and validates args against it with santhosh-tekuri/jsonschema,
// the same approach pkg/pluginsdk/validation.go uses for MCP tool
// manifests; returns invalidToolArguments on mismatch.
func ValidateArguments(schema core.ToolSchema, args map[string]core.Value) error {
	compiled, err := compileSchema(schema)
	if err != nil {
		return core.InternalError(fmt.Sprintf("compiling schema for tool %q: %v", schema.Name, err))
	}

	argsJSON, err := core.Object(args).MarshalJSON()
	if err != nil {
		return core.InternalError(fmt.Sprintf("marshaling arguments for tool %q: %v", schema.Name, err))
	}
	var decoded interface{}
	if err := json.Unmarshal(argsJSON, &decoded); err != nil {
		return core.InternalError(fmt.Sprintf("decoding arguments for tool %q: %v", schema.Name, err))
	}

	if err := compiled.Validate(decoded); err != nil {
		return core.InvalidToolArguments(schema.Name, err.Error())
	}
	return nil
}

// compileSchema builds and compiles a draft JSON Schema document
// describing schema's argument object.
func compileSchema(schema core.ToolSchema) (*jsonschema.Schema, error) {
	doc, err := json.Marshal(jsonSchemaOf(schema.Parameters))
	if err != nil {
		return nil, err
	}
	resourceName := schema.Name + "-args.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceName, bytes.NewReader(doc)); err != nil {
		return nil, err
	}
	return compiler.Compile(resourceName)
}

// jsonSchemaOf converts a ToolParameter list into the "object with
// properties" JSON Schema shape a tool's argument map must satisfy.
func jsonSchemaOf(params []core.ToolParameter) map[string]interface{} {
	properties := make(map[string]interface{}, len(params))
	var required []string
	for _, p := range params {
		properties[p.Name] = jsonSchemaOfParam(p)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	doc := map[string]interface{}{"type": "object", "properties": properties}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

func jsonSchemaOfParam(p core.ToolParameter) map[string]interface{} {
	switch p.Type {
	case core.ParamString:
		return map[string]interface{}{"type": "string"}
	case core.ParamInt:
		return map[string]interface{}{"type": "integer"}
	case core.ParamDouble:
		return map[string]interface{}{"type": "number"}
	case core.ParamBool:
		return map[string]interface{}{"type": "boolean"}
	case core.ParamArray:
		items := map[string]interface{}{}
		if p.Elem != nil {
			items = jsonSchemaOfParam(*p.Elem)
		}
		return map[string]interface{}{"type": "array", "items": items}
	case core.ParamObject:
		return jsonSchemaOf(p.Properties)
	case core.ParamOneOf:
		enum := make([]interface{}, len(p.OneOf))
		for i, s := range p.OneOf {
			enum[i] = s
		}
		return map[string]interface{}{"type": "string", "enum": enum}
	default: // ParamAny
		return map[string]interface{}{}
	}
}

// ExecutionResult is one entry of a parallel-execution batch, preserving
// call-order regardless of completion order.
type ExecutionResult struct {
	Call   core.ToolCall
	Result core.ToolResult
	Err    error
}

// Executor runs a batch of ToolCalls against a Registry, optionally in
// parallel on a bounded worker pool, preserving result order. Grounded
// on the teacher's Executor (internal/agent/executor.go): semaphore-
// gated fan-out with an indexed results slice.
type Executor struct {
	Registry          *Registry
	ParallelToolCalls bool
	MaxConcurrency    int
}

// NewExecutor returns an Executor with maxConcurrency = min(N, cpu*4)
// computed lazily per batch, per spec §4.4.
func NewExecutor(reg *Registry, parallel bool) *Executor {
	return &Executor{Registry: reg, ParallelToolCalls: parallel}
}

// ExecuteAll dispatches every call, in order, and returns results in
// the same order the calls were given regardless of completion order.
// If ParallelToolCalls is false, calls run sequentially.
func (e *Executor) ExecuteAll(ctx context.Context, calls []core.ToolCall) []ExecutionResult {
	results := make([]ExecutionResult, len(calls))

	if !e.ParallelToolCalls || len(calls) <= 1 {
		for i, call := range calls {
			results[i] = e.executeOne(ctx, call)
		}
		return results
	}

	maxConcurrency := e.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = runtime.NumCPU() * 4
	}
	if maxConcurrency > len(calls) {
		maxConcurrency = len(calls)
	}
	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, call core.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.executeOne(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return results
}

func (e *Executor) executeOne(ctx context.Context, call core.ToolCall) ExecutionResult {
	start := nowFunc()
	val, err := e.Registry.Execute(ctx, call.ToolName, call.Arguments)
	duration := nowFunc().Sub(start)

	if err != nil {
		return ExecutionResult{
			Call: call,
			Result: core.ToolResult{
				CallID:        call.ID,
				Success:       false,
				FailureReason: err.Error(),
				DurationNanos: duration.Nanoseconds(),
			},
			Err: err,
		}
	}
	return ExecutionResult{
		Call: call,
		Result: core.ToolResult{
			CallID:        call.ID,
			Success:       true,
			Value:         val,
			DurationNanos: duration.Nanoseconds(),
		},
	}
}
