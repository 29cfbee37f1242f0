package agentloop

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agentcore/orchestrator/internal/provider"
	"github.com/agentcore/orchestrator/pkg/core"
	"github.com/agentcore/orchestrator/pkg/coreid"
)

// runLoop implements the state machine of spec §4.2:
//
//	START -> LOAD_HISTORY -> BUILD_PROMPT -> MODEL_TURN -> DECIDE
//	                                                          |
//	                   +--------------------------------------+
//	                   v                                      v
//	               TOOL_TURN                              FINALIZE -> END
//	                   |
//	                   +-> (accumulate tool results) -> BUILD_PROMPT
func (a *Agent) runLoop(ctx context.Context, input string, rc *core.RunContext, sink core.EventSink) {
	start := time.Now()
	sink.Emit(core.Event{Type: core.EventStarted, Input: input, Time: start})

	mem := rc.Memory
	if mem == nil {
		mem = a.Memory
	}

	// LOAD_HISTORY
	if rc.Session != nil && mem.IsEmpty() {
		items, err := rc.Session.GetItems(ctx, a.Configuration.SessionHistoryLimit)
		if err != nil {
			a.fail(sink, start, core.InternalError("loading session history: "+err.Error()))
			return
		}
		mem.AddAll(items)
	}
	userMsg := core.MemoryMessage{Role: core.RoleUser, Content: input, Timestamp: time.Now()}
	mem.Add(userMsg)

	var (
		allToolCalls   []core.ToolCall
		allToolResults []core.ToolResult
		usage          core.TokenUsage
	)

	for iteration := 1; ; iteration++ {
		if ctx.Err() != nil {
			sink.Emit(core.Event{Type: core.EventCancelled, Time: time.Now()})
			return
		}

		rc.SetIteration(iteration)
		sink.Emit(core.Event{Type: core.EventIterationStarted, Iteration: iteration, Time: time.Now()})
		if rc.Hooks != nil {
			rc.Hooks.OnIterationStart(rc, iteration)
		}

		if iteration > a.Configuration.MaxIterations {
			partial := core.StepResult{
				ToolCalls:   allToolCalls,
				ToolResults: allToolResults,
				Iterations:  iteration - 1,
				Duration:    time.Since(start),
				Usage:       &usage,
				Metadata:    map[string]core.Value{},
			}
			err := core.MaxIterationsExceeded(a.Configuration.MaxIterations)
			err.Partial = &partial
			sink.Emit(core.Event{Type: core.EventFailed, Err: err, Time: time.Now()})
			return
		}

		// BUILD_PROMPT
		promptCtx, err := mem.Context(ctx, input, a.Configuration.PromptTokenBudget)
		if err != nil {
			a.fail(sink, start, core.InternalError("building prompt: "+err.Error()))
			return
		}
		tools := a.Registry.Schemas()

		// MODEL_TURN
		resp, err := a.modelTurn(ctx, promptCtx, tools, sink)
		if err != nil {
			if _, ok := core.IsCoreError(err); ok && core.KindOf(err) == core.KindCancelled {
				sink.Emit(core.Event{Type: core.EventCancelled, Time: time.Now()})
				return
			}
			a.fail(sink, start, err)
			return
		}
		if resp.Usage != nil {
			usage.InputTokens += resp.Usage.InputTokens
			usage.OutputTokens += resp.Usage.OutputTokens
		}

		if a.Guardrail != nil {
			if gErr := a.Guardrail(rc, resp.Content, resp.ToolCalls); gErr != nil {
				sink.Emit(core.Event{Type: core.EventGuardrailFailed, Err: gErr, Time: time.Now()})
				a.fail(sink, start, gErr)
				return
			}
		}

		// DECIDE
		if len(resp.ToolCalls) == 0 {
			assistantMsg := core.MemoryMessage{Role: core.RoleAssistant, Content: resp.Content, Timestamp: time.Now()}
			mem.Add(assistantMsg)
			if rc.Session != nil {
				if err := rc.Session.AddItems(ctx, []core.MemoryMessage{userMsg, assistantMsg}); err != nil {
					a.fail(sink, start, core.InternalError("persisting session turn: "+err.Error()))
					return
				}
			}

			sink.Emit(core.Event{Type: core.EventIterationCompleted, Iteration: iteration, Time: time.Now()})
			if rc.Hooks != nil {
				rc.Hooks.OnIterationEnd(rc, iteration, core.StepResult{Output: resp.Content})
			}

			result := core.StepResult{
				Output:      resp.Content,
				ToolCalls:   allToolCalls,
				ToolResults: allToolResults,
				Iterations:  iteration,
				Duration:    time.Since(start),
				Usage:       &usage,
				Metadata:    map[string]core.Value{},
			}
			sink.Emit(core.Event{Type: core.EventCompleted, Result: &result, Time: time.Now()})
			return
		}

		// TOOL_TURN
		for i := range resp.ToolCalls {
			if resp.ToolCalls[i].ID == "" {
				resp.ToolCalls[i].ID = coreid.New()
			}
			sink.Emit(core.Event{Type: core.EventToolCallStarted, ToolCall: &resp.ToolCalls[i], Time: time.Now()})
			if rc.Hooks != nil {
				rc.Hooks.OnToolStart(rc, resp.ToolCalls[i])
			}
		}

		results := a.Executor.ExecuteAll(ctx, resp.ToolCalls)
		toolMsgs := make([]core.MemoryMessage, 0, len(results))
		for _, r := range results {
			if r.Err != nil {
				sink.Emit(core.Event{Type: core.EventToolCallFailed, ToolCall: &r.Call, Err: r.Err, Time: time.Now()})
			} else {
				res := r.Result
				sink.Emit(core.Event{Type: core.EventToolCallCompleted, ToolResult: &res, Time: time.Now()})
			}
			if rc.Hooks != nil {
				rc.Hooks.OnToolEnd(rc, r.Result)
			}
			allToolCalls = append(allToolCalls, r.Call)
			allToolResults = append(allToolResults, r.Result)
			toolMsgs = append(toolMsgs, core.MemoryMessage{
				Role:      core.RoleTool,
				Content:   serializeToolResult(r.Call, r.Result),
				Name:      r.Call.ToolName,
				Timestamp: time.Now(),
			})
		}
		for _, m := range toolMsgs {
			mem.Add(m)
		}
		if a.PersistToolMessagesToSession && rc.Session != nil && len(toolMsgs) > 0 {
			if err := rc.Session.AddItems(ctx, toolMsgs); err != nil {
				a.fail(sink, start, core.InternalError("persisting tool messages: "+err.Error()))
				return
			}
		}

		sink.Emit(core.Event{Type: core.EventIterationCompleted, Iteration: iteration, Time: time.Now()})
		if rc.Hooks != nil {
			rc.Hooks.OnIterationEnd(rc, iteration, core.StepResult{})
		}
		// loop continues: BUILD_PROMPT is re-entered with the updated
		// Memory (now carrying the tool-role messages).
	}
}

func (a *Agent) fail(sink core.EventSink, start time.Time, err error) {
	sink.Emit(core.Event{Type: core.EventFailed, Err: err, Time: time.Now()})
}

func serializeToolResult(call core.ToolCall, result core.ToolResult) string {
	payload := map[string]any{"tool": call.ToolName}
	if result.Success {
		payload["result"] = result.Value.ToString()
	} else {
		payload["error"] = result.FailureReason
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return result.FailureReason
	}
	return string(b)
}

// modelTurn dispatches to one of the three provider-capability modes
// spec §4.2 enumerates, preferring streaming-with-tool-deltas.
func (a *Agent) modelTurn(ctx context.Context, prompt string, tools []core.ToolSchema, sink core.EventSink) (provider.InferenceResponse, error) {
	caps := a.Provider.Capabilities()

	if len(tools) > 0 {
		if caps.SupportsToolStream {
			return a.streamWithToolCallsTurn(ctx, prompt, tools, sink)
		}
		if caps.SupportsTools {
			return a.Provider.GenerateWithToolCalls(ctx, prompt, tools, a.Options)
		}
		return provider.InferenceResponse{}, core.InferenceProviderUnavailable(a.Provider.Name() + " does not support tool calls")
	}

	if caps.SupportsStream {
		return a.streamPlainTurn(ctx, prompt, sink)
	}
	if caps.SupportsGenerate {
		text, err := a.Provider.Generate(ctx, prompt, a.Options)
		if err != nil {
			return provider.InferenceResponse{}, err
		}
		return provider.InferenceResponse{Content: text, FinishReason: provider.FinishCompleted}, nil
	}
	return provider.InferenceResponse{}, core.InferenceProviderUnavailable(a.Provider.Name() + " supports no generation mode")
}

func (a *Agent) streamWithToolCallsTurn(ctx context.Context, prompt string, tools []core.ToolSchema, sink core.EventSink) (provider.InferenceResponse, error) {
	updates, err := a.Provider.StreamWithToolCalls(ctx, prompt, tools, a.Options)
	if err != nil {
		return provider.InferenceResponse{}, err
	}

	var resp provider.InferenceResponse
	resp.FinishReason = provider.FinishCompleted
	for u := range updates {
		switch u.Kind {
		case provider.UpdateOutputChunk:
			resp.Content += u.Chunk
			sink.Emit(core.Event{Type: core.EventOutputChunk, Text: u.Chunk, Time: time.Now()})
		case provider.UpdateToolCallPartial:
			sink.Emit(core.Event{
				Type: core.EventToolCallPartial, ProviderCallID: u.ProviderCallID,
				ToolName: u.ToolName, ArgsFragment: u.ArgsFragment, Index: u.Index, Time: time.Now(),
			})
		case provider.UpdateToolCallsCompleted:
			resp.ToolCalls = u.ToolCalls
			resp.FinishReason = provider.FinishToolCall
		case provider.UpdateUsage:
			resp.Usage = u.Usage
		case provider.UpdateError:
			return provider.InferenceResponse{}, u.Err
		case provider.UpdateDone:
			// terminal marker; loop continues draining until channel closes
		}
		if ctx.Err() != nil {
			return provider.InferenceResponse{}, core.Cancelled()
		}
	}
	return resp, nil
}

func (a *Agent) streamPlainTurn(ctx context.Context, prompt string, sink core.EventSink) (provider.InferenceResponse, error) {
	chunks, errc := a.Provider.Stream(ctx, prompt, a.Options)
	var resp provider.InferenceResponse
	resp.FinishReason = provider.FinishCompleted
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			resp.Content += chunk
			sink.Emit(core.Event{Type: core.EventOutputChunk, Text: chunk, Time: time.Now()})
		case err, ok := <-errc:
			if !ok {
				errc = nil
				continue
			}
			if err != nil {
				return provider.InferenceResponse{}, err
			}
		case <-ctx.Done():
			return provider.InferenceResponse{}, core.Cancelled()
		}
		if chunks == nil && errc == nil {
			return resp, nil
		}
	}
}
