package provider

import (
	"sync"
	"sync/atomic"

	"context"

	"github.com/agentcore/orchestrator/pkg/core"
)

// Scripted is a deterministic Provider driven by a queue of canned
// responses, grounded on the teacher's failingProvider/successProvider
// test doubles (internal/agent/failover_test.go) generalized into a
// reusable fixture for agent-loop tests and demos rather than a
// single-purpose per-test struct.
type Scripted struct {
	NameStr string
	Caps    Capabilities

	mu        sync.Mutex
	responses []InferenceResponse
	errs      []error
	calls     atomic.Int32
}

// NewScripted returns a Scripted provider that supports every operation.
func NewScripted(name string) *Scripted {
	return &Scripted{
		NameStr: name,
		Caps: Capabilities{
			SupportsGenerate:   true,
			SupportsStream:     true,
			SupportsTools:      true,
			SupportsToolStream: true,
		},
	}
}

// QueueResponse appends a scripted GenerateWithToolCalls response,
// served in FIFO order, one per call.
func (s *Scripted) QueueResponse(r InferenceResponse) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, r)
	return s
}

// QueueError appends a scripted failure. Queued failures are served in
// FIFO order before any queued response, whatever order the two were
// queued in.
func (s *Scripted) QueueError(err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
	return s
}

func (s *Scripted) Name() string             { return s.NameStr }
func (s *Scripted) Capabilities() Capabilities { return s.Caps }

func (s *Scripted) CallCount() int { return int(s.calls.Load()) }

func (s *Scripted) next() (InferenceResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return InferenceResponse{}, err
	}
	if len(s.responses) == 0 {
		return InferenceResponse{Content: "", FinishReason: FinishCompleted}, nil
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r, nil
}

func (s *Scripted) Generate(ctx context.Context, prompt string, opts InferenceOptions) (string, error) {
	s.calls.Add(1)
	if !s.Caps.SupportsGenerate {
		return "", core.InferenceProviderUnavailable(s.NameStr + " does not support generate")
	}
	if ctx.Err() != nil {
		return "", core.Cancelled()
	}
	r, err := s.next()
	if err != nil {
		return "", err
	}
	return r.Content, nil
}

func (s *Scripted) Stream(ctx context.Context, prompt string, opts InferenceOptions) (<-chan string, <-chan error) {
	out := make(chan string, 8)
	errc := make(chan error, 1)
	s.calls.Add(1)
	if !s.Caps.SupportsStream {
		close(out)
		errc <- core.InferenceProviderUnavailable(s.NameStr + " does not support stream")
		close(errc)
		return out, errc
	}
	r, err := s.next()
	go func() {
		defer close(out)
		defer close(errc)
		if err != nil {
			errc <- err
			return
		}
		select {
		case out <- r.Content:
		case <-ctx.Done():
			errc <- core.Cancelled()
			return
		}
	}()
	return out, errc
}

func (s *Scripted) GenerateWithToolCalls(ctx context.Context, prompt string, tools []core.ToolSchema, opts InferenceOptions) (InferenceResponse, error) {
	s.calls.Add(1)
	if !s.Caps.SupportsTools {
		return InferenceResponse{}, core.InferenceProviderUnavailable(s.NameStr + " does not support tool calls")
	}
	if ctx.Err() != nil {
		return InferenceResponse{}, core.Cancelled()
	}
	return s.next()
}

func (s *Scripted) StreamWithToolCalls(ctx context.Context, prompt string, tools []core.ToolSchema, opts InferenceOptions) (<-chan InferenceStreamUpdate, error) {
	s.calls.Add(1)
	if !s.Caps.SupportsToolStream {
		return nil, core.InferenceProviderUnavailable(s.NameStr + " does not support streaming tool calls")
	}
	r, err := s.next()
	if err != nil {
		return nil, err
	}
	out := make(chan InferenceStreamUpdate, 8)
	go func() {
		defer close(out)
		if r.Content != "" {
			select {
			case out <- InferenceStreamUpdate{Kind: UpdateOutputChunk, Chunk: r.Content}:
			case <-ctx.Done():
				out <- InferenceStreamUpdate{Kind: UpdateError, Err: core.Cancelled()}
				return
			}
		}
		if len(r.ToolCalls) > 0 {
			out <- InferenceStreamUpdate{Kind: UpdateToolCallsCompleted, ToolCalls: r.ToolCalls}
		}
		if r.Usage != nil {
			out <- InferenceStreamUpdate{Kind: UpdateUsage, Usage: r.Usage}
		}
		out <- InferenceStreamUpdate{Kind: UpdateDone}
	}()
	return out, nil
}

var _ Provider = (*Scripted)(nil)
