package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Veraticus/tender/internal/service"
)

// ErrScriptExhausted is returned once every scripted reply has been used.
var ErrScriptExhausted = errors.New("scripted reasoner has no replies left")

// Call records one request made to a ScriptedReasoner.
type Call struct {
	Instruction string
	Context     string
}

type step struct {
	err   error
	reply string
}

// ScriptedReasoner answers reasoning calls from a fixed script in call order.
type ScriptedReasoner struct {
	fallback error
	script   []step
	calls    []Call
	mu       sync.Mutex
}

var _ service.ReasoningService = (*ScriptedReasoner)(nil)

// NewScriptedReasoner creates a reasoner that returns replies in order.
func NewScriptedReasoner(replies ...string) *ScriptedReasoner {
	r := &ScriptedReasoner{}
	for _, reply := range replies {
		r.script = append(r.script, step{reply: reply})
	}
	return r
}

// Then appends a reply to the script.
func (r *ScriptedReasoner) Then(reply string) *ScriptedReasoner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.script = append(r.script, step{reply: reply})
	return r
}

// ThenFail appends a failing call to the script.
func (r *ScriptedReasoner) ThenFail(err error) *ScriptedReasoner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.script = append(r.script, step{err: err})
	return r
}

// FailWith makes every call after the script runs out fail with err.
func (r *ScriptedReasoner) FailWith(err error) *ScriptedReasoner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = err
	return r
}

// Complete implements service.ReasoningService.
func (r *ScriptedReasoner) Complete(ctx context.Context, instruction, input string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{Instruction: instruction, Context: input})
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if len(r.script) == 0 {
		if r.fallback != nil {
			return "", r.fallback
		}
		return "", fmt.Errorf("call %d: %w", len(r.calls), ErrScriptExhausted)
	}

	next := r.script[0]
	r.script = r.script[1:]
	if next.err != nil {
		return "", next.err
	}
	return next.reply, nil
}

// Calls returns a copy of the recorded calls.
func (r *ScriptedReasoner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Remaining reports how many scripted steps are unused.
func (r *ScriptedReasoner) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.script)
}
