package drafting

import (
	"fmt"
	"time"

	"github.com/Veraticus/tender/internal/common"
)

// State is a drafting session's position in the pipeline.
type State string

// Session states.
const (
	StateUploaded   State = "uploaded"
	StateExtracted  State = "extracted"
	StateClassified State = "classified"
	StateGenerating State = "generating"
	StateValidating State = "validating"
	StateRevising   State = "revising"
	StateComplete   State = "complete"
	StateNeedsHuman State = "needs_human"
)

// Terminal reports whether the pipeline stops in this state.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateNeedsHuman
}

// pipeline lists the moves the orchestrator may make.
var pipeline = map[State][]State{
	StateUploaded:   {StateExtracted},
	StateExtracted:  {StateClassified},
	StateClassified: {StateGenerating},
	StateGenerating: {StateValidating, StateComplete},
	StateValidating: {StateRevising, StateComplete, StateNeedsHuman},
	StateRevising:   {StateValidating},
}

// review lists the moves a reviewer's feedback may make on a finished session.
var review = map[State][]State{
	StateComplete:   {StateComplete, StateNeedsHuman},
	StateNeedsHuman: {StateComplete, StateNeedsHuman},
}

func allowed(table map[State][]State, from, to State) bool {
	for _, s := range table[from] {
		if s == to {
			return true
		}
	}
	return false
}

// transition is the only place a session's state changes during a run.
func transition(s *Session, to State, now time.Time) error {
	if s.State.Terminal() {
		return fmt.Errorf("%w: session %s is %s", common.ErrSessionTerminal, s.ID, s.State)
	}
	if !allowed(pipeline, s.State, to) {
		return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, s.State, to)
	}
	s.enter(to, now)
	return nil
}

// reviewTransition applies a reviewer's decision to a finished session.
func reviewTransition(s *Session, to State, now time.Time) error {
	if !allowed(review, s.State, to) {
		return fmt.Errorf("%w: feedback needs a finished session, %s is %s", common.ErrInvalidTransition, s.ID, s.State)
	}
	s.enter(to, now)
	return nil
}

func (s *Session) enter(to State, now time.Time) {
	s.State = to
	s.UpdatedAt = now
	if to.Terminal() {
		completed := now
		s.CompletedAt = &completed
	}
}
