package uistack

import (
	"fmt"

	"skald.games/internal/protocol"
)

// Stack is the backend's authoritative UI stack. The simulation pushes
// elements; the stack publishes desired-state snapshots for the frontend
// and routes key-addressed user actions back to elements.
//
// All methods must be called from the owning goroutine (the simulation
// loop). Elements themselves may use interior synchronization so their
// outcomes can be polled from elsewhere.
type Stack struct {
	elements []Element

	// states holds the published entry per element. nil means the
	// element has not been initialized yet; after a Tick every entry is
	// populated.
	states []*protocol.UiStackEntry
}

func NewStack() *Stack { return &Stack{} }

// Push puts an element on top of the stack. Its state is published on
// the next Tick.
func (s *Stack) Push(e Element) {
	s.elements = append(s.elements, e)
	s.states = append(s.states, nil)
}

func (s *Stack) Len() int { return len(s.elements) }

// Tick initializes new elements and advances every element one step.
// Iteration runs from the top of the stack to the bottom so that
// elements may remove themselves without disturbing the walk.
func (s *Stack) Tick() error {
	if err := s.initialize(); err != nil {
		return err
	}
	for i := len(s.elements) - 1; i >= 0; i-- {
		out, err := s.elements[i].Tick()
		if err != nil {
			return fmt.Errorf("tick element %d: %w", i, err)
		}
		s.applyOutcome(i, out)
	}
	return nil
}

func (s *Stack) initialize() error {
	for i := len(s.elements) - 1; i >= 0; i-- {
		if s.states[i] != nil {
			continue
		}
		el, err := s.elements[i].InitialState()
		if err != nil {
			return fmt.Errorf("initial state for element %d: %w", i, err)
		}
		if err := el.Validate(); err != nil {
			return fmt.Errorf("initial state for element %d: %w", i, err)
		}
		s.states[i] = &protocol.UiStackEntry{
			Key:     protocol.Key(newKey()),
			Element: el,
		}
	}
	return nil
}

// Complete routes a COMPLETE action to the entry with the given key.
// Actions addressed to entries that no longer exist are ignored: the
// frontend acts on the last state it saw, which may be gone by now.
func (s *Stack) Complete(key protocol.Key, value string) error {
	i := s.indexOf(key)
	if i < 0 {
		return nil
	}
	out, err := s.elements[i].Complete(value)
	if err != nil {
		return err
	}
	s.applyOutcome(i, out)
	return nil
}

// Cancel routes a CANCEL action; unknown keys are ignored.
func (s *Stack) Cancel(key protocol.Key) error {
	i := s.indexOf(key)
	if i < 0 {
		return nil
	}
	out, err := s.elements[i].Cancel()
	if err != nil {
		return err
	}
	s.applyOutcome(i, out)
	return nil
}

// Remove pops the element at index i. Elements are also removed from the
// outside: the simulation does not have to wait for them to finish.
func (s *Stack) Remove(i int) {
	s.elements = append(s.elements[:i], s.elements[i+1:]...)
	s.states = append(s.states[:i], s.states[i+1:]...)
}

func (s *Stack) applyOutcome(i int, out Outcome) {
	switch {
	case out.Finished:
		s.Remove(i)
	case out.Propose != nil:
		cur := s.states[i]
		if cur == nil {
			return
		}
		next := protocol.UiStackEntry{Key: cur.Key, Element: *out.Propose}
		if next.Equal(cur) {
			return
		}
		// Published elements are immutable: changed content means a new
		// logical entry, so the key changes with it and the frontend
		// tears the old one down.
		next.Key = protocol.Key(newKey())
		s.states[i] = &next
	}
}

// Snapshot builds the desired stack from the published entries. Call
// after Tick; entries pushed since the last Tick are not included yet.
func (s *Stack) Snapshot() protocol.UiStack {
	var out protocol.UiStack
	for _, st := range s.states {
		if st == nil {
			continue
		}
		out.Entries = append(out.Entries, st.Clone())
	}
	return out
}

func (s *Stack) indexOf(key protocol.Key) int {
	for i, st := range s.states {
		if st != nil && st.Key == key {
			return i
		}
	}
	return -1
}
