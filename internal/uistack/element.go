// Package uistack holds the backend's authoritative UI stack: the live
// elements the simulation wants on screen, and the bookkeeping that turns
// them into the desired-state snapshots shipped to the frontend.
package uistack

import "skald.games/internal/protocol"

// Outcome reports the result of an element operation. The zero value
// means nothing changed.
type Outcome struct {
	// Finished pops the element off the stack. This is not the only way
	// elements are removed; the simulation may pop them from outside.
	Finished bool
	// Propose publishes a new state for the element. Because shown
	// elements are immutable, the stack re-keys the entry when the
	// proposed state differs from the published one.
	Propose *protocol.UiElement
}

func Unchanged() Outcome                   { return Outcome{} }
func Finished() Outcome                    { return Outcome{Finished: true} }
func Propose(e protocol.UiElement) Outcome { return Outcome{Propose: &e} }

// Element is a live UI element owned by the backend stack. Elements are
// reactive: they respond to ticks and to key-addressed user actions
// relayed by the frontend.
type Element interface {
	// InitialState is called exactly once, after the element is on the
	// stack. It must return the element's first published state.
	InitialState() (protocol.UiElement, error)

	// Tick is called every simulation tick. Most elements never change
	// state on tick and return Unchanged.
	Tick() (Outcome, error)

	// Complete delivers the element-specific completion value, e.g. the
	// chosen item value of a menu.
	Complete(value string) (Outcome, error)

	// Cancel delivers a cancel gesture (e.g. the user escaped a menu).
	Cancel() (Outcome, error)
}
