package uistack

import "skald.games/internal/protocol"

// Gameplay is the stack's bottom element. It publishes a bare marker;
// the frontend owns and animates everything inside the gameplay area, so
// no state of it ever flows through the stack.
type Gameplay struct{}

func NewGameplay() *Gameplay { return &Gameplay{} }

func (g *Gameplay) InitialState() (protocol.UiElement, error) {
	return protocol.GameplayElement(), nil
}

func (g *Gameplay) Tick() (Outcome, error) { return Unchanged(), nil }

// Complete and Cancel are meaningless for the gameplay area; it never
// finishes and stays at the bottom for the whole session.
func (g *Gameplay) Complete(string) (Outcome, error) { return Unchanged(), nil }

func (g *Gameplay) Cancel() (Outcome, error) { return Unchanged(), nil }
