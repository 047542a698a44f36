package main

import "skald.games/internal/uistack"

// arenaGame is the built-in session: a title menu over the gameplay
// area, a short narrated round, then a round-over menu. It runs on the
// session loop's goroutine via the tick callback, so it owns the stack
// and service queue for the duration of a tick.
type arenaGame struct {
	stack    *uistack.Stack
	services *uistack.ServiceQueue

	state gameState
	menu  *uistack.Menu
	ticks int
	line  int
}

type gameState int

const (
	stateTitle gameState = iota
	statePlaying
	stateRoundOver
	stateDone
)

// One narration line roughly every two seconds at the default tick rate.
const narrateEveryTicks = 40

var arenaLines = []string{
	"A ghoul shambles in from the north.",
	"You swing. The ghoul staggers.",
	"The ghoul claws you for 3 damage.",
	"You strike true. The ghoul collapses.",
}

func newArenaGame(stack *uistack.Stack, services *uistack.ServiceQueue) *arenaGame {
	return &arenaGame{stack: stack, services: services}
}

func (g *arenaGame) tick() {
	switch g.state {
	case stateTitle:
		if g.menu == nil {
			g.menu = uistack.NewMenuBuilder("Main menu", false).
				AddItem("Play", "play").
				AddItem("Quit", "quit").
				Build()
			g.stack.Push(g.menu)
			g.services.Speak("Main menu.", true)
			return
		}
		out := g.menu.Outcome()
		if !out.Resolved {
			return
		}
		g.menu = nil
		if out.Cancelled || out.Value == "quit" {
			g.quit()
			return
		}
		g.services.Speak("Entering the arena.", true)
		g.state = statePlaying
		g.ticks = 0
		g.line = 0

	case statePlaying:
		g.ticks++
		if g.ticks%narrateEveryTicks != 0 {
			return
		}
		if g.line < len(arenaLines) {
			g.services.Speak(arenaLines[g.line], false)
			g.line++
			return
		}
		g.menu = uistack.NewMenuBuilder("Round over", true).
			AddItem("Play again", "play").
			AddItem("Quit", "quit").
			Build()
		g.stack.Push(g.menu)
		g.services.Speak("Round over.", true)
		g.state = stateRoundOver

	case stateRoundOver:
		out := g.menu.Outcome()
		if !out.Resolved {
			return
		}
		g.menu = nil
		if !out.Cancelled && out.Value == "play" {
			g.services.Speak("Entering the arena.", true)
			g.state = statePlaying
			g.ticks = 0
			g.line = 0
			return
		}
		// Cancelling the round-over menu also ends the session.
		g.quit()

	case stateDone:
	}
}

func (g *arenaGame) quit() {
	g.services.Speak("Goodbye.", true)
	g.services.Shutdown()
	g.state = stateDone
}
