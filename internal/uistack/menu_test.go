package uistack

import (
	"testing"

	"skald.games/internal/protocol"
)

func TestMenu_InitialStateCarriesItemsInOrder(t *testing.T) {
	m := NewMenuBuilder("inventory", true).
		AddItem("Sword", "sword").
		AddItem("Bow", "bow").
		Build()

	el, err := m.InitialState()
	if err != nil {
		t.Fatalf("InitialState: %v", err)
	}
	if err := el.Validate(); err != nil {
		t.Fatalf("element invalid: %v", err)
	}
	pm, err := el.AsMenu()
	if err != nil {
		t.Fatalf("AsMenu: %v", err)
	}
	if pm.Title != "inventory" || !pm.CanCancel {
		t.Fatalf("menu fields: %+v", pm)
	}
	if len(pm.Items) != 2 || pm.Items[0].Label != "Sword" || pm.Items[1].Label != "Bow" {
		t.Fatalf("item order not preserved: %+v", pm.Items)
	}
	if pm.Items[0].Key == pm.Items[1].Key {
		t.Fatalf("item keys must be unique")
	}
}

func TestMenu_CompleteResolvesValue(t *testing.T) {
	m := NewMenuBuilder("main", false).AddItem("Play", "play").Build()
	if out := m.Outcome(); out.Resolved {
		t.Fatalf("fresh menu should be unresolved")
	}

	res, err := m.Complete("play")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !res.Finished {
		t.Fatalf("completed menu should finish")
	}
	out := m.Outcome()
	if !out.Resolved || out.Cancelled || out.Value != "play" {
		t.Fatalf("outcome: %+v", out)
	}
}

func TestMenu_CompleteUnknownValueErrors(t *testing.T) {
	m := NewMenuBuilder("main", false).AddItem("Play", "play").Build()
	if _, err := m.Complete("nope"); err == nil {
		t.Fatalf("expected error for unknown value")
	}
	if m.Outcome().Resolved {
		t.Fatalf("failed completion must not resolve the menu")
	}
}

func TestMenu_CancelRespectsCanCancel(t *testing.T) {
	locked := NewMenuBuilder("must choose", false).AddItem("Ok", "ok").Build()
	if _, err := locked.Cancel(); err == nil {
		t.Fatalf("uncancellable menu accepted cancel")
	}

	open := NewMenuBuilder("optional", true).AddItem("Ok", "ok").Build()
	res, err := open.Cancel()
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !res.Finished {
		t.Fatalf("cancelled menu should finish")
	}
	out := open.Outcome()
	if !out.Resolved || !out.Cancelled {
		t.Fatalf("outcome: %+v", out)
	}
}

func TestServiceQueue_DrainPreservesOrder(t *testing.T) {
	q := NewServiceQueue()
	q.Speak("welcome", true)
	q.Speak("you have mail", false)
	q.Shutdown()

	got := q.Drain()
	if len(got) != 3 {
		t.Fatalf("want 3 requests, got %d", len(got))
	}
	if got[0].Speak == nil || got[0].Speak.Text != "welcome" || !got[0].Speak.Interrupt {
		t.Fatalf("first request: %+v", got[0])
	}
	if got[1].Speak == nil || got[1].Speak.Interrupt {
		t.Fatalf("second request: %+v", got[1])
	}
	if got[2].Shutdown == nil {
		t.Fatalf("third request: %+v", got[2])
	}
	if len(q.Drain()) != 0 {
		t.Fatalf("drain should empty the queue")
	}
	var batch protocol.ServiceRequestBatch
	batch.Requests = got
	if err := batch.Validate(); err != nil {
		t.Fatalf("drained batch invalid: %v", err)
	}
}
