package protocol

import (
	"encoding/json"
	"testing"
)

func TestUiElement_ExactlyOneVariant(t *testing.T) {
	var none UiElement
	if err := none.Validate(); !HasCode(err, ErrMalformedElement) {
		t.Fatalf("zero variants: got %v want %s", err, ErrMalformedElement)
	}

	both := UiElement{Menu: &Menu{Title: "m"}, GameplayArea: &GameplayArea{}}
	if err := both.Validate(); !HasCode(err, ErrMalformedElement) {
		t.Fatalf("two variants: got %v want %s", err, ErrMalformedElement)
	}

	menu := MenuElement(Menu{Title: "m", Items: []MenuItem{{Label: "a", Value: "a", Key: "k1"}}})
	if err := menu.Validate(); err != nil {
		t.Fatalf("menu element: %v", err)
	}
	if got := menu.Variant(); got != VariantMenu {
		t.Fatalf("Variant: got %q", got)
	}

	game := GameplayElement()
	if err := game.Validate(); err != nil {
		t.Fatalf("gameplay element: %v", err)
	}
}

func TestUiElement_WrongVariantAccess(t *testing.T) {
	game := GameplayElement()
	if _, err := game.AsMenu(); !HasCode(err, ErrWrongVariant) {
		t.Fatalf("AsMenu on gameplay: got %v want %s", err, ErrWrongVariant)
	}
	menu := MenuElement(Menu{Title: "m"})
	if _, err := menu.AsGameplayArea(); !HasCode(err, ErrWrongVariant) {
		t.Fatalf("AsGameplayArea on menu: got %v want %s", err, ErrWrongVariant)
	}
	if m, err := menu.AsMenu(); err != nil || m.Title != "m" {
		t.Fatalf("AsMenu: %v %v", m, err)
	}
}

func TestMenu_DuplicateItemKeyRejected(t *testing.T) {
	m := Menu{
		Title: "weapons",
		Items: []MenuItem{
			{Label: "Sword", Value: "sword", Key: "k1"},
			{Label: "Bow", Value: "bow", Key: "k1"},
		},
	}
	if err := m.Validate(); !HasCode(err, ErrDuplicateKey) {
		t.Fatalf("duplicate item key: got %v want %s", err, ErrDuplicateKey)
	}
}

func TestUiStack_Validate(t *testing.T) {
	var empty UiStack
	if err := empty.Validate(); !HasCode(err, ErrEmptyStack) {
		t.Fatalf("empty stack: got %v want %s", err, ErrEmptyStack)
	}

	dup := UiStack{Entries: []UiStackEntry{
		{Key: "k1", Element: GameplayElement()},
		{Key: "k1", Element: MenuElement(Menu{Title: "m"})},
	}}
	if err := dup.Validate(); !HasCode(err, ErrDuplicateKey) {
		t.Fatalf("duplicate entry key: got %v want %s", err, ErrDuplicateKey)
	}

	ok := UiStack{Entries: []UiStackEntry{
		{Key: "k1", Element: GameplayElement()},
		{Key: "k2", Element: MenuElement(Menu{Title: "m", Items: []MenuItem{{Label: "a", Value: "a", Key: "i1"}}})},
	}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid stack: %v", err)
	}
	top, found := ok.Top()
	if !found || top.Key != "k2" {
		t.Fatalf("Top: %v %v", top, found)
	}
	if got := ok.IndexOf("k1"); got != 0 {
		t.Fatalf("IndexOf k1: got %d", got)
	}
	if got := ok.IndexOf("nope"); got != -1 {
		t.Fatalf("IndexOf missing: got %d", got)
	}
}

func TestUiStack_CloneIsDeep(t *testing.T) {
	s := UiStack{Entries: []UiStackEntry{
		{Key: "k1", Element: GameplayElement()},
		{Key: "k2", Element: MenuElement(Menu{Title: "m", Items: []MenuItem{{Label: "a", Value: "a", Key: "i1"}}})},
	}}
	c := s.Clone()
	c.Entries[1].Element.Menu.Items[0].Label = "changed"
	c.Entries[1].Element.Menu.Title = "changed"
	if s.Entries[1].Element.Menu.Items[0].Label != "a" || s.Entries[1].Element.Menu.Title != "m" {
		t.Fatalf("clone shares state with original")
	}
	if !s.Equal(&s) {
		t.Fatalf("stack should equal itself")
	}
	if s.Equal(&c) {
		t.Fatalf("mutated clone should not equal original")
	}
}

func TestServiceRequest_ExactlyOneVariant(t *testing.T) {
	var none ServiceRequest
	if err := none.Validate(); !HasCode(err, ErrMalformedElement) {
		t.Fatalf("zero variants: got %v", err)
	}
	both := ServiceRequest{Speak: &SpeakRequest{Text: "x"}, Shutdown: &ShutdownRequest{}}
	if err := both.Validate(); !HasCode(err, ErrMalformedElement) {
		t.Fatalf("two variants: got %v", err)
	}
	batch := ServiceRequestBatch{Requests: []ServiceRequest{
		SpeakService("hello", true),
		ShutdownService(),
	}}
	if err := batch.Validate(); err != nil {
		t.Fatalf("valid batch: %v", err)
	}
}

func TestDecodeBase_Routing(t *testing.T) {
	msg := UiStackMsg{
		Type:            TypeUiStack,
		ProtocolVersion: Version,
		Revision:        3,
		Stack:           UiStack{Entries: []UiStackEntry{{Key: "k1", Element: GameplayElement()}}},
	}
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	base, err := DecodeBase(b)
	if err != nil {
		t.Fatalf("DecodeBase: %v", err)
	}
	if base.Type != TypeUiStack || base.ProtocolVersion != Version {
		t.Fatalf("base: %+v", base)
	}
}
