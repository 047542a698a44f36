package uistack

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"skald.games/internal/protocol"
)

// Menu states below zero; values >= 0 index the chosen item.
const (
	menuUnresolved int64 = -2
	menuCancelled  int64 = -1
)

// Menu is a stack element resolving to one of its items or to a cancel.
// Item values double as item keys, so completion actions round-trip
// without a separate lookup table. The outcome is polled by whoever
// pushed the menu.
type Menu struct {
	title     string
	canCancel bool
	items     []menuItem

	state atomic.Int64
}

type menuItem struct {
	label string
	key   string
	value string
}

// MenuOutcome is the polled state of a menu.
type MenuOutcome struct {
	Resolved  bool
	Cancelled bool
	// Value is the chosen item's value when Resolved && !Cancelled.
	Value string
}

// MenuBuilder accumulates items before the menu is frozen. The order
// items are added in is the order the frontend shows, so callers provide
// a stable sort up front; a shown menu is never reordered.
type MenuBuilder struct {
	title     string
	canCancel bool
	items     []menuItem
}

func NewMenuBuilder(title string, canCancel bool) *MenuBuilder {
	return &MenuBuilder{title: title, canCancel: canCancel}
}

func (b *MenuBuilder) AddItem(label, value string) *MenuBuilder {
	b.items = append(b.items, menuItem{
		label: label,
		key:   newKey(),
		value: value,
	})
	return b
}

func (b *MenuBuilder) Build() *Menu {
	m := &Menu{
		title:     b.title,
		canCancel: b.canCancel,
		items:     b.items,
	}
	m.state.Store(menuUnresolved)
	return m
}

// Outcome polls the menu's resolution state.
func (m *Menu) Outcome() MenuOutcome {
	s := m.state.Load()
	switch {
	case s == menuUnresolved:
		return MenuOutcome{}
	case s == menuCancelled:
		return MenuOutcome{Resolved: true, Cancelled: true}
	default:
		return MenuOutcome{Resolved: true, Value: m.items[s].value}
	}
}

func (m *Menu) InitialState() (protocol.UiElement, error) {
	items := make([]protocol.MenuItem, len(m.items))
	for i, it := range m.items {
		items[i] = protocol.MenuItem{
			Label: it.label,
			Value: it.value,
			Key:   protocol.Key(it.key),
		}
	}
	return protocol.MenuElement(protocol.Menu{
		Title:     m.title,
		Items:     items,
		CanCancel: m.canCancel,
	}), nil
}

func (m *Menu) Tick() (Outcome, error) { return Unchanged(), nil }

func (m *Menu) Complete(value string) (Outcome, error) {
	for i, it := range m.items {
		if it.value == value {
			m.state.Store(int64(i))
			return Finished(), nil
		}
	}
	return Unchanged(), fmt.Errorf("menu %q: no item with value %q", m.title, value)
}

func (m *Menu) Cancel() (Outcome, error) {
	if !m.canCancel {
		return Unchanged(), fmt.Errorf("menu %q may not be cancelled", m.title)
	}
	m.state.Store(menuCancelled)
	return Finished(), nil
}

// newKey mints an entry/item key. Keys are uuid4 hex: unique for the
// session and opaque to the frontend.
func newKey() string {
	u := uuid.New()
	return fmt.Sprintf("%x", u[:])
}
