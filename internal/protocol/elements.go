package protocol

// Key identifies a logical entity across updates. Keys are opaque: they
// are compared for equality only and never carry ordering or display
// meaning. They must be unique among siblings (entries of one stack,
// items of one menu).
type Key string

type MenuItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Key   Key    `json:"key"`
}

// Menu is immutable once shown: a content change is represented by
// removing the menu's stack entry and inserting a fresh one under a new
// key. Item order is semantic; the backend provides a stable sort.
type Menu struct {
	Title     string     `json:"title"`
	Items     []MenuItem `json:"items"`
	CanCancel bool       `json:"can_cancel,omitempty"`
}

// Validate checks that item keys are present and unique within the menu.
func (m *Menu) Validate() error {
	seen := make(map[Key]struct{}, len(m.Items))
	for i, it := range m.Items {
		if it.Key == "" {
			return Errorf(ErrMalformedElement, "menu %q: item %d has empty key", m.Title, i)
		}
		if _, ok := seen[it.Key]; ok {
			return Errorf(ErrDuplicateKey, "menu %q: duplicate item key %q", m.Title, it.Key)
		}
		seen[it.Key] = struct{}{}
	}
	return nil
}

// GameplayArea is a marker element: the frontend owns all of its internal
// state, and nothing about it is synchronized through the stack.
type GameplayArea struct{}

// Variant names, matching the JSON field carrying each variant.
const (
	VariantMenu         = "menu"
	VariantGameplayArea = "gameplay_area"
)

// UiElement is a closed tagged union: exactly one variant is populated.
// Adding a variant is a protocol version change.
type UiElement struct {
	Menu         *Menu         `json:"menu,omitempty"`
	GameplayArea *GameplayArea `json:"gameplay_area,omitempty"`
}

func MenuElement(m Menu) UiElement { return UiElement{Menu: &m} }

func GameplayElement() UiElement { return UiElement{GameplayArea: &GameplayArea{}} }

// Variant returns the name of the populated variant, or "" for a
// malformed element.
func (e *UiElement) Variant() string {
	switch {
	case e.Menu != nil && e.GameplayArea == nil:
		return VariantMenu
	case e.GameplayArea != nil && e.Menu == nil:
		return VariantGameplayArea
	}
	return ""
}

// Validate checks that exactly one variant is set and that the variant
// itself is well formed.
func (e *UiElement) Validate() error {
	n := 0
	if e.Menu != nil {
		n++
	}
	if e.GameplayArea != nil {
		n++
	}
	if n != 1 {
		return Errorf(ErrMalformedElement, "element must populate exactly one variant, has %d", n)
	}
	if e.Menu != nil {
		return e.Menu.Validate()
	}
	return nil
}

// AsMenu returns the menu variant. Reading the wrong variant is a
// contract violation, not a silent default.
func (e *UiElement) AsMenu() (*Menu, error) {
	if e.Menu == nil {
		return nil, Errorf(ErrWrongVariant, "element is %q, not %q", e.Variant(), VariantMenu)
	}
	return e.Menu, nil
}

func (e *UiElement) AsGameplayArea() (*GameplayArea, error) {
	if e.GameplayArea == nil {
		return nil, Errorf(ErrWrongVariant, "element is %q, not %q", e.Variant(), VariantGameplayArea)
	}
	return e.GameplayArea, nil
}

// UiStackEntry pairs an element with the key identifying it across
// updates, independent of the element's content.
type UiStackEntry struct {
	Key     Key       `json:"key"`
	Element UiElement `json:"element"`
}

// UiStack is the ordered sequence of displayed elements. Index 0 is the
// bottom (by convention the gameplay area for the whole session); the
// highest index is the top, the entry holding input focus.
type UiStack struct {
	Entries []UiStackEntry `json:"entries"`
}

// Top returns the focused entry.
func (s *UiStack) Top() (UiStackEntry, bool) {
	if len(s.Entries) == 0 {
		return UiStackEntry{}, false
	}
	return s.Entries[len(s.Entries)-1], true
}

// IndexOf returns the position of key in the stack, or -1.
func (s *UiStack) IndexOf(key Key) int {
	for i := range s.Entries {
		if s.Entries[i].Key == key {
			return i
		}
	}
	return -1
}

// Validate checks the stack invariants: at least one entry, unique entry
// keys, and well-formed elements.
func (s *UiStack) Validate() error {
	if len(s.Entries) == 0 {
		return Errorf(ErrEmptyStack, "stack must hold at least one entry")
	}
	seen := make(map[Key]struct{}, len(s.Entries))
	for i := range s.Entries {
		e := &s.Entries[i]
		if e.Key == "" {
			return Errorf(ErrMalformedElement, "entry %d has empty key", i)
		}
		if _, ok := seen[e.Key]; ok {
			return Errorf(ErrDuplicateKey, "duplicate entry key %q", e.Key)
		}
		seen[e.Key] = struct{}{}
		if err := e.Element.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy. Element variants are copied so that the
// clone shares no mutable state with the original.
func (s *UiStack) Clone() UiStack {
	out := UiStack{Entries: make([]UiStackEntry, len(s.Entries))}
	for i := range s.Entries {
		out.Entries[i] = s.Entries[i].Clone()
	}
	return out
}

func (e UiStackEntry) Clone() UiStackEntry {
	out := e
	if e.Element.Menu != nil {
		m := *e.Element.Menu
		m.Items = append([]MenuItem(nil), e.Element.Menu.Items...)
		out.Element.Menu = &m
	}
	if e.Element.GameplayArea != nil {
		g := *e.Element.GameplayArea
		out.Element.GameplayArea = &g
	}
	return out
}

// Equal reports whether two stacks describe the same desired state.
func (s *UiStack) Equal(other *UiStack) bool {
	if len(s.Entries) != len(other.Entries) {
		return false
	}
	for i := range s.Entries {
		if !s.Entries[i].Equal(&other.Entries[i]) {
			return false
		}
	}
	return true
}

func (e *UiStackEntry) Equal(other *UiStackEntry) bool {
	if e.Key != other.Key {
		return false
	}
	if (e.Element.GameplayArea != nil) != (other.Element.GameplayArea != nil) {
		return false
	}
	a, b := e.Element.Menu, other.Element.Menu
	if (a != nil) != (b != nil) {
		return false
	}
	if a == nil {
		return true
	}
	if a.Title != b.Title || a.CanCancel != b.CanCancel || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if a.Items[i] != b.Items[i] {
			return false
		}
	}
	return true
}
