// Package frontend owns the rendered side of the UI stack protocol: the
// last accepted stack, atomic application of updates, focus tracking,
// and execution of service request batches.
package frontend

import (
	"skald.games/internal/protocol"
	"skald.games/internal/reconcile"
)

// UpdateResult reports one update's fate. Ack is sent back to the
// backend verbatim: a rejection means the rendered state is bit-identical
// to what it was before the update arrived.
type UpdateResult struct {
	Ack protocol.AckMsg
	// FocusChanged is set when the top entry's key changed, i.e. the
	// embedder should move focus and have the new top read out.
	FocusChanged bool
}

// Session is the frontend's rendered state, held as an explicit owned
// value rather than process globals so that update application stays
// pure and testable.
type Session struct {
	rendered protocol.UiStack
	revision uint64
	synced   bool

	lastTopKey protocol.Key
}

func NewSession() *Session { return &Session{} }

// Rendered returns a copy of the current rendered stack.
func (s *Session) Rendered() protocol.UiStack { return s.rendered.Clone() }

func (s *Session) Revision() uint64 { return s.revision }

// Focused returns the entry holding input focus (the top of the stack).
func (s *Session) Focused() (protocol.UiStackEntry, bool) { return s.rendered.Top() }

// ApplyWelcome installs the initial stack from the WELCOME message.
func (s *Session) ApplyWelcome(msg protocol.WelcomeMsg) UpdateResult {
	return s.install(msg.Revision, msg.Stack)
}

// ApplySnapshot replaces the rendered stack with a full snapshot.
// Snapshots are safe against any rendered state, which is why the
// backend falls back to them after a rejection.
func (s *Session) ApplySnapshot(msg protocol.UiStackMsg) UpdateResult {
	return s.install(msg.Revision, msg.Stack)
}

// ApplyPatch applies a positional op batch. The batch is only valid
// against the exact revision it was computed from; anything else is
// rejected as stale and the backend recomputes. Application is atomic:
// a rejected batch leaves the rendered stack untouched.
func (s *Session) ApplyPatch(msg protocol.UiPatchMsg) UpdateResult {
	if !s.synced || msg.BaseRevision != s.revision {
		return s.reject(msg.Revision, protocol.Errorf(protocol.ErrStale,
			"patch base %d does not match rendered revision %d", msg.BaseRevision, s.revision))
	}
	next, err := reconcile.Apply(s.rendered, msg.Ops)
	if err != nil {
		return s.reject(msg.Revision, err)
	}
	s.rendered = next
	s.revision = msg.Revision
	return s.accept(msg.Revision)
}

func (s *Session) install(revision uint64, stack protocol.UiStack) UpdateResult {
	if err := stack.Validate(); err != nil {
		return s.reject(revision, err)
	}
	s.rendered = stack.Clone()
	s.revision = revision
	s.synced = true
	return s.accept(revision)
}

func (s *Session) accept(revision uint64) UpdateResult {
	res := UpdateResult{Ack: protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		Revision:        revision,
		Accepted:        true,
	}}
	if top, ok := s.rendered.Top(); ok && top.Key != s.lastTopKey {
		s.lastTopKey = top.Key
		res.FocusChanged = true
	}
	return res
}

func (s *Session) reject(revision uint64, err error) UpdateResult {
	return UpdateResult{Ack: protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		Revision:        revision,
		Accepted:        false,
		Code:            protocol.CodeOf(err),
		Message:         err.Error(),
	}}
}

// CompleteFocused builds the COMPLETE action for choosing value on the
// focused menu. The value must be one of the menu's item values.
func (s *Session) CompleteFocused(value string) (protocol.ActionMsg, error) {
	top, ok := s.rendered.Top()
	if !ok {
		return protocol.ActionMsg{}, protocol.Errorf(protocol.ErrEmptyStack, "nothing is focused")
	}
	m, err := top.Element.AsMenu()
	if err != nil {
		return protocol.ActionMsg{}, err
	}
	found := false
	for _, it := range m.Items {
		if it.Value == value {
			found = true
			break
		}
	}
	if !found {
		return protocol.ActionMsg{}, protocol.Errorf(protocol.ErrUnknownKey,
			"menu %q has no item with value %q", m.Title, value)
	}
	return protocol.ActionMsg{
		Type:            protocol.TypeAction,
		ProtocolVersion: protocol.Version,
		Action:          protocol.ActionComplete,
		Target:          top.Key,
		Value:           value,
	}, nil
}

// CancelFocused builds the CANCEL action for the focused menu. Whether a
// cancel gesture exists at all is frontend-local; this only refuses when
// the menu forbids cancelling.
func (s *Session) CancelFocused() (protocol.ActionMsg, error) {
	top, ok := s.rendered.Top()
	if !ok {
		return protocol.ActionMsg{}, protocol.Errorf(protocol.ErrEmptyStack, "nothing is focused")
	}
	m, err := top.Element.AsMenu()
	if err != nil {
		return protocol.ActionMsg{}, err
	}
	if !m.CanCancel {
		return protocol.ActionMsg{}, protocol.Errorf(protocol.ErrProtoBadRequest,
			"menu %q may not be cancelled", m.Title)
	}
	return protocol.ActionMsg{
		Type:            protocol.TypeAction,
		ProtocolVersion: protocol.Version,
		Action:          protocol.ActionCancel,
		Target:          top.Key,
	}, nil
}
