// Package reconcile computes and applies keyed edits between UI stacks.
//
// The diff is deliberately restricted compared to general virtual-DOM
// reconciliation: there is no move operation. A key that appears in both
// stacks at a different relative position is treated as unrelated content
// and becomes a remove plus an insert. Reordering a live stack invalidates
// a screen reader user's navigation model, so keeping order monotonic is a
// correctness requirement here, not a missed optimization. Nothing is ever
// patched in place either: menus are immutable once shown (a changed menu
// arrives under a fresh key) and the gameplay area owns its internal state
// out of band.
package reconcile

import "skald.games/internal/protocol"

// Diff walks old and new as two ordered keyed sequences and returns the
// ops transforming old into new. Entries are identified by key, never by
// position. Reconciling a stack against an equal stack returns no ops.
//
// Ops are emitted in an order that never leaves the stack transiently
// empty: when an entry only known to new lines up with an entry only
// known to old, the insert is emitted first. Apply relies on this to
// enforce the non-empty invariant at every intermediate step.
func Diff(old, new protocol.UiStack) ([]protocol.PatchOp, error) {
	if err := old.Validate(); err != nil {
		return nil, err
	}
	if err := new.Validate(); err != nil {
		return nil, err
	}

	inOld := keySet(old)
	inNew := keySet(new)

	var ops []protocol.PatchOp
	i, j := 0, 0
	// idx tracks the position in the frontend's working list as the ops
	// emitted so far are applied in order.
	idx := 0
	for i < len(old.Entries) || j < len(new.Entries) {
		switch {
		case i >= len(old.Entries):
			// Old exhausted: everything left in new is an insert. A shared
			// key cannot remain here, because every shared old entry was
			// consumed together with exactly one shared new entry.
			e := new.Entries[j].Clone()
			ops = append(ops, protocol.PatchOp{Op: protocol.OpInsert, Index: idx, Entry: &e})
			j++
			idx++
		case j >= len(new.Entries):
			ops = append(ops, protocol.PatchOp{Op: protocol.OpRemove, Index: idx})
			i++
		case !member(inOld, new.Entries[j].Key):
			// Known only to new: insert at the current position.
			e := new.Entries[j].Clone()
			ops = append(ops, protocol.PatchOp{Op: protocol.OpInsert, Index: idx, Entry: &e})
			j++
			idx++
		case !member(inNew, old.Entries[i].Key):
			// Known only to old: remove from the current position.
			ops = append(ops, protocol.PatchOp{Op: protocol.OpRemove, Index: idx})
			i++
		case old.Entries[i].Key == new.Entries[j].Key:
			if !old.Entries[i].Equal(&new.Entries[j]) {
				// Same key, different content: the backend broke the
				// immutability contract for this entry. Refuse rather
				// than ship a patch the frontend cannot represent.
				return nil, protocol.Errorf(protocol.ErrMalformedElement,
					"entry %q changed content without changing key", old.Entries[i].Key)
			}
			i++
			j++
			idx++
		default:
			// Both keys live in both stacks but not at matching relative
			// positions: a reorder. Emit remove+insert and treat the two
			// entries as unrelated.
			e := new.Entries[j].Clone()
			ops = append(ops,
				protocol.PatchOp{Op: protocol.OpRemove, Index: idx},
				protocol.PatchOp{Op: protocol.OpInsert, Index: idx, Entry: &e},
			)
			i++
			j++
			idx++
		}
	}
	return ops, nil
}

// Apply runs ops in order against a copy of stack and returns the result.
// A batch is atomic: on any violation the input stack is returned
// unchanged alongside the error, and the caller keeps its prior state.
// The stack length must stay >= 1 at every intermediate step
// (E_EMPTY_STACK otherwise), and the final stack must be valid (unique
// keys, well-formed elements). Duplicate keys are tolerated only
// transiently, which is what makes the reorder remove+insert pairs
// applicable.
func Apply(stack protocol.UiStack, ops []protocol.PatchOp) (protocol.UiStack, error) {
	if err := stack.Validate(); err != nil {
		return stack, err
	}
	work := stack.Clone()
	for n, op := range ops {
		switch op.Op {
		case protocol.OpRemove:
			if op.Index < 0 || op.Index >= len(work.Entries) {
				return stack, protocol.Errorf(protocol.ErrUnknownKey,
					"op %d: remove index %d out of range (len %d)", n, op.Index, len(work.Entries))
			}
			if len(work.Entries) == 1 {
				return stack, protocol.Errorf(protocol.ErrEmptyStack,
					"op %d: remove would empty the stack", n)
			}
			work.Entries = append(work.Entries[:op.Index], work.Entries[op.Index+1:]...)
		case protocol.OpInsert:
			if op.Entry == nil {
				return stack, protocol.Errorf(protocol.ErrProtoBadRequest, "op %d: insert without entry", n)
			}
			if err := op.Entry.Element.Validate(); err != nil {
				return stack, err
			}
			if op.Index < 0 || op.Index > len(work.Entries) {
				return stack, protocol.Errorf(protocol.ErrProtoBadRequest,
					"op %d: insert index %d out of range (len %d)", n, op.Index, len(work.Entries))
			}
			e := op.Entry.Clone()
			work.Entries = append(work.Entries, protocol.UiStackEntry{})
			copy(work.Entries[op.Index+1:], work.Entries[op.Index:])
			work.Entries[op.Index] = e
		default:
			return stack, protocol.Errorf(protocol.ErrProtoBadRequest, "op %d: unknown op %q", n, op.Op)
		}
	}
	if err := work.Validate(); err != nil {
		return stack, err
	}
	return work, nil
}

func keySet(s protocol.UiStack) map[protocol.Key]struct{} {
	out := make(map[protocol.Key]struct{}, len(s.Entries))
	for i := range s.Entries {
		out[s.Entries[i].Key] = struct{}{}
	}
	return out
}

func member(set map[protocol.Key]struct{}, k protocol.Key) bool {
	_, ok := set[k]
	return ok
}
