package reconcile

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"skald.games/internal/protocol"
)

func gameplay(key protocol.Key) protocol.UiStackEntry {
	return protocol.UiStackEntry{Key: key, Element: protocol.GameplayElement()}
}

func menu(key protocol.Key, title string) protocol.UiStackEntry {
	return protocol.UiStackEntry{Key: key, Element: protocol.MenuElement(protocol.Menu{
		Title: title,
		Items: []protocol.MenuItem{{Label: "Ok", Value: "ok", Key: "i1"}},
	})}
}

func stack(entries ...protocol.UiStackEntry) protocol.UiStack {
	return protocol.UiStack{Entries: entries}
}

// diffApply diffs old->new and replays the ops, asserting convergence.
func diffApply(t *testing.T, old, new protocol.UiStack) []protocol.PatchOp {
	t.Helper()
	ops, err := Diff(old, new)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	got, err := Apply(old, ops)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if diff := cmp.Diff(new, got); diff != "" {
		t.Fatalf("applied stack mismatch (-want +got):\n%s", diff)
	}
	return ops
}

func TestDiff_IdenticalStacksYieldNoOps(t *testing.T) {
	s := stack(gameplay("k0"), menu("k1", "main"))
	ops := diffApply(t, s, s.Clone())
	if len(ops) != 0 {
		t.Fatalf("expected no ops, got %v", ops)
	}
}

func TestDiff_PushMenu(t *testing.T) {
	old := stack(gameplay("k0"))
	new := stack(gameplay("k0"), menu("k1", "main"))
	ops := diffApply(t, old, new)
	if len(ops) != 1 {
		t.Fatalf("expected exactly one op, got %v", ops)
	}
	if ops[0].Op != protocol.OpInsert || ops[0].Index != 1 {
		t.Fatalf("expected insert at 1, got %+v", ops[0])
	}
}

func TestDiff_PopMenu(t *testing.T) {
	old := stack(gameplay("k0"), menu("k1", "main"))
	new := stack(gameplay("k0"))
	ops := diffApply(t, old, new)
	if len(ops) != 1 {
		t.Fatalf("expected exactly one op, got %v", ops)
	}
	if ops[0].Op != protocol.OpRemove || ops[0].Index != 1 {
		t.Fatalf("expected remove at 1, got %+v", ops[0])
	}
}

func TestDiff_SwapEmitsNoMove(t *testing.T) {
	old := stack(gameplay("k1"), menu("k2", "main"))
	new := stack(menu("k2", "main"), gameplay("k1"))
	ops := diffApply(t, old, new)

	removes, inserts := 0, 0
	for _, op := range ops {
		switch op.Op {
		case protocol.OpRemove:
			removes++
		case protocol.OpInsert:
			inserts++
		default:
			t.Fatalf("unexpected op kind %q", op.Op)
		}
	}
	// Both keys move, so both are torn down and rebuilt.
	if removes != 2 || inserts != 2 {
		t.Fatalf("swap: want 2 removes + 2 inserts, got %d/%d (%v)", removes, inserts, ops)
	}
}

func TestDiff_ReplaceMenuUnderNewKey(t *testing.T) {
	// The reconciler never patches a menu in place: a changed menu shows
	// up as a fresh key, producing remove+insert.
	old := stack(gameplay("k0"), menu("k1", "inventory"))
	new := stack(gameplay("k0"), menu("k2", "inventory"))
	ops := diffApply(t, old, new)
	if len(ops) != 2 {
		t.Fatalf("expected remove+insert, got %v", ops)
	}
}

func TestDiff_ChangedContentUnderSameKeyRefused(t *testing.T) {
	old := stack(gameplay("k0"), menu("k1", "inventory"))
	new := stack(gameplay("k0"), menu("k1", "inventory (2)"))
	if _, err := Diff(old, new); !protocol.HasCode(err, protocol.ErrMalformedElement) {
		t.Fatalf("expected %s, got %v", protocol.ErrMalformedElement, err)
	}
}

func TestDiff_FullReplacementOfSingleEntry(t *testing.T) {
	// Insert is ordered before remove so the stack is never transiently
	// empty even when the sole entry is replaced.
	old := stack(gameplay("k1"))
	new := stack(gameplay("k2"))
	ops := diffApply(t, old, new)
	if len(ops) != 2 {
		t.Fatalf("expected 2 ops, got %v", ops)
	}
	if ops[0].Op != protocol.OpInsert {
		t.Fatalf("expected insert first, got %+v", ops)
	}
}

func TestDiff_Interleaved(t *testing.T) {
	old := stack(gameplay("a"), menu("b", "b"), menu("c", "c"))
	new := stack(gameplay("a"), menu("c", "c"), menu("d", "d"))
	diffApply(t, old, new)

	old2 := stack(gameplay("a"), menu("b", "b"), menu("c", "c"))
	new2 := stack(menu("c", "c"), menu("b", "b"), gameplay("a"))
	diffApply(t, old2, new2)
}

func TestDiff_InvalidInputRejected(t *testing.T) {
	var empty protocol.UiStack
	if _, err := Diff(empty, stack(gameplay("k1"))); !protocol.HasCode(err, protocol.ErrEmptyStack) {
		t.Fatalf("empty old: got %v", err)
	}
	if _, err := Diff(stack(gameplay("k1")), empty); !protocol.HasCode(err, protocol.ErrEmptyStack) {
		t.Fatalf("empty new: got %v", err)
	}
}

func TestApply_EmptyingBatchRejectedWholesale(t *testing.T) {
	prior := stack(gameplay("k1"))
	priorCopy := prior.Clone()
	ops := []protocol.PatchOp{{Op: protocol.OpRemove, Index: 0}}
	got, err := Apply(prior, ops)
	if !protocol.HasCode(err, protocol.ErrEmptyStack) {
		t.Fatalf("expected %s, got %v", protocol.ErrEmptyStack, err)
	}
	if diff := cmp.Diff(priorCopy, got); diff != "" {
		t.Fatalf("prior state not retained (-want +got):\n%s", diff)
	}
}

func TestApply_AtomicOnMidBatchFailure(t *testing.T) {
	prior := stack(gameplay("k1"), menu("k2", "main"))
	priorCopy := prior.Clone()
	e := menu("k3", "other")
	ops := []protocol.PatchOp{
		{Op: protocol.OpInsert, Index: 2, Entry: &e},
		{Op: protocol.OpRemove, Index: 9}, // out of range
	}
	got, err := Apply(prior, ops)
	if !protocol.HasCode(err, protocol.ErrUnknownKey) {
		t.Fatalf("expected %s, got %v", protocol.ErrUnknownKey, err)
	}
	if diff := cmp.Diff(priorCopy, got); diff != "" {
		t.Fatalf("partial application leaked (-want +got):\n%s", diff)
	}
}

func TestApply_RejectsMalformedOps(t *testing.T) {
	prior := stack(gameplay("k1"))
	cases := []struct {
		name string
		ops  []protocol.PatchOp
		code string
	}{
		{"insert without entry", []protocol.PatchOp{{Op: protocol.OpInsert, Index: 0}}, protocol.ErrProtoBadRequest},
		{"unknown op", []protocol.PatchOp{{Op: "MOVE", Index: 0}}, protocol.ErrProtoBadRequest},
		{"insert out of range", func() []protocol.PatchOp {
			e := gameplay("k9")
			return []protocol.PatchOp{{Op: protocol.OpInsert, Index: 5, Entry: &e}}
		}(), protocol.ErrProtoBadRequest},
		{"insert malformed element", func() []protocol.PatchOp {
			e := protocol.UiStackEntry{Key: "k9"}
			return []protocol.PatchOp{{Op: protocol.OpInsert, Index: 0, Entry: &e}}
		}(), protocol.ErrMalformedElement},
		{"final duplicate key", func() []protocol.PatchOp {
			e := gameplay("k1")
			return []protocol.PatchOp{{Op: protocol.OpInsert, Index: 0, Entry: &e}}
		}(), protocol.ErrDuplicateKey},
	}
	for _, tc := range cases {
		got, err := Apply(prior, tc.ops)
		if !protocol.HasCode(err, tc.code) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.code, err)
		}
		if diff := cmp.Diff(prior, got); diff != "" {
			t.Fatalf("%s: prior state not retained:\n%s", tc.name, diff)
		}
	}
}

func TestApply_DoesNotAliasInput(t *testing.T) {
	prior := stack(gameplay("k0"), menu("k1", "main"))
	e := menu("k2", "other")
	ops := []protocol.PatchOp{{Op: protocol.OpInsert, Index: 2, Entry: &e}}
	got, err := Apply(prior, ops)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got.Entries[1].Element.Menu.Title = "mutated"
	if prior.Entries[1].Element.Menu.Title != "main" {
		t.Fatalf("Apply result aliases input stack")
	}
	e.Element.Menu.Title = "mutated"
	if got.Entries[2].Element.Menu.Title == "mutated" {
		t.Fatalf("Apply result aliases op entry")
	}
}
