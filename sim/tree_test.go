package sim

import (
	"errors"
	"testing"
)

func TestAddressTree_Insert_MisalignedLeavesTreeUnchanged(t *testing.T) {
	// GIVEN an empty 8-bit tree
	tree := NewAddressTree(8)

	// WHEN a misaligned /4 (base 3, span 16) is inserted
	err := tree.Insert(Prefix{Base: 3, Length: 4}, "x")

	// THEN the insert fails with AlignmentError and nothing was allocated
	var alignErr *AlignmentError
	if !errors.As(err, &alignErr) {
		t.Fatalf("Insert misaligned: got %v, want AlignmentError", err)
	}
	if tree.Count() != 0 {
		t.Errorf("failed insert allocated something: count %d", tree.Count())
	}
	if p, ok := tree.FindGap(0); !ok || p.Base != 0 {
		t.Errorf("whole space should still be free, got (%v, %v)", p, ok)
	}
}

func TestAddressTree_Insert_OverlapRejectedBothDirections(t *testing.T) {
	// GIVEN a tree holding 16/4
	tree := NewAddressTree(8)
	if err := tree.Insert(Prefix{Base: 16, Length: 4}, "a"); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	// WHEN inserting a block inside it, and a block containing it
	errInside := tree.Insert(Prefix{Base: 20, Length: 6}, "b")
	errOutside := tree.Insert(Prefix{Base: 0, Length: 2}, "c")

	// THEN both fail with OverlapError
	var overlap *OverlapError
	if !errors.As(errInside, &overlap) {
		t.Errorf("insert inside allocated block: got %v, want OverlapError", errInside)
	}
	if !errors.As(errOutside, &overlap) {
		t.Errorf("insert containing allocated block: got %v, want OverlapError", errOutside)
	}
	if tree.Count() != 1 {
		t.Errorf("count: got %d, want 1", tree.Count())
	}
}

func TestAddressTree_InsertRemove_RestoresFreeSpace(t *testing.T) {
	// GIVEN a tree with two sibling /5 blocks
	tree := NewAddressTree(8)
	a := Prefix{Base: 0, Length: 5}
	b := Prefix{Base: 8, Length: 5}
	if err := tree.Insert(a, ""); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if err := tree.Insert(b, ""); err != nil {
		t.Fatalf("insert b: %v", err)
	}

	// WHEN both are removed
	if err := tree.Remove(a); err != nil {
		t.Fatalf("remove a: %v", err)
	}
	if err := tree.Remove(b); err != nil {
		t.Fatalf("remove b: %v", err)
	}

	// THEN the covering /4 is allocatable again
	if err := tree.Insert(Prefix{Base: 0, Length: 4}, ""); err != nil {
		t.Errorf("covering block after removals: %v", err)
	}
}

func TestAddressTree_Remove_UnallocatedFails(t *testing.T) {
	tree := NewAddressTree(8)
	if err := tree.Insert(Prefix{Base: 0, Length: 4}, ""); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// Removing a sub-block of an allocation is not an exact match.
	if err := tree.Remove(Prefix{Base: 0, Length: 5}); err == nil {
		t.Errorf("remove of non-exact match: want error")
	}
	if err := tree.Remove(Prefix{Base: 128, Length: 4}); err == nil {
		t.Errorf("remove of never-allocated prefix: want error")
	}
}

func TestAddressTree_FindGap_LowestBaseFirst(t *testing.T) {
	// GIVEN a tree where 0/4 and 32/4 are taken
	tree := NewAddressTree(8)
	for _, p := range []Prefix{{Base: 0, Length: 4}, {Base: 32, Length: 4}} {
		if err := tree.Insert(p, ""); err != nil {
			t.Fatalf("insert %v: %v", p, err)
		}
	}

	// WHEN searching for a /4 gap
	gap, ok := tree.FindGap(4)

	// THEN the hole at 16 wins over the free space above 48
	if !ok || gap.Base != 16 || gap.Length != 4 {
		t.Errorf("FindGap(4): got (%v, %v), want (16/4, true)", gap, ok)
	}
}

func TestAddressTree_FindGap_ExhaustionReportsFalse(t *testing.T) {
	// GIVEN a 4-bit space fully covered by two /1 blocks
	tree := NewAddressTree(4)
	for _, p := range []Prefix{{Base: 0, Length: 1}, {Base: 8, Length: 1}} {
		if err := tree.Insert(p, ""); err != nil {
			t.Fatalf("insert %v: %v", p, err)
		}
	}

	if _, ok := tree.FindGap(4); ok {
		t.Errorf("FindGap on a full space: want ok=false")
	}
}

func TestAddressTree_FindGapFrom_StaysInsideBlock(t *testing.T) {
	// GIVEN a tree where the first half of 64/2's left /3 is taken
	tree := NewAddressTree(8)
	if err := tree.Insert(Prefix{Base: 64, Length: 3}, ""); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// WHEN searching inside 64/2
	gap, ok := tree.FindGapFrom(Prefix{Base: 64, Length: 2}, 3)

	// THEN the sibling half is found, not free space outside the block
	if !ok || gap.Base != 96 || gap.Length != 3 {
		t.Errorf("FindGapFrom: got (%v, %v), want (96/3, true)", gap, ok)
	}

	// AND a search wider than the block is refused outright
	if _, ok := tree.FindGapFrom(Prefix{Base: 64, Length: 2}, 1); ok {
		t.Errorf("gap larger than the containing block: want ok=false")
	}
}

func TestAddressTree_FindGapFrom_UntouchedBlockIsWhollyFree(t *testing.T) {
	tree := NewAddressTree(8)
	gap, ok := tree.FindGapFrom(Prefix{Base: 128, Length: 1}, 4)
	if !ok || gap.Base != 128 || gap.Length != 4 {
		t.Errorf("gap in untouched block: got (%v, %v), want (128/4, true)", gap, ok)
	}
}

// TestAddressTree_FillDrain_AgainstLinearScan cross-checks gap search
// against a brute-force free-map over the whole 8-bit space: repeatedly
// claim the gap the tree reports, verify a linear scan agrees, until
// exhaustion, then drain and confirm the space is whole again.
func TestAddressTree_FillDrain_AgainstLinearScan(t *testing.T) {
	tree := NewAddressTree(8)
	var free [256]bool
	for i := range free {
		free[i] = true
	}

	linearScan := func(span int) (int, bool) {
		for base := 0; base+span <= 256; base += span {
			all := true
			for i := base; i < base+span; i++ {
				if !free[i] {
					all = false
					break
				}
			}
			if all {
				return base, true
			}
		}
		return 0, false
	}

	// Mixed sizes chosen to fragment and then saturate the space.
	sizes := []int{5, 3, 5, 6, 4, 3, 6, 5, 4, 6, 3, 5, 6, 4, 5, 6}
	var claimed []Prefix
	for _, length := range sizes {
		span := 1 << (8 - length)
		wantBase, wantOK := linearScan(span)
		gap, ok := tree.FindGap(length)
		if ok != wantOK {
			t.Fatalf("FindGap(%d): ok=%v, linear scan says %v", length, ok, wantOK)
		}
		if !ok {
			continue
		}
		if int(gap.Base) != wantBase {
			t.Fatalf("FindGap(%d): base %d, linear scan says %d", length, gap.Base, wantBase)
		}
		if err := tree.Insert(gap, ""); err != nil {
			t.Fatalf("claiming reported gap %v: %v", gap, err)
		}
		for i := int(gap.Base); i < int(gap.Base)+span; i++ {
			free[i] = false
		}
		claimed = append(claimed, gap)
	}

	for _, p := range claimed {
		if err := tree.Remove(p); err != nil {
			t.Fatalf("remove %v: %v", p, err)
		}
	}
	if gap, ok := tree.FindGap(0); !ok || gap.Base != 0 {
		t.Errorf("after draining, the whole space should be one gap, got (%v, %v)", gap, ok)
	}
	if tree.Count() != 0 {
		t.Errorf("count after drain: got %d, want 0", tree.Count())
	}
}

func TestAddressTree_ContainsAndCovered(t *testing.T) {
	// GIVEN a tree holding 16/4
	tree := NewAddressTree(8)
	if err := tree.Insert(Prefix{Base: 16, Length: 4}, ""); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// THEN Contains is exact-match only
	if !tree.Contains(Prefix{Base: 16, Length: 4}) {
		t.Errorf("Contains exact match: want true")
	}
	if tree.Contains(Prefix{Base: 16, Length: 5}) {
		t.Errorf("Contains sub-block: want false")
	}
	if tree.Contains(Prefix{Base: 0, Length: 3}) {
		t.Errorf("Contains covering block: want false")
	}

	// AND Covered is true for the block itself and anything inside it
	for _, p := range []Prefix{{Base: 16, Length: 4}, {Base: 16, Length: 5}, {Base: 24, Length: 8}} {
		if !tree.Covered(p) {
			t.Errorf("Covered(%v): want true", p)
		}
	}
	if tree.Covered(Prefix{Base: 0, Length: 3}) {
		t.Errorf("Covered for a block containing the allocation: want false")
	}
	if tree.Covered(Prefix{Base: 32, Length: 4}) {
		t.Errorf("Covered for a disjoint block: want false")
	}
}

func TestAddressTree_Walk_AddressOrder(t *testing.T) {
	tree := NewAddressTree(8)
	ins := []Prefix{{Base: 128, Length: 2}, {Base: 0, Length: 4}, {Base: 32, Length: 3}}
	for _, p := range ins {
		if err := tree.Insert(p, ""); err != nil {
			t.Fatalf("insert %v: %v", p, err)
		}
	}
	got := tree.AllocatedPrefixes()
	want := []Prefix{{Base: 0, Length: 4}, {Base: 32, Length: 3}, {Base: 128, Length: 2}}
	if len(got) != len(want) {
		t.Fatalf("allocated: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("allocated[%d]: got %v, want %v", i, got[i], want[i])
		}
	}
}
