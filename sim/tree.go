// Implements the AddressTree, the per-entity prefix store. The structure
// borrows from binary tries: a tree of up to <width> levels where a node's
// position encodes its prefix. Allocated blocks are marked used; everything
// not covered by a used node is free. The operation the rest of the kernel
// cares about most is FindGap: first free block of a requested size, in
// address order.

package sim

import "fmt"

// node is a position in the trie. A used node is an allocated block; an
// interior node with children always covers at least one allocation below
// it (Remove prunes free branches, Insert validates before mutating), which
// is what keeps gap search proportional to width rather than to the number
// of allocations.
type node struct {
	left, right *node
	used        bool
	tag         string
}

func (n *node) child(b int) *node {
	if b == 0 {
		return n.left
	}
	return n.right
}

func (n *node) setChild(b int, c *node) {
	if b == 0 {
		n.left = c
	} else {
		n.right = c
	}
}

func (n *node) leaf() bool {
	return n.left == nil && n.right == nil
}

// AddressTree is a binary trie over a fixed-width address space. Each tree
// is owned and mutated by exactly one entity; the single-threaded kernel
// needs no locking discipline.
type AddressTree struct {
	width int
	root  *node
	count int
}

// NewAddressTree returns an empty tree over a width-bit space.
// Width must be in [1, 63].
func NewAddressTree(width int) *AddressTree {
	// 63 bits is the ceiling because a length-0 prefix over a 64-bit space
	// would span 2^64 addresses, which uint64 cannot count.
	if width < 1 || width > 63 {
		panic(fmt.Sprintf("NewAddressTree: width %d out of range [1, 63]", width))
	}
	return &AddressTree{width: width, root: &node{}}
}

// Width returns the address-space bit width the tree covers.
func (t *AddressTree) Width() int { return t.width }

// Count returns the number of allocated prefixes currently in the tree.
func (t *AddressTree) Count() int { return t.count }

// Insert marks the prefix as allocated. It fails with AlignmentError when
// the base is not a multiple of the prefix span and with OverlapError when
// the prefix intersects an existing allocation. A failed insert leaves the
// tree unchanged.
func (t *AddressTree) Insert(p Prefix, tag string) error {
	if !p.Valid(t.width) {
		return fmt.Errorf("prefix %s does not fit a %d-bit space", p, t.width)
	}
	if !p.Aligned(t.width) {
		return &AlignmentError{Prefix: p}
	}
	// Validate the whole path before mutating.
	cur := t.root
	for i := 0; i < p.Length && cur != nil; i++ {
		if cur.used {
			return &OverlapError{Prefix: p}
		}
		cur = cur.child(p.bit(t.width, i))
	}
	if cur != nil && (cur.used || !cur.leaf()) {
		// The exact block, or something beneath it, is already allocated.
		return &OverlapError{Prefix: p}
	}
	cur = t.root
	for i := 0; i < p.Length; i++ {
		b := p.bit(t.width, i)
		if cur.child(b) == nil {
			cur.setChild(b, &node{})
		}
		cur = cur.child(b)
	}
	cur.used = true
	cur.tag = tag
	t.count++
	return nil
}

// Remove marks a previously allocated exact-match prefix free again, then
// prunes empty branches bottom-up so that insert followed by remove restores
// the prior structure.
func (t *AddressTree) Remove(p Prefix) error {
	if !p.Valid(t.width) {
		return fmt.Errorf("prefix %s does not fit a %d-bit space", p, t.width)
	}
	path := make([]*node, 0, p.Length+1)
	cur := t.root
	path = append(path, cur)
	for i := 0; i < p.Length; i++ {
		cur = cur.child(p.bit(t.width, i))
		if cur == nil {
			return fmt.Errorf("prefix %s is not allocated", p)
		}
		path = append(path, cur)
	}
	if !cur.used {
		return fmt.Errorf("prefix %s is not allocated", p)
	}
	cur.used = false
	cur.tag = ""
	t.count--
	for i := len(path) - 1; i > 0; i-- {
		n := path[i]
		if n.used || !n.leaf() {
			break
		}
		path[i-1].setChild(p.bit(t.width, i-1), nil)
	}
	return nil
}

// Contains reports whether the exact prefix is currently allocated.
func (t *AddressTree) Contains(p Prefix) bool {
	if !p.Valid(t.width) {
		return false
	}
	cur := t.root
	for i := 0; i < p.Length; i++ {
		cur = cur.child(p.bit(t.width, i))
		if cur == nil {
			return false
		}
	}
	return cur.used
}

// Covered reports whether the prefix lies inside any allocated block,
// including being allocated itself.
func (t *AddressTree) Covered(p Prefix) bool {
	if !p.Valid(t.width) {
		return false
	}
	cur := t.root
	for i := 0; ; i++ {
		if cur.used {
			return true
		}
		if i == p.Length {
			return false
		}
		cur = cur.child(p.bit(t.width, i))
		if cur == nil {
			return false
		}
	}
}

// FindGap returns the numerically lowest-base free prefix of the given
// length, scanning in address order. ok is false when no gap of that size
// remains anywhere in the space (exhaustion).
func (t *AddressTree) FindGap(length int) (Prefix, bool) {
	if length < 0 || length > t.width {
		return Prefix{}, false
	}
	return t.findGap(t.root, Prefix{}, length)
}

// FindGapFrom searches for a gap of the given length inside a particular
// block. The block itself need not be present in the tree: running off the
// trie on the way down means the whole block is free.
func (t *AddressTree) FindGapFrom(from Prefix, length int) (Prefix, bool) {
	if length < from.Length || length > t.width {
		return Prefix{}, false
	}
	if !from.Valid(t.width) || !from.Aligned(t.width) {
		return Prefix{}, false
	}
	cur := t.root
	for i := 0; i < from.Length; i++ {
		if cur.used {
			// The block sits inside an allocated range.
			return Prefix{}, false
		}
		cur = cur.child(from.bit(t.width, i))
		if cur == nil {
			return Prefix{Base: from.Base, Length: length}, true
		}
	}
	return t.findGap(cur, from, length)
}

// findGap is a preorder walk of the subtree rooted at n, which covers the
// prefix at. The left branch is tried first so the lowest base wins; used
// subtrees are skipped at their root.
func (t *AddressTree) findGap(n *node, at Prefix, length int) (Prefix, bool) {
	if n == nil {
		return Prefix{Base: at.Base, Length: length}, true
	}
	if n.used {
		return Prefix{}, false
	}
	if at.Length == length {
		if n.leaf() {
			return Prefix{Base: at.Base, Length: length}, true
		}
		return Prefix{}, false
	}
	left := Prefix{Base: at.Base, Length: at.Length + 1}
	if p, ok := t.findGap(n.left, left, length); ok {
		return p, true
	}
	right := Prefix{Base: at.Base + left.Span(t.width), Length: at.Length + 1}
	return t.findGap(n.right, right, length)
}

// Walk visits every allocated prefix in address order. Return false from fn
// to stop early.
func (t *AddressTree) Walk(fn func(p Prefix, tag string) bool) {
	t.walk(t.root, Prefix{}, fn)
}

func (t *AddressTree) walk(n *node, at Prefix, fn func(Prefix, string) bool) bool {
	if n == nil {
		return true
	}
	if n.used && !fn(at, n.tag) {
		return false
	}
	if at.Length == t.width {
		return true
	}
	left := Prefix{Base: at.Base, Length: at.Length + 1}
	if !t.walk(n.left, left, fn) {
		return false
	}
	right := Prefix{Base: at.Base + left.Span(t.width), Length: at.Length + 1}
	return t.walk(n.right, right, fn)
}

// AllocatedPrefixes returns the allocated prefixes in address order.
func (t *AddressTree) AllocatedPrefixes() []Prefix {
	var out []Prefix
	t.Walk(func(p Prefix, _ string) bool {
		out = append(out, p)
		return true
	})
	return out
}
