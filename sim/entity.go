// An Entity is one node of the delegation hierarchy: the root authority, a
// regional registry under it, or a leaf holder under a registry. Every
// entity owns an AddressTree recording what is allocated inside the blocks
// it has received; suppliers additionally keep those blocks as stock to
// sub-allocate from.

package sim

import (
	"slices"
	"sort"

	"github.com/sirupsen/logrus"
)

// Role is an entity's position in the delegation hierarchy. Roles are
// generic: any number of entities may share one, and the hierarchy may be
// deeper or shallower than the classic three tiers.
type Role string

const (
	RoleIANA Role = "iana"
	RoleRIR  Role = "rir"
	RoleLIR  Role = "lir"
)

// Supplier reports whether entities of this role sub-allocate the blocks
// they receive rather than consuming them.
func (r Role) Supplier() bool {
	return r == RoleIANA || r == RoleRIR
}

// Entity is one participant in the hierarchy. All fields are manipulated
// from the single simulation goroutine; there is no locking.
type Entity struct {
	Name      string
	Role      Role
	Parent    *Entity // nil for the root authority
	Tree      *AddressTree
	Behaviour Behaviour // nil for passive suppliers

	// ReplenishLength is the prefix length this entity requests from its
	// own parent when it cannot satisfy a downstream request. 0 disables
	// upward replenishment.
	ReplenishLength int

	// Pending holds requests issued but not yet resolved. Resolution is
	// synchronous, so the slice drains within the instant it fills.
	Pending []*AllocationRequest

	// owned are the allocatable blocks in base order, so that gap search
	// always visits the lowest addresses first.
	owned []Prefix

	Active    bool
	Exhausted bool

	Span uint64 // addresses covered by every block received
	Used uint64 // addresses allocated out (or consumed) within Span

	fulfilled int
}

func NewEntity(name string, role Role, width int) *Entity {
	return &Entity{
		Name:   name,
		Role:   role,
		Tree:   NewAddressTree(width),
		Active: true,
	}
}

// ReceiveAllocatable adds a block to the entity's allocatable stock. The
// tree stays free inside the block; later allocations carve it up. Fresh
// stock clears the exhausted flag.
func (e *Entity) ReceiveAllocatable(p Prefix) {
	e.owned = append(e.owned, p)
	sort.Slice(e.owned, func(i, j int) bool { return e.owned[i].Base < e.owned[j].Base })
	e.Span += p.Span(e.Tree.Width())
	e.Exhausted = false
}

// ReceiveConsumed records a block held for the entity's own use: it is
// inserted allocated so nothing can be carved out of it again.
func (e *Entity) ReceiveConsumed(p Prefix, tag string) error {
	if err := e.Tree.Insert(p, tag); err != nil {
		return err
	}
	span := p.Span(e.Tree.Width())
	e.Span += span
	e.Used += span
	return nil
}

// Receive files a fulfilled prefix according to role: suppliers keep it as
// stock, leaf holders consume it.
func (e *Entity) Receive(p Prefix, tag string) error {
	if e.Role.Supplier() {
		e.ReceiveAllocatable(p)
		return nil
	}
	return e.ReceiveConsumed(p, tag)
}

// MarkReserved marks part of the entity's own stock as unusable (reserved
// ranges, holdings delegated before the run began). Used grows, Span does
// not: the covering block was already counted when it was received.
func (e *Entity) MarkReserved(p Prefix, tag string) error {
	if err := e.Tree.Insert(p, tag); err != nil {
		return err
	}
	e.Used += p.Span(e.Tree.Width())
	return nil
}

// OwnedBlocks returns a copy of the allocatable stock in base order.
func (e *Entity) OwnedBlocks() []Prefix {
	return slices.Clone(e.owned)
}

// TakeGap finds the first free gap of the given length across the owned
// blocks and claims it in the same step, so no other allocation can land in
// between. reason is ReasonExhaustion when no gap of that size exists and
// ReasonInternal when a found gap could not be claimed.
func (e *Entity) TakeGap(length int, tag string) (Prefix, RejectReason, bool) {
	for _, b := range e.owned {
		gap, ok := e.Tree.FindGapFrom(b, length)
		if !ok {
			continue
		}
		if err := e.Tree.Insert(gap, tag); err != nil {
			logrus.Errorf("%s: claiming found gap %s for %s: %v", e.Name, gap, tag, err)
			return Prefix{}, ReasonInternal, false
		}
		e.Used += gap.Span(e.Tree.Width())
		e.fulfilled++
		return gap, "", true
	}
	return Prefix{}, ReasonExhaustion, false
}

// AddressesAvailable returns the addresses received but not yet allocated.
func (e *Entity) AddressesAvailable() uint64 {
	if e.Used > e.Span {
		return 0
	}
	return e.Span - e.Used
}

// PercentFree returns AddressesAvailable as a percentage of Span.
func (e *Entity) PercentFree() float64 {
	if e.Span == 0 {
		return 0
	}
	return 100 * float64(e.AddressesAvailable()) / float64(e.Span)
}

// FulfilledCount returns how many downstream requests this entity has
// fulfilled as a supplier.
func (e *Entity) FulfilledCount() int { return e.fulfilled }

// Deactivate silences the entity: its behaviour stops being activated.
// Events already on the timeline for other entities are untouched.
func (e *Entity) Deactivate() { e.Active = false }
