// Build-time configuration records. The simulator is constructed from a
// RunConfig plus a flat list of EntityRecords; where the records come from
// (YAML scenario, registry data file, test literals) is the caller's
// business.

package sim

// Defaults applied by the builder when a record leaves a knob at zero.
const (
	DefaultWidth = 32

	// DefaultRequestInterval is the static-behaviour cadence, in time
	// units, when none is configured.
	DefaultRequestInterval int64 = 30
)

// RunConfig carries the run-wide parameters. None of these are mutable once
// the simulator is built.
type RunConfig struct {
	// Width is the address-space bit width, in [1, 63].
	Width int `yaml:"width"`

	// MaxTime stops the run before any event later than this would fire.
	// An event at exactly MaxTime still fires. 0 means no limit.
	MaxTime int64 `yaml:"max_time"`

	Seed int64 `yaml:"seed"`

	// StopWhenExhausted halts the run once every supplier has run dry,
	// even if behaviours keep scheduling activity.
	StopWhenExhausted bool `yaml:"stop_when_exhausted"`

	// SnapshotInterval logs per-supplier utilisation every this many time
	// units. 0 disables snapshots.
	SnapshotInterval int64 `yaml:"snapshot_interval"`
}

// BlockRecord seeds an entity with a prefix at build time.
type BlockRecord struct {
	Prefix Prefix

	// Allocatable blocks are stock the entity may sub-allocate from;
	// non-allocatable blocks are holdings or reserved ranges, inserted
	// allocated from the start.
	Allocatable bool

	Tag string
}

// EntityRecord describes one entity of the hierarchy to build. Records may
// appear in any order; parents are linked after all entities exist.
type EntityRecord struct {
	Name            string
	Role            Role
	Parent          string // empty only for the root authority
	ReplenishLength int
	Behaviour       *BehaviourConfig
	Blocks          []BlockRecord

	// Inactive builds the entity deactivated: it holds its blocks and
	// supplies downstream requests, but its own behaviour never runs.
	Inactive bool
}
