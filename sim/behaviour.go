// Behaviour policies decide when an entity requests address space and how
// much. The kernel never invents requests: every request traces back to a
// behaviour decision, and every wake-up traces back to a behaviour asking to
// be woken again. The set of behaviours is closed and selected by name at
// build time.

package sim

import (
	"fmt"
	"math/rand"
	"sort"
)

// Behaviour is the per-entity request policy. Implementations must be
// deterministic given their inputs and the RNG stream they were built with.
type Behaviour interface {
	// DecideNextRequest is called at each activation. Span 0 requests
	// nothing; Again false means the entity goes quiet (no further
	// activations unless something else schedules one).
	DecideNextRequest(e *Entity, now int64) Decision

	// OnFulfilled runs after a request from this entity resolves
	// successfully, within the same instant.
	OnFulfilled(s *Simulator, e *Entity, req *AllocationRequest)

	// OnRejected runs after a request from this entity is rejected. The
	// behaviour may schedule a retry; the kernel never retries on its own.
	OnRejected(s *Simulator, e *Entity, req *AllocationRequest)
}

// Decision is the outcome of one behaviour activation.
type Decision struct {
	Span  uint64 // addresses to request now; 0 requests nothing
	Next  int64  // next activation time, meaningful when Again is set
	Again bool
}

// StaticBehaviour requests a fixed span at a fixed interval regardless of
// history. Jitter > 0 adds 1..Jitter extra time units to every interval,
// which spreads out entities that would otherwise wake in lockstep.
type StaticBehaviour struct {
	Span     uint64
	Interval int64
	Jitter   int64
	rng      *rand.Rand
}

func NewStaticBehaviour(span uint64, interval, jitter int64, rng *rand.Rand) *StaticBehaviour {
	return &StaticBehaviour{Span: span, Interval: interval, Jitter: jitter, rng: rng}
}

func (b *StaticBehaviour) DecideNextRequest(e *Entity, now int64) Decision {
	next := now + b.Interval
	if b.Jitter > 0 && b.rng != nil {
		next += 1 + b.rng.Int63n(b.Jitter)
	}
	return Decision{Span: b.Span, Next: next, Again: true}
}

func (b *StaticBehaviour) OnFulfilled(s *Simulator, e *Entity, req *AllocationRequest) {}

// OnRejected is a no-op: a static requester keeps its cadence whether or
// not the last request succeeded.
func (b *StaticBehaviour) OnRejected(s *Simulator, e *Entity, req *AllocationRequest) {}

// ReplayRecord is one recorded historical request.
type ReplayRecord struct {
	Time int64  `yaml:"time"`
	Span uint64 `yaml:"span"`
}

// ReplayBehaviour replays a recorded request sequence, one record per
// activation, in time order. When the records run out the entity simply
// stops requesting; exhausting the sequence is not an error.
type ReplayBehaviour struct {
	records []ReplayRecord
	idx     int
}

func NewReplayBehaviour(records []ReplayRecord) *ReplayBehaviour {
	sorted := make([]ReplayRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	return &ReplayBehaviour{records: sorted}
}

// Start returns the activation time of the first record. ok is false for an
// empty sequence, in which case the entity is never activated.
func (b *ReplayBehaviour) Start() (int64, bool) {
	if len(b.records) == 0 {
		return 0, false
	}
	return b.records[0].Time, true
}

// Remaining returns the number of records not yet replayed.
func (b *ReplayBehaviour) Remaining() int { return len(b.records) - b.idx }

func (b *ReplayBehaviour) DecideNextRequest(e *Entity, now int64) Decision {
	if b.idx >= len(b.records) {
		return Decision{}
	}
	rec := b.records[b.idx]
	b.idx++
	d := Decision{Span: rec.Span}
	if b.idx < len(b.records) {
		d.Next = b.records[b.idx].Time
		d.Again = true
	}
	return d
}

// Replay follows the record regardless of outcome.
func (b *ReplayBehaviour) OnFulfilled(s *Simulator, e *Entity, req *AllocationRequest) {}
func (b *ReplayBehaviour) OnRejected(s *Simulator, e *Entity, req *AllocationRequest)  {}

// BehaviourConfig selects and parameterises a behaviour by name. A nil
// config leaves the entity passive: it supplies downstream requests but
// never issues its own.
type BehaviourConfig struct {
	Kind     string         `yaml:"kind"` // "static" or "replay"
	Span     uint64         `yaml:"span"`
	Interval int64          `yaml:"interval"`
	Jitter   int64          `yaml:"jitter"`
	Start    int64          `yaml:"start"`
	Replay   []ReplayRecord `yaml:"replay"`
}

// NewBehaviour builds the behaviour cfg names. Unknown kinds are a build
// error, not a fallback.
func NewBehaviour(cfg BehaviourConfig, rng *rand.Rand) (Behaviour, error) {
	switch cfg.Kind {
	case "static":
		if cfg.Span == 0 {
			return nil, fmt.Errorf("static behaviour needs a non-zero span")
		}
		interval := cfg.Interval
		if interval <= 0 {
			interval = DefaultRequestInterval
		}
		return NewStaticBehaviour(cfg.Span, interval, cfg.Jitter, rng), nil
	case "replay":
		return NewReplayBehaviour(cfg.Replay), nil
	default:
		return nil, fmt.Errorf("unknown behaviour kind %q", cfg.Kind)
	}
}
