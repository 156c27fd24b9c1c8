// The Simulator owns the run: the clock, the Timeline, the entity arena,
// and the resolution record stream. The driver loop jumps the clock from
// event to event; nothing happens between events.

package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/simlir/simlir/sim/report"
)

// RunStatus is the terminal state of a run.
type RunStatus string

const (
	// RunCompleted: the timeline drained empty.
	RunCompleted RunStatus = "completed"

	// RunHalted: a stop condition (max time, global exhaustion) ended the
	// run while events were still pending.
	RunHalted RunStatus = "halted"
)

// Simulator drives a single run. Not safe for concurrent use: the whole
// model is single-threaded and waiting is expressed as a future Timeline
// entry, never as a blocked goroutine.
type Simulator struct {
	Clock    int64
	Config   RunConfig
	Timeline *Timeline
	Metrics  *Metrics
	Report   *report.RunReport

	entities map[string]*Entity
	order    []string // build order, for deterministic iteration
	root     *Entity
	rng      *PartitionedRNG
}

// NewSimulator builds the entity hierarchy from records and seeds the
// initial activity events. Structural problems (duplicate names, missing
// parents, no root) are errors; individually bad seed blocks are logged
// and skipped so one malformed registry row cannot sink a run.
func NewSimulator(cfg RunConfig, records []EntityRecord) (*Simulator, error) {
	if cfg.Width == 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Width < 1 || cfg.Width > 63 {
		return nil, fmt.Errorf("width %d out of range [1, 63]", cfg.Width)
	}

	s := &Simulator{
		Config:   cfg,
		Timeline: NewTimeline(),
		Metrics:  NewMetrics(),
		Report:   report.NewRunReport(),
		entities: make(map[string]*Entity),
		rng:      NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
	}

	// Pass 1: create entities, identify the root.
	for _, rec := range records {
		if rec.Name == "" {
			return nil, fmt.Errorf("entity record without a name")
		}
		if _, ok := s.entities[rec.Name]; ok {
			return nil, fmt.Errorf("duplicate entity %q", rec.Name)
		}
		e := NewEntity(rec.Name, rec.Role, cfg.Width)
		e.ReplenishLength = rec.ReplenishLength
		if rec.Inactive {
			e.Deactivate()
		}
		s.entities[rec.Name] = e
		s.order = append(s.order, rec.Name)
		if rec.Parent == "" {
			if s.root != nil {
				return nil, fmt.Errorf("two root entities: %q and %q", s.root.Name, rec.Name)
			}
			s.root = e
		}
	}
	if s.root == nil {
		return nil, fmt.Errorf("no root entity (every record names a parent)")
	}

	// The root authority starts owning the entire space.
	s.root.ReceiveAllocatable(Prefix{Base: 0, Length: 0})

	// Pass 2: link parents and build behaviours.
	for _, rec := range records {
		e := s.entities[rec.Name]
		if rec.Parent != "" {
			parent, ok := s.entities[rec.Parent]
			if !ok {
				return nil, fmt.Errorf("entity %q: unknown parent %q", rec.Name, rec.Parent)
			}
			e.Parent = parent
		}
		if rec.Behaviour != nil {
			b, err := NewBehaviour(*rec.Behaviour, s.rng.ForSubsystem(SubsystemBehaviour(rec.Name)))
			if err != nil {
				return nil, fmt.Errorf("entity %q: %w", rec.Name, err)
			}
			e.Behaviour = b
		}
	}

	// Pass 3: seed blocks. Each block stands or falls on its own.
	for _, rec := range records {
		e := s.entities[rec.Name]
		for _, blk := range rec.Blocks {
			s.seedBlock(e, blk)
		}
	}

	// Pass 4: initial activations.
	for _, rec := range records {
		e := s.entities[rec.Name]
		if e.Behaviour == nil {
			continue
		}
		start := int64(0)
		if rec.Behaviour != nil {
			start = rec.Behaviour.Start
		}
		if rb, ok := e.Behaviour.(*ReplayBehaviour); ok {
			first, any := rb.Start()
			if !any {
				continue // nothing to replay, never wake
			}
			start = first
		}
		if err := s.ScheduleActivity(e, start); err != nil {
			return nil, fmt.Errorf("entity %q: initial activation: %w", rec.Name, err)
		}
	}

	if cfg.SnapshotInterval > 0 {
		s.scheduleSnapshot(0)
	}

	return s, nil
}

// scheduleSnapshot chains utilisation snapshots through the run. The chain
// ends itself once no other events remain (or the next snapshot would fall
// past the max time), so snapshots never keep a finished run alive.
func (s *Simulator) scheduleSnapshot(at int64) {
	ev := NewFuncEvent(at, nil, func(sim *Simulator, now int64, _ any) {
		sim.logUtilisation(now)
		next := now + sim.Config.SnapshotInterval
		if sim.Config.MaxTime > 0 && next > sim.Config.MaxTime {
			return
		}
		if sim.Timeline.Len() == 0 {
			return
		}
		sim.scheduleSnapshot(next)
	})
	if err := s.Timeline.Schedule(ev); err != nil {
		panic(err)
	}
}

// logUtilisation reports per-supplier stock levels.
func (s *Simulator) logUtilisation(now int64) {
	for _, name := range s.order {
		e := s.entities[name]
		if !e.Role.Supplier() {
			continue
		}
		logrus.Infof("[t %07d] %s: %5.1f%% free (%d of %d addresses)",
			now, e.Name, e.PercentFree(), e.AddressesAvailable(), e.Span)
	}
}

// seedBlock applies one build-time block to an entity, mirroring it into
// the parent's tree so the parent cannot hand the same range out again.
// Bad blocks are diagnosed and dropped.
func (s *Simulator) seedBlock(e *Entity, blk BlockRecord) {
	p := blk.Prefix
	if !p.Valid(s.Config.Width) || !p.Aligned(s.Config.Width) {
		logrus.Warnf("%s: dropping block %s: not a valid aligned prefix in a %d-bit space",
			e.Name, p, s.Config.Width)
		return
	}
	if e == s.root {
		if blk.Allocatable {
			logrus.Warnf("%s: dropping allocatable block %s: the root already owns the whole space",
				e.Name, p)
			return
		}
		if err := e.MarkReserved(p, blk.Tag); err != nil {
			logrus.Warnf("%s: dropping reserved block %s: %v", e.Name, p, err)
		}
		return
	}

	if blk.Allocatable {
		if e.Parent != nil {
			if err := e.Parent.MarkReserved(p, "delegated "+e.Name); err != nil {
				logrus.Warnf("%s: dropping block %s: supplier %s rejects it: %v",
					e.Name, p, e.Parent.Name, err)
				return
			}
		}
		e.ReceiveAllocatable(p)
		return
	}

	if err := e.ReceiveConsumed(p, blk.Tag); err != nil {
		logrus.Warnf("%s: dropping holding %s: %v", e.Name, p, err)
		return
	}
	if e.Parent != nil {
		if err := e.Parent.MarkReserved(p, "held by "+e.Name); err != nil {
			logrus.Warnf("%s: holding %s not reflected at supplier %s: %v",
				e.Name, p, e.Parent.Name, err)
		}
	}
}

// Entity returns the named entity, or nil.
func (s *Simulator) Entity(name string) *Entity {
	return s.entities[name]
}

// Root returns the root authority.
func (s *Simulator) Root() *Entity { return s.root }

// EntityNames returns the entity names in build order.
func (s *Simulator) EntityNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Run drives the timeline until it drains (RunCompleted) or a stop
// condition fires (RunHalted). The clock jumps straight to each next event
// time; an event at exactly MaxTime still fires.
func (s *Simulator) Run() RunStatus {
	logrus.Infof("starting run: width=%d entities=%d maxTime=%d seed=%d",
		s.Config.Width, len(s.entities), s.Config.MaxTime, s.Config.Seed)

	status := RunCompleted
	for {
		next, ok := s.Timeline.PeekNextTime()
		if !ok {
			break
		}
		if s.Config.MaxTime > 0 && next > s.Config.MaxTime {
			status = RunHalted
			break
		}
		s.Clock = next
		for ev := range s.Timeline.PopDue(next) {
			ev.Execute(s)
		}
		if s.Config.StopWhenExhausted && s.allExhausted() {
			logrus.Infof("[t %07d] every supplier is exhausted, stopping", s.Clock)
			status = RunHalted
			break
		}
	}
	s.Metrics.EndTime = s.Clock
	logrus.Infof("[t %07d] run %s", s.Clock, status)
	return status
}

// allExhausted reports whether every supplier in the hierarchy has run dry.
func (s *Simulator) allExhausted() bool {
	for _, name := range s.order {
		e := s.entities[name]
		if e.Role.Supplier() && !e.Exhausted {
			return false
		}
	}
	return true
}

// ScheduleActivity registers a wake-up for the entity. Behaviours schedule
// only for their own entity; the builder uses this for initial seeding.
func (s *Simulator) ScheduleActivity(e *Entity, at int64) error {
	return s.Timeline.Schedule(NewActivityEvent(at, e))
}

// runActivity fires one activation: the behaviour decides, the simulator
// executes. A decision to wake again in the past is a programming error in
// the behaviour, and there is no sane way to continue past it.
func (s *Simulator) runActivity(e *Entity, now int64) {
	if !e.Active || e.Behaviour == nil {
		return
	}
	d := e.Behaviour.DecideNextRequest(e, now)
	if d.Span > 0 {
		s.Request(e, d.Span, now)
	}
	if d.Again {
		if err := s.ScheduleActivity(e, d.Next); err != nil {
			panic(err)
		}
	}
}

// Request issues a request from e for span addresses and resolves it
// synchronously, before returning. The returned request is already in its
// terminal state.
func (s *Simulator) Request(e *Entity, span uint64, now int64) *AllocationRequest {
	req := &AllocationRequest{
		Requester: e,
		Span:      span,
		Time:      now,
		Status:    StatusPending,
	}
	length, ok := LengthForSpan(span, s.Config.Width)
	if !ok {
		// Bigger than the whole space: exhausted by definition.
		req.Length = -1
		req.Status = StatusRejected
		req.Reason = ReasonExhaustion
		s.record(req)
		if e.Behaviour != nil {
			e.Behaviour.OnRejected(s, e, req)
		}
		return req
	}
	req.Length = length
	e.Pending = append(e.Pending, req)
	s.resolve(req)
	return req
}

// resolve takes a pending request to its terminal state, records it, and
// fires the behaviour hook. Replenishment requests issued on the way up the
// hierarchy come back through here too, so the record stream shows the full
// cascade.
func (s *Simulator) resolve(req *AllocationRequest) {
	e := req.Requester

	var prefix Prefix
	reason := ReasonInternal
	ok := false
	if e.Parent == nil {
		logrus.Errorf("%s has no supplier to request from", e.Name)
	} else {
		prefix, reason, ok = s.allocate(e.Parent, req)
	}

	if ok {
		req.Status = StatusFulfilled
		req.Prefix = prefix
		if err := e.Receive(prefix, fmt.Sprintf("from %s @%d", e.Parent.Name, req.Time)); err != nil {
			// Supplier stocks are disjoint from ours, so this means the
			// build seeded overlapping trees.
			logrus.Errorf("filing %s into %s: %v", prefix, e.Name, err)
		}
		logrus.Debugf("[t %07d] %s <- %s: %s", req.Time, e.Name, e.Parent.Name, prefix)
	} else {
		req.Status = StatusRejected
		req.Reason = reason
		logrus.Debugf("[t %07d] %s: rejected span %d (%s)", req.Time, e.Name, req.Span, reason)
	}

	e.Pending = removeRequest(e.Pending, req)
	s.record(req)

	if e.Behaviour != nil {
		if ok {
			e.Behaviour.OnFulfilled(s, e, req)
		} else {
			e.Behaviour.OnRejected(s, e, req)
		}
	}
}

// allocate resolves a request against the supplier's stock. When the stock
// has no gap of the needed size, the supplier asks its own parent for a
// standard replenishment block within the same instant and retries once.
func (s *Simulator) allocate(supplier *Entity, req *AllocationRequest) (Prefix, RejectReason, bool) {
	gap, reason, ok := supplier.TakeGap(req.Length, req.Requester.Name)
	if ok {
		return gap, "", true
	}
	if reason == ReasonInternal {
		return Prefix{}, ReasonInternal, false
	}

	if supplier.Parent != nil && supplier.ReplenishLength > 0 && !supplier.Parent.Exhausted {
		length := supplier.ReplenishLength
		if req.Length < length {
			// The downstream request is bigger than our standard refill;
			// fetch a block that can actually hold it.
			length = req.Length
		}
		sub := &AllocationRequest{
			Requester: supplier,
			Span:      Prefix{Length: length}.Span(s.Config.Width),
			Length:    length,
			Time:      s.Clock,
			Status:    StatusPending,
		}
		supplier.Pending = append(supplier.Pending, sub)
		s.resolve(sub)
		if sub.Status == StatusFulfilled {
			if gap, reason, ok = supplier.TakeGap(req.Length, req.Requester.Name); ok {
				return gap, "", true
			}
			return Prefix{}, reason, false
		}
	}

	supplier.Exhausted = true
	return Prefix{}, ReasonExhaustion, false
}

// record flattens a resolved request into the report stream and the
// aggregate metrics.
func (s *Simulator) record(req *AllocationRequest) {
	supplier := ""
	if req.Requester.Parent != nil {
		supplier = req.Requester.Parent.Name
	}
	rec := report.ResolutionRecord{
		Entity:   req.Requester.Name,
		Supplier: supplier,
		Time:     req.Time,
		Span:     req.Span,
	}
	switch req.Status {
	case StatusFulfilled:
		rec.Outcome = report.OutcomeFulfilled
		rec.Prefix = req.Prefix.String()
	case StatusRejected:
		rec.Outcome = report.OutcomeRejected
		rec.Reason = string(req.Reason)
	}
	s.Report.Append(rec)
	s.Metrics.Observe(req, s.Clock)
}

func removeRequest(pending []*AllocationRequest, req *AllocationRequest) []*AllocationRequest {
	for i, r := range pending {
		if r == req {
			return append(pending[:i], pending[i+1:]...)
		}
	}
	return pending
}
