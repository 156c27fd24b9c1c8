// Implements the Timeline, the global ordered event store. Events are kept
// in a min-heap keyed by (fire time, insertion sequence), which supports
// insertion at any future time while earlier-but-not-yet-due events still
// exist, and makes same-instant ordering deterministic.

package sim

import (
	"container/heap"
	"iter"
)

// Event is anything the Timeline can fire. Each event has a fire time and
// an Execute method that advances simulation state when invoked.
type Event interface {
	Timestamp() int64
	Execute(*Simulator)
}

// scheduled pairs an event with its insertion sequence number, the
// tie-breaker for events sharing a timestamp.
type scheduled struct {
	ev  Event
	seq uint64
}

// eventQueue implements heap.Interface ordered by (timestamp, sequence).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventQueue []scheduled

func (eq eventQueue) Len() int { return len(eq) }
func (eq eventQueue) Less(i, j int) bool {
	ti, tj := eq[i].ev.Timestamp(), eq[j].ev.Timestamp()
	if ti != tj {
		return ti < tj
	}
	return eq[i].seq < eq[j].seq
}
func (eq eventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *eventQueue) Push(x any) {
	*eq = append(*eq, x.(scheduled))
}

func (eq *eventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	*eq = old[:n-1]
	return item
}

// Timeline holds pending events keyed by future simulation time. It tracks
// the clock of its last drain so that scheduling into the past can be
// caught immediately rather than surfacing as silent reordering.
type Timeline struct {
	queue eventQueue
	clock int64
	seq   uint64
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

// Len returns the number of pending events.
func (tl *Timeline) Len() int { return tl.queue.Len() }

// Clock returns the time of the most recent drain.
func (tl *Timeline) Clock() int64 { return tl.clock }

// Schedule inserts the event at its timestamp. An event strictly before the
// current clock is a programming error, reported as PastSchedulingError and
// never silently clamped.
func (tl *Timeline) Schedule(ev Event) error {
	if ev.Timestamp() < tl.clock {
		return &PastSchedulingError{EventTime: ev.Timestamp(), Clock: tl.clock}
	}
	heap.Push(&tl.queue, scheduled{ev: ev, seq: tl.seq})
	tl.seq++
	return nil
}

// PeekNextTime returns the earliest remaining fire time. ok is false when
// the timeline is empty; the driver uses this to jump the clock straight to
// the next meaningful instant.
func (tl *Timeline) PeekNextTime() (int64, bool) {
	if tl.queue.Len() == 0 {
		return 0, false
	}
	return tl.queue[0].ev.Timestamp(), true
}

// PopDue advances the clock to now and yields every event with timestamp
// <= now in (timestamp, sequence) order, removing each as it is yielded.
// Firing is consuming: no event is yielded twice. The sequence is lazy, so
// events enqueued at exactly now while the caller is consuming it are
// drained in the same pass.
func (tl *Timeline) PopDue(now int64) iter.Seq[Event] {
	if now > tl.clock {
		tl.clock = now
	}
	return func(yield func(Event) bool) {
		for tl.queue.Len() > 0 && tl.queue[0].ev.Timestamp() <= now {
			item := heap.Pop(&tl.queue).(scheduled)
			if !yield(item.ev) {
				return
			}
		}
	}
}
