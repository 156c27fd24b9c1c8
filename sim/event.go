// Defines the concrete event types fired by the Timeline. Events carry no
// logic of their own beyond dispatch: Execute hands control to the Simulator
// (or to an arbitrary callback) at the event's fire time.

package sim

import (
	"github.com/sirupsen/logrus"
)

// ActivityEvent wakes an entity: its behaviour decides whether to request
// address space now and when to wake next.
type ActivityEvent struct {
	time   int64
	Entity *Entity
}

func NewActivityEvent(at int64, e *Entity) *ActivityEvent {
	return &ActivityEvent{time: at, Entity: e}
}

func (e *ActivityEvent) Timestamp() int64 { return e.time }

func (e *ActivityEvent) Execute(s *Simulator) {
	logrus.Debugf("[t %07d] activity: %s", e.time, e.Entity.Name)
	s.runActivity(e.Entity, e.time)
}

// FuncEvent fires an arbitrary callback with an opaque payload. Used for
// one-off hooks that do not belong to any entity, such as stop conditions
// and instrumentation snapshots.
type FuncEvent struct {
	time    int64
	Payload any
	Fn      func(s *Simulator, now int64, payload any)
}

func NewFuncEvent(at int64, payload any, fn func(s *Simulator, now int64, payload any)) *FuncEvent {
	return &FuncEvent{time: at, Payload: payload, Fn: fn}
}

func (e *FuncEvent) Timestamp() int64 { return e.time }

func (e *FuncEvent) Execute(s *Simulator) {
	if e.Fn != nil {
		e.Fn(s, e.time, e.Payload)
	}
}
