package engine

import "github.com/iti/pdessim/simtime"

// Host is the contract the engine requires of a virtual host. Hosts are
// external collaborators (spec.md component D): the engine drives them
// through this interface and never inspects their internals.
type Host interface {
	// ID returns this host's stable identifier.
	ID() HostID

	// PushLocalEvent enqueues ev into the host's private event queue.
	PushLocalEvent(ev *Event)

	// PeekNextDeliveryTime returns the delivery time of the earliest
	// pending event, and false if the host's queue is empty.
	PeekNextDeliveryTime() (simtime.SimulationTime, bool)

	// PopAndDeliver dequeues and delivers every pending event whose
	// delivery time is strictly less than until, in (deliveryTime,
	// sequenceNumber) order. w is the calling worker's handle: before
	// acting on each event, the implementation must call
	// w.AdvanceTime(event.DeliveryTime()) so w's current position tracks
	// the event actually being delivered. A host's delivery logic may then
	// call w.PushEvent to emit further events; the engine evaluates the
	// lookahead invariant against whatever w.AdvanceTime last recorded, so
	// skipping the call leaves every push in this work item checked
	// against the window-start time instead of the event's own delivery
	// time. PopAndDeliver returns once no pending event remains below
	// until.
	PopAndDeliver(until simtime.SimulationTime, w *Worker)
}
