package engine

import "github.com/iti/pdessim/simtime"

// HostID uniquely and stably identifies a virtual host for its lifetime.
type HostID uint64

// AddressID uniquely identifies an address-service entity (e.g. an
// attachment point). It shares HostID's representation but is kept as a
// distinct type so the two id spaces are never accidentally interchanged.
type AddressID uint64

// noHost is the reserved HostID meaning "no destination", used internally
// to represent master-queue (engine-level) events.
const noHost HostID = 0

// Event is an immutable, timestamped message carrying a source host, an
// optional destination host, and an opaque payload. Its ordering key is
// (DeliveryTime, SequenceNumber); SequenceNumber is stamped by the engine
// on ingress so that two events with the same delivery time still sort
// deterministically.
type Event struct {
	deliveryTime   simtime.SimulationTime
	srcHostID      HostID
	dstHostID      HostID
	hasDst         bool
	sequenceNumber uint64
	payload        any
}

// NewEvent constructs an Event bound for a specific destination host.
func NewEvent(deliveryTime simtime.SimulationTime, srcHostID, dstHostID HostID, payload any) *Event {
	return &Event{
		deliveryTime: deliveryTime,
		srcHostID:    srcHostID,
		dstHostID:    dstHostID,
		hasDst:       true,
		payload:      payload,
	}
}

// NewEngineEvent constructs an Event with no destination host — it is
// routed to the engine's master queue instead of a host's local queue.
func NewEngineEvent(deliveryTime simtime.SimulationTime, srcHostID HostID, payload any) *Event {
	return &Event{
		deliveryTime: deliveryTime,
		srcHostID:    srcHostID,
		hasDst:       false,
		payload:      payload,
	}
}

// DeliveryTime returns the virtual time at which the event is to be
// delivered.
func (e *Event) DeliveryTime() simtime.SimulationTime {
	return e.deliveryTime
}

// SrcHostID returns the id of the host that emitted the event.
func (e *Event) SrcHostID() HostID {
	return e.srcHostID
}

// DstHostID returns the destination host id and true, or the zero value
// and false if the event is engine-level (no destination host).
func (e *Event) DstHostID() (HostID, bool) {
	return e.dstHostID, e.hasDst
}

// Payload returns the opaque data the event carries.
func (e *Event) Payload() any {
	return e.payload
}

// SequenceNumber returns the monotonic tie-breaker the engine assigned to
// this event at enqueue time.
func (e *Event) SequenceNumber() uint64 {
	return e.sequenceNumber
}
