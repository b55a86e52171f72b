package engine

import (
	"sync"

	"github.com/iti/pdessim/simtime"
)

// workerState is Worker's Idle/Running state machine (spec.md §4.2).
type workerState int

const (
	stateIdle workerState = iota
	stateRunning
)

// Worker is the thread-local execution context for one pool goroutine (or,
// in single-threaded mode, for the engine's own goroutine acting as the
// sole worker). Go has no implicit thread-local storage, so a Worker is
// carried explicitly down the call stack into Host.PopAndDeliver rather
// than recovered from a package-global lookup — see SPEC_FULL.md §4.2.
type Worker struct {
	id     uint64
	engine *Engine

	mu          sync.Mutex
	state       workerState
	currentTime simtime.SimulationTime
	currentHost HostID
	hasHost     bool
}

func newWorker(id uint64, e *Engine) *Worker {
	return &Worker{id: id, engine: e, state: stateIdle}
}

// ID returns this worker's engine-assigned identifier.
func (w *Worker) ID() uint64 {
	return w.id
}

// CurrentTime returns the virtual time the worker is currently positioned
// at — the delivery time of the event it is presently processing.
func (w *Worker) CurrentTime() simtime.SimulationTime {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentTime
}

// CurrentHost returns the host this worker is currently bound to, and
// whether it is bound to one at all (it is unbound between work items).
func (w *Worker) CurrentHost() (HostID, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentHost, w.hasHost
}

// bindHost transitions the worker Idle -> Running(host) for the duration
// of one host work item.
func (w *Worker) bindHost(host HostID, at simtime.SimulationTime) {
	w.mu.Lock()
	w.state = stateRunning
	w.currentHost = host
	w.hasHost = true
	w.currentTime = at
	w.mu.Unlock()
}

// AdvanceTime updates the worker's notion of current time to t. A Host
// implementation's PopAndDeliver must call this with the delivery time of
// each event immediately before acting on it (spec.md §4.1: "for each
// event: set worker's currentTime := event.deliveryTime"), so that any
// PushEvent the delivery logic makes is checked against the right
// emitTime rather than the window-start time bindHost recorded. t must
// not move backwards within a work item; AdvanceTime does not enforce
// this itself, since a host's own queue ordering already guarantees it.
func (w *Worker) AdvanceTime(t simtime.SimulationTime) {
	w.mu.Lock()
	w.currentTime = t
	w.mu.Unlock()
}

// release transitions the worker Running -> Idle at a work item boundary.
func (w *Worker) release() {
	w.mu.Lock()
	w.state = stateIdle
	w.hasHost = false
	w.mu.Unlock()
}

// PushEvent routes ev through the owning Engine, supplying this worker as
// the calling context so the lookahead check knows (srcHostID, currentTime).
func (w *Worker) PushEvent(ev *Event) error {
	return w.engine.pushEvent(w, ev)
}
