// Package engine implements the conservative parallel discrete-event
// scheduling core: a global window-based scheduler (Engine) that
// dispatches timestamped Events to Host work items across a Worker pool,
// enforcing a lookahead safety barrier between windows.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/iti/rngstream"
	"github.com/sirupsen/logrus"

	"github.com/iti/pdessim/simtime"
)

// Exit codes, returned by Run. Zero is normal termination; non-zero codes
// distinguish the startup/runtime failure classes of spec.md §7.
const (
	ExitOK                  = 0
	ExitConfigInvalid       = 1
	ExitWorkerPoolFailure   = 2
	ExitLookaheadViolation  = 3
	ExitGraphUnloadable     = 4
	ExitUnconnectedTopology = 5
)

// Params configures an Engine at construction. It mirrors the fields of
// config.Config that the core actually consumes (spec.md §6), kept as its
// own type here so package engine has no import-time dependency on
// package config.
type Params struct {
	MinTimeJump simtime.SimulationTime
	EndTime     simtime.SimulationTime
	Seed        uint64
}

// Validate checks the invariants spec.md §6 requires of engine parameters.
func (p Params) Validate() error {
	if p.MinTimeJump <= 0 {
		return fmt.Errorf("engine: minTimeJump must be > 0, got %d", p.MinTimeJump)
	}
	if p.EndTime <= 0 {
		return fmt.Errorf("engine: endTime must be > 0, got %d", p.EndTime)
	}
	return nil
}

// workItem tells a pool worker which host to drain, up to which window
// boundary.
type workItem struct {
	host      Host
	windowEnd simtime.SimulationTime
}

// Engine is the global scheduler: it owns the master event queue, the
// worker pool, the execution-window barrier, the kill switch, and ID
// generation (spec.md §3, "Engine state").
type Engine struct {
	minTimeJump simtime.SimulationTime
	endTime     simtime.SimulationTime

	// clock, windowStart, windowEnd are mutated only between windows and
	// read freely by workers during a window (spec.md §5).
	clock       simtime.SimulationTime
	windowStart simtime.SimulationTime
	windowEnd   simtime.SimulationTime

	nNodesToProcess atomic.Int64
	workerIDCounter atomic.Uint64
	objectIDCounter atomic.Uint64
	killed          atomic.Bool
	exitCode        atomic.Int64
	running         atomic.Bool

	masterQueue *masterQueue
	registry    *registry

	hostsMu sync.RWMutex
	hosts   map[HostID]Host

	seqMu   sync.Mutex
	seqCtrs map[HostID]uint32

	pool       []*Worker
	workCh     chan workItem
	windowDone chan struct{}
	poolWG     sync.WaitGroup

	rngMu sync.Mutex
	rng   *rngstream.RngStream
	seed  uint64
}

// New constructs an Engine from the given parameters. It fails (returns a
// non-nil error) if the parameters are invalid — spec.md's "fails if
// config invalid".
func New(p Params) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		minTimeJump: p.MinTimeJump,
		endTime:     p.EndTime,
		masterQueue: newMasterQueue(),
		registry:    newRegistry(),
		hosts:       make(map[HostID]Host),
		seqCtrs:     make(map[HostID]uint32),
		windowDone:  make(chan struct{}, 1),
		seed:        p.Seed,
	}
	e.windowStart = e.clock
	e.windowEnd = e.windowStart.Add(e.minTimeJump)
	return e, nil
}

// RegisterHost adds h to the set of hosts the engine dispatches work to.
func (e *Engine) RegisterHost(h Host) {
	e.hostsMu.Lock()
	e.hosts[h.ID()] = h
	e.hostsMu.Unlock()
}

// Rng returns the engine's seeded tie-breaking random source, lazily
// created on first use. It is the "random source for tie-breaking" spec.md
// §1 names as an external collaborator the core consumes; owning one
// instance here lets callers (e.g. Topology.Connect) share it.
func (e *Engine) Rng() *rngstream.RngStream {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	if e.rng == nil {
		e.rng = rngstream.New(fmt.Sprintf("pdessim-engine-%d", e.seed))
	}
	return e.rng
}

// GenerateWorkerID returns a fresh, never-reused monotonic worker id.
func (e *Engine) GenerateWorkerID() uint64 {
	return e.workerIDCounter.Add(1)
}

// GenerateNodeID returns a fresh, never-reused monotonic object id.
func (e *Engine) GenerateNodeID() uint64 {
	return e.objectIDCounter.Add(1)
}

// IsKilled reports whether the engine's kill switch has been tripped.
func (e *Engine) IsKilled() bool {
	return e.killed.Load()
}

// Kill trips the engine's kill switch: the run loop halts at the next
// window boundary and the worker pool drains and shuts down.
func (e *Engine) Kill() {
	e.killed.Store(true)
}

func (e *Engine) fail(code int) {
	e.exitCode.Store(int64(code))
	e.killed.Store(true)
}

// Put stores item in the engine's typed storage registry.
func (e *Engine) Put(kind RegistryKind, id string, item any) {
	e.registry.put(kind, id, item)
}

// Get retrieves an item previously Put into the storage registry.
func (e *Engine) Get(kind RegistryKind, id string) (any, bool) {
	return e.registry.get(kind, id)
}

// Clock returns the engine's current virtual time.
func (e *Engine) Clock() simtime.SimulationTime {
	return e.clock
}

// SetupWorkers establishes a pool of n goroutines to process host work
// items. n=0 selects single-threaded in-line execution: work items run on
// the engine's own goroutine inside Run, with no pool at all.
func (e *Engine) SetupWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: n must be >= 0, got %d", ErrWorkerPoolFailure, n)
	}
	if n == 0 {
		return nil
	}

	e.workCh = make(chan workItem, n)
	for i := 0; i < n; i++ {
		w := newWorker(e.GenerateWorkerID(), e)
		e.pool = append(e.pool, w)
		e.poolWG.Add(1)
		go e.workerLoop(w)
	}
	return nil
}

// workerLoop is the body of one pool goroutine: pull a work item, drain
// that host up to the window boundary, signal completion, repeat until
// the work channel is closed.
func (e *Engine) workerLoop(w *Worker) {
	defer e.poolWG.Done()
	for item := range e.workCh {
		e.runHostWorkItem(w, item.host, item.windowEnd)
	}
}

// TeardownWorkers shuts down and joins the worker pool. Safe to call even
// if SetupWorkers(0) was used (no-op in that case).
func (e *Engine) TeardownWorkers() {
	if e.workCh == nil {
		return
	}
	close(e.workCh)
	e.poolWG.Wait()
	e.workCh = nil
	e.pool = nil
}

// runHostWorkItem binds w to host for one window and lets it drain every
// event with delivery time before windowEnd, then signals completion.
func (e *Engine) runHostWorkItem(w *Worker, host Host, windowEnd simtime.SimulationTime) {
	w.bindHost(host.ID(), e.clock)
	host.PopAndDeliver(windowEnd, w)
	w.release()
	e.notifyHostProcessed()
}

// notifyHostProcessed is called by a worker (or, in-line, by Run itself)
// once it has finished draining its bound host for the current window.
func (e *Engine) notifyHostProcessed() {
	if e.nNodesToProcess.Add(-1) == 0 {
		select {
		case e.windowDone <- struct{}{}:
		default:
		}
	}
}

// pendingHosts returns, in deterministic HostID order, every registered
// host with at least one event due before windowEnd. Deterministic
// dispatch order is what lets invariant 4 (spec.md §8) hold: the same set
// of hosts is submitted to the pool in the same order on every run.
func (e *Engine) pendingHosts(windowEnd simtime.SimulationTime) []Host {
	e.hostsMu.RLock()
	defer e.hostsMu.RUnlock()

	ids := make([]HostID, 0, len(e.hosts))
	for id := range e.hosts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var pending []Host
	for _, id := range ids {
		h := e.hosts[id]
		t, ok := h.PeekNextDeliveryTime()
		if ok && t < windowEnd {
			pending = append(pending, h)
		}
	}
	return pending
}

// Run executes the window loop until the simulation end time is reached,
// the engine is killed, or ctx is cancelled. It returns an exit code per
// spec.md §6.
func (e *Engine) Run(ctx context.Context) int {
	if !e.running.CompareAndSwap(false, true) {
		return ExitConfigInvalid
	}
	defer e.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			e.Kill()
		default:
		}

		// Pre-window: drain master (engine-level) events single-threaded.
		for _, ev := range e.masterQueue.drainBefore(e.windowEnd) {
			e.applyMasterEvent(ev)
		}

		pending := e.pendingHosts(e.windowEnd)
		if len(pending) > 0 {
			e.nNodesToProcess.Store(int64(len(pending)))

			if e.workCh == nil {
				// single-threaded in-line execution
				w := newWorker(e.GenerateWorkerID(), e)
				for _, h := range pending {
					e.runHostWorkItem(w, h, e.windowEnd)
				}
			} else {
				for _, h := range pending {
					e.workCh <- workItem{host: h, windowEnd: e.windowEnd}
				}
			}

			<-e.windowDone
		}

		e.clock = e.windowEnd
		if e.clock >= e.endTime || e.killed.Load() {
			break
		}
		e.windowStart = e.windowEnd
		e.windowEnd = e.windowStart.Add(e.minTimeJump)
	}

	if e.killed.Load() {
		if code := e.exitCode.Load(); code != 0 {
			return int(code)
		}
	}
	return ExitOK
}

// EngineAction is the payload convention for master-queue (engine-level)
// events: host creation, application start, and other simulator-control
// actions that the engine itself applies during the pre-window step.
type EngineAction func(e *Engine)

func (e *Engine) applyMasterEvent(ev *Event) {
	action, ok := ev.Payload().(EngineAction)
	if !ok {
		logrus.Warnf("engine: master event with non-action payload ignored (seq=%d)", ev.SequenceNumber())
		return
	}
	action(e)
}

// maxSeqHostID bounds the HostID values that can be packed into the high
// 32 bits of a sequence number alongside a 32-bit local counter. Engine.
// GenerateNodeID is a simple incrementing counter, so in practice this
// bound is never approached.
const maxSeqHostID = HostID(1<<32 - 1)

// nextSequenceNumber returns the next monotonic tie-breaker for events
// attributed to srcHost. Sequence numbers are scoped per *source* host
// rather than per destination: since at most one worker ever executes a
// given host's event stream at a time, the local counter for that host
// advances in a single thread and is therefore reproducible run to run,
// even though many workers may be concurrently pushing events toward
// other hosts' queues in the same window. The returned value packs
// (srcHost, localCounter) into one uint64 so the public ordering key
// stays the two-field (deliveryTime, sequenceNumber) spec.md specifies,
// while still being collision-free across source hosts.
func (e *Engine) nextSequenceNumber(srcHost HostID) uint64 {
	e.seqMu.Lock()
	defer e.seqMu.Unlock()
	c := e.seqCtrs[srcHost] + 1
	e.seqCtrs[srcHost] = c

	hostPart := uint64(srcHost)
	if srcHost > maxSeqHostID {
		hostPart = uint64(maxSeqHostID)
	}
	return (hostPart << 32) | uint64(c)
}

// pushEvent is the shared implementation behind Worker.PushEvent and the
// engine-level (unbound) push used for pre-window master events.
func (e *Engine) pushEvent(w *Worker, ev *Event) error {
	var emitTime simtime.SimulationTime
	var srcHost HostID
	hasSrc := false

	if w != nil {
		emitTime = w.CurrentTime()
		srcHost, hasSrc = w.CurrentHost()
	} else {
		emitTime = e.clock
	}

	dst, hasDst := ev.DstHostID()
	crossHost := hasDst && (!hasSrc || dst != srcHost)
	if crossHost && ev.deliveryTime < emitTime.Add(e.minTimeJump) {
		e.fail(ExitLookaheadViolation)
		return ErrLookaheadViolation
	}

	seqHost := noHost
	if hasSrc {
		seqHost = srcHost
	}
	ev.sequenceNumber = e.nextSequenceNumber(seqHost)

	if hasDst {
		e.hostsMu.RLock()
		host, ok := e.hosts[dst]
		e.hostsMu.RUnlock()
		if !ok {
			return ErrUnknownHost
		}
		host.PushLocalEvent(ev)
		return nil
	}

	e.masterQueue.push(ev)
	return nil
}

// PushEvent routes ev with no worker context bound — used by the engine
// itself, or by a test harness driving events in from outside any host's
// delivery path. Host implementations should prefer Worker.PushEvent,
// which supplies the correct lookahead context automatically.
func (e *Engine) PushEvent(ev *Event) error {
	return e.pushEvent(nil, ev)
}
