package engine

import "errors"

// ErrLookaheadViolation is returned by PushEvent when a cross-host event's
// delivery time does not respect the engine's minimum lookahead. It is
// fatal: receiving it aborts the run (see Run).
var ErrLookaheadViolation = errors.New("engine: lookahead violation")

// ErrWorkerPoolFailure is returned by SetupWorkers when the requested pool
// of worker goroutines cannot be established.
var ErrWorkerPoolFailure = errors.New("engine: worker pool setup failure")

// ErrUnknownHost is returned by PushEvent when an event names a
// destination host that was never registered with the engine.
var ErrUnknownHost = errors.New("engine: unknown destination host")

// ErrAlreadyRunning names the case of Run being called while the engine is
// already executing a window loop. Run returns an int exit code, so it
// reports that case as ExitConfigInvalid; no function returns this value.
var ErrAlreadyRunning = errors.New("engine: already running")
