package topology

import "errors"

// Startup failure classes (spec.md §7); fatal, callers should abort init.
var (
	ErrGraphUnloadable     = errors.New("topology: graph description unloadable")
	ErrUnconnectedTopology = errors.New("topology: graph is not strongly connected")
)

// Query-time failure classes. These never abort a run; callers collapse
// them to the documented <0 sentinel at the outermost public API.
var (
	ErrNoCandidate           = errors.New("topology: no PoI vertex matches the given hints")
	ErrAddressUnattached     = errors.New("topology: address has no PoI attachment")
	ErrPathComputationFailed = errors.New("topology: shortest-path computation failed")
)
