package graph

import "sync"

// TraceKey is the reserved state field holding the append-only execution
// trace. Patches under this key are concatenated rather than replacing the
// existing value, so concurrent writers never lose entries.
const TraceKey = "trace"

// Patch is the partial-state update returned by a node: a mapping from
// field name to new value. Every field is owned by exactly one node per
// graph, so merging patches from concurrently completing nodes is
// deterministic; only the trace field accepts entries from many nodes, and
// those are combined by concatenation.
type Patch map[string]any

// Trace builds a patch containing a single trace entry. Combine it with
// other fields via Set:
//
//	return graph.Trace("sensors").Set("sensors", reading), nil
func Trace(entry string) Patch {
	return Patch{TraceKey: []string{entry}}
}

// Set adds a field to the patch and returns it, for chaining.
func (patch Patch) Set(key string, value any) Patch {
	patch[key] = value
	return patch
}

// State is the per-run accumulating record threaded through all nodes of
// one execution. The graph engine owns it for the duration of the run and
// discards it afterwards; nodes get read access through NodeInput.
//
// All methods are safe for concurrent use. Writes happen only through
// apply, which merges a whole patch atomically, so two concurrently
// completing nodes can never interleave writes to the same field.
type State struct {
	mu     sync.RWMutex
	fields map[string]any
	trace  []string

	statuses map[string]NodeStatus
	results  map[string]*NodeResult
}

// newState creates the run state seeded with the initial fields. An
// initial trace may be provided under TraceKey as a []string.
func newState(initial map[string]any) *State {
	state := &State{
		fields:   make(map[string]any, len(initial)),
		statuses: make(map[string]NodeStatus),
		results:  make(map[string]*NodeResult),
	}
	for key, value := range initial {
		if key == TraceKey {
			if entries, ok := value.([]string); ok {
				state.trace = append(state.trace, entries...)
			}
			continue
		}
		state.fields[key] = value
	}
	return state
}

// Value retrieves a field by name, reporting whether it is set.
func (state *State) Value(key string) (any, bool) {
	state.mu.RLock()
	defer state.mu.RUnlock()

	value, ok := state.fields[key]
	return value, ok
}

// String retrieves a string field, returning "" when the field is absent
// or holds a non-string value.
func (state *State) String(key string) string {
	value, ok := state.Value(key)
	if !ok {
		return ""
	}
	text, _ := value.(string)
	return text
}

// StringSlice retrieves a []string field, returning nil when absent or of
// another type.
func (state *State) StringSlice(key string) []string {
	value, ok := state.Value(key)
	if !ok {
		return nil
	}
	entries, _ := value.([]string)
	return entries
}

// Snapshot returns a copy of all fields. The copy is safe to mutate.
func (state *State) Snapshot() map[string]any {
	state.mu.RLock()
	defer state.mu.RUnlock()

	fieldsCopy := make(map[string]any, len(state.fields))
	for key, value := range state.fields {
		fieldsCopy[key] = value
	}
	return fieldsCopy
}

// Trace returns a copy of the execution trace accumulated so far. The
// relative order of entries from concurrent nodes is not significant.
func (state *State) Trace() []string {
	state.mu.RLock()
	defer state.mu.RUnlock()

	traceCopy := make([]string, len(state.trace))
	copy(traceCopy, state.trace)
	return traceCopy
}

// apply merges a patch atomically: regular fields are set, trace entries
// are appended. Appending is associative and order-insensitive, which is
// what makes concurrent completion safe without field-level locking.
func (state *State) apply(patch Patch) {
	state.mu.Lock()
	defer state.mu.Unlock()

	for key, value := range patch {
		if key == TraceKey {
			switch entries := value.(type) {
			case []string:
				state.trace = append(state.trace, entries...)
			case string:
				state.trace = append(state.trace, entries)
			}
			continue
		}
		state.fields[key] = value
	}
}

// --- node bookkeeping (engine internal) ---

func (state *State) nodeStatus(name string) NodeStatus {
	state.mu.RLock()
	defer state.mu.RUnlock()

	status, ok := state.statuses[name]
	if !ok {
		return NodePending
	}
	return status
}

func (state *State) setNodeStatus(name string, status NodeStatus) {
	state.mu.Lock()
	defer state.mu.Unlock()

	state.statuses[name] = status
}

func (state *State) nodeResult(name string) *NodeResult {
	state.mu.RLock()
	defer state.mu.RUnlock()

	return state.results[name]
}

func (state *State) setNodeResult(name string, result *NodeResult) {
	state.mu.Lock()
	defer state.mu.Unlock()

	state.results[name] = result
}

func (state *State) allStatuses() map[string]NodeStatus {
	state.mu.RLock()
	defer state.mu.RUnlock()

	statusCopy := make(map[string]NodeStatus, len(state.statuses))
	for name, status := range state.statuses {
		statusCopy[name] = status
	}
	return statusCopy
}
