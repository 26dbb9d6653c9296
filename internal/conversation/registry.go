// Package conversation tracks which multi-step input flow, if any, each chat
// is currently inside. It is the single owner of that state: flow entry
// points and step handlers go through the Registry and never share the map
// directly.
package conversation

import (
	"sync"
	"time"
)

// Flow names a registered multi-step input sequence.
type Flow string

const (
	FlowEntry        Flow = "entry"
	FlowImpression   Flow = "impression"
	FlowSurveyCreate Flow = "survey_create"
	FlowSurveyFill   Flow = "survey_fill"
	FlowSurveyDelete Flow = "survey_delete"
)

// Step is an opaque position marker meaningful only to the owning flow.
// Each flow declares its own step constants starting from zero.
type Step int

// State is the tuple tracked for a chat while a flow is in progress.
// StartedAt is diagnostic only; stale states are never reclaimed.
type State struct {
	Flow      Flow
	Step      Step
	StartedAt time.Time
}

// Registry keeps at most one State per chat. All operations are total:
// "not found" is a no-op or false, never an error. The mutex makes the
// at-most-one-state invariant hold under the bot's concurrent update
// workers (e.g. a user double-tapping a command).
type Registry struct {
	mu     sync.Mutex
	active map[int64]State
	now    func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		active: make(map[int64]State),
		now:    time.Now,
	}
}

// Register records that chatID has entered flow at step. Any existing state
// for the chat is discarded first, so starting a new flow always begins
// clean: last writer wins. Re-registering the same flow with a new step is
// how handlers advance; StartedAt is preserved in that case.
func (r *Registry) Register(chatID int64, flow Flow, step Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	started := r.now()
	if prev, ok := r.active[chatID]; ok && prev.Flow == flow {
		started = prev.StartedAt
	}
	r.active[chatID] = State{Flow: flow, Step: step, StartedAt: started}
}

// End removes the chat's state only if its recorded flow matches. A stale
// cancel handler from one flow therefore cannot tear down a flow that has
// since replaced it.
func (r *Registry) End(chatID int64, flow Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.active[chatID]; ok && st.Flow == flow {
		delete(r.active, chatID)
	}
}

// EndAll unconditionally removes any state for the chat.
func (r *Registry) EndAll(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, chatID)
}

// IsActive reports whether the chat's current state, if any, belongs to flow.
func (r *Registry) IsActive(chatID int64, flow Flow) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.active[chatID]
	return ok && st.Flow == flow
}

// Active returns the chat's current state. The second return is false when
// the chat is idle, in which case incoming text is not part of any flow.
func (r *Registry) Active(chatID int64) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.active[chatID]
	return st, ok
}
