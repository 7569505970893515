package sim

import (
	"sync"
	"time"

	"marketmania/internal/market"
)

type phase int

const (
	phasePreviewing phase = iota
	phaseRoundActive
	phaseRoundBreak
)

// RoomState is the live simulation state for one room. It is owned by the
// Scheduler: every mutation happens inside a scheduler callback holding the
// scheduler mutex, which stands in for the single-threaded event loop of the
// original design.
type RoomState struct {
	RoomID        string
	Round         int
	TotalRounds   int
	RoundDuration time.Duration
	Stocks        []market.Stock
	CompanyEvents []market.Event
	// Pending is the batch selected last round, applied at the start of the
	// next price step. Nil until the first selection.
	Pending []market.Event

	phase phase
	timer *time.Timer
}

// Registry maps room ids to their active simulation. It is a process-scoped
// service constructed at startup rather than a package global, so tests get
// isolated instances.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*RoomState
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*RoomState)}
}

func (r *Registry) get(roomID string) *RoomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[roomID]
}

// create registers state for a room, failing when one already exists.
func (r *Registry) create(st *RoomState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[st.RoomID]; ok {
		return false
	}
	r.rooms[st.RoomID] = st
	return true
}

func (r *Registry) delete(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
}

// Running reports whether a simulation is live for the room.
func (r *Registry) Running(roomID string) bool {
	return r.get(roomID) != nil
}

// CurrentRound answers late joiners: the round in progress, and whether the
// room is simulating at all.
func (r *Registry) CurrentRound(roomID string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.rooms[roomID]
	if !ok {
		return 0, false
	}
	return st.Round, true
}

// Len reports the number of live simulations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
