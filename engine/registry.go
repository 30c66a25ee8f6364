package engine

import "sync"

// Registry is the process-wide index of live tournaments and matches.
// It is created at startup and passed to whoever needs lookups; nothing
// in the engine reaches for it as ambient global state.
//
// Matches appear here only while RUNNING. Pairings that exist in a
// bracket but have no runtime yet (placeholders) are tracked in the
// pending set, and slots that resolved without a match at all are moved
// to the bye set, so spectator attach can tell "not running" apart from
// "never existed / already gone".
type Registry struct {
	mu          sync.RWMutex
	tournaments map[string]*TournamentRuntime
	matches     map[string]*MatchRuntime
	pending     map[string]string // matchID -> tournamentID
	byes        map[string]string // matchID -> tournamentID
}

func NewRegistry() *Registry {
	return &Registry{
		tournaments: map[string]*TournamentRuntime{},
		matches:     map[string]*MatchRuntime{},
		pending:     map[string]string{},
		byes:        map[string]string{},
	}
}

func (r *Registry) AddTournament(rt *TournamentRuntime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tournaments[rt.ID()] = rt
}

// RemoveTournament drops the tournament and any pairing ids still
// tracked for it.
func (r *Registry) RemoveTournament(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tournaments, id)
	for matchID, tid := range r.pending {
		if tid == id {
			delete(r.pending, matchID)
		}
	}
	for matchID, tid := range r.byes {
		if tid == id {
			delete(r.byes, matchID)
		}
	}
	for matchID, rt := range r.matches {
		if rt.tournamentID == id {
			delete(r.matches, matchID)
		}
	}
}

func (r *Registry) Tournament(id string) *TournamentRuntime {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tournaments[id]
}

func (r *Registry) Tournaments() []*TournamentRuntime {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*TournamentRuntime, 0, len(r.tournaments))
	for _, rt := range r.tournaments {
		out = append(out, rt)
	}
	return out
}

func (r *Registry) trackPending(matchID, tournamentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[matchID] = tournamentID
}

func (r *Registry) promoteRunning(rt *MatchRuntime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, rt.ID())
	r.matches[rt.ID()] = rt
}

// markBye records that a slot resolved without a match ever running.
// The id stays known so spectator attach keeps answering "not running"
// instead of "not found" for the tournament's lifetime.
func (r *Registry) markBye(matchID, tournamentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, matchID)
	r.byes[matchID] = tournamentID
}

func (r *Registry) untrackMatch(matchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, matchID)
	delete(r.matches, matchID)
}

// Match returns the runtime of a RUNNING match, or nil.
func (r *Registry) Match(matchID string) *MatchRuntime {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.matches[matchID]
}

// MatchKnown reports whether the id belongs to a tracked pairing that
// never has a runtime to attach to: a pending placeholder or a bye.
func (r *Registry) MatchKnown(matchID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.pending[matchID]; ok {
		return true
	}
	_, ok := r.byes[matchID]
	return ok
}

// RunningMatches snapshots every live match for the spectate list.
func (r *Registry) RunningMatches() []MatchSnapshot {
	r.mu.RLock()
	rts := make([]*MatchRuntime, 0, len(r.matches))
	for _, rt := range r.matches {
		rts = append(rts, rt)
	}
	r.mu.RUnlock()

	out := make([]MatchSnapshot, 0, len(rts))
	for _, rt := range rts {
		out = append(out, rt.Snapshot())
	}
	return out
}
