package engine

import (
	"sync"

	"github.com/google/uuid"
)

// SpectatorHub routes read-only live-state subscriptions to the right
// MatchRuntime. It never mutates match state; the runtime fans snapshots
// out with drop-on-full sends, so lagging spectators coalesce onto the
// next snapshot instead of slowing the match.
type SpectatorHub struct {
	registry *Registry

	mu   sync.Mutex
	subs map[string]string // subscriptionID -> matchID
}

func NewSpectatorHub(registry *Registry) *SpectatorHub {
	return &SpectatorHub{registry: registry, subs: map[string]string{}}
}

// Attach subscribes to a RUNNING match and returns the subscription id
// and snapshot stream. The channel is closed when the match completes or
// the subscription is detached. Completed or unknown matches fail with
// ErrMatchNotFound; bracket slots that exist but have no live match yet
// (pending placeholders, byes) fail with ErrMatchNotRunning.
func (h *SpectatorHub) Attach(matchID string) (string, <-chan MatchSnapshot, error) {
	rt := h.registry.Match(matchID)
	if rt == nil {
		if h.registry.MatchKnown(matchID) {
			return "", nil, ErrMatchNotRunning
		}
		return "", nil, ErrMatchNotFound
	}

	subID := uuid.NewString()
	ch, err := rt.subscribe(subID)
	if err != nil {
		// Completed between lookup and subscribe.
		return "", nil, ErrMatchNotFound
	}

	h.mu.Lock()
	h.subs[subID] = matchID
	h.mu.Unlock()
	return subID, ch, nil
}

// Detach cancels a subscription. Safe to call after the match has ended;
// the runtime already closed the channel in that case.
func (h *SpectatorHub) Detach(subID string) {
	h.mu.Lock()
	matchID, ok := h.subs[subID]
	delete(h.subs, subID)
	h.mu.Unlock()
	if !ok {
		return
	}
	if rt := h.registry.Match(matchID); rt != nil {
		rt.unsubscribe(subID)
	}
}
