package routeplanner

import (
	"errors"
	"hash/fnv"
	"sync"
	"time"
)

const defaultShardCount = 32

// ErrStaleSession is returned when a commit targets a session generation that no longer exists.
var ErrStaleSession = errors.New("session changed while the turn was in flight")

// Registry maps owners to their route sessions. Owners are spread across
// independently locked shards; each owner additionally has a turn lock that
// serializes its events.
type Registry struct {
	shards []*registryShard
	now    func() time.Time
}

type registryShard struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	turn    sync.Mutex
	session Session
}

// NewRegistry builds an empty registry. A non-positive shard count uses the default.
func NewRegistry(shards int) *Registry {
	if shards <= 0 {
		shards = defaultShardCount
	}
	r := &Registry{shards: make([]*registryShard, shards), now: time.Now}
	for i := range r.shards {
		r.shards[i] = &registryShard{entries: make(map[string]*registryEntry)}
	}
	return r
}

func (r *Registry) shardFor(ownerID string) *registryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ownerID))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

// entryLocked returns the owner's entry, creating it if needed. Caller holds sh.mu.
func (r *Registry) entryLocked(sh *registryShard, ownerID string) *registryEntry {
	e, ok := sh.entries[ownerID]
	if !ok {
		e = &registryEntry{session: newSession(ownerID)}
		e.session.UpdatedAt = r.now()
		sh.entries[ownerID] = e
	}
	return e
}

// Acquire blocks until the caller owns ownerID's turn and returns the release func.
func (r *Registry) Acquire(ownerID string) func() {
	sh := r.shardFor(ownerID)
	for {
		sh.mu.Lock()
		e := r.entryLocked(sh, ownerID)
		sh.mu.Unlock()

		e.turn.Lock()

		sh.mu.Lock()
		current := sh.entries[ownerID]
		sh.mu.Unlock()
		if current == e {
			return e.turn.Unlock
		}
		// swept between lookup and lock
		e.turn.Unlock()
	}
}

// GetOrCreate returns a copy of the owner's session, creating an idle one lazily.
func (r *Registry) GetOrCreate(ownerID string) Session {
	sh := r.shardFor(ownerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return r.entryLocked(sh, ownerID).session.clone()
}

// Lookup returns a copy of the owner's session without creating one.
func (r *Registry) Lookup(ownerID string) (Session, bool) {
	sh := r.shardFor(ownerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[ownerID]
	if !ok {
		return Session{}, false
	}
	return e.session.clone(), true
}

// Update applies mutate to the stored session if it still has the given generation.
func (r *Registry) Update(ownerID, generation string, mutate func(*Session)) error {
	sh := r.shardFor(ownerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[ownerID]
	if !ok || e.session.Generation != generation {
		return ErrStaleSession
	}
	next := e.session.clone()
	mutate(&next)
	next.OwnerID = ownerID
	next.UpdatedAt = r.now()
	e.session = next
	return nil
}

// Clear discards the owner's route and returns it to idle. It does not wait
// for an in-flight turn; that turn's commit will fail as stale.
func (r *Registry) Clear(ownerID string) bool {
	sh := r.shardFor(ownerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[ownerID]
	if !ok {
		return false
	}
	e.session.reset(StageIdle)
	e.session.UpdatedAt = r.now()
	return true
}

// Sweep drops sessions untouched for longer than idle whose owners have no turn in flight.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	removed := 0
	for _, sh := range r.shards {
		sh.mu.Lock()
		for owner, e := range sh.entries {
			if e.session.UpdatedAt.After(cutoff) {
				continue
			}
			if !e.turn.TryLock() {
				continue
			}
			delete(sh.entries, owner)
			e.turn.Unlock()
			removed++
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len reports the number of tracked owners.
func (r *Registry) Len() int {
	total := 0
	for _, sh := range r.shards {
		sh.mu.Lock()
		total += len(sh.entries)
		sh.mu.Unlock()
	}
	return total
}
