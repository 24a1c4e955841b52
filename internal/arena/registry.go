package arena

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"log"
	"sync"
)

// Registry owns the live sessions, one per room. It is the only place a
// session is created or forgotten; nothing here is package-global.
type Registry struct {
	ledger   Ledger
	notifier Notifier
	roster   Roster
	rules    map[Variant]Rules

	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewRegistry wires a registry over the shared collaborators and the
// per-variant rules.
func NewRegistry(ledger Ledger, notifier Notifier, roster Roster, rules map[Variant]Rules) *Registry {
	return &Registry{
		ledger:   ledger,
		notifier: notifier,
		roster:   roster,
		rules:    rules,
		sessions: make(map[int64]*Session),
	}
}

// Start creates and launches a session for the room. A room with a live
// session rejects the start synchronously.
func (r *Registry) Start(ctx context.Context, room int64, variant Variant) error {
	r.mu.Lock()
	if _, busy := r.sessions[room]; busy {
		r.mu.Unlock()
		return ErrContestRunning
	}
	s := NewSession(room, r.rules[variant], randomSeed(), r.ledger, r.notifier, r.roster)
	r.sessions[room] = s
	r.mu.Unlock()

	log.Printf("session %s: %s started in room %d", s.ID, variant, room)
	go func() {
		s.Run(ctx)
		r.mu.Lock()
		delete(r.sessions, room)
		r.mu.Unlock()
		log.Printf("session %s: finished", s.ID)
	}()
	return nil
}

// Session returns the room's live session, if any.
func (r *Registry) Session(room int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[room]
	return s, ok
}

// PlaceBet routes a wager to the room's live session.
func (r *Registry) PlaceBet(ctx context.Context, room, user int64, slot, amount int) (int, error) {
	s, ok := r.Session(room)
	if !ok {
		return 0, ErrNoContest
	}
	return s.PlaceBet(ctx, user, slot, amount)
}

// randomSeed draws a session seed from the OS entropy pool.
func randomSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 1
	}
	return int64(binary.LittleEndian.Uint64(b[:]) &^ (1 << 63))
}
