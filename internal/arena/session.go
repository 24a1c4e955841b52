package arena

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase is the session life-cycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBetting
	PhaseLocked
	PhaseResolved
)

func (p Phase) String() string {
	switch p {
	case PhaseBetting:
		return "betting"
	case PhaseLocked:
		return "locked"
	case PhaseResolved:
		return "resolved"
	}
	return "idle"
}

// Variant selects the contest type.
type Variant string

const (
	VariantDuel Variant = "duel"
	VariantRace Variant = "race"
)

// RankGroup is one rung of the terminal ordering; tied contestants share
// the rung.
type RankGroup struct {
	Rank  int
	Slots []int
}

// game is the variant behaviour behind a session: duelGame or raceGame.
type game interface {
	Slots() int
	Describe() []string
	Tick(rng *rand.Rand, round int, backed func(slot int) bool) (lines []string, done bool)
	Ranking() []RankGroup
	Summary() []string
	GlyphFor(slot int) string
}

// Rules are the per-variant knobs a session runs under.
type Rules struct {
	Variant     Variant
	BetWindow   time.Duration
	TickDelay   time.Duration
	MinBet      int
	MaxBet      int
	Accumulate  bool
	MaxRounds   int
	Multipliers map[int]int // rank -> payout multiplier
}

// Ledger is the slice of the persistent point store the engine needs.
// AdjustBalance must be atomic per (room, participant) and must return
// ErrInsufficientBalance instead of driving a balance negative.
type Ledger interface {
	GetBalance(ctx context.Context, room, user int64) (int, error)
	AdjustBalance(ctx context.Context, room, user int64, delta int) (int, error)
}

// Notifier delivers broadcast text to a room. Fire and forget.
type Notifier interface {
	Broadcast(room int64, text string)
}

// Roster resolves participant ids to display names.
type Roster interface {
	ResolveDisplayName(room, user int64) string
}

// Session runs one contest in one room from betting to payout. The session
// goroutine owns the contestants and the random stream; the bet book is
// shared with command handlers under mu.
type Session struct {
	ID    string
	Room  int64
	rules Rules

	ledger   Ledger
	notifier Notifier
	roster   Roster
	rng      *rand.Rand
	now      func() time.Time

	mu       sync.Mutex
	phase    Phase
	round    int
	deadline time.Time
	book     *betBook
	game     game

	// placeMu serializes whole wager placements: the netted debit for one
	// bet must not interleave with another bet's validate or record step,
	// or the same participant can be debited twice for one active wager.
	placeMu sync.Mutex

	lockCh   chan struct{}
	lockOnce sync.Once
}

// NewSession rolls the contestants for the variant and returns a session in
// the Idle phase. Run starts the life-cycle.
func NewSession(room int64, rules Rules, seed int64, ledger Ledger, notifier Notifier, roster Roster) *Session {
	rng := rand.New(rand.NewSource(seed))
	s := &Session{
		ID:       uuid.NewString(),
		Room:     room,
		rules:    rules,
		ledger:   ledger,
		notifier: notifier,
		roster:   roster,
		rng:      rng,
		now:      time.Now,
		book:     newBetBook(),
		lockCh:   make(chan struct{}),
	}
	switch rules.Variant {
	case VariantRace:
		s.game = newRaceGame(rng)
	default:
		s.game = newDuelGame(rng)
	}
	return s
}

// Phase returns the current life-cycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// earlyLock fires the lock signal once; the Run goroutine picks it up.
func (s *Session) earlyLock() {
	s.lockOnce.Do(func() { close(s.lockCh) })
}

// PlaceBet validates, debits and records one wager, returning the new
// balance. Placements run one at a time; validation runs before any money
// moves, and the debit happens outside the session lock, so a session that
// locks in between gets its money back through a compensating credit.
func (s *Session) PlaceBet(ctx context.Context, user int64, slot, amount int) (int, error) {
	s.placeMu.Lock()
	defer s.placeMu.Unlock()

	s.mu.Lock()
	if s.phase != PhaseBetting {
		s.mu.Unlock()
		return 0, ErrNotBetting
	}
	if s.now().After(s.deadline) {
		s.mu.Unlock()
		s.earlyLock()
		return 0, ErrBettingClosed
	}
	if slot < 1 || slot > s.game.Slots() {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: pick 1-%d", ErrInvalidSlot, s.game.Slots())
	}
	if amount < s.rules.MinBet || amount > s.rules.MaxBet {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %d-%d points", ErrAmountRange, s.rules.MinBet, s.rules.MaxBet)
	}
	debit := amount
	if !s.rules.Accumulate {
		// Replace semantics: net against the committed stake so the total
		// debited equals only the final wager.
		if prev := s.book.current(user); prev != nil {
			debit = amount - prev.Amount
		}
	}
	s.mu.Unlock()

	balance, err := s.ledger.AdjustBalance(ctx, s.Room, user, -debit)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	if s.phase != PhaseBetting || s.now().After(s.deadline) {
		s.mu.Unlock()
		if refunded, rerr := s.ledger.AdjustBalance(ctx, s.Room, user, debit); rerr != nil {
			log.Printf("session %s: refund of %d to %d failed: %v", s.ID, debit, user, rerr)
		} else {
			balance = refunded
		}
		s.earlyLock()
		return balance, ErrBettingClosed
	}
	s.book.put(user, slot, amount, s.rules.Accumulate)
	s.mu.Unlock()
	return balance, nil
}

// Run drives the session through its whole life-cycle. It returns when the
// session is Resolved or the context is cancelled (process shutdown; there
// is no user-facing abort).
func (s *Session) Run(ctx context.Context) {
	s.broadcast(strings.Join(s.game.Describe(), "\n"))
	s.broadcast(fmt.Sprintf("Betting is open for %s: /bet <1-%d> <amount> (%d-%d points)",
		s.rules.BetWindow, s.game.Slots(), s.rules.MinBet, s.rules.MaxBet))

	s.mu.Lock()
	s.phase = PhaseBetting
	s.deadline = s.now().Add(s.rules.BetWindow)
	s.mu.Unlock()

	timer := time.NewTimer(s.rules.BetWindow)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-s.lockCh:
	case <-ctx.Done():
		s.setPhase(PhaseResolved)
		return
	}

	s.mu.Lock()
	s.phase = PhaseLocked
	noBets := s.book.empty()
	s.mu.Unlock()

	if noBets {
		s.broadcast("Nobody bet a single point. No interest, no contest!")
		s.setPhase(PhaseResolved)
		return
	}

	s.broadcast("Bets are locked. Here we go!")
	backed := func(slot int) bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.book.backed(slot)
	}

	for {
		s.mu.Lock()
		s.round++
		round := s.round
		s.mu.Unlock()

		lines, done := s.game.Tick(s.rng, round, backed)
		s.broadcast(strings.Join(lines, "\n"))
		if done {
			break
		}
		if round >= s.rules.MaxRounds {
			// Watchdog: no session outlives the round cap; current
			// standings decide the payout.
			log.Printf("session %s: round cap %d reached, resolving", s.ID, s.rules.MaxRounds)
			break
		}
		select {
		case <-time.After(s.rules.TickDelay):
		case <-ctx.Done():
			s.setPhase(PhaseResolved)
			return
		}
	}

	s.resolve(ctx)
}

// resolve announces the result, pays the rewarded ranks and closes the
// session.
func (s *Session) resolve(ctx context.Context) {
	s.broadcast(strings.Join(s.game.Summary(), "\n"))

	var lines []string
	for _, group := range s.game.Ranking() {
		mult, rewarded := s.rules.Multipliers[group.Rank]
		if !rewarded {
			continue
		}
		for _, slot := range group.Slots {
			for _, bet := range s.book.betsFor(slot) {
				reward := bet.Amount * mult
				balance, err := s.ledger.AdjustBalance(ctx, s.Room, bet.User, reward)
				if err != nil {
					log.Printf("session %s: payout of %d to %d failed: %v", s.ID, reward, bet.User, err)
					continue
				}
				name := s.roster.ResolveDisplayName(s.Room, bet.User)
				lines = append(lines, fmt.Sprintf("%s backed %s (#%d) and wins %d points! Balance: %d",
					name, s.game.GlyphFor(slot), group.Rank, reward, balance))
			}
		}
	}
	if len(lines) == 0 {
		s.broadcast("No winning bets this time.")
	} else {
		s.broadcast(strings.Join(lines, "\n"))
	}
	s.setPhase(PhaseResolved)
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// broadcast delivers one message; delivery failures are the notifier's
// problem, never the tick loop's.
func (s *Session) broadcast(text string) {
	if text == "" {
		return
	}
	s.notifier.Broadcast(s.Room, text)
}
