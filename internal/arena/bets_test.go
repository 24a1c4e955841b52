package arena

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// openBetting puts a fresh session straight into the betting phase without
// running the life-cycle goroutine.
func openBetting(t *testing.T, rules Rules, ledger Ledger) *Session {
	t.Helper()
	s := NewSession(1, rules, 1, ledger, &fakeNotifier{}, fakeRoster{})
	s.mu.Lock()
	s.phase = PhaseBetting
	s.deadline = time.Now().Add(time.Hour)
	s.mu.Unlock()
	return s
}

func TestPlaceBetRejectsBeforeBetting(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{7: 1000})
	s := NewSession(1, fastRules(VariantDuel), 1, ledger, &fakeNotifier{}, fakeRoster{})

	if _, err := s.PlaceBet(context.Background(), 7, 1, 100); !errors.Is(err, ErrNotBetting) {
		t.Fatalf("got %v, want ErrNotBetting", err)
	}
	if got, _ := ledger.GetBalance(context.Background(), 1, 7); got != 1000 {
		t.Fatalf("rejected bet moved money, balance %d", got)
	}
}

func TestPlaceBetRejectsBadSlot(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{7: 1000})
	s := openBetting(t, fastRules(VariantDuel), ledger)

	_, err := s.PlaceBet(context.Background(), 7, 3, 100)
	if !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("got %v, want ErrInvalidSlot", err)
	}
	if got := err.Error(); !strings.Contains(got, "1-2") {
		t.Fatalf("slot error must name the valid range: %q", got)
	}
	if got, _ := ledger.GetBalance(context.Background(), 1, 7); got != 1000 {
		t.Fatalf("rejected bet moved money, balance %d", got)
	}

	race := openBetting(t, fastRules(VariantRace), ledger)
	_, err = race.PlaceBet(context.Background(), 7, 11, 200)
	if !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("got %v, want ErrInvalidSlot", err)
	}
	if got := err.Error(); !strings.Contains(got, "1-10") {
		t.Fatalf("slot error must name the valid range: %q", got)
	}
}

func TestPlaceBetRejectsBadAmount(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{7: 1000})
	s := openBetting(t, fastRules(VariantDuel), ledger)

	for _, amount := range []int{99, 501} {
		if _, err := s.PlaceBet(context.Background(), 7, 1, amount); !errors.Is(err, ErrAmountRange) {
			t.Fatalf("amount %d: got %v, want ErrAmountRange", amount, err)
		}
	}
	if got, _ := ledger.GetBalance(context.Background(), 1, 7); got != 1000 {
		t.Fatalf("rejected bets moved money, balance %d", got)
	}
}

func TestPlaceBetRejectsInsufficientBalance(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{7: 50})
	s := openBetting(t, fastRules(VariantDuel), ledger)

	if _, err := s.PlaceBet(context.Background(), 7, 1, 100); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	s.mu.Lock()
	empty := s.book.empty()
	s.mu.Unlock()
	if !empty {
		t.Fatal("failed debit must not commit a bet")
	}
}

func TestPlaceBetAccumulates(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{7: 1000})
	s := openBetting(t, fastRules(VariantDuel), ledger)

	if _, err := s.PlaceBet(context.Background(), 7, 1, 100); err != nil {
		t.Fatalf("first bet: %v", err)
	}
	balance, err := s.PlaceBet(context.Background(), 7, 1, 150)
	if err != nil {
		t.Fatalf("second bet: %v", err)
	}
	if balance != 750 {
		t.Fatalf("balance %d, want 750", balance)
	}

	s.mu.Lock()
	bet := s.book.current(7)
	s.mu.Unlock()
	if bet.Slot != 1 || bet.Amount != 250 {
		t.Fatalf("stake %+v, want 250 on slot 1", bet)
	}
}

func TestPlaceBetAccumulateMovesStake(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{7: 1000})
	s := openBetting(t, fastRules(VariantDuel), ledger)

	if _, err := s.PlaceBet(context.Background(), 7, 1, 100); err != nil {
		t.Fatalf("first bet: %v", err)
	}
	if _, err := s.PlaceBet(context.Background(), 7, 2, 100); err != nil {
		t.Fatalf("second bet: %v", err)
	}

	s.mu.Lock()
	bet := s.book.current(7)
	s.mu.Unlock()
	if bet.Slot != 2 || bet.Amount != 200 {
		t.Fatalf("stake %+v, want the whole 200 moved to slot 2", bet)
	}
}

func TestPlaceBetReplaceNetsDebit(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{7: 1500})
	s := openBetting(t, fastRules(VariantRace), ledger)

	if _, err := s.PlaceBet(context.Background(), 7, 4, 1000); err != nil {
		t.Fatalf("first bet: %v", err)
	}
	balance, err := s.PlaceBet(context.Background(), 7, 6, 800)
	if err != nil {
		t.Fatalf("second bet: %v", err)
	}
	if balance != 700 {
		t.Fatalf("balance %d, want 700 (only the final wager spent)", balance)
	}

	s.mu.Lock()
	bet := s.book.current(7)
	s.mu.Unlock()
	if bet.Slot != 6 || bet.Amount != 800 {
		t.Fatalf("stake %+v, want 800 on slot 6", bet)
	}
}

func TestPlaceBetConcurrentReplaceNetsDebit(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{7: 1000})
	s := openBetting(t, fastRules(VariantRace), ledger)

	// Widen the window between computing the netted debit and recording
	// the wager; both placements would double-debit without serialization.
	ledger.onAdjust = func(_ int64, delta int) {
		if delta < 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}

	var wg sync.WaitGroup
	for _, amount := range []int{200, 300} {
		wg.Add(1)
		go func(amount int) {
			defer wg.Done()
			if _, err := s.PlaceBet(context.Background(), 7, 3, amount); err != nil {
				t.Errorf("bet of %d: %v", amount, err)
			}
		}(amount)
	}
	wg.Wait()

	s.mu.Lock()
	bet := s.book.current(7)
	s.mu.Unlock()
	if bet == nil {
		t.Fatal("no wager committed")
	}
	if got, _ := ledger.GetBalance(context.Background(), 1, 7); got != 1000-bet.Amount {
		t.Fatalf("balance %d with an active wager of %d, want %d", got, bet.Amount, 1000-bet.Amount)
	}
}

func TestPlaceBetRefundsWhenLockRaces(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{7: 1000})
	s := openBetting(t, fastRules(VariantDuel), ledger)

	// The session locks while the debit is in flight; the stake must come
	// straight back.
	ledger.onAdjust = func(_ int64, delta int) {
		if delta < 0 {
			ledger.onAdjust = nil
			s.setPhase(PhaseLocked)
		}
	}

	balance, err := s.PlaceBet(context.Background(), 7, 1, 200)
	if !errors.Is(err, ErrBettingClosed) {
		t.Fatalf("got %v, want ErrBettingClosed", err)
	}
	if balance != 1000 {
		t.Fatalf("returned balance %d, want the refunded 1000", balance)
	}
	if got, _ := ledger.GetBalance(context.Background(), 1, 7); got != 1000 {
		t.Fatalf("balance %d after refund, want 1000", got)
	}
	s.mu.Lock()
	empty := s.book.empty()
	s.mu.Unlock()
	if !empty {
		t.Fatal("raced bet must not commit")
	}
}

func TestPlaceBetDeadlineLocks(t *testing.T) {
	ledger := newFakeLedger(map[int64]int{7: 1000})
	s := openBetting(t, fastRules(VariantDuel), ledger)
	s.mu.Lock()
	s.deadline = time.Now().Add(-time.Second)
	s.mu.Unlock()

	if _, err := s.PlaceBet(context.Background(), 7, 1, 100); !errors.Is(err, ErrBettingClosed) {
		t.Fatalf("got %v, want ErrBettingClosed", err)
	}
	select {
	case <-s.lockCh:
	default:
		t.Fatal("late bet must fire the early lock")
	}
}
