package arena

import "errors"

// Rejection reasons surfaced to players. Handlers translate these into
// chat notices; none of them changes session or ledger state.
var (
	ErrNoContest           = errors.New("no contest is running in this chat")
	ErrContestRunning      = errors.New("a contest is already running in this chat")
	ErrNotBetting          = errors.New("betting is not open")
	ErrBettingClosed       = errors.New("the betting window has closed")
	ErrInvalidSlot         = errors.New("invalid contestant number")
	ErrAmountRange         = errors.New("bet amount out of range")
	ErrInsufficientBalance = errors.New("not enough points")
)

// Bet is one committed wager.
type Bet struct {
	User   int64
	Slot   int
	Amount int
}

// betBook records committed wagers for a single session, one per
// participant. The owning session's mutex guards all access.
type betBook struct {
	bets  map[int64]*Bet
	order []int64
}

func newBetBook() *betBook {
	return &betBook{bets: make(map[int64]*Bet)}
}

func (b *betBook) empty() bool { return len(b.bets) == 0 }

// current returns the participant's committed bet, or nil.
func (b *betBook) current(user int64) *Bet {
	return b.bets[user]
}

// put commits a wager. With accumulate semantics a repeat bet on the same
// slot adds up; a repeat on another slot moves the whole stake there.
// With replace semantics the new bet supersedes the old one entirely.
func (b *betBook) put(user int64, slot, amount int, accumulate bool) {
	prev := b.bets[user]
	if prev == nil {
		b.bets[user] = &Bet{User: user, Slot: slot, Amount: amount}
		b.order = append(b.order, user)
		return
	}
	if accumulate && prev.Slot == slot {
		prev.Amount += amount
		return
	}
	if accumulate {
		prev.Amount += amount
		prev.Slot = slot
		return
	}
	prev.Slot = slot
	prev.Amount = amount
}

// betsFor lists committed bets on one slot in placement order.
func (b *betBook) betsFor(slot int) []Bet {
	var out []Bet
	for _, user := range b.order {
		if bet := b.bets[user]; bet.Slot == slot {
			out = append(out, *bet)
		}
	}
	return out
}

// backed reports whether any committed bet rides on the slot.
func (b *betBook) backed(slot int) bool {
	for _, bet := range b.bets {
		if bet.Slot == slot {
			return true
		}
	}
	return false
}
