// Package storage ships the persistent point-ledger drivers. Both drivers
// implement the same contract: one record per (room, participant) holding a
// balance and a last-check-in date, with balance adjustments serialized per
// key and debits guarded against going negative.
package storage

import "context"

// Standing is one row of a room ranking, highest balance first.
type Standing struct {
	User   int64
	Points int
}

// Ledger is the full persistent-store contract consumed by the bot. The
// contest engine sees only the balance slice of it.
type Ledger interface {
	GetBalance(ctx context.Context, room, user int64) (int, error)
	AdjustBalance(ctx context.Context, room, user int64, delta int) (int, error)
	CanCheckInToday(ctx context.Context, room, user int64) (bool, error)
	RecordCheckIn(ctx context.Context, room, user int64) error
	Ranking(ctx context.Context, room int64) ([]Standing, error)
	Close() error
}
