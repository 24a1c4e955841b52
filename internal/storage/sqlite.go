package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"tg-arena-bot/internal/arena"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS players (
    room INTEGER NOT NULL,
    user INTEGER NOT NULL,
    points INTEGER NOT NULL DEFAULT 0,
    checkin_date TEXT,
    PRIMARY KEY (room, user)
);`

// SQLiteLedger is the file-backed point ledger: one row per
// (room, participant). SQLite's single-writer transactions give the
// per-key serialization the contract asks for.
type SQLiteLedger struct {
	db  *sql.DB
	loc *time.Location
	now func() time.Time
}

// NewSQLiteLedger opens (creating if needed) the database file.
func NewSQLiteLedger(path string, loc *time.Location) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteLedger{db: db, loc: loc, now: time.Now}, nil
}

func (l *SQLiteLedger) GetBalance(ctx context.Context, room, user int64) (int, error) {
	var points int
	err := l.db.QueryRowContext(ctx,
		`SELECT points FROM players WHERE room = ? AND user = ?`, room, user).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return points, nil
}

// AdjustBalance applies delta inside one transaction; a debit only lands
// when the row still covers it.
func (l *SQLiteLedger) AdjustBalance(ctx context.Context, room, user int64, delta int) (int, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO players (room, user, points) VALUES (?, ?, 0)`, room, user); err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE players SET points = points + ? WHERE room = ? AND user = ? AND points + ? >= 0`,
		delta, room, user, delta)
	if err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}

	var points int
	if err := tx.QueryRowContext(ctx,
		`SELECT points FROM players WHERE room = ? AND user = ?`, room, user).Scan(&points); err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	if affected == 0 {
		return points, arena.ErrInsufficientBalance
	}
	return points, nil
}

func (l *SQLiteLedger) CanCheckInToday(ctx context.Context, room, user int64) (bool, error) {
	var last sql.NullString
	err := l.db.QueryRowContext(ctx,
		`SELECT checkin_date FROM players WHERE room = ? AND user = ?`, room, user).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read check-in date: %w", err)
	}
	return !last.Valid || last.String != l.today(), nil
}

func (l *SQLiteLedger) RecordCheckIn(ctx context.Context, room, user int64) error {
	_, err := l.db.ExecContext(ctx, `
INSERT INTO players (room, user, points, checkin_date) VALUES (?, ?, 0, ?)
ON CONFLICT (room, user) DO UPDATE SET checkin_date = excluded.checkin_date`,
		room, user, l.today())
	if err != nil {
		return fmt.Errorf("record check-in: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) Ranking(ctx context.Context, room int64) ([]Standing, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT user, points FROM players WHERE room = ? ORDER BY points DESC`, room)
	if err != nil {
		return nil, fmt.Errorf("read ranking: %w", err)
	}
	defer rows.Close()

	var standings []Standing
	for rows.Next() {
		var s Standing
		if err := rows.Scan(&s.User, &s.Points); err != nil {
			return nil, fmt.Errorf("read ranking: %w", err)
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) today() string {
	return l.now().In(l.loc).Format("2006-01-02")
}
