package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tg-arena-bot/internal/arena"
)

// adjustScript applies a guarded balance adjustment atomically: a debit
// that would drive the balance negative leaves it untouched and reports
// failure. Balances live in one sorted set per room so rankings come free.
var adjustScript = redis.NewScript(`
local bal = tonumber(redis.call('ZSCORE', KEYS[1], ARGV[1]) or '0')
local delta = tonumber(ARGV[2])
if delta < 0 and bal + delta < 0 then
  return {0, bal}
end
bal = bal + delta
redis.call('ZADD', KEYS[1], bal, ARGV[1])
return {1, bal}
`)

// RedisLedger is the redis-backed point ledger.
type RedisLedger struct {
	client *redis.Client
	loc    *time.Location
	now    func() time.Time
}

// NewRedisLedger connects to redis and verifies the connection. The
// location fixes the calendar-day boundary for check-ins.
func NewRedisLedger(ctx context.Context, addr, password string, db int, loc *time.Location) (*RedisLedger, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisLedger{client: client, loc: loc, now: time.Now}, nil
}

func pointsKey(room int64) string {
	return fmt.Sprintf("points:%d", room)
}

func checkinKey(room, user int64) string {
	return fmt.Sprintf("checkin:%d:%d", room, user)
}

// GetBalance reads a balance; an unknown participant has 0 points.
func (l *RedisLedger) GetBalance(ctx context.Context, room, user int64) (int, error) {
	score, err := l.client.ZScore(ctx, pointsKey(room), strconv.FormatInt(user, 10)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return int(score), nil
}

// AdjustBalance applies delta atomically and returns the new balance.
func (l *RedisLedger) AdjustBalance(ctx context.Context, room, user int64, delta int) (int, error) {
	res, err := adjustScript.Run(ctx, l.client,
		[]string{pointsKey(room)}, strconv.FormatInt(user, 10), delta).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("adjust balance: unexpected reply %v", res)
	}
	if res[0] == 0 {
		return int(res[1]), arena.ErrInsufficientBalance
	}
	return int(res[1]), nil
}

// CanCheckInToday reports whether the participant has not yet checked in
// during the current calendar day in the configured timezone.
func (l *RedisLedger) CanCheckInToday(ctx context.Context, room, user int64) (bool, error) {
	last, err := l.client.Get(ctx, checkinKey(room, user)).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read check-in date: %w", err)
	}
	return last != l.today(), nil
}

// RecordCheckIn stamps today's date for the participant.
func (l *RedisLedger) RecordCheckIn(ctx context.Context, room, user int64) error {
	if err := l.client.Set(ctx, checkinKey(room, user), l.today(), 0).Err(); err != nil {
		return fmt.Errorf("record check-in: %w", err)
	}
	return nil
}

// Ranking lists the room's balances, richest first.
func (l *RedisLedger) Ranking(ctx context.Context, room int64) ([]Standing, error) {
	rows, err := l.client.ZRevRangeWithScores(ctx, pointsKey(room), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking: %w", err)
	}
	standings := make([]Standing, 0, len(rows))
	for _, row := range rows {
		user, err := strconv.ParseInt(fmt.Sprint(row.Member), 10, 64)
		if err != nil {
			continue
		}
		standings = append(standings, Standing{User: user, Points: int(row.Score)})
	}
	return standings, nil
}

// Client exposes the underlying connection for sibling features that share
// the redis instance (relay history).
func (l *RedisLedger) Client() *redis.Client {
	return l.client
}

func (l *RedisLedger) Close() error {
	return l.client.Close()
}

func (l *RedisLedger) today() string {
	return l.now().In(l.loc).Format("2006-01-02")
}
