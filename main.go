package main

import (
	"context"
	"log"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-arena-bot/internal/arena"
	"tg-arena-bot/internal/bot"
	"tg-arena-bot/internal/config"
	"tg-arena-bot/internal/fetch"
	"tg-arena-bot/internal/relay"
	"tg-arena-bot/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	loc, err := time.LoadLocation(cfg.CheckInTimezone)
	if err != nil {
		log.Fatalf("timezone: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		ledger  storage.Ledger
		history relay.HistoryStore
	)
	switch cfg.LedgerDriver {
	case "redis":
		rl, err := storage.NewRedisLedger(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, loc)
		if err != nil {
			log.Fatalf("redis ledger: %v", err)
		}
		ledger = rl
		history = relay.NewRedisHistory(rl.Client())
	case "sqlite":
		sl, err := storage.NewSQLiteLedger(cfg.SQLitePath, loc)
		if err != nil {
			log.Fatalf("sqlite ledger: %v", err)
		}
		ledger = sl
		history = relay.NewMemoryHistory()
	}
	defer ledger.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}

	notifier := &bot.Notifier{API: api}
	roster := &bot.Roster{API: api}

	rules := map[arena.Variant]arena.Rules{
		arena.VariantDuel: {
			Variant:     arena.VariantDuel,
			BetWindow:   cfg.DuelBetWindow,
			TickDelay:   cfg.TickDelay,
			MinBet:      cfg.DuelMinBet,
			MaxBet:      cfg.DuelMaxBet,
			Accumulate:  true,
			MaxRounds:   cfg.MaxRounds,
			Multipliers: map[int]int{1: 2},
		},
		arena.VariantRace: {
			Variant:     arena.VariantRace,
			BetWindow:   cfg.RaceBetWindow,
			TickDelay:   cfg.TickDelay,
			MinBet:      cfg.RaceMinBet,
			MaxBet:      cfg.RaceMaxBet,
			Accumulate:  false,
			MaxRounds:   cfg.MaxRounds,
			Multipliers: map[int]int{1: 5, 2: 3, 3: 2},
		},
	}
	registry := arena.NewRegistry(ledger, notifier, roster, rules)

	var rl *relay.Relay
	if cfg.RelayAPIKey != "" {
		rl = relay.New(cfg.RelayAPIKey, cfg.RelayBaseURL, cfg.RelayModel, cfg.RelayMaxChars, history)
	}
	var fr *fetch.Fetcher
	if cfg.FetchHost != "" {
		fr = fetch.New(cfg.FetchHost, cfg.FetchMaxActive)
	}

	// Top-level rand is safe from concurrent handler goroutines.
	alms := func(min, max int) int {
		if max <= min {
			return min
		}
		return min + rand.Intn(max-min+1)
	}

	b := bot.New(api, cfg, ledger, registry, rl, fr, alms)
	b.Run(ctx)

	log.Println("shutting down")
}
