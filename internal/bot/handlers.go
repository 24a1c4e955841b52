package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-arena-bot/internal/arena"
	"tg-arena-bot/internal/fetch"
	"tg-arena-bot/internal/relay"
)

// HandleCommand dispatches one command update. Runs on its own goroutine;
// everything it touches is safe for concurrent use.
func (b *Bot) HandleCommand(ctx context.Context, update tgbotapi.Update) {
	name := displayName(update.Message.From)

	log.Printf("room %d: %s: %s", update.Message.Chat.ID, name, update.Message.Text)

	command := update.Message.Command()
	args := strings.TrimSpace(update.Message.CommandArguments())

	switch command {
	case "duel":
		b.handleStart(ctx, update, arena.VariantDuel)
	case "race":
		b.handleStart(ctx, update, arena.VariantRace)
	case "bet":
		b.handleBet(ctx, update, args)
	case "checkin":
		b.handleCheckIn(ctx, update, name)
	case "beg":
		b.handleBeg(ctx, update, name)
	case "balance", "bal":
		b.handleBalance(ctx, update, name)
	case "ranking":
		b.handleRanking(ctx, update)
	case "skills":
		b.handleSkills(update)
	case "ask":
		b.handleAsk(ctx, update, args)
	case "fetch":
		b.handleFetch(ctx, update, args)
	case "help", "start":
		b.handleHelp(update)
	default:
		b.reply(update, "Unknown command. Try /help.")
	}
}

func displayName(from *tgbotapi.User) string {
	if from.UserName != "" {
		return from.UserName
	}
	return from.FirstName
}

func (b *Bot) handleStart(ctx context.Context, update tgbotapi.Update, variant arena.Variant) {
	if err := b.arena.Start(ctx, update.Message.Chat.ID, variant); err != nil {
		b.reply(update, err.Error())
	}
}

// parseBetArgs accepts exactly two positive integers: contestant number
// and amount.
func parseBetArgs(args string) (slot, amount int, ok bool) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, 0, false
	}
	slot, err := strconv.Atoi(fields[0])
	if err != nil || slot <= 0 {
		return 0, 0, false
	}
	amount, err = strconv.Atoi(fields[1])
	if err != nil || amount <= 0 {
		return 0, 0, false
	}
	return slot, amount, true
}

func (b *Bot) handleBet(ctx context.Context, update tgbotapi.Update, args string) {
	slot, amount, ok := parseBetArgs(args)
	if !ok {
		b.reply(update, "Usage: /bet <contestant number> <amount>")
		return
	}

	balance, err := b.arena.PlaceBet(ctx, update.Message.Chat.ID, update.Message.From.ID, slot, amount)
	if err != nil {
		b.reply(update, err.Error())
		return
	}
	b.reply(update, fmt.Sprintf("Bet placed: %d points on #%d. Balance: %d.", amount, slot, balance))
}

func (b *Bot) handleCheckIn(ctx context.Context, update tgbotapi.Update, name string) {
	room, user := update.Message.Chat.ID, update.Message.From.ID

	ok, err := b.ledger.CanCheckInToday(ctx, room, user)
	if err != nil {
		log.Printf("check-in lookup for %d/%d: %v", room, user, err)
		b.reply(update, "The ledger is unavailable, try again later.")
		return
	}
	if !ok {
		b.reply(update, fmt.Sprintf("%s, you already checked in today. Come back tomorrow!", name))
		return
	}
	if err := b.ledger.RecordCheckIn(ctx, room, user); err != nil {
		log.Printf("record check-in for %d/%d: %v", room, user, err)
		b.reply(update, "The ledger is unavailable, try again later.")
		return
	}
	balance, err := b.ledger.AdjustBalance(ctx, room, user, b.cfg.CheckInBonus)
	if err != nil {
		log.Printf("check-in bonus for %d/%d: %v", room, user, err)
		b.reply(update, "The ledger is unavailable, try again later.")
		return
	}
	b.reply(update, fmt.Sprintf("✅ %s checked in: +%d points. Balance: %d.", name, b.cfg.CheckInBonus, balance))
}

func (b *Bot) handleBeg(ctx context.Context, update tgbotapi.Update, name string) {
	room, user := update.Message.Chat.ID, update.Message.From.ID

	balance, err := b.ledger.GetBalance(ctx, room, user)
	if err != nil {
		log.Printf("balance lookup for %d/%d: %v", room, user, err)
		b.reply(update, "The ledger is unavailable, try again later.")
		return
	}
	if balance > 0 {
		b.reply(update, fmt.Sprintf("%s, you still have %d points. Begging is for the broke.", name, balance))
		return
	}
	alms := b.rng(b.cfg.BegMin, b.cfg.BegMax)
	balance, err = b.ledger.AdjustBalance(ctx, room, user, alms)
	if err != nil {
		log.Printf("beg credit for %d/%d: %v", room, user, err)
		b.reply(update, "The ledger is unavailable, try again later.")
		return
	}
	b.reply(update, fmt.Sprintf("🥺 A kind stranger gives %s %d points. Balance: %d.", name, alms, balance))
}

func (b *Bot) handleBalance(ctx context.Context, update tgbotapi.Update, name string) {
	room, user := update.Message.Chat.ID, update.Message.From.ID
	balance, err := b.ledger.GetBalance(ctx, room, user)
	if err != nil {
		log.Printf("balance lookup for %d/%d: %v", room, user, err)
		b.reply(update, "The ledger is unavailable, try again later.")
		return
	}
	b.reply(update, fmt.Sprintf("%s has %d points.", name, balance))
}

func (b *Bot) handleRanking(ctx context.Context, update tgbotapi.Update) {
	room := update.Message.Chat.ID
	standings, err := b.ledger.Ranking(ctx, room)
	if err != nil {
		log.Printf("ranking for room %d: %v", room, err)
		b.reply(update, "The ledger is unavailable, try again later.")
		return
	}
	if len(standings) == 0 {
		b.reply(update, "Nobody has any points here yet. /checkin to get started.")
		return
	}

	roster := &Roster{API: b.API}
	var sb strings.Builder
	sb.WriteString("🏆 Point ranking:\n")
	for i, s := range standings {
		fmt.Fprintf(&sb, "%d. %s: %d\n", i+1, roster.ResolveDisplayName(room, s.User), s.Points)
	}
	b.reply(update, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) handleSkills(update tgbotapi.Update) {
	var sb strings.Builder
	sb.WriteString("⚔️ Duel skills:\n")
	for _, s := range arena.DuelLibrary() {
		fmt.Fprintf(&sb, "%d. %s: %s\n", s.ID, s.Name, s.Effect)
	}
	b.reply(update, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) handleAsk(ctx context.Context, update tgbotapi.Update, args string) {
	if b.relay == nil {
		b.reply(update, "The chat relay is not configured.")
		return
	}
	room, user := update.Message.Chat.ID, update.Message.From.ID
	if args == "" {
		b.reply(update, "Usage: /ask <question>, or /ask reset to start a fresh conversation.")
		return
	}
	if args == "reset" {
		if err := b.relay.Reset(ctx, room, user); err != nil {
			log.Printf("reset conversation %d/%d: %v", room, user, err)
			b.reply(update, "Could not reset the conversation, try again later.")
			return
		}
		b.reply(update, "Conversation reset.")
		return
	}

	askCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	segments, err := b.relay.Ask(askCtx, room, user, args)
	if err != nil {
		if errors.Is(err, relay.ErrBusy) {
			b.reply(update, "Still thinking about your last question, hold on.")
			return
		}
		log.Printf("ask for %d/%d: %v", room, user, err)
		b.reply(update, "The oracle is silent right now, try again later.")
		return
	}
	for i, segment := range segments {
		if i > 0 {
			// Keeps multi-part replies in order and off the flood limiter.
			time.Sleep(500 * time.Millisecond)
		}
		b.send(room, segment)
	}
}

func (b *Bot) handleFetch(ctx context.Context, update tgbotapi.Update, args string) {
	if b.fetcher == nil {
		b.reply(update, "The download service is not configured.")
		return
	}
	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil || id <= 0 {
		b.reply(update, "Usage: /fetch <numeric id>")
		return
	}
	room := update.Message.Chat.ID

	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	path, err := b.fetcher.Fetch(fetchCtx, id, func(p fetch.Progress) {
		b.send(room, p.Text)
	})
	if err != nil {
		if errors.Is(err, fetch.ErrBusy) || errors.Is(err, fetch.ErrDuplicate) {
			b.reply(update, err.Error())
			return
		}
		log.Printf("fetch %d: %v", id, err)
		b.reply(update, fmt.Sprintf("Fetch failed: %v", err))
		return
	}

	doc := tgbotapi.NewDocument(room, tgbotapi.FilePath(path))
	doc.ReplyToMessageID = update.Message.MessageID
	if _, err := b.API.Send(doc); err != nil {
		log.Printf("upload %s to chat %d: %v", path, room, err)
		b.reply(update, fmt.Sprintf("✅ Fetched %d, but the upload failed: %s", id, path))
	}
}

func (b *Bot) handleHelp(update tgbotapi.Update) {
	b.reply(update, `🎪 Arena commands:

🎮 Contests:
/duel - start a bug duel (bet 100-500, window 60s)
/race - start an animal race (10 lanes, window 30s)
/bet <number> <amount> - back a contestant
/skills - list duel skills

💰 Points:
/checkin - daily bonus
/beg - emergency points when you hit zero
/balance - your points
/ranking - chat leaderboard

🔮 Extras:
/ask <question> - ask the oracle (/ask reset clears the conversation)
/fetch <id> - fetch a file by id`)
}
