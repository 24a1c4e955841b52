// Package bot wires telegram updates to the contest engine, the point
// ledger, the chat relay and the file fetcher.
package bot

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-arena-bot/internal/arena"
	"tg-arena-bot/internal/config"
	"tg-arena-bot/internal/fetch"
	"tg-arena-bot/internal/relay"
	"tg-arena-bot/internal/storage"
)

// Bot holds the telegram client and the services behind the commands.
type Bot struct {
	API     *tgbotapi.BotAPI
	cfg     *config.Config
	ledger  storage.Ledger
	arena   *arena.Registry
	relay   *relay.Relay
	fetcher *fetch.Fetcher
	rng     func(min, max int) int
}

// New builds the bot. relay and fetcher may be nil when their side
// features are not configured.
func New(api *tgbotapi.BotAPI, cfg *config.Config, ledger storage.Ledger, reg *arena.Registry, rl *relay.Relay, fr *fetch.Fetcher, rng func(min, max int) int) *Bot {
	return &Bot{
		API:     api,
		cfg:     cfg,
		ledger:  ledger,
		arena:   reg,
		relay:   rl,
		fetcher: fr,
		rng:     rng,
	}
}

// Run consumes the update long-poll until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.API.GetUpdatesChan(u)

	log.Printf("bot %s is up", b.API.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.API.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !update.Message.Chat.IsGroup() && !update.Message.Chat.IsSuperGroup() {
				b.reply(update, "This bot only works in group chats.")
				continue
			}
			if !b.cfg.ChatAllowed(update.Message.Chat.ID) {
				continue
			}
			go b.HandleCommand(ctx, update)
		}
	}
}

func (b *Bot) reply(update tgbotapi.Update, text string) {
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, text)
	msg.ReplyToMessageID = update.Message.MessageID
	if _, err := b.API.Send(msg); err != nil {
		log.Printf("send reply to chat %d: %v", update.Message.Chat.ID, err)
	}
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.API.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("send to chat %d: %v", chatID, err)
	}
}

// Notifier adapts the telegram client to the contest engine's broadcast
// port. Send errors are logged and swallowed so a flaky network cannot
// stall a running contest.
type Notifier struct {
	API *tgbotapi.BotAPI
}

func (n *Notifier) Broadcast(room int64, text string) {
	if _, err := n.API.Send(tgbotapi.NewMessage(room, text)); err != nil {
		log.Printf("broadcast to chat %d: %v", room, err)
	}
}

// Roster resolves participant ids to display names via the chat member
// API, falling back to a generic label when telegram cannot tell us.
type Roster struct {
	API *tgbotapi.BotAPI
}

func (r *Roster) ResolveDisplayName(room, user int64) string {
	member, err := r.API.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: room,
			UserID: user,
		},
	})
	if err != nil || member.User == nil {
		return fmt.Sprintf("player %d", user)
	}
	if member.User.UserName != "" {
		return member.User.UserName
	}
	return member.User.FirstName
}
