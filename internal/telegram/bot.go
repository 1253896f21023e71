// Package telegram runs the long-polling Telegram transport. Each incoming
// message is routed with the sender's user ID as the session owner.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hammamikhairi/stepchat/internal/answer"
	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/logger"
)

// Handler answers one message for an owner. *chat.Router satisfies it.
type Handler interface {
	Handle(ctx context.Context, owner, text string) string
}

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
}

// Option configures the bot.
type Option func(*Bot)

// WithPollTimeout sets the long-poll timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(b *Bot) {
		b.pollTimeout = seconds
	}
}

// Bot relays Telegram messages to a Handler.
type Bot struct {
	api         API
	handler     Handler
	log         *logger.Logger
	pollTimeout int

	mu    sync.Mutex
	chats map[string]int64 // owner -> chat to reply in
	wg    sync.WaitGroup
}

// New authorizes with token and returns a bot ready to Run.
func New(token string, handler Handler, log *logger.Logger, opts ...Option) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	log.Info("telegram: authorized as @%s", api.Self.UserName)
	return NewWithAPI(api, handler, log, opts...), nil
}

// NewWithAPI wraps an existing API client.
func NewWithAPI(api API, handler Handler, log *logger.Logger, opts ...Option) *Bot {
	b := &Bot{
		api:         api,
		handler:     handler,
		log:         log,
		pollTimeout: 60,
		chats:       make(map[string]int64),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run polls for updates until ctx is cancelled. In-flight messages are
// finished before it returns.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleMessage(ctx, msg)
			}(update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	owner := strconv.FormatInt(msg.From.ID, 10)

	b.mu.Lock()
	b.chats[owner] = msg.Chat.ID
	b.mu.Unlock()

	text := msg.Text
	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			text = "help"
		case "stop":
			text = "stop"
		default:
			text = msg.CommandArguments()
		}
	}
	if text == "" {
		return
	}

	b.log.Debug("telegram: message from %s", owner)
	b.send(msg.Chat.ID, b.handler.Handle(ctx, owner, text))
}

// SessionExpired tells the owner their conversation was closed for
// inactivity. It matches the reaper's expiry callback.
func (b *Bot) SessionExpired(_ context.Context, s *domain.Session) {
	b.mu.Lock()
	chatID, ok := b.chats[s.Owner]
	b.mu.Unlock()
	if !ok {
		return
	}
	b.send(chatID, answer.LineSessionExpired(s.Recipe.Title))
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Error("telegram: sending to %d: %v", chatID, err)
	}
}
