// Package telegram adapts Bot API updates to message events and admin commands.
package telegram

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"

	"github.com/mymmrac/telego"
	"golang.org/x/sync/semaphore"

	"mention-radar/internal/alert"
	"mention-radar/internal/config"
	"mention-radar/internal/domain"
)

// Default configuration values.
const (
	DefaultMaxConcurrent = 16
	DefaultPollTimeout   = 30 // seconds
)

// MessageHandler handles one monitored message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *domain.MessageEvent) alert.Outcome
}

// CommandExecutor answers admin commands.
type CommandExecutor interface {
	Execute(ctx context.Context, text string) (reply string, handled bool)
}

// bot is the subset of *telego.Bot used by the listener.
type bot interface {
	UpdatesViaLongPolling(ctx context.Context, params *telego.GetUpdatesParams, options ...telego.LongPollingOption) (<-chan telego.Update, error)
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Listener long-polls the Bot API and fans messages out to the handler.
type Listener struct {
	bot         bot
	handler     MessageHandler
	commands    CommandExecutor
	channels    *config.Registry
	adminChatID int64
	sem         *semaphore.Weighted
	pollTimeout int
	logger      *log.Logger
}

// Options contains configuration for creating a Listener.
type Options struct {
	Bot           bot
	Handler       MessageHandler
	Commands      CommandExecutor  // nil disables admin commands
	Channels      *config.Registry // monitored channel ids
	AdminChatID   int64            // chat or user allowed to run admin commands
	MaxConcurrent int64            // in-flight handlers. Default: 16
	PollTimeout   int              // long-poll timeout in seconds. Default: 30
	Logger        *log.Logger
}

// NewListener creates a new Listener.
func NewListener(opts Options) *Listener {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Listener{
		bot:         opts.Bot,
		handler:     opts.Handler,
		commands:    opts.Commands,
		channels:    opts.Channels,
		adminChatID: opts.AdminChatID,
		sem:         semaphore.NewWeighted(maxConcurrent),
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// Run consumes updates until ctx is cancelled or the update stream closes,
// then waits for in-flight handlers.
func (l *Listener) Run(ctx context.Context) error {
	updates, err := l.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        l.pollTimeout,
		AllowedUpdates: []string{"message", "channel_post"},
	})
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	l.logger.Printf("Listening for updates on %d monitored channels", l.channels.Len())

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			l.dispatch(ctx, update, &wg)
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, update telego.Update, wg *sync.WaitGroup) {
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil {
		return
	}

	if l.isAdmin(msg) && l.commands != nil {
		if reply, handled := l.commands.Execute(ctx, msg.Text); handled {
			l.reply(ctx, msg.Chat.ID, reply)
			return
		}
	}

	event := ToMessageEvent(msg)
	if !l.channels.Has(event.ChannelID) {
		return
	}

	if err := l.sem.Acquire(ctx, 1); err != nil {
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer l.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				l.logger.Printf("Handler panic for message in %s: %v\n%s", event.ChannelID, r, debug.Stack())
			}
		}()
		l.handler.HandleMessage(ctx, event)
	}()
}

func (l *Listener) isAdmin(msg *telego.Message) bool {
	if l.adminChatID == 0 {
		return false
	}
	if msg.Chat.ID == l.adminChatID {
		return true
	}
	return msg.From != nil && msg.From.ID == l.adminChatID
}

func (l *Listener) reply(ctx context.Context, chatID int64, text string) {
	_, err := l.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		Text:      text,
		ParseMode: telego.ModeMarkdown,
	})
	if err != nil {
		l.logger.Printf("Failed to reply to admin command in %d: %v", chatID, err)
	}
}
