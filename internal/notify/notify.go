// Package notify delivers rendered notifications to the notify chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mymmrac/telego"
)

// ErrEmptyMessage is returned when there is nothing to send.
var ErrEmptyMessage = errors.New("empty message")

// Sink sends one text message. Delivery is attempted once.
type Sink interface {
	Send(ctx context.Context, text string) error
}

// messageSender is the subset of *telego.Bot used for delivery.
type messageSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// TelegramSink posts messages to a single chat through the Bot API.
type TelegramSink struct {
	bot    messageSender
	chatID int64
	logger *log.Logger
}

// NewTelegramSink creates a sink for chatID. A nil logger uses log.Default().
func NewTelegramSink(bot messageSender, chatID int64, logger *log.Logger) *TelegramSink {
	if logger == nil {
		logger = log.Default()
	}
	return &TelegramSink{bot: bot, chatID: chatID, logger: logger}
}

// Send posts text as legacy Markdown with link previews disabled.
// Failures are logged and returned; the caller decides whether they matter.
func (s *TelegramSink) Send(ctx context.Context, text string) error {
	if text == "" {
		return ErrEmptyMessage
	}

	_, err := s.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:             telego.ChatID{ID: s.chatID},
		Text:               text,
		ParseMode:          telego.ModeMarkdown,
		LinkPreviewOptions: &telego.LinkPreviewOptions{IsDisabled: true},
	})
	if err != nil {
		s.logger.Printf("Failed to send notification to %d: %v", s.chatID, err)
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// LogSink writes notifications to a logger instead of a chat. Used for dry runs.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a LogSink. A nil logger uses log.Default().
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{logger: logger}
}

// Send logs text.
func (s *LogSink) Send(_ context.Context, text string) error {
	if text == "" {
		return ErrEmptyMessage
	}
	s.logger.Printf("Notification:\n%s", text)
	return nil
}

var (
	_ Sink = (*TelegramSink)(nil)
	_ Sink = (*LogSink)(nil)
)
