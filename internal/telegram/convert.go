package telegram

import (
	"context"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"mention-radar/internal/domain"
)

// NormalizeChatID renders a Bot API chat id the way channels are configured:
// supergroup and channel ids lose their "-100" prefix.
func NormalizeChatID(id int64) string {
	return strings.TrimPrefix(strconv.FormatInt(id, 10), "-100")
}

// ToMessageEvent converts a Bot API message. The Bot API embeds one level of
// reply parent, so the parent of a parent is never available.
// Updates only arrive from chats the bot is a member of: each monitored
// channel must add the bot (as an admin, for channels) to be seen at all.
func ToMessageEvent(msg *telego.Message) *domain.MessageEvent {
	if msg == nil {
		return nil
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	event := &domain.MessageEvent{
		Text:      text,
		ChannelID: NormalizeChatID(msg.Chat.ID),
		IsReply:   msg.ReplyToMessage != nil,
		Forwarded: msg.ForwardOrigin != nil,
	}

	if parent := msg.ReplyToMessage; parent != nil {
		event.FetchReplyParent = func(context.Context) (*domain.MessageEvent, error) {
			return ToMessageEvent(parent), nil
		}
	}

	from := msg.From
	event.FetchSender = func(context.Context) (*domain.Sender, error) {
		return toSender(from), nil
	}

	return event
}

func toSender(u *telego.User) *domain.Sender {
	if u == nil {
		return nil
	}
	s := &domain.Sender{
		ID:        strconv.FormatInt(u.ID, 10),
		GivenName: u.FirstName,
	}
	if u.Username != "" {
		handle := u.Username
		s.Handle = &handle
	}
	return s
}
