package domain

import "context"

// Sender identifies the author of a message.
type Sender struct {
	ID        string
	Handle    *string // public username without "@" (nullable)
	GivenName string
}

// DisplayName returns "@handle" when a handle is set, otherwise the given name.
func (s *Sender) DisplayName() string {
	if s.Handle != nil && *s.Handle != "" {
		return "@" + *s.Handle
	}
	return s.GivenName
}

// MessageEvent is an inbound message delivered by the transport.
// Reply parent and sender are resolved lazily since both may cost a round trip.
type MessageEvent struct {
	Text      string // empty when the message carries no text
	ChannelID string // normalised channel id
	IsReply   bool
	Forwarded bool

	FetchReplyParent func(ctx context.Context) (*MessageEvent, error)
	FetchSender      func(ctx context.Context) (*Sender, error)
}

// ReplyParent returns the message this one replies to, or nil.
func (m *MessageEvent) ReplyParent(ctx context.Context) (*MessageEvent, error) {
	if !m.IsReply || m.FetchReplyParent == nil {
		return nil, nil
	}
	return m.FetchReplyParent(ctx)
}

// Sender returns the author of the message, or nil when unknown.
func (m *MessageEvent) Sender(ctx context.Context) (*Sender, error) {
	if m.FetchSender == nil {
		return nil, nil
	}
	return m.FetchSender(ctx)
}
