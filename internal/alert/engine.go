// Package alert decides, per inbound message, whether a token mention is
// recorded and whether it raises a notification.
package alert

import (
	"context"
	"errors"
	"log"

	"mention-radar/internal/config"
	"mention-radar/internal/domain"
	"mention-radar/internal/extract"
	"mention-radar/internal/format"
	"mention-radar/internal/notify"
	"mention-radar/internal/observability"
	"mention-radar/internal/oracle"
	"mention-radar/internal/storage"
)

// DefaultThreshold is the mention count at which a standard alert fires.
const DefaultThreshold = 3

// Outcome is the result of handling one message.
type Outcome string

const (
	// OutcomeIgnored: forwarded, unmonitored channel, or no identifier found.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeUntrusted: privileged channel, sender missing or not trusted.
	OutcomeUntrusted Outcome = "untrusted"
	// OutcomeAbandoned: untracked token without usable market metadata.
	OutcomeAbandoned Outcome = "abandoned"
	// OutcomeRecorded: mention stored, below threshold.
	OutcomeRecorded Outcome = "recorded"
	// OutcomeNotified: a notification was delivered.
	OutcomeNotified Outcome = "notified"
	// OutcomeFailed: a store read or the notification send failed.
	OutcomeFailed Outcome = "failed"
)

const (
	pathStandard   = "standard"
	pathPrivileged = "privileged"
)

// Engine implements the privileged and standard alert paths.
// It is safe for concurrent use; each call works on its own event.
type Engine struct {
	store      storage.MentionStore
	oracle     oracle.Lookuper
	sink       notify.Sink
	channels   *config.Registry
	privileged string
	trusted    *config.Registry
	threshold  int
	logger     *log.Logger
}

// Options contains configuration for creating an Engine.
type Options struct {
	Store               storage.MentionStore
	Oracle              oracle.Lookuper
	Sink                notify.Sink
	Channels            *config.Registry // monitored channel id → name
	PrivilegedChannelID string           // empty disables the privileged path
	TrustedSenders      *config.Registry // sender id → label
	Threshold           int              // Default: 3
	Logger              *log.Logger
}

// NewEngine creates a new alert engine.
func NewEngine(opts Options) *Engine {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Engine{
		store:      opts.Store,
		oracle:     opts.Oracle,
		sink:       opts.Sink,
		channels:   opts.Channels,
		privileged: opts.PrivilegedChannelID,
		trusted:    opts.TrustedSenders,
		threshold:  threshold,
		logger:     logger,
	}
}

// HandleMessage processes one inbound event.
func (e *Engine) HandleMessage(ctx context.Context, msg *domain.MessageEvent) Outcome {
	if msg == nil || msg.Forwarded {
		return e.done(pathStandard, OutcomeIgnored)
	}

	channelName, ok := e.channels.Name(msg.ChannelID)
	if !ok {
		return e.done(pathStandard, OutcomeIgnored)
	}

	path := pathStandard
	if e.privileged != "" && msg.ChannelID == e.privileged {
		path = pathPrivileged
	}

	identifier, found := extract.FindInChain(ctx, msg)
	if !found {
		return e.done(path, OutcomeIgnored)
	}

	e.logger.Printf("Identifier %s detected in %q", identifier, channelName)

	if path == pathPrivileged {
		return e.done(path, e.handlePrivileged(ctx, msg, identifier, channelName))
	}
	return e.done(path, e.handleStandard(ctx, msg, identifier, channelName))
}

func (e *Engine) done(path string, outcome Outcome) Outcome {
	observability.RecordMessageHandled(path, string(outcome))
	return outcome
}

func (e *Engine) handlePrivileged(ctx context.Context, msg *domain.MessageEvent, identifier, channelName string) Outcome {
	sender, err := msg.Sender(ctx)
	if err != nil {
		e.logger.Printf("Failed to resolve sender for %s: %v", identifier, err)
		return OutcomeUntrusted
	}
	if sender == nil || !e.trusted.Has(sender.ID) {
		senderID := "unknown"
		if sender != nil {
			senderID = sender.ID
		}
		e.logger.Printf("Ignoring %s in %q: sender %s is not trusted", identifier, channelName, senderID)
		return OutcomeUntrusted
	}

	senderName := sender.DisplayName()
	e.logger.Printf("Trusted sender %s shared %s in %q", senderName, identifier, channelName)

	tracked, err := e.isTracked(ctx, identifier)
	if err != nil {
		e.logger.Printf("Failed to read token %s: %v", identifier, err)
	}
	if err == nil && !tracked {
		if _, err := e.track(ctx, identifier); err != nil {
			e.logger.Printf("Failed to track %s: %v", identifier, err)
		}
	}

	// An untracked token cannot hold mentions; the escalation still goes out.
	if err := e.store.RecordMention(ctx, identifier, msg.ChannelID, channelName); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			e.logger.Printf("Token %s is not tracked, mention not recorded", identifier)
		} else {
			e.logger.Printf("Failed to record mention of %s: %v", identifier, err)
		}
	} else {
		observability.RecordMentionRecorded()
	}

	mentions, err := e.store.ListMentions(ctx, identifier)
	if err != nil {
		e.logger.Printf("Failed to list mentions of %s: %v", identifier, err)
		mentions = nil
	}

	if err := e.store.SetEscalatedBy(ctx, identifier, senderName); err != nil {
		e.logger.Printf("Failed to mark %s as escalated by %s: %v", identifier, senderName, err)
	}

	snapshot, ok := e.oracle.Lookup(ctx, identifier)
	if !ok {
		snapshot = nil
	}

	text := format.Privileged(channelName, identifier, senderName, snapshot, mentions)
	return e.send(ctx, identifier, text)
}

func (e *Engine) handleStandard(ctx context.Context, msg *domain.MessageEvent, identifier, channelName string) Outcome {
	tracked, err := e.isTracked(ctx, identifier)
	if err != nil {
		e.logger.Printf("Failed to read token %s: %v", identifier, err)
		return OutcomeFailed
	}

	if !tracked {
		created, err := e.track(ctx, identifier)
		if err != nil {
			e.logger.Printf("Failed to track %s: %v", identifier, err)
			return OutcomeFailed
		}
		if !created {
			e.logger.Printf("No market data for new identifier %s, ignoring", identifier)
			return OutcomeAbandoned
		}
	}

	if err := e.store.RecordMention(ctx, identifier, msg.ChannelID, channelName); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// deleted between the read and the insert
			e.logger.Printf("Token %s was removed before its mention was recorded", identifier)
			return OutcomeAbandoned
		}
		e.logger.Printf("Failed to record mention of %s: %v", identifier, err)
		return OutcomeFailed
	}
	observability.RecordMentionRecorded()

	mentions, err := e.store.ListMentions(ctx, identifier)
	if err != nil {
		e.logger.Printf("Failed to list mentions of %s: %v", identifier, err)
		return OutcomeFailed
	}

	total := len(mentions)
	channels := domain.DistinctChannelNames(mentions)

	if total < e.threshold {
		e.logger.Printf("Identifier %s mentioned %d times, %d needed to notify", identifier, total, e.threshold)
		return OutcomeRecorded
	}

	reason := format.Reason(total, len(channels))
	e.logger.Printf("Alert for %s: %d mentions across %d channels", identifier, total, len(channels))

	snapshot, ok := e.oracle.Lookup(ctx, identifier)
	if !ok {
		snapshot = nil
	}

	token, err := e.store.GetToken(ctx, identifier)
	if err != nil {
		e.logger.Printf("Failed to re-read token %s: %v", identifier, err)
		token = nil
	}

	text := format.Standard(identifier, token, reason, total, channels, snapshot)
	return e.send(ctx, identifier, text)
}

// isTracked reports whether identifier has a TrackedToken.
func (e *Engine) isTracked(ctx context.Context, identifier string) (bool, error) {
	_, err := e.store.GetToken(ctx, identifier)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// track looks identifier up and creates its TrackedToken when the oracle
// reports base-asset metadata. It reports whether the token now exists.
func (e *Engine) track(ctx context.Context, identifier string) (bool, error) {
	snapshot, ok := e.oracle.Lookup(ctx, identifier)
	if !ok || !snapshot.HasBaseAsset() {
		return false, nil
	}

	if err := e.store.UpsertToken(ctx, identifier, snapshot.BaseAsset.Symbol, snapshot.BaseAsset.Name); err != nil {
		return false, err
	}
	e.logger.Printf("First sighting of %s (%s), now tracked", identifier, snapshot.BaseAsset.Symbol)
	return true, nil
}

func (e *Engine) send(ctx context.Context, identifier, text string) Outcome {
	err := e.sink.Send(ctx, text)
	observability.RecordNotification(err)
	if err != nil {
		e.logger.Printf("Notification for %s not delivered: %v", identifier, err)
		return OutcomeFailed
	}
	return OutcomeNotified
}
