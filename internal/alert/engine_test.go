package alert

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mention-radar/internal/config"
	"mention-radar/internal/domain"
	"mention-radar/internal/storage/memory"
)

const (
	bonk = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	usdc = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	lounge = "2124901271"
	gems   = "2331240414"
	calls  = "2604509392"
	mirror = "2382209373" // shares its name with gems

	trustedID = "1282048314"
)

type fakeOracle struct {
	mu        sync.Mutex
	snapshots map[string]*domain.MarketSnapshot
	lookups   map[string]int
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{snapshots: map[string]*domain.MarketSnapshot{}, lookups: map[string]int{}}
}

func (f *fakeOracle) Lookup(_ context.Context, identifier string) (*domain.MarketSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups[identifier]++
	s, ok := f.snapshots[identifier]
	return s, ok
}

func (f *fakeOracle) set(identifier string, s *domain.MarketSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[identifier] = s
}

func (f *fakeOracle) count(identifier string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups[identifier]
}

type fakeSink struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeSink) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

func (f *fakeSink) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func bonkSnapshot() *domain.MarketSnapshot {
	return &domain.MarketSnapshot{
		PriceUSD:                 decimal.RequireFromString("0.00002345"),
		FullyDilutedValuationUSD: decimal.NewFromInt(1567000000),
		URL:                      "https://dexscreener.com/solana/bonk",
		BaseAsset:                &domain.BaseAsset{Symbol: "Bonk", Name: "Bonk Inu"},
	}
}

type fixture struct {
	engine *Engine
	store  *memory.MentionStore
	oracle *fakeOracle
	sink   *fakeSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.NewMentionStore(),
		oracle: newFakeOracle(),
		sink:   &fakeSink{},
	}
	f.engine = NewEngine(Options{
		Store:  f.store,
		Oracle: f.oracle,
		Sink:   f.sink,
		Channels: config.NewRegistry(map[string]string{
			lounge: "Alpha Lounge",
			gems:   "Gem Calls",
			calls:  "Beijing Calls",
			mirror: "Gem Calls",
		}),
		PrivilegedChannelID: lounge,
		TrustedSenders:      config.NewRegistry(map[string]string{trustedID: "scout"}),
		Logger:              log.New(io.Discard, "", 0),
	})
	return f
}

func message(channel, text string) *domain.MessageEvent {
	return &domain.MessageEvent{Text: text, ChannelID: channel}
}

func fromSender(msg *domain.MessageEvent, id, handle, given string) *domain.MessageEvent {
	s := &domain.Sender{ID: id, GivenName: given}
	if handle != "" {
		s.Handle = &handle
	}
	msg.FetchSender = func(context.Context) (*domain.Sender, error) { return s, nil }
	return msg
}

func (f *fixture) mentionCount(t *testing.T, identifier string) int {
	t.Helper()
	ms, err := f.store.ListMentions(context.Background(), identifier)
	require.NoError(t, err)
	return len(ms)
}

func TestStandard_NotifiesOnThirdMention(t *testing.T) {
	f := newFixture(t)
	f.oracle.set(bonk, bonkSnapshot())
	ctx := context.Background()

	assert.Equal(t, OutcomeRecorded, f.engine.HandleMessage(ctx, message(gems, "ape "+bonk)))
	assert.Equal(t, OutcomeRecorded, f.engine.HandleMessage(ctx, message(calls, bonk)))
	assert.Empty(t, f.sink.sent())

	assert.Equal(t, OutcomeNotified, f.engine.HandleMessage(ctx, message(mirror, "again "+bonk)))

	sent := f.sink.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "3rd mention")
	// gems and mirror share a display name
	assert.Contains(t, sent[0], "across 2 distinct channels")
	assert.Contains(t, sent[0], "*Channels:* `Gem Calls`, `Beijing Calls`")
	assert.Contains(t, sent[0], "Bonk (Bonk Inu)")
	assert.Equal(t, 3, f.mentionCount(t, bonk))

	// creation lookup on the first event, fresh lookup on the alert
	assert.Equal(t, 2, f.oracle.count(bonk))
}

func TestStandard_KeepsNotifyingPastThreshold(t *testing.T) {
	f := newFixture(t)
	f.oracle.set(bonk, bonkSnapshot())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		f.engine.HandleMessage(ctx, message(gems, bonk))
	}

	sent := f.sink.sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1], "4th mention")
}

func TestStandard_NoMarketDataNeverTracks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		assert.Equal(t, OutcomeAbandoned, f.engine.HandleMessage(ctx, message(gems, bonk)))
	}

	n, err := f.store.CountTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, f.mentionCount(t, bonk))
	assert.Empty(t, f.sink.sent())
}

func TestStandard_SnapshotWithoutBaseAssetIsAbandoned(t *testing.T) {
	f := newFixture(t)
	f.oracle.set(bonk, &domain.MarketSnapshot{URL: "https://dexscreener.com/solana/x"})

	assert.Equal(t, OutcomeAbandoned, f.engine.HandleMessage(context.Background(), message(gems, bonk)))
	_, err := f.store.GetToken(context.Background(), bonk)
	assert.Error(t, err)
}

func TestStandard_TrackedTokenSkipsCreationLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.UpsertToken(ctx, bonk, "BONK", "Bonk"))

	assert.Equal(t, OutcomeRecorded, f.engine.HandleMessage(ctx, message(gems, bonk)))
	assert.Zero(t, f.oracle.count(bonk))
}

func TestStandard_NotificationCarriesEscalation(t *testing.T) {
	f := newFixture(t)
	f.oracle.set(bonk, bonkSnapshot())
	ctx := context.Background()

	f.engine.HandleMessage(ctx, fromSender(message(lounge, bonk), trustedID, "scout_one", "Scout"))
	f.engine.HandleMessage(ctx, message(gems, bonk))
	f.engine.HandleMessage(ctx, message(calls, bonk))

	sent := f.sink.sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1], "3rd mention")
	assert.Contains(t, sent[1], `escalated by @scout\_one`)
}

func TestStandard_FailedSend(t *testing.T) {
	f := newFixture(t)
	f.oracle.set(bonk, bonkSnapshot())
	f.sink.err = errors.New("bot blocked")
	ctx := context.Background()

	f.engine.HandleMessage(ctx, message(gems, bonk))
	f.engine.HandleMessage(ctx, message(gems, bonk))
	assert.Equal(t, OutcomeFailed, f.engine.HandleMessage(ctx, message(gems, bonk)))
	assert.Equal(t, 3, f.mentionCount(t, bonk), "mentions survive a failed send")
}

func TestPrivileged_UntrustedSenderHasNoEffect(t *testing.T) {
	f := newFixture(t)
	f.oracle.set(bonk, bonkSnapshot())
	ctx := context.Background()

	assert.Equal(t, OutcomeUntrusted, f.engine.HandleMessage(ctx, fromSender(message(lounge, bonk), "999", "", "Random")))
	assert.Equal(t, OutcomeUntrusted, f.engine.HandleMessage(ctx, message(lounge, bonk)), "unknown sender")

	n, err := f.store.CountTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, f.oracle.count(bonk))
	assert.Empty(t, f.sink.sent())
}

func TestPrivileged_UntrustedSenderLeavesTrackedTokenAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.UpsertToken(ctx, bonk, "BONK", "Bonk"))
	require.NoError(t, f.store.RecordMention(ctx, bonk, gems, "Gem Calls"))

	f.engine.HandleMessage(ctx, fromSender(message(lounge, bonk), "999", "", "Random"))

	token, err := f.store.GetToken(ctx, bonk)
	require.NoError(t, err)
	assert.Nil(t, token.EscalatedBy)
	assert.Equal(t, 1, f.mentionCount(t, bonk))
}

func TestPrivileged_SenderLookupError(t *testing.T) {
	f := newFixture(t)
	msg := message(lounge, bonk)
	msg.FetchSender = func(context.Context) (*domain.Sender, error) { return nil, errors.New("flood wait") }

	assert.Equal(t, OutcomeUntrusted, f.engine.HandleMessage(context.Background(), msg))
	assert.Empty(t, f.sink.sent())
}

func TestPrivileged_FirstSighting(t *testing.T) {
	f := newFixture(t)
	f.oracle.set(bonk, bonkSnapshot())
	ctx := context.Background()

	outcome := f.engine.HandleMessage(ctx, fromSender(message(lounge, bonk), trustedID, "scout_one", "Scout"))
	assert.Equal(t, OutcomeNotified, outcome)

	sent := f.sink.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "Alpha Lounge")
	assert.Contains(t, sent[0], "looks *new*")

	token, err := f.store.GetToken(ctx, bonk)
	require.NoError(t, err)
	require.NotNil(t, token.EscalatedBy)
	assert.Equal(t, "@scout_one", *token.EscalatedBy)
	assert.Equal(t, 1, f.mentionCount(t, bonk))
}

func TestPrivileged_NotifiesWhenCreationLookupFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outcome := f.engine.HandleMessage(ctx, fromSender(message(lounge, usdc), trustedID, "", "Scout"))
	assert.Equal(t, OutcomeNotified, outcome)

	sent := f.sink.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "*Shared by:* Scout")
	assert.Contains(t, sent[0], "looks *new*")
	assert.Contains(t, sent[0], "Market data unavailable")

	n, err := f.store.CountTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "token without metadata is not created")
}

func TestPrivileged_HistoryIncludesCurrentMention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.UpsertToken(ctx, bonk, "BONK", "Bonk"))
	require.NoError(t, f.store.RecordMention(ctx, bonk, gems, "Gem Calls"))
	require.NoError(t, f.store.RecordMention(ctx, bonk, calls, "Beijing Calls"))

	// oracle is down; tracked token still escalates
	outcome := f.engine.HandleMessage(ctx, fromSender(message(lounge, bonk), trustedID, "", "Scout"))
	assert.Equal(t, OutcomeNotified, outcome)

	sent := f.sink.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "*already mentioned* 3 times across 3 channels")
	assert.Contains(t, sent[0], "`Gem Calls`, `Beijing Calls`, `Alpha Lounge`")
	assert.Equal(t, 1, f.oracle.count(bonk), "only the notification lookup runs for a tracked token")
}

func TestPrivileged_ThresholdDoesNotApply(t *testing.T) {
	f := newFixture(t)
	f.oracle.set(bonk, bonkSnapshot())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		msg := fromSender(message(lounge, bonk), trustedID, "", "Scout")
		assert.Equal(t, OutcomeNotified, f.engine.HandleMessage(ctx, msg))
	}
	assert.Len(t, f.sink.sent(), 2)
}

func TestHandleMessage_Ignored(t *testing.T) {
	f := newFixture(t)
	f.oracle.set(bonk, bonkSnapshot())
	ctx := context.Background()

	forwarded := message(gems, bonk)
	forwarded.Forwarded = true

	assert.Equal(t, OutcomeIgnored, f.engine.HandleMessage(ctx, nil))
	assert.Equal(t, OutcomeIgnored, f.engine.HandleMessage(ctx, forwarded))
	assert.Equal(t, OutcomeIgnored, f.engine.HandleMessage(ctx, message("777", bonk)), "unmonitored channel")
	assert.Equal(t, OutcomeIgnored, f.engine.HandleMessage(ctx, message(gems, "gm, no contract today")))
	assert.Zero(t, f.oracle.count(bonk))
}

func TestHandleMessage_ReplyChain(t *testing.T) {
	f := newFixture(t)
	f.oracle.set(bonk, bonkSnapshot())
	ctx := context.Background()

	parent := message(gems, "new launch "+bonk)
	reply := message(gems, "this one is sending")
	reply.IsReply = true
	reply.FetchReplyParent = func(context.Context) (*domain.MessageEvent, error) { return parent, nil }

	assert.Equal(t, OutcomeRecorded, f.engine.HandleMessage(ctx, reply))
	assert.Equal(t, 1, f.mentionCount(t, bonk))
}

func TestHandleMessage_ConcurrentEvents(t *testing.T) {
	f := newFixture(t)
	f.oracle.set(bonk, bonkSnapshot())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.engine.HandleMessage(ctx, message(gems, bonk))
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, f.mentionCount(t, bonk))
	n, err := f.store.CountTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	for _, text := range f.sink.sent() {
		assert.True(t, strings.Contains(text, "mention*"))
	}
}

func TestNewEngine_DefaultThreshold(t *testing.T) {
	e := NewEngine(Options{})
	assert.Equal(t, DefaultThreshold, e.threshold)
	assert.NotNil(t, e.logger)
}
