package format

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"mention-radar/internal/domain"
)

const bonk = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

func strPtr(s string) *string { return &s }

func snapshot() *domain.MarketSnapshot {
	return &domain.MarketSnapshot{
		PriceUSD:                 decimal.RequireFromString("0.00002345"),
		LiquidityUSD:             decimal.RequireFromString("1234567.89"),
		FullyDilutedValuationUSD: decimal.NewFromInt(1567000000),
		Volume24hUSD:             decimal.NewFromInt(98765),
		PriceChange24hPct:        decimal.RequireFromString("-3.257"),
		URL:                      "https://dexscreener.com/solana/pair1",
		BaseAsset:                &domain.BaseAsset{Symbol: "Bonk", Name: "Bonk"},
		Websites:                 []domain.Link{{Label: "Website", URL: "https://bonkcoin.com"}},
		Socials:                  []domain.Link{{Label: "Twitter", URL: "https://x.com/bonk_inu"}},
	}
}

func mentions(channels ...string) []*domain.MentionRecord {
	out := make([]*domain.MentionRecord, len(channels))
	for i, c := range channels {
		out[i] = &domain.MentionRecord{ID: int64(i + 1), TokenIdentifier: bonk, ChannelID: c, ChannelName: c}
	}
	return out
}

func TestMarket(t *testing.T) {
	out := Market(snapshot(), bonk)

	assert.Contains(t, out, "*Price USD:* `0.00002345`")
	assert.Contains(t, out, "*Market cap (FDV):* `$1,567,000,000.00`")
	assert.Contains(t, out, "*Liquidity:* `$1,234,567.89`")
	assert.Contains(t, out, "*Volume (24h):* `$98,765.00`")
	assert.Contains(t, out, "*Price change (24h):* `-3.26%`")
	assert.Contains(t, out, "[DexScreener](https://dexscreener.com/solana/pair1) | [GMGN](https://gmgn.ai/sol/token/"+bonk+") | [Website](https://bonkcoin.com) | [Twitter](https://x.com/bonk_inu)")
}

func TestMarket_Unavailable(t *testing.T) {
	out := Market(nil, bonk)
	assert.Contains(t, out, "unavailable")
	assert.NotContains(t, out, "GMGN")
}

func TestPrivileged_FirstSighting(t *testing.T) {
	out := Privileged("Alpha Lounge", bonk, "@scout_one", snapshot(), mentions("Alpha Lounge"))

	assert.True(t, strings.HasPrefix(out, "🚨 *Contract alert in* Alpha Lounge 🚨"))
	assert.Contains(t, out, `@scout\_one`)
	assert.Contains(t, out, "`"+bonk+"`")
	assert.Contains(t, out, "looks *new*")
	assert.NotContains(t, out, "already mentioned")
}

func TestPrivileged_WithHistory(t *testing.T) {
	out := Privileged("Alpha Lounge", bonk, "Scout", snapshot(), mentions("Gems", "Calls", "Gems", "Alpha Lounge"))

	assert.Contains(t, out, "*already mentioned* 4 times across 3 channels")
	assert.Contains(t, out, "*Channels:* `Gems`, `Calls`, `Alpha Lounge`")
	assert.NotContains(t, out, "looks *new*")
}

func TestPrivileged_NoMarketData(t *testing.T) {
	out := Privileged("Alpha Lounge", bonk, "Scout", nil, nil)
	assert.Contains(t, out, "looks *new*")
	assert.Contains(t, out, "Market data unavailable")
}

func TestStandard(t *testing.T) {
	token := &domain.TrackedToken{Identifier: bonk, Symbol: strPtr("BONK"), Name: strPtr("Bonk Inu"), EscalatedBy: strPtr("@scout_one")}
	channels := []string{"Gems", "Calls"}

	out := Standard(bonk, token, Reason(3, 2), 3, channels, snapshot())

	assert.True(t, strings.HasPrefix(out, "🚨 *Token alert:* BONK (Bonk Inu) 🚨"))
	assert.Contains(t, out, "*Reason:* Reached the *3rd mention* (across 2 distinct channels).")
	assert.Contains(t, out, "*Total mentions:* 3 across 2 distinct channels.")
	assert.Contains(t, out, "*Channels:* `Gems`, `Calls`")
	assert.Contains(t, out, `escalated by @scout\_one`)
	assert.Contains(t, out, "[GMGN]")
}

func TestStandard_Fallbacks(t *testing.T) {
	out := Standard(bonk, &domain.TrackedToken{Identifier: bonk}, Reason(4, 1), 4, []string{"Gems"}, nil)

	assert.Contains(t, out, "Token(DezXA..) (N/A)")
	assert.NotContains(t, out, "escalated by")
	assert.Contains(t, out, "Market data unavailable")
}

func TestOrdinal(t *testing.T) {
	tests := map[int]string{
		1: "1st", 2: "2nd", 3: "3rd", 4: "4th", 10: "10th",
		11: "11th", 12: "12th", 13: "13th", 21: "21st", 22: "22nd",
		101: "101st", 111: "111th", 112: "112th",
	}
	for n, want := range tests {
		assert.Equal(t, want, ordinal(n), "ordinal(%d)", n)
	}
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `a\_b\*c\[d`, escape("a_b*c[d"))
	assert.Equal(t, "`it's`", codeList([]string{"it`s"}))
}

func TestAdminReplies(t *testing.T) {
	assert.Contains(t, Stats(7), "`7`")
	assert.Contains(t, Deleted(bonk), bonk)
	assert.Contains(t, NotFound(bonk), "not tracked")
	assert.NotEmpty(t, InvalidIdentifier())
}
