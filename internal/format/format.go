// Package format renders notification and admin reply texts.
//
// Output targets Telegram legacy Markdown: *bold*, _italic_, `code` and
// [label](url). Free text placed outside an entity is escaped.
package format

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"mention-radar/internal/domain"
)

const gmgnTokenURL = "https://gmgn.ai/sol/token/"

var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// escape makes s safe to place outside a Markdown entity.
func escape(s string) string {
	return markdownEscaper.Replace(s)
}

// codeList renders names as a comma-separated list of code spans.
func codeList(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		// backticks cannot be escaped inside a code span
		parts[i] = "`" + strings.ReplaceAll(n, "`", "'") + "`"
	}
	return strings.Join(parts, ", ")
}

func usd(d decimal.Decimal) string {
	return "$" + humanize.FormatFloat("#,###.##", d.InexactFloat64())
}

// Market renders the market-data block with links.
func Market(s *domain.MarketSnapshot, identifier string) string {
	if s == nil {
		return "ℹ️ _Market data unavailable._"
	}

	var sb strings.Builder
	sb.WriteString("*📊 Market data:*\n")
	sb.WriteString(fmt.Sprintf("*Price USD:* `%s`\n", humanize.FormatFloat("#,###.########", s.PriceUSD.InexactFloat64())))
	sb.WriteString(fmt.Sprintf("*Market cap (FDV):* `%s`\n", usd(s.FullyDilutedValuationUSD)))
	sb.WriteString(fmt.Sprintf("*Liquidity:* `%s`\n", usd(s.LiquidityUSD)))
	sb.WriteString(fmt.Sprintf("*Volume (24h):* `%s`\n", usd(s.Volume24hUSD)))
	sb.WriteString(fmt.Sprintf("*Price change (24h):* `%s%%`\n\n", s.PriceChange24hPct.StringFixed(2)))

	sb.WriteString("*🔗 Links:*\n")
	links := make([]string, 0, 3+len(s.Socials))
	if s.URL != "" {
		links = append(links, fmt.Sprintf("[DexScreener](%s)", s.URL))
	}
	links = append(links, fmt.Sprintf("[GMGN](%s%s)", gmgnTokenURL, identifier))
	if len(s.Websites) > 0 {
		links = append(links, fmt.Sprintf("[Website](%s)", s.Websites[0].URL))
	}
	for _, social := range s.Socials {
		links = append(links, fmt.Sprintf("[%s](%s)", escape(social.Label), social.URL))
	}
	sb.WriteString(strings.Join(links, " | "))

	return sb.String()
}

// Privileged renders an escalation raised by a trusted sender in channelName.
// mentions is the token's history including the triggering mention.
func Privileged(channelName, identifier, senderName string, s *domain.MarketSnapshot, mentions []*domain.MentionRecord) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🚨 *Contract alert in* %s 🚨\n\n", escape(channelName)))
	sb.WriteString(fmt.Sprintf("👤 *Shared by:* %s\n", escape(senderName)))
	sb.WriteString(fmt.Sprintf("*Contract:* `%s`\n\n", identifier))
	sb.WriteString("*📜 History in other channels:*\n")

	// the triggering mention is part of the history
	if len(mentions) > 1 {
		channels := domain.DistinctChannelNames(mentions)
		sb.WriteString(fmt.Sprintf("❗️ This contract was *already mentioned* %d times across %d channels.\n", len(mentions), len(channels)))
		sb.WriteString(fmt.Sprintf("*Channels:* %s\n\n", codeList(channels)))
	} else {
		sb.WriteString("✅ This contract looks *new*. No previous mentions found.\n\n")
	}

	sb.WriteString(Market(s, identifier))
	return sb.String()
}

// Standard renders a threshold alert. The escalation note comes from
// token.EscalatedBy.
func Standard(identifier string, token *domain.TrackedToken, reason string, total int, channels []string, s *domain.MarketSnapshot) string {
	fallback := identifier
	if len(fallback) > 5 {
		fallback = fallback[:5]
	}
	symbol := fmt.Sprintf("Token(%s..)", fallback)
	name := "N/A"
	var escalatedBy string
	if token != nil {
		symbol = token.SymbolOr(symbol)
		name = token.NameOr(name)
		if token.EscalatedBy != nil {
			escalatedBy = *token.EscalatedBy
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🚨 *Token alert:* %s (%s) 🚨\n\n", escape(symbol), escape(name)))
	sb.WriteString(fmt.Sprintf("*Reason:* %s\n", reason))
	sb.WriteString(fmt.Sprintf("*Total mentions:* %d across %d distinct channels.\n", total, len(channels)))
	sb.WriteString(fmt.Sprintf("*Channels:* %s\n", codeList(channels)))
	sb.WriteString(fmt.Sprintf("*Contract:* `%s`\n\n", identifier))

	if escalatedBy != "" {
		sb.WriteString(fmt.Sprintf("💡 *Note:* this contract was escalated by %s.\n\n", escape(escalatedBy)))
	}

	sb.WriteString(Market(s, identifier))
	return strings.TrimSpace(sb.String())
}

// Reason describes why a threshold alert fired.
func Reason(total, channels int) string {
	return fmt.Sprintf("Reached the *%s mention* (across %d distinct channels).", ordinal(total), channels)
}

// ordinal returns n with its English suffix: 1st, 2nd, 3rd, 4th, 11th, 21st.
func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// Stats renders the tracked-token count.
func Stats(tracked int) string {
	return fmt.Sprintf("📊 *Bot statistics*\n\n🪙 *Unique tokens tracked:* `%d`", tracked)
}

// Deleted confirms removal of identifier and its mentions.
func Deleted(identifier string) string {
	return fmt.Sprintf("✅ Removed contract `%s` and all of its mentions.", identifier)
}

// NotFound reports that identifier is not tracked.
func NotFound(identifier string) string {
	return fmt.Sprintf("🤷 Contract `%s` is not tracked.", identifier)
}

// InvalidIdentifier rejects a malformed admin argument.
func InvalidIdentifier() string {
	return "❌ That does not look like a valid contract address."
}
