// Package extract finds token contract identifiers in message text.
package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/mr-tron/base58"

	"mention-radar/internal/domain"
)

// MaxChainDepth is the number of messages examined in a reply chain,
// counting the original message.
const MaxChainDepth = 5

// publicKeyLen is the decoded size of a Solana account address.
const publicKeyLen = 32

var (
	// identifierPattern matches base58 strings of contract address length.
	identifierPattern = regexp.MustCompile(`\b[1-9A-HJ-NP-Za-km-z]{32,44}\b`)

	// exactPattern is identifierPattern anchored to the whole input.
	exactPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
)

// FindInText returns the first identifier in text.
func FindInText(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	match := identifierPattern.FindString(text)
	return match, match != ""
}

// FindInChain returns the first identifier found walking from msg towards
// the root of its reply chain. At most MaxChainDepth messages are examined.
// A failed parent fetch ends the walk without a match.
func FindInChain(ctx context.Context, msg *domain.MessageEvent) (string, bool) {
	current := msg
	for hop := 0; hop < MaxChainDepth && current != nil; hop++ {
		if id, ok := FindInText(current.Text); ok {
			return id, true
		}
		if !current.IsReply || hop == MaxChainDepth-1 {
			break
		}

		parent, err := current.ReplyParent(ctx)
		if err != nil {
			return "", false
		}
		current = parent
	}
	return "", false
}

// Valid reports whether s, ignoring surrounding whitespace, is exactly one identifier.
func Valid(s string) bool {
	return exactPattern.MatchString(strings.TrimSpace(s))
}

// IsPublicKey reports whether s decodes to a 32-byte account address.
func IsPublicKey(s string) bool {
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == publicKeyLen
}
