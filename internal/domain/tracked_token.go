package domain

// TrackedToken represents a token contract known to the watcher.
// Corresponds to tracked_tokens table.
type TrackedToken struct {
	Identifier  string  // PRIMARY KEY, base58 contract address
	Symbol      *string // base asset symbol (nullable)
	Name        *string // base asset name (nullable)
	EscalatedBy *string // trusted sender who escalated it from the privileged channel (nullable)
	FirstSeenAt int64   // Unix timestamp in milliseconds, immutable
}

// SymbolOr returns the symbol or fallback when unknown.
func (t *TrackedToken) SymbolOr(fallback string) string {
	if t == nil || t.Symbol == nil || *t.Symbol == "" {
		return fallback
	}
	return *t.Symbol
}

// NameOr returns the name or fallback when unknown.
func (t *TrackedToken) NameOr(fallback string) string {
	if t == nil || t.Name == nil || *t.Name == "" {
		return fallback
	}
	return *t.Name
}
