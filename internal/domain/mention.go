package domain

// MentionRecord is a single observed occurrence of an identifier in a channel.
// Corresponds to mentions table.
type MentionRecord struct {
	ID              int64  // auto-increment sequence
	TokenIdentifier string // FK to tracked_tokens, cascades on delete
	ChannelID       string
	ChannelName     string
	OccurredAt      int64 // Unix timestamp in milliseconds
}

// DistinctChannelNames returns the channel names of mentions in first-seen order.
// Channels are identified by name, so two ids sharing a name collapse to one.
func DistinctChannelNames(mentions []*MentionRecord) []string {
	seen := make(map[string]bool, len(mentions))
	names := make([]string, 0, len(mentions))
	for _, m := range mentions {
		if seen[m.ChannelName] {
			continue
		}
		seen[m.ChannelName] = true
		names = append(names, m.ChannelName)
	}
	return names
}
