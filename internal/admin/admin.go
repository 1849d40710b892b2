// Package admin implements the operator commands: stats and delete.
package admin

import (
	"context"
	"fmt"
	"log"
	"strings"

	"mention-radar/internal/extract"
	"mention-radar/internal/format"
	"mention-radar/internal/storage"
)

// DeleteStatus is the result of a delete request.
type DeleteStatus int

const (
	StatusRemoved DeleteStatus = iota
	StatusNotFound
	StatusInvalid
)

func (s DeleteStatus) String() string {
	switch s {
	case StatusRemoved:
		return "removed"
	case StatusNotFound:
		return "not found"
	case StatusInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("DeleteStatus(%d)", int(s))
	}
}

// deleteCommands are accepted spellings of the delete command.
var deleteCommands = []string{"/delete", "/eliminar"}

// Commands executes admin operations against the store.
type Commands struct {
	store  storage.MentionStore
	logger *log.Logger
}

// NewCommands creates Commands. A nil logger uses log.Default().
func NewCommands(store storage.MentionStore, logger *log.Logger) *Commands {
	if logger == nil {
		logger = log.Default()
	}
	return &Commands{store: store, logger: logger}
}

// Stats returns the number of tracked tokens.
func (c *Commands) Stats(ctx context.Context) (int, error) {
	n, err := c.store.CountTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return n, nil
}

// Delete removes raw (trimmed) and its mentions. Malformed input is rejected
// without touching the store.
func (c *Commands) Delete(ctx context.Context, raw string) (DeleteStatus, error) {
	identifier := strings.TrimSpace(raw)
	if !extract.Valid(identifier) {
		return StatusInvalid, nil
	}

	removed, err := c.store.DeleteToken(ctx, identifier)
	if err != nil {
		return StatusNotFound, fmt.Errorf("delete %s: %w", identifier, err)
	}
	if !removed {
		return StatusNotFound, nil
	}

	c.logger.Printf("Removed %s and all of its mentions", identifier)
	return StatusRemoved, nil
}

// Execute runs a chat command and returns the reply. handled is false when
// text is not an admin command.
func (c *Commands) Execute(ctx context.Context, text string) (reply string, handled bool) {
	name, arg := splitCommand(text)

	switch {
	case name == "/stats":
		n, err := c.Stats(ctx)
		if err != nil {
			c.logger.Printf("Stats failed: %v", err)
			return "⚠️ Could not read statistics.", true
		}
		return format.Stats(n), true

	case isDeleteCommand(name):
		identifier := strings.TrimSpace(arg)
		status, err := c.Delete(ctx, identifier)
		if err != nil {
			c.logger.Printf("Delete failed: %v", err)
			return "⚠️ Could not delete the contract.", true
		}
		switch status {
		case StatusRemoved:
			return format.Deleted(identifier), true
		case StatusInvalid:
			return format.InvalidIdentifier(), true
		default:
			return format.NotFound(identifier), true
		}
	}

	return "", false
}

// splitCommand returns the lowercased command without any @botname suffix,
// and the remaining text.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}

	name, arg, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), arg
}

func isDeleteCommand(name string) bool {
	for _, c := range deleteCommands {
		if name == c {
			return true
		}
	}
	return false
}
