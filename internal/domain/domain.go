// Package domain holds the bot's data model: per-guild style settings, format
// settings and whitelist entries, plus the errors shared by every layer.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
)

// CreationType selects what the bulk-create command produces.
type CreationType string

const (
	CreateChannels CreationType = "channels"
	CreateRoles    CreationType = "roles"
)

// ParseCreationType parses a command choice value.
func ParseCreationType(s string) (CreationType, error) {
	switch CreationType(strings.ToLower(strings.TrimSpace(s))) {
	case CreateChannels:
		return CreateChannels, nil
	case CreateRoles:
		return CreateRoles, nil
	default:
		return "", fmt.Errorf("%w: unknown creation type %q", ErrValidation, s)
	}
}

// DefaultSpace is the separator used when a guild never picked one.
const DefaultSpace = " "

// FormatSettings is how a guild's bulk-created names are formatted.
type FormatSettings struct {
	Space string
	Type  CreationType
}

// WithDefaults fills in the zero fields.
func (f FormatSettings) WithDefaults() FormatSettings {
	if f.Space == "" {
		f.Space = DefaultSpace
	}
	if f.Type != CreateChannels && f.Type != CreateRoles {
		f.Type = CreateChannels
	}
	return f
}

// WhitelistEntry grants a guild access to the creation commands until
// ExpiresAt.
type WhitelistEntry struct {
	GuildID      discord.GuildID
	AddedBy      discord.UserID
	AddedAt      time.Time
	ExpiresAt    time.Time
	DurationDays int
}

// ActiveAt reports whether the entry still authorizes its guild at now.
func (e WhitelistEntry) ActiveAt(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Snapshot is the full persisted state of the bot. It is always written as a
// whole.
type Snapshot struct {
	Styles    map[discord.GuildID]string
	Settings  map[discord.GuildID]FormatSettings
	Whitelist map[discord.GuildID]WhitelistEntry
}

// NewSnapshot returns a snapshot with empty tables.
func NewSnapshot() Snapshot {
	return Snapshot{
		Styles:    make(map[discord.GuildID]string),
		Settings:  make(map[discord.GuildID]FormatSettings),
		Whitelist: make(map[discord.GuildID]WhitelistEntry),
	}
}
