package store

import (
	"github.com/diamondburned/arikawa/v3/discord"

	"libdb.so/zakrfa/internal/domain"
)

// SetStyle stores guildID's template verbatim and sets its space string. An
// empty space means the default single space. The creation type is kept.
func (s *Store) SetStyle(guildID discord.GuildID, template, space string) {
	if space == "" {
		space = domain.DefaultSpace
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.styles[guildID] = template

	settings := s.settings[guildID]
	settings.Space = space
	s.settings[guildID] = settings.WithDefaults()

	s.changed()
}

// SetCreationType sets whether guildID's bulk creation makes channels or
// roles.
func (s *Store) SetCreationType(guildID discord.GuildID, t domain.CreationType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.settings[guildID]
	settings.Type = t
	s.settings[guildID] = settings.WithDefaults()

	s.changed()
}

// Style returns guildID's template, if one was set.
func (s *Store) Style(guildID discord.GuildID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	template, ok := s.styles[guildID]
	return template, ok
}

// Format returns guildID's format settings with defaults filled in.
func (s *Store) Format(guildID discord.GuildID) domain.FormatSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.settings[guildID].WithDefaults()
}
