package store

import (
	"fmt"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"

	"libdb.so/zakrfa/internal/domain"
)

// IsAuthorized reports whether guildID holds a whitelist entry that has not
// expired at now. An expired entry is deleted.
func (s *Store) IsAuthorized(guildID discord.GuildID, now time.Time) bool {
	return s.Status(guildID, now).State == domain.WhitelistActive
}

// Status looks up guildID's whitelist entry. An expired entry is deleted
// before returning, so the next lookup reports it absent.
func (s *Store) Status(guildID discord.GuildID, now time.Time) domain.WhitelistStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.whitelist[guildID]
	if !ok {
		return domain.WhitelistStatus{State: domain.WhitelistAbsent}
	}

	if !entry.ActiveAt(now) {
		delete(s.whitelist, guildID)
		s.changed()

		s.logger.Info(
			"Whitelist entry has expired and was removed.",
			"guild_id", guildID,
			"expired_at", entry.ExpiresAt)

		return domain.WhitelistStatus{State: domain.WhitelistExpired}
	}

	return domain.WhitelistStatus{State: domain.WhitelistActive, Entry: entry}
}

// Grant whitelists guildID for days days starting at now, replacing any
// previous entry.
func (s *Store) Grant(guildID discord.GuildID, days int, grantedBy discord.UserID, now time.Time) (domain.WhitelistEntry, error) {
	if !guildID.IsValid() {
		return domain.WhitelistEntry{}, fmt.Errorf("%w: invalid server id", domain.ErrValidation)
	}
	if err := domain.ValidateDays(days); err != nil {
		return domain.WhitelistEntry{}, err
	}

	entry := domain.WhitelistEntry{
		GuildID:      guildID,
		AddedBy:      grantedBy,
		AddedAt:      now,
		ExpiresAt:    now.Add(time.Duration(days) * domain.Day),
		DurationDays: days,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.whitelist[guildID] = entry
	s.changed()

	return entry, nil
}
