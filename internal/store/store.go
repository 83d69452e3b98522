// Package store owns the bot's in-memory state: the style, format settings and
// whitelist tables for every guild.
//
// The tables are authoritative for the life of the process. Every mutation
// marks the store dirty and returns without waiting for disk; Run drains
// those marks and writes a full snapshot through the Saver. Failed writes are
// logged and the in-memory state is kept.
package store

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"github.com/diamondburned/arikawa/v3/discord"

	"libdb.so/zakrfa/internal/domain"
	"libdb.so/zakrfa/internal/metrics"
)

// Saver persists a full snapshot. *snapshot.File implements it.
type Saver interface {
	Save(domain.Snapshot) error
}

// Store holds the three guild-keyed tables.
type Store struct {
	mu        sync.Mutex
	styles    map[discord.GuildID]string
	settings  map[discord.GuildID]domain.FormatSettings
	whitelist map[discord.GuildID]domain.WhitelistEntry

	saveMu sync.Mutex
	saver  Saver
	dirty  chan struct{}
	logger *slog.Logger
}

// New builds a store from a loaded snapshot. The snapshot's maps are copied.
func New(snap domain.Snapshot, saver Saver, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		styles:    cloneOrEmpty(snap.Styles),
		settings:  cloneOrEmpty(snap.Settings),
		whitelist: cloneOrEmpty(snap.Whitelist),
		saver:     saver,
		dirty:     make(chan struct{}, 1),
		logger:    logger,
	}
	metrics.WhitelistEntries.Set(float64(len(s.whitelist)))
	return s
}

// Snapshot returns a copy of every table.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.Snapshot{
		Styles:    maps.Clone(s.styles),
		Settings:  maps.Clone(s.settings),
		Whitelist: maps.Clone(s.whitelist),
	}
}

// Run writes a snapshot every time the store changes, until ctx is done. It
// writes once more before returning so that the last change is not lost.
func (s *Store) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.save()
			return nil
		case <-s.dirty:
			s.save()
		}
	}
}

// Flush writes a snapshot now and returns the error instead of logging it.
func (s *Store) Flush() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	return s.saver.Save(s.Snapshot())
}

func (s *Store) save() {
	if err := s.Flush(); err != nil {
		s.logger.Error(
			"Bot has failed to save its state. Changes will be kept in memory only.",
			"err", err)
	}
}

// changed must be called with s.mu held.
func (s *Store) changed() {
	metrics.WhitelistEntries.Set(float64(len(s.whitelist)))

	select {
	case s.dirty <- struct{}{}:
	default:
		// A write is already pending and will pick this change up.
	}
}

func cloneOrEmpty[V any](m map[discord.GuildID]V) map[discord.GuildID]V {
	if m == nil {
		return make(map[discord.GuildID]V)
	}
	return maps.Clone(m)
}
