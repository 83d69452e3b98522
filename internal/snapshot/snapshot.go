// Package snapshot reads and writes the bot's state file.
//
// The whole state is one JSON document holding the styles, settings and
// whitelist tables. Loading never fails: a missing or unreadable file, or a
// single malformed table, yields empty tables and a log line. Saving replaces
// the file atomically.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"

	"libdb.so/zakrfa/internal/domain"
	"libdb.so/zakrfa/internal/metrics"
)

// FileName is the snapshot's name inside the state directory.
const FileName = "zakrfa-data.json"

// File is a snapshot file on disk.
type File struct {
	path   string
	logger *slog.Logger
}

// Open returns a File for path. The file does not need to exist.
func Open(path string, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.Default()
	}
	return &File{
		path:   path,
		logger: logger.With("snapshot_path", path),
	}
}

// Path returns the file's location.
func (f *File) Path() string { return f.path }

// Load reads the snapshot. Any table that cannot be read is returned empty.
func (f *File) Load() domain.Snapshot {
	snap := domain.NewSnapshot()

	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f.logger.Info("No snapshot file exists yet. The bot will start with empty state.")
			return snap
		}
		f.fail("file", "Bot could not read the snapshot file. It will start with empty state.", err)
		return snap
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		f.fail("file", "Bot could not parse the snapshot file. It will start with empty state.", err)
		return snap
	}
	if doc == nil {
		f.fail("file", "Snapshot file does not hold a JSON object. The bot will start with empty state.", nil)
		return snap
	}

	version, err := documentVersion(doc)
	if err != nil {
		f.logger.Warn(
			"Snapshot file has an unreadable version. It will be read as the current version.",
			"err", err)
		version = CurrentVersion
	}
	if version > CurrentVersion {
		f.logger.Warn(
			"Snapshot file was written by a newer version of the bot. Unknown fields will be dropped on the next save.",
			"file_version", version,
			"supported_version", CurrentVersion)
	}
	if version < CurrentVersion {
		f.logger.Info(
			"Snapshot file uses an older layout. It will be migrated.",
			"file_version", version,
			"current_version", CurrentVersion)
	}
	migrate(doc, version)

	for _, p := range decodeTable[string](f, doc, "styles") {
		id, ok := f.guildID("styles", p.Key)
		if !ok {
			continue
		}
		snap.Styles[id] = p.Value
	}

	for _, p := range decodeTable[settingsRecord](f, doc, "settings") {
		id, ok := f.guildID("settings", p.Key)
		if !ok {
			continue
		}
		snap.Settings[id] = domain.FormatSettings{
			Space: p.Value.Space,
			Type:  domain.CreationType(p.Value.Type),
		}.WithDefaults()
	}

	for _, p := range decodeTable[whitelistRecord](f, doc, "whitelist") {
		id, ok := f.guildID("whitelist", p.Key)
		if !ok {
			continue
		}
		addedBy, err := parseID(p.Value.AddedBy)
		if err != nil {
			// The grantor is informational only.
			f.logger.Debug(
				"Whitelist entry has an unreadable grantor.",
				"guild_id", id,
				"err", err)
		}
		snap.Whitelist[id] = domain.WhitelistEntry{
			GuildID:      id,
			AddedBy:      discord.UserID(addedBy),
			AddedAt:      time.UnixMilli(p.Value.AddedAt),
			ExpiresAt:    time.UnixMilli(p.Value.ExpiresAt),
			DurationDays: p.Value.DurationDays,
		}
	}

	f.logger.Info(
		"Bot has loaded its snapshot.",
		"styles", len(snap.Styles),
		"settings", len(snap.Settings),
		"whitelist", len(snap.Whitelist))

	return snap
}

// Save writes snap over the file.
func (f *File) Save(snap domain.Snapshot) (err error) {
	start := time.Now()
	defer func() {
		metrics.SnapshotWriteDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.SnapshotWritesTotal.WithLabelValues("error").Inc()
		} else {
			metrics.SnapshotWritesTotal.WithLabelValues("ok").Inc()
		}
	}()

	b, err := json.MarshalIndent(encode(snap), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", domain.ErrPersistence, err)
	}

	if err := writeFileAtomic(f.path, b); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (f *File) fail(table, msg string, err error) {
	metrics.SnapshotLoadErrorsTotal.WithLabelValues(table).Inc()
	f.logger.Error(msg, "table", table, "err", err)
}

func (f *File) guildID(table, key string) (discord.GuildID, bool) {
	id, err := parseID(key)
	if err != nil || id == 0 {
		metrics.SnapshotLoadErrorsTotal.WithLabelValues(table).Inc()
		f.logger.Warn(
			"Snapshot entry has an invalid guild id. It will be skipped.",
			"table", table,
			"key", key,
			"err", err)
		return 0, false
	}
	return discord.GuildID(id), true
}

func decodeTable[V any](f *File, doc map[string]json.RawMessage, table string) []pair[V] {
	raw, ok := doc[table]
	if !ok || string(raw) == "null" {
		return nil
	}

	var pairs []pair[V]
	if err := json.Unmarshal(raw, &pairs); err != nil {
		f.fail(table, "Snapshot table is corrupt. It will start empty.", err)
		return nil
	}
	return pairs
}

func encode(snap domain.Snapshot) document {
	doc := document{
		Version:   CurrentVersion,
		Styles:    make([]pair[string], 0, len(snap.Styles)),
		Settings:  make([]pair[settingsRecord], 0, len(snap.Settings)),
		Whitelist: make([]pair[whitelistRecord], 0, len(snap.Whitelist)),
	}

	for _, id := range sortedKeys(snap.Styles) {
		doc.Styles = append(doc.Styles, pair[string]{formatID(uint64(id)), snap.Styles[id]})
	}

	for _, id := range sortedKeys(snap.Settings) {
		s := snap.Settings[id].WithDefaults()
		doc.Settings = append(doc.Settings, pair[settingsRecord]{
			Key:   formatID(uint64(id)),
			Value: settingsRecord{Space: s.Space, Type: string(s.Type)},
		})
	}

	for _, id := range sortedKeys(snap.Whitelist) {
		e := snap.Whitelist[id]
		doc.Whitelist = append(doc.Whitelist, pair[whitelistRecord]{
			Key: formatID(uint64(id)),
			Value: whitelistRecord{
				AddedBy:      formatID(uint64(e.AddedBy)),
				AddedAt:      e.AddedAt.UnixMilli(),
				ExpiresAt:    e.ExpiresAt.UnixMilli(),
				DurationDays: e.DurationDays,
			},
		})
	}

	return doc
}

func sortedKeys[V any](m map[discord.GuildID]V) []discord.GuildID {
	keys := make([]discord.GuildID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func parseID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func writeFileAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
