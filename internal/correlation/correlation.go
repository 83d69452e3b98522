// Package correlation ties together the log lines of a single slash command.
//
// The command router stores a fresh id in the context of every interaction.
// Loggers built on Handler then stamp that id on each record logged with the
// context, so one /create run can be followed through the store and the bulk
// creator.
package correlation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Key is the log attribute holding the id.
const Key = "correlation_id"

type idKey struct{}

// NewID returns a random id for one interaction.
func NewID() string {
	return uuid.NewString()
}

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey{}, id)
}

// ID returns the id stored in ctx. An empty id counts as missing.
func ID(ctx context.Context) (string, bool) {
	id, _ := ctx.Value(idKey{}).(string)
	return id, id != ""
}

// Handler is a slog.Handler that adds Key to records whose context has an id.
type Handler struct {
	next slog.Handler
}

func NewHandler(next slog.Handler) *Handler {
	return &Handler{next: next}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ID(ctx); ok {
		r.AddAttrs(slog.String(Key, id))
	}
	return h.next.Handle(ctx, r)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewHandler(h.next.WithAttrs(attrs))
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return NewHandler(h.next.WithGroup(name))
}
