// Package bot implements the slash commands: setting a guild's style and
// creation type, bulk creating channels or roles, and managing the guild
// whitelist.
//
// Every command except the whitelist ones requires the invoking guild to be
// whitelisted. Granting whitelist access is reserved for the bot owner.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/jonboulle/clockwork"

	"libdb.so/zakrfa/internal/bulk"
	"libdb.so/zakrfa/internal/domain"
	"libdb.so/zakrfa/internal/metrics"
	"libdb.so/zakrfa/internal/store"
	"libdb.so/zakrfa/internal/style"
)

// Creator performs bulk creations. *bulk.Creator implements it.
type Creator interface {
	Create(ctx context.Context, req bulk.Request) ([]string, error)
}

// Options configures a Bot.
type Options struct {
	Store   *store.Store
	Creator Creator
	Clock   clockwork.Clock
	// OwnerID is the only user allowed to grant whitelist access. If it is
	// not valid, nobody can.
	OwnerID      discord.UserID
	DefaultEmoji string
	Logger       *slog.Logger
}

// Bot handles commands.
type Bot struct {
	store        *store.Store
	creator      Creator
	clock        clockwork.Clock
	ownerID      discord.UserID
	defaultEmoji string
	logger       *slog.Logger
}

// New returns a Bot.
func New(opts Options) *Bot {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.DefaultEmoji == "" {
		opts.DefaultEmoji = style.DefaultEmoji
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Bot{
		store:        opts.Store,
		creator:      opts.Creator,
		clock:        opts.Clock,
		ownerID:      opts.OwnerID,
		defaultEmoji: opts.DefaultEmoji,
		logger:       opts.Logger,
	}
}

// Invocation identifies who ran a command and where.
type Invocation struct {
	GuildID discord.GuildID
	UserID  discord.UserID
}

// SetStyle handles /zakrfa.
func (b *Bot) SetStyle(ctx context.Context, inv Invocation, template, space string) Reply {
	if err := b.authorize(inv); err != nil {
		return b.fail(ctx, "zakrfa", err)
	}
	if template == "" {
		return b.fail(ctx, "zakrfa", fmt.Errorf("%w: the style must not be empty", domain.ErrValidation))
	}

	b.store.SetStyle(inv.GuildID, template, space)
	format := b.store.Format(inv.GuildID)

	b.logger.InfoContext(ctx,
		"Guild has set a new style.",
		"guild_id", inv.GuildID,
		"user_id", inv.UserID,
		"style", template,
		"space", format.Space)

	return b.ok("zakrfa", Reply{
		Title:       "Style set",
		Description: "Use /create to make channels or roles with it.",
		Color:       colorSuccess,
		Fields: []discord.EmbedField{
			{Name: "Style", Value: codeSpan(template), Inline: true},
			{Name: "Preview", Value: codeSpan(style.Expand(template, "name", b.defaultEmoji, format.Space)), Inline: true},
		},
	})
}

// SetCreationType handles /type.
func (b *Bot) SetCreationType(ctx context.Context, inv Invocation, choice string) Reply {
	if err := b.authorize(inv); err != nil {
		return b.fail(ctx, "type", err)
	}

	t, err := domain.ParseCreationType(choice)
	if err != nil {
		return b.fail(ctx, "type", err)
	}

	b.store.SetCreationType(inv.GuildID, t)

	b.logger.InfoContext(ctx,
		"Guild has chosen a creation type.",
		"guild_id", inv.GuildID,
		"user_id", inv.UserID,
		"type", t)

	return b.ok("type", Reply{
		Title:       "Type chosen",
		Description: fmt.Sprintf("Chosen: %s", typeLabel(t)),
		Color:       colorInfo,
	})
}

// Create handles /create.
func (b *Bot) Create(ctx context.Context, inv Invocation, names, emoji string) Reply {
	if err := b.authorize(inv); err != nil {
		return b.fail(ctx, "create", err)
	}

	template, ok := b.store.Style(inv.GuildID)
	if !ok {
		return b.fail(ctx, "create", fmt.Errorf("%w for guild %s", domain.ErrNotConfigured, inv.GuildID))
	}

	list := style.ParseNames(names)
	if len(list) == 0 {
		return b.fail(ctx, "create", fmt.Errorf("%w: give at least one name, separated by commas", domain.ErrValidation))
	}

	if emoji == "" {
		emoji = b.defaultEmoji
	}
	format := b.store.Format(inv.GuildID)

	created, err := b.creator.Create(ctx, bulk.Request{
		GuildID:  inv.GuildID,
		Names:    list,
		Emoji:    emoji,
		Template: template,
		Space:    format.Space,
		Type:     format.Type,
	})
	if err != nil {
		return b.fail(ctx, "create", err)
	}

	return b.ok("create", Reply{
		Title:       fmt.Sprintf("Created %s", typeLabel(format.Type)),
		Description: fmt.Sprintf("Created %d %s:", len(created), itemLabel(format.Type, len(created))),
		Color:       colorSuccess,
		Fields:      numberedFields(created),
	})
}

// GrantWhitelist handles /whitelist.
func (b *Bot) GrantWhitelist(ctx context.Context, inv Invocation, server, days string) Reply {
	if !b.ownerID.IsValid() || inv.UserID != b.ownerID {
		return b.fail(ctx, "whitelist", fmt.Errorf("%w: only the bot owner can grant whitelist access", domain.ErrUnauthorized))
	}

	sf, err := discord.ParseSnowflake(strings.TrimSpace(server))
	if err != nil || !sf.IsValid() {
		return b.fail(ctx, "whitelist", fmt.Errorf("%w: %q is not a server id", domain.ErrValidation, server))
	}

	n, err := domain.ParseDays(days)
	if err != nil {
		return b.fail(ctx, "whitelist", err)
	}

	entry, err := b.store.Grant(discord.GuildID(sf), n, inv.UserID, b.clock.Now())
	if err != nil {
		return b.fail(ctx, "whitelist", err)
	}

	b.logger.InfoContext(ctx,
		"Bot owner has whitelisted a guild.",
		"guild_id", entry.GuildID,
		"days", entry.DurationDays,
		"expires_at", entry.ExpiresAt)

	return b.ok("whitelist", Reply{
		Title:       "Server whitelisted",
		Description: fmt.Sprintf("Server %s can use the bot for %d days.", entry.GuildID, entry.DurationDays),
		Color:       colorSuccess,
		Fields:      entryFields(entry),
	})
}

// WhitelistStatus handles /whitelist-status.
func (b *Bot) WhitelistStatus(ctx context.Context, inv Invocation) Reply {
	if !inv.GuildID.IsValid() {
		return b.fail(ctx, "whitelist-status", errNotInGuild)
	}

	status := b.store.Status(inv.GuildID, b.clock.Now())
	switch status.State {
	case domain.WhitelistActive:
		remaining := status.Entry.ExpiresAt.Sub(b.clock.Now())
		return b.ok("whitelist-status", Reply{
			Title:       "Whitelist active",
			Description: fmt.Sprintf("Expires in %s.", humanDays(remaining)),
			Color:       colorSuccess,
			Fields:      entryFields(status.Entry),
		})
	case domain.WhitelistExpired:
		return b.ok("whitelist-status", Reply{
			Title:       "Whitelist expired",
			Description: "This server's whitelist has expired. Ask the bot owner to renew it.",
			Color:       colorError,
		})
	default:
		return b.ok("whitelist-status", Reply{
			Title:       "Not whitelisted",
			Description: "This server is not whitelisted. Ask the bot owner for access.",
			Color:       colorError,
		})
	}
}

var errNotInGuild = fmt.Errorf("%w: this command only works inside a server", domain.ErrUnauthorized)

func (b *Bot) authorize(inv Invocation) error {
	if !inv.GuildID.IsValid() {
		return errNotInGuild
	}
	if !b.store.IsAuthorized(inv.GuildID, b.clock.Now()) {
		return fmt.Errorf("%w: this server is not whitelisted, ask the bot owner for access", domain.ErrUnauthorized)
	}
	return nil
}

func (b *Bot) ok(command string, r Reply) Reply {
	metrics.CommandsTotal.WithLabelValues(command, "ok").Inc()
	r.Timestamp = b.clock.Now()
	return r
}

// fail turns err into an error reply. Only unexpected errors are logged at
// error level; the rest are the user's to fix.
func (b *Bot) fail(ctx context.Context, command string, err error) Reply {
	r := Reply{
		Title:     "Error",
		Color:     colorError,
		Ephemeral: true,
		Timestamp: b.clock.Now(),
	}

	var outcome string
	switch {
	case errors.Is(err, domain.ErrValidation):
		outcome = "invalid"
		r.Title = "Invalid input"
		r.Description = err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		outcome = "unauthorized"
		r.Title = "Not allowed"
		r.Description = err.Error()
	case errors.Is(err, domain.ErrNotConfigured):
		outcome = "not_configured"
		r.Description = "You need to set a style first with /zakrfa."
	case errors.Is(err, domain.ErrExternalCall):
		// The creator has already logged the failing item.
		outcome = "external_error"
		r.Description = "Something went wrong while creating the channels/roles."
	default:
		outcome = "internal_error"
		r.Description = "This bot has encountered an internal error. This error has been logged."
		b.logger.ErrorContext(ctx,
			"Bot has failed to handle a command.",
			"command", command,
			"err", err)
	}

	if outcome != "internal_error" {
		b.logger.InfoContext(ctx,
			"Bot has refused a command.",
			"command", command,
			"outcome", outcome,
			"err", err)
	}

	metrics.CommandsTotal.WithLabelValues(command, outcome).Inc()
	return r
}

func humanDays(d time.Duration) string {
	days := int(d / domain.Day)
	switch {
	case days >= 2:
		return fmt.Sprintf("%d days", days)
	case days == 1:
		return "1 day"
	default:
		return "less than a day"
	}
}
