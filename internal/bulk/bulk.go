// Package bulk creates a batch of styled channels or roles in a guild.
//
// Items are created one at a time by default. Discord rate limits channel and
// role creation per guild, so issuing the calls concurrently mostly trades
// latency for 429s; Options.Concurrency exists for bots with a higher limit.
// The first failed call stops the batch. Items created before it are kept and
// are not reported.
package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"golang.org/x/sync/errgroup"

	"libdb.so/zakrfa/internal/domain"
	"libdb.so/zakrfa/internal/metrics"
	"libdb.so/zakrfa/internal/style"
)

// Platform is the part of the Discord API the creator calls. *api.Client
// implements it.
type Platform interface {
	CreateChannel(discord.GuildID, api.CreateChannelData) (*discord.Channel, error)
	CreateRole(discord.GuildID, api.CreateRoleData) (*discord.Role, error)
}

// DefaultReason is written to the guild's audit log for every created item.
const DefaultReason = "Created with zakrfa bot"

// Options configures a Creator.
type Options struct {
	// Concurrency is the maximum number of create calls in flight. Values
	// below 2 mean sequential.
	Concurrency int
	// Reason is the audit log reason. Defaults to DefaultReason.
	Reason string
	Logger *slog.Logger
}

// Request describes one bulk creation.
type Request struct {
	GuildID  discord.GuildID
	Names    []string
	Emoji    string
	Template string
	Space    string
	Type     domain.CreationType
}

// Creator runs bulk creations against a Platform.
type Creator struct {
	platform    Platform
	concurrency int
	reason      string
	logger      *slog.Logger
}

// New returns a Creator.
func New(platform Platform, opts Options) *Creator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Reason == "" {
		opts.Reason = DefaultReason
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Creator{
		platform:    platform,
		concurrency: opts.Concurrency,
		reason:      opts.Reason,
		logger:      opts.Logger,
	}
}

// Create expands the template for every name and creates the items. It
// returns the names Discord reports for them, in request order. On failure it
// returns an error wrapping domain.ErrExternalCall and no names.
func (c *Creator) Create(ctx context.Context, req Request) ([]string, error) {
	if len(req.Names) == 0 {
		return nil, fmt.Errorf("%w: no names given", domain.ErrValidation)
	}
	if req.Emoji == "" {
		req.Emoji = style.DefaultEmoji
	}
	if req.Type == "" {
		req.Type = domain.CreateChannels
	}

	if c.concurrency == 1 {
		return c.createSequential(ctx, req)
	}
	return c.createPooled(ctx, req)
}

func (c *Creator) createSequential(ctx context.Context, req Request) ([]string, error) {
	created := make([]string, 0, len(req.Names))
	for _, name := range req.Names {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("bulk creation interrupted after %d items: %w", len(created), err)
		}

		display, err := c.createOne(req, name)
		if err != nil {
			return nil, c.abort(ctx, req, name, len(created), err)
		}
		created = append(created, display)
	}

	c.logger.InfoContext(ctx,
		"Bot has finished a bulk creation.",
		"guild_id", req.GuildID,
		"type", req.Type,
		"count", len(created))

	return created, nil
}

func (c *Creator) createPooled(ctx context.Context, req Request) ([]string, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	var createdCount atomic.Int64
	created := make([]string, len(req.Names))

	for i, name := range req.Names {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			display, err := c.createOne(req, name)
			if err != nil {
				return c.abort(ctx, req, name, int(createdCount.Load()), err)
			}

			createdCount.Add(1)
			created[i] = display
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx,
		"Bot has finished a bulk creation.",
		"guild_id", req.GuildID,
		"type", req.Type,
		"count", len(created),
		"concurrency", c.concurrency)

	return created, nil
}

func (c *Creator) createOne(req Request, name string) (string, error) {
	display := style.Expand(req.Template, name, req.Emoji, req.Space)

	switch req.Type {
	case domain.CreateRoles:
		role, err := c.platform.CreateRole(req.GuildID, api.CreateRoleData{
			Name:        display,
			AddRoleData: api.AddRoleData{AuditLogReason: api.AuditLogReason(c.reason)},
		})
		if err != nil {
			return "", err
		}
		metrics.ItemsCreatedTotal.WithLabelValues(string(req.Type)).Inc()
		return role.Name, nil

	default:
		ch, err := c.platform.CreateChannel(req.GuildID, api.CreateChannelData{
			Name:           display,
			Type:           discord.GuildText,
			AuditLogReason: api.AuditLogReason(c.reason),
		})
		if err != nil {
			return "", err
		}
		metrics.ItemsCreatedTotal.WithLabelValues(string(req.Type)).Inc()
		return ch.Name, nil
	}
}

func (c *Creator) abort(ctx context.Context, req Request, name string, created int, err error) error {
	metrics.CreateFailuresTotal.WithLabelValues(string(req.Type)).Inc()

	c.logger.ErrorContext(ctx,
		"Bot has failed to create an item. The rest of the batch was skipped.",
		"guild_id", req.GuildID,
		"type", req.Type,
		"name", name,
		"created_before_failure", created,
		"requested", len(req.Names),
		"err", err)

	return fmt.Errorf("%w: create %s %q: %w", domain.ErrExternalCall, req.Type, name, err)
}
