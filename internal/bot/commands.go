package bot

import (
	"context"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/api/cmdroute"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"

	"libdb.so/zakrfa/internal/correlation"
	"libdb.so/zakrfa/internal/domain"
)

var managePermissions = discord.PermissionManageChannels | discord.PermissionManageRoles

// Commands is the slash command surface the bot registers.
var Commands = []api.CreateCommandData{
	{
		Name:        "zakrfa",
		Description: "Set the decoration style for created channels and roles",
		Options: discord.CommandOptions{
			&discord.StringOption{
				OptionName:  "style",
				Description: "The style: ~ is replaced by the emoji and % by the name",
				Required:    true,
			},
			&discord.StringOption{
				OptionName:  "space",
				Description: "Character to use instead of spaces (optional)",
			},
		},
		DefaultMemberPermissions: &managePermissions,
	},
	{
		Name:        "type",
		Description: "Choose between creating channels or roles",
		Options: discord.CommandOptions{
			&discord.StringOption{
				OptionName:  "choice",
				Description: "Channels or roles",
				Required:    true,
				Choices: []discord.StringChoice{
					{Name: "channels", Value: string(domain.CreateChannels)},
					{Name: "roles", Value: string(domain.CreateRoles)},
				},
			},
		},
		DefaultMemberPermissions: &managePermissions,
	},
	{
		Name:        "create",
		Description: "Create channels or roles with the server's style",
		Options: discord.CommandOptions{
			&discord.StringOption{
				OptionName:  "name",
				Description: "Name of the channel/role (comma separated for multiple)",
				Required:    true,
			},
			&discord.StringOption{
				OptionName:  "emoji",
				Description: "Emoji to use",
			},
		},
		DefaultMemberPermissions: &managePermissions,
	},
	{
		Name:        "whitelist",
		Description: "Whitelist a server for a number of days (bot owner only)",
		Options: discord.CommandOptions{
			&discord.StringOption{
				OptionName:  "server",
				Description: "The server id",
				Required:    true,
			},
			&discord.StringOption{
				OptionName:  "days",
				Description: "How many days the whitelist lasts",
				Required:    true,
			},
		},
	},
	{
		Name:        "whitelist-status",
		Description: "Show this server's whitelist status",
	},
}

// Router returns a command router for the bot. Slow commands are deferred
// through client.
func (b *Bot) Router(client *api.Client) *cmdroute.Router {
	r := cmdroute.NewRouter()
	r.Use(cmdroute.Deferrable(client, cmdroute.DeferOpts{
		Error: b.replyFailed,
	}))

	r.AddFunc("zakrfa", b.route("zakrfa", func(ctx context.Context, inv Invocation, data cmdroute.CommandData) Reply {
		var opts struct {
			Style string `discord:"style"`
			Space string `discord:"space?"`
		}
		if err := data.Options.Unmarshal(&opts); err != nil {
			return b.fail(ctx, "zakrfa", err)
		}
		return b.SetStyle(ctx, inv, opts.Style, opts.Space)
	}))

	r.AddFunc("type", b.route("type", func(ctx context.Context, inv Invocation, data cmdroute.CommandData) Reply {
		var opts struct {
			Choice string `discord:"choice"`
		}
		if err := data.Options.Unmarshal(&opts); err != nil {
			return b.fail(ctx, "type", err)
		}
		return b.SetCreationType(ctx, inv, opts.Choice)
	}))

	r.AddFunc("create", b.route("create", func(ctx context.Context, inv Invocation, data cmdroute.CommandData) Reply {
		var opts struct {
			Name  string `discord:"name"`
			Emoji string `discord:"emoji?"`
		}
		if err := data.Options.Unmarshal(&opts); err != nil {
			return b.fail(ctx, "create", err)
		}
		return b.Create(ctx, inv, opts.Name, opts.Emoji)
	}))

	r.AddFunc("whitelist", b.route("whitelist", func(ctx context.Context, inv Invocation, data cmdroute.CommandData) Reply {
		var opts struct {
			Server string `discord:"server"`
			Days   string `discord:"days"`
		}
		if err := data.Options.Unmarshal(&opts); err != nil {
			return b.fail(ctx, "whitelist", err)
		}
		return b.GrantWhitelist(ctx, inv, opts.Server, opts.Days)
	}))

	r.AddFunc("whitelist-status", b.route("whitelist-status", func(ctx context.Context, inv Invocation, _ cmdroute.CommandData) Reply {
		return b.WhitelistStatus(ctx, inv)
	}))

	return r
}

// replyFailed logs a reply that Discord did not accept.
func (b *Bot) replyFailed(err error) {
	b.logger.Error(
		"Bot has failed to deliver a reply.",
		"err", err)
}

// InteractionError reports a direct interaction response that could not be
// sent. Assign it to the session's OnInteractionError.
func (b *Bot) InteractionError(ev *gateway.InteractionCreateEvent, err error) {
	b.logger.Error(
		"Bot has failed to deliver a reply.",
		"interaction_id", ev.ID,
		"guild_id", ev.GuildID,
		"err", err)
}

type commandFunc func(ctx context.Context, inv Invocation, data cmdroute.CommandData) Reply

func (b *Bot) route(name string, fn commandFunc) cmdroute.CommandHandlerFunc {
	return func(ctx context.Context, data cmdroute.CommandData) *api.InteractionResponseData {
		ctx = correlation.WithID(ctx, correlation.NewID())

		inv := Invocation{
			GuildID: data.Event.GuildID,
			UserID:  data.Event.SenderID(),
		}

		b.logger.InfoContext(ctx,
			"This bot has received a command.",
			"command", name,
			"guild_id", inv.GuildID,
			"user_id", inv.UserID)

		return fn(ctx, inv, data).Response()
	}
}
