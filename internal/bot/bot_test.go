package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libdb.so/zakrfa/internal/bulk"
	"libdb.so/zakrfa/internal/domain"
	"libdb.so/zakrfa/internal/store"
)

// --- Fakes ---

type nopSaver struct{}

func (nopSaver) Save(domain.Snapshot) error { return nil }

type fakePlatform struct {
	mu     sync.Mutex
	names  []string
	kinds  []string
	failAt int
}

func (f *fakePlatform) create(kind, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.names = append(f.names, name)
	f.kinds = append(f.kinds, kind)
	if len(f.names) == f.failAt {
		return errors.New("rate limited")
	}
	return nil
}

func (f *fakePlatform) CreateChannel(guildID discord.GuildID, data api.CreateChannelData) (*discord.Channel, error) {
	if err := f.create("channel", data.Name); err != nil {
		return nil, err
	}
	return &discord.Channel{GuildID: guildID, Name: data.Name}, nil
}

func (f *fakePlatform) CreateRole(guildID discord.GuildID, data api.CreateRoleData) (*discord.Role, error) {
	if err := f.create("role", data.Name); err != nil {
		return nil, err
	}
	return &discord.Role{Name: data.Name}, nil
}

const (
	guild   = discord.GuildID(1001)
	ownerID = discord.UserID(42)
	adminID = discord.UserID(77)
)

var (
	member = Invocation{GuildID: guild, UserID: adminID}
	owner  = Invocation{GuildID: guild, UserID: ownerID}
)

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

type harness struct {
	bot      *Bot
	store    *store.Store
	platform *fakePlatform
	clock    fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000))
	st := store.New(domain.NewSnapshot(), nopSaver{}, nil)
	platform := &fakePlatform{}

	b := New(Options{
		Store:   st,
		Creator: bulk.New(platform, bulk.Options{}),
		Clock:   clock,
		OwnerID: ownerID,
	})

	return &harness{bot: b, store: st, platform: platform, clock: clock}
}

func (h *harness) whitelist(t *testing.T, days int) {
	t.Helper()
	_, err := h.store.Grant(guild, days, ownerID, h.clock.Now())
	require.NoError(t, err)
}

func fieldValues(r Reply) []string {
	values := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		values[i] = f.Value
	}
	return values
}

// --- Authorization ---

func TestCommands_RequireWhitelist(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		run  func(b *Bot) Reply
	}{
		{"set style", func(b *Bot) Reply { return b.SetStyle(ctx, member, "~%", "") }},
		{"set type", func(b *Bot) Reply { return b.SetCreationType(ctx, member, "roles") }},
		{"create", func(b *Bot) Reply { return b.Create(ctx, member, "a", "") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			r := tt.run(h.bot)
			assert.Equal(t, "Not allowed", r.Title)
			assert.True(t, r.Ephemeral)
			assert.Contains(t, r.Description, "not whitelisted")

			_, ok := h.store.Style(guild)
			assert.False(t, ok)
			assert.Equal(t, domain.CreateChannels, h.store.Format(guild).Type)
			assert.Empty(t, h.platform.names)
		})
	}
}

func TestCommands_RefusedOutsideGuild(t *testing.T) {
	h := newHarness(t)
	dm := Invocation{UserID: adminID}

	for _, r := range []Reply{
		h.bot.SetStyle(context.Background(), dm, "~%", ""),
		h.bot.SetCreationType(context.Background(), dm, "roles"),
		h.bot.Create(context.Background(), dm, "a", ""),
		h.bot.WhitelistStatus(context.Background(), dm),
	} {
		assert.Equal(t, "Not allowed", r.Title)
		assert.Contains(t, r.Description, "only works inside a server")
	}
}

func TestCommands_RefusedAfterExpiry(t *testing.T) {
	h := newHarness(t)
	h.whitelist(t, 1)

	r := h.bot.SetStyle(context.Background(), member, "~%", "")
	require.Equal(t, "Style set", r.Title)

	h.clock.Advance(domain.Day)

	r = h.bot.SetStyle(context.Background(), member, "~ %", "")
	assert.Equal(t, "Not allowed", r.Title)

	template, _ := h.store.Style(guild)
	assert.Equal(t, "~%", template, "the refused command did not change the style")
}

// --- Style and type ---

func TestSetStyle(t *testing.T) {
	h := newHarness(t)
	h.whitelist(t, 30)

	r := h.bot.SetStyle(context.Background(), member, "~ chat %", "-")

	assert.Equal(t, "Style set", r.Title)
	assert.False(t, r.Ephemeral)
	assert.Equal(t, []string{"`~ chat %`", "`📁-chat-name`"}, fieldValues(r))

	template, ok := h.store.Style(guild)
	require.True(t, ok)
	assert.Equal(t, "~ chat %", template)
	assert.Equal(t, "-", h.store.Format(guild).Space)
}

func TestSetStyle_LongTemplateFitsEmbed(t *testing.T) {
	h := newHarness(t)
	h.whitelist(t, 30)

	template := strings.Repeat("~%", 700)
	r := h.bot.SetStyle(context.Background(), member, template, "")

	assert.Equal(t, "Style set", r.Title)
	embed := (*r.Response().Embeds)[0]
	require.Len(t, embed.Fields, 2)
	for _, f := range embed.Fields {
		assert.LessOrEqual(t, utf16Len(f.Value), maxFieldValue, f.Name)
	}

	stored, ok := h.store.Style(guild)
	require.True(t, ok)
	assert.Equal(t, template, stored)
}

func TestSetStyle_RejectsEmpty(t *testing.T) {
	h := newHarness(t)
	h.whitelist(t, 30)

	r := h.bot.SetStyle(context.Background(), member, "", "")
	assert.Equal(t, "Invalid input", r.Title)

	_, ok := h.store.Style(guild)
	assert.False(t, ok)
}

func TestSetCreationType(t *testing.T) {
	h := newHarness(t)
	h.whitelist(t, 30)

	r := h.bot.SetCreationType(context.Background(), member, "roles")
	assert.Equal(t, "Type chosen", r.Title)
	assert.Equal(t, "Chosen: roles", r.Description)
	assert.Equal(t, domain.CreateRoles, h.store.Format(guild).Type)

	r = h.bot.SetCreationType(context.Background(), member, "emojis")
	assert.Equal(t, "Invalid input", r.Title)
	assert.Equal(t, domain.CreateRoles, h.store.Format(guild).Type)
}

// --- Create ---

func TestCreate_RequiresStyle(t *testing.T) {
	h := newHarness(t)
	h.whitelist(t, 30)

	r := h.bot.Create(context.Background(), member, "a, b", "")

	assert.Equal(t, "Error", r.Title)
	assert.True(t, r.Ephemeral)
	assert.Contains(t, r.Description, "/zakrfa")
	assert.Empty(t, h.platform.names)
}

func TestCreate_Channels(t *testing.T) {
	h := newHarness(t)
	h.whitelist(t, 30)
	h.bot.SetStyle(context.Background(), member, "~│%", "")

	r := h.bot.Create(context.Background(), member, "general, memes", "🎮")

	assert.Equal(t, "Created channels", r.Title)
	assert.Equal(t, "Created 2 channels:", r.Description)
	assert.Equal(t, []string{"🎮│general", "🎮│memes"}, fieldValues(r))
	assert.Equal(t, "1.", r.Fields[0].Name)
	assert.Equal(t, "2.", r.Fields[1].Name)
	assert.Equal(t, []string{"channel", "channel"}, h.platform.kinds)
}

func TestCreate_RolesWithDefaultEmoji(t *testing.T) {
	h := newHarness(t)
	h.whitelist(t, 30)
	h.bot.SetStyle(context.Background(), member, "~ %", "_")
	h.bot.SetCreationType(context.Background(), member, "roles")

	r := h.bot.Create(context.Background(), member, "vip", "")

	assert.Equal(t, "Created 1 role:", r.Description)
	assert.Equal(t, []string{"📁_vip"}, fieldValues(r))
	assert.Equal(t, []string{"role"}, h.platform.kinds)
}

func TestCreate_FailureGivesGenericReply(t *testing.T) {
	h := newHarness(t)
	h.whitelist(t, 30)
	h.bot.SetStyle(context.Background(), member, "~%", "")
	h.platform.failAt = 2

	r := h.bot.Create(context.Background(), member, "a, b, c", "x")

	assert.Equal(t, "Error", r.Title)
	assert.True(t, r.Ephemeral)
	assert.Equal(t, "Something went wrong while creating the channels/roles.", r.Description)
	assert.Empty(t, r.Fields, "no partial list is reported")
	assert.Equal(t, []string{"xa", "xb"}, h.platform.names, "the first item was created and the third never attempted")
}

func TestCreate_NoNames(t *testing.T) {
	h := newHarness(t)
	h.whitelist(t, 30)
	h.bot.SetStyle(context.Background(), member, "~%", "")

	r := h.bot.Create(context.Background(), member, " , ,", "")
	assert.Equal(t, "Invalid input", r.Title)
	assert.Empty(t, h.platform.names)
}

// --- Whitelist ---

func TestGrantWhitelist_OwnerOnly(t *testing.T) {
	h := newHarness(t)

	r := h.bot.GrantWhitelist(context.Background(), member, "1001", "30")
	assert.Equal(t, "Not allowed", r.Title)
	assert.False(t, h.store.IsAuthorized(guild, h.clock.Now()))
}

func TestGrantWhitelist_NoOwnerConfigured(t *testing.T) {
	h := newHarness(t)
	h.bot.ownerID = 0

	r := h.bot.GrantWhitelist(context.Background(), Invocation{GuildID: guild}, "1001", "30")
	assert.Equal(t, "Not allowed", r.Title)
}

func TestGrantWhitelist_InvalidInput(t *testing.T) {
	tests := []struct {
		server string
		days   string
	}{
		{"1001", "abc"},
		{"1001", "0"},
		{"1001", "-5"},
		{"1001", "1.5"},
		{"1001", ""},
		{"not-an-id", "30"},
		{"", "30"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q/%q", tt.server, tt.days), func(t *testing.T) {
			h := newHarness(t)

			r := h.bot.GrantWhitelist(context.Background(), owner, tt.server, tt.days)
			assert.Equal(t, "Invalid input", r.Title)
			assert.True(t, r.Ephemeral)
			assert.Equal(t, domain.WhitelistAbsent, h.store.Status(guild, h.clock.Now()).State)
		})
	}
}

func TestGrantWhitelist(t *testing.T) {
	h := newHarness(t)

	r := h.bot.GrantWhitelist(context.Background(), owner, " 1001 ", " 30 ")
	require.Equal(t, "Server whitelisted", r.Title, r.Description)

	status := h.store.Status(guild, h.clock.Now())
	require.Equal(t, domain.WhitelistActive, status.State)
	assert.Equal(t, int64(1_700_000_000_000+2_592_000_000), status.Entry.ExpiresAt.UnixMilli())
	assert.Equal(t, ownerID, status.Entry.AddedBy)
	assert.Contains(t, fieldValues(r), "<t:1702592000:F>")
}

func TestGrantWhitelist_OtherServerFromDM(t *testing.T) {
	h := newHarness(t)

	r := h.bot.GrantWhitelist(context.Background(), Invocation{UserID: ownerID}, "2002", "7")
	require.Equal(t, "Server whitelisted", r.Title)
	assert.True(t, h.store.IsAuthorized(2002, h.clock.Now()))
	assert.False(t, h.store.IsAuthorized(guild, h.clock.Now()))
}

func TestWhitelistStatus(t *testing.T) {
	h := newHarness(t)

	r := h.bot.WhitelistStatus(context.Background(), member)
	assert.Equal(t, "Not whitelisted", r.Title)

	h.whitelist(t, 3)
	r = h.bot.WhitelistStatus(context.Background(), member)
	assert.Equal(t, "Whitelist active", r.Title)
	assert.Equal(t, "Expires in 3 days.", r.Description)

	h.clock.Advance(2*domain.Day + time.Hour)
	r = h.bot.WhitelistStatus(context.Background(), member)
	assert.Equal(t, "Expires in less than a day.", r.Description)

	h.clock.Advance(domain.Day)
	r = h.bot.WhitelistStatus(context.Background(), member)
	assert.Equal(t, "Whitelist expired", r.Title)

	r = h.bot.WhitelistStatus(context.Background(), member)
	assert.Equal(t, "Not whitelisted", r.Title, "the expired entry was removed on the previous read")
}
