package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"

	"libdb.so/zakrfa/internal/domain"
)

const (
	colorSuccess discord.Color = 0x00FF00
	colorInfo    discord.Color = 0x0099FF
	colorError   discord.Color = 0xFF0000
)

// Discord's embed limits. Lengths are counted in UTF-16 code units.
const (
	maxEmbedFields      = 25
	maxEmbedTitle       = 256
	maxEmbedDescription = 4096
	maxFieldName        = 256
	maxFieldValue       = 1024
)

// Reply is a command's response before it is turned into an embed.
type Reply struct {
	Title       string
	Description string
	Color       discord.Color
	Fields      []discord.EmbedField
	Ephemeral   bool
	Timestamp   time.Time
}

// Response builds the interaction response for r.
func (r Reply) Response() *api.InteractionResponseData {
	fields := make([]discord.EmbedField, len(r.Fields))
	for i, f := range r.Fields {
		f.Name = truncate(f.Name, maxFieldName)
		f.Value = truncate(f.Value, maxFieldValue)
		fields[i] = f
	}

	embed := discord.Embed{
		Title:       truncate(r.Title, maxEmbedTitle),
		Description: truncate(r.Description, maxEmbedDescription),
		Color:       r.Color,
		Fields:      fields,
	}
	if !r.Timestamp.IsZero() {
		embed.Timestamp = discord.NewTimestamp(r.Timestamp)
	}

	data := &api.InteractionResponseData{
		Embeds: &[]discord.Embed{embed},
	}
	if r.Ephemeral {
		data.Flags = discord.EphemeralMessage
	}
	return data
}

// numberedFields lists items as "1.", "2.", ... inline fields. Items past the
// embed field limit are summarized in the last field.
func numberedFields(items []string) []discord.EmbedField {
	shown := items
	if len(items) > maxEmbedFields {
		shown = items[:maxEmbedFields-1]
	}

	fields := make([]discord.EmbedField, 0, min(len(items), maxEmbedFields))
	for i, item := range shown {
		fields = append(fields, discord.EmbedField{
			Name:   fmt.Sprintf("%d.", i+1),
			Value:  item,
			Inline: true,
		})
	}

	if rest := len(items) - len(shown); rest > 0 {
		fields = append(fields, discord.EmbedField{
			Name:   "…",
			Value:  fmt.Sprintf("and %d more", rest),
			Inline: true,
		})
	}
	return fields
}

func entryFields(e domain.WhitelistEntry) []discord.EmbedField {
	fields := []discord.EmbedField{
		{Name: "Server", Value: e.GuildID.String(), Inline: true},
		{Name: "Duration", Value: fmt.Sprintf("%d days", e.DurationDays), Inline: true},
		{Name: "Expires", Value: discordTime(e.ExpiresAt), Inline: true},
	}
	if e.AddedBy.IsValid() {
		fields = append(fields, discord.EmbedField{Name: "Added by", Value: e.AddedBy.Mention(), Inline: true})
	}
	return fields
}

// discordTime renders t with Discord's timestamp markup so every client shows
// it in its own timezone.
func discordTime(t time.Time) string {
	return fmt.Sprintf("<t:%d:F>", t.Unix())
}

// codeSpan wraps s in backticks, shortening it so the span fits in a field
// value.
func codeSpan(s string) string {
	if s == "" {
		return "(empty)"
	}
	s = strings.ReplaceAll(s, "`", "ˋ")
	return "`" + truncate(s, maxFieldValue-2) + "`"
}

// truncate shortens s to at most limit UTF-16 code units, ending it with an
// ellipsis when anything was cut.
func truncate(s string, limit int) string {
	if utf16Len(s) <= limit {
		return s
	}

	const ellipsis = "…"
	n := 0
	for i, r := range s {
		n += utf16Units(r)
		if n > limit-utf16Len(ellipsis) {
			return s[:i] + ellipsis
		}
	}
	return s
}

// utf16Units is the number of UTF-16 code units r encodes to.
func utf16Units(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Units(r)
	}
	return n
}

func typeLabel(t domain.CreationType) string {
	if t == domain.CreateRoles {
		return "roles"
	}
	return "channels"
}

func itemLabel(t domain.CreationType, n int) string {
	label := "channel"
	if t == domain.CreateRoles {
		label = "role"
	}
	if n != 1 {
		label += "s"
	}
	return label
}
