package discord

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/prefixbot/pkg/cmd"
)

const messageLimit = 2000

// Responder replies in the invoking channel. Long content is split; only the
// first part references the invoking message.
type Responder struct {
	Session *discordgo.Session
}

func (r Responder) Reply(ctx context.Context, msg *cmd.Message, content string) error {
	for i, part := range splitMessage(content, messageLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		send := &discordgo.MessageSend{
			Content:         part,
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		}
		if i == 0 && msg.ID != "" {
			send.Reference = &discordgo.MessageReference{
				MessageID: msg.ID,
				ChannelID: msg.ChannelID,
				GuildID:   msg.GuildID,
			}
		}
		if _, err := r.Session.ChannelMessageSendComplex(msg.ChannelID, send); err != nil {
			return err
		}
	}
	return nil
}

// splitMessage cuts content into parts of at most limit bytes, preferring
// line breaks and never splitting a rune.
func splitMessage(content string, limit int) []string {
	if content == "" {
		return nil
	}
	var parts []string
	for len(content) > limit {
		cut := strings.LastIndexByte(content[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
		}
		parts = append(parts, content[:cut])
		content = strings.TrimPrefix(content[cut:], "\n")
	}
	if content != "" {
		parts = append(parts, content)
	}
	return parts
}
