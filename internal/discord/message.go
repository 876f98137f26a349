package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/prefixbot/pkg/cmd"
)

// NewMessage converts a gateway message, including an inlined referenced
// message, into the dispatcher's view of it.
func NewMessage(m *discordgo.Message) *cmd.Message {
	if m == nil {
		return nil
	}
	msg := &cmd.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   m.Content,
		Raw:       m,
	}
	if m.Author != nil {
		msg.Author = cmd.User{ID: m.Author.ID, Username: m.Author.Username, Bot: m.Author.Bot}
	}
	if m.ReferencedMessage != nil {
		msg.Reply = NewMessage(m.ReferencedMessage)
		if msg.Reply.GuildID == "" {
			msg.Reply.GuildID = m.GuildID
		}
	}
	return msg
}

// AdaptMessage is NewMessage that can also fetch a replied-to message the
// gateway did not inline. The fetch is deferred to Message.LoadReply, so only
// messages addressed to the bot pay for it. A failed fetch leaves Reply nil.
func AdaptMessage(lookup Lookup, m *discordgo.Message, logger zerolog.Logger) *cmd.Message {
	msg := NewMessage(m)
	if msg == nil || msg.Reply != nil || m.MessageReference == nil || m.MessageReference.MessageID == "" {
		return msg
	}

	channelID := m.MessageReference.ChannelID
	if channelID == "" {
		channelID = m.ChannelID
	}
	refID := m.MessageReference.MessageID
	msg.LoadReply = func(ctx context.Context) *cmd.Message {
		ref, err := lookup.Message(ctx, channelID, refID)
		if err != nil {
			logger.Warn().Err(err).Str("message", m.ID).Str("reference", refID).Msg("Failed to fetch referenced message")
			return nil
		}
		if ref == nil {
			return nil
		}
		reply := NewMessage(ref)
		if reply.GuildID == "" {
			reply.GuildID = m.GuildID
		}
		return reply
	}
	return msg
}
