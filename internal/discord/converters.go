package discord

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/prefixbot/pkg/cmd"
)

var (
	userMention    = regexp.MustCompile(`^<@!?(\d{15,21})>$`)
	channelMention = regexp.MustCompile(`^<#(\d{15,21})>$`)
	roleMention    = regexp.MustCompile(`^<@&(\d{15,21})>$`)
	snowflake      = regexp.MustCompile(`^\d{15,21}$`)
	messageLink    = regexp.MustCompile(`^https?://(?:(?:ptb|canary)\.)?discord(?:app)?\.com/channels/(\d+|@me)/(\d+)/(\d+)/?$`)
	messagePair    = regexp.MustCompile(`^(\d{15,21})-(\d{15,21})$`)
)

// ConverterTypes lists the Discord converters for RegisterCandidates.
func ConverterTypes() []reflect.Type {
	return []reflect.Type{
		reflect.TypeFor[UserConverter](),
		reflect.TypeFor[MemberConverter](),
		reflect.TypeFor[ChannelConverter](),
		reflect.TypeFor[RoleConverter](),
		reflect.TypeFor[MessageConverter](),
	}
}

// mentionID extracts the snowflake from a mention matching re, or a bare ID.
func mentionID(re *regexp.Regexp, raw string) (string, bool) {
	if m := re.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if snowflake.MatchString(raw) {
		return raw, true
	}
	return "", false
}

// found turns ErrUnknown into a non-match.
func found[T any](v T, err error) (T, bool, error) {
	var zero T
	if errors.Is(err, ErrUnknown) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func guildOf(ctx context.Context, l Lookup, cc *cmd.ConversionContext) *discordgo.Guild {
	msg := cc.Message()
	if msg == nil || msg.GuildID == "" {
		return nil
	}
	g, err := l.Guild(ctx, msg.GuildID)
	if err != nil {
		return nil
	}
	return g
}

func memberMatches(m *discordgo.Member, name string) bool {
	if m == nil || m.User == nil {
		return false
	}
	return strings.EqualFold(m.Nick, name) ||
		strings.EqualFold(m.User.Username, name) ||
		strings.EqualFold(m.User.GlobalName, name)
}

// UserConverter accepts user mentions, IDs, and member names of the current
// guild.
type UserConverter struct {
	cmd.ConverterOf[*discordgo.User]
	Lookup Lookup `service:""`
}

func (c *UserConverter) Convert(ctx context.Context, cc *cmd.ConversionContext) (*discordgo.User, bool, error) {
	raw := strings.TrimSpace(cc.Argument())
	if id, ok := mentionID(userMention, raw); ok {
		v, err := c.Lookup.User(ctx, id)
		return found(v, err)
	}
	if g := guildOf(ctx, c.Lookup, cc); g != nil {
		name := strings.TrimPrefix(raw, "@")
		for _, m := range g.Members {
			if memberMatches(m, name) {
				return m.User, true, nil
			}
		}
	}
	return nil, false, nil
}

// MemberConverter is UserConverter restricted to members of the current guild.
type MemberConverter struct {
	cmd.ConverterOf[*discordgo.Member]
	Lookup Lookup `service:""`
}

func (c *MemberConverter) Convert(ctx context.Context, cc *cmd.ConversionContext) (*discordgo.Member, bool, error) {
	msg := cc.Message()
	if msg == nil || msg.GuildID == "" {
		return nil, false, nil
	}
	raw := strings.TrimSpace(cc.Argument())
	if id, ok := mentionID(userMention, raw); ok {
		v, err := c.Lookup.Member(ctx, msg.GuildID, id)
		return found(v, err)
	}
	if g := guildOf(ctx, c.Lookup, cc); g != nil {
		name := strings.TrimPrefix(raw, "@")
		for _, m := range g.Members {
			if memberMatches(m, name) {
				return m, true, nil
			}
		}
	}
	return nil, false, nil
}

// ChannelConverter accepts channel mentions, IDs and channel names.
type ChannelConverter struct {
	cmd.ConverterOf[*discordgo.Channel]
	Lookup Lookup `service:""`
}

func (c *ChannelConverter) Convert(ctx context.Context, cc *cmd.ConversionContext) (*discordgo.Channel, bool, error) {
	raw := strings.TrimSpace(cc.Argument())
	if id, ok := mentionID(channelMention, raw); ok {
		v, err := c.Lookup.Channel(ctx, id)
		return found(v, err)
	}
	if g := guildOf(ctx, c.Lookup, cc); g != nil {
		name := strings.TrimPrefix(raw, "#")
		for _, ch := range g.Channels {
			if strings.EqualFold(ch.Name, name) {
				return ch, true, nil
			}
		}
	}
	return nil, false, nil
}

// RoleConverter accepts role mentions, IDs and role names.
type RoleConverter struct {
	cmd.ConverterOf[*discordgo.Role]
	Lookup Lookup `service:""`
}

func (c *RoleConverter) Convert(ctx context.Context, cc *cmd.ConversionContext) (*discordgo.Role, bool, error) {
	msg := cc.Message()
	if msg == nil || msg.GuildID == "" {
		return nil, false, nil
	}
	raw := strings.TrimSpace(cc.Argument())
	if id, ok := mentionID(roleMention, raw); ok {
		v, err := c.Lookup.Role(ctx, msg.GuildID, id)
		return found(v, err)
	}
	if g := guildOf(ctx, c.Lookup, cc); g != nil {
		name := strings.TrimPrefix(raw, "@")
		for _, r := range g.Roles {
			if strings.EqualFold(r.Name, name) {
				return r, true, nil
			}
		}
	}
	return nil, false, nil
}

// MessageConverter accepts message links, "channelID-messageID" pairs and
// message IDs in the invoking channel.
type MessageConverter struct {
	cmd.ConverterOf[*discordgo.Message]
	Lookup Lookup `service:""`
}

func (c *MessageConverter) Convert(ctx context.Context, cc *cmd.ConversionContext) (*discordgo.Message, bool, error) {
	raw := strings.TrimSpace(cc.Argument())
	var channelID, messageID string
	switch {
	case messageLink.MatchString(raw):
		m := messageLink.FindStringSubmatch(raw)
		channelID, messageID = m[2], m[3]
	case messagePair.MatchString(raw):
		m := messagePair.FindStringSubmatch(raw)
		channelID, messageID = m[1], m[2]
	case snowflake.MatchString(raw) && cc.Message() != nil:
		channelID, messageID = cc.Message().ChannelID, raw
	default:
		return nil, false, nil
	}
	v, err := c.Lookup.Message(ctx, channelID, messageID)
	return found(v, err)
}
