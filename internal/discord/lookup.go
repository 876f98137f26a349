package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/prefixbot/pkg/retrylimit"
)

// Lookup is the read side of the Discord API used by converters, the message
// adapter and the permission check. Implementations return ErrUnknown when
// the object does not exist.
type Lookup interface {
	User(ctx context.Context, userID string) (*discordgo.User, error)
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	Role(ctx context.Context, guildID, roleID string) (*discordgo.Role, error)
	Message(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	// Guild returns the cached guild, with members, roles and channels as far
	// as the gateway delivered them.
	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	Permissions(ctx context.Context, userID, channelID string) (int64, error)
}

// ErrUnknown marks lookups of objects Discord does not know.
var ErrUnknown = errors.New("unknown discord object")

// SessionLookup answers from the session state first and falls back to
// rate-limited REST calls.
type SessionLookup struct {
	s   *discordgo.Session
	lim *retrylimit.AdaptiveLimiter
	cfg retrylimit.RetryConfig
}

func NewSessionLookup(s *discordgo.Session, logger zerolog.Logger) *SessionLookup {
	cfg := retrylimit.DefaultRetryConfig()
	cfg.Logger = logger
	return &SessionLookup{
		s:   s,
		lim: retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		cfg: cfg,
	}
}

func fetch[T any](ctx context.Context, l *SessionLookup, what string, fn func() (T, error)) (T, error) {
	v, err := retrylimit.Do(ctx, l.lim, l.cfg, fn)
	if err != nil {
		code := retrylimit.StatusCode(err)
		if code == http.StatusNotFound || code == http.StatusBadRequest {
			return v, fmt.Errorf("%s: %w", what, ErrUnknown)
		}
		return v, fmt.Errorf("fetch %s: %w", what, err)
	}
	return v, nil
}

func (l *SessionLookup) User(ctx context.Context, userID string) (*discordgo.User, error) {
	if m := l.cachedUser(userID); m != nil {
		return m, nil
	}
	return fetch(ctx, l, "user "+userID, func() (*discordgo.User, error) { return l.s.User(userID) })
}

// cachedUser finds the user among cached guild members.
func (l *SessionLookup) cachedUser(userID string) *discordgo.User {
	if l.s.State == nil {
		return nil
	}
	l.s.State.RLock()
	defer l.s.State.RUnlock()
	for _, g := range l.s.State.Guilds {
		for _, m := range g.Members {
			if m.User != nil && m.User.ID == userID {
				return m.User
			}
		}
	}
	return nil
}

func (l *SessionLookup) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if l.s.State != nil {
		if m, err := l.s.State.Member(guildID, userID); err == nil {
			return m, nil
		}
	}
	return fetch(ctx, l, "member "+userID, func() (*discordgo.Member, error) { return l.s.GuildMember(guildID, userID) })
}

func (l *SessionLookup) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if l.s.State != nil {
		if c, err := l.s.State.Channel(channelID); err == nil {
			return c, nil
		}
	}
	return fetch(ctx, l, "channel "+channelID, func() (*discordgo.Channel, error) { return l.s.Channel(channelID) })
}

func (l *SessionLookup) Role(ctx context.Context, guildID, roleID string) (*discordgo.Role, error) {
	if l.s.State != nil {
		if r, err := l.s.State.Role(guildID, roleID); err == nil {
			return r, nil
		}
	}
	roles, err := fetch(ctx, l, "roles of "+guildID, func() ([]*discordgo.Role, error) { return l.s.GuildRoles(guildID) })
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.ID == roleID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("role %s: %w", roleID, ErrUnknown)
}

func (l *SessionLookup) Message(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	if l.s.State != nil {
		if m, err := l.s.State.Message(channelID, messageID); err == nil {
			return m, nil
		}
	}
	return fetch(ctx, l, "message "+messageID, func() (*discordgo.Message, error) { return l.s.ChannelMessage(channelID, messageID) })
}

func (l *SessionLookup) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if l.s.State != nil {
		if g, err := l.s.State.Guild(guildID); err == nil {
			return g, nil
		}
	}
	return fetch(ctx, l, "guild "+guildID, func() (*discordgo.Guild, error) { return l.s.Guild(guildID) })
}

func (l *SessionLookup) Permissions(ctx context.Context, userID, channelID string) (int64, error) {
	if l.s.State != nil {
		if p, err := l.s.State.UserChannelPermissions(userID, channelID); err == nil {
			return p, nil
		}
	}
	return fetch(ctx, l, "permissions of "+userID, func() (int64, error) { return l.s.UserChannelPermissions(userID, channelID) })
}
