package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/prefixbot/internal/config"
	"github.com/keshon/prefixbot/pkg/cmd"
)

// Bot feeds gateway messages to a dispatcher.
type Bot struct {
	dg         *discordgo.Session
	cfg        *config.Config
	dispatcher *cmd.Dispatcher
	lookup     Lookup
	log        zerolog.Logger
	ctx        context.Context
}

// NewSession creates an unopened session with the intents text commands need.
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent
	dg.State.TrackMembers = true
	return dg, nil
}

// SelfID returns the bot user's ID once the session is ready.
func SelfID(s *discordgo.Session) func() string {
	return func() string {
		if s.State == nil || s.State.User == nil {
			return ""
		}
		return s.State.User.ID
	}
}

func New(dg *discordgo.Session, cfg *config.Config, dispatcher *cmd.Dispatcher, lookup Lookup, logger zerolog.Logger) *Bot {
	return &Bot{
		dg:         dg,
		cfg:        cfg,
		dispatcher: dispatcher,
		lookup:     lookup,
		log:        logger,
		ctx:        context.Background(),
	}
}

// Run opens the session and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = b.log.WithContext(ctx)

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onMessageCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	<-ctx.Done()
	b.log.Info().Msg("Shutdown signal received, cleaning up")
	err := b.dg.Close()
	b.dispatcher.Wait()
	return err
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}

	msg := AdaptMessage(b.lookup, m.Message, b.log)
	state := b.dispatcher.Dispatch(b.ctx, msg)
	if state > cmd.StatePrefixNotMatched {
		b.log.Debug().Str("message", m.ID).Str("guild", m.GuildID).Stringer("state", state).Msg("Message dispatched")
	}
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		b.leaveIfBlacklisted(s, g.ID, g.Name)
	}
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Discord bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if b.leaveIfBlacklisted(s, g.ID, g.Name) {
		return
	}
	b.log.Debug().Str("guild", g.ID).Str("name", g.Name).Msg("Guild available")
}

func (b *Bot) leaveIfBlacklisted(s *discordgo.Session, guildID, name string) bool {
	if !b.cfg.IsGuildBlacklisted(guildID) {
		return false
	}
	b.log.Info().Str("guild", guildID).Str("name", name).Msg("Leaving blacklisted guild")
	if err := s.GuildLeave(guildID); err != nil {
		b.log.Error().Err(err).Str("guild", guildID).Msg("Failed to leave guild")
	}
	return true
}
