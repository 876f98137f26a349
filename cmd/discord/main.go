// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/prefixbot/internal/bot"
	"github.com/keshon/prefixbot/internal/commands"
	"github.com/keshon/prefixbot/internal/config"
	"github.com/keshon/prefixbot/internal/discord"
	"github.com/keshon/prefixbot/pkg/log"
	"github.com/keshon/prefixbot/pkg/services"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		// no logger yet
		l := log.New(os.Stderr, false)
		l.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, flush := log.NewContextWithLogger(ctx, cfg.Debug)
	defer flush()
	logger := *log.FromCtx(ctx)

	logger.Info().Strs("prefixes", cfg.CommandPrefixes).Bool("mention", cfg.MentionPrefix).Msg("Starting bot")

	st, err := bot.OpenStorage(cfg.StoragePath, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open storage")
		return
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create Discord session")
		return
	}
	lookup := discord.NewSessionLookup(session, logger)

	pipeline, err := bot.New(cfg, st, bot.Options{
		Commands: commands.Options{
			Permissions: discord.PermissionSource{Lookup: lookup},
			DeveloperID: cfg.DeveloperID,
		},
		Converters: discord.ConverterTypes(),
		Provide: func(c *services.Container) {
			services.Provide[discord.Lookup](c, lookup)
			services.Provide[commands.Heartbeat](c, session)
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build command pipeline")
		return
	}

	responder := discord.Responder{Session: session}
	prefix := discord.NewPrefixResolver(st, cfg.CommandPrefixes, cfg.MentionPrefix, discord.SelfID(session), logger)
	dispatcher := pipeline.Dispatcher(prefix, responder)
	discord.NewReporter(responder, logger).Attach(dispatcher)

	errCh := make(chan error, 1)
	go func() {
		errCh <- discord.New(session, cfg, dispatcher, lookup, logger).Run(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Received shutdown signal")
		if err := <-errCh; err != nil {
			logger.Error().Err(err).Msg("Discord bot stopped with error")
		}
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("Discord bot error")
		}
	}

	logger.Info().Msg("Discord bot exited cleanly")
}
