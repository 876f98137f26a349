// Package bot assembles the command pipeline shared by the Discord binary,
// the console harness and the README generator.
package bot

import (
	"fmt"
	"path/filepath"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/keshon/prefixbot/datastore"
	"github.com/keshon/prefixbot/internal/commands"
	"github.com/keshon/prefixbot/internal/config"
	"github.com/keshon/prefixbot/internal/middleware"
	"github.com/keshon/prefixbot/internal/storage"
	"github.com/keshon/prefixbot/pkg/cmd"
	"github.com/keshon/prefixbot/pkg/cmd/converters"
	"github.com/keshon/prefixbot/pkg/services"
)

// Options tune New beyond what Config carries.
type Options struct {
	Commands commands.Options
	// Converters are extra converter candidates, the Discord ones for the
	// gateway binary.
	Converters []reflect.Type
	// Provide registers extra services before any converter is built.
	Provide func(c *services.Container)
	Logger  zerolog.Logger
}

// Pipeline is a ready command tree with its converters, services and storage.
type Pipeline struct {
	Config     *config.Config
	Storage    *storage.Storage
	Services   *services.Container
	Registry   *cmd.Registry
	Converters *cmd.ConverterRegistry

	log zerolog.Logger
}

// OpenStorage opens the JSON datastore at path.
func OpenStorage(path string, logger zerolog.Logger) (*storage.Storage, error) {
	dsCfg := datastore.DefaultConfig(filepath.Clean(path))
	dsCfg.Logger = logger.With().Str("component", "datastore").Logger()
	ds, err := datastore.NewWithConfig(dsCfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return storage.New(ds), nil
}

// New builds the pipeline over st. The caller keeps ownership of st.
func New(cfg *config.Config, st *storage.Storage, opts Options) (*Pipeline, error) {
	logger := opts.Logger

	c := services.New(logger)
	services.Provide(c, st)
	services.Provide(c, cfg)
	if opts.Provide != nil {
		opts.Provide(c)
	}

	regOpts := []cmd.RegistryOption{
		cmd.WithMiddlewares(
			middleware.WithGroupAccessCheck(st),
			middleware.WithCommandLogger(st, logger),
		),
	}
	if cfg.CaseSensitiveCommands {
		regOpts = append(regOpts, cmd.WithCaseSensitive())
	}
	registry := cmd.NewRegistry(regOpts...)

	conv := cmd.NewConverterRegistry(c, logger)
	converters.RegisterDefaults(conv)
	if n := conv.RegisterCandidates(opts.Converters...); n < len(opts.Converters) {
		logger.Warn().Int("registered", n).Int("offered", len(opts.Converters)).Msg("Some converters were not registered")
	}
	if err := commands.Register(registry, conv, opts.Commands); err != nil {
		return nil, err
	}

	logger.Debug().Int("commands", len(registry.GetAll())).Int("converters", conv.Len()).Msg("Command pipeline ready")

	return &Pipeline{
		Config:     cfg,
		Storage:    st,
		Services:   c,
		Registry:   registry,
		Converters: conv,
		log:        logger,
	}, nil
}

// Dispatcher returns a dispatcher over the pipeline. The config's bot filter
// and debug guild apply; extra options come last.
func (p *Pipeline) Dispatcher(prefix cmd.PrefixResolver, responder cmd.Responder, extra ...cmd.DispatcherOption) *cmd.Dispatcher {
	opts := []cmd.DispatcherOption{
		cmd.WithScopes(p.Services),
		cmd.WithResponder(responder),
		cmd.WithIgnoreBots(p.Config.IgnoreBots),
		cmd.WithDebugGuild(p.Config.DebugGuildID),
		cmd.WithLogger(p.log.With().Str("component", "dispatcher").Logger()),
	}
	return cmd.NewDispatcher(p.Registry, p.Converters, prefix, append(opts, extra...)...)
}
