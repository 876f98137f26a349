package cmd

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/prefixbot/pkg/observer"
)

// State is where the handling of one message ended.
type State int

const (
	StateFilteredOut State = iota
	StatePrefixNotMatched
	StateCommandNotFound
	StateNotExecutable
	StateParseFailed
	StateExecuted
)

func (s State) String() string {
	switch s {
	case StateFilteredOut:
		return "filtered out"
	case StatePrefixNotMatched:
		return "prefix not matched"
	case StateCommandNotFound:
		return "command not found"
	case StateNotExecutable:
		return "command not executable"
	case StateParseFailed:
		return "parse failed"
	case StateExecuted:
		return "executed"
	}
	return "unknown"
}

// PrefixResolver returns how many bytes of msg.Content the prefix takes, or a
// negative number to ignore the message.
type PrefixResolver func(ctx context.Context, msg *Message) int

// StaticPrefix matches any of the given prefixes, longest first.
func StaticPrefix(prefixes ...string) PrefixResolver {
	return func(_ context.Context, msg *Message) int {
		best := -1
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(msg.Content, p) && len(p) > best {
				best = len(p)
			}
		}
		return best
	}
}

// Executor runs a fully parsed command.
type Executor interface {
	Execute(ctx context.Context, c *Context) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, c *Context) error

func (f ExecutorFunc) Execute(ctx context.Context, c *Context) error { return f(ctx, c) }

// HandlerExecutor runs the command's middleware-wrapped handler and turns a
// panic into an error.
type HandlerExecutor struct{}

func (HandlerExecutor) Execute(ctx context.Context, c *Context) error {
	return Recover()(c.Command.Run)(ctx, c)
}

// ErrorEvent is published when a message addressed a command that could not
// run. Arguments is nil when resolution failed; Command is nil when no command
// matched.
type ErrorEvent struct {
	Message   *Message
	Prefix    string
	Command   *Command
	Arguments *Arguments
	Context   *Context
	Err       error
}

// ExecutedEvent is published after a command ran, successfully or not.
type ExecutedEvent struct {
	Context  *Context
	Err      error
	Duration time.Duration
}

// Dispatcher turns inbound messages into command executions.
type Dispatcher struct {
	registry   *Registry
	converters *ConverterRegistry
	prefix     PrefixResolver

	scopes    ScopeFactory
	executor  Executor
	responder Responder

	ignoreBots   bool
	debugGuildID string

	log      zerolog.Logger
	errors   *observer.Observer[ErrorEvent]
	executed *observer.Observer[ExecutedEvent]
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*dispatcherOptions)

type dispatcherOptions struct {
	scopes       ScopeFactory
	executor     Executor
	responder    Responder
	ignoreBots   bool
	debugGuildID string
	logger       zerolog.Logger
	syncEvents   bool
}

// WithScopes opens a service scope per dispatched command.
func WithScopes(f ScopeFactory) DispatcherOption {
	return func(o *dispatcherOptions) { o.scopes = f }
}

// WithExecutor replaces HandlerExecutor.
func WithExecutor(e Executor) DispatcherOption {
	return func(o *dispatcherOptions) { o.executor = e }
}

// WithResponder sets the Responder handed to commands.
func WithResponder(r Responder) DispatcherOption {
	return func(o *dispatcherOptions) { o.responder = r }
}

// WithIgnoreBots drops messages written by bots.
func WithIgnoreBots(ignore bool) DispatcherOption {
	return func(o *dispatcherOptions) { o.ignoreBots = ignore }
}

// WithDebugGuild drops messages from every other guild.
func WithDebugGuild(guildID string) DispatcherOption {
	return func(o *dispatcherOptions) { o.debugGuildID = guildID }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(l zerolog.Logger) DispatcherOption {
	return func(o *dispatcherOptions) { o.logger = l }
}

// WithSyncEvents delivers events before Dispatch returns.
func WithSyncEvents() DispatcherOption {
	return func(o *dispatcherOptions) { o.syncEvents = true }
}

// NewDispatcher wires a dispatcher over registry and converters.
func NewDispatcher(registry *Registry, converters *ConverterRegistry, prefix PrefixResolver, opts ...DispatcherOption) *Dispatcher {
	o := dispatcherOptions{
		executor: HandlerExecutor{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	var obsOpts []observer.Option
	if o.syncEvents {
		obsOpts = append(obsOpts, observer.Synchronous())
	}

	return &Dispatcher{
		registry:     registry,
		converters:   converters,
		prefix:       prefix,
		scopes:       o.scopes,
		executor:     o.executor,
		responder:    o.responder,
		ignoreBots:   o.ignoreBots,
		debugGuildID: o.debugGuildID,
		log:          o.logger,
		errors:       observer.New[ErrorEvent](obsOpts...),
		executed:     observer.New[ExecutedEvent](obsOpts...),
	}
}

// OnError subscribes to resolution and parse failures. Listeners must not use
// the Context's Services: the scope is closed once Dispatch returns.
func (d *Dispatcher) OnError(fn func(ErrorEvent)) string {
	return d.errors.Register(fn)
}

// OnExecuted subscribes to finished executions.
func (d *Dispatcher) OnExecuted(fn func(ExecutedEvent)) string {
	return d.executed.Register(fn)
}

// Off removes a subscription made with OnError or OnExecuted.
func (d *Dispatcher) Off(id string) {
	d.errors.Deregister(id)
	d.executed.Deregister(id)
}

// Wait blocks until event listeners started so far have returned.
func (d *Dispatcher) Wait() {
	d.errors.Wait()
	d.executed.Wait()
}

// Dispatch handles one inbound message and reports where it stopped.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *Message) State {
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return StateFilteredOut
	}
	if d.ignoreBots && msg.Author.Bot {
		return StateFilteredOut
	}
	if d.debugGuildID != "" && msg.GuildID != d.debugGuildID {
		return StateFilteredOut
	}

	n := d.prefix(ctx, msg)
	if n < 0 || n > len(msg.Content) {
		return StatePrefixNotMatched
	}
	if msg.Reply == nil && msg.LoadReply != nil {
		msg.Reply = msg.LoadReply(ctx)
		msg.LoadReply = nil
	}

	var services ServiceResolver
	if d.scopes != nil {
		scope := d.scopes.NewScope()
		defer func() {
			if err := scope.Close(); err != nil {
				d.log.Warn().Err(err).Str("message", msg.ID).Msg("Failed to close service scope")
			}
		}()
		services = scope
	}

	text := msg.Content[n:]
	res, err := d.registry.Resolve(text, msg.GuildID)
	if err != nil {
		state := StateCommandNotFound
		if errors.Is(err, ErrNotExecutable) {
			state = StateNotExecutable
		}
		d.log.Debug().Err(err).Str("guild", msg.GuildID).Str("user", msg.Author.ID).Msg("Command not resolved")
		d.errors.Notify(ErrorEvent{Message: msg, Prefix: msg.Content[:n], Command: res.Command, Err: err})
		return state
	}

	primary := text[res.Consumed:]
	cc := NewConversionContext(res.Command, msg, primary, services)
	args := Parse(ctx, cc, d.converters)

	c := &Context{
		Command:      res.Command,
		Arguments:    args,
		Message:      msg,
		Prefix:       msg.Content[:n],
		Path:         res.Path,
		RawArguments: strings.TrimSpace(primary),
		Registry:     d.registry,
		Services:     services,
		Responder:    d.responder,
	}

	if failure := args.Failure(); failure != nil {
		d.log.Debug().Err(failure).Str("command", res.Command.QualifiedName()).Msg("Arguments not parsed")
		d.errors.Notify(ErrorEvent{
			Message:   msg,
			Prefix:    c.Prefix,
			Command:   res.Command,
			Arguments: args,
			Context:   c,
			Err:       failure,
		})
		return StateParseFailed
	}

	start := time.Now()
	err = d.executor.Execute(ctx, c)
	var pe *PanicError
	if errors.As(err, &pe) {
		d.log.Error().
			Interface("panic", pe.Value).
			Str("command", res.Command.QualifiedName()).
			Str("stack", string(pe.Stack)).
			Msg("Command panicked")
	}
	d.executed.Notify(ExecutedEvent{Context: c, Err: err, Duration: time.Since(start)})
	return StateExecuted
}
