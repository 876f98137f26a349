package cmd_test

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/prefixbot/pkg/cmd"
	"github.com/keshon/prefixbot/pkg/cmd/converters"
)

type trackingScopes struct {
	opened atomic.Int32
	closed atomic.Int32
}

func (s *trackingScopes) GetOrCreate(t reflect.Type) (any, error) { return cmd.Construct(t) }

func (s *trackingScopes) NewScope() cmd.Scope {
	s.opened.Add(1)
	return &trackingScope{parent: s}
}

type trackingScope struct{ parent *trackingScopes }

func (s *trackingScope) GetOrCreate(t reflect.Type) (any, error) { return cmd.Construct(t) }

func (s *trackingScope) Close() error {
	s.parent.closed.Add(1)
	return nil
}

type recorded struct {
	ran      []string
	args     map[string]any
	errors   []cmd.ErrorEvent
	executed []cmd.ExecutedEvent
}

type fixture struct {
	d      *cmd.Dispatcher
	scopes *trackingScopes
	rec    *recorded
}

func newFixture(t *testing.T, opts ...cmd.DispatcherOption) *fixture {
	t.Helper()
	rec := &recorded{args: map[string]any{}}

	record := func(names ...string) cmd.Handler {
		return func(_ context.Context, c *cmd.Context) error {
			rec.ran = append(rec.ran, c.Command.QualifiedName())
			for _, n := range names {
				if r, ok := c.Arguments.Lookup(n); ok {
					rec.args[n] = r.Value
				}
			}
			return nil
		}
	}

	r := cmd.NewRegistry()
	require.NoError(t, r.Register(&cmd.Command{
		Name:       "echo",
		Parameters: []*cmd.Parameter{cmd.Param[string]("text")},
		Handler:    record("text"),
		Subcommands: []*cmd.Command{{
			Name:       "loud",
			Aliases:    []string{"LOUD"},
			Parameters: []*cmd.Parameter{cmd.Param[string]("text")},
			Handler:    record("text"),
		}},
	}))
	require.NoError(t, r.Register(&cmd.Command{
		Name: "config",
		Subcommands: []*cmd.Command{
			{Name: "get", Default: true, Handler: record()},
			{Name: "set", Parameters: []*cmd.Parameter{cmd.Param[string]("value")}, Handler: record("value")},
		},
	}))
	require.NoError(t, r.Register(&cmd.Command{
		Name:        "group",
		Subcommands: []*cmd.Command{{Name: "only", Handler: record()}},
	}))
	require.NoError(t, r.Register(&cmd.Command{
		Name:       "quote",
		Parameters: []*cmd.Parameter{cmd.Param[int]("n", cmd.FromReply())},
		Handler:    record("n"),
	}))
	require.NoError(t, r.Register(&cmd.Command{
		Name:       "sum",
		Parameters: []*cmd.Parameter{cmd.Param[[]int]("n", cmd.Variadic(2, cmd.Unbounded))},
		Handler:    record("n"),
	}))
	require.NoError(t, r.Register(&cmd.Command{
		Name: "fail",
		Handler: func(context.Context, *cmd.Context) error {
			return errors.New("handler failed")
		},
	}))
	require.NoError(t, r.Register(&cmd.Command{
		Name:    "boom",
		Handler: func(context.Context, *cmd.Context) error { panic("kaboom") },
	}))

	conv := cmd.NewConverterRegistry(nil, zerolog.Nop())
	converters.RegisterDefaults(conv)

	scopes := &trackingScopes{}
	opts = append([]cmd.DispatcherOption{cmd.WithScopes(scopes), cmd.WithSyncEvents()}, opts...)
	d := cmd.NewDispatcher(r, conv, cmd.StaticPrefix("!"), opts...)
	d.OnError(func(e cmd.ErrorEvent) { rec.errors = append(rec.errors, e) })
	d.OnExecuted(func(e cmd.ExecutedEvent) { rec.executed = append(rec.executed, e) })

	return &fixture{d: d, scopes: scopes, rec: rec}
}

func (f *fixture) dispatch(content string) cmd.State {
	return f.d.Dispatch(context.Background(), &cmd.Message{ID: "m1", Content: content, GuildID: "g1"})
}

func TestDispatchEchoTakesOnlyFirstToken(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, cmd.StateExecuted, f.dispatch("!echo hello world"))
	assert.Equal(t, []string{"echo"}, f.rec.ran)
	assert.Equal(t, "hello", f.rec.args["text"])

	require.Len(t, f.rec.executed, 1)
	ev := f.rec.executed[0]
	assert.NoError(t, ev.Err)
	assert.Equal(t, "!", ev.Context.Prefix)
	assert.Equal(t, "hello world", ev.Context.RawArguments)
	assert.Equal(t, []string{"echo"}, ev.Context.Path)
}

func TestDispatchSubcommandByNameAndAlias(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, cmd.StateExecuted, f.dispatch("!echo loud hi"))
	assert.Equal(t, cmd.StateExecuted, f.dispatch("!echo LOUD hi"))
	assert.Equal(t, []string{"echo loud", "echo loud"}, f.rec.ran)
	assert.Equal(t, "hi", f.rec.args["text"])
}

func TestDispatchReplySourcedArgument(t *testing.T) {
	f := newFixture(t)
	msg := &cmd.Message{Content: "!quote", Reply: &cmd.Message{Content: "42"}}

	assert.Equal(t, cmd.StateExecuted, f.d.Dispatch(context.Background(), msg))
	assert.Equal(t, 42, f.rec.args["n"])
}

func TestDispatchLoadsReplyOnlyAfterPrefixMatch(t *testing.T) {
	f := newFixture(t)
	loads := 0
	load := func(context.Context) *cmd.Message {
		loads++
		return &cmd.Message{Content: "42"}
	}

	chatter := &cmd.Message{Content: "just a reply", LoadReply: load}
	assert.Equal(t, cmd.StatePrefixNotMatched, f.d.Dispatch(context.Background(), chatter))
	assert.Zero(t, loads)
	assert.Nil(t, chatter.Reply)

	msg := &cmd.Message{Content: "!quote", LoadReply: load}
	assert.Equal(t, cmd.StateExecuted, f.d.Dispatch(context.Background(), msg))
	assert.Equal(t, 1, loads)
	assert.Equal(t, 42, f.rec.args["n"])

	inlined := &cmd.Message{Content: "!quote", Reply: &cmd.Message{Content: "7"}, LoadReply: load}
	assert.Equal(t, cmd.StateExecuted, f.d.Dispatch(context.Background(), inlined))
	assert.Equal(t, 1, loads)
	assert.Equal(t, 7, f.rec.args["n"])
}

func TestDispatchDefaultGroupCommand(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, cmd.StateExecuted, f.dispatch("!config"))
	assert.Equal(t, []string{"config get"}, f.rec.ran)
	assert.Equal(t, "", f.rec.executed[0].Context.RawArguments)
	assert.Empty(t, f.rec.errors)
}

func TestDispatchResolutionFailures(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, cmd.StateCommandNotFound, f.dispatch("!nope"))
	assert.Equal(t, cmd.StateNotExecutable, f.dispatch("!group"))

	require.Len(t, f.rec.errors, 2)
	assert.ErrorIs(t, f.rec.errors[0].Err, cmd.ErrCommandNotFound)
	assert.Nil(t, f.rec.errors[0].Arguments)
	assert.Nil(t, f.rec.errors[0].Command)

	assert.ErrorIs(t, f.rec.errors[1].Err, cmd.ErrNotExecutable)
	assert.Nil(t, f.rec.errors[1].Arguments)
	assert.Equal(t, "group", f.rec.errors[1].Command.Name)

	assert.Empty(t, f.rec.ran)
}

func TestDispatchParseFailure(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, cmd.StateParseFailed, f.dispatch("!sum 1"))
	assert.Empty(t, f.rec.ran)

	require.Len(t, f.rec.errors, 1)
	ev := f.rec.errors[0]
	require.NotNil(t, ev.Arguments)
	assert.ErrorIs(t, ev.Err, cmd.ErrCountMismatch)

	var argErr *cmd.ArgumentError
	require.ErrorAs(t, ev.Err, &argErr)
	assert.Equal(t, 0, argErr.Position)

	assert.Equal(t, cmd.StateParseFailed, f.dispatch("!echo"))
	assert.ErrorIs(t, f.rec.errors[1].Err, cmd.ErrArgumentNotParsed)
}

func TestDispatchExecutionErrors(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, cmd.StateExecuted, f.dispatch("!fail"))
	assert.Equal(t, cmd.StateExecuted, f.dispatch("!boom"))

	require.Len(t, f.rec.executed, 2)
	assert.EqualError(t, f.rec.executed[0].Err, "handler failed")
	require.ErrorIs(t, f.rec.executed[1].Err, cmd.ErrPanic)
	assert.Equal(t, `command "boom" panicked: kaboom`, f.rec.executed[1].Err.Error())
}

func TestDispatchFilters(t *testing.T) {
	f := newFixture(t, cmd.WithIgnoreBots(true), cmd.WithDebugGuild("g1"))
	ctx := context.Background()

	assert.Equal(t, cmd.StateFilteredOut, f.d.Dispatch(ctx, nil))
	assert.Equal(t, cmd.StateFilteredOut, f.d.Dispatch(ctx, &cmd.Message{Content: "   ", GuildID: "g1"}))
	assert.Equal(t, cmd.StateFilteredOut, f.d.Dispatch(ctx, &cmd.Message{Content: "!echo x", GuildID: "g1", Author: cmd.User{Bot: true}}))
	assert.Equal(t, cmd.StateFilteredOut, f.d.Dispatch(ctx, &cmd.Message{Content: "!echo x", GuildID: "g2"}))
	assert.Equal(t, cmd.StatePrefixNotMatched, f.d.Dispatch(ctx, &cmd.Message{Content: "echo x", GuildID: "g1"}))
	assert.Equal(t, cmd.StateExecuted, f.d.Dispatch(ctx, &cmd.Message{Content: "!echo x", GuildID: "g1"}))

	assert.Equal(t, int32(1), f.scopes.opened.Load(), "no scope before the prefix matches")
}

func TestDispatchClosesScopeOnEveryPath(t *testing.T) {
	f := newFixture(t)

	for _, in := range []string{"!echo hi", "!nope", "!group", "!sum 1", "!fail", "!boom"} {
		f.dispatch(in)
	}
	assert.Equal(t, int32(6), f.scopes.opened.Load())
	assert.Equal(t, f.scopes.opened.Load(), f.scopes.closed.Load())
}

func TestDispatchCustomExecutorAndOff(t *testing.T) {
	var got string
	exec := cmd.ExecutorFunc(func(_ context.Context, c *cmd.Context) error {
		got = c.Command.Name
		return nil
	})
	f := newFixture(t, cmd.WithExecutor(exec))

	var calls int
	id := f.d.OnExecuted(func(cmd.ExecutedEvent) { calls++ })

	f.dispatch("!echo x")
	f.d.Off(id)
	f.dispatch("!echo y")

	assert.Equal(t, "echo", got)
	assert.Empty(t, f.rec.ran, "handler replaced by executor")
	assert.Equal(t, 1, calls)
}

func TestDispatchAsyncEvents(t *testing.T) {
	r := cmd.NewRegistry()
	require.NoError(t, r.Register(&cmd.Command{Name: "ping", Handler: noop}))
	d := cmd.NewDispatcher(r, cmd.NewConverterRegistry(nil, zerolog.Nop()), cmd.StaticPrefix("!"))

	var n atomic.Int32
	d.OnExecuted(func(cmd.ExecutedEvent) { n.Add(1) })
	d.OnError(func(cmd.ErrorEvent) { n.Add(10) })

	d.Dispatch(context.Background(), &cmd.Message{Content: "!ping"})
	d.Dispatch(context.Background(), &cmd.Message{Content: "!pong"})
	d.Wait()

	assert.Equal(t, int32(11), n.Load())
}

func TestStaticPrefixPrefersLongest(t *testing.T) {
	p := cmd.StaticPrefix("!", "!!", "")
	assert.Equal(t, 2, p(context.Background(), &cmd.Message{Content: "!!x"}))
	assert.Equal(t, 1, p(context.Background(), &cmd.Message{Content: "!x"}))
	assert.Equal(t, -1, p(context.Background(), &cmd.Message{Content: "?x"}))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "executed", cmd.StateExecuted.String())
	assert.Equal(t, "prefix not matched", cmd.StatePrefixNotMatched.String())
}
