package cmd_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/prefixbot/pkg/cmd"
	"github.com/keshon/prefixbot/pkg/cmd/converters"
)

var errLookup = errors.New("lookup failed")

type failing struct{}

type panicking struct{}

func defaultConverters(t *testing.T) *cmd.ConverterRegistry {
	t.Helper()
	r := cmd.NewConverterRegistry(nil, zerolog.Nop())
	converters.RegisterDefaults(r)
	cmd.Register[failing](r, cmd.ConverterFunc[failing](func(context.Context, *cmd.ConversionContext) (failing, bool, error) {
		return failing{}, false, errLookup
	}))
	cmd.Register[panicking](r, cmd.ConverterFunc[panicking](func(context.Context, *cmd.ConversionContext) (panicking, bool, error) {
		panic("converter exploded")
	}))
	return r
}

func parse(t *testing.T, c *cmd.Command, msg *cmd.Message, primary string) *cmd.Arguments {
	t.Helper()
	require.NoError(t, cmd.NewRegistry().Register(c))
	if msg == nil {
		msg = &cmd.Message{Content: primary}
	}
	cc := cmd.NewConversionContext(c, msg, primary, nil)
	return cmd.Parse(context.Background(), cc, defaultConverters(t))
}

func result(t *testing.T, args *cmd.Arguments, name string) cmd.ParseResult {
	t.Helper()
	r, ok := args.Lookup(name)
	require.True(t, ok, "parameter %q", name)
	return r
}

func TestParseNoParameters(t *testing.T) {
	args := parse(t, command(), nil, "anything at all")
	assert.Zero(t, args.Len())
	assert.Nil(t, args.Failure())
}

func TestParseSingleStringTakesFirstToken(t *testing.T) {
	args := parse(t, command(cmd.Param[string]("text")), nil, "hello world")
	r := result(t, args, "text")
	assert.Equal(t, cmd.Converted, r.Kind)
	assert.Equal(t, "hello", r.Value)
}

func TestParseDefaultWhenInputRunsOut(t *testing.T) {
	c := command(
		cmd.Param[int]("a"),
		cmd.Param[int]("b", cmd.Default(10)),
		cmd.Param[string]("c", cmd.Default("x")),
	)
	args := parse(t, c, nil, "1")

	assert.Equal(t, 1, result(t, args, "a").Value)
	assert.Equal(t, cmd.ParseResult{Kind: cmd.Converted, Value: 10}, result(t, args, "b"))
	assert.Equal(t, cmd.ParseResult{Kind: cmd.Converted, Value: "x"}, result(t, args, "c"))
	assert.Nil(t, args.Failure())
}

func TestParseNilDefault(t *testing.T) {
	c := command(cmd.Param[*int]("n", cmd.Default(nil)))
	args := parse(t, c, nil, "")
	r := result(t, args, "n")
	assert.Equal(t, cmd.Converted, r.Kind)
	assert.Nil(t, r.Value)
}

func TestParseMissingRequiredStops(t *testing.T) {
	c := command(cmd.Param[int]("a"), cmd.Param[int]("b"), cmd.Param[int]("c", cmd.Default(3)))
	args := parse(t, c, nil, "1")

	assert.Equal(t, cmd.Converted, result(t, args, "a").Kind)
	assert.Equal(t, cmd.NotAttempted, result(t, args, "b").Kind)
	assert.Equal(t, cmd.NotAttempted, result(t, args, "c").Kind, "nothing after the stop is attempted")

	failure := args.Failure()
	require.NotNil(t, failure)
	assert.Equal(t, "b", failure.Parameter.Name)
	assert.Equal(t, 1, failure.Position)
	assert.ErrorIs(t, failure, cmd.ErrArgumentNotParsed)
	assert.Equal(t, `argument #2 "b" is missing`, failure.Error())
}

func TestParseRejectedTokenStops(t *testing.T) {
	c := command(cmd.Param[int]("a"), cmd.Param[int]("b"))
	args := parse(t, c, nil, "one 2")

	a := result(t, args, "a")
	assert.Equal(t, cmd.Failed, a.Kind)
	assert.Equal(t, "one", a.Raw)
	assert.NoError(t, a.Err)
	assert.Equal(t, cmd.NotAttempted, result(t, args, "b").Kind)

	failure := args.Failure()
	require.NotNil(t, failure)
	assert.ErrorIs(t, failure, cmd.ErrConversion)
	assert.Equal(t, `argument #1 "a": cannot convert "one"`, failure.Error())
}

func TestParseConverterErrorIsCaptured(t *testing.T) {
	c := command(cmd.Param[failing]("f"), cmd.Param[string]("after"))
	args := parse(t, c, nil, "x y")

	r := result(t, args, "f")
	assert.Equal(t, cmd.Failed, r.Kind)
	assert.Equal(t, "x", r.Raw)
	assert.ErrorIs(t, r.Err, errLookup)
	assert.Equal(t, cmd.NotAttempted, result(t, args, "after").Kind)
	assert.ErrorIs(t, args.Failure(), errLookup)
}

func TestParseConverterPanicIsCaptured(t *testing.T) {
	args := parse(t, command(cmd.Param[panicking]("p")), nil, "x")
	r := result(t, args, "p")
	assert.Equal(t, cmd.Failed, r.Kind)
	require.ErrorIs(t, r.Err, cmd.ErrPanic)
	assert.Equal(t, "converter panicked: converter exploded", r.Err.Error())

	var pe *cmd.PanicError
	require.ErrorAs(t, r.Err, &pe)
	assert.Contains(t, string(pe.Stack), "goroutine")
	assert.NotContains(t, args.Failure().Error(), "goroutine")
}

func TestParseMissingConverter(t *testing.T) {
	type unknown struct{}
	args := parse(t, command(cmd.Param[unknown]("u")), nil, "x")
	r := result(t, args, "u")
	assert.Equal(t, cmd.Failed, r.Kind)
	assert.ErrorIs(t, r.Err, cmd.ErrNoConverter)
}

func TestParseVariadic(t *testing.T) {
	tests := []struct {
		name     string
		param    *cmd.Parameter
		input    string
		kind     cmd.ResultKind
		value    any
		countErr bool
	}{
		{
			name:  "unbounded takes everything",
			param: cmd.Param[[]int]("n", cmd.Variadic(1, cmd.Unbounded)),
			input: "1 2 3",
			kind:  cmd.Converted,
			value: []int{1, 2, 3},
		},
		{
			name:  "max caps consumption",
			param: cmd.Param[[]int]("n", cmd.Variadic(1, 2)),
			input: "1 2 3",
			kind:  cmd.Converted,
			value: []int{1, 2},
		},
		{
			name:     "below minimum",
			param:    cmd.Param[[]int]("n", cmd.Variadic(2, cmd.Unbounded)),
			input:    "5",
			kind:     cmd.Failed,
			countErr: true,
		},
		{
			name:  "rejected token",
			param: cmd.Param[[]int]("n", cmd.Variadic(1, cmd.Unbounded)),
			input: "1 x 3",
			kind:  cmd.Failed,
		},
		{
			name:  "optional and empty",
			param: cmd.Param[[]int]("n", cmd.Variadic(0, cmd.Unbounded)),
			input: "",
			kind:  cmd.Converted,
			value: []int{},
		},
		{
			name:  "array",
			param: cmd.Param[[3]string]("s", cmd.Variadic(1, cmd.Unbounded)),
			input: "a b",
			kind:  cmd.Converted,
			value: [3]string{"a", "b", ""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := parse(t, command(tt.param), nil, tt.input)
			r := result(t, args, tt.param.Name)
			assert.Equal(t, tt.kind, r.Kind)
			if tt.value != nil {
				assert.Equal(t, tt.value, r.Value)
			}
			if tt.countErr {
				var cm *cmd.CountMismatchError
				require.ErrorAs(t, r.Err, &cm)
				assert.Equal(t, 2, cm.Min)
				assert.Equal(t, 1, cm.Got)
				assert.Equal(t, []any{5}, r.Offending)
				assert.ErrorIs(t, args.Failure(), cmd.ErrCountMismatch)
			}
		})
	}
}

func TestParseVariadicLeavesRestForNextParameter(t *testing.T) {
	c := command(
		cmd.Param[[]int]("n", cmd.Variadic(1, 2)),
		cmd.Param[string]("rest", cmd.Remaining()),
	)
	args := parse(t, c, nil, "1 2 three four")

	assert.Equal(t, []int{1, 2}, result(t, args, "n").Value)
	assert.Equal(t, "three four", result(t, args, "rest").Value)
}

func TestParseReplySourcedInteger(t *testing.T) {
	c := command(cmd.Param[int]("n", cmd.FromReply()))
	msg := &cmd.Message{Content: "!t", Reply: &cmd.Message{Content: "42"}}
	args := parse(t, c, msg, "")

	r := result(t, args, "n")
	assert.Equal(t, cmd.Converted, r.Kind)
	assert.Equal(t, 42, r.Value)
}

func TestParseDefaultOfSecondReplySourcedParameter(t *testing.T) {
	c := command(
		cmd.Param[string]("s", cmd.FromReply()),
		cmd.Param[int]("n", cmd.FromReply(), cmd.Default(7)),
		cmd.Param[[]int]("rest", cmd.FromReply(), cmd.Variadic(0, 3)),
	)
	msg := &cmd.Message{Content: "!t", Reply: &cmd.Message{Content: "hello"}}
	args := parse(t, c, msg, "")

	assert.Nil(t, args.Failure())
	assert.Equal(t, "hello", result(t, args, "s").Value)
	n := result(t, args, "n")
	assert.Equal(t, cmd.Converted, n.Kind)
	assert.Equal(t, 7, n.Value)
	assert.Equal(t, []int{}, result(t, args, "rest").Value)
}

func TestParseNoDefaultsAfterFailure(t *testing.T) {
	c := command(cmd.Param[int]("a"), cmd.Param[int]("b", cmd.Default(7)))
	args := parse(t, c, nil, "x")

	assert.Equal(t, cmd.Failed, result(t, args, "a").Kind)
	assert.Equal(t, cmd.NotAttempted, result(t, args, "b").Kind)
	assert.ErrorIs(t, args.Failure(), cmd.ErrConversion)
}

func TestArgumentsAccessors(t *testing.T) {
	p := cmd.Param[int]("a")
	c := command(p)
	args := parse(t, c, nil, "7")

	got, ok := args.Get(p)
	require.True(t, ok)
	assert.Equal(t, 7, got.Value)

	_, ok = args.Get(cmd.Param[int]("a"))
	assert.False(t, ok, "lookup by identity")

	param, r := args.At(0)
	assert.Same(t, p, param)
	assert.Equal(t, 7, r.Value)

	_, ok = args.Lookup("missing")
	assert.False(t, ok)

	cc := &cmd.Context{Arguments: args}
	n, ok := cmd.Arg[int](cc, "a")
	assert.True(t, ok)
	assert.Equal(t, 7, n)
	_, ok = cmd.Arg[string](cc, "a")
	assert.False(t, ok)
	assert.Equal(t, 7, cmd.MustArg[int](cc, "a"))
	assert.Zero(t, cmd.MustArg[int](cc, "nope"))
}

func TestResultKindString(t *testing.T) {
	assert.Equal(t, "not attempted", cmd.NotAttempted.String())
	assert.Equal(t, "converted", cmd.Converted.String())
	assert.Equal(t, "failed", cmd.Failed.String())
}
