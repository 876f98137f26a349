package cmd_test

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/prefixbot/pkg/cmd"
)

type upper struct{ cmd.ConverterOf[string] }

func (upper) Convert(_ context.Context, cc *cmd.ConversionContext) (string, bool, error) {
	return strings.ToUpper(cc.Argument()), true, nil
}

type point struct{ X, Y int }

type pointConverter struct {
	cmd.ConverterOf[point]
	Sep string
}

func (p *pointConverter) Convert(_ context.Context, cc *cmd.ConversionContext) (point, bool, error) {
	sep := p.Sep
	if sep == "" {
		sep = ","
	}
	var pt point
	if _, err := fmt.Sscanf(strings.Replace(cc.Argument(), sep, " ", 1), "%d %d", &pt.X, &pt.Y); err != nil {
		return point{}, false, nil
	}
	return pt, true, nil
}

type notAConverter struct{}

type color int

const (
	red color = iota
	green
	blue
)

func (c color) String() string { return [...]string{"red", "green", "blue"}[c] }

func (color) EnumValues() []any { return []any{red, green, blue} }

// countingResolver builds types directly and counts the calls.
type countingResolver struct {
	calls atomic.Int32
}

func (r *countingResolver) GetOrCreate(t reflect.Type) (any, error) {
	r.calls.Add(1)
	if t == reflect.TypeFor[*pointConverter]() {
		return &pointConverter{Sep: ";"}, nil
	}
	return cmd.Construct(t)
}

func newLoggedRegistry(services cmd.ServiceResolver) (*cmd.ConverterRegistry, *bytes.Buffer) {
	var buf bytes.Buffer
	return cmd.NewConverterRegistry(services, zerolog.New(&buf).Level(zerolog.InfoLevel)), &buf
}

func runAdapter(t *testing.T, r *cmd.ConverterRegistry, p *cmd.Parameter, text string) cmd.ParseResult {
	t.Helper()
	cc := cmd.NewConversionContext(command(p), &cmd.Message{}, text, nil)
	require.True(t, cc.NextParameter())
	require.True(t, cc.NextArgument())
	adapter, err := r.Adapter(p.BaseType(), nil)
	require.NoError(t, err)
	res, err := adapter(context.Background(), cc)
	require.NoError(t, err)
	return res
}

func TestRegisterSameInstanceTwiceIsSilent(t *testing.T) {
	r, logs := newLoggedRegistry(nil)
	conv := &upper{}

	assert.True(t, cmd.Register[string](r, conv))
	assert.False(t, cmd.Register[string](r, conv))

	assert.Equal(t, 1, r.Len())
	assert.Empty(t, logs.String())
}

func TestRegisterSameFuncTwiceIsSilent(t *testing.T) {
	r, logs := newLoggedRegistry(nil)
	f := cmd.ConverterFunc[int](func(context.Context, *cmd.ConversionContext) (int, bool, error) { return 1, true, nil })

	cmd.Register[int](r, f)
	cmd.Register[int](r, f)

	assert.Equal(t, 1, r.Len())
	assert.Empty(t, logs.String())
}

func TestRegisterConflictKeepsFirst(t *testing.T) {
	r, logs := newLoggedRegistry(nil)

	first := cmd.ConverterFunc[string](func(context.Context, *cmd.ConversionContext) (string, bool, error) {
		return "first", true, nil
	})
	require.True(t, cmd.Register[string](r, first))
	assert.False(t, cmd.Register[string](r, &upper{}))

	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), "keeping the first one")

	res := runAdapter(t, r, cmd.Param[string]("s"), "x")
	assert.Equal(t, "first", res.Value)
}

func TestRegisterTypeIsDeferred(t *testing.T) {
	resolver := &countingResolver{}
	r, _ := newLoggedRegistry(resolver)

	require.True(t, cmd.RegisterType[point](r, reflect.TypeFor[*pointConverter]()))
	assert.False(t, cmd.RegisterType[point](r, reflect.TypeFor[*pointConverter]()), "same type again")
	assert.Zero(t, resolver.calls.Load())

	res := runAdapter(t, r, cmd.Param[point]("p"), "3;4")
	assert.Equal(t, cmd.Converted, res.Kind)
	assert.Equal(t, point{3, 4}, res.Value)

	inst, err := r.Instance(reflect.TypeFor[point](), nil)
	require.NoError(t, err)
	assert.IsType(t, &pointConverter{}, inst)
	assert.Equal(t, int32(1), resolver.calls.Load())
}

func TestAdapterBuiltOnceUnderConcurrency(t *testing.T) {
	resolver := &countingResolver{}
	r, _ := newLoggedRegistry(resolver)
	cmd.RegisterType[point](r, reflect.TypeFor[*pointConverter]())

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Adapter(reflect.TypeFor[point](), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), resolver.calls.Load())
}

func TestRegisterCandidates(t *testing.T) {
	r, logs := newLoggedRegistry(nil)

	added := r.RegisterCandidates(
		reflect.TypeFor[upper](),
		reflect.TypeFor[pointConverter](),
		reflect.TypeFor[notAConverter](),
		reflect.TypeFor[fmt.Stringer](),
		nil,
	)
	assert.Equal(t, 2, added)
	assert.True(t, r.Has(reflect.TypeFor[string]()))
	assert.True(t, r.Has(reflect.TypeFor[point]()))
	assert.NotContains(t, logs.String(), `"level":"error"`)

	res := runAdapter(t, r, cmd.Param[point]("p"), "1,2")
	assert.Equal(t, point{1, 2}, res.Value)

	inst, err := r.Instance(reflect.TypeFor[point](), nil)
	require.NoError(t, err)
	assert.IsType(t, &pointConverter{}, inst, "pointer receiver candidates are built as pointers")

	assert.Zero(t, r.RegisterCandidates(reflect.TypeFor[upper]()), "already registered")
}

func TestAdapterForUnknownType(t *testing.T) {
	r, _ := newLoggedRegistry(nil)
	_, err := r.Adapter(reflect.TypeFor[point](), nil)
	assert.ErrorIs(t, err, cmd.ErrNoConverter)
}

func TestRegisterEnums(t *testing.T) {
	r, _ := newLoggedRegistry(nil)
	cmds := []*cmd.Command{
		command(cmd.Param[color]("c")),
		{Name: "g", Subcommands: []*cmd.Command{
			command(cmd.Param[[]color]("cs", cmd.Variadic(1, cmd.Unbounded))),
		}},
	}

	assert.Equal(t, 1, r.RegisterEnums(cmds))
	assert.Zero(t, r.RegisterEnums(cmds))
	require.True(t, r.Has(reflect.TypeFor[color]()))

	tests := []struct {
		raw  string
		want any
		kind cmd.ResultKind
	}{
		{"green", green, cmd.Converted},
		{"BLUE", blue, cmd.Converted},
		{"0", red, cmd.Converted},
		{"7", nil, cmd.Failed},
		{"purple", nil, cmd.Failed},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			res := runAdapter(t, r, cmd.Param[color]("c"), tt.raw)
			assert.Equal(t, tt.kind, res.Kind)
			if tt.want != nil {
				assert.Equal(t, tt.want, res.Value)
			}
		})
	}
}

func TestRegisterEnumsKeepsExplicitConverter(t *testing.T) {
	r, logs := newLoggedRegistry(nil)
	cmd.Register[color](r, cmd.ConverterFunc[color](func(context.Context, *cmd.ConversionContext) (color, bool, error) {
		return blue, true, nil
	}))

	assert.Zero(t, r.RegisterEnums([]*cmd.Command{command(cmd.Param[color]("c"))}))
	assert.Empty(t, logs.String())
	assert.Equal(t, blue, runAdapter(t, r, cmd.Param[color]("c"), "red").Value)
}
