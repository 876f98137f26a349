package cmd

import (
	"context"
	"errors"
	"runtime/debug"
)

// ResultKind tags the outcome of one parameter.
type ResultKind int

const (
	// NotAttempted means parsing stopped before the parameter was reached or
	// the input ran out.
	NotAttempted ResultKind = iota
	Converted
	Failed
)

func (k ResultKind) String() string {
	switch k {
	case Converted:
		return "converted"
	case Failed:
		return "failed"
	default:
		return "not attempted"
	}
}

// ParseResult is the per-parameter outcome of Parse.
type ParseResult struct {
	Kind  ResultKind
	Value any
	// Raw is the argument text the converter saw last.
	Raw string
	// Offending holds the values a variadic parameter collected before it
	// failed.
	Offending []any
	// Err is the converter error, a *CountMismatchError, or ErrNoConverter.
	Err error
}

// Arguments maps the parameters of a command to their results, in declaration
// order. Every parameter is present even when parsing stopped early.
type Arguments struct {
	params  []*Parameter
	results []ParseResult
}

func newArguments(params []*Parameter) *Arguments {
	return &Arguments{
		params:  params,
		results: make([]ParseResult, len(params)),
	}
}

// Len returns the number of parameters.
func (a *Arguments) Len() int { return len(a.params) }

// At returns the i-th parameter and its result.
func (a *Arguments) At(i int) (*Parameter, ParseResult) {
	return a.params[i], a.results[i]
}

// Get returns the result recorded for p.
func (a *Arguments) Get(p *Parameter) (ParseResult, bool) {
	for i, q := range a.params {
		if q == p {
			return a.results[i], true
		}
	}
	return ParseResult{}, false
}

// Lookup returns the result of the parameter with the given name.
func (a *Arguments) Lookup(name string) (ParseResult, bool) {
	for i, p := range a.params {
		if p.Name == name {
			return a.results[i], true
		}
	}
	return ParseResult{}, false
}

// Failure returns the first required parameter that was not converted, or nil
// when the command can run. Optional parameters that were never reached do
// not count.
func (a *Arguments) Failure() *ArgumentError {
	for i, p := range a.params {
		r := a.results[i]
		switch {
		case r.Kind == Converted:
			continue
		case r.Kind == NotAttempted && p.Optional():
			continue
		}
		return &ArgumentError{Parameter: p, Position: i, Result: r}
	}
	return nil
}

func (a *Arguments) set(i int, r ParseResult) { a.results[i] = r }

func (a *Arguments) failed() bool {
	for _, r := range a.results {
		if r.Kind == Failed {
			return true
		}
	}
	return false
}

// Parse converts the arguments of cc's command in order and stops at the first
// parameter that cannot be converted. Running out of input leaves the
// remaining parameters NotAttempted unless they declare a default.
func Parse(ctx context.Context, cc *ConversionContext, converters *ConverterRegistry) *Arguments {
	args := newArguments(cc.Command().Parameters)
	if args.Len() == 0 {
		return args
	}

	for cc.NextParameter() {
		p, i := cc.Parameter(), cc.Index()

		if !cc.NextArgument() {
			if r, ok := defaultResult(p); ok {
				args.set(i, r)
				continue
			}
			break
		}

		adapter, err := converters.Adapter(p.BaseType(), cc.Services())
		if err != nil {
			args.set(i, ParseResult{Kind: Failed, Raw: cc.Argument(), Err: err})
			break
		}

		res, err := invoke(ctx, adapter, cc)
		var pe *PanicError
		if errors.As(err, &pe) {
			converters.log.Error().
				Interface("panic", pe.Value).
				Str("type", p.BaseType().String()).
				Str("stack", string(pe.Stack)).
				Msg("Converter panicked")
		}
		if err != nil {
			args.set(i, ParseResult{Kind: Failed, Raw: cc.Argument(), Err: err})
			break
		}
		args.set(i, res)
		if res.Kind != Converted {
			break
		}
	}

	// The cursor can stop before the last parameter without a failure (a
	// second reply-sourced parameter); the ones it never reached still get
	// their defaults.
	if !args.failed() {
		for i, p := range args.params {
			if args.results[i].Kind != NotAttempted {
				continue
			}
			if r, ok := defaultResult(p); ok {
				args.set(i, r)
			}
		}
	}
	return args
}

func defaultResult(p *Parameter) (ParseResult, bool) {
	switch {
	case p.HasDefault:
		return ParseResult{Kind: Converted, Value: p.Default}, true
	case p.Variadic && p.Min == 0:
		return ParseResult{Kind: Converted, Value: materialize(p.Type, nil)}, true
	}
	return ParseResult{}, false
}

func invoke(ctx context.Context, adapter Adapter, cc *ConversionContext) (res ParseResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Where: "converter", Value: r, Stack: debug.Stack()}
		}
	}()
	return adapter(ctx, cc)
}
