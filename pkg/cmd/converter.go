package cmd

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Converter turns the current raw argument of a ConversionContext into a T.
// ok=false means the input does not match; a non-nil error means the
// conversion itself broke (lookup failure, network error).
type Converter[T any] interface {
	Convert(ctx context.Context, cc *ConversionContext) (T, bool, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc[T any] func(ctx context.Context, cc *ConversionContext) (T, bool, error)

func (f ConverterFunc[T]) Convert(ctx context.Context, cc *ConversionContext) (T, bool, error) {
	return f(ctx, cc)
}

// ConverterOf is embedded by converter types handed to RegisterCandidates. It
// declares the target type and lets the registry bind the converter without
// knowing T at compile time.
type ConverterOf[T any] struct{}

// TargetType is the type the embedding converter produces.
func (ConverterOf[T]) TargetType() reflect.Type { return reflect.TypeFor[T]() }

func (ConverterOf[T]) bind(inst any) (convertFunc, error) { return bindConverter[T](inst) }

type candidate interface {
	TargetType() reflect.Type
	bind(inst any) (convertFunc, error)
}

var candidateType = reflect.TypeFor[candidate]()

type convertFunc func(ctx context.Context, cc *ConversionContext) (any, bool, error)

func bindConverter[T any](inst any) (convertFunc, error) {
	c, ok := inst.(Converter[T])
	if !ok {
		return nil, fmt.Errorf("%T does not implement Converter[%s]", inst, reflect.TypeFor[T]())
	}
	return func(ctx context.Context, cc *ConversionContext) (any, bool, error) {
		v, ok, err := c.Convert(ctx, cc)
		if err != nil || !ok {
			return nil, ok, err
		}
		return v, true, nil
	}, nil
}

// Adapter is the type-erased form of a converter that the parser invokes for
// any parameter type. It handles variadic parameters itself.
type Adapter func(ctx context.Context, cc *ConversionContext) (ParseResult, error)

type registration struct {
	target   reflect.Type
	instance any
	factory  reflect.Type
	bind     func(inst any) (convertFunc, error)

	once    sync.Once
	built   any
	adapter Adapter
	err     error
}

func (reg *registration) source() string {
	if reg.factory != nil {
		return reg.factory.String()
	}
	return fmt.Sprintf("%T", reg.instance)
}

func (reg *registration) sameSource(other *registration) bool {
	if reg.factory != nil || other.factory != nil {
		return reg.factory == other.factory
	}
	return sameInstance(reg.instance, other.instance)
}

// ConverterRegistry maps target types to converters. Registration happens at
// startup; lookups are safe for concurrent use and each converter is built
// exactly once on first use.
type ConverterRegistry struct {
	mu       sync.RWMutex
	regs     map[reflect.Type]*registration
	services ServiceResolver
	log      zerolog.Logger
}

// NewConverterRegistry returns an empty registry. services builds deferred
// converters; it may be nil, in which case the resolver handed to Instance or
// Adapter is used, or direct construction.
func NewConverterRegistry(services ServiceResolver, logger zerolog.Logger) *ConverterRegistry {
	return &ConverterRegistry{
		regs:     make(map[reflect.Type]*registration),
		services: services,
		log:      logger,
	}
}

// Register adds c as the converter for T.
func Register[T any](r *ConverterRegistry, c Converter[T]) bool {
	return r.add(&registration{
		target:   reflect.TypeFor[T](),
		instance: c,
		bind:     bindConverter[T],
	})
}

// RegisterType adds a converter for T that is built from converterType on
// first use.
func RegisterType[T any](r *ConverterRegistry, converterType reflect.Type) bool {
	return r.add(&registration{
		target:  reflect.TypeFor[T](),
		factory: converterType,
		bind:    bindConverter[T],
	})
}

// RegisterCandidates registers every type that embeds ConverterOf, deferring
// construction. A type whose Convert method has a pointer receiver is built as
// a pointer. Other types are skipped; candidates that cannot be built are
// logged and skipped without stopping the pass. It returns the number
// registered.
func (r *ConverterRegistry) RegisterCandidates(types ...reflect.Type) int {
	added := 0
	for _, t := range types {
		if t == nil || t.Kind() == reflect.Interface {
			continue
		}

		forms := []reflect.Type{t}
		if t.Kind() != reflect.Pointer {
			forms = append(forms, reflect.PointerTo(t))
		}

		var (
			factory reflect.Type
			c       candidate
			lastErr error
		)
		for _, f := range forms {
			if !f.Implements(candidateType) {
				continue
			}
			probe, err := Construct(f)
			if err != nil {
				lastErr = err
				continue
			}
			if _, err := probe.(candidate).bind(probe); err != nil {
				lastErr = err
				continue
			}
			factory, c = f, probe.(candidate)
			break
		}

		if factory == nil {
			if lastErr != nil {
				r.log.Error().Err(lastErr).Str("type", t.String()).Msg("Converter cannot be built, skipping")
			} else {
				r.log.Debug().Str("type", t.String()).Msg("Not a converter, skipping")
			}
			continue
		}

		if r.add(&registration{target: c.TargetType(), factory: factory, bind: c.bind}) {
			added++
		}
	}
	return added
}

// Has reports whether a converter is registered for t.
func (r *ConverterRegistry) Has(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.regs[t]
	return ok
}

// Len returns the number of registrations.
func (r *ConverterRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.regs)
}

// Types lists the registered target types sorted by name.
func (r *ConverterRegistry) Types() []reflect.Type {
	r.mu.RLock()
	out := make([]reflect.Type, 0, len(r.regs))
	for t := range r.regs {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Instance returns the converter registered for t, building and caching it on
// first use. services is only used when the registry has no resolver of its
// own.
func (r *ConverterRegistry) Instance(t reflect.Type, services ServiceResolver) (any, error) {
	reg, err := r.materialize(t, services)
	if err != nil {
		return nil, err
	}
	return reg.built, nil
}

// Adapter returns the cached type-erased invoker for t.
func (r *ConverterRegistry) Adapter(t reflect.Type, services ServiceResolver) (Adapter, error) {
	reg, err := r.materialize(t, services)
	if err != nil {
		return nil, err
	}
	return reg.adapter, nil
}

func (r *ConverterRegistry) materialize(t reflect.Type, services ServiceResolver) (*registration, error) {
	r.mu.RLock()
	reg, ok := r.regs[t]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoConverter, t)
	}

	reg.once.Do(func() {
		inst := reg.instance
		if inst == nil {
			// cached converters outlive dispatch scopes
			if r.services != nil {
				services = r.services
			}
			if services != nil {
				inst, reg.err = services.GetOrCreate(reg.factory)
			} else {
				inst, reg.err = Construct(reg.factory)
			}
			if reg.err != nil {
				reg.err = fmt.Errorf("build converter %s: %w", reg.factory, reg.err)
				return
			}
		}
		fn, err := reg.bind(inst)
		if err != nil {
			reg.err = err
			return
		}
		reg.built = inst
		reg.adapter = newAdapter(fn)
		r.log.Debug().Str("type", t.String()).Str("converter", reg.source()).Msg("Converter ready")
	})
	if reg.err != nil {
		return nil, reg.err
	}
	return reg, nil
}

func (r *ConverterRegistry) add(reg *registration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.regs[reg.target]; ok {
		if !existing.sameSource(reg) {
			r.log.Warn().
				Str("type", reg.target.String()).
				Str("existing", existing.source()).
				Str("rejected", reg.source()).
				Msg("Converter already registered for type, keeping the first one")
		}
		return false
	}
	r.regs[reg.target] = reg
	return true
}

// newAdapter wraps a bound converter. Non-variadic parameters convert the
// current argument once; variadic ones keep converting while both slots and
// arguments remain.
func newAdapter(fn convertFunc) Adapter {
	return func(ctx context.Context, cc *ConversionContext) (ParseResult, error) {
		p := cc.Parameter()
		if p == nil || !p.Variadic {
			v, ok, err := fn(ctx, cc)
			if err != nil {
				return ParseResult{}, err
			}
			if !ok {
				return ParseResult{Kind: Failed, Raw: cc.Argument()}, nil
			}
			return ParseResult{Kind: Converted, Value: v, Raw: cc.Argument()}, nil
		}
		return convertVariadic(ctx, cc, p, fn)
	}
}

func convertVariadic(ctx context.Context, cc *ConversionContext, p *Parameter, fn convertFunc) (ParseResult, error) {
	if !cc.NextVariadicSlot() {
		return ParseResult{Kind: Failed, Raw: cc.Argument()}, nil
	}

	var values []any
	for {
		v, ok, err := fn(ctx, cc)
		if err != nil {
			return ParseResult{}, err
		}
		if !ok {
			return ParseResult{Kind: Failed, Raw: cc.Argument(), Offending: values}, nil
		}
		values = append(values, v)

		if !cc.slotAvailable() || !cc.NextArgument() {
			break
		}
		cc.NextVariadicSlot()
	}

	if len(values) < p.Min {
		return ParseResult{
			Kind:      Failed,
			Raw:       cc.Argument(),
			Offending: values,
			Err:       &CountMismatchError{Min: p.Min, Max: p.Max, Got: len(values)},
		}, nil
	}
	return ParseResult{Kind: Converted, Value: materialize(p.Type, values), Raw: cc.Argument()}, nil
}

// materialize builds a value of slice or array type t from values.
func materialize(t reflect.Type, values []any) any {
	elem := t.Elem()
	if t.Kind() == reflect.Array {
		arr := reflect.New(t).Elem()
		for i, v := range values {
			if i >= arr.Len() {
				break
			}
			arr.Index(i).Set(elementValue(v, elem))
		}
		return arr.Interface()
	}

	s := reflect.MakeSlice(t, 0, len(values))
	for _, v := range values {
		s = reflect.Append(s, elementValue(v, elem))
	}
	return s.Interface()
}

func elementValue(v any, elem reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(elem)
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(elem) && rv.Type().ConvertibleTo(elem) {
		rv = rv.Convert(elem)
	}
	return rv
}

// sameInstance compares two converters by identity. Pointers, funcs and other
// reference kinds compare by address, so it never panics on uncomparable
// values.
func sameInstance(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	switch ta.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice, reflect.UnsafePointer:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	if !ta.Comparable() {
		return false
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
