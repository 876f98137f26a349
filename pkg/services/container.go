// Package services is the dependency container behind command dispatch. It
// resolves singletons, per-dispatch scoped services, and builds any other
// struct type directly, filling its fields tagged `service:""`.
package services

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/keshon/prefixbot/pkg/cmd"
)

// ErrScopeRequired is returned when a scoped service is requested from the
// root container.
var ErrScopeRequired = errors.New("scoped service requested outside a scope")

// Factory builds a service, resolving its own dependencies from r.
type Factory func(r cmd.ServiceResolver) (any, error)

type singleton struct {
	once    sync.Once
	factory Factory
	value   any
	err     error
}

// Container holds service registrations. Register everything before the first
// dispatch; resolution is safe for concurrent use.
type Container struct {
	mu         sync.RWMutex
	singletons map[reflect.Type]*singleton
	scoped     map[reflect.Type]Factory
	log        zerolog.Logger
}

var _ cmd.ScopeFactory = (*Container)(nil)

// New returns an empty container.
func New(logger zerolog.Logger) *Container {
	return &Container{
		singletons: make(map[reflect.Type]*singleton),
		scoped:     make(map[reflect.Type]Factory),
		log:        logger,
	}
}

// Provide registers v as the singleton for T.
func Provide[T any](c *Container, v T) {
	s := &singleton{value: v}
	s.once.Do(func() {})
	c.setSingleton(reflect.TypeFor[T](), s)
}

// ProvideFunc registers a singleton for T built on first use.
func ProvideFunc[T any](c *Container, f func(r cmd.ServiceResolver) (T, error)) {
	c.setSingleton(reflect.TypeFor[T](), &singleton{factory: func(r cmd.ServiceResolver) (any, error) {
		return f(r)
	}})
}

// ProvideScoped registers a service for T built once per scope. Values
// implementing io.Closer are closed with their scope.
func ProvideScoped[T any](c *Container, f func(r cmd.ServiceResolver) (T, error)) {
	t := reflect.TypeFor[T]()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.singletons[t]; ok {
		c.log.Warn().Str("type", t.String()).Msg("Service already registered as singleton, ignoring scoped registration")
		return
	}
	c.scoped[t] = func(r cmd.ServiceResolver) (any, error) { return f(r) }
}

func (c *Container) setSingleton(t reflect.Type, s *singleton) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.scoped[t]; ok {
		c.log.Warn().Str("type", t.String()).Msg("Service already registered as scoped, ignoring singleton registration")
		return
	}
	if _, ok := c.singletons[t]; ok {
		c.log.Warn().Str("type", t.String()).Msg("Service already registered, replacing it")
	}
	c.singletons[t] = s
}

// Has reports whether t is registered, as singleton or scoped.
func (c *Container) Has(t reflect.Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, single := c.singletons[t]
	_, scoped := c.scoped[t]
	return single || scoped
}

// GetOrCreate returns the singleton registered for t, or builds t directly.
func (c *Container) GetOrCreate(t reflect.Type) (any, error) {
	return c.resolve(t, nil, nil)
}

// NewScope opens a scope for one dispatch.
func (c *Container) NewScope() cmd.Scope {
	return &scope{root: c, instances: make(map[reflect.Type]any)}
}

func (c *Container) resolve(t reflect.Type, sc *scope, path []reflect.Type) (any, error) {
	if slices.Contains(path, t) {
		return nil, fmt.Errorf("dependency cycle: %v", append(path, t))
	}
	path = append(path, t)

	c.mu.RLock()
	s, isSingleton := c.singletons[t]
	factory, isScoped := c.scoped[t]
	c.mu.RUnlock()

	switch {
	case isSingleton:
		s.once.Do(func() {
			// singletons resolve their dependencies from the root
			s.value, s.err = s.factory(c)
			if s.err != nil {
				s.err = fmt.Errorf("build %s: %w", t, s.err)
			}
		})
		return s.value, s.err
	case isScoped:
		if sc == nil {
			return nil, fmt.Errorf("%w: %s", ErrScopeRequired, t)
		}
		return sc.scoped(t, factory)
	}
	return c.construct(t, sc, path)
}

func (c *Container) construct(t reflect.Type, sc *scope, path []reflect.Type) (any, error) {
	var out, target reflect.Value
	switch {
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		out = reflect.New(t.Elem())
		target = out.Elem()
	case t.Kind() == reflect.Struct:
		out = reflect.New(t).Elem()
		target = out
	default:
		return cmd.Construct(t)
	}

	st := target.Type()
	for i := range st.NumField() {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("service")
		if !ok {
			continue
		}
		if !f.IsExported() {
			return nil, fmt.Errorf("build %s: field %s is tagged but unexported", t, f.Name)
		}

		dep, err := c.resolve(f.Type, sc, path)
		if err != nil {
			if tag == "optional" {
				c.log.Debug().Err(err).Str("type", t.String()).Str("field", f.Name).Msg("Optional service not available")
				continue
			}
			return nil, fmt.Errorf("build %s: field %s: %w", t, f.Name, err)
		}
		if dep == nil {
			continue
		}
		v := reflect.ValueOf(dep)
		if !v.Type().AssignableTo(f.Type) {
			return nil, fmt.Errorf("build %s: field %s wants %s, got %T", t, f.Name, f.Type, dep)
		}
		target.Field(i).Set(v)
	}
	return out.Interface(), nil
}

type scope struct {
	root *Container

	mu        sync.Mutex
	instances map[reflect.Type]any
	closers   []io.Closer
	closed    bool
}

func (s *scope) GetOrCreate(t reflect.Type) (any, error) {
	return s.root.resolve(t, s, nil)
}

func (s *scope) scoped(t reflect.Type, factory Factory) (any, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("scope closed, cannot resolve %s", t)
	}
	if v, ok := s.instances[t]; ok {
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	v, err := factory(s)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", t, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.instances[t]; ok {
		// lost a race; keep the first instance
		if closer, ok := v.(io.Closer); ok {
			_ = closer.Close()
		}
		return existing, nil
	}
	s.instances[t] = v
	if closer, ok := v.(io.Closer); ok {
		s.closers = append(s.closers, closer)
	}
	return v, nil
}

// Close releases scoped services in reverse creation order.
func (s *scope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	s.instances = nil
	return errors.Join(errs...)
}
