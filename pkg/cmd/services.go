package cmd

import (
	"fmt"
	"reflect"
)

// ServiceResolver materializes dependencies: deferred converters, and whatever
// converters or commands need at run time.
type ServiceResolver interface {
	GetOrCreate(t reflect.Type) (any, error)
}

// Scope is a ServiceResolver whose scoped services are released by Close.
type Scope interface {
	ServiceResolver
	Close() error
}

// ScopeFactory opens one Scope per dispatched command.
type ScopeFactory interface {
	ServiceResolver
	NewScope() Scope
}

// Service resolves a dependency of type T from r.
func Service[T any](r ServiceResolver) (T, error) {
	var zero T
	v, err := r.GetOrCreate(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("service %s resolved to %T", reflect.TypeFor[T](), v)
	}
	return t, nil
}

// Construct builds a zero value of t without any dependencies: structs,
// pointers to a fresh value, and scalar kinds. Types whose zero value is nil
// (funcs, maps, channels, interfaces) cannot be built this way.
func Construct(t reflect.Type) (any, error) {
	if !directlyConstructible(t) {
		return nil, fmt.Errorf("%w: %s", ErrNotConstructible, t)
	}
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface(), nil
	}
	return reflect.New(t).Elem().Interface(), nil
}

func directlyConstructible(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Interface, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice, reflect.UnsafePointer, reflect.Invalid:
		return false
	case reflect.Pointer:
		return t.Elem().Kind() != reflect.Pointer && directlyConstructible(t.Elem())
	}
	return true
}
