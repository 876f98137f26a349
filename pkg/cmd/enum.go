package cmd

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Enum is implemented by types with a closed set of values. EnumValues is
// called on the zero value and must return values of the implementing type.
// Values match by their String form, case-insensitively, or by number for
// integer kinds.
type Enum interface {
	EnumValues() []any
}

var enumType = reflect.TypeFor[Enum]()

type enumConverter struct {
	typ    reflect.Type
	values []any
	names  []string
}

func newEnumConverter(t reflect.Type) (*enumConverter, error) {
	values := reflect.Zero(t).Interface().(Enum).EnumValues()
	if len(values) == 0 {
		return nil, fmt.Errorf("enum %s has no values", t)
	}
	e := &enumConverter{typ: t, values: values, names: make([]string, len(values))}
	for i, v := range values {
		if reflect.TypeOf(v) != t {
			return nil, fmt.Errorf("enum %s lists a %T value", t, v)
		}
		if s, ok := v.(fmt.Stringer); ok {
			e.names[i] = s.String()
		} else {
			e.names[i] = fmt.Sprint(v)
		}
	}
	return e, nil
}

func (e *enumConverter) convert(_ context.Context, cc *ConversionContext) (any, bool, error) {
	raw := strings.TrimSpace(cc.Argument())
	for i, name := range e.names {
		if strings.EqualFold(name, raw) {
			return e.values[i], true, nil
		}
	}

	switch e.typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false, nil
		}
		for _, v := range e.values {
			if reflect.ValueOf(v).Int() == n {
				return v, true, nil
			}
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, false, nil
		}
		for _, v := range e.values {
			if reflect.ValueOf(v).Uint() == n {
				return v, true, nil
			}
		}
	}
	return nil, false, nil
}

// RegisterEnums walks cmds and registers a converter for every parameter type
// that implements Enum and has no converter yet. Converters registered earlier
// for an enum type are kept. It returns the number of converters added.
func (r *ConverterRegistry) RegisterEnums(cmds []*Command) int {
	built := make(map[reflect.Type]bool)
	added := 0

	var visit func(cmds []*Command)
	visit = func(cmds []*Command) {
		for _, c := range cmds {
			for _, p := range c.Parameters {
				t := p.BaseType()
				if t == nil || built[t] || t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface || !t.Implements(enumType) {
					continue
				}
				built[t] = true
				if r.Has(t) {
					continue
				}

				conv, err := newEnumConverter(t)
				if err != nil {
					r.log.Error().Err(err).Str("type", t.String()).Msg("Invalid enum, skipping")
					continue
				}
				reg := &registration{
					target:   t,
					instance: conv,
					bind:     func(any) (convertFunc, error) { return conv.convert, nil },
				}
				if r.add(reg) {
					added++
				}
			}
			visit(c.Subcommands)
		}
	}
	visit(cmds)
	return added
}
