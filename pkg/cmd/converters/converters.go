// Package converters holds the converters for Go's primitive types.
package converters

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/keshon/prefixbot/pkg/cmd"
)

// RegisterDefaults registers every converter of this package.
func RegisterDefaults(r *cmd.ConverterRegistry) {
	cmd.Register[string](r, String())
	cmd.Register[bool](r, Bool())

	cmd.Register[int](r, Signed[int](strconv.IntSize))
	cmd.Register[int8](r, Signed[int8](8))
	cmd.Register[int16](r, Signed[int16](16))
	cmd.Register[int32](r, Signed[int32](32))
	cmd.Register[int64](r, Signed[int64](64))

	cmd.Register[uint](r, Unsigned[uint](strconv.IntSize))
	cmd.Register[uint8](r, Unsigned[uint8](8))
	cmd.Register[uint16](r, Unsigned[uint16](16))
	cmd.Register[uint32](r, Unsigned[uint32](32))
	cmd.Register[uint64](r, Unsigned[uint64](64))

	cmd.Register[float32](r, Float[float32](32))
	cmd.Register[float64](r, Float[float64](64))

	cmd.Register[time.Duration](r, Duration())
}

// String accepts any argument as is.
func String() cmd.ConverterFunc[string] {
	return func(_ context.Context, cc *cmd.ConversionContext) (string, bool, error) {
		return cc.Argument(), true, nil
	}
}

var boolWords = map[string]bool{
	"true": true, "yes": true, "y": true, "on": true, "1": true, "enable": true,
	"false": false, "no": false, "n": false, "off": false, "0": false, "disable": false,
}

// Bool accepts true/false, yes/no, on/off, enable/disable and 1/0.
func Bool() cmd.ConverterFunc[bool] {
	return func(_ context.Context, cc *cmd.ConversionContext) (bool, bool, error) {
		v, ok := boolWords[strings.ToLower(cc.Argument())]
		return v, ok, nil
	}
}

// Signed parses base-10 integers that fit in bits.
func Signed[T ~int | ~int8 | ~int16 | ~int32 | ~int64](bits int) cmd.ConverterFunc[T] {
	return func(_ context.Context, cc *cmd.ConversionContext) (T, bool, error) {
		n, err := strconv.ParseInt(strings.TrimPrefix(cc.Argument(), "+"), 10, bits)
		if err != nil {
			return 0, false, nil
		}
		return T(n), true, nil
	}
}

// Unsigned parses non-negative base-10 integers that fit in bits.
func Unsigned[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](bits int) cmd.ConverterFunc[T] {
	return func(_ context.Context, cc *cmd.ConversionContext) (T, bool, error) {
		n, err := strconv.ParseUint(strings.TrimPrefix(cc.Argument(), "+"), 10, bits)
		if err != nil {
			return 0, false, nil
		}
		return T(n), true, nil
	}
}

// Float parses finite floating point numbers.
func Float[T ~float32 | ~float64](bits int) cmd.ConverterFunc[T] {
	return func(_ context.Context, cc *cmd.ConversionContext) (T, bool, error) {
		f, err := strconv.ParseFloat(cc.Argument(), bits)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false, nil
		}
		return T(f), true, nil
	}
}

// Duration accepts time.ParseDuration syntax plus d (days) and w (weeks),
// e.g. "1w2d", "36h", "1d12h30m".
func Duration() cmd.ConverterFunc[time.Duration] {
	return func(_ context.Context, cc *cmd.ConversionContext) (time.Duration, bool, error) {
		d, err := ParseDuration(cc.Argument())
		if err != nil {
			return 0, false, nil
		}
		return d, true, nil
	}
}

// ParseDuration is time.ParseDuration with day and week units.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	neg := false
	rest := s
	switch rest[0] {
	case '-':
		neg = true
		rest = rest[1:]
	case '+':
		rest = rest[1:]
	}
	if rest == "" {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	var (
		total time.Duration
		std   strings.Builder
	)
	for rest != "" {
		i := 0
		for i < len(rest) && (rest[i] == '.' || (rest[i] >= '0' && rest[i] <= '9')) {
			i++
		}
		if i == 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		num := rest[:i]
		j := i
		for j < len(rest) && !(rest[j] == '.' || (rest[j] >= '0' && rest[j] <= '9')) {
			j++
		}
		unit := rest[i:j]
		rest = rest[j:]

		switch unit {
		case "d", "w":
			f, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q", s)
			}
			day := 24 * time.Hour
			if unit == "w" {
				day *= 7
			}
			total += time.Duration(f * float64(day))
		case "":
			return 0, fmt.Errorf("missing unit in duration %q", s)
		default:
			std.WriteString(num)
			std.WriteString(unit)
		}
	}

	if std.Len() > 0 {
		d, err := time.ParseDuration(std.String())
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		total += d
	}
	if neg {
		total = -total
	}
	return total, nil
}
