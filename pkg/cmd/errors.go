package cmd

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCommandNotFound   = errors.New("command not found")
	ErrNotExecutable     = errors.New("command not executable")
	ErrArgumentNotParsed = errors.New("argument not parsed")
	ErrConversion        = errors.New("argument conversion failed")
	ErrCountMismatch     = errors.New("argument count mismatch")
	ErrNoConverter       = errors.New("no converter registered")
	ErrNotConstructible  = errors.New("type cannot be constructed")
	ErrPanic             = errors.New("recovered panic")
)

// PanicError is a recovered panic. Error leaves out the stack, which is only
// meant for logs.
type PanicError struct {
	Where string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Where, e.Value)
}

func (e *PanicError) Unwrap() error { return ErrPanic }

// NotFoundError is returned when the first word of a command matched no
// command name or alias, or matched one that is scoped out of the guild.
type NotFoundError struct {
	Token string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("command %q not found", e.Token)
}

func (e *NotFoundError) Unwrap() error { return ErrCommandNotFound }

// NotExecutableError is returned when resolution ends on a group command that
// has no handler and no default subcommand.
type NotExecutableError struct {
	Command *Command
}

func (e *NotExecutableError) Error() string {
	return fmt.Sprintf("command %q is a group without a default subcommand", e.Command.QualifiedName())
}

func (e *NotExecutableError) Unwrap() error { return ErrNotExecutable }

// CountMismatchError reports a variadic parameter that received fewer values
// than its declared minimum.
type CountMismatchError struct {
	Min int
	Max int
	Got int
}

func (e *CountMismatchError) Error() string {
	switch {
	case e.Max == Unbounded:
		return fmt.Sprintf("expected at least %d values, got %d", e.Min, e.Got)
	case e.Min == e.Max:
		return fmt.Sprintf("expected exactly %d values, got %d", e.Min, e.Got)
	default:
		return fmt.Sprintf("expected %d to %d values, got %d", e.Min, e.Max, e.Got)
	}
}

func (e *CountMismatchError) Unwrap() error { return ErrCountMismatch }

// ArgumentError describes the first parameter that stopped parsing.
// Position is the zero-based index of the parameter in its command.
type ArgumentError struct {
	Parameter *Parameter
	Position  int
	Result    ParseResult
}

func (e *ArgumentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "argument #%d %q", e.Position+1, e.Parameter.Name)
	switch e.Result.Kind {
	case NotAttempted:
		b.WriteString(" is missing")
	default:
		if e.Result.Raw != "" {
			fmt.Fprintf(&b, ": cannot convert %q", e.Result.Raw)
		} else {
			b.WriteString(": conversion failed")
		}
		if e.Result.Err != nil {
			fmt.Fprintf(&b, ": %v", e.Result.Err)
		}
	}
	return b.String()
}

func (e *ArgumentError) Unwrap() []error {
	if e.Result.Kind == NotAttempted {
		return []error{ErrArgumentNotParsed}
	}
	if e.Result.Err != nil {
		return []error{ErrConversion, e.Result.Err}
	}
	return []error{ErrConversion}
}
