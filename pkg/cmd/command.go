// Package cmd is a transport-agnostic text command core: a tree of named
// commands with typed parameters, a resolver that walks the tree for an input
// line, converters that turn raw tokens into values, and a dispatcher that ties
// them together for each inbound message. Transports (Discord, console) supply
// messages, a prefix resolver and a responder.
package cmd

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Unbounded as a variadic maximum means "no upper limit".
const Unbounded = -1

// Handler is the body of an executable command.
type Handler func(ctx context.Context, c *Context) error

// Command is a node in the command tree. A command without a Handler is a
// group; invoking it runs its Default subcommand.
type Command struct {
	Name        string
	Description string
	Aliases     []string
	Group       string
	Category    string

	// GuildIDs restricts the command to these guilds when non-empty.
	GuildIDs []string

	Parameters  []*Parameter
	Subcommands []*Command

	// Default marks the subcommand run when its group is invoked without a
	// matching subcommand word.
	Default bool
	Hidden  bool

	Handler     Handler
	Middlewares []Middleware

	parent *Command
	run    Handler
}

// Parent returns the enclosing group, or nil for a top-level command.
func (c *Command) Parent() *Command { return c.parent }

// Executable reports whether the command has a body of its own.
func (c *Command) Executable() bool { return c.Handler != nil }

// QualifiedName is the space-separated path from the top-level command.
func (c *Command) QualifiedName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.QualifiedName() + " " + c.Name
}

// AllowedIn reports whether the command may run in the given guild.
func (c *Command) AllowedIn(guildID string) bool {
	return len(c.GuildIDs) == 0 || slices.Contains(c.GuildIDs, guildID)
}

// DefaultSubcommand returns the first subcommand marked Default.
func (c *Command) DefaultSubcommand() *Command {
	for _, sub := range c.Subcommands {
		if sub.Default {
			return sub
		}
	}
	return nil
}

// Usage renders the command with its parameter signature, e.g.
// "config set <key> <value>".
func (c *Command) Usage() string {
	parts := []string{c.QualifiedName()}
	for _, p := range c.Parameters {
		parts = append(parts, p.Usage())
	}
	return strings.Join(parts, " ")
}

// Parameter describes one formal argument of a command.
type Parameter struct {
	Name        string
	Description string
	Type        reflect.Type

	// HasDefault separates "no default" from "default is nil".
	Default    any
	HasDefault bool

	// Variadic parameters collect between Min and Max values (Max may be
	// Unbounded) into a slice or array typed Type.
	Variadic bool
	Min      int
	Max      int

	// FromReply reads the argument from the message being replied to.
	FromReply bool
	// Remaining takes the rest of the text as one raw argument.
	Remaining bool
}

// ParamOption configures a Parameter built by Param.
type ParamOption func(*Parameter)

// Param declares a parameter of type T.
func Param[T any](name string, opts ...ParamOption) *Parameter {
	p := &Parameter{Name: name, Type: reflect.TypeFor[T]()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Default makes the parameter optional with the given value.
func Default(v any) ParamOption {
	return func(p *Parameter) {
		p.Default = v
		p.HasDefault = true
	}
}

// Variadic lets the parameter consume between minCount and maxCount
// arguments. Pass Unbounded as maxCount for no upper limit.
func Variadic(minCount, maxCount int) ParamOption {
	return func(p *Parameter) {
		p.Variadic = true
		p.Min = minCount
		p.Max = maxCount
	}
}

// FromReply sources the parameter from the replied-to message.
func FromReply() ParamOption {
	return func(p *Parameter) { p.FromReply = true }
}

// Remaining makes the parameter consume the rest of the text verbatim.
func Remaining() ParamOption {
	return func(p *Parameter) { p.Remaining = true }
}

// Describe sets the help text of the parameter.
func Describe(desc string) ParamOption {
	return func(p *Parameter) { p.Description = desc }
}

// BaseType is the type a converter is looked up for: the element type of
// variadic parameters, Type otherwise.
func (p *Parameter) BaseType() reflect.Type {
	if p.Variadic && (p.Type.Kind() == reflect.Slice || p.Type.Kind() == reflect.Array) {
		return p.Type.Elem()
	}
	return p.Type
}

// Optional reports whether a missing argument is acceptable.
func (p *Parameter) Optional() bool {
	return p.HasDefault || (p.Variadic && p.Min == 0)
}

// Usage renders <name>, [name] or <name...>.
func (p *Parameter) Usage() string {
	name := p.Name
	if p.Variadic || p.Remaining {
		name += "..."
	}
	if p.Optional() {
		return "[" + name + "]"
	}
	return "<" + name + ">"
}

func (p *Parameter) validate() error {
	if p.Name == "" {
		return fmt.Errorf("parameter without a name")
	}
	if p.Type == nil {
		return fmt.Errorf("parameter %q has no type", p.Name)
	}
	if p.Variadic {
		k := p.Type.Kind()
		if k != reflect.Slice && k != reflect.Array {
			return fmt.Errorf("variadic parameter %q must be a slice or array, got %s", p.Name, p.Type)
		}
		if p.Min < 0 || (p.Max != Unbounded && p.Max < p.Min) {
			return fmt.Errorf("variadic parameter %q has invalid bounds %d..%d", p.Name, p.Min, p.Max)
		}
		if k == reflect.Array {
			if p.Min > p.Type.Len() {
				return fmt.Errorf("variadic parameter %q needs %d values but %s holds %d", p.Name, p.Min, p.Type, p.Type.Len())
			}
			if p.Max == Unbounded || p.Max > p.Type.Len() {
				p.Max = p.Type.Len()
			}
		}
		if p.Remaining {
			return fmt.Errorf("parameter %q cannot be both variadic and remaining", p.Name)
		}
	}
	if p.HasDefault && p.Default != nil && !reflect.TypeOf(p.Default).AssignableTo(p.Type) {
		return fmt.Errorf("default of parameter %q is %T, want %s", p.Name, p.Default, p.Type)
	}
	return nil
}
