package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Registry stores the command tree. It does not perform dispatch; the
// Dispatcher resolves input against it.
//
// Registration is expected to finish before dispatching starts. Resolve and
// the read accessors are safe for concurrent use as long as nothing registers
// at the same time.
type Registry struct {
	commands      []*Command
	byName        map[string]*Command
	caseSensitive bool
	middlewares   []Middleware
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithCaseSensitive makes name and alias matching case-sensitive.
func WithCaseSensitive() RegistryOption {
	return func(r *Registry) { r.caseSensitive = true }
}

// WithMiddlewares adds middlewares applied to every registered command.
func WithMiddlewares(mws ...Middleware) RegistryOption {
	return func(r *Registry) { r.middlewares = append(r.middlewares, mws...) }
}

// NewRegistry returns an empty registry. Matching is case-insensitive unless
// WithCaseSensitive is given.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{byName: make(map[string]*Command)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register validates a top-level command with its subcommands and adds it.
// mws wrap the handlers of c and all its descendants, inside the registry-wide
// middlewares.
func (r *Registry) Register(c *Command, mws ...Middleware) error {
	if c == nil {
		return fmt.Errorf("nil command")
	}
	key := r.key(c.Name)
	if _, exists := r.byName[key]; exists {
		return fmt.Errorf("command %q already registered", c.Name)
	}

	chain := append(append([]Middleware{}, r.middlewares...), mws...)
	if err := r.prepare(c, nil, chain); err != nil {
		return err
	}

	r.commands = append(r.commands, c)
	r.byName[key] = c
	return nil
}

// Unregister removes a top-level command. It reports whether one was removed.
func (r *Registry) Unregister(name string) bool {
	c, ok := r.byName[r.key(name)]
	if !ok {
		return false
	}
	delete(r.byName, r.key(name))
	for i, existing := range r.commands {
		if existing == c {
			r.commands = append(r.commands[:i], r.commands[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the top-level command with the given name or alias, or nil.
func (r *Registry) Get(name string) *Command {
	return r.lookupTop(name)
}

// GetAll returns the top-level commands sorted by name.
func (r *Registry) GetAll() []*Command {
	list := make([]*Command, len(r.commands))
	copy(list, r.commands)
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

// Find follows a space-separated path of names or aliases without guild
// scoping or default subcommands. It returns nil if any word does not match.
func (r *Registry) Find(path string) *Command {
	words := strings.Fields(path)
	if len(words) == 0 {
		return nil
	}
	c := r.Get(words[0])
	for _, w := range words[1:] {
		if c == nil {
			return nil
		}
		c = r.lookup(c.Subcommands, w, nil)
	}
	return c
}

// Walk visits every command depth-first in name order.
func (r *Registry) Walk(fn func(c *Command) error) error {
	var visit func(cmds []*Command) error
	visit = func(cmds []*Command) error {
		sorted := make([]*Command, len(cmds))
		copy(sorted, cmds)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
		for _, c := range sorted {
			if err := fn(c); err != nil {
				return err
			}
			if err := visit(c.Subcommands); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(r.commands)
}

// Resolution is the outcome of walking the tree for an input line.
type Resolution struct {
	Command *Command
	// Consumed is the byte offset in the input where the arguments begin.
	Consumed int
	// Path holds the matched words as typed.
	Path []string
}

// Resolve finds the command invoked by text, the input with the prefix
// already removed. Subcommands are matched greedily; exact names win over
// aliases at every level. A group without a handler falls back to its default
// subcommand without consuming any more text.
func (r *Registry) Resolve(text, guildID string) (Resolution, error) {
	word, next, ok := NextWord(text, 0)
	if !ok {
		return Resolution{}, &NotFoundError{}
	}

	top := r.lookupTop(word)
	if top == nil || !top.AllowedIn(guildID) {
		return Resolution{}, &NotFoundError{Token: word}
	}

	res := Resolution{Command: top, Consumed: next, Path: []string{word}}
	allowed := func(c *Command) bool { return c.AllowedIn(guildID) }
	for {
		word, next, ok := NextWord(text, res.Consumed)
		if !ok {
			break
		}
		sub := r.lookup(res.Command.Subcommands, word, allowed)
		if sub == nil {
			break
		}
		res.Command = sub
		res.Consumed = next
		res.Path = append(res.Path, word)
	}

	for !res.Command.Executable() {
		def := res.Command.DefaultSubcommand()
		if def == nil || !def.AllowedIn(guildID) {
			return res, &NotExecutableError{Command: res.Command}
		}
		res.Command = def
	}
	return res, nil
}

// lookupTop uses the name table first and falls back to scanning aliases.
func (r *Registry) lookupTop(word string) *Command {
	if c, ok := r.byName[r.key(word)]; ok {
		return c
	}
	return r.lookup(r.commands, word, nil)
}

// lookup finds a command by exact name first, then by alias in declaration
// order. filter, when set, skips commands that are not eligible.
func (r *Registry) lookup(cmds []*Command, word string, filter func(*Command) bool) *Command {
	for _, c := range cmds {
		if r.equal(c.Name, word) && (filter == nil || filter(c)) {
			return c
		}
	}
	for _, c := range cmds {
		if filter != nil && !filter(c) {
			continue
		}
		for _, alias := range c.Aliases {
			if r.equal(alias, word) {
				return c
			}
		}
	}
	return nil
}

func (r *Registry) prepare(c *Command, parent *Command, chain []Middleware) error {
	if err := validName(c.Name); err != nil {
		return err
	}
	for _, alias := range c.Aliases {
		if err := validName(alias); err != nil {
			return fmt.Errorf("alias of %q: %w", c.Name, err)
		}
	}
	c.parent = parent

	for _, p := range c.Parameters {
		if err := p.validate(); err != nil {
			return fmt.Errorf("command %q: %w", c.QualifiedName(), err)
		}
	}

	chain = append(append([]Middleware{}, chain...), c.Middlewares...)
	if c.Handler != nil {
		c.run = Apply(c.Handler, chain...)
	}

	seen := make(map[string]bool, len(c.Subcommands))
	for _, sub := range c.Subcommands {
		key := r.key(sub.Name)
		if seen[key] {
			return fmt.Errorf("command %q has duplicate subcommand %q", c.QualifiedName(), sub.Name)
		}
		seen[key] = true
		if err := r.prepare(sub, c, chain); err != nil {
			return err
		}
	}

	if !c.Executable() && len(c.Subcommands) == 0 {
		return fmt.Errorf("command %q has neither a handler nor subcommands", c.QualifiedName())
	}
	return nil
}

// Run executes the command body wrapped in its middlewares.
func (c *Command) Run(ctx context.Context, cc *Context) error {
	if c.run != nil {
		return c.run(ctx, cc)
	}
	if c.Handler != nil {
		return c.Handler(ctx, cc)
	}
	return &NotExecutableError{Command: c}
}

func (r *Registry) key(name string) string {
	if r.caseSensitive {
		return name
	}
	return strings.ToLower(name)
}

func (r *Registry) equal(a, b string) bool {
	if r.caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("command name is empty")
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return fmt.Errorf("command name %q contains whitespace", name)
	}
	return nil
}
