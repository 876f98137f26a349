package cmd

import (
	"context"
)

// User is the author of a message.
type User struct {
	ID       string
	Username string
	Bot      bool
}

// Message is the transport-neutral view of an inbound chat message. Raw holds
// the transport's own message value (e.g. *discordgo.Message) for converters
// that need more than the text.
type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	Content   string
	Author    User

	// Reply is the message this one replies to, if any.
	Reply *Message
	// LoadReply fetches Reply when the transport did not deliver it. The
	// dispatcher calls it at most once, after the prefix matched.
	LoadReply func(ctx context.Context) *Message

	Raw any
}

// Responder sends text back to where a message came from. Transports inject
// one so commands never import them directly.
type Responder interface {
	Reply(ctx context.Context, msg *Message, content string) error
}

// Context is what a command handler receives.
type Context struct {
	Command   *Command
	Arguments *Arguments
	Message   *Message

	// Prefix is the part of the content consumed by the prefix resolver.
	Prefix string
	// Path holds the words that selected Command, as typed by the user.
	Path []string
	// RawArguments is the primary text left after the command path.
	RawArguments string

	Registry  *Registry
	Services  ServiceResolver
	Responder Responder
}

// Reply answers in the channel of the invoking message.
func (c *Context) Reply(ctx context.Context, content string) error {
	if c.Responder == nil {
		return nil
	}
	return c.Responder.Reply(ctx, c.Message, content)
}

// GuildID is a shortcut for the invoking message's guild.
func (c *Context) GuildID() string {
	if c.Message == nil {
		return ""
	}
	return c.Message.GuildID
}

// Arg returns the converted value of the named parameter. ok is false when the
// parameter does not exist, was not converted, or holds another type.
func Arg[T any](c *Context, name string) (T, bool) {
	var zero T
	if c == nil || c.Arguments == nil {
		return zero, false
	}
	r, found := c.Arguments.Lookup(name)
	if !found || r.Kind != Converted {
		return zero, false
	}
	if r.Value == nil {
		return zero, true
	}
	v, ok := r.Value.(T)
	return v, ok
}

// MustArg is Arg for parameters the dispatcher guarantees: required ones, or
// ones with a default.
func MustArg[T any](c *Context, name string) T {
	v, _ := Arg[T](c, name)
	return v
}
