package discord

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/prefixbot/pkg/cmd"
)

// Reporter answers failed dispatches and failed executions in the channel
// they came from.
type Reporter struct {
	responder cmd.Responder
	log       zerolog.Logger
	timeout   time.Duration
}

func NewReporter(responder cmd.Responder, logger zerolog.Logger) *Reporter {
	return &Reporter{responder: responder, log: logger, timeout: 10 * time.Second}
}

// Attach subscribes the reporter to d's events.
func (r *Reporter) Attach(d *cmd.Dispatcher) {
	d.OnError(r.onError)
	d.OnExecuted(r.onExecuted)
}

func (r *Reporter) onError(ev cmd.ErrorEvent) {
	text := DescribeError(ev.Err, ev.Command, ev.Prefix)
	if text == "" {
		return
	}
	r.reply(ev.Message, text)
}

func (r *Reporter) onExecuted(ev cmd.ExecutedEvent) {
	if ev.Err == nil {
		return
	}
	name := ev.Context.Command.QualifiedName()
	r.log.Error().Err(ev.Err).Str("command", name).Str("guild", ev.Context.GuildID()).Msg("Command failed")
	if errors.Is(ev.Err, cmd.ErrPanic) {
		r.reply(ev.Context.Message, fmt.Sprintf("Error running `%s%s`: internal error.", ev.Context.Prefix, name))
		return
	}
	r.reply(ev.Context.Message, fmt.Sprintf("Error running `%s%s`: %v", ev.Context.Prefix, name, ev.Err))
}

func (r *Reporter) reply(msg *cmd.Message, text string) {
	if r.responder == nil || msg == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.responder.Reply(ctx, msg, text); err != nil {
		r.log.Warn().Err(err).Str("channel", msg.ChannelID).Msg("Failed to send error reply")
	}
}

// DescribeError renders a dispatch failure for users. It returns "" for
// input that only consisted of the prefix.
func DescribeError(err error, c *cmd.Command, prefix string) string {
	var (
		notFound *cmd.NotFoundError
		notExec  *cmd.NotExecutableError
		argErr   *cmd.ArgumentError
		countErr *cmd.CountMismatchError
	)
	switch {
	case errors.As(err, &notFound):
		if notFound.Token == "" {
			return ""
		}
		return fmt.Sprintf("Unknown command `%s`. Use `%shelp` to list commands.", notFound.Token, prefix)

	case errors.As(err, &notExec):
		var subs []string
		for _, s := range notExec.Command.Subcommands {
			if !s.Hidden {
				subs = append(subs, "`"+s.Name+"`")
			}
		}
		return fmt.Sprintf("`%s%s` needs a subcommand: %s.", prefix, notExec.Command.QualifiedName(), strings.Join(subs, ", "))

	case errors.As(err, &argErr):
		p := argErr.Parameter
		head := fmt.Sprintf("Argument #%d `%s`", argErr.Position+1, p.Name)
		usage := ""
		if c != nil {
			usage = fmt.Sprintf("\nUsage: `%s%s`", prefix, c.Usage())
		}
		res := argErr.Result
		switch {
		case res.Kind == cmd.NotAttempted:
			return fmt.Sprintf("Missing argument #%d `%s`.%s", argErr.Position+1, p.Name, usage)
		case errors.As(res.Err, &countErr):
			return fmt.Sprintf("%s: %s.%s", head, countErr, usage)
		case errors.Is(res.Err, cmd.ErrNoConverter):
			return fmt.Sprintf("%s cannot be read: this bot does not understand %s values.", head, p.BaseType())
		case errors.Is(res.Err, cmd.ErrPanic):
			return fmt.Sprintf("%s: could not read `%s`: internal error.", head, res.Raw)
		case res.Err != nil:
			return fmt.Sprintf("%s: could not read `%s`: %v", head, res.Raw, res.Err)
		}
		after := ""
		if p.Variadic && len(res.Offending) > 0 {
			after = fmt.Sprintf(" (after %d valid values)", len(res.Offending))
		}
		return fmt.Sprintf("%s: `%s` is not a valid %s%s.%s", head, res.Raw, TypeHint(p.BaseType()), after, usage)
	}
	return fmt.Sprintf("Cannot run that: %v", err)
}

var hints = map[reflect.Type]string{
	reflect.TypeFor[time.Duration]():      "duration (e.g. 1h30m, 2d)",
	reflect.TypeFor[*discordgo.User]():    "user",
	reflect.TypeFor[*discordgo.Member]():  "member of this server",
	reflect.TypeFor[*discordgo.Channel](): "channel",
	reflect.TypeFor[*discordgo.Role]():    "role",
	reflect.TypeFor[*discordgo.Message](): "message link or ID",
}

// TypeHint names t the way users understand it.
func TypeHint(t reflect.Type) string {
	if h, ok := hints[t]; ok {
		return h
	}
	if e, ok := reflect.Zero(t).Interface().(cmd.Enum); ok {
		var names []string
		for _, v := range e.EnumValues() {
			names = append(names, fmt.Sprint(v))
		}
		return "choice (" + strings.Join(names, ", ") + ")"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "whole number"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "non-negative whole number"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "yes/no value"
	}
	return strings.ToLower(t.Name())
}
