// Package console feeds text commands typed on a terminal through the same
// dispatcher the Discord binary uses.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/keshon/prefixbot/pkg/cmd"
)

// Responder prints replies, one block per reply.
type Responder struct {
	mu sync.Mutex
	w  io.Writer
}

func NewResponder(w io.Writer) *Responder {
	return &Responder{w: w}
}

func (r *Responder) Reply(_ context.Context, _ *cmd.Message, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintln(r.w, content)
	return err
}

// Session plays one user typing in one channel.
type Session struct {
	Dispatcher *cmd.Dispatcher
	GuildID    string
	ChannelID  string
	Author     cmd.User

	log     zerolog.Logger
	seq     int
	pending *cmd.Message
}

func NewSession(d *cmd.Dispatcher, guildID string, author cmd.User, logger zerolog.Logger) *Session {
	return &Session{
		Dispatcher: d,
		GuildID:    guildID,
		ChannelID:  "console",
		Author:     author,
		log:        logger,
	}
}

// Send dispatches content as a new message. A line starting with ">" is not
// dispatched; it becomes the message the next command replies to.
func (s *Session) Send(ctx context.Context, content string) cmd.State {
	if rest, ok := strings.CutPrefix(content, ">"); ok {
		s.pending = s.message(strings.TrimSpace(rest), cmd.User{ID: "0", Username: "someone"})
		return cmd.StateFilteredOut
	}

	msg := s.message(content, s.Author)
	msg.Reply, s.pending = s.pending, nil

	state := s.Dispatcher.Dispatch(ctx, msg)
	s.log.Debug().Str("content", content).Stringer("state", state).Msg("Line dispatched")
	return state
}

// Run sends every non-empty line of in until EOF or ctx ends.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.Send(ctx, line)
	}
	return scanner.Err()
}

func (s *Session) message(content string, author cmd.User) *cmd.Message {
	s.seq++
	return &cmd.Message{
		ID:        strconv.Itoa(s.seq),
		ChannelID: s.ChannelID,
		GuildID:   s.GuildID,
		Content:   content,
		Author:    author,
	}
}
