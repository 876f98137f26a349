package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/prefixbot/internal/config"
	"github.com/keshon/prefixbot/pkg/cmd"
)

// Heartbeat is satisfied by *discordgo.Session.
type Heartbeat interface {
	HeartbeatLatency() time.Duration
}

func helpCommand() *cmd.Command {
	return &cmd.Command{
		Name:        "help",
		Aliases:     []string{"h", "commands"},
		Description: "List commands or show how to use one",
		Category:    categoryInfo,
		Parameters: []*cmd.Parameter{
			cmd.Param[[]string]("command", cmd.Variadic(0, cmd.Unbounded), cmd.Describe("command path, e.g. `config set`")),
		},
		Handler: help,
	}
}

func help(ctx context.Context, c *cmd.Context) error {
	words := cmd.MustArg[[]string](c, "command")
	if len(words) == 0 {
		return c.Reply(ctx, overview(c.Registry, c.Prefix, c.GuildID()))
	}

	path := strings.Join(words, " ")
	target := c.Registry.Find(path)
	if target == nil || target.Hidden || !target.AllowedIn(c.GuildID()) {
		return c.Reply(ctx, fmt.Sprintf("No command `%s`. Use `%shelp` to list commands.", path, c.Prefix))
	}
	return c.Reply(ctx, Details(target, c.Prefix))
}

// overview lists top-level commands by category.
func overview(r *cmd.Registry, prefix, guildID string) string {
	var visible []*cmd.Command
	for _, c := range r.GetAll() {
		if !c.Hidden && c.AllowedIn(guildID) {
			visible = append(visible, c)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		wi, wj := config.CategoryWeight(visible[i].Category), config.CategoryWeight(visible[j].Category)
		if wi != wj {
			return wi < wj
		}
		return visible[i].Category < visible[j].Category
	})

	var b strings.Builder
	fmt.Fprintf(&b, "**Commands** (prefix `%s`)\n", prefix)
	current := "\x00"
	for _, c := range visible {
		if c.Category != current {
			current = c.Category
			name := current
			if name == "" {
				name = "Other"
			}
			fmt.Fprintf(&b, "\n__%s__\n", name)
		}
		fmt.Fprintf(&b, "`%s%s` %s\n", prefix, Summary(c), c.Description)
	}
	fmt.Fprintf(&b, "\nUse `%shelp <command>` for details.", prefix)
	return b.String()
}

// Summary is the usage of an executable command, or the group name with its
// subcommands.
func Summary(c *cmd.Command) string {
	if c.Executable() || len(c.Subcommands) == 0 {
		return c.Usage()
	}
	var subs []string
	for _, s := range c.Subcommands {
		if !s.Hidden {
			subs = append(subs, s.Name)
		}
	}
	return c.QualifiedName() + " <" + strings.Join(subs, "|") + ">"
}

// Details renders the help page of one command.
func Details(c *cmd.Command, prefix string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "`%s%s`\n", prefix, Summary(c))
	if c.Description != "" {
		b.WriteString(c.Description + "\n")
	}
	if len(c.Aliases) > 0 {
		fmt.Fprintf(&b, "Aliases: %s\n", strings.Join(c.Aliases, ", "))
	}
	for _, p := range c.Parameters {
		fmt.Fprintf(&b, "• `%s`", p.Usage())
		if p.Description != "" {
			b.WriteString(" " + p.Description)
		}
		if p.FromReply {
			b.WriteString(" (taken from the replied message when replying)")
		}
		if p.HasDefault && p.Default != nil {
			fmt.Fprintf(&b, " (default %v)", p.Default)
		}
		b.WriteString("\n")
	}
	for _, s := range c.Subcommands {
		if s.Hidden {
			continue
		}
		fmt.Fprintf(&b, "› `%s%s`", prefix, Summary(s))
		if s.Default {
			b.WriteString(" (default)")
		}
		if s.Description != "" {
			b.WriteString(" " + s.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func pingCommand() *cmd.Command {
	return &cmd.Command{
		Name:        "ping",
		Description: "Check that the bot is alive",
		Group:       GroupUtility.String(),
		Category:    categoryInfo,
		Handler: func(ctx context.Context, c *cmd.Context) error {
			if c.Services != nil {
				if hb, err := cmd.Service[Heartbeat](c.Services); err == nil {
					return c.Reply(ctx, fmt.Sprintf("Pong! Latency: %dms", hb.HeartbeatLatency().Milliseconds()))
				}
			}
			return c.Reply(ctx, "Pong!")
		},
	}
}

func whoisCommand() *cmd.Command {
	return &cmd.Command{
		Name:        "whois",
		Aliases:     []string{"user"},
		Description: "Show who a member is",
		Group:       GroupUtility.String(),
		Category:    categoryInfo,
		Parameters: []*cmd.Parameter{
			cmd.Param[*discordgo.Member]("member", cmd.Default(nil), cmd.Describe("mention, ID or name; yourself when omitted")),
		},
		Handler: whois,
	}
}

func whois(ctx context.Context, c *cmd.Context) error {
	m := cmd.MustArg[*discordgo.Member](c, "member")
	if m == nil || m.User == nil {
		a := c.Message.Author
		return c.Reply(ctx, fmt.Sprintf("**%s** (ID %s)", a.Username, a.ID))
	}

	var b strings.Builder
	name := m.User.Username
	if m.Nick != "" {
		name = m.Nick + " (" + m.User.Username + ")"
	}
	fmt.Fprintf(&b, "**%s** (ID %s)", name, m.User.ID)
	if m.User.Bot {
		b.WriteString(" 🤖")
	}
	if !m.JoinedAt.IsZero() {
		fmt.Fprintf(&b, "\nJoined: %s", m.JoinedAt.Format(time.DateOnly))
	}
	if len(m.Roles) > 0 {
		fmt.Fprintf(&b, "\nRoles: %d", len(m.Roles))
	}
	return c.Reply(ctx, b.String())
}
