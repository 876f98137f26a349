package commands

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/prefixbot/internal/middleware"
	"github.com/keshon/prefixbot/pkg/cmd"
)

// Group is a set of commands a guild can switch off.
type Group string

const (
	GroupUtility    Group = "utility"
	GroupFun        Group = "fun"
	GroupModeration Group = "moderation"
)

func (g Group) String() string { return string(g) }

func (Group) EnumValues() []any {
	return []any{GroupUtility, GroupFun, GroupModeration}
}

const maxPrefixLength = 5

func configCommand(opts Options) *cmd.Command {
	return &cmd.Command{
		Name:        "config",
		Aliases:     []string{"settings"},
		Description: "Show or change the bot's settings for this server",
		Category:    categorySettings,
		Middlewares: []cmd.Middleware{middleware.WithGuildOnly()},
		Subcommands: []*cmd.Command{
			{
				Name:        "get",
				Aliases:     []string{"show"},
				Description: "Show the current settings",
				Default:     true,
				Handler:     configGet,
			},
			{
				Name:        "set",
				Description: "Change a setting",
				Middlewares: manageGuild(opts),
				Subcommands: []*cmd.Command{
					{
						Name:        "prefix",
						Description: "Use a custom command prefix",
						Parameters: []*cmd.Parameter{
							cmd.Param[string]("prefix", cmd.Describe(fmt.Sprintf("up to %d characters", maxPrefixLength))),
						},
						Handler: configSetPrefix,
					},
				},
			},
			{
				Name:        "reset",
				Description: "Go back to the default prefix",
				Middlewares: manageGuild(opts),
				Handler:     configReset,
			},
		},
	}
}

func configGet(ctx context.Context, c *cmd.Context) error {
	st, err := storageOf(c)
	if err != nil {
		return err
	}
	prefix, err := st.GetPrefix(c.GuildID())
	if err != nil {
		return err
	}
	disabled, err := st.GetDisabledGroups(c.GuildID())
	if err != nil {
		return err
	}

	if prefix == "" {
		prefix = "default"
	} else {
		prefix = "`" + prefix + "`"
	}
	groups := "none"
	if len(disabled) > 0 {
		groups = strings.Join(disabled, ", ")
	}
	return c.Reply(ctx, fmt.Sprintf("**Settings**\nPrefix: %s\nDisabled groups: %s", prefix, groups))
}

func configSetPrefix(ctx context.Context, c *cmd.Context) error {
	prefix := strings.TrimSpace(cmd.MustArg[string](c, "prefix"))
	if prefix == "" || utf8.RuneCountInString(prefix) > maxPrefixLength || strings.ContainsAny(prefix, " \t\n`") {
		return c.Reply(ctx, fmt.Sprintf("A prefix has 1 to %d characters without spaces or backticks.", maxPrefixLength))
	}
	st, err := storageOf(c)
	if err != nil {
		return err
	}
	if err := st.SetPrefix(c.GuildID(), prefix); err != nil {
		return err
	}
	return c.Reply(ctx, fmt.Sprintf("Prefix set to `%s`. Try `%shelp`.", prefix, prefix))
}

func configReset(ctx context.Context, c *cmd.Context) error {
	st, err := storageOf(c)
	if err != nil {
		return err
	}
	if err := st.SetPrefix(c.GuildID(), ""); err != nil {
		return err
	}
	return c.Reply(ctx, "Prefix reset to the default.")
}

func groupsCommand(opts Options) *cmd.Command {
	groupParam := func() *cmd.Parameter {
		return cmd.Param[Group]("group", cmd.Describe("one of utility, fun, moderation"))
	}
	return &cmd.Command{
		Name:        "groups",
		Description: "List, enable or disable command groups",
		Category:    categorySettings,
		Middlewares: []cmd.Middleware{middleware.WithGuildOnly()},
		Subcommands: []*cmd.Command{
			{
				Name:        "list",
				Description: "Show every group and whether it is enabled",
				Default:     true,
				Handler:     groupsList,
			},
			{
				Name:        "enable",
				Aliases:     []string{"on"},
				Description: "Enable a command group",
				Middlewares: manageGuild(opts),
				Parameters:  []*cmd.Parameter{groupParam()},
				Handler:     groupsToggle(true),
			},
			{
				Name:        "disable",
				Aliases:     []string{"off"},
				Description: "Disable a command group",
				Middlewares: manageGuild(opts),
				Parameters:  []*cmd.Parameter{groupParam()},
				Handler:     groupsToggle(false),
			},
		},
	}
}

func groupsList(ctx context.Context, c *cmd.Context) error {
	st, err := storageOf(c)
	if err != nil {
		return err
	}

	members := make(map[string][]string)
	_ = c.Registry.Walk(func(cm *cmd.Command) error {
		if g := middleware.GroupOf(cm); g != "" && cm.Executable() {
			members[g] = append(members[g], cm.QualifiedName())
		}
		return nil
	})

	var b strings.Builder
	b.WriteString("**Command groups**\n")
	for _, v := range Group("").EnumValues() {
		g := v.(Group)
		disabled, err := st.IsGroupDisabled(c.GuildID(), g.String())
		if err != nil {
			return err
		}
		state := "✅"
		if disabled {
			state = "⛔"
		}
		fmt.Fprintf(&b, "%s `%s`: %s\n", state, g, strings.Join(members[g.String()], ", "))
	}
	return c.Reply(ctx, strings.TrimRight(b.String(), "\n"))
}

func groupsToggle(enable bool) cmd.Handler {
	return func(ctx context.Context, c *cmd.Context) error {
		g := cmd.MustArg[Group](c, "group")
		st, err := storageOf(c)
		if err != nil {
			return err
		}
		if enable {
			if err := st.EnableGroup(c.GuildID(), g.String()); err != nil {
				return err
			}
			return c.Reply(ctx, fmt.Sprintf("Group `%s` enabled.", g))
		}
		if err := st.DisableGroup(c.GuildID(), g.String()); err != nil {
			return err
		}
		return c.Reply(ctx, fmt.Sprintf("Group `%s` disabled.", g))
	}
}

func historyCommand(opts Options) *cmd.Command {
	return &cmd.Command{
		Name:        "history",
		Aliases:     []string{"log"},
		Description: "Show the most recent commands used on this server",
		Group:       GroupModeration.String(),
		Category:    categorySettings,
		Middlewares: append(
			[]cmd.Middleware{middleware.WithGuildOnly()},
			permissionCheck(opts, discordgo.PermissionManageMessages, discordgo.PermissionManageGuild)...,
		),
		Parameters: []*cmd.Parameter{
			cmd.Param[int]("limit", cmd.Default(10), cmd.Describe("how many entries, at most 50")),
		},
		Handler: history,
	}
}

func history(ctx context.Context, c *cmd.Context) error {
	limit := min(max(cmd.MustArg[int](c, "limit"), 1), 50)
	st, err := storageOf(c)
	if err != nil {
		return err
	}
	entries, err := st.FetchCommandHistory(c.GuildID(), limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return c.Reply(ctx, "No commands recorded yet.")
	}

	var b strings.Builder
	b.WriteString("**Recent commands**\n")
	for _, e := range entries {
		line := e.Command
		if e.Arguments != "" {
			line += " " + e.Arguments
		}
		fmt.Fprintf(&b, "`%s` %s: `%s%s`\n", e.Datetime.Format(time.DateTime), e.Username, c.Prefix, line)
	}
	return c.Reply(ctx, strings.TrimRight(b.String(), "\n"))
}
