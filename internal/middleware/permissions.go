package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/prefixbot/pkg/cmd"
)

// PermissionNames renders permission bits in refusal messages.
var PermissionNames = map[int64]string{
	discordgo.PermissionCreateInstantInvite: "Create Instant Invite",
	discordgo.PermissionKickMembers:         "Kick Members",
	discordgo.PermissionBanMembers:          "Ban Members",
	discordgo.PermissionAdministrator:       "Administrator",
	discordgo.PermissionManageChannels:      "Manage Channels",
	discordgo.PermissionManageGuild:         "Manage Server",
	discordgo.PermissionAddReactions:        "Add Reactions",
	discordgo.PermissionViewAuditLogs:       "View Audit Logs",
	discordgo.PermissionViewChannel:         "View Channel",
	discordgo.PermissionSendMessages:        "Send Messages",
	discordgo.PermissionManageMessages:      "Manage Messages",
	discordgo.PermissionEmbedLinks:          "Embed Links",
	discordgo.PermissionAttachFiles:         "Attach Files",
	discordgo.PermissionReadMessageHistory:  "Read Message History",
	discordgo.PermissionMentionEveryone:     "Mention Everyone",
	discordgo.PermissionManageThreads:       "Manage Threads",
	discordgo.PermissionManageNicknames:     "Manage Nicknames",
	discordgo.PermissionManageRoles:         "Manage Roles",
	discordgo.PermissionManageWebhooks:      "Manage Webhooks",
	discordgo.PermissionModerateMembers:     "Moderate Members",
}

// PermissionSource returns the permissions the author of msg has in the
// message's channel.
type PermissionSource interface {
	MemberPermissions(ctx context.Context, msg *cmd.Message) (int64, error)
}

// WithUserPermissionCheck lets the command run when the author holds at least
// one of required, is an administrator, or is the developer. It is meant for
// Command.Middlewares of the commands that need it.
func WithUserPermissionCheck(source PermissionSource, developerID string, required ...int64) cmd.Middleware {
	return func(next cmd.Handler) cmd.Handler {
		return func(ctx context.Context, c *cmd.Context) error {
			if len(required) == 0 || c.GuildID() == "" {
				return next(ctx, c)
			}
			if developerID != "" && c.Message.Author.ID == developerID {
				return next(ctx, c)
			}

			perms, err := source.MemberPermissions(ctx, c.Message)
			if err != nil {
				return fmt.Errorf("failed to get user permissions: %w", err)
			}
			if perms&discordgo.PermissionAdministrator != 0 {
				return next(ctx, c)
			}
			for _, p := range required {
				if perms&p != 0 {
					return next(ctx, c)
				}
			}
			return c.Reply(ctx, fmt.Sprintf(
				"You need at least one of the following permissions to run this command:\n`%s`",
				strings.Join(PermissionList(required), "`, `"),
			))
		}
	}
}

// PermissionList names each permission bit.
func PermissionList(perms []int64) []string {
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		name := PermissionNames[p]
		if name == "" {
			name = fmt.Sprintf("0x%x", p)
		}
		names = append(names, name)
	}
	return names
}
