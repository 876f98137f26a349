package discord

import (
	"context"

	"github.com/keshon/prefixbot/pkg/cmd"
)

// PermissionSource adapts a Lookup to the permission middleware.
type PermissionSource struct {
	Lookup Lookup
}

// MemberPermissions returns the author's permissions in the message channel.
func (p PermissionSource) MemberPermissions(ctx context.Context, msg *cmd.Message) (int64, error) {
	return p.Lookup.Permissions(ctx, msg.Author.ID, msg.ChannelID)
}
