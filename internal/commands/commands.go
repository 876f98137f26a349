// Package commands holds the bot's text commands.
package commands

import (
	"fmt"
	"reflect"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/prefixbot/internal/middleware"
	"github.com/keshon/prefixbot/internal/storage"
	"github.com/keshon/prefixbot/pkg/cmd"
)

const (
	categoryInfo     = "🕯️ Information"
	categoryUtility  = "📢 Utilities"
	categoryFun      = "🎲 Fun"
	categorySettings = "⚙️ Settings"
)

// Options configure Register.
type Options struct {
	// Permissions enables permission checks on settings commands; nil
	// disables them (console harness).
	Permissions middleware.PermissionSource
	DeveloperID string
}

// All builds the command tree.
func All(opts Options) []*cmd.Command {
	return []*cmd.Command{
		helpCommand(),
		pingCommand(),
		whoisCommand(),
		echoCommand(),
		quoteCommand(),
		sumCommand(),
		rollCommand(),
		configCommand(opts),
		groupsCommand(opts),
		historyCommand(opts),
	}
}

// ConverterTypes lists the converters defined by commands.
func ConverterTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[DiceConverter]()}
}

// Register adds every command to r and the converters they need to conv.
func Register(r *cmd.Registry, conv *cmd.ConverterRegistry, opts Options) error {
	all := All(opts)
	for _, c := range all {
		if err := r.Register(c); err != nil {
			return fmt.Errorf("register %s: %w", c.Name, err)
		}
	}
	conv.RegisterCandidates(ConverterTypes()...)
	conv.RegisterEnums(all)
	return nil
}

// permissionCheck is empty when permission checks are off.
func permissionCheck(opts Options, perms ...int64) []cmd.Middleware {
	if opts.Permissions == nil {
		return nil
	}
	return []cmd.Middleware{middleware.WithUserPermissionCheck(opts.Permissions, opts.DeveloperID, perms...)}
}

func manageGuild(opts Options) []cmd.Middleware {
	return permissionCheck(opts, discordgo.PermissionManageGuild)
}

func storageOf(c *cmd.Context) (*storage.Storage, error) {
	if c.Services == nil {
		return nil, fmt.Errorf("storage unavailable")
	}
	return cmd.Service[*storage.Storage](c.Services)
}
