package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/keshon/prefixbot/internal/config"
	"github.com/keshon/prefixbot/pkg/log"
)

var (
	debug       bool
	prefix      string
	storagePath string
)

var rootCmd = &cobra.Command{
	Use:   "prefixbot-cli",
	Short: "Run bot commands from a terminal",
	Long: `prefixbot-cli feeds typed lines through the same command pipeline the
Discord bot uses. Replies are printed to stdout. Discord-only checks such as
member permissions are off.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&prefix, "prefix", "p", "!", "command prefix")
	rootCmd.PersistentFlags().StringVar(&storagePath, "storage", "", "datastore file (default: a temporary file)")
}

func setupLogger(ctx context.Context) (context.Context, func()) {
	return log.NewContextWithLogger(ctx, debug)
}

// consoleConfig is the configuration the console runs with. DISCORD_TOKEN is
// not needed here, so the environment is not parsed.
func consoleConfig() (*config.Config, func(), error) {
	path := storagePath
	cleanup := func() {}
	if path == "" {
		dir, err := os.MkdirTemp("", "prefixbot-cli-")
		if err != nil {
			return nil, nil, err
		}
		path = filepath.Join(dir, "datastore.json")
		cleanup = func() { os.RemoveAll(dir) }
	}
	return &config.Config{
		CommandPrefixes: []string{prefix},
		StoragePath:     path,
		Debug:           debug,
	}, cleanup, nil
}
