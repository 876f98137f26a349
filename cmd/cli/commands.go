package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/keshon/prefixbot/internal/bot"
	"github.com/keshon/prefixbot/internal/docs"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the registered commands",
	RunE: func(c *cobra.Command, _ []string) error {
		cfg, cleanup, err := consoleConfig()
		if err != nil {
			return err
		}
		defer cleanup()

		st, err := bot.OpenStorage(cfg.StoragePath, zerolog.Nop())
		if err != nil {
			return err
		}
		defer st.Close()

		pipeline, err := bot.New(cfg, st, bot.Options{Logger: zerolog.Nop()})
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(c.OutOrStdout(), docs.CommandSections(pipeline.Registry, prefix))
		return err
	},
}

func init() {
	rootCmd.AddCommand(commandsCmd)
}
