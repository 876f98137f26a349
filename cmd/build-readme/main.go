package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/keshon/prefixbot/internal/bot"
	"github.com/keshon/prefixbot/internal/config"
	"github.com/keshon/prefixbot/internal/docs"
	"github.com/keshon/prefixbot/pkg/log"
)

func main() {
	prefix := flag.String("prefix", "!", "prefix shown in the command list")
	tmplPath := flag.String("template", "README.md.tmpl", "README template")
	outPath := flag.String("out", "README.md", "output file")
	flag.Parse()

	logger := log.New(os.Stderr, false)

	dir, err := os.MkdirTemp("", "build-readme-")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create temp dir")
	}
	defer os.RemoveAll(dir)

	st, err := bot.OpenStorage(filepath.Join(dir, "datastore.json"), zerolog.Nop())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer st.Close()

	cfg := &config.Config{CommandPrefixes: []string{*prefix}}
	pipeline, err := bot.New(cfg, st, bot.Options{Logger: zerolog.Nop()})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build commands")
	}

	if err := docs.UpdateReadme(pipeline.Registry, *prefix, *tmplPath, *outPath); err != nil {
		logger.Fatal().Err(err).Msg("Failed to update README")
	}
	logger.Info().Str("file", *outPath).Msg("README updated with current commands")
}
