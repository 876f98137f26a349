// Package docs renders the command reference in README.md.
package docs

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/keshon/prefixbot/internal/commands"
	"github.com/keshon/prefixbot/internal/config"
	"github.com/keshon/prefixbot/pkg/cmd"
)

// CommandSections lists visible commands as Markdown, one section per
// category ordered by config.CategoryWeight. Subcommands are nested; commands
// scoped to particular guilds are left out.
func CommandSections(registry *cmd.Registry, prefix string) string {
	var visible []*cmd.Command
	for _, c := range registry.GetAll() {
		if !c.Hidden && len(c.GuildIDs) == 0 {
			visible = append(visible, c)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		wi, wj := config.CategoryWeight(visible[i].Category), config.CategoryWeight(visible[j].Category)
		if wi != wj {
			return wi < wj
		}
		if visible[i].Category != visible[j].Category {
			return visible[i].Category < visible[j].Category
		}
		return visible[i].Name < visible[j].Name
	})

	var buf bytes.Buffer
	current := "\x00"
	for _, c := range visible {
		if c.Category != current {
			if current != "\x00" {
				buf.WriteString("\n")
			}
			current = c.Category
			name := current
			if name == "" {
				name = "Other"
			}
			fmt.Fprintf(&buf, "### %s\n\n", name)
		}
		writeCommand(&buf, c, prefix, 0)
	}
	return buf.String()
}

func writeCommand(buf *bytes.Buffer, c *cmd.Command, prefix string, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(buf, "%s- **`%s%s`**", indent, prefix, commands.Summary(c))
	if c.Description != "" {
		buf.WriteString(" - " + c.Description)
	}
	if len(c.GuildIDs) > 0 {
		buf.WriteString(" _(selected servers only)_")
	}
	buf.WriteString("\n")
	for _, s := range c.Subcommands {
		if !s.Hidden {
			writeCommand(buf, s, prefix, depth+1)
		}
	}
}

// UpdateReadme executes the template at tmplPath with CommandSections and
// writes the result to outPath.
func UpdateReadme(registry *cmd.Registry, prefix, tmplPath, outPath string) error {
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		return fmt.Errorf("parse readme template: %w", err)
	}

	data := struct {
		Prefix          string
		CommandSections string
	}{
		Prefix:          prefix,
		CommandSections: CommandSections(registry, prefix),
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return fmt.Errorf("render readme: %w", err)
	}
	return os.WriteFile(outPath, out.Bytes(), 0o644)
}
