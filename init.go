package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/phobologic/pydocgen/internal/config"
)

const (
	sentinelStart = "<!-- pydocgen:start -->"
	sentinelEnd   = "<!-- pydocgen:end -->"
)

type initFlags struct {
	dryRun   bool
	force    bool
	agentDoc string
}

func newInitCmd(a *app) *cobra.Command {
	var fl initFlags
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Long: `Init writes a commented pydocgen.toml holding the default settings.
path defaults to ./` + config.FileName + `; an existing file is kept unless --force
is given.

With --agent-doc, a pydocgen usage section is also written to the given
Markdown file (such as CLAUDE.md or AGENTS.md). The section is wrapped in
sentinel comments so later runs update it in place without touching the
surrounding content.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName
			if len(args) > 0 {
				path = args[0]
			}
			return a.writeInit(path, fl)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&fl.dryRun, "dry-run", false, "print what would be written without modifying any file")
	f.BoolVar(&fl.force, "force", false, "overwrite an existing configuration file")
	f.StringVar(&fl.agentDoc, "agent-doc", "", "also write a usage section to this Markdown file")
	return cmd
}

func (a *app) writeInit(path string, fl initFlags) error {
	var buf bytes.Buffer
	if err := config.WriteDefault(&buf); err != nil {
		return err
	}

	if fl.dryRun {
		if _, err := a.stdout.Write(buf.Bytes()); err != nil {
			return err
		}
	} else {
		if _, err := os.Stat(path); err == nil && !fl.force {
			return errors.WithHint(errors.Newf("%s already exists", path), "use --force to overwrite it")
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
		_, _ = fmt.Fprintf(a.stderr, "wrote default configuration to %s\n", path)
	}

	if fl.agentDoc == "" {
		return nil
	}
	existing, err := os.ReadFile(fl.agentDoc)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "reading %s", fl.agentDoc)
	}
	updated := applySection(string(existing), generateSection())
	if fl.dryRun {
		_, _ = fmt.Fprint(a.stdout, updated)
		return nil
	}
	if err := os.WriteFile(fl.agentDoc, []byte(updated), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", fl.agentDoc)
	}
	_, _ = fmt.Fprintf(a.stderr, "wrote pydocgen section to %s\n", fl.agentDoc)
	return nil
}

// generateSection returns the full sentinel-wrapped pydocgen usage block.
func generateSection() string {
	body := `## pydocgen: Python docstrings

Use ` + "`pydocgen`" + ` to check and fill in docstrings instead of writing them by
hand. Settings live in ` + "`" + config.FileName + "`" + `; check availability with
` + "`pydocgen --version`" + ` and skip gracefully if it is not installed.

` + "```" + `bash
pydocgen coverage -n 20 .             # files with the largest documentation gap
pydocgen validate path/to/module.py   # PEP 257 and style findings, exit 1 on errors
pydocgen generate path/to/module.py   # print the module with drafted docstrings
pydocgen generate --write src/        # merge drafts into the files
` + "```" + `

**Rules:**

1. **Validate after editing Python.** Fix every ` + "`error`" + ` row in the ` + "`issues`" + `
   table before finishing; ` + "`warning`" + ` rows are style suggestions.

2. **Review generated docstrings.** Drafts marked ` + "`TODO.`" + ` need a real
   description; ` + "`notes`" + ` rows list problems the backend noticed in the code.

3. **Keep the configured style.** Do not mix Google, NumPy and reST sections
   within one project.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
