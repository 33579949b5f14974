package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-browser/internal/search"
	"github.com/Zuo-Peng/ai-session-browser/internal/tui"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorGreen   = "\033[1;32m"
	sColorDim     = "\033[2m"
)

func colorizeSource(source string) string {
	switch source {
	case "claude":
		return sColorBlue + source + sColorReset
	case "codex":
		return sColorGreen + source + sColorReset
	default:
		return source
	}
}

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

// tsvField flattens a value so it cannot break the TSV layout.
func tsvField(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}

func parseSince(since string) (time.Time, error) {
	if since == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", since, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("--since wants YYYY-MM-DD: %w", err)
	}
	return t, nil
}

func searchCmd() *cobra.Command {
	var source, role, since string
	var limit int
	var ansi bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search conversations and terminal metadata",
		Long: `Search every transcript block plus the tmux session name, command and
directory attached to each session. On a terminal this opens the browser;
piped output is TSV for fzf integration:
  sessionId, block, score, source, snippet

Recommended shell function (add to .zshrc):
  asbf() {
    asb search --ansi "$*" | fzf \
      --ansi \
      --delimiter='\t' --with-nth=4.. \
      --preview 'asb preview {1} --block {2} --context 5 --query {q}' \
      --preview-window=right:60%:wrap \
      --bind 'enter:execute(asb open {1} --block {2})'
  }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sinceT, err := parseSince(since)
			if err != nil {
				return err
			}
			opts := search.Options{
				Source: source,
				Role:   role,
				Since:  sinceT,
				Limit:  limit,
			}

			// Interactive TUI when stdout is a terminal; TSV output for pipes
			interactive := isTerminal(os.Stdout)
			cfg, cleanup, err := setup(interactive)
			if err != nil {
				return err
			}
			defer cleanup()

			if interactive {
				return tui.Run(cmd.Context(), cfg, args[0], opts)
			}

			cat, err := loadCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			opts.Query = args[0]
			matches := search.New(cfg.Search).Search(search.NewIndex(cat.Sessions), opts)
			if len(matches) == 0 {
				fmt.Fprintln(os.Stderr, "No results found.")
				return nil
			}

			for _, m := range matches {
				s := cat.Sessions[m.SessionIndex]
				snippet := tsvField(m.Snippet)
				src := m.Source.String()
				if ansi {
					snippet = colorizeSnippet(snippet)
					src = sColorDim + src + sColorReset + " " + colorizeSource(s.Source)
				}
				// first two fields (id, block) stay plain for fzf {1} {2}
				fmt.Printf("%s\t%d\t%d\t%s\t%s\n", s.ID, m.BlockIndex, m.Score, src, snippet)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Filter by source (claude/codex/generic)")
	cmd.Flags().StringVar(&role, "role", "", "Filter blocks by role (user/assistant/tool/system)")
	cmd.Flags().StringVar(&since, "since", "", "Filter sessions updated since date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max results (0 = configured limit)")
	cmd.Flags().BoolVar(&ansi, "ansi", false, "Colorize output for fzf --ansi")

	return cmd
}
