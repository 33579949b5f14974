package main

import (
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-browser/internal/search"
	"github.com/Zuo-Peng/ai-session-browser/internal/tui"
)

func listCmd() *cobra.Command {
	var source, since string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Browse all sessions, newest first",
		Long:  `Opens the browser showing every session (newest first). Typing searches conversation text and tmux metadata.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sinceT, err := parseSince(since)
			if err != nil {
				return err
			}
			cfg, cleanup, err := setup(true)
			if err != nil {
				return err
			}
			defer cleanup()

			return tui.Run(cmd.Context(), cfg, "", search.Options{Source: source, Since: sinceT})
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Filter searches by source (claude/codex/generic)")
	cmd.Flags().StringVar(&since, "since", "", "Filter searches to sessions updated since date (YYYY-MM-DD)")

	return cmd
}
