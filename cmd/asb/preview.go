package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-browser/internal/render"
)

func previewCmd() *cobra.Command {
	var block, context int
	var query string
	var thinking bool

	cmd := &cobra.Command{
		Use:   "preview <session>",
		Short: "Preview a conversation with context around a block",
		Long:  `<session> is a session id, a unique id prefix, or a transcript path.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := setup(false)
			if err != nil {
				return err
			}
			defer cleanup()

			cat, err := loadCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			s, _, err := cat.Find(args[0])
			if err != nil {
				return err
			}

			out, _ := render.Conversation(s, render.Options{
				HitBlock: block,
				Context:  context,
				Width:    terminalWidth(),
				Query:    query,
				Thinking: thinking,
			})
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&block, "block", -1, "Block index to highlight")
	cmd.Flags().IntVar(&context, "context", 10, "Blocks before/after the highlighted one (-1 = all)")
	cmd.Flags().StringVar(&query, "query", "", "Search query for keyword highlighting")
	cmd.Flags().BoolVar(&thinking, "thinking", false, "Show thinking blocks")

	return cmd
}
