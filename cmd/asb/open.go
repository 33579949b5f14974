package main

import (
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-browser/internal/open"
)

func openCmd() *cobra.Command {
	var block int

	cmd := &cobra.Command{
		Use:   "open <session>",
		Short: "Open the transcript file in $EDITOR at a block's line",
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
			return open.Session(s, block)
		},
	}

	cmd.Flags().IntVar(&block, "block", -1, "Block index to jump to")

	return cmd
}
