package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-browser/internal/render"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <session>",
		Short: "Show statistics and conversation insights for a session",
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
			fmt.Print(render.Summary(s))
			return nil
		},
	}
}
