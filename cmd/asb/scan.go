package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func scanCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan and parse every transcript root and report what was found",
		Long: `Loads every configured root and prints one TSV line per session:
  id, source, blocks, size, updated, path

The summary ("N scanned, M skipped") goes to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := setup(false)
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Fprintf(os.Stderr, "Scanning roots: %s\n", strings.Join(cfg.Roots, ", "))
			cat, err := loadCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			for _, s := range cat.Sessions {
				fmt.Printf("%s\t%s\t%d\t%s\t%s\t%s\n",
					s.ID,
					s.Source,
					len(s.Blocks),
					humanize.IBytes(uint64(s.Size)),
					s.UpdatedAt.Local().Format("2006-01-02 15:04"),
					s.Path,
				)
			}

			fmt.Fprintf(os.Stderr, "Done. %s\n", cat.Stats)
			if verbose {
				fmt.Fprintf(os.Stderr, "  %s\n", cat.Stats.Detail())
				if cat.AuxSource != "" {
					fmt.Fprintf(os.Stderr, "  tmux snapshot: %s\n", cat.AuxSource)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed load counters")
	return cmd
}
