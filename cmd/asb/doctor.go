package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ai-session-browser/internal/auxmeta"
	"github.com/Zuo-Peng/ai-session-browser/internal/errs"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify config, roots, tmux snapshots, and show load stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := setup(false)
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Println("=== Config ===")
			if cfg.Path != "" {
				fmt.Printf("  File: %s\n", cfg.Path)
			} else {
				fmt.Println("  File: (none, using defaults)")
			}
			fmt.Printf("  Extension: %s  max depth: %d  timeout: %s  workers: %d\n",
				cfg.Extension, cfg.MaxDepth, cfg.ScanTimeout.Duration, cfg.Workers)

			fmt.Println("\n=== Roots ===")
			for _, root := range cfg.Roots {
				checkDir(root)
			}

			fmt.Println("\n=== tmux-resurrect ===")
			switch {
			case !cfg.Aux.Enabled:
				fmt.Println("  Status: disabled")
			default:
				recs, src, err := auxmeta.ReadDir(cfg.Aux.ResurrectDir)
				switch {
				case errors.Is(err, errs.ErrNotFound):
					fmt.Printf("  %s: no snapshots\n", cfg.Aux.ResurrectDir)
				case err != nil:
					fmt.Printf("  error: %v\n", err)
				default:
					fmt.Printf("  Snapshot: %s (%d panes)\n", src, len(recs))
				}
			}

			fmt.Println("\n=== Load ===")
			cat, err := loadCatalog(cmd.Context(), cfg)
			if err != nil {
				fmt.Printf("  error: %v\n", err)
				return err
			}
			fmt.Printf("  Sessions: %d\n", len(cat.Sessions))
			fmt.Printf("  %s\n", cat.Stats)
			fmt.Printf("  %s\n", cat.Stats.Detail())
			fmt.Printf("  Elapsed: %s\n", cat.Stats.Elapsed)

			var total int64
			for _, s := range cat.Sessions {
				total += s.Size
			}
			fmt.Printf("  Transcript bytes: %s\n", humanize.IBytes(uint64(total)))
			return nil
		},
	}
}

func checkDir(path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s (NOT FOUND)\n", path)
	} else if !info.IsDir() {
		fmt.Printf("  %s (NOT A DIRECTORY)\n", path)
	} else {
		fmt.Printf("  %s (OK)\n", path)
	}
}
