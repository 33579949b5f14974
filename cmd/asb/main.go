package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/ai-session-browser/internal/catalog"
	"github.com/Zuo-Peng/ai-session-browser/internal/config"
	"github.com/Zuo-Peng/ai-session-browser/internal/errs"
	"github.com/Zuo-Peng/ai-session-browser/internal/logging"
)

var version = "dev"

// Persistent flags.
var (
	configPath string
	logLevel   string
	logToFile  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "asb",
		Short:         "AI Session Browser - browse and search Claude Code and Codex transcripts",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $ASB_CONFIG or ~/.config/asb/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log-file", false, "log to the configured file instead of stderr")

	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(openCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(doctorCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "asb:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 3 for a scan timeout, which a larger scan_timeout may
// fix, 2 for a missing or unreadable root, and 1 for anything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errs.KindOf(err) == errs.KindScanTimeout:
		return 3
	case errs.Terminal(err):
		return 2
	}
	return 1
}

// setup loads the config and installs the logger. Interactive commands
// log to the configured file so the TUI keeps the terminal.
func setup(interactive bool) (*config.Config, func(), error) {
	path := configPath
	if path == "" {
		path = os.Getenv(config.EnvPath)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	lc := logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}
	if logLevel != "" {
		lc.Level = logLevel
	}
	if interactive || logToFile {
		lc.File = cfg.LogFile
	}
	cleanup, err := logging.Setup(lc)
	if err != nil {
		return nil, nil, err
	}
	return cfg, cleanup, nil
}

// loadCatalog runs the load pipeline, drawing a progress line on stderr
// when it is a terminal.
func loadCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, error) {
	var opts catalog.Options
	tty := term.IsTerminal(int(os.Stderr.Fd()))
	if tty {
		opts.OnProgress = progressPrinter()
	}
	cat, err := catalog.Load(ctx, cfg, opts)
	if tty {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
	return cat, err
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}
