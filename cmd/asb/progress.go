package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Zuo-Peng/ai-session-browser/internal/catalog"
)

// progressPrinter redraws one status line on stderr at most every 100ms.
func progressPrinter() func(catalog.Progress) {
	var mu sync.Mutex
	limiter := rate.NewLimiter(rate.Every(100*time.Millisecond), 1)
	return func(p catalog.Progress) {
		if p.Phase != catalog.PhaseDone && !limiter.Allow() {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch p.Phase {
		case catalog.PhaseScan:
			fmt.Fprintf(os.Stderr, "\r\033[Kscanning %s: %d files", p.Root, p.Files)
		case catalog.PhaseParse:
			fmt.Fprintf(os.Stderr, "\r\033[Kparsing %d/%d", p.Parsed, p.Total)
		case catalog.PhaseAux:
			fmt.Fprint(os.Stderr, "\r\033[Kreading tmux snapshots")
		}
	}
}
