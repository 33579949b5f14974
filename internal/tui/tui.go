package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/time/rate"

	"github.com/Zuo-Peng/ai-session-browser/internal/catalog"
	"github.com/Zuo-Peng/ai-session-browser/internal/config"
	"github.com/Zuo-Peng/ai-session-browser/internal/logging"
	"github.com/Zuo-Peng/ai-session-browser/internal/open"
	"github.com/Zuo-Peng/ai-session-browser/internal/parse"
	"github.com/Zuo-Peng/ai-session-browser/internal/search"
	"github.com/Zuo-Peng/ai-session-browser/internal/watch"
)

const (
	debounceDelay    = 200 * time.Millisecond
	progressInterval = 50 * time.Millisecond
)

// message types

type searchResultMsg struct {
	query string
	ix    *search.Index
	rows  []row
}

type debounceTickMsg struct {
	query string
}

type loadProgressMsg catalog.Progress

type catalogMsg struct {
	cat *catalog.Catalog
	err error
}

type filesChangedMsg struct {
	paths []string
}

type editorDoneMsg struct {
	err error
}

// row is one entry in the list panel. block is -1 when the row stands
// for the whole session (listing, or a match on terminal metadata).
type row struct {
	session int
	block   int
	score   int
	snippet string
	source  search.Source
	matched bool
}

// model

type model struct {
	ctx        context.Context
	loader     *catalog.Loader
	engine     *search.Engine
	searchOpts search.Options

	cat           *catalog.Catalog
	ix            *search.Index // latest load, used for new queries
	shown         *search.Index // the load rows refers to
	loading       bool
	reloadPending bool
	progress      catalog.Progress
	loadErr       error
	spinner       spinner.Model

	query       string
	rows        []row
	cursor      int
	listOffset  int
	filterInput textinput.Model
	preview     viewport.Model
	previewKey  string // "path:block" to avoid duplicate renders
	thinking    bool   // show thinking blocks in the preview
	width       int
	height      int
	ready       bool
	quitting    bool
	notice      string
	chosen      *parse.Session
}

func initialModel(ctx context.Context, loader *catalog.Loader, engine *search.Engine, query string, opts search.Options) model {
	ti := textinput.New()
	ti.Placeholder = "Search... (empty lists every session)"
	ti.Focus()
	ti.SetValue(query)
	ti.Prompt = "> "
	ti.PromptStyle = styleInput
	ti.TextStyle = styleInput
	ti.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleSpinner

	return model{
		ctx:         ctx,
		loader:      loader,
		engine:      engine,
		searchOpts:  opts,
		loading:     true,
		spinner:     sp,
		query:       query,
		filterInput: ti,
		preview:     viewport.New(0, 0),
	}
}

// Run loads the catalog in the background and opens the browser. An
// empty query lists every session. Choosing a session copies its resume
// command to the clipboard.
func Run(ctx context.Context, cfg *config.Config, query string, opts search.Options) error {
	var p *tea.Program
	throttle := rate.Sometimes{Interval: progressInterval}
	loader := catalog.NewLoader(cfg, catalog.Options{
		OnProgress: func(pr catalog.Progress) {
			if pr.Phase == catalog.PhaseDone {
				return
			}
			throttle.Do(func() { p.Send(loadProgressMsg(pr)) })
		},
	})
	defer loader.Close()
	// A reload still running after quit must stop before the pool closes.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := initialModel(ctx, loader, search.New(cfg.Search), query, opts)
	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	if cfg.Watch.Enabled {
		w, err := startWatcher(cfg, func(paths []string) { p.Send(filesChangedMsg{paths: paths}) })
		if err != nil {
			logging.ForComponent(logging.CompTUI).Warn("live reload disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	fm := finalModel.(model)
	if fm.chosen != nil {
		return copyResumeCommand(fm.chosen)
	}
	return nil
}

func startWatcher(cfg *config.Config, onChange func([]string)) (*watch.Watcher, error) {
	w, err := watch.New(watch.Options{
		Extension:   cfg.Extension,
		MaxDepth:    cfg.MaxDepth,
		SkipDirs:    []string{"subagents"},
		Debounce:    cfg.Watch.Debounce.Duration,
		MinInterval: cfg.Watch.MinInterval.Duration,
	}, onChange)
	if err != nil {
		return nil, err
	}
	watched := 0
	for _, root := range cfg.Roots {
		n, _, err := w.AddRoot(root)
		if err != nil {
			continue
		}
		watched += n
	}
	if watched == 0 {
		w.Stop()
		return nil, fmt.Errorf("no transcript root could be watched")
	}
	w.Start()
	return w, nil
}

// Init starts the first load.
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.loadCmd())
}

// Update handles messages.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.preview = newViewport(m.previewWidth(), m.panelHeight())
		m.previewKey = ""
		cmds = append(cmds, m.loadCurrentPreview())
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadProgressMsg:
		m.progress = catalog.Progress(msg)
		return m, nil

	case catalogMsg:
		m.loading = false
		if msg.err != nil {
			m.loadErr = msg.err
			if m.cat == nil {
				m.preview.SetContent("Load failed: " + msg.err.Error())
			}
		} else {
			m.loadErr = nil
			m.cat = msg.cat
			m.ix = search.NewIndex(msg.cat.Sessions)
			m.previewKey = ""
			cmds = append(cmds, m.doSearch(m.query))
		}
		if m.reloadPending {
			m.reloadPending = false
			m.loading = true
			cmds = append(cmds, m.spinner.Tick, m.loadCmd())
		}
		return m, tea.Batch(cmds...)

	case filesChangedMsg:
		return m.reload()

	case editorDoneMsg:
		if msg.err != nil {
			m.notice = "editor: " + msg.err.Error()
		}
		return m, nil

	case tea.KeyMsg:
		m.notice = ""
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.CopyResume):
			if s, _ := m.selected(); s != nil {
				m.chosen = s
				m.quitting = true
				return m, tea.Quit
			}

		case key.Matches(msg, keys.Edit):
			if s, r := m.selected(); s != nil {
				cmd, err := open.Command(s, r.block)
				if err != nil {
					m.notice = err.Error()
					return m, nil
				}
				return m, tea.ExecProcess(cmd, func(err error) tea.Msg { return editorDoneMsg{err: err} })
			}

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.CycleSource):
			m.searchOpts.Source = nextSource(m.searchOpts.Source)
			return m, m.doSearch(m.query)

		case key.Matches(msg, keys.ToggleThink):
			m.thinking = !m.thinking
			return m, m.loadCurrentPreview()

		case key.Matches(msg, keys.Reload):
			return m.reload()

		case key.Matches(msg, keys.PreviewUp):
			m.preview.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PreviewDown):
			m.preview.LineDown(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PreviewTop):
			m.preview.GotoTop()
			return m, nil

		case key.Matches(msg, keys.PreviewBottom):
			m.preview.GotoBottom()
			return m, nil
		}

		// Pass remaining keys to text input
		var tiCmd tea.Cmd
		m.filterInput, tiCmd = m.filterInput.Update(msg)
		cmds = append(cmds, tiCmd)

		if newQuery := m.filterInput.Value(); newQuery != m.query {
			m.query = newQuery
			cmds = append(cmds, scheduleDebouncedSearch(newQuery))
		}
		return m, tea.Batch(cmds...)

	case tea.MouseMsg:
		if !m.ready || len(m.rows) == 0 {
			return m, nil
		}

		region, itemIdx := m.hitTest(msg.X, msg.Y)

		switch {
		case region == regionList && msg.Button == tea.MouseButtonWheelUp:
			if m.listOffset > 0 {
				m.listOffset--
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonWheelDown:
			visibleItems := m.panelHeight() / linesPerItem
			if maxOffset := max(len(m.rows)-visibleItems, 0); m.listOffset < maxOffset {
				m.listOffset++
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
			if itemIdx >= 0 && itemIdx < len(m.rows) && m.cursor != itemIdx {
				m.cursor = itemIdx
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case region == regionPreview && (msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown):
			var vpCmd tea.Cmd
			m.preview, vpCmd = m.preview.Update(msg)
			return m, vpCmd
		}
		return m, nil

	case debounceTickMsg:
		// Only fire search if query hasn't changed since debounce was scheduled
		if msg.query == m.query {
			return m, m.doSearch(msg.query)
		}
		return m, nil

	case searchResultMsg:
		// Drop results for an old query or a replaced catalog.
		if msg.query != m.query || msg.ix != m.ix {
			return m, nil
		}
		prev, _ := m.selected()
		m.rows = msg.rows
		m.shown = msg.ix
		m.cursor = 0
		m.listOffset = 0
		if prev != nil && m.restoreCursor(prev.Path) {
			m.adjustListScroll(m.panelHeight())
		}
		if len(m.rows) > 0 {
			cmds = append(cmds, m.loadCurrentPreview())
		} else {
			m.preview.SetContent("")
			m.previewKey = ""
		}
		return m, tea.Batch(cmds...)

	case previewRenderedMsg:
		if msg.key == m.previewKey || msg.key != m.currentPreviewKey() {
			return m, nil
		}
		m.preview.SetContent(msg.content)
		if msg.hitLine > 0 {
			m.preview.SetYOffset(msg.hitLine)
		} else {
			m.preview.GotoTop()
		}
		m.previewKey = msg.key
		return m, nil
	}

	return m, tea.Batch(cmds...)
}

// restoreCursor moves the cursor back to the session at path after a
// reload re-ran the query, so live updates do not jump the selection.
func (m *model) restoreCursor(path string) bool {
	for i, r := range m.rows {
		if m.shown.Sessions()[r.session].Path == path {
			m.cursor = i
			return true
		}
	}
	return false
}

// View renders the full TUI.
func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	previewW := m.previewWidth()
	panelH := m.panelHeight()

	inputRow := m.filterInput.View()

	listPanel := styleListFrame.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	m.preview.Width = previewW
	m.preview.Height = panelH
	previewPanel := stylePreviewFrame.
		Width(previewW).
		Height(panelH).
		Render(m.preview.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)
	return lipgloss.JoinVertical(lipgloss.Left, inputRow, panels, m.statusBar())
}

// helper methods

func (m model) selected() (*parse.Session, row) {
	if m.shown == nil || m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil, row{}
	}
	r := m.rows[m.cursor]
	return m.shown.Sessions()[r.session], r
}

func (m model) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	// 40% for list, minus border padding
	return max(m.width*40/100-4, 20)
}

func (m model) previewWidth() int {
	if m.width <= 0 {
		return 60
	}
	// 60% for preview, minus border padding
	return max(m.width*60/100-4, 20)
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// Subtract input row (1) + status bar (1) + borders (4)
	return max(m.height-6, 5)
}

type mouseRegion int

const (
	regionNone mouseRegion = iota
	regionList
	regionPreview
)

// hitTest maps terminal coordinates to a panel region and list item index.
func (m model) hitTest(x, y int) (mouseRegion, int) {
	pH := m.panelHeight()
	contentYStart := 2 // input row (1) + top border (1)
	contentYEnd := contentYStart + pH - 1

	if y < contentYStart || y > contentYEnd {
		return regionNone, -1
	}
	relY := y - contentYStart

	lw := m.listWidth()
	listBoxRight := lw + 1 // col 0=border, 1..lw=content, lw+1=border

	if x >= 1 && x <= lw {
		return regionList, m.listOffset + relY/linesPerItem
	}
	if x > listBoxRight+1 {
		return regionPreview, -1
	}
	return regionNone, -1
}

func (m model) statusBar() string {
	var parts []string
	switch {
	case m.loading:
		parts = append(parts, m.spinner.View()+" "+progressText(m.progress))
	case m.loadErr != nil:
		parts = append(parts, styleError.Render("load failed: "+m.loadErr.Error()))
	case m.cat != nil:
		parts = append(parts, m.cat.Stats.String())
	}
	if m.query == "" {
		parts = append(parts, fmt.Sprintf("%d sessions", len(m.rows)))
	} else {
		parts = append(parts, fmt.Sprintf("%d results", len(m.rows)))
	}
	if src := m.searchOpts.Source; src != "" {
		parts = append(parts, styleFilter.Render("only "+src))
	}
	if m.thinking {
		parts = append(parts, styleFilter.Render("thinking shown"))
	}
	if m.notice != "" {
		parts = append(parts, styleError.Render(m.notice))
	}
	parts = append(parts, helpLine(keys.shortHelp()))
	return styleStatus.Render(strings.Join(parts, " | "))
}

func progressText(p catalog.Progress) string {
	switch p.Phase {
	case catalog.PhaseScan:
		return fmt.Sprintf("scanning: %d files", p.Files)
	case catalog.PhaseParse:
		return fmt.Sprintf("parsing %d/%d", p.Parsed, p.Total)
	case catalog.PhaseAux:
		return "reading tmux snapshots"
	}
	return "loading"
}

func (m model) loadCmd() tea.Cmd {
	ctx, loader := m.ctx, m.loader
	return func() tea.Msg {
		cat, err := loader.Load(ctx)
		return catalogMsg{cat: cat, err: err}
	}
}

func (m model) doSearch(query string) tea.Cmd {
	ix, engine := m.ix, m.engine
	if ix == nil {
		return nil
	}
	opts := m.searchOpts
	opts.Query = query
	return func() tea.Msg {
		return searchResultMsg{query: query, ix: ix, rows: runQuery(engine, ix, opts)}
	}
}

// runQuery lists every session for an empty query, otherwise it ranks
// matches across all surfaces.
func runQuery(engine *search.Engine, ix *search.Index, opts search.Options) []row {
	if strings.TrimSpace(opts.Query) == "" {
		var rows []row
		for i, s := range ix.Sessions() {
			if opts.Source != "" && s.Source != opts.Source {
				continue
			}
			rows = append(rows, row{session: i, block: -1, snippet: s.Title})
		}
		return rows
	}

	matches := engine.Search(ix, opts)
	rows := make([]row, len(matches))
	for i, mt := range matches {
		block := mt.BlockIndex
		if mt.Source != search.SourcePrimary {
			block = -1
		}
		rows[i] = row{
			session: mt.SessionIndex,
			block:   block,
			score:   mt.Score,
			snippet: mt.Snippet,
			source:  mt.Source,
			matched: true,
		}
	}
	return rows
}

func scheduleDebouncedSearch(query string) tea.Cmd {
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg {
		return debounceTickMsg{query: query}
	})
}

func (m model) currentPreviewKey() string {
	s, r := m.selected()
	if s == nil {
		return ""
	}
	return previewCacheKey(s.Path, r.block, m.thinking)
}

func (m model) loadCurrentPreview() tea.Cmd {
	s, r := m.selected()
	if s == nil || previewCacheKey(s.Path, r.block, m.thinking) == m.previewKey {
		return nil
	}
	return loadPreviewCmd(s, r.block, m.query, m.previewWidth(), m.thinking)
}

func previewCacheKey(path string, block int, thinking bool) string {
	if thinking {
		return fmt.Sprintf("%s:%d:thinking", path, block)
	}
	return fmt.Sprintf("%s:%d", path, block)
}

// reload starts a catalog load, or queues one behind a load in flight.
func (m model) reload() (tea.Model, tea.Cmd) {
	if m.loading {
		m.reloadPending = true
		return m, nil
	}
	m.loading = true
	return m, tea.Batch(m.spinner.Tick, m.loadCmd())
}
