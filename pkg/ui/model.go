// Package ui is the terminal viewer: a bubbletea program that drives the
// tree engine from key events and paints its visible rows into a scrolling
// window. All engine mutation happens on the update goroutine; sources are
// only touched from commands.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/treeline/internal/datasource"
	"github.com/vanderheijden86/treeline/pkg/config"
	"github.com/vanderheijden86/treeline/pkg/debug"
	"github.com/vanderheijden86/treeline/pkg/engine"
)

type rootsLoadedMsg struct {
	payloads []any
	err      error
}

type childrenLoadedMsg struct {
	id  engine.NodeID
	res engine.LoadResult
	err error
}

type pagesLoadedMsg struct {
	id      engine.NodeID
	results []datasource.PageResult
	pages   []int
	err     error
}

// pathStep is one ancestor's children-load outcome during a pin jump.
type pathStep struct {
	id  engine.NodeID
	res engine.LoadResult
	err error
}

type pathLoadedMsg struct {
	target engine.NodeID
	steps  []pathStep
	err    error
}

// sourceChangedMsg arrives when the watcher sees the backing file change.
type sourceChangedMsg struct{}

type statusExpireMsg struct{ seq int }

const loadTimeout = 10 * time.Second

// Model is the viewer's bubbletea model.
type Model struct {
	eng      *engine.Engine
	src      datasource.Source
	cfg      config.Config
	state    *ViewState
	stateDir string

	width  int
	height int
	ready  bool

	cursor int
	offset int

	filterInput textinput.Model
	filtering   bool

	showDetail   bool
	confirmReset bool
	resetTarget  engine.NodeID
	pinIndex     int

	status    string
	statusSeq int

	// changes delivers watcher notifications into the update loop.
	changes chan struct{}
}

// NewModel builds a viewer over an opened source. The engine is configured
// from cfg; expansion state recorded in earlier sessions is reapplied once
// roots arrive.
func NewModel(src datasource.Source, cfg config.Config) *Model {
	m := &Model{
		src:      src,
		cfg:      cfg,
		stateDir: config.StateDir(),
		changes:  make(chan struct{}, 1),
	}
	m.state = LoadViewState(m.stateDir, src.Path())

	showParents := true
	if cfg.Engine.ShowParentsOfMatches != nil {
		showParents = *cfg.Engine.ShowParentsOfMatches
	}
	engCfg := engine.Config{
		SelectionMode:           selectionMode(cfg.NormalizedSelectionMode()),
		SelectionPolicy:         selectionPolicy(cfg.NormalizedSelectionPolicy()),
		ShowParentsOfMatches:    showParents,
		KeepPlaceholdersVisible: true,
		AutoExpandMatches:       cfg.Engine.AutoExpandMatches,
	}
	m.eng = engine.NewEngine(src.Adapter(), engCfg, func(ee engine.EngineError) {
		debug.Log("engine error: %v", ee.Error())
	})

	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter"
	ti.CharLimit = 128
	m.filterInput = ti
	return m
}

// NotifyChange feeds a watcher event into the model. Safe to call from any
// goroutine; coalesces while the update loop is busy.
func (m *Model) NotifyChange() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

// Engine exposes the model's engine, for export commands and tests.
func (m *Model) Engine() *engine.Engine { return m.eng }

// Init loads the roots and starts listening for source changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadRootsCmd(), m.waitForChangeCmd())
}

func (m *Model) loadRootsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		payloads, err := m.src.LoadRoots(ctx)
		return rootsLoadedMsg{payloads: payloads, err: err}
	}
}

func (m *Model) loadChildrenCmd(id engine.NodeID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		res, err := m.src.LoadChildren(ctx, string(id))
		return childrenLoadedMsg{id: id, res: res, err: err}
	}
}

func (m *Model) loadPagesCmd(id engine.NodeID, pages []int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		results, err := datasource.PrefetchPages(ctx, m.src, string(id), pages)
		return pagesLoadedMsg{id: id, results: results, pages: pages, err: err}
	}
}

// jumpCmd resolves the ancestor chain of target through the source and
// fetches the children of every ancestor, so the target can be expanded into
// view once the results land.
func (m *Model) jumpCmd(target string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		if _, err := m.src.Lookup(ctx, target); err != nil {
			return pathLoadedMsg{target: engine.NodeID(target), err: err}
		}
		path, err := m.src.PathTo(ctx, target)
		if err != nil {
			return pathLoadedMsg{target: engine.NodeID(target), err: err}
		}
		msg := pathLoadedMsg{target: engine.NodeID(target)}
		for _, aid := range path {
			res, err := m.src.LoadChildren(ctx, aid)
			msg.steps = append(msg.steps, pathStep{id: engine.NodeID(aid), res: res, err: err})
			if err != nil {
				break
			}
		}
		return msg
	}
}

func (m *Model) waitForChangeCmd() tea.Cmd {
	return func() tea.Msg {
		<-m.changes
		return sourceChangedMsg{}
	}
}

func (m *Model) setStatus(format string, args ...any) tea.Cmd {
	m.status = fmt.Sprintf(format, args...)
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return statusExpireMsg{seq: seq}
	})
}

// Update is the event loop body.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.clampViewport()
		return m, m.fillVisiblePages()

	case rootsLoadedMsg:
		if msg.err != nil {
			m.eng.RootLoadFailed(msg.err)
			return m, m.setStatus("load failed: %v", msg.err)
		}
		m.eng.InitRoots(msg.payloads)
		var cmds []tea.Cmd
		for _, id := range m.state.Apply(m.eng, true) {
			cmds = append(cmds, m.loadChildrenCmd(id))
		}
		m.clampViewport()
		return m, tea.Batch(cmds...)

	case childrenLoadedMsg:
		if msg.err != nil {
			m.eng.SetNodeError(msg.id, msg.err)
			return m, m.setStatus("load %s failed: %v", msg.id, msg.err)
		}
		m.eng.SetChildrenLoaded(msg.id, msg.res)
		m.clampViewport()
		return m, m.fillVisiblePages()

	case pagesLoadedMsg:
		if msg.err != nil {
			for _, page := range msg.pages {
				m.eng.SetPageError(msg.id, page, msg.err)
			}
			return m, m.setStatus("page load failed: %v", msg.err)
		}
		for _, pr := range msg.results {
			m.eng.SetPageLoaded(msg.id, pr.Page, pr.Items)
		}
		return m, nil

	case pathLoadedMsg:
		if msg.err != nil {
			return m, m.setStatus("jump to %s failed: %v", msg.target, msg.err)
		}
		for _, step := range msg.steps {
			n := m.eng.Node(step.id)
			if n == nil {
				break
			}
			if step.err != nil {
				m.eng.SetNodeError(step.id, step.err)
				break
			}
			if !n.ChildrenLoaded {
				m.eng.SetChildrenLoaded(step.id, step.res)
			}
		}
		m.eng.ExpandPath(msg.target)
		for i, r := range m.eng.VisibleRows() {
			if r.ID == msg.target {
				m.cursor = i
				m.clampViewport()
				return m, tea.Batch(m.setStatus("jumped to %s", msg.target), m.fillVisiblePages())
			}
		}
		m.clampViewport()
		return m, m.setStatus("path to %s unavailable", msg.target)

	case sourceChangedMsg:
		return m, tea.Batch(m.reloadCmd(), m.waitForChangeCmd(),
			m.setStatus("source changed, reloading"))

	case statusExpireMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// reloadCmd re-reads the backing source after a change notification. JSON
// sources need a fresh parse; SQLite handles see new data on the next query.
func (m *Model) reloadCmd() tea.Cmd {
	return func() tea.Msg {
		if datasource.DetectType(m.src.Path()) == datasource.SourceTypeJSON {
			fresh, err := datasource.Open(m.src.Path(), datasource.Options{PageSize: m.cfg.Engine.PageSize})
			if err != nil {
				return rootsLoadedMsg{err: err}
			}
			m.src.Close()
			m.src = fresh
		}
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		payloads, err := m.src.LoadRoots(ctx)
		return rootsLoadedMsg{payloads: payloads, err: err}
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmReset {
		switch msg.String() {
		case "y", "Y":
			m.confirmReset = false
			m.eng.ResetSubtree(m.resetTarget)
			m.clampViewport()
			return m, m.setStatus("reset %s", m.resetTarget)
		default:
			m.confirmReset = false
			return m, nil
		}
	}

	if m.filtering {
		switch msg.String() {
		case "enter":
			m.filtering = false
			m.filterInput.Blur()
			return m, nil
		case "esc":
			m.filtering = false
			m.filterInput.Blur()
			m.filterInput.SetValue("")
			m.eng.ClearFilter()
			m.clampViewport()
			return m, nil
		default:
			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			m.applyFilter()
			m.clampViewport()
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.state.Save(m.stateDir, m.src.Path())
		return m, tea.Quit

	case "up", "k":
		m.moveCursor(-1)
		return m, m.fillVisiblePages()
	case "down", "j":
		m.moveCursor(1)
		return m, m.fillVisiblePages()
	case "pgup":
		m.moveCursor(-m.listHeight())
		return m, m.fillVisiblePages()
	case "pgdown":
		m.moveCursor(m.listHeight())
		return m, m.fillVisiblePages()
	case "g", "home":
		m.cursor = 0
		m.clampViewport()
		return m, m.fillVisiblePages()
	case "G", "end":
		m.cursor = m.eng.VisibleCount() - 1
		m.clampViewport()
		return m, m.fillVisiblePages()

	case "enter", "l", "right":
		return m.toggleCurrent()
	case "h", "left":
		return m.collapseCurrent()
	case "E":
		m.eng.ExpandAll()
		m.clampViewport()
		return m, nil
	case "C":
		m.eng.CollapseAll()
		m.cursor, m.offset = 0, 0
		return m, nil

	case " ", "x":
		if row := m.currentRow(); row != nil {
			m.eng.SelectToggle(row.ID)
		}
		return m, nil
	case "X":
		m.eng.ClearSelection()
		return m, m.setStatus("selection cleared")

	case "/":
		m.filtering = true
		m.filterInput.Focus()
		return m, textinput.Blink
	case "esc":
		if m.eng.FilterActive() {
			m.filterInput.SetValue("")
			m.eng.ClearFilter()
			m.clampViewport()
		}
		return m, nil

	case "r":
		if row := m.currentRow(); row != nil && !row.Placeholder {
			m.confirmReset = true
			m.resetTarget = row.ID
		}
		return m, nil

	case "y":
		return m.yankCurrent()
	case "Y":
		return m.yankSelected()

	case "d":
		m.showDetail = !m.showDetail
		return m, nil

	case "p":
		return m.jumpToPin()
	}
	return m, nil
}

func (m *Model) toggleCurrent() (tea.Model, tea.Cmd) {
	row := m.currentRow()
	if row == nil || row.Placeholder {
		return m, nil
	}
	needsLoad := m.eng.ToggleExpand(row.ID, true)
	m.state.Record(row.ID, m.eng.IsExpanded(row.ID))
	m.clampViewport()
	if needsLoad {
		return m, m.loadChildrenCmd(row.ID)
	}
	return m, m.fillVisiblePages()
}

// collapseCurrent collapses the current node, or jumps to its parent when it
// is already a collapsed leaf position.
func (m *Model) collapseCurrent() (tea.Model, tea.Cmd) {
	row := m.currentRow()
	if row == nil {
		return m, nil
	}
	if row.Expanded {
		m.eng.ToggleExpand(row.ID, false)
		m.state.Record(row.ID, false)
		m.clampViewport()
		return m, nil
	}
	n := m.eng.Node(row.ID)
	if n == nil || n.ParentID == "" {
		return m, nil
	}
	for i, r := range m.eng.VisibleRows() {
		if r.ID == n.ParentID {
			m.cursor = i
			break
		}
	}
	m.clampViewport()
	return m, nil
}

func (m *Model) yankCurrent() (tea.Model, tea.Cmd) {
	row := m.currentRow()
	if row == nil || row.Placeholder {
		return m, nil
	}
	if err := clipboard.WriteAll(string(row.ID)); err != nil {
		return m, m.setStatus("clipboard: %v", err)
	}
	return m, m.setStatus("yanked %s", row.ID)
}

func (m *Model) yankSelected() (tea.Model, tea.Cmd) {
	ids := m.eng.SelectedIDs()
	if len(ids) == 0 {
		return m, m.setStatus("nothing selected")
	}
	text := ""
	for i, id := range ids {
		if i > 0 {
			text += "\n"
		}
		text += string(id)
	}
	if err := clipboard.WriteAll(text); err != nil {
		return m, m.setStatus("clipboard: %v", err)
	}
	return m, m.setStatus("yanked %d ids", len(ids))
}

// jumpToPin cycles through the configured pins, expanding the path to each
// in turn. Ancestors are fetched on demand through the source.
func (m *Model) jumpToPin() (tea.Model, tea.Cmd) {
	if len(m.cfg.Pins) == 0 {
		return m, m.setStatus("no pins configured")
	}
	target := m.cfg.Pins[m.pinIndex%len(m.cfg.Pins)]
	m.pinIndex++
	return m, m.jumpCmd(target)
}

func (m *Model) applyFilter() {
	text := m.filterInput.Value()
	if text == "" {
		m.eng.ClearFilter()
		return
	}
	m.eng.SetFilter(engine.Query{Text: text, Tokens: strings.Fields(text)})
}

func (m *Model) currentRow() *engine.RowViewModel {
	rows := m.eng.VisibleRows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return nil
	}
	return &rows[m.cursor]
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampViewport()
}

func (m *Model) listHeight() int {
	h := m.height - 2 // status bar + filter line
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) clampViewport() {
	total := m.eng.VisibleCount()
	if m.cursor >= total {
		m.cursor = total - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// fillVisiblePages requests pages for any placeholder rows inside the
// current window. The engine dedupes in-flight pages, so scrolling fast is
// cheap.
func (m *Model) fillVisiblePages() tea.Cmd {
	rows := m.eng.VisibleRows()
	end := m.offset + m.listHeight()
	if end > len(rows) {
		end = len(rows)
	}
	type span struct{ lo, hi int }
	spans := make(map[engine.NodeID]span)
	for _, row := range rows[m.offset:end] {
		if !row.Placeholder {
			continue
		}
		n := m.eng.Node(row.ID)
		if n == nil {
			continue
		}
		s, ok := spans[n.ParentID]
		if !ok {
			s = span{lo: n.PlaceholderIndex, hi: n.PlaceholderIndex}
		} else {
			if n.PlaceholderIndex < s.lo {
				s.lo = n.PlaceholderIndex
			}
			if n.PlaceholderIndex > s.hi {
				s.hi = n.PlaceholderIndex
			}
		}
		spans[n.ParentID] = s
	}
	var cmds []tea.Cmd
	for parentID, s := range spans {
		if pages := m.eng.EnsureRangeLoaded(parentID, s.lo, s.hi); len(pages) > 0 {
			cmds = append(cmds, m.loadPagesCmd(parentID, pages))
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func selectionMode(mode string) engine.SelectionMode {
	switch mode {
	case "none":
		return engine.SelectionNone
	case "single":
		return engine.SelectionSingle
	case "hierarchical":
		return engine.SelectionHierarchical
	default:
		return engine.SelectionMulti
	}
}

func selectionPolicy(policy string) engine.SelectionPolicy {
	if policy == "clear-hidden" {
		return engine.PolicyClearHidden
	}
	return engine.PolicyKeep
}
