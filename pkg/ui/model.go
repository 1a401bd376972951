// Package ui is the terminal viewer: a list of coverage areas, the covering
// satellites of the selected one, and the marker pulse driven by frame ticks.
package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/orbview/internal/datasource"
	"github.com/vanderheijden86/orbview/pkg/analysis"
	"github.com/vanderheijden86/orbview/pkg/annotation"
	"github.com/vanderheijden86/orbview/pkg/config"
	"github.com/vanderheijden86/orbview/pkg/debug"
	"github.com/vanderheijden86/orbview/pkg/export"
	"github.com/vanderheijden86/orbview/pkg/model"
	"github.com/vanderheijden86/orbview/pkg/pulse"
	"github.com/vanderheijden86/orbview/pkg/selection"
	"github.com/vanderheijden86/orbview/pkg/watcher"
)

// Layout thresholds
const (
	defaultWidth  = 120
	defaultHeight = 36
	listMinWidth  = 24
	listMaxWidth  = 40
	headerLines   = 1
	footerLines   = 2
)

// DefaultSnapshotPath is where the snapshot key writes when no path is set.
const DefaultSnapshotPath = "orbview-snapshot.svg"

// Reloader loads the dataset again and places it.
type Reloader func() (model.Dataset, *model.Model, error)

// FileChangedMsg is sent when a dataset file changes on disk
type FileChangedMsg struct{}

// DatasetReloadedMsg carries the result of a Reloader run.
type DatasetReloadedMsg struct {
	Dataset model.Dataset
	Scene   *model.Model
	Err     error
}

// pulseTickMsg is one animation frame for the pulse run gen.
type pulseTickMsg struct {
	gen uint64
}

// snapshotSavedMsg reports the snapshot key's result.
type snapshotSavedMsg struct {
	path string
	err  error
}

func pulseTickCmd(gen uint64, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return pulseTickMsg{gen: gen}
	})
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// ReloadCmd runs fn off the update loop.
func ReloadCmd(fn Reloader) tea.Cmd {
	if fn == nil {
		return nil
	}
	return func() tea.Msg {
		ds, scene, err := fn()
		return DatasetReloadedMsg{Dataset: ds, Scene: scene, Err: err}
	}
}

// Option configures a Model.
type Option func(*Model)

// WithConfig sets the pulse, connector, label and snapshot settings.
func WithConfig(cfg config.Config) Option {
	return func(m *Model) {
		m.cfg = cfg
	}
}

// WithDataset records the dataset the scene was built from, so reloads can
// report what changed.
func WithDataset(ds model.Dataset) Option {
	return func(m *Model) {
		m.dataset = ds
	}
}

// WithWatcher reloads the scene when w reports a change.
func WithWatcher(w *watcher.Watcher) Option {
	return func(m *Model) {
		m.watcher = w
	}
}

// WithReloader sets how the scene is rebuilt on change or on "r".
func WithReloader(fn Reloader) Option {
	return func(m *Model) {
		m.reload = fn
	}
}

// WithSnapshotPath sets where the snapshot key writes.
func WithSnapshotPath(path string) Option {
	return func(m *Model) {
		m.snapshotPath = path
	}
}

// WithInitialSelection selects id instead of the first area.
func WithInitialSelection(id string) Option {
	return func(m *Model) {
		m.initial = id
	}
}

// Model is the main Bubble Tea model.
type Model struct {
	theme Theme
	cfg   config.Config

	scene   *model.Model
	dataset model.Dataset
	summary analysis.Summary

	ctrl  *selection.Controller
	anim  *pulse.Animator
	state selection.State

	list         list.Model
	watcher      *watcher.Watcher
	reload       Reloader
	snapshotPath string
	initial      string

	// pendingTick is the first pulse frame, scheduled from Init.
	pendingTick tea.Cmd

	width, height int
	showHelp      bool
	status        string
	statusIsError bool
	lastReload    time.Time
}

// NewModel builds the viewer over scene and selects the initial area.
func NewModel(scene *model.Model, opts ...Option) Model {
	m := Model{
		theme:        DefaultTheme(lipgloss.DefaultRenderer()),
		cfg:          config.DefaultConfig(),
		scene:        scene,
		snapshotPath: DefaultSnapshotPath,
		width:        defaultWidth,
		height:       defaultHeight,
	}
	for _, opt := range opts {
		opt(&m)
	}

	m.anim = pulse.New(m.cfg.PulseOptions())
	m.ctrl = m.newController(scene)
	m.summary = analysis.Summarize(scene)

	delegate := AreaDelegate{Theme: m.theme}
	m.list = list.New(nil, delegate, listMaxWidth, defaultHeight-headerLines-footerLines)
	m.list.SetShowTitle(false)
	m.list.SetShowHelp(false)
	m.list.SetShowStatusBar(false)
	m.list.SetFilteringEnabled(true)
	m.refreshItems()

	initial := m.initial
	if initial == "" {
		if regions := scene.AllRegions(); len(regions) > 0 {
			initial = regions[0].ID
		}
	}
	if initial != "" {
		var tick tea.Cmd
		m, tick = m.selectRegion(initial)
		m.pendingTick = tick
	}
	m.resize()
	return m
}

func (m Model) newController(scene *model.Model) *selection.Controller {
	return selection.New(scene,
		selection.WithPathBuilder(m.cfg.Builder()),
		selection.WithAnnotator(annotation.NewManager(m.cfg.Labels.MaxWidth)),
		selection.WithPulser(m.anim),
	)
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.pendingTick}
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case pulseTickMsg:
		// A tick for a replaced or stopped run ends its chain here.
		if !m.anim.StepFor(msg.gen, m.cfg.TickInterval()) {
			return m, nil
		}
		return m, pulseTickCmd(msg.gen, m.cfg.TickInterval())

	case FileChangedMsg:
		cmds := []tea.Cmd{ReloadCmd(m.reload)}
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}
		return m, tea.Batch(cmds...)

	case DatasetReloadedMsg:
		return m.applyReload(msg)

	case snapshotSavedMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("snapshot: %v", msg.err))
		} else {
			m.setStatus("snapshot written to " + msg.path)
		}
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.anim.Stop()
			return m, tea.Quit
		case "?":
			m.showHelp = true
			return m, nil
		case "enter", " ":
			if item, ok := m.list.SelectedItem().(AreaItem); ok {
				m, cmd = m.selectRegion(item.Region.ID)
			}
			return m, cmd
		case "esc":
			if m.list.FilterState() == list.FilterApplied {
				m.list.ResetFilter()
				return m, nil
			}
			m = m.deselect()
			return m, nil
		case "r":
			if m.reload == nil {
				m.setError("no reload source")
				return m, nil
			}
			m.setStatus("reloading…")
			return m, ReloadCmd(m.reload)
		case "s":
			return m, m.snapshotCmd()
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// selectRegion selects id and returns the first frame of its pulse.
func (m Model) selectRegion(id string) (Model, tea.Cmd) {
	st, err := m.ctrl.Select(id)
	m.state = st
	m.refreshItems()
	if err != nil {
		m.setError(err.Error())
		return m, nil
	}
	debug.Log("ui: selected %s (%d covering)", id, len(st.Highlighted))
	m.setStatus(fmt.Sprintf("selected %s", id))
	return m, pulseTickCmd(st.PulseGeneration, m.cfg.TickInterval())
}

func (m Model) deselect() Model {
	if !m.state.Active {
		return m
	}
	m.state = m.ctrl.Deselect()
	m.refreshItems()
	m.setStatus("selection cleared")
	return m
}

func (m Model) applyReload(msg DatasetReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.setError(fmt.Sprintf("reload failed: %v", msg.Err))
		return m, nil
	}
	if msg.Scene == nil {
		return m, nil
	}

	diff := datasource.DiffDatasets(m.dataset, msg.Dataset, "previous", "reloaded")
	prev := m.state.ActiveRegionID

	m.ctrl.Deselect()
	m.scene = msg.Scene
	m.dataset = msg.Dataset
	m.ctrl = m.newController(msg.Scene)
	m.state = selection.State{}
	m.summary = analysis.Summarize(msg.Scene)
	m.lastReload = time.Now()
	m.refreshItems()

	var cmd tea.Cmd
	switch {
	case prev != "" && msg.Scene.HasRegion(prev):
		m, cmd = m.selectRegion(prev)
	case prev != "":
		if regions := msg.Scene.AllRegions(); len(regions) > 0 {
			m, cmd = m.selectRegion(regions[0].ID)
		}
	}
	debug.Log("ui: reload\n%s", diff.Summary())
	m.setStatus(reloadSummary(diff))
	return m, cmd
}

// reloadSummary condenses a dataset diff to one status line.
func reloadSummary(d datasource.DatasetDiff) string {
	if !d.HasChanges() {
		return "reloaded, no changes"
	}
	return fmt.Sprintf("reloaded: satellites +%d -%d, areas +%d -%d, %d membership changes",
		len(d.AddedNodes), len(d.RemovedNodes),
		len(d.AddedRegions), len(d.RemovedRegions),
		len(d.MembershipChanged))
}

func (m Model) snapshotCmd() tea.Cmd {
	opts := export.SnapshotOptions{
		Path:       m.snapshotPath,
		Title:      "orbview",
		Preset:     m.cfg.Snapshot.Preset,
		Width:      m.cfg.Snapshot.Width,
		Height:     m.cfg.Snapshot.Height,
		Scene:      m.scene,
		State:      m.state,
		PulseScale: m.anim.State().Scale,
	}
	return func() tea.Msg {
		return snapshotSavedMsg{path: opts.Path, err: export.SaveSnapshot(opts)}
	}
}

func (m *Model) refreshItems() {
	regions := m.scene.AllRegions()
	items := make([]list.Item, len(regions))
	for i, r := range regions {
		items[i] = newAreaItem(r, m.scene, m.state.ActiveRegionID)
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	if idx < len(items) {
		m.list.Select(idx)
	}
}

func (m *Model) resize() {
	w := m.listWidth()
	h := m.height - headerLines - footerLines
	if h < 1 {
		h = 1
	}
	m.list.SetSize(w, h)
}

func (m Model) listWidth() int {
	w := m.width / 3
	return max(listMinWidth, min(listMaxWidth, w))
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusIsError = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusIsError = true
}

// State returns the current selection.
func (m Model) State() selection.State {
	return m.state
}

// Pulse returns the animator's current state.
func (m Model) Pulse() pulse.State {
	return m.anim.State()
}

// Summary returns the scene parameters of the current scene.
func (m Model) Summary() analysis.Summary {
	return m.summary
}

// Status returns the status line and whether it reports an error.
func (m Model) Status() (string, bool) {
	return m.status, m.statusIsError
}
