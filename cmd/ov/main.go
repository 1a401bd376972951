package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/orbview/internal/datasource"
	"github.com/vanderheijden86/orbview/pkg/analysis"
	"github.com/vanderheijden86/orbview/pkg/annotation"
	"github.com/vanderheijden86/orbview/pkg/config"
	"github.com/vanderheijden86/orbview/pkg/debug"
	"github.com/vanderheijden86/orbview/pkg/export"
	"github.com/vanderheijden86/orbview/pkg/geom"
	"github.com/vanderheijden86/orbview/pkg/loader"
	"github.com/vanderheijden86/orbview/pkg/metrics"
	"github.com/vanderheijden86/orbview/pkg/model"
	"github.com/vanderheijden86/orbview/pkg/selection"
	"github.com/vanderheijden86/orbview/pkg/ui"
	"github.com/vanderheijden86/orbview/pkg/version"
	"github.com/vanderheijden86/orbview/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

// options are the parsed command line flags.
type options struct {
	dataDir    string
	configPath string
	seed       uint64
	selectID   string
	json       bool
	snapshot   string
	exportDir  string
	metrics    bool
}

// oneShot reports whether the run prints or writes something and exits
// without starting the viewer.
func (o options) oneShot() bool {
	return o.json || o.snapshot != "" || o.exportDir != "" || o.metrics
}

func main() {
	var opts options
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	flag.StringVar(&opts.dataDir, "data", "", "Dataset directory (default: $ORBVIEW_DATA_DIR, config data_dir, or ./data)")
	flag.StringVar(&opts.configPath, "config", "", "Config file (default: ~/.config/orbview/config.yaml)")
	flag.Uint64Var(&opts.seed, "seed", 0, "Placement seed (0 = config seed, else random)")
	flag.StringVar(&opts.selectID, "select", "", "Coverage area to select")
	flag.BoolVar(&opts.json, "json", false, "Print the selection and scene summary as JSON and exit")
	flag.StringVar(&opts.snapshot, "snapshot", "", "Write an SVG or PNG snapshot to this path and exit")
	flag.StringVar(&opts.exportDir, "export", "", "Export the scene to "+export.DefaultDatabaseName+" in this directory and exit")
	flag.BoolVar(&opts.metrics, "metrics", false, "Print timing metrics as JSON and exit")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: ov [options]")
		fmt.Println("\nA terminal viewer for satellite coverage areas.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("ov %s\n", version.Version)
		os.Exit(0)
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		// Non-fatal: continue with defaults
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}

	dataDir, err := resolveDataDir(opts.dataDir, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	seed := resolveSeed(opts.seed, cfg)
	debug.Log("ov: data %s, seed %d", dataDir, seed)
	debug.Dump("config", cfg)

	if opts.oneShot() {
		// Keep loader warnings off stdout consumers.
		_ = os.Setenv("OV_ROBOT", "1")
		if err := runOneShot(os.Stdout, opts, cfg, dataDir, seed); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: stdout is not a terminal; use -json, -snapshot or -export")
		os.Exit(2)
	}

	ds, scene, err := loadScene(dataDir, cfg, seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading dataset: %v\n", err)
		fmt.Fprintf(os.Stderr, "Expected %s and %s (or %s) in %s\n",
			loader.NodesFile, loader.RegionsFile, datasource.SQLiteFile, dataDir)
		os.Exit(1)
	}

	uiOpts := []ui.Option{
		ui.WithConfig(cfg),
		ui.WithDataset(ds),
		ui.WithInitialSelection(opts.selectID),
		ui.WithReloader(func() (model.Dataset, *model.Model, error) {
			return loadScene(dataDir, cfg, seed)
		}),
	}
	w, err := watcher.NewWatcher(dataDir,
		[]string{loader.NodesFile, loader.RegionsFile, datasource.SQLiteFile},
		watcher.WithOnError(func(err error) { debug.Log("ov: watcher: %v", err) }),
	)
	if err == nil {
		err = w.Start()
	}
	if err != nil {
		// Live reload is optional; "r" still reloads by hand.
		debug.Log("ov: live reload disabled: %v", err)
	} else {
		defer w.Stop()
		uiOpts = append(uiOpts, ui.WithWatcher(w))
	}

	m := ui.NewModel(scene, uiOpts...)
	if err := runTUIProgram(m); err != nil {
		fmt.Printf("Error running orbview: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// resolveDataDir picks the dataset directory: flag, then ORBVIEW_DATA_DIR,
// then the config, then ./data.
func resolveDataDir(flagDir string, cfg config.Config) (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}
	if os.Getenv(loader.DataDirEnvVar) == "" && cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	return loader.GetDataDir("")
}

// resolveSeed picks the placement seed: flag, then config, then random.
func resolveSeed(flagSeed uint64, cfg config.Config) uint64 {
	if flagSeed != 0 {
		return flagSeed
	}
	if cfg.Seed != 0 {
		return cfg.Seed
	}
	return rand.Uint64()
}

// loadScene loads the freshest dataset in dataDir and places it.
func loadScene(dataDir string, cfg config.Config, seed uint64) (model.Dataset, *model.Model, error) {
	start := time.Now()
	ds, src, err := datasource.LoadDataset(dataDir, loader.ParseOptions{
		WarningHandler: func(msg string) { debug.Log("ov: %s", msg) },
	})
	if err != nil {
		return model.Dataset{}, nil, err
	}
	debug.Log("ov: loaded %d satellites, %d areas from %s", len(ds.Nodes), len(ds.Regions), src)

	scene, err := model.Build(ds, cfg.Placement(), geom.NewSampler(seed))
	if err != nil {
		return model.Dataset{}, nil, err
	}
	if refs := scene.DanglingRefs(); len(refs) > 0 {
		debug.Log("ov: %d areas reference unknown satellites", len(refs))
	}
	debug.LogTiming("loadScene", time.Since(start))
	return ds, scene, nil
}

// report is the -json output.
type report struct {
	Version   string                `json:"version"`
	Seed      uint64                `json:"seed"`
	Selection selectionReport       `json:"selection"`
	Summary   analysis.Summary      `json:"summary"`
	Snapshot  string                `json:"snapshot,omitempty"`
	Export    string                `json:"export,omitempty"`
	Metrics   []metrics.TimingStats `json:"metrics,omitempty"`
}

type selectionReport struct {
	Active      bool              `json:"active"`
	Area        string            `json:"area,omitempty"`
	Highlighted []string          `json:"highlighted"`
	Connectors  []connectorReport `json:"connectors,omitempty"`
	Labels      []labelReport     `json:"labels,omitempty"`
}

type connectorReport struct {
	Satellite string       `json:"satellite"`
	Points    [][3]float64 `json:"points"`
}

type labelReport struct {
	ID       string     `json:"id"`
	Text     string     `json:"text"`
	Position [3]float64 `json:"position"`
}

func newSelectionReport(st selection.State) selectionReport {
	r := selectionReport{
		Active:      st.Active,
		Area:        st.ActiveRegionID,
		Highlighted: append([]string{}, st.Highlighted...),
	}
	for _, c := range st.Connectors {
		cr := connectorReport{Satellite: c.NodeID, Points: make([][3]float64, len(c.Path))}
		for i, p := range c.Path {
			cr.Points[i] = [3]float64{p.X, p.Y, p.Z}
		}
		r.Connectors = append(r.Connectors, cr)
	}
	for _, l := range st.Labels {
		r.Labels = append(r.Labels, labelReport{
			ID:       l.NodeID,
			Text:     l.Text,
			Position: [3]float64{l.Position.X, l.Position.Y, l.Position.Z},
		})
	}
	return r
}

// runOneShot loads the scene, applies -select, and performs the requested
// outputs without a terminal.
func runOneShot(out io.Writer, opts options, cfg config.Config, dataDir string, seed uint64) error {
	_, scene, err := loadScene(dataDir, cfg, seed)
	if err != nil {
		return err
	}

	ctrl := selection.New(scene,
		selection.WithPathBuilder(cfg.Builder()),
		selection.WithAnnotator(annotation.NewManager(cfg.Labels.MaxWidth)),
	)
	st := ctrl.CurrentState()
	if opts.selectID != "" {
		if st, err = ctrl.Select(opts.selectID); err != nil {
			return err
		}
	}

	rep := report{
		Version:   version.Version,
		Seed:      seed,
		Selection: newSelectionReport(st),
		Summary:   analysis.Summarize(scene),
	}

	if opts.snapshot != "" {
		err := export.SaveSnapshot(export.SnapshotOptions{
			Path:   opts.snapshot,
			Title:  "orbview",
			Preset: cfg.Snapshot.Preset,
			Width:  cfg.Snapshot.Width,
			Height: cfg.Snapshot.Height,
			Scene:  scene,
			State:  st,
		})
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		rep.Snapshot = opts.snapshot
		if !opts.json {
			fmt.Fprintf(out, "Snapshot written to %s\n", opts.snapshot)
		}
	}

	if opts.exportDir != "" {
		path, err := export.NewSQLiteExporter(scene, st).Export(opts.exportDir)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		rep.Export = path
		if !opts.json {
			fmt.Fprintf(out, "Exported to %s\n", path)
		}
	}

	if opts.metrics {
		rep.Metrics = metrics.AllTimingStats()
	}

	switch {
	case opts.json:
		return writeJSON(out, rep)
	case opts.metrics:
		return writeJSON(out, rep.Metrics)
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set OV_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("OV_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		return nil
	}
	return err
}
