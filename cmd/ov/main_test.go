package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/orbview/internal/datasource"
	"github.com/vanderheijden86/orbview/pkg/config"
	"github.com/vanderheijden86/orbview/pkg/export"
	"github.com/vanderheijden86/orbview/pkg/loader"
	"github.com/vanderheijden86/orbview/pkg/metrics"
	"github.com/vanderheijden86/orbview/pkg/selection"
	"github.com/vanderheijden86/orbview/pkg/testutil"
)

func runJSON(t *testing.T, opts options, dataDir string, seed uint64) report {
	t.Helper()
	opts.json = true
	var out bytes.Buffer
	if err := runOneShot(&out, opts, config.DefaultConfig(), dataDir, seed); err != nil {
		t.Fatalf("runOneShot: %v", err)
	}
	var rep report
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	return rep
}

func TestResolveSeed(t *testing.T) {
	cfg := config.DefaultConfig()
	if got := resolveSeed(42, cfg); got != 42 {
		t.Errorf("flag seed = %d, want 42", got)
	}
	cfg.Seed = 7
	if got := resolveSeed(0, cfg); got != 7 {
		t.Errorf("config seed = %d, want 7", got)
	}
	if got := resolveSeed(42, cfg); got != 42 {
		t.Errorf("flag should win over config, got %d", got)
	}
}

func TestResolveDataDir(t *testing.T) {
	t.Setenv(loader.DataDirEnvVar, "")
	cfg := config.DefaultConfig()

	if got, _ := resolveDataDir("/flag", cfg); got != "/flag" {
		t.Errorf("flag dir = %q", got)
	}

	cfg.DataDir = "/from-config"
	if got, _ := resolveDataDir("", cfg); got != "/from-config" {
		t.Errorf("config dir = %q", got)
	}

	t.Setenv(loader.DataDirEnvVar, "/from-env")
	if got, _ := resolveDataDir("", cfg); got != "/from-env" {
		t.Errorf("env should win over config, got %q", got)
	}

	t.Setenv(loader.DataDirEnvVar, "")
	cfg.DataDir = ""
	got, err := resolveDataDir("", cfg)
	if err != nil {
		t.Fatalf("resolveDataDir: %v", err)
	}
	if filepath.Base(got) != "data" {
		t.Errorf("default dir = %q, want ./data", got)
	}
}

func TestOptionsOneShot(t *testing.T) {
	if (options{selectID: "R1"}).oneShot() {
		t.Error("-select alone should open the viewer")
	}
	for _, o := range []options{{json: true}, {snapshot: "x.svg"}, {exportDir: "out"}, {metrics: true}} {
		if !o.oneShot() {
			t.Errorf("%+v should be one-shot", o)
		}
	}
}

func TestRunOneShot_JSONSelection(t *testing.T) {
	dir := testutil.TempDataDir(t, testutil.Scenario())
	rep := runJSON(t, options{selectID: "R1"}, dir, 7)

	sel := rep.Selection
	if !sel.Active || sel.Area != "R1" {
		t.Fatalf("selection = %+v, want R1 active", sel)
	}
	if !reflect.DeepEqual(sel.Highlighted, []string{"A", "B"}) {
		t.Errorf("highlighted = %v", sel.Highlighted)
	}
	if len(sel.Connectors) != 2 {
		t.Fatalf("connectors = %d, want 2", len(sel.Connectors))
	}
	for _, c := range sel.Connectors {
		if len(c.Points) < 30 {
			t.Errorf("connector %s has %d points", c.Satellite, len(c.Points))
		}
	}
	if len(sel.Labels) != 3 {
		t.Errorf("labels = %d, want 3", len(sel.Labels))
	}

	if rep.Summary.NodeCount != 4 || rep.Summary.RegionCount != 4 {
		t.Errorf("summary counts = %d/%d", rep.Summary.NodeCount, rep.Summary.RegionCount)
	}
	if !reflect.DeepEqual(rep.Summary.Dangling["R3"], []string{"ghost"}) {
		t.Errorf("dangling = %v", rep.Summary.Dangling)
	}
	if rep.Seed != 7 {
		t.Errorf("seed = %d", rep.Seed)
	}
}

func TestRunOneShot_Idle(t *testing.T) {
	dir := testutil.TempDataDir(t, testutil.Scenario())
	rep := runJSON(t, options{}, dir, 7)
	if rep.Selection.Active || len(rep.Selection.Highlighted) != 0 {
		t.Errorf("idle run selected %+v", rep.Selection)
	}
}

func TestRunOneShot_SameSeedSamePlacement(t *testing.T) {
	dir := testutil.TempDataDir(t, testutil.Scenario())
	a := runJSON(t, options{selectID: "R2"}, dir, 99)
	b := runJSON(t, options{selectID: "R2"}, dir, 99)
	if !reflect.DeepEqual(a.Selection.Labels, b.Selection.Labels) {
		t.Error("same seed placed labels differently")
	}
	c := runJSON(t, options{selectID: "R2"}, dir, 100)
	if reflect.DeepEqual(a.Selection.Labels, c.Selection.Labels) {
		t.Error("different seeds gave identical placement")
	}
}

func TestRunOneShot_UnknownArea(t *testing.T) {
	dir := testutil.TempDataDir(t, testutil.Scenario())
	var out bytes.Buffer
	err := runOneShot(&out, options{selectID: "nowhere", json: true}, config.DefaultConfig(), dir, 1)
	if !errors.Is(err, selection.ErrUnknownRegion) {
		t.Fatalf("err = %v, want ErrUnknownRegion", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output on error: %s", out.String())
	}
}

func TestRunOneShot_MissingData(t *testing.T) {
	var out bytes.Buffer
	err := runOneShot(&out, options{json: true}, config.DefaultConfig(), filepath.Join(t.TempDir(), "absent"), 1)
	if err == nil {
		t.Fatal("expected an error for a missing data directory")
	}
}

func TestRunOneShot_SnapshotAndExport(t *testing.T) {
	dir := testutil.TempDataDir(t, testutil.Scenario())
	outDir := t.TempDir()
	snap := filepath.Join(outDir, "globe.svg")

	var out bytes.Buffer
	opts := options{selectID: "R1", snapshot: snap, exportDir: outDir}
	if err := runOneShot(&out, opts, config.DefaultConfig(), dir, 7); err != nil {
		t.Fatalf("runOneShot: %v", err)
	}

	svg, err := os.ReadFile(snap)
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	if !strings.Contains(string(svg), "selected: R1") {
		t.Error("snapshot missing selection summary")
	}

	dbPath := filepath.Join(outDir, export.DefaultDatabaseName)
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("export not written: %v", err)
	}
	for _, want := range []string{"Snapshot written to " + snap, "Exported to " + dbPath} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	// The export directory is itself a data directory.
	ds, src, err := datasource.LoadDataset(outDir, loader.ParseOptions{})
	if err != nil {
		t.Fatalf("reload export: %v", err)
	}
	if src.Type != datasource.SourceTypeSQLite || len(ds.Nodes) != 4 {
		t.Errorf("reloaded %s with %d satellites", src.Type, len(ds.Nodes))
	}
}

func TestRunOneShot_JSONIncludesOutputs(t *testing.T) {
	dir := testutil.TempDataDir(t, testutil.Scenario())
	outDir := t.TempDir()
	rep := runJSON(t, options{selectID: "R1", exportDir: outDir, metrics: true}, dir, 7)

	if rep.Export != filepath.Join(outDir, export.DefaultDatabaseName) {
		t.Errorf("export = %q", rep.Export)
	}
	if metrics.Enabled() && len(rep.Metrics) == 0 {
		t.Error("metrics missing from JSON report")
	}
}

func TestRunOneShot_MetricsOnly(t *testing.T) {
	metrics.ResetAll()
	dir := testutil.TempDataDir(t, testutil.Scenario())

	var out bytes.Buffer
	if err := runOneShot(&out, options{selectID: "R1", metrics: true}, config.DefaultConfig(), dir, 7); err != nil {
		t.Fatalf("runOneShot: %v", err)
	}
	var stats []metrics.TimingStats
	if err := json.Unmarshal(out.Bytes(), &stats); err != nil {
		t.Fatalf("decode metrics: %v\n%s", err, out.String())
	}
	if !metrics.Enabled() {
		return
	}
	counts := map[string]int64{}
	for _, s := range stats {
		counts[s.Name] = s.Count
	}
	if counts[metrics.SelectionCompute.Name()] == 0 {
		t.Errorf("selection was not timed: %+v", stats)
	}
}
