package loader_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vanderheijden86/orbview/pkg/loader"
	"github.com/vanderheijden86/orbview/pkg/model"
)

func collect(warnings *[]string) loader.ParseOptions {
	return loader.ParseOptions{WarningHandler: func(msg string) {
		*warnings = append(*warnings, msg)
	}}
}

func writeDataset(t *testing.T, nodes, regions string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, loader.NodesFile), []byte(nodes), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, loader.RegionsFile), []byte(regions), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestGetDataDir(t *testing.T) {
	t.Setenv(loader.DataDirEnvVar, "")
	dir, err := loader.GetDataDir("/srv/globe")
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/srv/globe", "data") {
		t.Errorf("GetDataDir = %q", dir)
	}

	t.Setenv(loader.DataDirEnvVar, "/custom")
	dir, _ = loader.GetDataDir("/srv/globe")
	if dir != "/custom" {
		t.Errorf("env override ignored: %q", dir)
	}
}

func TestParseNodes(t *testing.T) {
	var warnings []string
	in := `[
		{"satellite": "S1"},
		{"satelliteId": "S2"},
		{"satellite": "  S3  "},
		{"satellite": ""},
		{"satellite": 42},
		{"satellite": "S1"}
	]`
	got, err := loader.ParseNodes(strings.NewReader(in), collect(&warnings))
	if err != nil {
		t.Fatalf("ParseNodes: %v", err)
	}
	want := []model.NodeRecord{{ID: "S1"}, {ID: "S2"}, {ID: "S3"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseNodes = %+v, want %+v", got, want)
	}
	if len(warnings) != 3 {
		t.Errorf("got %d warnings, want 3: %v", len(warnings), warnings)
	}
}

func TestParseRegions(t *testing.T) {
	var warnings []string
	in := `[
		{"location": "Nairobi", "satellites": ["S1", " S2 ", ""]},
		{"location": "Lima"},
		{"satellites": ["S1"]},
		{"location": "Nairobi", "satellites": []}
	]`
	got, err := loader.ParseRegions(strings.NewReader(in), collect(&warnings))
	if err != nil {
		t.Fatalf("ParseRegions: %v", err)
	}
	want := []model.RegionRecord{
		{ID: "Nairobi", Members: []string{"S1", "S2"}},
		{ID: "Lima", Members: []string{}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseRegions = %+v, want %+v", got, want)
	}
	if len(warnings) != 3 {
		t.Errorf("got %d warnings, want 3: %v", len(warnings), warnings)
	}
}

func TestParse_StripsBOM(t *testing.T) {
	in := "\xEF\xBB\xBF[{\"satellite\":\"S1\"}]"
	got, err := loader.ParseNodes(strings.NewReader(in), loader.ParseOptions{WarningHandler: func(string) {}})
	if err != nil {
		t.Fatalf("ParseNodes: %v", err)
	}
	if len(got) != 1 || got[0].ID != "S1" {
		t.Errorf("got %+v", got)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	got, err := loader.ParseRegions(strings.NewReader("  \n"), loader.ParseOptions{})
	if err != nil || len(got) != 0 {
		t.Errorf("empty input = %v, %v", got, err)
	}
}

func TestParse_NotAnArray(t *testing.T) {
	_, err := loader.ParseNodes(strings.NewReader(`{"satellite":"S1"}`), loader.ParseOptions{})
	if err == nil {
		t.Fatal("expected error for non-array input")
	}
}

func TestLoadDataset(t *testing.T) {
	dir := writeDataset(t,
		`[{"satellite":"A"},{"satellite":"B"}]`,
		`[{"location":"R1","satellites":["A","B","Z"]}]`)

	ds, err := loader.LoadDatasetWithOptions(dir, loader.ParseOptions{WarningHandler: func(string) {}})
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if len(ds.Nodes) != 2 || len(ds.Regions) != 1 {
		t.Fatalf("dataset = %+v", ds)
	}
	if got := ds.Regions[0].Members; !reflect.DeepEqual(got, []string{"A", "B", "Z"}) {
		t.Errorf("members = %v, unknown ids must survive loading", got)
	}
}

func TestLoadDataset_MissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := loader.LoadDataset(dir)
	if err == nil || !strings.Contains(err.Error(), "no dataset found") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadDataset_BadFileNamed(t *testing.T) {
	dir := writeDataset(t, `[]`, `not json`)
	_, err := loader.LoadDataset(dir)
	if err == nil || !strings.Contains(err.Error(), loader.RegionsFile) {
		t.Errorf("err = %v, want mention of %s", err, loader.RegionsFile)
	}
}
