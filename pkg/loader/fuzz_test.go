package loader_test

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/orbview/pkg/loader"
)

// Run with: go test -fuzz=FuzzParseRegions -fuzztime=1m ./pkg/loader/...

func FuzzParseRegions(f *testing.F) {
	seeds := []string{
		`[{"location":"X","satellites":["A","B"]}]`,
		`[]`,
		``,
		`[{"location":`,
		`[{"location":"X","satellites":"A"}]`,
		`[null, 1, "s", {"location":"Y"}]`,
		"\xEF\xBB\xBF[]",
	}
	for _, s := range seeds {
		f.Add(s)
	}
	opts := loader.ParseOptions{WarningHandler: func(string) {}}
	f.Fuzz(func(t *testing.T, in string) {
		regions, err := loader.ParseRegions(strings.NewReader(in), opts)
		if err != nil {
			return
		}
		seen := map[string]bool{}
		for _, r := range regions {
			if strings.TrimSpace(r.ID) == "" {
				t.Fatalf("blank region id accepted from %q", in)
			}
			if seen[r.ID] {
				t.Fatalf("duplicate region %q accepted", r.ID)
			}
			seen[r.ID] = true
		}
	})
}

func FuzzParseNodes(f *testing.F) {
	f.Add(`[{"satellite":"S1"},{"satelliteId":"S2"}]`)
	f.Add(`[{}]`)
	f.Add(`{`)
	opts := loader.ParseOptions{WarningHandler: func(string) {}}
	f.Fuzz(func(t *testing.T, in string) {
		nodes, err := loader.ParseNodes(strings.NewReader(in), opts)
		if err != nil {
			return
		}
		for _, n := range nodes {
			if strings.TrimSpace(n.ID) == "" || n.ID != strings.TrimSpace(n.ID) {
				t.Fatalf("bad node id %q", n.ID)
			}
		}
	})
}
