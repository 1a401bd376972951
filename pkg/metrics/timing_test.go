package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestTimingMetric_Record(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	st := m.Stats()
	if st.Count != 2 {
		t.Errorf("Count = %d, want 2", st.Count)
	}
	if st.MinMs != 2 || st.MaxMs != 4 || st.AvgMs != 3 {
		t.Errorf("min/max/avg = %v/%v/%v, want 2/4/3", st.MinMs, st.MaxMs, st.AvgMs)
	}

	m.Reset()
	if m.Count() != 0 || m.MinNs() != 0 {
		t.Error("Reset did not clear the metric")
	}
}

func TestTimingMetric_ConcurrentRecord(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("concurrent")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record(time.Microsecond)
			}
		}()
	}
	wg.Wait()
	if m.Count() != 800 {
		t.Errorf("Count = %d, want 800", m.Count())
	}
}

func TestTimer_Disabled(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	m := newTimingMetric("disabled")
	Timer(m)()
	if m.Count() != 0 {
		t.Errorf("disabled metrics recorded %d samples", m.Count())
	}
}

func TestAllTimingStats_OnlyRecorded(t *testing.T) {
	SetEnabled(true)
	ResetAll()
	defer ResetAll()

	SelectionCompute.Record(time.Millisecond)
	stats := AllTimingStats()
	if len(stats) != 1 || stats[0].Name != "selection_compute" {
		t.Errorf("AllTimingStats = %+v, want only selection_compute", stats)
	}
}
