package store

import (
	"fmt"
	"testing"
	"time"

	"rbnvfd/rbn"
	"rbnvfd/spot"
)

func rawSpot(call string, freq float64, snr, wpm int, at time.Time) *spot.RawSpot {
	return &spot.RawSpot{
		Spotter:   "W1AW",
		DXCall:    call,
		Frequency: freq,
		SNR:       snr,
		WPM:       wpm,
		Mode:      "CW",
		Time:      at,
	}
}

func TestAddSameSpotRepeatedlyKeepsMeansAtSample(t *testing.T) {
	s := New(0, 10*time.Minute)
	now := time.Now()
	for i := 0; i < 7; i++ {
		s.Add(rawSpot("WO6W", 14033.0, 24, 22, now))
	}

	snap := s.Snapshot(now)
	if len(snap) != 1 {
		t.Fatalf("expected one entry, got %d", len(snap))
	}
	entry := snap[0]
	if entry.Count != 7 {
		t.Fatalf("expected count 7, got %d", entry.Count)
	}
	if entry.AverageWPM != 22 {
		t.Fatalf("mean of identical speeds must be the speed, got %f", entry.AverageWPM)
	}
	if entry.Frequency != 14033.0 {
		t.Fatalf("mean of identical frequencies must be the frequency, got %f", entry.Frequency)
	}
	if entry.HighestSNR != 24 {
		t.Fatalf("expected highest SNR 24, got %d", entry.HighestSNR)
	}
}

func TestDistinctKeysStayDistinct(t *testing.T) {
	s := New(0, 10*time.Minute)
	now := time.Now()
	s.Add(rawSpot("WO6W", 14033.0, 20, 22, now))
	s.Add(rawSpot("WO6W", 7012.0, 20, 22, now))  // same call, other band
	s.Add(rawSpot("K1ABC", 14033.0, 20, 22, now)) // other call, same frequency
	s.Add(rawSpot("WO6W", 14033.4, 20, 22, now))  // rounds into the first key

	if s.Count() != 3 {
		t.Fatalf("expected 3 distinct keys, got %d", s.Count())
	}
}

func TestHighestSNRIsOrderIndependentMax(t *testing.T) {
	now := time.Now()
	orders := [][]int{{5, 30, 12}, {30, 5, 12}, {12, 5, 30}}
	for _, snrs := range orders {
		s := New(0, 10*time.Minute)
		for _, snr := range snrs {
			s.Add(rawSpot("WO6W", 14033.0, snr, 22, now))
		}
		snap := s.Snapshot(now)
		if len(snap) != 1 || snap[0].HighestSNR != 30 {
			t.Fatalf("order %v: expected max SNR 30, got %+v", snrs, snap)
		}
	}
}

func TestIncrementalMeansMatchArithmeticMean(t *testing.T) {
	s := New(0, 10*time.Minute)
	now := time.Now()
	s.Add(rawSpot("WO6W", 14033.0, 20, 20, now))
	s.Add(rawSpot("WO6W", 14033.2, 20, 26, now))
	s.Add(rawSpot("WO6W", 14032.8, 20, 23, now))

	snap := s.Snapshot(now)
	if len(snap) != 1 {
		t.Fatalf("expected one entry, got %d", len(snap))
	}
	if got := snap[0].AverageWPM; got != 23 {
		t.Fatalf("expected mean speed 23, got %f", got)
	}
	if got := snap[0].Frequency; got < 14032.999 || got > 14033.001 {
		t.Fatalf("expected mean frequency ~14033.0, got %f", got)
	}
}

func TestAddRejectsBelowMinSNR(t *testing.T) {
	s := New(10, 10*time.Minute)
	now := time.Now()
	s.Add(rawSpot("WO6W", 14033.0, 9, 22, now))
	if s.Count() != 0 {
		t.Fatalf("expected SNR gate to reject the spot")
	}
	s.Add(rawSpot("WO6W", 14033.0, 10, 22, now))
	if s.Count() != 1 {
		t.Fatalf("expected SNR at the gate to pass")
	}
}

func TestPurgeEvictsOnlyStrictlyOlderThanMaxAge(t *testing.T) {
	maxAge := 10 * time.Minute
	s := New(0, maxAge)
	now := time.Now()

	s.Add(rawSpot("OLD1AA", 7001.0, 20, 22, now.Add(-maxAge-time.Second)))
	s.Add(rawSpot("EDGE1A", 7002.0, 20, 22, now.Add(-maxAge))) // exactly at the boundary
	s.Add(rawSpot("NEW1AA", 7003.0, 20, 22, now))

	removed := s.Purge(now)
	if removed != 1 {
		t.Fatalf("expected exactly one eviction, got %d", removed)
	}
	if s.Count() != 2 {
		t.Fatalf("expected the boundary entry retained, count %d", s.Count())
	}
	snap := s.Snapshot(now)
	for _, entry := range snap {
		if entry.Callsign == "OLD1AA" {
			t.Fatalf("expired entry still visible in snapshot")
		}
	}
}

func TestSnapshotOrderedByFrequencyThenCallsign(t *testing.T) {
	s := New(0, 10*time.Minute)
	now := time.Now()
	s.Add(rawSpot("ZL1XYZ", 7012.0, 20, 22, now))
	s.Add(rawSpot("AA1AA", 7012.0, 20, 22, now))
	s.Add(rawSpot("K5XX", 3521.0, 20, 22, now))

	snap := s.Snapshot(now)
	if len(snap) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(snap))
	}
	if snap[0].Callsign != "K5XX" {
		t.Fatalf("expected lowest frequency first, got %s", snap[0].Callsign)
	}
	if snap[1].Callsign != "AA1AA" || snap[2].Callsign != "ZL1XYZ" {
		t.Fatalf("expected callsign tie-break, got %s then %s", snap[1].Callsign, snap[2].Callsign)
	}
}

func TestSnapshotHidesAgedEntriesBeforePurge(t *testing.T) {
	maxAge := 10 * time.Minute
	s := New(0, maxAge)
	now := time.Now()
	s.Add(rawSpot("WO6W", 14033.0, 20, 22, now.Add(-maxAge-time.Minute)))

	if got := len(s.Snapshot(now)); got != 0 {
		t.Fatalf("expected aged entry filtered from snapshot, got %d", got)
	}
	if s.Count() != 1 {
		t.Fatalf("snapshot must not evict; count %d", s.Count())
	}
}

func TestFilterSettersTakeEffectOnNextCall(t *testing.T) {
	s := New(0, 10*time.Minute)
	now := time.Now()
	s.Add(rawSpot("WO6W", 14033.0, 5, 22, now))

	s.SetMinSNR(10)
	if got := len(s.Snapshot(now)); got != 0 {
		t.Fatalf("expected raised gate to hide the weak entry, got %d", got)
	}
	s.Add(rawSpot("K1ABC", 7012.0, 5, 22, now))
	if s.Count() != 1 {
		t.Fatalf("expected raised gate to reject new weak spots")
	}

	s.SetMaxAge(time.Minute)
	s.Add(rawSpot("N0XYZ", 3521.0, 20, 22, now.Add(-2*time.Minute)))
	if removed := s.Purge(now); removed != 1 {
		t.Fatalf("expected tightened age gate to evict, removed %d", removed)
	}
}

func TestClearDropsEverything(t *testing.T) {
	s := New(0, 10*time.Minute)
	now := time.Now()
	for i := 0; i < 5; i++ {
		s.Add(rawSpot(fmt.Sprintf("K%dAB", i), 7000.0+float64(i), 20, 22, now))
	}
	s.Clear()
	if s.Count() != 0 {
		t.Fatalf("expected empty store after clear, got %d", s.Count())
	}
}

// TestSpotLineToDisplayString walks one feed line through parser, store and
// display formatting.
func TestSpotLineToDisplayString(t *testing.T) {
	now := time.Now()
	raw, ok := rbn.ParseSpotLine("DX de W1AW-#: 14033.0 WO6W CW 24 dB 22 WPM\r", now)
	if !ok {
		t.Fatalf("expected the line to parse")
	}

	s := New(10, 10*time.Minute)
	s.Add(raw)
	if s.Count() != 1 {
		t.Fatalf("expected one aggregated entry, got %d", s.Count())
	}

	snap := s.Snapshot(now)
	if snap[0].Key() != spot.AggregateKey("WO6W", 14033.0) {
		t.Fatalf("entry keyed differently from (WO6W, 14033)")
	}
	if got := snap[0].DisplayString(); got != "14033.0 22 WO6W     " {
		t.Fatalf("display string mismatch: %q", got)
	}
}
