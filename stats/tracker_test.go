package stats

import (
	"strings"
	"testing"
)

func TestTrackerCounts(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 1500; i++ {
		tr.IncrementLines()
	}
	tr.IncrementSpots()
	tr.IncrementSNRRejects()
	tr.IncrementDisplayWrites()
	tr.IncrementDisplayErrors()
	tr.AddPurged(3)
	tr.AddPurged(0)
	tr.AddPurged(-5)

	lines, spots, rejects, writes, writeErrs, purged := tr.Snapshot()
	if lines != 1500 || spots != 1 || rejects != 1 || writes != 1 || writeErrs != 1 || purged != 3 {
		t.Fatalf("snapshot = %d %d %d %d %d %d", lines, spots, rejects, writes, writeErrs, purged)
	}
}

func TestSummaryFormatsThousands(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 12345; i++ {
		tr.IncrementLines()
	}
	got := tr.Summary(7, 2)
	if !strings.Contains(got, "lines 12,345") {
		t.Fatalf("summary missing grouped line count: %q", got)
	}
	if !strings.Contains(got, "active 7") || !strings.Contains(got, "event drops 2") {
		t.Fatalf("summary missing gauge values: %q", got)
	}
}
