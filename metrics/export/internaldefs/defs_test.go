package internaldefs

import (
	"strings"
	"testing"
)

func TestCounterDefsAreUniqueAndSuffixed(t *testing.T) {
	seen := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		if !strings.HasPrefix(def.Name, "sessionguard_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %q", def.Name)
		}
		if seen[def.Name] {
			t.Fatalf("duplicate counter name %q", def.Name)
		}
		seen[def.Name] = true
	}
}

func TestBucketHelpers(t *testing.T) {
	norm := NormalizeBuckets([]uint64{1, 2, 3})
	if norm != [8]uint64{1, 2, 3, 0, 0, 0, 0, 0} {
		t.Fatalf("unexpected normalized buckets %v", norm)
	}
	cum := CumulativeBuckets([8]uint64{1, 2, 3, 4, 5, 6, 7, 8})
	if cum != [8]uint64{1, 3, 6, 10, 15, 21, 28, 36} {
		t.Fatalf("unexpected cumulative buckets %v", cum)
	}
	if len(HistogramUpperBounds)+1 != len(HistogramBounds) || len(HistogramBounds) != len(HistogramBoundSuffix) {
		t.Fatal("bucket label tables out of sync")
	}
}
