package perception

import (
	"testing"

	"forge/internal/vocab"
)

func TestDetectTemporal(t *testing.T) {
	tests := []struct {
		input     string
		direction vocab.TemporalDirection
		timeRange vocab.TemporalRange
	}{
		{"what was the first thing we studied last month", vocab.TemporalOldest, vocab.RangeLastMonth},
		{"show me my most recent notes", vocab.TemporalNewest, ""},
		{"notes from the past week", "", vocab.RangeLastWeek},
		{"everything we prayed about this year", "", vocab.RangeThisYear},
		{"what did I highlight in the past few months", "", vocab.RangeLast3Months},
		{"what did we study yesterday", "", vocab.RangeLastDay},
	}

	for _, tt := range tests {
		mod := DetectTemporal(tt.input)
		if mod == nil {
			t.Errorf("DetectTemporal(%q) = nil, want modifier", tt.input)
			continue
		}
		if mod.Direction != tt.direction {
			t.Errorf("DetectTemporal(%q) direction = %q, want %q", tt.input, mod.Direction, tt.direction)
		}
		if mod.Range != tt.timeRange {
			t.Errorf("DetectTemporal(%q) range = %q, want %q", tt.input, mod.Range, tt.timeRange)
		}
	}
}

func TestDetectTemporalAbsent(t *testing.T) {
	for _, input := range []string{"hello there", "what does this verse mean"} {
		if mod := DetectTemporal(input); mod != nil {
			t.Errorf("DetectTemporal(%q) = %+v, want nil", input, mod)
		}
	}
}
