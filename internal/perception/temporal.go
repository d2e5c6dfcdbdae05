package perception

import (
	"regexp"

	"forge/internal/vocab"
)

// =============================================================================
// TEMPORAL MODIFIER DETECTION
// =============================================================================
// Detected independently of intent so any classification can carry a time
// bias, e.g. "what was the first thing we studied last month".

var temporalDirectionPatterns = []struct {
	re        *regexp.Regexp
	direction vocab.TemporalDirection
}{
	{regexp.MustCompile(`(?i)\b(first|earliest|oldest|originally|at the (very )?beginning|initially)\b`), vocab.TemporalOldest},
	{regexp.MustCompile(`(?i)\b(latest|newest|most recent(ly)?|last time|just now)\b`), vocab.TemporalNewest},
}

var temporalRangePatterns = []struct {
	re *regexp.Regexp
	rg vocab.TemporalRange
}{
	{regexp.MustCompile(`(?i)\b(yesterday|last night|this morning|today|past 24 hours)\b`), vocab.RangeLastDay},
	{regexp.MustCompile(`(?i)\b((last|past|this) week|few days ago)\b`), vocab.RangeLastWeek},
	{regexp.MustCompile(`(?i)\b((last|past|these) (few|3|three) months)\b`), vocab.RangeLast3Months},
	{regexp.MustCompile(`(?i)\b((last|past|this) month|few weeks ago)\b`), vocab.RangeLastMonth},
	{regexp.MustCompile(`(?i)\b((last|past) year)\b`), vocab.RangeLastYear},
	{regexp.MustCompile(`(?i)\b(this year)\b`), vocab.RangeThisYear},
}

// DetectTemporal finds a temporal direction and/or range in the message.
// Returns nil when neither is present.
func DetectTemporal(message string) *TemporalModifier {
	var mod TemporalModifier
	found := false

	for _, dp := range temporalDirectionPatterns {
		if dp.re.MatchString(message) {
			mod.Direction = dp.direction
			found = true
			break
		}
	}

	for _, rp := range temporalRangePatterns {
		if rp.re.MatchString(message) {
			mod.Range = rp.rg
			found = true
			break
		}
	}

	if !found {
		return nil
	}
	return &mod
}
