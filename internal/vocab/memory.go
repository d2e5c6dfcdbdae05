package vocab

// MemoryType is the closed set of durable memory categories the promotion
// engine may write. Signal types mirror memory types one to one: a signal of
// type T promotes into a memory of type T.
type MemoryType string

const (
	// MemoryStruggleTheme is a recurring emotional or spiritual struggle the
	// user has named about themselves.
	MemoryStruggleTheme MemoryType = "struggle_theme"

	// MemoryFaithStage is the user's self-described place in their faith
	// journey.
	MemoryFaithStage MemoryType = "faith_stage"
)

// SignalType aliases MemoryType for the pre-promotion counting phase.
type SignalType = MemoryType

// AllMemoryTypes returns every valid memory (and signal) type.
func AllMemoryTypes() []MemoryType {
	return []MemoryType{MemoryStruggleTheme, MemoryFaithStage}
}

// ValidMemoryType reports whether s names a registered memory type.
func ValidMemoryType(s string) bool {
	for _, t := range AllMemoryTypes() {
		if string(t) == s {
			return true
		}
	}
	return false
}

// StruggleTheme is the closed value set for MemoryStruggleTheme.
type StruggleTheme string

const (
	ThemeAnger         StruggleTheme = "anger"
	ThemeAnxiety       StruggleTheme = "anxiety"
	ThemeDoubt         StruggleTheme = "doubt"
	ThemeTemptation    StruggleTheme = "temptation"
	ThemeGrief         StruggleTheme = "grief"
	ThemeLoneliness    StruggleTheme = "loneliness"
	ThemeFear          StruggleTheme = "fear"
	ThemeShame         StruggleTheme = "shame"
	ThemeGuilt         StruggleTheme = "guilt"
	ThemePride         StruggleTheme = "pride"
	ThemeUnforgiveness StruggleTheme = "unforgiveness"
	ThemeBurnout       StruggleTheme = "burnout"
)

// AllStruggleThemes returns every valid struggle theme.
func AllStruggleThemes() []StruggleTheme {
	return []StruggleTheme{
		ThemeAnger,
		ThemeAnxiety,
		ThemeDoubt,
		ThemeTemptation,
		ThemeGrief,
		ThemeLoneliness,
		ThemeFear,
		ThemeShame,
		ThemeGuilt,
		ThemePride,
		ThemeUnforgiveness,
		ThemeBurnout,
	}
}

// ValidStruggleTheme reports whether s names a registered struggle theme.
func ValidStruggleTheme(s string) bool {
	for _, t := range AllStruggleThemes() {
		if string(t) == s {
			return true
		}
	}
	return false
}

// FaithStage is the closed value set for MemoryFaithStage.
type FaithStage string

const (
	StageExploring   FaithStage = "exploring"
	StageNewBeliever FaithStage = "new_believer"
	StageGrowing     FaithStage = "growing"
	StageEstablished FaithStage = "established"
	StageMature      FaithStage = "mature"
	StageReturning   FaithStage = "returning"
)

// AllFaithStages returns every valid faith stage.
func AllFaithStages() []FaithStage {
	return []FaithStage{
		StageExploring,
		StageNewBeliever,
		StageGrowing,
		StageEstablished,
		StageMature,
		StageReturning,
	}
}

// ValidFaithStage reports whether s names a registered faith stage.
func ValidFaithStage(s string) bool {
	for _, f := range AllFaithStages() {
		if string(f) == s {
			return true
		}
	}
	return false
}

// ValueForType validates a raw value against the closed set belonging to its
// memory type. It returns the canonical value and true when the pair is
// registered, and ("", false) otherwise. Callers drop invalid pairs; they do
// not correct them.
func ValueForType(memoryType, raw string) (string, bool) {
	switch MemoryType(memoryType) {
	case MemoryStruggleTheme:
		if ValidStruggleTheme(raw) {
			return raw, true
		}
	case MemoryFaithStage:
		if ValidFaithStage(raw) {
			return raw, true
		}
	}
	return "", false
}

// NoteCategory is the closed set of categories for explicitly captured
// memory notes (the save_memory_candidate tool surface).
type NoteCategory string

const (
	CategoryPrayerRequest    NoteCategory = "prayer_request"
	CategorySpiritualInsight NoteCategory = "spiritual_insight"
	CategoryLifeEvent        NoteCategory = "life_event"
	CategoryPreference       NoteCategory = "preference"
	CategoryGratitude        NoteCategory = "gratitude"
)

// AllNoteCategories returns every valid note category.
func AllNoteCategories() []NoteCategory {
	return []NoteCategory{
		CategoryPrayerRequest,
		CategorySpiritualInsight,
		CategoryLifeEvent,
		CategoryPreference,
		CategoryGratitude,
	}
}

// ValidNoteCategory reports whether s names a registered note category.
func ValidNoteCategory(s string) bool {
	for _, c := range AllNoteCategories() {
		if string(c) == s {
			return true
		}
	}
	return false
}

// MemoryStrength grades how established a memory is, derived from its
// occurrence count. Never set directly.
type MemoryStrength string

const (
	StrengthLight    MemoryStrength = "light"
	StrengthModerate MemoryStrength = "moderate"
	StrengthStrong   MemoryStrength = "strong"
)

// StrengthForOccurrences maps an occurrence count onto a strength grade.
// The breakpoints are contract constants, not tunables.
func StrengthForOccurrences(n int) MemoryStrength {
	switch {
	case n >= StrengthStrongAt:
		return StrengthStrong
	case n >= StrengthModerateAt:
		return StrengthModerate
	default:
		return StrengthLight
	}
}

// MemorySource records how a memory came to exist.
type MemorySource string

const (
	// SourceSignalPromotion marks memories created by the counting state
	// machine reaching its threshold.
	SourceSignalPromotion MemorySource = "signal_promotion"

	// SourceExplicitCapture marks memories written directly through the tool
	// surface.
	SourceExplicitCapture MemorySource = "explicit_capture"
)
