// Package safety classifies text before it is stored as memory or injected
// into a prompt. The core distinction: named spiritual struggles (anger,
// anxiety, doubt) are pastoral content the engine should remember, while
// personal disclosures of medical, legal, financial, substance, or trauma
// specifics must never be persisted. A sensitive topic alone does not block
// text; it blocks only when a first-person indicator appears within a fixed
// word window of the match, so third-person and theological discussion of
// the same topics passes.
package safety

import (
	"regexp"
	"strings"
	"unicode"

	"forge/internal/vocab"
)

// DisclosureWindow is the word distance within which a first-person
// indicator turns a sensitive topic match into a personal disclosure.
const DisclosureWindow = 8

// Rejection reasons recorded in audit logs. The rejected text itself is
// never logged.
const (
	ReasonSensitiveDisclosure = "sensitive_disclosure"
	ReasonInjectionAttempt    = "injection_attempt"
	ReasonSecretMaterial      = "secret_material"
	ReasonEmptyText           = "empty_text"
	ReasonCategoryPolicy      = "category_policy"
)

// Verdict is the result of a safety check.
type Verdict struct {
	Allowed  bool
	Reason   string // one of the Reason* constants, empty when allowed
	Category string // blocked pattern category that fired (medical, trauma, ...)
}

// =============================================================================
// PATTERN TABLES
// =============================================================================

// pastoralPatterns name the emotional and spiritual struggles a pastoral
// application is supposed to remember. Each maps to a closed struggle theme.
var pastoralPatterns = []struct {
	re    *regexp.Regexp
	theme vocab.StruggleTheme
}{
	{regexp.MustCompile(`\b(anger|angry|rage|temper|furious)\b`), vocab.ThemeAnger},
	{regexp.MustCompile(`\b(anxiety|anxious|worr(y|ied|ying)|overwhelmed|panic)\b`), vocab.ThemeAnxiety},
	{regexp.MustCompile(`\b(doubt(s|ing)?|questioning .{0,20}faith|unbelief)\b`), vocab.ThemeDoubt},
	{regexp.MustCompile(`\b(temptation|tempted|lust)\b`), vocab.ThemeTemptation},
	{regexp.MustCompile(`\b(grief|grieving|mourning|passed away|lost (my|our|his|her))\b`), vocab.ThemeGrief},
	{regexp.MustCompile(`\b(lonel(y|iness)|isolated|no friends|all alone)\b`), vocab.ThemeLoneliness},
	{regexp.MustCompile(`\b(afraid|fear(ful|s)?|scared|terrified)\b`), vocab.ThemeFear},
	{regexp.MustCompile(`\b(shame|ashamed|humiliated)\b`), vocab.ThemeShame},
	{regexp.MustCompile(`\b(guilt(y)?|condemn(ed|ation))\b`), vocab.ThemeGuilt},
	{regexp.MustCompile(`\b(pride|prideful|arrogan(t|ce))\b`), vocab.ThemePride},
	{regexp.MustCompile(`\b(unforgiveness|(can'?t|cannot|won'?t) forgive|bitterness|resent(ment|ful)?)\b`), vocab.ThemeUnforgiveness},
	{regexp.MustCompile(`\b(burn(ed|t)?[- ]?out|burnout|exhausted|weary|running on empty)\b`), vocab.ThemeBurnout},
}

// blockedPatterns are the sensitive categories that must not be persisted
// as memory. Topical categories require a first-person indicator nearby;
// structured identifiers (requiresDisclosure=false) block unconditionally.
var blockedPatterns = []struct {
	re                 *regexp.Regexp
	category           string
	requiresDisclosure bool
}{
	{regexp.MustCompile(`\b(diagnos(ed|is)|bipolar|schizophreni\w*|ptsd|clinical depression|antidepressants?|chemotherapy|terminal illness|prescri(bed|ption)|medications?)\b`), "medical", true},
	{regexp.MustCompile(`\b(suicid\w*|kill (myself|himself|herself|themselves)|end (my|his|her) life|self[- ]harm|hurt(ing)? myself|cutting myself)\b`), "self_harm", true},
	{regexp.MustCompile(`\b(overdos\w*|relaps(e|ed|ing)|addict(ed|ion)?|alcoholi\w*|getting (high|drunk)|heroin|cocaine|\bmeth\b|opioid)\b`), "substance", true},
	{regexp.MustCompile(`\b(arrest(ed)?|lawsuit|suing|probation|parole|felony|(in|to) jail|prison|court date|custody battle|restraining order)\b`), "legal", true},
	{regexp.MustCompile(`\b(bankrupt(cy)?|foreclos\w*|evict(ed|ion)|debt collector|gambling debt|payday loan|credit score)\b`), "financial", true},
	{regexp.MustCompile(`\b(abus(ed|ive|ing)|molest\w*|assault(ed)?|rap(e|ed|ist)|trauma(tic|tized)?|violat(ed|ion))\b`), "trauma", true},
	{regexp.MustCompile(`\b\d{3}[- ]\d{2}[- ]\d{4}\b`), "pii", false},
	{regexp.MustCompile(`\b\d{13,16}\b`), "pii", false},
	{regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[a-z]{2,}\b`), "pii", false},
	{regexp.MustCompile(`\b\d{3}[-.]\d{3}[-.]\d{4}\b`), "pii", false},
}

// firstPersonIndicators mark personal disclosure. Tokens are matched after
// lowercasing, with apostrophes kept inside words.
var firstPersonIndicators = map[string]bool{
	"i": true, "i'm": true, "i've": true, "i'd": true, "i'll": true,
	"me": true, "my": true, "mine": true, "myself": true,
	"we": true, "we're": true, "we've": true, "our": true, "ours": true,
	"us": true, "ourselves": true,
}

// =============================================================================
// CORE CHECKS
// =============================================================================

// Check classifies text for memory storage. Sensitive topics block only
// when a first-person indicator falls within DisclosureWindow words of the
// match; structured identifiers block regardless.
func Check(text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return Verdict{Allowed: false, Reason: ReasonEmptyText}
	}

	lower := strings.ToLower(text)
	tokens := tokenize(lower)

	for _, bp := range blockedPatterns {
		for _, loc := range bp.re.FindAllStringIndex(lower, -1) {
			if !bp.requiresDisclosure {
				return Verdict{Allowed: false, Reason: ReasonSensitiveDisclosure, Category: bp.category}
			}
			idx := wordIndexAt(tokens, loc[0])
			if firstPersonWithin(tokens, idx, DisclosureWindow) {
				return Verdict{Allowed: false, Reason: ReasonSensitiveDisclosure, Category: bp.category}
			}
		}
	}

	return Verdict{Allowed: true}
}

// IsPastoralTopic reports whether text names a recognized spiritual struggle.
func IsPastoralTopic(text string) bool {
	return len(MatchThemes(text)) > 0
}

// MatchThemes returns the struggle themes named in text, in pattern-table
// order, without duplicates.
func MatchThemes(text string) []vocab.StruggleTheme {
	lower := strings.ToLower(text)
	var themes []vocab.StruggleTheme
	seen := make(map[vocab.StruggleTheme]bool)

	for _, pp := range pastoralPatterns {
		if seen[pp.theme] {
			continue
		}
		if pp.re.MatchString(lower) {
			themes = append(themes, pp.theme)
			seen[pp.theme] = true
		}
	}

	return themes
}

// =============================================================================
// TOKENIZATION
// =============================================================================

type token struct {
	text  string
	start int
}

// tokenize splits already-lowercased text into word tokens with byte
// offsets. Apostrophes are kept so contractions like "i'm" stay one token.
func tokenize(lower string) []token {
	var tokens []token
	start := -1
	for i, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			tokens = append(tokens, token{text: lower[start:i], start: start})
			start = -1
		}
	}
	if start != -1 {
		tokens = append(tokens, token{text: lower[start:], start: start})
	}
	return tokens
}

// wordIndexAt returns the index of the token covering or following the
// given byte offset.
func wordIndexAt(tokens []token, offset int) int {
	for i, tok := range tokens {
		if tok.start+len(tok.text) > offset {
			return i
		}
	}
	return len(tokens) - 1
}

// firstPersonWithin reports whether any token in the window around idx is a
// first-person indicator.
func firstPersonWithin(tokens []token, idx, window int) bool {
	lo := idx - window
	if lo < 0 {
		lo = 0
	}
	hi := idx + window
	if hi > len(tokens)-1 {
		hi = len(tokens) - 1
	}
	for i := lo; i <= hi; i++ {
		if firstPersonIndicators[tokens[i].text] {
			return true
		}
	}
	return false
}
