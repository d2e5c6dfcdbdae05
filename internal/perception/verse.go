package perception

import (
	"regexp"
	"strings"
)

// =============================================================================
// VERSE REFERENCE DETECTION
// =============================================================================

// bookNames maps lowercased book names and common abbreviations to the
// canonical book name. Numbered books are keyed without their ordinal; the
// ordinal is re-attached from the regex capture.
var bookNames = map[string]string{
	"genesis": "Genesis", "gen": "Genesis",
	"exodus": "Exodus", "exod": "Exodus", "ex": "Exodus",
	"leviticus": "Leviticus", "lev": "Leviticus",
	"numbers": "Numbers", "num": "Numbers",
	"deuteronomy": "Deuteronomy", "deut": "Deuteronomy",
	"joshua": "Joshua", "josh": "Joshua",
	"judges": "Judges", "judg": "Judges",
	"ruth": "Ruth",
	"samuel": "Samuel", "sam": "Samuel",
	"kings": "Kings", "kgs": "Kings",
	"chronicles": "Chronicles", "chron": "Chronicles", "chr": "Chronicles",
	"ezra":     "Ezra",
	"nehemiah": "Nehemiah", "neh": "Nehemiah",
	"esther": "Esther", "esth": "Esther",
	"job":    "Job",
	"psalms": "Psalms", "psalm": "Psalms", "ps": "Psalms", "pss": "Psalms",
	"proverbs": "Proverbs", "prov": "Proverbs",
	"ecclesiastes": "Ecclesiastes", "eccl": "Ecclesiastes",
	"song": "Song of Solomon",
	"isaiah": "Isaiah", "isa": "Isaiah",
	"jeremiah": "Jeremiah", "jer": "Jeremiah",
	"lamentations": "Lamentations", "lam": "Lamentations",
	"ezekiel": "Ezekiel", "ezek": "Ezekiel",
	"daniel": "Daniel", "dan": "Daniel",
	"hosea": "Hosea", "hos": "Hosea",
	"joel": "Joel",
	"amos": "Amos",
	"obadiah": "Obadiah", "obad": "Obadiah",
	"jonah": "Jonah", "jon": "Jonah",
	"micah": "Micah", "mic": "Micah",
	"nahum": "Nahum", "nah": "Nahum",
	"habakkuk": "Habakkuk", "hab": "Habakkuk",
	"zephaniah": "Zephaniah", "zeph": "Zephaniah",
	"haggai": "Haggai", "hag": "Haggai",
	"zechariah": "Zechariah", "zech": "Zechariah",
	"malachi": "Malachi", "mal": "Malachi",
	"matthew": "Matthew", "matt": "Matthew", "mt": "Matthew",
	"mark": "Mark", "mk": "Mark",
	"luke": "Luke", "lk": "Luke",
	"john": "John", "jn": "John",
	"acts": "Acts",
	"romans": "Romans", "rom": "Romans",
	"corinthians": "Corinthians", "cor": "Corinthians",
	"galatians": "Galatians", "gal": "Galatians",
	"ephesians": "Ephesians", "eph": "Ephesians",
	"philippians": "Philippians", "phil": "Philippians",
	"colossians": "Colossians", "col": "Colossians",
	"thessalonians": "Thessalonians", "thess": "Thessalonians",
	"timothy": "Timothy", "tim": "Timothy",
	"titus":    "Titus",
	"philemon": "Philemon", "phlm": "Philemon",
	"hebrews": "Hebrews", "heb": "Hebrews",
	"james": "James", "jas": "James",
	"peter": "Peter", "pet": "Peter",
	"jude":       "Jude",
	"revelation": "Revelation", "rev": "Revelation",
}

// verseRefPattern matches "John 3:16", "1 cor 13:4-7", "Psalm 23",
// "2 Tim 1.7". Book-name validation happens after the match.
var verseRefPattern = regexp.MustCompile(`(?i)\b([1-3]\s+)?([a-z]+)\.?\s+(\d{1,3})(?:[:.](\d{1,3})(?:\s*-\s*(\d{1,3}))?)?\b`)

// DetectVerseRef finds the first scripture reference in text and returns it
// in canonical form. The boolean reports whether one was found.
// On an invalid book name the scan re-anchors one byte past the failed
// match start, so "reading 1 cor 13" still yields "1 Corinthians 13" after
// "reading 1" is rejected.
func DetectVerseRef(text string) (string, bool) {
	offset := 0
	for offset < len(text) {
		loc := verseRefPattern.FindStringSubmatchIndex(text[offset:])
		if loc == nil {
			return "", false
		}

		group := func(i int) string {
			if loc[2*i] == -1 {
				return ""
			}
			return text[offset+loc[2*i] : offset+loc[2*i+1]]
		}

		book, ok := bookNames[strings.ToLower(group(2))]
		if !ok {
			offset += loc[0] + 1
			continue
		}

		var ref strings.Builder
		if ordinal := strings.TrimSpace(group(1)); ordinal != "" {
			ref.WriteString(ordinal)
			ref.WriteString(" ")
		}
		ref.WriteString(book)
		ref.WriteString(" ")
		ref.WriteString(group(3))
		if group(4) != "" {
			ref.WriteString(":")
			ref.WriteString(group(4))
			if group(5) != "" {
				ref.WriteString("-")
				ref.WriteString(group(5))
			}
		}
		return ref.String(), true
	}
	return "", false
}

// FormatVerseRef normalizes a caller-supplied reference through the same
// canonicalization as detection, falling back to the raw string.
func FormatVerseRef(raw string) string {
	if ref, ok := DetectVerseRef(raw); ok {
		return ref
	}
	return strings.TrimSpace(raw)
}

