// Package language provides fast, offline query language detection so the
// response can be tagged with the language the answer should be written in.
package language

import (
	"strings"
	"unicode"
)

// Result is one detection outcome.
type Result struct {
	Language   string  `json:"language"`
	Dialect    string  `json:"dialect,omitempty"`
	Confidence float64 `json:"confidence"`
}

// IsDialect reports whether a regional dialect was identified.
func (r Result) IsDialect() bool {
	return r.Dialect != ""
}

// arDialectMarkers maps Arabic dialects to distinctive vocabulary.
var arDialectMarkers = map[string][]string{
	"tunisian": {"شنوة", "برشا", "يزي", "باش", "نلقى"},
	"moroccan": {"واش", "بزاف", "شنو", "ديال"},
	"algerian": {"وين", "راني", "نحوس", "شحال"},
}

// frVerlanMarkers are French slang words that standard stopword detection
// would miss.
var frVerlanMarkers = []string{"chelou", "ouf", "wesh", "frero"}

// frStopwords are common French function words; two or more is a strong
// signal on short queries.
var frStopwords = []string{
	" le ", " la ", " les ", " est ", " une ", " des ",
	" que ", " pour ", " avec ", " vous ", " je ", " quel ",
}

type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Detect classifies the text as english, french, arabic, or unknown.
// Dialect markers are checked first because they are the most specific
// signal, then script, then stopwords.
func (d *Detector) Detect(text string) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{Language: "unknown", Confidence: 0.3}
	}
	lower := strings.ToLower(trimmed)

	for dialect, markers := range arDialectMarkers {
		for _, m := range markers {
			if strings.Contains(lower, m) {
				return Result{Language: "arabic", Dialect: dialect, Confidence: 0.75}
			}
		}
	}

	for _, m := range frVerlanMarkers {
		if containsWord(lower, m) {
			return Result{Language: "french", Dialect: "verlan", Confidence: 0.7}
		}
	}

	if arabicRatio(trimmed) > 0.3 {
		return Result{Language: "arabic", Confidence: 0.8}
	}

	padded := " " + lower + " "
	frHits := 0
	for _, w := range frStopwords {
		if strings.Contains(padded, w) {
			frHits++
		}
	}
	if frHits >= 2 {
		return Result{Language: "french", Confidence: 0.8}
	}

	if latinRatio(trimmed) > 0.5 {
		return Result{Language: "english", Confidence: 0.8}
	}

	return Result{Language: "unknown", Confidence: 0.4}
}

func containsWord(lower, word string) bool {
	for _, f := range strings.Fields(lower) {
		if strings.Trim(f, ".,!?;:'\"") == word {
			return true
		}
	}
	return false
}

func arabicRatio(text string) float64 {
	letters, arabic := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.Is(unicode.Arabic, r) {
				arabic++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(arabic) / float64(letters)
}

func latinRatio(text string) float64 {
	letters, latin := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.Is(unicode.Latin, r) {
				latin++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(latin) / float64(letters)
}
