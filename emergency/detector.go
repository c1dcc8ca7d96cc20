// Package emergency provides the deterministic emergency gate. It runs
// before any external call and never depends on the extraction service.
package emergency

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Response is the fixed escalation message. It is the only text ever
// sent for an emergency turn.
const Response = "Your symptoms may indicate an emergency. Please go to the " +
	"nearest emergency room or call 911 immediately. Do not wait for the " +
	"clinic to follow up."

// indicator is one curated label with the phrases that imply it.
type indicator struct {
	label   string
	phrases []string
}

var indicators = []indicator{
	{label: "chest pain", phrases: []string{
		"chest pain", "pain in my chest", "tight chest", "chest tightness",
		"pressure in my chest", "burning in my chest",
	}},
	{label: "breathing difficulty", phrases: []string{
		"can't breathe", "cannot breathe", "can not breathe",
		"shortness of breath", "short of breath", "difficulty breathing",
		"trouble breathing", "gasping for air", "choking", "suffocating",
	}},
	{label: "loss of consciousness", phrases: []string{
		"loss of consciousness", "lost consciousness", "passed out",
		"fainted", "fainting", "blacked out", "unconscious",
	}},
	{label: "severe bleeding", phrases: []string{
		"severe bleeding", "bleeding heavily", "heavy bleeding",
		"won't stop bleeding", "wont stop bleeding", "hemorrhage",
	}},
	{label: "seizure", phrases: []string{
		"seizure", "convulsion", "convulsing",
	}},
	{label: "sudden weakness", phrases: []string{
		"sudden weakness", "sudden severe weakness", "paralysis",
		"paralyzed", "numb arm", "arm went numb", "numbness in my arm",
		"face drooping", "slurred speech",
	}},
	{label: "confusion", phrases: []string{
		"sudden confusion", "suddenly confused", "disoriented",
	}},
	{label: "high fever", phrases: []string{
		"very high fever", "extremely high fever",
	}},
	{label: "vomiting blood", phrases: []string{
		"vomiting blood", "throwing up blood", "blood in my vomit",
		"coughing up blood",
	}},
	{label: "blue lips", phrases: []string{
		"blue lips", "lips turning blue", "skin turning blue",
	}},
}

// Numeric red flags the phrase list cannot express: a reported fever at
// or above 39C / 103F, or pain reported at the top of the scale.
var redFlagPatterns = []struct {
	label string
	re    *regexp.Regexp
}{
	{"high fever", regexp.MustCompile(`\bfever\s+(of\s+|at\s+|above\s+|over\s+)?(39|4[0-2])(\.\d+)?\b`)},
	{"high fever", regexp.MustCompile(`\bfever\s+(of\s+|at\s+|above\s+|over\s+)?(10[3-9]|11\d)(\.\d+)?\b`)},
	{"high fever", regexp.MustCompile(`\btemperature\s+(of\s+|at\s+|above\s+|over\s+)?((39|4[0-2])|(10[3-9]|11\d))(\.\d+)?\b`)},
	{"extreme pain", regexp.MustCompile(`\bpain\s+(is\s+|at\s+|level\s+)?10\s*(/|out\s+of\s+)\s*10\b`)},
	{"extreme pain", regexp.MustCompile(`\bpain\s+(is\s+a\s+|is\s+|level\s+)?10\b`)},
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lowercases and strips diacritics so "séizure" matches "seizure".
func fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// folded phrase tables, built once.
var foldedIndicators = func() []indicator {
	folded := make([]indicator, 0, len(indicators))
	for _, ind := range indicators {
		phrases := make([]string, 0, len(ind.phrases))
		for _, p := range ind.phrases {
			phrases = append(phrases, fold(p))
		}
		folded = append(folded, indicator{label: ind.label, phrases: phrases})
	}
	return folded
}()

// Detect returns the labels of every emergency indicator present in the
// text. It is pure and deterministic; an empty result means no match.
// A non-empty result is definitive regardless of anything the
// extraction service might say about the same text.
func Detect(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	folded := fold(text)

	seen := make(map[string]bool)
	var labels []string
	add := func(label string) {
		if !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}

	for _, ind := range foldedIndicators {
		for _, p := range ind.phrases {
			if strings.Contains(folded, p) {
				add(ind.label)
				break
			}
		}
	}
	for _, rf := range redFlagPatterns {
		if rf.re.MatchString(folded) {
			add(rf.label)
		}
	}
	return labels
}
