package extract

import "regexp"

// The intake assistant must never relay diagnoses or treatment
// instructions, even when the extraction service produces them. Replies
// that trip these patterns are replaced wholesale; fallback prompts are
// curated text and bypass the guard.

// GuardedReply is the neutral replacement for blocked extractor output.
const GuardedReply = "I can't provide diagnostic or treatment information. " +
	"Let's continue with your intake so a professional can review your case."

var diagnosisPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\byou\s+(have|likely\s+have|probably\s+have|may\s+have|might\s+have)\b`),
	regexp.MustCompile(`(?i)\b(sounds|looks|seems)\s+like\s+(a|an)?\s*\w*(itis|osis|emia|oma)\b`),
	regexp.MustCompile(`(?i)\bdiagnos(is|ed|e)\b`),
	regexp.MustCompile(`(?i)\b(pneumonia|appendicitis|meningitis|diabetes|hypertension|cancer|tumor|stroke|infarction)\b`),
}

var treatmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(take|use)\s+\w+\s*\d+\s*(mg|ml|mcg|g)\b`),
	regexp.MustCompile(`(?i)\b\d+\s*(mg|ml|mcg)\s+(per|a|each)\s+day\b`),
	regexp.MustCompile(`(?i)\b(prescribe|prescription|dosage|dose\s+of)\b`),
	regexp.MustCompile(`(?i)\b(i\s+recommend|you\s+should\s+take)\s+\w*(cillin|mycin|profen|acetamol|pril|statin)\b`),
	regexp.MustCompile(`(?i)\b(antibiotic|painkiller|ibuprofen|paracetamol|acetaminophen|aspirin)s?\b`),
}

// GuardReply returns the reply unchanged unless it contains what reads
// as medical advice, in which case the neutral replacement is returned
// along with true.
func GuardReply(reply string) (string, bool) {
	for _, p := range diagnosisPatterns {
		if p.MatchString(reply) {
			return GuardedReply, true
		}
	}
	for _, p := range treatmentPatterns {
		if p.MatchString(reply) {
			return GuardedReply, true
		}
	}
	return reply, false
}
