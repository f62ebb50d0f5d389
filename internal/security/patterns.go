package security

import "regexp"

// namedPattern is one entry of the fixed injection-pattern list. Patterns
// are compiled once at package init and reused for every match.
type namedPattern struct {
	name string
	re   *regexp.Regexp
}

var injectionPatterns = []namedPattern{
	{"instruction_override", regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+instructions?`)},
	{"context_override", regexp.MustCompile(`(?i)disregard\s+(the\s+)?(context|conversation|system\s+prompt)`)},
	{"config_manipulation", regexp.MustCompile(`(?i)\b(set|change|override)\s+(config|configuration|settings?)\b`)},
	{"substitution_attack", regexp.MustCompile(`(?i)\bact\s+as\s+(if\s+)?(you\s+are|a)\b`)},
	{"directive_language", regexp.MustCompile(`(?i)\bfrom\s+now\s+on\b|\byou\s+must\s+(now\s+)?\b`)},
	{"meta_manipulation", regexp.MustCompile(`(?i)\bthis\s+is\s+a\s+(test|simulation|roleplay)\b`)},
	{"destructive_command", regexp.MustCompile(`(?i)\b(rm\s+-rf|drop\s+table|delete\s+from|truncate\s+table)\b`)},
	{"credential_injection", regexp.MustCompile(`(?i)\b(export|reveal|leak|print)\s+(credentials?|api[_\s]?keys?|passwords?|secrets?|tokens?)\b`)},
}

// MatchInjectionPattern scans text against the fixed pattern list and
// returns the name of the first match, if any.
func MatchInjectionPattern(text string) (name string, matched bool) {
	for _, p := range injectionPatterns {
		if p.re.MatchString(text) {
			return p.name, true
		}
	}
	return "", false
}
