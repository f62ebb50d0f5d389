package extraction

import (
	"regexp"
	"sort"
	"strings"
)

var topicStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "from": true, "have": true, "will": true, "your": true,
	"you": true, "are": true, "was": true, "were": true, "been": true,
	"about": true, "into": true, "then": true, "than": true, "them": true,
	"they": true, "their": true, "what": true, "when": true, "where": true,
	"which": true, "while": true, "would": true, "could": true, "should": true,
}

var punctuation = regexp.MustCompile(`[^\w\s]`)

// TopicSignature reduces a text block to its five highest-frequency,
// meaningful tokens, sorted lexicographically — used by the stuck detector
// to recognize when consecutive turns keep circling the same subject.
// Returns "" for inputs shorter than 30 characters.
func TopicSignature(text string) string {
	if len(text) < 30 {
		return ""
	}

	cleaned := punctuation.ReplaceAllString(strings.ToLower(text), " ")
	freq := map[string]int{}
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) <= 3 || topicStopwords[tok] {
			continue
		}
		freq[tok]++
	}
	if len(freq) == 0 {
		return ""
	}

	type pair struct {
		tok   string
		count int
	}
	pairs := make([]pair, 0, len(freq))
	for tok, count := range freq {
		pairs = append(pairs, pair{tok, count})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].tok < pairs[j].tok
	})

	n := 5
	if len(pairs) < n {
		n = len(pairs)
	}
	top := make([]string, n)
	for i := 0; i < n; i++ {
		top[i] = pairs[i].tok
	}
	sort.Strings(top)
	return strings.Join(top, ",")
}
