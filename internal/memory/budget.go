package memory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openclaw/lily/internal/domain"
)

// Section weights, summing to 1.0. The permanent, FTS and recent sections
// are each capped at their weight's share of the total budget (or at what
// remains, if less); a section's unused share does not raise the next
// section's cap. The vector section takes everything still remaining, so
// weightVector is not applied as a cap.
const (
	weightPermanent = 0.30
	weightFTS       = 0.30
	weightRecent    = 0.20
	weightVector    = 0.20
)

const (
	maxPermanentLines = 15
	permanentLineCap  = 150
	maxRecentLines    = 5
	ftsMinRemaining   = 100
	vectorMinRemaining = 100
)

// VectorHit pairs a decision with the similarity score a semantic search
// returned for it.
type VectorHit struct {
	Decision   *domain.Decision
	Similarity float64
}

// CandidatePools are the pre-fetched rows a retrieval pass has already
// pulled from storage, grouped the way the allocator prioritizes them.
// Building this is the retrieval step's job; allocating it against a
// budget is a pure, I/O-free decision kept separate on purpose so it can
// be tested without a database (spec's "budgeted composition" design note).
type CandidatePools struct {
	// Permanent holds every live permanent-tier decision; the allocator
	// sorts by importance and caps at 15.
	Permanent []*domain.Decision
	// FTS holds the full-text search hits for the current turn's prompt,
	// already rank-ordered by the store.
	FTS []*domain.Decision
	// Recent holds live stable/active decisions; the allocator filters to
	// importance >= 0.7, sorts by timestamp, and caps at 5.
	Recent []*domain.Decision
	// Vector holds semantic-search hits for the current turn's prompt,
	// already similarity-ordered by the embeddings service.
	Vector []VectorHit
}

// Payload is the composed context handed back to the caller: the rendered
// markdown, already wrapped in <lily-memory> tags, plus the decisions it
// drew from (so the caller can touch their last-accessed timestamp) and
// whether any candidate was left out.
type Payload struct {
	Markdown  string
	Decisions []*domain.Decision
	CharsUsed int
	Truncated bool
}

const (
	payloadOpenTag  = "<lily-memory>"
	payloadCloseTag = "</lily-memory>"
)

// AllocateContext packs the four candidate pools into a character budget,
// section by section in priority order (permanent, FTS, recent, vector).
func AllocateContext(pools CandidatePools, budget int) Payload {
	if budget <= 0 {
		return Payload{Markdown: payloadOpenTag + payloadCloseTag}
	}

	var payload Payload
	seen := make(map[string]bool)
	var sections []string
	remaining := budget

	permBudget := min(remaining, int(float64(budget)*weightPermanent))
	if lines, used, truncated := renderPermanent(pools.Permanent, permBudget, seen); len(lines) > 0 {
		sections = append(sections, strings.Join(lines, "\n"))
		remaining -= used
		payload.CharsUsed += used
		payload.Truncated = payload.Truncated || truncated
	}

	if remaining > ftsMinRemaining {
		ftsBudget := min(remaining, int(float64(budget)*weightFTS))
		if lines, used, truncated := renderDecisionLines(pools.FTS, ftsBudget, seen); len(lines) > 0 {
			sections = append(sections, strings.Join(lines, "\n"))
			remaining -= used
			payload.CharsUsed += used
			payload.Truncated = payload.Truncated || truncated
		}
	}

	recentBudget := min(remaining, int(float64(budget)*weightRecent))
	if lines, used, truncated := renderRecent(pools.Recent, recentBudget, seen); len(lines) > 0 {
		sections = append(sections, strings.Join(lines, "\n"))
		remaining -= used
		payload.CharsUsed += used
		payload.Truncated = payload.Truncated || truncated
	}

	if remaining > vectorMinRemaining {
		if lines, used, truncated := renderVector(pools.Vector, remaining, seen); len(lines) > 0 {
			sections = append(sections, strings.Join(lines, "\n"))
			remaining -= used
			payload.CharsUsed += used
			payload.Truncated = payload.Truncated || truncated
		}
	}

	payload.Decisions = collectSeen(pools, seen)
	if len(sections) == 0 {
		payload.Markdown = payloadOpenTag + payloadCloseTag
	} else {
		payload.Markdown = payloadOpenTag + "\n" + strings.Join(sections, "\n\n") + "\n" + payloadCloseTag
	}
	return payload
}

// renderPermanent renders up to 15 permanent decisions ordered by
// importance descending, each line truncated to ~150 chars, stopping as
// soon as the next line would overflow the section budget.
func renderPermanent(rows []*domain.Decision, budget int, seen map[string]bool) ([]string, int, bool) {
	ordered := sortByImportanceDesc(rows)
	if len(ordered) > maxPermanentLines {
		ordered = ordered[:maxPermanentLines]
	}
	var lines []string
	used := 0
	truncated := false
	for _, d := range ordered {
		if seen[d.ID] {
			continue
		}
		line := "- " + truncateLine(renderDecision(d), permanentLineCap)
		cost := len(line) + 1
		if used+cost > budget {
			truncated = true
			break
		}
		lines = append(lines, line)
		used += cost
		seen[d.ID] = true
	}
	return lines, used, truncated
}

// renderDecisionLines renders decisions in the order given, skipping any
// that would overflow budget (later, smaller candidates may still fit).
// Used by the FTS and recent sections.
func renderDecisionLines(rows []*domain.Decision, budget int, seen map[string]bool) ([]string, int, bool) {
	var lines []string
	used := 0
	truncated := false
	for _, d := range rows {
		if seen[d.ID] {
			continue
		}
		line := "- " + renderDecision(d)
		cost := len(line) + 1
		if used+cost > budget {
			truncated = true
			continue
		}
		lines = append(lines, line)
		used += cost
		seen[d.ID] = true
	}
	return lines, used, truncated
}

// renderRecent renders up to 5 decisions with importance >= 0.7 and TTL in
// {stable, active}, ordered by timestamp descending.
func renderRecent(rows []*domain.Decision, budget int, seen map[string]bool) ([]string, int, bool) {
	var eligible []*domain.Decision
	for _, d := range rows {
		if d.Importance < 0.7 {
			continue
		}
		if d.TTLClass != domain.TTLStable && d.TTLClass != domain.TTLActive {
			continue
		}
		eligible = append(eligible, d)
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].Timestamp.After(eligible[j].Timestamp)
	})
	if len(eligible) > maxRecentLines {
		eligible = eligible[:maxRecentLines]
	}
	return renderDecisionLines(eligible, budget, seen)
}

// renderVector renders semantic search hits not already surfaced by an
// earlier section, each annotated with a similarity badge.
func renderVector(hits []VectorHit, budget int, seen map[string]bool) ([]string, int, bool) {
	var lines []string
	used := 0
	truncated := false
	for _, h := range hits {
		if h.Decision == nil || seen[h.Decision.ID] {
			continue
		}
		line := fmt.Sprintf("- %s (sim %.2f)", renderDecision(h.Decision), h.Similarity)
		cost := len(line) + 1
		if used+cost > budget {
			truncated = true
			continue
		}
		lines = append(lines, line)
		used += cost
		seen[h.Decision.ID] = true
	}
	return lines, used, truncated
}

func renderDecision(d *domain.Decision) string {
	if d.HasFact() {
		return fmt.Sprintf("%s.%s = %s", d.Entity, d.FactKey, d.FactValue)
	}
	return d.Description
}

func truncateLine(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

// collectSeen walks the pools in section priority order (permanent rows by
// importance descending, as rendered) and returns each decision that made
// it into the payload exactly once.
func collectSeen(pools CandidatePools, seen map[string]bool) []*domain.Decision {
	out := make([]*domain.Decision, 0, len(seen))
	add := func(d *domain.Decision) {
		if d == nil || !seen[d.ID] {
			return
		}
		out = append(out, d)
		delete(seen, d.ID)
	}
	for _, d := range sortByImportanceDesc(pools.Permanent) {
		add(d)
	}
	for _, d := range pools.FTS {
		add(d)
	}
	for _, d := range pools.Recent {
		add(d)
	}
	for _, h := range pools.Vector {
		add(h.Decision)
	}
	return out
}

func sortByImportanceDesc(rows []*domain.Decision) []*domain.Decision {
	out := make([]*domain.Decision, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out
}
