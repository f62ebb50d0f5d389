package host

import (
	"encoding/json"
	"os"
	"sync"
)

// stuckStreakThreshold is the number of consecutive agent-end turns the
// same top-5 keyword signature must repeat before the stuck nudge fires.
const stuckStreakThreshold = 3

// topicEntry is one session's persisted topic-signature streak.
type topicEntry struct {
	Signature string `json:"signature"`
	Streak    int    `json:"streak"`
}

// topicHistory persists, per session, the most recent topic signature and
// how many consecutive turns it has repeated — the state backing the
// stuck-conversation nudge. It is a flat JSON file under the memory root
// rather than a table, per spec's "sidecar topic-history file."
type topicHistory struct {
	mu      sync.Mutex
	path    string
	entries map[string]topicEntry
}

func newTopicHistory(path string) *topicHistory {
	h := &topicHistory{path: path, entries: make(map[string]topicEntry)}
	h.load()
	return h
}

func (h *topicHistory) load() {
	if h.path == "" {
		return
	}
	data, err := os.ReadFile(h.path)
	if err != nil {
		return
	}
	var entries map[string]topicEntry
	if json.Unmarshal(data, &entries) == nil {
		h.entries = entries
	}
}

func (h *topicHistory) save() {
	if h.path == "" {
		return
	}
	data, err := json.Marshal(h.entries)
	if err != nil {
		return
	}
	_ = os.WriteFile(h.path, data, 0o600)
}

// Record folds a new topic signature into a session's streak: an identical
// signature to last turn's increments the streak, any other non-empty
// signature resets it to 1, and an empty signature clears the session's
// entry (returning false). Returns true once the streak reaches
// stuckStreakThreshold, signaling the caller should surface a stuck nudge.
func (h *topicHistory) Record(sessionID, signature string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if signature == "" {
		delete(h.entries, sessionID)
		h.save()
		return false
	}

	entry := h.entries[sessionID]
	if entry.Signature == signature {
		entry.Streak++
	} else {
		entry.Signature = signature
		entry.Streak = 1
	}
	h.entries[sessionID] = entry
	h.save()
	return entry.Streak >= stuckStreakThreshold
}

// Reset clears one session's topic history, called on a compaction signal.
func (h *topicHistory) Reset(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, sessionID)
	h.save()
}
