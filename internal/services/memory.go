// Package services – Memory
//
// Per-session conversational memory. Each session holds a bounded FIFO of
// question/answer turns; when the bound is reached the oldest turn is
// evicted. Memory grounds follow-up questions ("what about Pune?") by
// prepending recent turns to prompts. The durable conversation log in the
// database is a separate, append-only audit trail.
package services

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Turn is one question/answer exchange.
type Turn struct {
	Query   string
	Answer  string
	QueryAt time.Time
	Kind    string // "query" or "order"
}

// followUpPhrases mark a question as continuing the previous exchange.
var followUpPhrases = []string{
	"what about",
	"and what",
	"also show",
	"more details",
	"can you also",
	"tell me more",
	"how about",
	"compare",
	"difference between",
}

// Memory keeps bounded per-session histories. Safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	capacity int
	sessions map[string][]Turn
}

// NewMemory constructs a Memory with the given per-session turn capacity.
func NewMemory(capacity int) *Memory {
	if capacity < 1 {
		capacity = 10
	}
	return &Memory{
		capacity: capacity,
		sessions: make(map[string][]Turn),
	}
}

// Append records a completed turn, evicting the oldest when full.
func (m *Memory) Append(sessionID string, t Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := append(m.sessions[sessionID], t)
	if len(turns) > m.capacity {
		turns = turns[len(turns)-m.capacity:]
	}
	m.sessions[sessionID] = turns
}

// Recent returns up to n latest turns, oldest first.
func (m *Memory) Recent(sessionID string, n int) []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := m.sessions[sessionID]
	if n <= 0 || n > len(turns) {
		n = len(turns)
	}
	out := make([]Turn, n)
	copy(out, turns[len(turns)-n:])
	return out
}

// IsFollowUp reports whether a query leans on the previous exchange.
func IsFollowUp(query string) bool {
	q := strings.ToLower(query)
	for _, p := range followUpPhrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

// Enhance rewrites a follow-up query so it stands alone, by prefixing the
// previous question and its answer. Non-follow-ups and first questions pass
// through.
func (m *Memory) Enhance(sessionID, query string) string {
	if !IsFollowUp(query) {
		return query
	}
	prev := m.Recent(sessionID, 1)
	if len(prev) == 0 {
		return query
	}
	return fmt.Sprintf("Previous question: %s\nPrevious response: %s\nCurrent question: %s",
		prev[0].Query, prev[0].Answer, query)
}

// RecentContext renders the last n turns as numbered prompt-ready exchange
// blocks, or "" when the session has no history.
func (m *Memory) RecentContext(sessionID string, n int) string {
	turns := m.Recent(sessionID, n)
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	for i, t := range turns {
		fmt.Fprintf(&b, "Exchange %d:\nUser: %s\nAssistant: %s\n", i+1, t.Query, t.Answer)
	}
	return strings.TrimRight(b.String(), "\n")
}
