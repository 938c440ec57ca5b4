package nodes

import (
	"github.com/Jadir123-w/repli-post/internal/agent/model"
)

// Graph node keys.
const (
	NodeTurnInput = "turn_input"
	NodeChat      = "chat"
	NodeTools     = "tools"
	NodeRAG       = "rag"
)

const DefaultMaxToolCalls = 10

// ===== Small helpers to keep handlers simple/readable =====
// normalizeMaxToolCalls returns a sane default when the provided value is invalid.
func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// checkAndMarkToolLimit evaluates whether another tool call would exceed the
// limit and, if so, marks the state accordingly. Returns true when marked now.
func checkAndMarkToolLimit(state *model.TurnState, max int) bool {
	max = normalizeMaxToolCalls(max)
	if !state.ToolCallLimitReached && state.ToolCallCount >= max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// incrementToolCallAndCheck increments the count and marks the state if it
// exceeds the limit after incrementing. Returns true when exceeded.
func incrementToolCallAndCheck(state *model.TurnState, max int) bool {
	max = normalizeMaxToolCalls(max)
	state.ToolCallCount++
	if state.ToolCallCount > max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// truncateRunes cuts s to limit runes and appends marker when it had to cut.
func truncateRunes(s string, limit int, marker string) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + marker
}
