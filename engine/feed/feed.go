// Package feed implements the race commentary feed: a capacity-bounded,
// append-only sequence of display lines. The structured event log it
// narrates (types.RaceState.EventLog) is unbounded; only this display
// surface evicts.
package feed

import "github.com/nathoo/apexrivals/types"

// DisplayCap is the maximum number of lines the feed retains. Older lines
// are silently dropped, oldest first.
const DisplayCap = 20

// Log is the bounded commentary feed. Every producer — local actions,
// gateway commentary, marshal calls, sector announcements, contract
// notices, error lines — appends through Say. Strict append order, no
// deduplication.
type Log struct {
	lines []string
	total int
}

// New returns an empty feed.
func New() *Log {
	return &Log{}
}

// Say appends one line, evicting the oldest line once the feed is full.
func (l *Log) Say(text string) {
	l.total++
	l.lines = append(l.lines, text)
	if len(l.lines) > DisplayCap {
		l.lines = l.lines[len(l.lines)-DisplayCap:]
	}
}

// Total returns the number of lines ever appended, including evicted
// ones. Lets a streaming consumer detect lines it missed.
func (l *Log) Total() int {
	return l.total
}

// Lines returns a copy of the current feed, oldest first.
func (l *Log) Lines() []string {
	return append([]string(nil), l.lines...)
}

// Len returns the number of retained lines.
func (l *Log) Len() int {
	return len(l.lines)
}

// Recent returns the newest n entries of an event log, oldest first.
// The log itself is never trimmed.
func Recent(log []types.EventEntry, n int) []types.EventEntry {
	if len(log) <= n {
		return append([]types.EventEntry(nil), log...)
	}
	return append([]types.EventEntry(nil), log[len(log)-n:]...)
}
