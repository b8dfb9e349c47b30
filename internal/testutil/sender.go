package testutil

import (
	"errors"
	"strings"
	"sync"

	"github.com/mcoot/trivia-go/internal/model"
)

// ErrSendFailed is returned by RecordingSender for connections marked as failing
var ErrSendFailed = errors.New("send failed")

// SentLine is one payload delivered to one connection
type SentLine struct {
	ConnID model.ConnID
	Line   string // without the trailing newline
}

// RecordingSender captures every payload in delivery order.
// Connections passed to FailFor return ErrSendFailed instead.
type RecordingSender struct {
	mu      sync.Mutex
	lines   []SentLine
	failing map[model.ConnID]bool
	onSend  func(id model.ConnID, line string)
}

// NewRecordingSender creates an empty RecordingSender
func NewRecordingSender() *RecordingSender {
	return &RecordingSender{failing: make(map[model.ConnID]bool)}
}

// Send records payload for id
func (r *RecordingSender) Send(id model.ConnID, payload []byte) error {
	line := strings.TrimSuffix(string(payload), "\n")

	r.mu.Lock()
	if r.failing[id] {
		r.mu.Unlock()
		return ErrSendFailed
	}
	r.lines = append(r.lines, SentLine{ConnID: id, Line: line})
	hook := r.onSend
	r.mu.Unlock()

	if hook != nil {
		hook(id, line)
	}
	return nil
}

// FailFor makes every later send to id fail
func (r *RecordingSender) FailFor(id model.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing[id] = true
}

// OnSend installs a hook run after each successful send, outside the lock
func (r *RecordingSender) OnSend(hook func(id model.ConnID, line string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSend = hook
}

// Lines returns everything sent so far
func (r *RecordingSender) Lines() []SentLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]SentLine, len(r.lines))
	copy(result, r.lines)
	return result
}

// LinesFor returns the lines delivered to one connection, in order
func (r *RecordingSender) LinesFor(id model.ConnID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []string
	for _, l := range r.lines {
		if l.ConnID == id {
			result = append(result, l.Line)
		}
	}
	return result
}
