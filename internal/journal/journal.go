// Package journal records the progress of topic-creation workflows so a topic
// left without its questions stays discoverable after the console restarts.
package journal

import (
	"context"
	"sort"
	"sync"
	"time"
)

// State is the step a topic-creation workflow has reached
type State string

const (
	StateCreated      State = "created"
	StateAttaching    State = "attaching"
	StateAttached     State = "attached"
	StateAttachFailed State = "attach_failed"
)

// IsTerminal returns true if the workflow will not move further on its own
func (s State) IsTerminal() bool {
	return s == StateAttached || s == StateAttachFailed
}

// Assignment is one question bound to one lesson
type Assignment struct {
	QuestionID  string `json:"question"`
	LessonOrder int    `json:"lessonOrder"`
}

// Entry is the latest recorded state of one workflow
type Entry struct {
	WorkflowID string       `json:"id"`
	TopicID    string       `json:"topicId"`
	TopicName  string       `json:"topicName"`
	State      State        `json:"state"`
	Questions  []Assignment `json:"questions"`
	Error      string       `json:"error,omitempty"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// Recorder persists workflow transitions
type Recorder interface {
	// Record upserts the entry keyed by WorkflowID
	Record(ctx context.Context, e Entry) error
	// ListByState returns the entries currently in state, oldest first
	ListByState(ctx context.Context, state State) ([]Entry, error)
	Close() error
}

// MemoryRecorder keeps entries in process memory
type MemoryRecorder struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryRecorder creates an empty in-memory recorder
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{entries: make(map[string]Entry)}
}

// Record implements Recorder
func (m *MemoryRecorder) Record(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}
	e.Questions = append([]Assignment(nil), e.Questions...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.WorkflowID] = e
	return nil
}

// ListByState implements Recorder
func (m *MemoryRecorder) ListByState(ctx context.Context, state State) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for _, e := range m.entries {
		if e.State == state {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out, nil
}

// Close implements Recorder
func (m *MemoryRecorder) Close() error {
	return nil
}
