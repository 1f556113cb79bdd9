package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/casehall-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/casehall-backend/internal/domain/aggregates"
)

// HooksRecorder captures lifecycle hook signals; safe for concurrent writers.
type HooksRecorder struct {
	mu sync.Mutex

	Operations []OperationEvent
	Conflicts  []ConflictEvent
	Retries    []string
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

type ConflictEvent struct {
	Name   string
	Reason domainagg.Reason
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	h.Operations = append(h.Operations, OperationEvent{Name: name, Status: status, Duration: dur})
	h.mu.Unlock()
}

func (h *HooksRecorder) IncConflict(name string, reason domainagg.Reason) {
	h.mu.Lock()
	h.Conflicts = append(h.Conflicts, ConflictEvent{Name: name, Reason: reason})
	h.mu.Unlock()
}

func (h *HooksRecorder) IncRetry(name string) {
	h.mu.Lock()
	h.Retries = append(h.Retries, name)
	h.mu.Unlock()
}

// StatusCounts tallies observed statuses for one op name.
func (h *HooksRecorder) StatusCounts(name string) map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := map[string]int{}
	for _, ev := range h.Operations {
		if ev.Name == name {
			out[ev.Status]++
		}
	}
	return out
}

// ConflictReasons tallies conflict reason codes for one op name.
func (h *HooksRecorder) ConflictReasons(name string) map[domainagg.Reason]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := map[domainagg.Reason]int{}
	for _, ev := range h.Conflicts {
		if ev.Name == name {
			out[ev.Reason]++
		}
	}
	return out
}
