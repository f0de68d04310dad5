package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danshapiro/murderparty/internal/mystery/engine"
)

const (
	runRunning  = "running"
	runSuccess  = "success"
	runFailed   = "failed"
	runCanceled = "canceled"
)

// RunState tracks one asynchronous generation.
type RunState struct {
	RunID       string
	Broadcaster *Broadcaster
	Cancel      context.CancelCauseFunc
	StartedAt   time.Time

	mu     sync.Mutex
	result *engine.Result
	err    error
	done   bool
}

// SetResult records the terminal outcome of the run.
func (rs *RunState) SetResult(res *engine.Result, err error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.result = res
	rs.err = err
	rs.done = true
}

func (rs *RunState) Done() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.done
}

func (rs *RunState) Status() RunStatus {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	status := RunStatus{RunID: rs.RunID, State: runRunning, StartedAt: rs.StartedAt}
	if rs.result != nil {
		status.Calls = rs.result.Calls
		status.StructureDigest = rs.result.StructureDigest
	}
	if rs.done {
		switch {
		case errors.Is(rs.err, context.Canceled):
			status.State = runCanceled
			status.FailureReason = rs.err.Error()
		case rs.err != nil:
			status.State = runFailed
			status.FailureReason = rs.err.Error()
			status.Issues = issuesOf(rs.err)
			status.Upstream = upstreamOf(rs.err)
		case rs.result != nil:
			status.State = runSuccess
			status.Package = rs.result.Package
		}
	}

	if rs.Broadcaster != nil {
		history := rs.Broadcaster.History()
		for i := len(history) - 1; i >= 0; i-- {
			if st, ok := history[i]["state"].(string); ok && st != "" {
				status.EngineState = st
				break
			}
		}
		if len(history) > 0 {
			last := history[len(history)-1]
			if evt, ok := last["event"].(string); ok {
				status.LastEvent = evt
			}
			if ts, ok := last["ts"].(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
					status.LastEventAt = &t
				}
			}
			if !rs.done {
				if n, ok := last["call"].(int); ok {
					status.Calls = n
				}
			}
		}
	}
	return status
}

// RunRegistry holds the runs of this process in memory. Once more than retention runs
// are held, the oldest finished runs are evicted.
type RunRegistry struct {
	mu        sync.RWMutex
	runs      map[string]*RunState
	order     []string
	retention int
}

func NewRunRegistry(retention int) *RunRegistry {
	return &RunRegistry{runs: make(map[string]*RunState), retention: retention}
}

// Register adds a run. Returns error if the id already exists.
func (r *RunRegistry) Register(runID string, rs *RunState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[runID]; exists {
		return fmt.Errorf("run %s already exists", runID)
	}
	r.runs[runID] = rs
	r.order = append(r.order, runID)
	r.evictLocked()
	return nil
}

func (r *RunRegistry) evictLocked() {
	if r.retention <= 0 {
		return
	}
	excess := len(r.order) - r.retention
	if excess <= 0 {
		return
	}
	kept := r.order[:0]
	for _, id := range r.order {
		if excess > 0 && r.runs[id].Done() {
			delete(r.runs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

func (r *RunRegistry) Get(runID string) (*RunState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.runs[runID]
	return rs, ok
}

// List returns run ids in registration order.
func (r *RunRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// CancelAll cancels every run still in flight.
func (r *RunRegistry) CancelAll(reason string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rs := range r.runs {
		if rs.Cancel != nil {
			rs.Cancel(errors.New(reason))
		}
	}
}
