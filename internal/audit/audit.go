// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package audit emits append-only, timestamped records of every analysis
// run and every redaction action. The engine only writes audit events; it
// never reads its own trail back.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Action identifies what kind of activity an event records.
type Action string

const (
	ActionAnalysisStarted   Action = "analysis_started"
	ActionAnalysisCompleted Action = "analysis_completed"
	ActionAnalysisFailed    Action = "analysis_failed"
	ActionCheckDegraded     Action = "check_degraded"
	ActionRedactionPlanned  Action = "redaction_planned"
	ActionInvariantViolated Action = "invariant_violated"
)

// Level ranks event severity for the downstream compliance sink.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// Event is one append-only audit record. Keep it transport-agnostic so the
// sink can be a file, a queue, or a test buffer.
type Event struct {
	Timestamp  time.Time      `json:"timestamp"`
	Action     Action         `json:"action"`
	Level      Level          `json:"level"`
	DocumentID string         `json:"document_id,omitempty"`
	RunID      string         `json:"run_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// Recorder is the external audit sink contract.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// JSONLRecorder writes one JSON object per line to an io.Writer, matching
// the compliance sink's ingestion format.
type JSONLRecorder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONLRecorder creates a recorder writing JSON lines to w.
func NewJSONLRecorder(w io.Writer) *JSONLRecorder {
	return &JSONLRecorder{w: w}
}

// Record appends one event. A zero timestamp is stamped at write time.
func (r *JSONLRecorder) Record(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.NewEncoder(r.w).Encode(event)
}

// MemoryRecorder buffers events in memory so tests can assert on the trail.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryRecorder creates an in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded trail.
func (r *MemoryRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Discard drops every event; used when the caller supplies no sink.
type Discard struct{}

func (Discard) Record(context.Context, Event) error { return nil }
