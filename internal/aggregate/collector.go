// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"doc-sentinel/internal/document"
)

// State tracks a collector through its lifecycle. Findings are accepted
// only while collecting; finalization is terminal except for the
// superseded marker a re-run leaves behind.
type State int

const (
	StateCollecting State = iota
	StateFinalized
	StateSuperseded
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "COLLECTING"
	case StateFinalized:
		return "FINALIZED"
	case StateSuperseded:
		return "SUPERSEDED"
	default:
		return "UNKNOWN"
	}
}

// InconsistencyError marks a violated aggregation invariant, such as a
// double finalize. It should never occur; when it does the run is not
// trustworthy and reports indeterminate.
type InconsistencyError struct {
	DocumentID string
	Reason     string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("aggregation inconsistency for document %s: %s", e.DocumentID, e.Reason)
}

// Collector accumulates the outputs of one analysis run and finalizes them
// into an immutable risk report. Safe for concurrent use: analyzers feed
// it from independent goroutines.
type Collector struct {
	policy Policy

	mu            sync.Mutex
	state         State
	report        *document.RiskReport
	findings      []document.Finding
	entities      []document.PIIEntity
	duplicates    []document.DuplicateMatch
	contributions []document.Contribution
}

// NewCollector starts a collector for one document run.
func NewCollector(policy Policy, documentID string) *Collector {
	return &Collector{
		policy: policy,
		state:  StateCollecting,
		report: &document.RiskReport{
			ID:         uuid.NewString(),
			DocumentID: documentID,
		},
	}
}

// State returns the collector's lifecycle state.
func (c *Collector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Collector) add(fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCollecting {
		return &InconsistencyError{
			DocumentID: c.report.DocumentID,
			Reason:     fmt.Sprintf("input arrived in state %s", c.state),
		}
	}
	fn()
	return nil
}

// AddFindings records analyzer findings.
func (c *Collector) AddFindings(findings ...document.Finding) error {
	return c.add(func() { c.findings = append(c.findings, findings...) })
}

// AddEntities records detected PII entities.
func (c *Collector) AddEntities(entities ...document.PIIEntity) error {
	return c.add(func() { c.entities = append(c.entities, entities...) })
}

// AddDuplicates records fingerprint index matches.
func (c *Collector) AddDuplicates(matches ...document.DuplicateMatch) error {
	return c.add(func() { c.duplicates = append(c.duplicates, matches...) })
}

// AddContribution records one check's participation outcome.
func (c *Collector) AddContribution(contribution document.Contribution) error {
	return c.add(func() { c.contributions = append(c.contributions, contribution) })
}

// Finalize computes the score and verdict and seals the report. A second
// finalize is an invariant violation: the sealed report is downgraded to
// indeterminate and an InconsistencyError returned for the caller to
// escalate.
func (c *Collector) Finalize(startedAt, finishedAt time.Time) (*document.RiskReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateCollecting {
		c.report.Verdict = document.VerdictIndeterminate
		return nil, &InconsistencyError{
			DocumentID: c.report.DocumentID,
			Reason:     fmt.Sprintf("finalize called in state %s", c.state),
		}
	}
	c.state = StateFinalized

	r := c.report
	r.Findings = c.findings
	r.Entities = c.entities
	r.Duplicates = c.duplicates
	r.Contributions = c.contributions
	r.Score = c.policy.Score(c.findings, c.duplicates, c.entities)
	r.Verdict = c.policy.Verdict(r.Score, c.findings, c.contributions)
	r.PIISummaries = SummarizePII(c.entities)
	r.Recommendations = Recommendations(c.findings, c.duplicates, c.entities)
	r.StartedAt = startedAt
	r.FinishedAt = finishedAt
	return r, nil
}

// Supersede marks a finalized report as replaced by a re-run.
func (c *Collector) Supersede() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateFinalized {
		return &InconsistencyError{
			DocumentID: c.report.DocumentID,
			Reason:     fmt.Sprintf("supersede called in state %s", c.state),
		}
	}
	c.state = StateSuperseded
	return nil
}
