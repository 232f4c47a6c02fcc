// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package document

import "time"

// Verdict is the final categorical outcome of a risk report.
type Verdict string

const (
	VerdictClean         Verdict = "clean"
	VerdictSuspicious    Verdict = "suspicious"
	VerdictFraudulent    Verdict = "fraudulent"
	VerdictIndeterminate Verdict = "indeterminate"
)

// ContributionStatus records whether a scheduled check actually ran.
// A check that failed or timed out is surfaced to the aggregator, never
// silently dropped from the finding set.
type ContributionStatus string

const (
	ContributionCompleted ContributionStatus = "completed"
	ContributionFailed    ContributionStatus = "failed"
	ContributionTimedOut  ContributionStatus = "timed_out"
)

// Contribution is one analyzer's participation record for a run.
type Contribution struct {
	Kind      Kind               `json:"kind"`
	PageIndex int                `json:"page_index"`
	Status    ContributionStatus `json:"status"`
	Error     string             `json:"error,omitempty"`
}

// Ran reports whether the check completed normally.
func (c Contribution) Ran() bool {
	return c.Status == ContributionCompleted
}

// DuplicateMatch is one fingerprint-index hit within the tolerance radius.
type DuplicateMatch struct {
	DocumentID string `json:"document_id"`
	PageIndex  int    `json:"page_index"`
	Distance   int    `json:"distance"`
}

// RiskReport aggregates everything one analysis run produced for a document.
// It is immutable once finalized; the engine holds no long-lived reference.
type RiskReport struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`

	Score   float64 `json:"score"` // 0 - 100
	Verdict Verdict `json:"verdict"`

	Findings      []Finding        `json:"findings"`
	Entities      []PIIEntity      `json:"pii_entities"`
	Duplicates    []DuplicateMatch `json:"duplicates"`
	Contributions []Contribution   `json:"contributions"`
	PIISummaries  []PIISummary     `json:"pii_summaries,omitempty"`

	// Recommendations are human-review hints derived from the finding kinds
	Recommendations []string `json:"recommendations,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
