// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package json

import (
	"encoding/json"
	"fmt"

	"doc-sentinel/internal/document"
	"doc-sentinel/internal/formatters"
)

// Formatter implements JSON output formatting
type Formatter struct{}

// NewFormatter creates a new JSON formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "json"
}

func (f *Formatter) Description() string {
	return "Machine-readable JSON output for downstream review workflows"
}

func (f *Formatter) FileExtension() string {
	return ".json"
}

type output struct {
	Report *document.RiskReport    `json:"report"`
	Plan   *document.RedactionPlan `json:"redaction_plan,omitempty"`
}

func (f *Formatter) Format(report *document.RiskReport, plan *document.RedactionPlan, options formatters.FormatterOptions) (string, error) {
	out := output{Report: report}
	if options.ShowPlan {
		out.Plan = plan
	}
	if !options.RawEvidence {
		out.Report = stripRestricted(report)
		out.Plan = stripPlan(out.Plan)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(data), nil
}

// stripRestricted removes restricted evidence details and raw entity values
// for callers the authorization gate has not cleared.
func stripRestricted(report *document.RiskReport) *document.RiskReport {
	clean := *report

	clean.Findings = make([]document.Finding, len(report.Findings))
	for i, f := range report.Findings {
		if f.Evidence.Sensitivity == document.SensitivityRestricted {
			f.Evidence.Details = nil
		}
		clean.Findings[i] = f
	}

	clean.Entities = make([]document.PIIEntity, len(report.Entities))
	for i, e := range report.Entities {
		e.Value = ""
		clean.Entities[i] = e
	}
	return &clean
}

// stripPlan clears raw entity values from plan actions and review flags.
// Reversible actions keep their ciphertext, which is the authorized
// recovery path.
func stripPlan(plan *document.RedactionPlan) *document.RedactionPlan {
	if plan == nil {
		return nil
	}
	clean := *plan

	clean.Actions = make([]document.RedactionAction, len(plan.Actions))
	for i, a := range plan.Actions {
		a.Entity.Value = ""
		clean.Actions[i] = a
	}

	clean.Reviews = make([]document.ReviewFlag, len(plan.Reviews))
	for i, r := range plan.Reviews {
		r.Entity.Value = ""
		clean.Reviews[i] = r
	}
	return &clean
}

func init() {
	formatters.Register(NewFormatter())
}
