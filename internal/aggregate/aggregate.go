// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package aggregate merges tamper findings, the duplicate signal and PII
// risk into one finalized risk report. Scoring is a pure, commutative
// reduction over the collected inputs: the same inputs always produce the
// same score and verdict, in any arrival order.
package aggregate

import (
	"math"
	"sort"

	"doc-sentinel/internal/config"
	"doc-sentinel/internal/document"
)

// Policy holds the tunable scoring constants. The values are policy, not
// law; tests pin the ordering properties rather than exact magnitudes.
type Policy struct {
	SeverityWeights              map[document.Severity]float64
	DuplicateWeight              float64
	CriticalPIIWeight            float64
	SuspiciousBand               float64
	FraudulentBand               float64
	OverrideConfidence           float64
	IndeterminateFailureFraction float64
}

// PolicyFromConfig lifts the scoring section of the engine configuration.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		SeverityWeights: map[document.Severity]float64{
			document.SeverityLow:      cfg.Scoring.SeverityWeights.Low,
			document.SeverityMedium:   cfg.Scoring.SeverityWeights.Medium,
			document.SeverityHigh:     cfg.Scoring.SeverityWeights.High,
			document.SeverityCritical: cfg.Scoring.SeverityWeights.Critical,
		},
		DuplicateWeight:              cfg.Scoring.DuplicateWeight,
		CriticalPIIWeight:            cfg.Scoring.CriticalPIIWeight,
		SuspiciousBand:               cfg.Scoring.SuspiciousBand,
		FraudulentBand:               cfg.Scoring.FraudulentBand,
		OverrideConfidence:           cfg.Scoring.OverrideConfidence,
		IndeterminateFailureFraction: cfg.Scoring.IndeterminateFailureFraction,
	}
}

// Score computes the raw risk score, clamped to [0, 100]. Pure function of
// its inputs; findings contribute severity weight times confidence, any
// duplicate match adds the fixed duplicate weight once, and critical-risk
// PII entities each add the PII weight.
func (p Policy) Score(findings []document.Finding, duplicates []document.DuplicateMatch, entities []document.PIIEntity) float64 {
	score := 0.0
	for _, f := range findings {
		score += p.SeverityWeights[f.Severity] * f.Confidence
	}
	if len(duplicates) > 0 {
		score += p.DuplicateWeight
	}
	for _, e := range entities {
		if e.Risk == document.SeverityCritical {
			score += p.CriticalPIIWeight
		}
	}
	return math.Min(math.Max(score, 0), 100)
}

// Verdict applies the banded thresholds with two overrides. A single
// critical tamper finding at or above the override confidence forces
// FRAUDULENT regardless of total score: strong tamper evidence is not
// diluted by otherwise clean findings. An incomplete check set past the
// failure fraction forces INDETERMINATE, even over the override, because
// the run cannot vouch for what it did not check.
func (p Policy) Verdict(score float64, findings []document.Finding, contributions []document.Contribution) document.Verdict {
	if failureFraction(contributions) > p.IndeterminateFailureFraction {
		return document.VerdictIndeterminate
	}

	for _, f := range findings {
		if f.Severity == document.SeverityCritical && f.Confidence >= p.OverrideConfidence {
			return document.VerdictFraudulent
		}
	}

	switch {
	case score >= p.FraudulentBand:
		return document.VerdictFraudulent
	case score >= p.SuspiciousBand:
		return document.VerdictSuspicious
	default:
		return document.VerdictClean
	}
}

func failureFraction(contributions []document.Contribution) float64 {
	if len(contributions) == 0 {
		return 0
	}
	failed := 0
	for _, c := range contributions {
		if !c.Ran() {
			failed++
		}
	}
	return float64(failed) / float64(len(contributions))
}

// SummarizePII folds entities into per-type counts with masked samples so
// the report surface never carries raw values.
func SummarizePII(entities []document.PIIEntity) []document.PIISummary {
	byType := make(map[document.PIIType]*document.PIISummary)
	for _, e := range entities {
		s, ok := byType[e.Type]
		if !ok {
			s = &document.PIISummary{Type: e.Type}
			byType[e.Type] = s
		}
		s.Count++
		if e.Risk > s.HighestRisk {
			s.HighestRisk = e.Risk
		}
		if len(s.MaskedSamples) < 3 {
			s.MaskedSamples = append(s.MaskedSamples, maskSample(e.Value))
		}
	}

	summaries := make([]document.PIISummary, 0, len(byType))
	for _, s := range byType {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Type < summaries[j].Type })
	return summaries
}

// maskSample keeps the last four characters at most.
func maskSample(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// recommendationByKind maps finding kinds to review guidance, emitted in
// the fixed registration order for deterministic reports.
var recommendationByKind = map[document.Kind]string{
	document.KindELA:        "Inspect the flagged regions for signs of local editing",
	document.KindCopyMove:   "Compare the cloned regions against the surrounding content",
	document.KindMetadata:   "Request the original capture file from the submitter",
	document.KindResolution: "Verify the document was scanned in a single pass",
	document.KindFont:       "Check flagged text fields against the issuing authority's typeface",
	document.KindWatermark:  "Verify the security watermark against a reference document",
}

// Recommendations derives review guidance from the finding and duplicate
// signals.
func Recommendations(findings []document.Finding, duplicates []document.DuplicateMatch, entities []document.PIIEntity) []string {
	present := make(map[document.Kind]bool)
	for _, f := range findings {
		present[f.Kind] = true
	}

	var recs []string
	for _, kind := range document.TamperKinds() {
		if present[kind] {
			recs = append(recs, recommendationByKind[kind])
		}
	}
	if len(duplicates) > 0 {
		recs = append(recs, "Review the matched documents for duplicate submission")
	}
	for _, e := range entities {
		if e.Risk >= document.SeverityHigh {
			recs = append(recs, "Confirm the redaction plan was applied before distribution")
			break
		}
	}
	return recs
}
