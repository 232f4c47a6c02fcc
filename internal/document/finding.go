// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package document

import "strings"

// Severity ranks how strongly a finding or PII entity bears on the verdict.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase name used in reports and audit records.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a config string to a Severity, defaulting to high
// for unrecognized values so a typo in policy never silently lowers the bar.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow
	case "medium":
		return SeverityMedium
	case "critical":
		return SeverityCritical
	default:
		return SeverityHigh
	}
}

// Kind tags which analyzer produced a finding. The set is closed: analyzers
// are registered in a fixed table, not discovered at runtime.
type Kind string

const (
	KindELA        Kind = "error_level_analysis"
	KindCopyMove   Kind = "copy_move"
	KindMetadata   Kind = "metadata_anomaly"
	KindResolution Kind = "resolution_mismatch"
	KindFont       Kind = "font_inconsistency"
	KindWatermark  Kind = "watermark"

	// KindPIIScan appears only in contribution records: the PII detector
	// set runs as one scheduled check but never produces tamper findings.
	KindPIIScan Kind = "pii_scan"
)

// TamperKinds lists every tamper analyzer kind in registration order.
func TamperKinds() []Kind {
	return []Kind{KindELA, KindCopyMove, KindMetadata, KindResolution, KindFont, KindWatermark}
}

// Sensitivity marks evidence payloads so the external authorization gate can
// decide who may see raw values. The engine itself is authorization-agnostic.
type Sensitivity string

const (
	// SensitivityInternal covers evidence with no personal data (hash
	// distances, block coordinates, variance figures)
	SensitivityInternal Sensitivity = "internal"
	// SensitivityRestricted covers evidence carrying extracted values or
	// metadata that may identify a person or device
	SensitivityRestricted Sensitivity = "restricted"
)

// Evidence is the free-form structured payload attached to a finding.
type Evidence struct {
	Sensitivity Sensitivity    `json:"sensitivity"`
	Details     map[string]any `json:"details,omitempty"`
	Region      *Region        `json:"region,omitempty"`
}

// Finding is one analyzer's structured observation about a page. Findings
// are append-only: once created they are never mutated.
type Finding struct {
	Kind       Kind     `json:"kind"`
	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"` // 0.0 - 1.0
	Evidence   Evidence `json:"evidence"`
	DocumentID string   `json:"document_id"`
	PageIndex  int      `json:"page_index"`
}
