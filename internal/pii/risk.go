// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pii

import (
	"doc-sentinel/internal/document"
	"doc-sentinel/internal/pii/paymentcard"
)

// baseRisk is the default risk table per type. Payment cards ride the
// contextual type but carry their own detector tag and a critical default.
func baseRisk(e document.PIIEntity) document.Severity {
	switch e.Type {
	case document.PIINationalID:
		return document.SeverityCritical
	case document.PIIEmail, document.PIIPhone:
		return document.SeverityMedium
	case document.PIIContextual:
		if e.Detector == paymentcard.DetectorName {
			return document.SeverityCritical
		}
		return document.SeverityLow
	default:
		return document.SeverityMedium
	}
}

// AssignRisk sets each entity's risk from the base table, then applies the
// co-location rule: a medium-risk entity within window characters of a
// critical entity on the same page escalates to high. An email next to a
// national id identifies a person far more precisely than either alone.
func AssignRisk(entities []document.PIIEntity, window int) {
	for i := range entities {
		entities[i].Risk = baseRisk(entities[i])
	}

	for i := range entities {
		if entities[i].Risk != document.SeverityMedium {
			continue
		}
		for j := range entities {
			if i == j || entities[j].Risk != document.SeverityCritical {
				continue
			}
			if entities[i].PageIndex != entities[j].PageIndex {
				continue
			}
			if spanDistance(entities[i].Span, entities[j].Span) <= window {
				entities[i].Risk = document.SeverityHigh
				break
			}
		}
	}
}

// spanDistance is the character gap between two spans, 0 when overlapping.
// Entities without text spans (image regions) never co-locate.
func spanDistance(a, b *document.TextSpan) int {
	if a == nil || b == nil {
		return int(^uint(0) >> 1)
	}
	if a.Start < b.End && b.Start < a.End {
		return 0
	}
	if a.End <= b.Start {
		return b.Start - a.End
	}
	return a.Start - b.End
}
