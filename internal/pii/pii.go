// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pii assembles the PII detector set: structured pattern detectors
// that run directly against extracted text, plus the contextual mapper fed
// by the external entity extractor. The set assigns each entity a risk
// level and applies the co-location escalation rule.
package pii

import (
	"context"
	"fmt"

	"doc-sentinel/internal/document"
	"doc-sentinel/internal/extern"
	"doc-sentinel/internal/pii/contextual"
	"doc-sentinel/internal/pii/email"
	"doc-sentinel/internal/pii/nationalid"
	"doc-sentinel/internal/pii/paymentcard"
	"doc-sentinel/internal/pii/phone"
)

// StructuredDetector is a deterministic pattern detector running against
// page text with no external calls.
type StructuredDetector interface {
	Name() string
	Detect(ctx context.Context, pageIndex int, text string) ([]document.PIIEntity, error)
}

// Set is the fixed detector registry plus the contextual mapper.
type Set struct {
	structured []StructuredDetector
	mapper     *contextual.Mapper
	window     int
}

// NewSet builds the full detector set. coLocationWindow bounds, in
// characters, how far the risk escalation rule looks for a co-located
// critical entity.
func NewSet(coLocationWindow int) *Set {
	return &Set{
		structured: []StructuredDetector{
			nationalid.New(),
			email.New(),
			phone.New(),
			paymentcard.New(),
		},
		mapper: contextual.New(),
		window: coLocationWindow,
	}
}

// DetectPage runs every detector over one page's text and the external
// annotations for it, returning entities with assigned risk levels.
func (s *Set) DetectPage(ctx context.Context, pageIndex int, text string, annotations []extern.Entity) ([]document.PIIEntity, error) {
	var entities []document.PIIEntity
	for _, d := range s.structured {
		found, err := d.Detect(ctx, pageIndex, text)
		if err != nil {
			return nil, fmt.Errorf("detector %s: %w", d.Name(), err)
		}
		entities = append(entities, found...)
	}
	entities = append(entities, s.mapper.Map(pageIndex, annotations)...)

	entities = dedupe(entities)
	AssignRisk(entities, s.window)
	return entities, nil
}

// dedupe drops entities whose span overlaps a same-type entity with higher
// confidence. Structured detectors and the contextual mapper routinely find
// the same value.
func dedupe(entities []document.PIIEntity) []document.PIIEntity {
	kept := make([]document.PIIEntity, 0, len(entities))
	for i, e := range entities {
		dominated := false
		for j, other := range entities {
			if i == j || e.Type != other.Type || e.PageIndex != other.PageIndex {
				continue
			}
			if !spansOverlap(e.Span, other.Span) {
				continue
			}
			if other.Confidence > e.Confidence || (other.Confidence == e.Confidence && j < i) {
				dominated = true
				break
			}
		}
		if !dominated {
			kept = append(kept, e)
		}
	}
	return kept
}

func spansOverlap(a, b *document.TextSpan) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Start < b.End && b.Start < a.End
}
