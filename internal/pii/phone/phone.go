// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package phone detects North American phone numbers in extracted page
// text by shape: 555-123-4567, (555) 123-4567, +1 555 123 4567.
package phone

import (
	"context"
	"regexp"

	"doc-sentinel/internal/document"
)

// DetectorName identifies this detector in entity provenance.
const DetectorName = "phone"

var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\(\d{3}\)\s?\d{3}[-.\s]\d{4}\b`),
	regexp.MustCompile(`\+1[-.\s]?\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
	regexp.MustCompile(`\b\d{3}[-.]\d{3}[-.]\d{4}\b`),
}

// Detector finds phone numbers in text.
type Detector struct{}

// New creates a phone detector.
func New() *Detector { return &Detector{} }

func (d *Detector) Name() string { return DetectorName }

func (d *Detector) Detect(ctx context.Context, pageIndex int, text string) ([]document.PIIEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entities []document.PIIEntity
	claimed := make([]bool, len(text))
	for _, pattern := range phonePatterns {
		for _, m := range pattern.FindAllStringIndex(text, -1) {
			if claimed[m[0]] {
				continue
			}
			for i := m[0]; i < m[1]; i++ {
				claimed[i] = true
			}
			entities = append(entities, document.PIIEntity{
				Type:       document.PIIPhone,
				Value:      text[m[0]:m[1]],
				PageIndex:  pageIndex,
				Span:       &document.TextSpan{Start: m[0], End: m[1]},
				Confidence: 0.8,
				Detector:   DetectorName,
			})
		}
	}
	return entities, nil
}
