// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package email detects email addresses in extracted page text.
package email

import (
	"context"
	"regexp"
	"strings"

	"doc-sentinel/internal/document"
)

// DetectorName identifies this detector in entity provenance.
const DetectorName = "email"

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// Detector finds email addresses in text.
type Detector struct{}

// New creates an email detector.
func New() *Detector { return &Detector{} }

func (d *Detector) Name() string { return DetectorName }

func (d *Detector) Detect(ctx context.Context, pageIndex int, text string) ([]document.PIIEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entities []document.PIIEntity
	for _, m := range emailPattern.FindAllStringIndex(text, -1) {
		value := text[m[0]:m[1]]
		confidence := 0.9
		// OCR noise frequently mangles the local part; a double dot or a
		// dot directly at a boundary marks a likely misread.
		if strings.Contains(value, "..") || strings.HasPrefix(value, ".") {
			confidence = 0.5
		}
		entities = append(entities, document.PIIEntity{
			Type:       document.PIIEmail,
			Value:      value,
			PageIndex:  pageIndex,
			Span:       &document.TextSpan{Start: m[0], End: m[1]},
			Confidence: confidence,
			Detector:   DetectorName,
		})
	}
	return entities, nil
}
