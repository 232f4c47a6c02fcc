// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package contextual maps entity annotations from the external language
// understanding capability onto PII entities. The mapping is a closed
// static table: categories it doesn't know are dropped, never guessed at.
package contextual

import (
	"strings"

	"doc-sentinel/internal/document"
	"doc-sentinel/internal/extern"
)

// DetectorName identifies this detector in entity provenance.
const DetectorName = "contextual"

// categoryTable maps external entity categories to the fixed PII type
// enumeration. Everything else is ignored.
var categoryTable = map[string]document.PIIType{
	"person":        document.PIIContextual,
	"name":          document.PIIContextual,
	"address":       document.PIIContextual,
	"date_of_birth": document.PIIContextual,
	"nationality":   document.PIIContextual,
	"email":         document.PIIEmail,
	"phone":         document.PIIPhone,
	"national_id":   document.PIINationalID,
	"ssn":           document.PIINationalID,
}

// minConfidence drops annotations the external extractor itself is not
// sure about.
const minConfidence = 0.5

// Mapper converts external entity annotations to PII entities.
type Mapper struct{}

// New creates a contextual mapper.
func New() *Mapper { return &Mapper{} }

func (m *Mapper) Name() string { return DetectorName }

// Map converts the annotations for one page. Unknown categories and low
// confidence annotations are skipped.
func (m *Mapper) Map(pageIndex int, annotations []extern.Entity) []document.PIIEntity {
	var entities []document.PIIEntity
	for _, ann := range annotations {
		piiType, known := categoryTable[strings.ToLower(ann.Category)]
		if !known || ann.Confidence < minConfidence {
			continue
		}
		span := ann.Span
		entities = append(entities, document.PIIEntity{
			Type:       piiType,
			Value:      ann.Value,
			PageIndex:  pageIndex,
			Span:       &span,
			Confidence: ann.Confidence,
			Detector:   DetectorName,
		})
	}
	return entities
}
