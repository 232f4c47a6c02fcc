// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package paymentcard detects payment card numbers in extracted page text.
// Candidates are digit runs of plausible card length; the Luhn checksum is
// the structural validation that separates card numbers from arbitrary
// digit sequences.
package paymentcard

import (
	"context"
	"regexp"
	"strings"

	"doc-sentinel/internal/document"
)

// DetectorName identifies this detector in entity provenance. Detected
// cards are reported under the contextual PII type; card numbers have no
// slot in the fixed type enumeration of their own.
const DetectorName = "payment_card"

var candidatePattern = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)

// Detector finds Luhn-valid payment card numbers in text.
type Detector struct{}

// New creates a payment card detector.
func New() *Detector { return &Detector{} }

func (d *Detector) Name() string { return DetectorName }

func (d *Detector) Detect(ctx context.Context, pageIndex int, text string) ([]document.PIIEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entities []document.PIIEntity
	for _, m := range candidatePattern.FindAllStringIndex(text, -1) {
		value := text[m[0]:m[1]]
		digits := strings.Map(keepDigits, value)
		if len(digits) < 13 || len(digits) > 19 {
			continue
		}
		if !luhnValid(digits) {
			continue
		}
		entities = append(entities, document.PIIEntity{
			Type:       document.PIIContextual,
			Value:      value,
			PageIndex:  pageIndex,
			Span:       &document.TextSpan{Start: m[0], End: m[1]},
			Confidence: 0.9,
			Detector:   DetectorName,
		})
	}
	return entities, nil
}

func keepDigits(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}

// luhnValid implements the Luhn mod-10 checksum.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
