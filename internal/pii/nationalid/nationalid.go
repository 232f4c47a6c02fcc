// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package nationalid detects US social security numbers in extracted page
// text. Detection is purely structural: format patterns plus the SSA
// allocation rules, with nearby keywords raising confidence.
package nationalid

import (
	"context"
	"regexp"
	"strings"

	"doc-sentinel/internal/document"
)

// DetectorName identifies this detector in entity provenance.
const DetectorName = "national_id"

var (
	// Formatted SSNs: 123-45-6789 or 123 45 6789.
	formattedPattern = regexp.MustCompile(`\b(\d{3})[-\s](\d{2})[-\s](\d{4})\b`)
	// Bare nine digits are ambiguous and only accepted with keyword context.
	barePattern = regexp.MustCompile(`\b(\d{3})(\d{2})(\d{4})\b`)
)

// contextKeywords are terms whose presence near a candidate raises
// confidence that the digits are an identifier rather than a reference
// number.
var contextKeywords = []string{
	"ssn",
	"social security",
	"tax id",
	"taxpayer",
	"id number",
	"identification",
	"id ",
}

const contextWindow = 40

// Detector finds national identifiers in text.
type Detector struct{}

// New creates a national id detector.
func New() *Detector { return &Detector{} }

func (d *Detector) Name() string { return DetectorName }

func (d *Detector) Detect(ctx context.Context, pageIndex int, text string) ([]document.PIIEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entities []document.PIIEntity
	seen := make(map[int]bool)

	for _, m := range formattedPattern.FindAllStringSubmatchIndex(text, -1) {
		value := text[m[0]:m[1]]
		area, group, serial := text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]]
		if !validAllocation(area, group, serial) {
			continue
		}
		confidence := 0.85
		if hasKeywordNear(text, m[0], m[1]) {
			confidence = 0.95
		}
		seen[m[0]] = true
		entities = append(entities, document.PIIEntity{
			Type:       document.PIINationalID,
			Value:      value,
			PageIndex:  pageIndex,
			Span:       &document.TextSpan{Start: m[0], End: m[1]},
			Confidence: confidence,
			Detector:   DetectorName,
		})
	}

	// Bare digit runs produce far too many false positives to accept on
	// shape alone.
	for _, m := range barePattern.FindAllStringSubmatchIndex(text, -1) {
		if seen[m[0]] || !hasKeywordNear(text, m[0], m[1]) {
			continue
		}
		area, group, serial := text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]]
		if !validAllocation(area, group, serial) {
			continue
		}
		entities = append(entities, document.PIIEntity{
			Type:       document.PIINationalID,
			Value:      text[m[0]:m[1]],
			PageIndex:  pageIndex,
			Span:       &document.TextSpan{Start: m[0], End: m[1]},
			Confidence: 0.6,
			Detector:   DetectorName,
		})
	}

	return entities, nil
}

// validAllocation applies the SSA assignment rules: area 000, 666 and
// 900-999 are never issued, group 00 and serial 0000 are invalid.
func validAllocation(area, group, serial string) bool {
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	if group == "00" {
		return false
	}
	if serial == "0000" {
		return false
	}
	return true
}

func hasKeywordNear(text string, start, end int) bool {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	window := strings.ToLower(text[lo:hi])
	for _, kw := range contextKeywords {
		if strings.Contains(window, kw) {
			return true
		}
	}
	return false
}
