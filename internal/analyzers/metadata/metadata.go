// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package metadata inspects the embedded EXIF of a page image. Scans and
// photos from real capture devices carry camera metadata; documents run
// through an editor either lose it or record the editor's name.
package metadata

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"doc-sentinel/internal/document"
)

// Analyzer inspects EXIF metadata for signs of post-capture editing.
type Analyzer struct{}

// New creates a metadata analyzer.
func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Kind() document.Kind { return document.KindMetadata }

// editingSoftware lists software names whose presence in the EXIF Software
// tag marks the image as edited after capture.
var editingSoftware = []string{
	"photoshop",
	"gimp",
	"paint.net",
	"canva",
	"pixlr",
}

// captureTags are the fields a genuine capture device writes. Missing two
// or more of them on an image that still has EXIF suggests stripping.
var captureTags = []exif.FieldName{exif.DateTime, exif.Make, exif.Model}

func (a *Analyzer) Analyze(ctx context.Context, img *document.PageImage) ([]document.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page := img.Page
	meta, err := exif.Decode(bytes.NewReader(page.Data))
	if err != nil {
		// No EXIF at all. Common for PNG exports and for images that
		// were laundered through an editor, so it is a weak signal.
		return []document.Finding{{
			Kind:       document.KindMetadata,
			Severity:   document.SeverityMedium,
			Confidence: 0.5,
			DocumentID: page.DocumentID,
			PageIndex:  page.Index,
			Evidence: document.Evidence{
				Sensitivity: document.SensitivityInternal,
				Details: map[string]any{
					"anomaly": "metadata_absent",
				},
			},
		}}, nil
	}

	var findings []document.Finding

	if tag, err := meta.Get(exif.Software); err == nil {
		if software, err := tag.StringVal(); err == nil {
			lower := strings.ToLower(software)
			for _, name := range editingSoftware {
				if strings.Contains(lower, name) {
					findings = append(findings, document.Finding{
						Kind:       document.KindMetadata,
						Severity:   document.SeverityMedium,
						Confidence: 0.7,
						DocumentID: page.DocumentID,
						PageIndex:  page.Index,
						Evidence: document.Evidence{
							Sensitivity: document.SensitivityRestricted,
							Details: map[string]any{
								"anomaly":  "editing_software",
								"software": software,
							},
						},
					})
					break
				}
			}
		}
	}

	var missing []string
	for _, tag := range captureTags {
		if _, err := meta.Get(tag); err != nil {
			missing = append(missing, string(tag))
		}
	}
	if len(missing) >= 2 {
		findings = append(findings, document.Finding{
			Kind:       document.KindMetadata,
			Severity:   document.SeverityMedium,
			Confidence: 0.5,
			DocumentID: page.DocumentID,
			PageIndex:  page.Index,
			Evidence: document.Evidence{
				Sensitivity: document.SensitivityInternal,
				Details: map[string]any{
					"anomaly":      "capture_tags_missing",
					"missing_tags": missing,
				},
			},
		})
	}

	captured, _ := exifTime(meta, exif.DateTimeOriginal)
	modified, _ := exifTime(meta, exif.DateTime)
	findings = append(findings, timestampFindings(page, captured, modified)...)

	return findings, nil
}

const exifTimeLayout = "2006:01:02 15:04:05"

func exifTime(meta *exif.Exif, name exif.FieldName) (time.Time, bool) {
	tag, err := meta.Get(name)
	if err != nil {
		return time.Time{}, false
	}
	s, err := tag.StringVal()
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(exifTimeLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// claimedDateFields are the structured-field keys carrying the document's
// asserted capture or issue date, in lookup order.
var claimedDateFields = []string{"capture_date", "issue_date", "date_of_issue"}

var claimedDateLayouts = []string{"2006-01-02", exifTimeLayout, "02 Jan 2006"}

func claimedDate(fields map[string]document.FieldValue) (time.Time, string, document.FieldValue, bool) {
	for _, key := range claimedDateFields {
		fv, ok := fields[key]
		if !ok {
			continue
		}
		for _, layout := range claimedDateLayouts {
			if t, err := time.Parse(layout, fv.Value); err == nil {
				return t, key, fv, true
			}
		}
	}
	return time.Time{}, "", document.FieldValue{}, false
}

// timestampFindings cross-checks the EXIF timestamps against each other
// and against the claimed date from the page's structured fields. Zero
// times mean the corresponding tag is absent.
func timestampFindings(page *document.Page, captured, modified time.Time) []document.Finding {
	var findings []document.Finding

	if !captured.IsZero() && !modified.IsZero() && modified.After(captured.Add(time.Minute)) {
		findings = append(findings, document.Finding{
			Kind:       document.KindMetadata,
			Severity:   document.SeverityMedium,
			Confidence: 0.6,
			DocumentID: page.DocumentID,
			PageIndex:  page.Index,
			Evidence: document.Evidence{
				Sensitivity: document.SensitivityInternal,
				Details: map[string]any{
					"anomaly":  "modified_after_capture",
					"captured": captured.Format(time.RFC3339),
					"modified": modified.Format(time.RFC3339),
				},
			},
		})
	}

	exifDate := captured
	if exifDate.IsZero() {
		exifDate = modified
	}
	claimed, key, fv, ok := claimedDate(page.Fields)
	if ok && !exifDate.IsZero() && !sameDay(claimed, exifDate) {
		conf := 0.5 + 0.4*fv.Confidence
		if conf > 0.9 {
			conf = 0.9
		}
		findings = append(findings, document.Finding{
			Kind:       document.KindMetadata,
			Severity:   document.SeverityHigh,
			Confidence: conf,
			DocumentID: page.DocumentID,
			PageIndex:  page.Index,
			Evidence: document.Evidence{
				Sensitivity: document.SensitivityInternal,
				Details: map[string]any{
					"anomaly":   "claimed_date_mismatch",
					"field":     key,
					"claimed":   claimed.Format("2006-01-02"),
					"exif_date": exifDate.Format("2006-01-02"),
				},
			},
		})
	}

	return findings
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
