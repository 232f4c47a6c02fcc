// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"doc-sentinel/internal/document"
)

func encodedPage(t *testing.T) *document.PageImage {
	t.Helper()
	// image/jpeg writes no EXIF segment.
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 32, 32)), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	pi, err := document.Decode(&document.Page{DocumentID: "doc-1", Index: 0, Data: buf.Bytes()})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return pi
}

func TestMissingMetadataIsWeakSignal(t *testing.T) {
	a := New()
	findings, err := a.Analyze(context.Background(), encodedPage(t))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}

	f := findings[0]
	if f.Kind != document.KindMetadata {
		t.Errorf("kind = %s", f.Kind)
	}
	if f.Severity != document.SeverityMedium {
		t.Errorf("severity = %s, want medium", f.Severity)
	}
	if f.Confidence != 0.5 {
		t.Errorf("confidence = %f, want 0.5", f.Confidence)
	}
	if f.Evidence.Details["anomaly"] != "metadata_absent" {
		t.Errorf("anomaly = %v", f.Evidence.Details["anomaly"])
	}
}

func TestModifiedAfterCapture(t *testing.T) {
	page := &document.Page{DocumentID: "doc-1", Index: 0}
	captured := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	modified := captured.Add(48 * time.Hour)

	findings := timestampFindings(page, captured, modified)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if findings[0].Evidence.Details["anomaly"] != "modified_after_capture" {
		t.Errorf("anomaly = %v", findings[0].Evidence.Details["anomaly"])
	}

	// Writing both tags at capture time is normal.
	if got := timestampFindings(page, captured, captured); len(got) != 0 {
		t.Errorf("equal timestamps flagged: %v", got)
	}
}

func TestClaimedDateMismatch(t *testing.T) {
	page := &document.Page{
		DocumentID: "doc-1",
		Index:      0,
		Fields: map[string]document.FieldValue{
			"capture_date": {Value: "2025-06-01", Confidence: 1.0},
		},
	}
	captured := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	findings := timestampFindings(page, captured, captured)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	f := findings[0]
	if f.Evidence.Details["anomaly"] != "claimed_date_mismatch" {
		t.Errorf("anomaly = %v", f.Evidence.Details["anomaly"])
	}
	if f.Severity != document.SeverityHigh {
		t.Errorf("severity = %s, want high", f.Severity)
	}
	if f.Confidence != 0.9 {
		t.Errorf("confidence = %f, want 0.9", f.Confidence)
	}
}

func TestClaimedDateAgreement(t *testing.T) {
	page := &document.Page{
		DocumentID: "doc-1",
		Index:      0,
		Fields: map[string]document.FieldValue{
			"issue_date": {Value: "2025-03-10", Confidence: 0.8},
		},
	}
	captured := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	if got := timestampFindings(page, captured, captured); len(got) != 0 {
		t.Errorf("matching claimed date flagged: %v", got)
	}
}

func TestClaimedDateWithoutExifIgnored(t *testing.T) {
	page := &document.Page{
		DocumentID: "doc-1",
		Index:      0,
		Fields: map[string]document.FieldValue{
			"capture_date": {Value: "2025-06-01", Confidence: 1.0},
		},
	}

	if got := timestampFindings(page, time.Time{}, time.Time{}); len(got) != 0 {
		t.Errorf("fields without exif dates flagged: %v", got)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New()
	if _, err := a.Analyze(ctx, encodedPage(t)); err == nil {
		t.Error("expected context error")
	}
}
