// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package nationalid

import (
	"context"
	"testing"

	"doc-sentinel/internal/document"
)

func detect(t *testing.T, text string) []document.PIIEntity {
	t.Helper()
	entities, err := New().Detect(context.Background(), 0, text)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	return entities
}

func TestFormattedSSN(t *testing.T) {
	entities := detect(t, "SSN: 123-45-6789")
	if len(entities) != 1 {
		t.Fatalf("got %d entities, want 1", len(entities))
	}
	e := entities[0]
	if e.Value != "123-45-6789" {
		t.Errorf("value = %q", e.Value)
	}
	if e.Confidence != 0.95 {
		t.Errorf("confidence = %f, want 0.95 with keyword context", e.Confidence)
	}
	if e.Span == nil || e.Span.Start != 5 || e.Span.End != 16 {
		t.Errorf("span = %+v", e.Span)
	}
}

func TestFormattedSSNWithoutContext(t *testing.T) {
	entities := detect(t, "xxxx 123-45-6789 yyyy")
	if len(entities) != 1 {
		t.Fatalf("got %d entities, want 1", len(entities))
	}
	if entities[0].Confidence != 0.85 {
		t.Errorf("confidence = %f, want 0.85 without keyword context", entities[0].Confidence)
	}
}

func TestBareDigitsNeedKeyword(t *testing.T) {
	if got := detect(t, "order number 123456789 shipped"); len(got) != 0 {
		t.Errorf("bare digits without keyword matched: %+v", got)
	}
	got := detect(t, "taxpayer 123456789")
	if len(got) != 1 {
		t.Fatalf("got %d entities, want 1", len(got))
	}
	if got[0].Confidence != 0.6 {
		t.Errorf("confidence = %f, want 0.6 for bare digits", got[0].Confidence)
	}
}

func TestInvalidAllocationsRejected(t *testing.T) {
	invalid := []string{
		"ssn 000-45-6789", // area 000 never issued
		"ssn 666-45-6789", // area 666 never issued
		"ssn 923-45-6789", // 900+ never issued
		"ssn 123-00-6789", // group 00 invalid
		"ssn 123-45-0000", // serial 0000 invalid
	}
	for _, text := range invalid {
		if got := detect(t, text); len(got) != 0 {
			t.Errorf("%q matched: %+v", text, got)
		}
	}
}

func TestPhoneShapeNotMatched(t *testing.T) {
	if got := detect(t, "call 555-123-4567"); len(got) != 0 {
		t.Errorf("phone number matched as national id: %+v", got)
	}
}
