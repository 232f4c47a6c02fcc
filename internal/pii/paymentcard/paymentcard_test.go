// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paymentcard

import (
	"context"
	"testing"
)

func TestLuhnValidCardDetected(t *testing.T) {
	cases := []string{
		"card 4111111111111111 on file",
		"card 4111 1111 1111 1111 on file",
		"card 5555-5555-5555-4444 on file",
	}
	for _, text := range cases {
		entities, err := New().Detect(context.Background(), 0, text)
		if err != nil {
			t.Fatalf("%q: %v", text, err)
		}
		if len(entities) != 1 {
			t.Errorf("%q: got %d entities, want 1", text, len(entities))
		}
	}
}

func TestLuhnInvalidRejected(t *testing.T) {
	entities, err := New().Detect(context.Background(), 0, "ref 4111111111111112 is not a card")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("checksum-invalid digits matched: %+v", entities)
	}
}

func TestShortDigitRunIgnored(t *testing.T) {
	entities, err := New().Detect(context.Background(), 0, "call 555-123-4567")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("phone number matched as card: %+v", entities)
	}
}

func TestLuhn(t *testing.T) {
	if !luhnValid("4111111111111111") {
		t.Error("valid card rejected")
	}
	if luhnValid("4111111111111112") {
		t.Error("invalid checksum accepted")
	}
}
