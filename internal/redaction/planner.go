// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package redaction turns detected PII entities into a concrete redaction
// plan for the storage collaborator. Every entity ends up with exactly one
// disposition: an action at or above the auto-redact threshold, a manual
// review flag below it. Nothing is silently dropped.
package redaction

import (
	"fmt"
	"strings"

	"doc-sentinel/internal/document"
)

// Planner produces redaction plans according to the configured policy.
type Planner struct {
	threshold document.Severity
	margin    int
	cipher    *maskCipher
}

// NewPlanner builds a planner. maskKeyHex enables reversible masking when
// non-empty; the empty string selects destructive masking.
func NewPlanner(threshold document.Severity, marginPixels int, maskKeyHex string) (*Planner, error) {
	var cipher *maskCipher
	if maskKeyHex != "" {
		var err error
		cipher, err = newMaskCipher(maskKeyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid mask key: %w", err)
		}
	}
	return &Planner{threshold: threshold, margin: marginPixels, cipher: cipher}, nil
}

// Plan maps every entity to an action or a review flag.
func (p *Planner) Plan(documentID string, entities []document.PIIEntity) (*document.RedactionPlan, error) {
	plan := &document.RedactionPlan{DocumentID: documentID}

	for _, e := range entities {
		if e.Risk < p.threshold {
			plan.Reviews = append(plan.Reviews, document.ReviewFlag{
				Entity: e,
				Reason: fmt.Sprintf("risk %s below auto-redact threshold %s", e.Risk, p.threshold),
			})
			continue
		}

		action, err := p.action(e)
		if err != nil {
			return nil, err
		}
		if action == nil {
			// Entity with no usable location. Still accounted for.
			plan.Reviews = append(plan.Reviews, document.ReviewFlag{
				Entity: e,
				Reason: "entity has no text span or image region to redact",
			})
			continue
		}
		plan.Actions = append(plan.Actions, *action)
	}
	return plan, nil
}

func (p *Planner) action(e document.PIIEntity) (*document.RedactionAction, error) {
	action := &document.RedactionAction{
		Entity:    e,
		PageIndex: e.PageIndex,
	}
	switch {
	case e.Span != nil:
		action.Kind = document.ActionReplaceText
		action.Mask = maskToken(e.Span.End - e.Span.Start)
	case e.Region != nil:
		expanded := e.Region.Expand(p.margin)
		action.Kind = document.ActionBlackoutRegion
		action.Region = &expanded
	default:
		return nil, nil
	}

	if p.cipher != nil {
		ciphertext, err := p.cipher.Seal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("sealing original value: %w", err)
		}
		action.Reversible = true
		action.Ciphertext = ciphertext
	}
	return action, nil
}

// Unmask recovers the original value from a reversible action. It fails
// when the planner runs in destructive mode.
func (p *Planner) Unmask(action document.RedactionAction) (string, error) {
	if p.cipher == nil {
		return "", fmt.Errorf("planner is in destructive mode, nothing to unmask")
	}
	if !action.Reversible {
		return "", fmt.Errorf("action is not reversible")
	}
	return p.cipher.Open(action.Ciphertext)
}

// maskToken returns a fixed mask whose length only reveals a coarse size
// bucket of the original, closing the length side channel.
func maskToken(spanLen int) string {
	if spanLen <= 8 {
		return strings.Repeat("█", 8)
	}
	return strings.Repeat("█", 16)
}

// ApplyText rewrites page text according to the plan's replace_text
// actions for that page. Spans are applied back to front so earlier
// offsets stay valid.
func ApplyText(text string, pageIndex int, plan *document.RedactionPlan) string {
	type edit struct {
		start, end int
		mask       string
	}
	var edits []edit
	for _, a := range plan.Actions {
		if a.Kind != document.ActionReplaceText || a.PageIndex != pageIndex || a.Entity.Span == nil {
			continue
		}
		s := *a.Entity.Span
		if s.Start < 0 || s.End > len(text) || s.Start >= s.End {
			continue
		}
		edits = append(edits, edit{start: s.Start, end: s.End, mask: a.Mask})
	}

	for i := 0; i < len(edits); i++ {
		for j := i + 1; j < len(edits); j++ {
			if edits[j].start > edits[i].start {
				edits[i], edits[j] = edits[j], edits[i]
			}
		}
	}

	for _, e := range edits {
		text = text[:e.start] + e.mask + text[e.end:]
	}
	return text
}
