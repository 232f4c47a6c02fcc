// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package document

// PIIType classifies a detected PII entity. The enumeration is fixed;
// entity categories the contextual detector doesn't recognize are ignored,
// never shoehorned into one of these.
type PIIType string

const (
	PIINationalID PIIType = "national_id"
	PIIEmail      PIIType = "email"
	PIIPhone      PIIType = "phone"
	PIIContextual PIIType = "contextual"
)

// PIIEntity is one detected piece of personal data: a span in extracted
// text or a region on a page image.
type PIIEntity struct {
	Type       PIIType   `json:"type"`
	Value      string    `json:"value"`
	PageIndex  int       `json:"page_index"`
	Span       *TextSpan `json:"span,omitempty"`
	Region     *Region   `json:"region,omitempty"`
	Confidence float64   `json:"confidence"`
	Risk       Severity  `json:"risk"`
	Detector   string    `json:"detector"`
}

// RedactionActionKind selects how an entity is redacted.
type RedactionActionKind string

const (
	ActionReplaceText    RedactionActionKind = "replace_text"
	ActionBlackoutRegion RedactionActionKind = "blackout_region"
)

// RedactionAction is a concrete instruction for the storage collaborator:
// replace a text span with a mask, or fill an image region.
type RedactionAction struct {
	Kind      RedactionActionKind `json:"kind"`
	Entity    PIIEntity           `json:"entity"`
	PageIndex int                 `json:"page_index"`

	// Mask is the replacement text for replace_text actions. Its length is
	// a coarse bucket, not the original length.
	Mask string `json:"mask,omitempty"`

	// Region is the fill area for blackout_region actions, already expanded
	// by the edge-leakage margin.
	Region *Region `json:"region,omitempty"`

	// Reversible actions carry recoverable ciphertext of the original value;
	// destructive actions discard it.
	Reversible bool   `json:"reversible"`
	Ciphertext []byte `json:"ciphertext,omitempty"`
}

// ReviewFlag marks an entity below the auto-redact threshold for manual
// review. Every detected entity ends up as exactly one action or one flag.
type ReviewFlag struct {
	Entity PIIEntity `json:"entity"`
	Reason string    `json:"reason"`
}

// RedactionPlan is the ordered action sequence for one document, consumed
// by the storage collaborator before any onward distribution.
type RedactionPlan struct {
	DocumentID string            `json:"document_id"`
	Actions    []RedactionAction `json:"actions"`
	Reviews    []ReviewFlag      `json:"reviews"`
}

// PIISummary aggregates per-type counts with masked sample values for the
// report surface, so reviewers see what was found without seeing raw PII.
type PIISummary struct {
	Type          PIIType  `json:"type"`
	Count         int      `json:"count"`
	MaskedSamples []string `json:"masked_samples,omitempty"`
	HighestRisk   Severity `json:"highest_risk"`
}
