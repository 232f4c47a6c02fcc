// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"math/rand"
	"testing"
	"time"

	"doc-sentinel/internal/config"
	"doc-sentinel/internal/document"
)

func testPolicy() Policy {
	return PolicyFromConfig(config.DefaultConfig())
}

func finding(kind document.Kind, sev document.Severity, conf float64) document.Finding {
	return document.Finding{Kind: kind, Severity: sev, Confidence: conf, DocumentID: "doc-1"}
}

func completedContributions() []document.Contribution {
	var cs []document.Contribution
	for _, kind := range document.TamperKinds() {
		cs = append(cs, document.Contribution{Kind: kind, Status: document.ContributionCompleted})
	}
	return cs
}

func TestScoringIsDeterministic(t *testing.T) {
	p := testPolicy()
	findings := []document.Finding{
		finding(document.KindELA, document.SeverityMedium, 0.6),
		finding(document.KindMetadata, document.SeverityMedium, 0.5),
		finding(document.KindCopyMove, document.SeverityHigh, 0.8),
	}

	first := p.Score(findings, nil, nil)
	for i := 0; i < 10; i++ {
		if got := p.Score(findings, nil, nil); got != first {
			t.Fatalf("score changed between runs: %f != %f", got, first)
		}
	}
}

func TestScoringIsOrderIndependent(t *testing.T) {
	p := testPolicy()
	findings := []document.Finding{
		finding(document.KindELA, document.SeverityMedium, 0.6),
		finding(document.KindMetadata, document.SeverityMedium, 0.5),
		finding(document.KindCopyMove, document.SeverityHigh, 0.8),
		finding(document.KindFont, document.SeverityLow, 0.3),
	}
	want := p.Score(findings, nil, nil)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]document.Finding(nil), findings...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := p.Score(shuffled, nil, nil); got != want {
			t.Fatalf("score depends on finding order: %f != %f", got, want)
		}
	}
}

func TestCriticalOverrideForcesFraudulent(t *testing.T) {
	p := testPolicy()
	findings := []document.Finding{
		finding(document.KindELA, document.SeverityCritical, 0.9),
	}
	score := p.Score(findings, nil, nil)
	if score >= p.FraudulentBand {
		t.Skipf("score %f already fraudulent, override not exercised", score)
	}
	if got := p.Verdict(score, findings, completedContributions()); got != document.VerdictFraudulent {
		t.Errorf("verdict = %s, want fraudulent via override", got)
	}
}

func TestOverrideNeedsConfidence(t *testing.T) {
	p := testPolicy()
	findings := []document.Finding{
		finding(document.KindELA, document.SeverityCritical, 0.5),
	}
	score := p.Score(findings, nil, nil)
	if got := p.Verdict(score, findings, completedContributions()); got == document.VerdictFraudulent && score < p.FraudulentBand {
		t.Errorf("low-confidence critical finding triggered the override")
	}
}

func TestCompletenessGate(t *testing.T) {
	p := testPolicy()
	// 4 of 6 checks failed: past the 0.5 fraction, clean score or not.
	cs := []document.Contribution{
		{Kind: document.KindELA, Status: document.ContributionCompleted},
		{Kind: document.KindCopyMove, Status: document.ContributionCompleted},
		{Kind: document.KindMetadata, Status: document.ContributionFailed},
		{Kind: document.KindResolution, Status: document.ContributionFailed},
		{Kind: document.KindFont, Status: document.ContributionTimedOut},
		{Kind: document.KindWatermark, Status: document.ContributionFailed},
	}
	if got := p.Verdict(0, nil, cs); got != document.VerdictIndeterminate {
		t.Errorf("verdict = %s, want indeterminate with %d/6 checks missing", got, 4)
	}

	// The gate outranks the fraudulent override: an incomplete run cannot
	// vouch for anything.
	findings := []document.Finding{finding(document.KindELA, document.SeverityCritical, 0.95)}
	if got := p.Verdict(100, findings, cs); got != document.VerdictIndeterminate {
		t.Errorf("verdict = %s, want indeterminate over the override", got)
	}
}

func TestMediumELAWithMissingMetadataIsSuspicious(t *testing.T) {
	p := testPolicy()
	findings := []document.Finding{
		finding(document.KindELA, document.SeverityMedium, 0.6),
		finding(document.KindMetadata, document.SeverityMedium, 0.5),
	}
	score := p.Score(findings, nil, nil)
	got := p.Verdict(score, findings, completedContributions())
	if got != document.VerdictSuspicious {
		t.Errorf("verdict = %s (score %f), want suspicious", got, score)
	}
}

func TestDuplicateAloneIsAtLeastSuspicious(t *testing.T) {
	p := testPolicy()
	dups := []document.DuplicateMatch{{DocumentID: "doc-0", PageIndex: 0, Distance: 0}}
	score := p.Score(nil, dups, nil)
	got := p.Verdict(score, nil, completedContributions())
	if got == document.VerdictClean {
		t.Errorf("verdict = clean with a duplicate match, score %f", score)
	}
}

func TestDuplicateWeightAddedOnce(t *testing.T) {
	p := testPolicy()
	one := p.Score(nil, []document.DuplicateMatch{{DocumentID: "a"}}, nil)
	three := p.Score(nil, []document.DuplicateMatch{{DocumentID: "a"}, {DocumentID: "b"}, {DocumentID: "c"}}, nil)
	if one != three {
		t.Errorf("duplicate weight scales with match count: %f != %f", one, three)
	}
}

func TestCriticalPIIContributes(t *testing.T) {
	p := testPolicy()
	entities := []document.PIIEntity{
		{Type: document.PIINationalID, Risk: document.SeverityCritical},
		{Type: document.PIIPhone, Risk: document.SeverityMedium},
	}
	withPII := p.Score(nil, nil, entities)
	if withPII != p.CriticalPIIWeight {
		t.Errorf("score = %f, want %f from one critical entity", withPII, p.CriticalPIIWeight)
	}
}

func TestScoreClamped(t *testing.T) {
	p := testPolicy()
	var findings []document.Finding
	for i := 0; i < 20; i++ {
		findings = append(findings, finding(document.KindELA, document.SeverityCritical, 1.0))
	}
	if got := p.Score(findings, nil, nil); got != 100 {
		t.Errorf("score = %f, want clamp at 100", got)
	}
}

func TestSummarizePIIMasksValues(t *testing.T) {
	entities := []document.PIIEntity{
		{Type: document.PIINationalID, Value: "123-45-6789", Risk: document.SeverityCritical},
		{Type: document.PIINationalID, Value: "987-65-4321", Risk: document.SeverityCritical},
		{Type: document.PIIEmail, Value: "a@b.co", Risk: document.SeverityMedium},
	}
	summaries := SummarizePII(entities)
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	for _, s := range summaries {
		for _, sample := range s.MaskedSamples {
			if sample == "123-45-6789" || sample == "987-65-4321" || sample == "a@b.co" {
				t.Errorf("summary leaks raw value %q", sample)
			}
		}
	}
	if summaries[1].Count != 2 {
		t.Errorf("national_id count = %d, want 2", summaries[1].Count)
	}
}

func TestCollectorLifecycle(t *testing.T) {
	c := NewCollector(testPolicy(), "doc-1")
	if c.State() != StateCollecting {
		t.Fatalf("state = %s", c.State())
	}

	if err := c.AddFindings(finding(document.KindELA, document.SeverityMedium, 0.6)); err != nil {
		t.Fatalf("add: %v", err)
	}
	for _, contribution := range completedContributions() {
		if err := c.AddContribution(contribution); err != nil {
			t.Fatalf("add contribution: %v", err)
		}
	}

	start := time.Now()
	report, err := c.Finalize(start, start.Add(time.Second))
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if c.State() != StateFinalized {
		t.Errorf("state = %s, want FINALIZED", c.State())
	}
	if report.ID == "" || report.DocumentID != "doc-1" {
		t.Errorf("report identity: %+v", report)
	}

	// Late input must be rejected, not folded into the sealed report.
	if err := c.AddFindings(finding(document.KindFont, document.SeverityLow, 0.2)); err == nil {
		t.Error("finding accepted after finalize")
	}

	if err := c.Supersede(); err != nil {
		t.Fatalf("supersede: %v", err)
	}
	if c.State() != StateSuperseded {
		t.Errorf("state = %s, want SUPERSEDED", c.State())
	}
}

func TestDoubleFinalizeIsInvariantViolation(t *testing.T) {
	c := NewCollector(testPolicy(), "doc-1")
	now := time.Now()
	if _, err := c.Finalize(now, now); err != nil {
		t.Fatalf("first finalize: %v", err)
	}

	_, err := c.Finalize(now, now)
	if err == nil {
		t.Fatal("second finalize succeeded")
	}
	if _, ok := err.(*InconsistencyError); !ok {
		t.Errorf("error type = %T, want *InconsistencyError", err)
	}
}

func TestRecommendationsFollowFindings(t *testing.T) {
	recs := Recommendations(
		[]document.Finding{finding(document.KindWatermark, document.SeverityHigh, 0.8)},
		[]document.DuplicateMatch{{DocumentID: "doc-0"}},
		nil,
	)
	if len(recs) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(recs))
	}
}
