// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator schedules the tamper analyzers, the PII detector
// set and the fingerprint lookup concurrently over one document snapshot,
// enforces the timeout and partial-failure policy, and drives the
// aggregator to exactly one finalized risk report per run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"doc-sentinel/internal/aggregate"
	"doc-sentinel/internal/analyzers"
	"doc-sentinel/internal/audit"
	"doc-sentinel/internal/config"
	"doc-sentinel/internal/document"
	"doc-sentinel/internal/extern"
	"doc-sentinel/internal/fingerprint"
	"doc-sentinel/internal/observability"
	"doc-sentinel/internal/pii"
	"doc-sentinel/internal/redaction"
	"doc-sentinel/internal/resilience"
)

// Options configures an engine. Config is required; the other fields have
// working defaults or are optional collaborators.
type Options struct {
	Config *config.Config

	// Analyzers overrides the default registry, for tests
	Analyzers []analyzers.Analyzer

	// Index is the shared fingerprint index. Nil creates a private one.
	Index *fingerprint.Index

	// External capabilities. Nil disables the corresponding enrichment:
	// pages without text are skipped by the PII detectors, pages without
	// annotations get structured detection only, pages without fields
	// skip the claimed-date cross-check.
	Text     extern.TextExtractor
	Entities extern.EntityExtractor
	Fields   extern.StructuredFieldExtractor

	Observer *observability.StandardObserver
	Audit    audit.Recorder
}

// Engine runs analysis for one document at a time per call; calls are
// independent and may run concurrently.
type Engine struct {
	cfg       *config.Config
	analyzers []analyzers.Analyzer
	index     *fingerprint.Index
	text      extern.TextExtractor
	entities  extern.EntityExtractor
	fields    extern.StructuredFieldExtractor
	piiSet    *pii.Set
	planner   *redaction.Planner
	policy    aggregate.Policy
	observer  *observability.StandardObserver
	audit     audit.Recorder

	mu       sync.Mutex
	lastRuns map[string]*aggregate.Collector
}

// New builds an engine from options.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := opts.Config

	planner, err := redaction.NewPlanner(
		document.ParseSeverity(cfg.Redaction.AutoRedactRisk),
		cfg.Redaction.RegionMarginPixels,
		cfg.Redaction.MaskKeyHex,
	)
	if err != nil {
		return nil, err
	}

	set := opts.Analyzers
	if set == nil {
		set = analyzers.DefaultSet(cfg)
	}
	index := opts.Index
	if index == nil {
		index = fingerprint.NewIndex(cfg.Fingerprint.Shards, cfg.Fingerprint.ToleranceRadius)
	}
	sink := opts.Audit
	if sink == nil {
		sink = audit.Discard{}
	}

	var text extern.TextExtractor
	if opts.Text != nil {
		text = extern.NewResilientTextExtractor(opts.Text, retryConfig(cfg))
	}
	var entities extern.EntityExtractor
	if opts.Entities != nil {
		entities = extern.NewResilientEntityExtractor(opts.Entities, retryConfig(cfg))
	}
	var fields extern.StructuredFieldExtractor
	if opts.Fields != nil {
		fields = extern.NewResilientFieldExtractor(opts.Fields, retryConfig(cfg))
	}

	return &Engine{
		cfg:       cfg,
		analyzers: set,
		index:     index,
		text:      text,
		entities:  entities,
		fields:    fields,
		piiSet:    pii.NewSet(cfg.Redaction.CoLocationWindowChars),
		planner:   planner,
		policy:    aggregate.PolicyFromConfig(cfg),
		observer:  opts.Observer,
		audit:     sink,
		lastRuns:  make(map[string]*aggregate.Collector),
	}, nil
}

func retryConfig(cfg *config.Config) resilience.RetryConfig {
	rc := resilience.ExtractorRetryConfig()
	rc.MaxRetries = cfg.Retry.MaxRetries
	rc.InitialInterval = time.Duration(cfg.Retry.InitialIntervalMillis) * time.Millisecond
	rc.MaxInterval = time.Duration(cfg.Retry.MaxIntervalMillis) * time.Millisecond
	rc.Multiplier = cfg.Retry.Multiplier
	rc.Jitter = cfg.Retry.Jitter
	return rc
}

// Index exposes the engine's fingerprint index, shared across runs.
func (e *Engine) Index() *fingerprint.Index { return e.index }

// Analyze runs the full pipeline for one document and returns the
// finalized risk report with its redaction plan. Callers always get either
// a report (possibly indeterminate) or an explicit error, never silence.
// A cancelled context discards the run entirely; partial results for a
// cancelled run are never reported.
func (e *Engine) Analyze(ctx context.Context, doc *document.Document) (*document.RiskReport, *document.RedactionPlan, error) {
	startedAt := time.Now()
	collector := aggregate.NewCollector(e.policy, doc.ID)

	e.record(ctx, audit.Event{
		Action:     audit.ActionAnalysisStarted,
		Level:      audit.LevelInfo,
		DocumentID: doc.ID,
		Details:    map[string]any{"pages": len(doc.Pages), "type": doc.Type},
	})

	ctx, cancel := context.WithTimeout(ctx, e.cfg.GlobalTimeout())
	defer cancel()

	stop := e.observer.StartTiming("orchestrator", "analyze", doc.ID)

	pages, err := e.decodePages(ctx, doc)
	if err != nil {
		stop(false, nil)
		e.record(ctx, audit.Event{
			Action:     audit.ActionAnalysisFailed,
			Level:      audit.LevelError,
			DocumentID: doc.ID,
			Details:    map[string]any{"error": err.Error()},
		})
		return nil, nil, err
	}

	hashes := make([]uint64, len(pages))
	for i, pi := range pages {
		hashes[i] = fingerprint.PageHash(pi.Gray)
	}
	e.lookupDuplicates(collector, doc.ID, hashes)

	e.enrichFields(ctx, pages)
	e.runChecks(ctx, collector, pages)

	// A withdrawn document discards everything computed so far.
	if errors.Is(ctx.Err(), context.Canceled) {
		stop(false, map[string]interface{}{"cancelled": true})
		e.record(ctx, audit.Event{
			Action:     audit.ActionAnalysisFailed,
			Level:      audit.LevelWarning,
			DocumentID: doc.ID,
			Details:    map[string]any{"error": "run cancelled"},
		})
		return nil, nil, ctx.Err()
	}

	report, err := collector.Finalize(startedAt, time.Now())
	if err != nil {
		var inconsistency *aggregate.InconsistencyError
		if errors.As(err, &inconsistency) {
			e.record(ctx, audit.Event{
				Action:     audit.ActionInvariantViolated,
				Level:      audit.LevelCritical,
				DocumentID: doc.ID,
				Details:    map[string]any{"error": inconsistency.Error()},
			})
		}
		stop(false, nil)
		return nil, nil, err
	}

	plan, err := e.planner.Plan(doc.ID, report.Entities)
	if err != nil {
		stop(false, nil)
		return nil, nil, fmt.Errorf("redaction planning: %w", err)
	}

	// Index insertion happens only after a completed run, so a document
	// can never match itself mid-processing.
	e.index.Insert(doc.ID, hashes)
	e.supersedePrevious(doc.ID, collector)

	e.record(ctx, audit.Event{
		Action:     audit.ActionAnalysisCompleted,
		Level:      audit.LevelInfo,
		DocumentID: doc.ID,
		RunID:      report.ID,
		Details: map[string]any{
			"verdict":  string(report.Verdict),
			"score":    report.Score,
			"findings": len(report.Findings),
		},
	})
	e.record(ctx, audit.Event{
		Action:     audit.ActionRedactionPlanned,
		Level:      audit.LevelInfo,
		DocumentID: doc.ID,
		RunID:      report.ID,
		Details: map[string]any{
			"actions": len(plan.Actions),
			"reviews": len(plan.Reviews),
		},
	})

	stop(true, map[string]interface{}{"verdict": string(report.Verdict), "score": report.Score})
	return report, plan, nil
}

// decodePages decodes every page concurrently. Any undecodable page is an
// input error that fails the whole run.
func (e *Engine) decodePages(ctx context.Context, doc *document.Document) ([]*document.PageImage, error) {
	pages := make([]*document.PageImage, len(doc.Pages))
	g, ctx := errgroup.WithContext(ctx)
	for i := range doc.Pages {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pi, err := document.Decode(&doc.Pages[i])
			if err != nil {
				return err
			}
			pi.DocumentType = doc.Type
			pages[i] = pi
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

func (e *Engine) lookupDuplicates(collector *aggregate.Collector, documentID string, hashes []uint64) {
	seen := make(map[string]map[int]bool)
	for _, h := range hashes {
		for _, m := range e.index.Lookup(h, documentID) {
			if seen[m.DocumentID][m.PageIndex] {
				continue
			}
			if seen[m.DocumentID] == nil {
				seen[m.DocumentID] = make(map[int]bool)
			}
			seen[m.DocumentID][m.PageIndex] = true
			collector.AddDuplicates(document.DuplicateMatch{
				DocumentID: m.DocumentID,
				PageIndex:  m.PageIndex,
				Distance:   m.Distance,
			})
		}
	}
}

// enrichFields attaches structured fields to pages that don't already
// carry them, feeding the metadata analyzer's claimed-date cross-check.
// Extraction failure loses that auxiliary signal, not the run.
func (e *Engine) enrichFields(ctx context.Context, pages []*document.PageImage) {
	if e.fields == nil {
		return
	}
	for _, pi := range pages {
		if pi.Page.Fields != nil {
			continue
		}
		stop := e.observer.StartTiming("orchestrator", "extract_fields", pi.Page.DocumentID)
		fields, err := e.fields.ExtractFields(ctx, pi.Page)
		if err != nil {
			stop(false, map[string]interface{}{"page": pi.Page.Index, "error": err.Error()})
			continue
		}
		pi.Page.Fields = fields
		stop(true, map[string]interface{}{"page": pi.Page.Index, "fields": len(fields)})
	}
}

type checkResult struct {
	findings []document.Finding
	entities []document.PIIEntity

	// note records a partial degradation on an otherwise completed check
	note string
	err  error
}

// runChecks fans out every (analyzer, page) pair plus one PII task per
// page, each as an independent task. Failures and soft-timeout overruns
// become contributions; they never abort sibling tasks.
func (e *Engine) runChecks(ctx context.Context, collector *aggregate.Collector, pages []*document.PageImage) {
	var wg sync.WaitGroup
	softBudget := e.cfg.AnalyzerSoftTimeout()

	for _, pi := range pages {
		for _, a := range e.analyzers {
			wg.Add(1)
			go func(a analyzers.Analyzer, pi *document.PageImage) {
				defer wg.Done()
				e.superviseCheck(ctx, collector, a.Kind(), pi.Page.Index, softBudget, func(ctx context.Context) checkResult {
					findings, err := a.Analyze(ctx, pi)
					return checkResult{findings: findings, err: err}
				})
			}(a, pi)
		}

		wg.Add(1)
		go func(pi *document.PageImage) {
			defer wg.Done()
			e.superviseCheck(ctx, collector, document.KindPIIScan, pi.Page.Index, softBudget, func(ctx context.Context) checkResult {
				entities, note, err := e.detectPII(ctx, pi)
				return checkResult{entities: entities, note: note, err: err}
			})
		}(pi)
	}
	wg.Wait()
}

// superviseCheck runs one task with the soft latency budget. An overrun
// marks the check timed out and abandons the worker; its late result is
// discarded through the buffered channel.
func (e *Engine) superviseCheck(ctx context.Context, collector *aggregate.Collector, kind document.Kind, pageIndex int, budget time.Duration, run func(context.Context) checkResult) {
	stop := e.observer.StartTiming("check", string(kind), "")

	done := make(chan checkResult, 1)
	go func() {
		done <- run(ctx)
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	contribution := document.Contribution{Kind: kind, PageIndex: pageIndex}
	select {
	case r := <-done:
		switch {
		case r.err == nil:
			contribution.Status = document.ContributionCompleted
			contribution.Error = r.note
			collector.AddFindings(r.findings...)
			collector.AddEntities(r.entities...)
		case errors.Is(r.err, context.DeadlineExceeded):
			contribution.Status = document.ContributionTimedOut
			contribution.Error = r.err.Error()
		default:
			contribution.Status = document.ContributionFailed
			contribution.Error = r.err.Error()
		}
	case <-timer.C:
		contribution.Status = document.ContributionTimedOut
		contribution.Error = fmt.Sprintf("exceeded soft budget %s", budget)
	case <-ctx.Done():
		contribution.Status = document.ContributionTimedOut
		contribution.Error = ctx.Err().Error()
	}

	collector.AddContribution(contribution)
	stop(contribution.Ran(), map[string]interface{}{"status": string(contribution.Status)})
}

// detectPII assembles the text and annotations for one page and runs the
// detector set. An annotation failure degrades the check to structured
// detection only; the degradation is surfaced on the contribution and
// the audit trail, never swallowed.
func (e *Engine) detectPII(ctx context.Context, pi *document.PageImage) ([]document.PIIEntity, string, error) {
	page := pi.Page
	text := page.Text
	if text == "" && e.text != nil {
		result, err := e.text.ExtractText(ctx, page)
		if err != nil {
			return nil, "", fmt.Errorf("text extraction: %w", err)
		}
		text = result.Text
	}
	if text == "" {
		return nil, "", nil
	}

	var note string
	var annotations []extern.Entity
	if e.entities != nil {
		anns, err := e.entities.ExtractEntities(ctx, page.DocumentID, page.Index, text)
		if err != nil {
			note = fmt.Sprintf("contextual annotations unavailable: %s", err)
			e.record(ctx, audit.Event{
				Action:     audit.ActionCheckDegraded,
				Level:      audit.LevelWarning,
				DocumentID: page.DocumentID,
				Details: map[string]any{
					"check": string(document.KindPIIScan),
					"page":  page.Index,
					"error": err.Error(),
				},
			})
		} else {
			annotations = anns
		}
	}

	entities, err := e.piiSet.DetectPage(ctx, page.Index, text, annotations)
	if err != nil {
		return nil, "", err
	}
	return entities, note, err
}

// supersedePrevious marks the previous finalized run for this document as
// replaced and remembers the new one.
func (e *Engine) supersedePrevious(documentID string, collector *aggregate.Collector) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prev, ok := e.lastRuns[documentID]; ok {
		prev.Supersede()
	}
	e.lastRuns[documentID] = collector
}

func (e *Engine) record(ctx context.Context, event audit.Event) {
	event.Timestamp = time.Now().UTC()
	e.audit.Record(ctx, event)
}
