// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"doc-sentinel/internal/audit"
	"doc-sentinel/internal/config"
	"doc-sentinel/internal/document"
	"doc-sentinel/internal/formatters"
	_ "doc-sentinel/internal/formatters/json"
	_ "doc-sentinel/internal/formatters/text"
	"doc-sentinel/internal/observability"
	"doc-sentinel/internal/orchestrator"
)

// loadConfiguration loads the configuration file or returns default config
func loadConfiguration(configFile string) *config.Config {
	configPath := configFile
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	return config.LoadConfigOrDefault(configPath)
}

type cliFlags struct {
	files        string
	docType      string
	docID        string
	outputFormat string
	configFile   string
	auditFile    string
	verbose      bool
	noColor      bool
	showPlan     bool
	rawEvidence  bool
	debug        bool
}

func parseFlags() *cliFlags {
	f := &cliFlags{}
	flag.StringVar(&f.files, "files", "", "Comma-separated page image files, in page order (required)")
	flag.StringVar(&f.docType, "type", "unknown", "Claimed document type (passport, drivers_license, id_card, ...)")
	flag.StringVar(&f.docID, "id", "", "Document id (default: random UUID)")
	flag.StringVar(&f.outputFormat, "format", "text", "Output format: "+strings.Join(formatters.List(), ", "))
	flag.StringVar(&f.configFile, "config", "", "Path to configuration file")
	flag.StringVar(&f.auditFile, "audit", "", "Append audit events to this file (JSONL)")
	flag.BoolVar(&f.verbose, "verbose", false, "Show evidence details and check contributions")
	flag.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	flag.BoolVar(&f.showPlan, "show-plan", false, "Include the redaction plan in the output")
	flag.BoolVar(&f.rawEvidence, "raw-evidence", false, "Include restricted evidence values (requires authorization upstream)")
	flag.BoolVar(&f.debug, "debug", false, "Emit per-operation timing to stderr")
	flag.Parse()
	return f
}

// loadDocument assembles a document from page image files. A sidecar .txt
// file next to a page image supplies previously extracted text.
func loadDocument(id, docType string, files []string) (*document.Document, error) {
	doc := &document.Document{
		ID:         id,
		Type:       docType,
		IngestedAt: time.Now(),
	}
	for i, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", i, err)
		}
		page := document.Page{DocumentID: id, Index: i, Data: data}

		sidecar := strings.TrimSuffix(file, filepath.Ext(file)) + ".txt"
		if text, err := os.ReadFile(sidecar); err == nil {
			page.Text = string(text)
		}
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

func main() {
	flags := parseFlags()
	if flags.noColor {
		color.NoColor = true
	}
	if flags.files == "" {
		fmt.Fprintln(os.Stderr, "Error: -files is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := loadConfiguration(flags.configFile)

	var observer *observability.StandardObserver
	if flags.debug {
		observer = observability.NewStandardObserver(observability.ObservabilityDebug, os.Stderr)
	}

	var sink audit.Recorder = audit.Discard{}
	if flags.auditFile != "" {
		f, err := os.OpenFile(flags.auditFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot open audit file: %v\n", err)
			os.Exit(2)
		}
		defer f.Close()
		sink = audit.NewJSONLRecorder(f)
	}

	engine, err := orchestrator.New(orchestrator.Options{
		Config:   cfg,
		Observer: observer,
		Audit:    sink,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	id := flags.docID
	if id == "" {
		id = uuid.NewString()
	}
	doc, err := loadDocument(id, flags.docType, strings.Split(flags.files, ","))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, plan, err := engine.Analyze(ctx, doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: analysis failed: %v\n", err)
		os.Exit(2)
	}

	output, err := formatters.Export(flags.outputFormat, report, plan, formatters.FormatterOptions{
		Verbose:     flags.verbose,
		NoColor:     flags.noColor,
		ShowPlan:    flags.showPlan,
		RawEvidence: flags.rawEvidence,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(output)

	switch report.Verdict {
	case document.VerdictClean:
		os.Exit(0)
	case document.VerdictIndeterminate:
		os.Exit(3)
	default:
		os.Exit(1)
	}
}
