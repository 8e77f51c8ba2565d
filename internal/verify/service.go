// Package verify wires design loading, PDF extraction, reconciliation and
// auditing into the operations exposed by the CLI and the MCP server.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/a3tai/schematic-verify/internal/audit"
	"github.com/a3tai/schematic-verify/internal/config"
	"github.com/a3tai/schematic-verify/internal/design"
	"github.com/a3tai/schematic-verify/internal/faults"
	"github.com/a3tai/schematic-verify/internal/grammar"
	"github.com/a3tai/schematic-verify/internal/pdf"
	"github.com/a3tai/schematic-verify/internal/reconcile"
	"github.com/a3tai/schematic-verify/internal/report"
	"github.com/a3tai/schematic-verify/internal/segment"
)

// Request names the inputs of one verification run
type Request struct {
	JSONPath  string
	PDFPath   string
	AuditFile string
	// Pages restricts extraction to a selection such as "1-3,7". Empty
	// means every page.
	Pages string
}

// Service runs verification operations with one configuration
type Service struct {
	cfg        *config.Config
	grammar    *grammar.Grammar
	validator  *pdf.Validator
	extractor  *pdf.Extractor
	engine     *reconcile.Engine
	fragmenter *pdf.Fragmenter
	logger     *log.Logger
}

// NewService creates a Service from cfg
func NewService(cfg *config.Config) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	g, err := cfg.Grammar()
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:        cfg,
		grammar:    g,
		validator:  pdf.NewValidator(cfg.MaxFileSize),
		extractor:  pdf.NewExtractor(cfg.Workers, cfg.Logger("Extractor")),
		engine:     reconcile.NewEngine(g, cfg.Workers, cfg.Logger("Reconcile")),
		fragmenter: pdf.NewFragmenter(),
		logger:     cfg.Logger("Verify"),
	}, nil
}

// ReportOptions returns the report sample sizes from the configuration.
// Unset limits keep the report defaults.
func (s *Service) ReportOptions() report.Options {
	opts := report.DefaultOptions()
	if s.cfg.SampleLimit > 0 {
		opts.SampleLimit = s.cfg.SampleLimit
	}
	if s.cfg.UnmatchedLimit > 0 {
		opts.UnmatchedLimit = s.cfg.UnmatchedLimit
	}
	return opts
}

// LoadDesign loads the design export at path with the configured keys
func (s *Service) LoadDesign(path string) (*design.Index, error) {
	if path == "" {
		return nil, faults.New(faults.TypeInvalidInput, "design JSON path cannot be empty")
	}
	idx, err := design.LoadFile(path, s.cfg.Keys())
	if err != nil {
		return nil, err
	}
	if s.cfg.IsDebug() {
		s.logger.Printf("Loaded %s: %d components, %d nets, %d text primitives",
			path, len(idx.Components()), len(idx.Nets()), len(idx.TextPrimitives()))
	}
	if err := idx.InstanceError(); err != nil {
		s.logger.Printf("Skipping instances in %s: %v", path, err)
	}
	return idx, nil
}

// Verify reconciles the PDF in req against its design export and, when an
// audit file is named, audits the design too
func (s *Service) Verify(ctx context.Context, req Request) (*report.Envelope, error) {
	ranges, err := pdf.ParsePageRanges(req.Pages)
	if err != nil {
		return nil, err
	}

	idx, err := s.LoadDesign(req.JSONPath)
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidateFile(req.PDFPath); err != nil {
		return nil, err
	}

	info, err := pdf.Inspect(req.PDFPath)
	if err != nil {
		s.logger.Printf("Preflight skipped for %s: %v", req.PDFPath, err)
		info = nil
	}

	src, err := pdf.OpenFile(req.PDFPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if info != nil && info.Pages != src.NumPages() {
		s.logger.Printf("Page count mismatch for %s: structure reports %d, text layer reports %d",
			req.PDFPath, info.Pages, src.NumPages())
	}

	env, err := s.VerifySource(ctx, idx, src, ranges...)
	if err != nil {
		return nil, err
	}
	env.JSONPath = req.JSONPath
	env.PDFPath = req.PDFPath
	env.PDF = info

	if req.AuditFile != "" {
		rep, err := s.auditIndex(idx, req.AuditFile)
		if err != nil {
			return nil, err
		}
		env.Audit = rep
	}
	return env, nil
}

// VerifySource reconciles any page source against a loaded design. Ranges,
// when given, restrict which pages are read.
func (s *Service) VerifySource(ctx context.Context, idx *design.Index, src pdf.PageSource, ranges ...pdf.PageRange) (*report.Envelope, error) {
	ext, err := s.extractor.ExtractPages(ctx, src, ranges)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Run(ctx, ext, idx)
	if err != nil {
		return nil, err
	}

	if diag := res.Faults(ext.Path); diag.HasFatal() || len(diag.Warnings) > 0 {
		s.logger.Printf("Reconciled with diagnostics: %s", diag.Summary())
	}

	env := report.NewEnvelope("", ext.Path)
	env.Result = res
	return env, nil
}

// Consistency checks the design's declared components against its own text
// primitives
func (s *Service) Consistency(jsonPath string) (reconcile.Consistency, error) {
	idx, err := s.LoadDesign(jsonPath)
	if err != nil {
		return reconcile.Consistency{}, err
	}
	return reconcile.CheckInternalConsistency(idx), nil
}

// Audit runs the design logic audit. An empty auditFile audits against the
// default expectations.
func (s *Service) Audit(jsonPath, auditFile string) (*audit.Report, error) {
	idx, err := s.LoadDesign(jsonPath)
	if err != nil {
		return nil, err
	}
	return s.auditIndex(idx, auditFile)
}

func (s *Service) auditIndex(idx *design.Index, auditFile string) (*audit.Report, error) {
	if err := idx.InstanceError(); err != nil {
		return nil, err
	}
	exp := audit.DefaultExpectations()
	if auditFile != "" {
		var err error
		exp, err = audit.LoadExpectations(auditFile)
		if err != nil {
			return nil, err
		}
	}
	rep := audit.Run(idx, exp)
	counts := rep.Counts()
	s.logger.Printf("Audit: %d OK, %d INFO, %d WARN, %d FAIL",
		counts[audit.StatusOK], counts[audit.StatusInfo], counts[audit.StatusWarn], counts[audit.StatusFail])
	return rep, nil
}

// SegmentText splits free text into fragments the way page text is split
// and segments each one. A nil idx segments on the grammar alone.
func (s *Service) SegmentText(text string, idx *design.Index) ([]segment.Segmentation, error) {
	if strings.TrimSpace(text) == "" {
		return nil, faults.New(faults.TypeInvalidInput, "text cannot be empty")
	}
	frags, err := s.fragmenter.Fragments(1, text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}

	var lex *segment.Lexicon
	if idx != nil {
		lex = segment.NewLexicon(idx.Components(), idx.Nets())
	}
	seg := segment.New(s.grammar, lex)

	out := make([]segment.Segmentation, 0, len(frags))
	for _, f := range frags {
		out = append(out, seg.Segment(f))
	}
	return out, nil
}

// Grammar returns the identifier grammar in use
func (s *Service) Grammar() *grammar.Grammar {
	return s.grammar
}

// Config returns the service configuration
func (s *Service) Config() *config.Config {
	return s.cfg
}
