package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/schematic-verify/internal/config"
	"github.com/a3tai/schematic-verify/internal/descriptions"
	"github.com/a3tai/schematic-verify/internal/design"
	"github.com/a3tai/schematic-verify/internal/report"
	"github.com/a3tai/schematic-verify/internal/security"
	"github.com/a3tai/schematic-verify/internal/verify"
)

// Tool names
const (
	ToolVerifyDesign     = "verify_design"
	ToolCheckConsistency = "check_consistency"
	ToolSegmentFragment  = "segment_fragment"
	ToolAuditDesign      = "audit_design"
	ToolVerifierInfo     = "verifier_info"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *verify.Service
	paths     *security.PathValidator
	mcpServer *server.MCPServer
	logger    *log.Logger

	stdin  io.Reader
	stdout io.Writer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc *verify.Service) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if svc == nil {
		return nil, errors.New("verify service cannot be nil")
	}

	paths, err := security.NewPathValidator(cfg.BaseDirectory)
	if err != nil {
		return nil, fmt.Errorf("invalid base directory: %w", err)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		service:   svc,
		paths:     paths,
		mcpServer: mcpServer,
		logger:    cfg.Logger("MCP"),
		stdin:     os.Stdin,
		stdout:    os.Stdout,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	verifyTool := mcp.NewTool(
		ToolVerifyDesign,
		mcp.WithDescription(descriptions.GetToolDescription(ToolVerifyDesign)),
		mcp.WithString("json_path",
			mcp.Required(),
			mcp.Description("Path to the design export JSON"),
		),
		mcp.WithString("pdf_path",
			mcp.Required(),
			mcp.Description("Path to the schematic PDF"),
		),
		mcp.WithString("audit_path",
			mcp.Description("Optional audit expectations file (yaml, json or toml)"),
		),
		mcp.WithString("format",
			mcp.Description("Report format"),
			mcp.Enum(string(report.FormatMarkdown), string(report.FormatJSON)),
		),
		mcp.WithString("pages",
			mcp.Description("Optional page selection, e.g. '1-3,7' (default all pages)"),
		),
	)
	s.mcpServer.AddTool(verifyTool, s.handleVerifyDesign)

	consistencyTool := mcp.NewTool(
		ToolCheckConsistency,
		mcp.WithDescription(descriptions.GetToolDescription(ToolCheckConsistency)),
		mcp.WithString("json_path",
			mcp.Required(),
			mcp.Description("Path to the design export JSON"),
		),
	)
	s.mcpServer.AddTool(consistencyTool, s.handleCheckConsistency)

	segmentTool := mcp.NewTool(
		ToolSegmentFragment,
		mcp.WithDescription(descriptions.GetToolDescription(ToolSegmentFragment)),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text as it appears in the PDF text layer"),
		),
		mcp.WithString("json_path",
			mcp.Description("Optional design export whose identifiers guide segmentation"),
		),
	)
	s.mcpServer.AddTool(segmentTool, s.handleSegmentFragment)

	auditTool := mcp.NewTool(
		ToolAuditDesign,
		mcp.WithDescription(descriptions.GetToolDescription(ToolAuditDesign)),
		mcp.WithString("json_path",
			mcp.Required(),
			mcp.Description("Path to the design export JSON"),
		),
		mcp.WithString("audit_path",
			mcp.Description("Optional audit expectations file (yaml, json or toml)"),
		),
	)
	s.mcpServer.AddTool(auditTool, s.handleAuditDesign)

	infoTool := mcp.NewTool(
		ToolVerifierInfo,
		mcp.WithDescription(descriptions.GetToolDescription(ToolVerifierInfo)),
	)
	s.mcpServer.AddTool(infoTool, s.handleVerifierInfo)
}

// resolve confines a tool path to the configured base directory
func (s *Server) resolve(path string) (string, error) {
	resolved, err := s.paths.Resolve(path)
	if err != nil {
		return "", fmt.Errorf("access denied: %w", err)
	}
	return resolved, nil
}

// optionalPath resolves an optional path argument. An absent argument
// yields an empty path.
func (s *Server) optionalPath(request mcp.CallToolRequest, key string) (string, error) {
	path := request.GetString(key, "")
	if path == "" {
		return "", nil
	}
	return s.resolve(path)
}

// Handler functions
func (s *Server) handleVerifyDesign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonPath, err := request.RequireString("json_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pdfPath, err := request.RequireString("pdf_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	format, err := report.ParseFormat(request.GetString("format", string(report.FormatMarkdown)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if format == report.FormatXLSX {
		return mcp.NewToolResultError("xlsx reports are only written by the command line"), nil
	}

	req := verify.Request{Pages: request.GetString("pages", "")}
	if req.JSONPath, err = s.resolve(jsonPath); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.PDFPath, err = s.resolve(pdfPath); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.AuditFile, err = s.optionalPath(request, "audit_path"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	env, err := s.service.Verify(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	if err := report.Write(&b, format, env, s.service.ReportOptions()); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleCheckConsistency(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonPath, err := request.RequireString("json_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if jsonPath, err = s.resolve(jsonPath); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	c, err := s.service.Consistency(jsonPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	if err := report.WriteConsistency(&b, c, s.config.UnmatchedLimit); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleSegmentFragment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonPath, err := s.optionalPath(request, "json_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var idx *design.Index
	if jsonPath != "" {
		if idx, err = s.service.LoadDesign(jsonPath); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	segs, err := s.service.SegmentText(text, idx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	if err := report.WriteSegmentations(&b, segs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleAuditDesign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonPath, err := request.RequireString("json_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if jsonPath, err = s.resolve(jsonPath); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	auditPath, err := s.optionalPath(request, "audit_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rep, err := s.service.Audit(jsonPath, auditPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	if err := report.WriteAudit(&b, rep); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleVerifierInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatVerifierInfo()), nil
}

func (s *Server) formatVerifierInfo() string {
	var b strings.Builder
	g := s.service.Grammar()

	fmt.Fprintf(&b, "%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	fmt.Fprintf(&b, "Base directory: %s\n", s.paths.BaseDirectory())
	fmt.Fprintf(&b, "Workers: %d\n", s.config.Workers)
	fmt.Fprintf(&b, "Max PDF size: %d bytes\n", s.config.MaxFileSize)
	fmt.Fprintf(&b, "Designator prefixes: %s\n", strings.Join(g.Prefixes(), " "))
	fmt.Fprintf(&b, "Net noise words: %s\n", strings.Join(s.config.NetNoise, " "))
	keys := s.config.Keys()
	fmt.Fprintf(&b, "Design JSON keys: components=%s nets=%s text=%s\n", keys.Components, keys.Nets, keys.Text)

	b.WriteString("\nAvailable tools:\n")
	for _, name := range descriptions.GetAllToolNames() {
		fmt.Fprintf(&b, "  - %s\n", name)
	}

	b.WriteString("\nUsage: run check_consistency on the design JSON first, then verify_design with the PDF. " +
		"Use segment_fragment to see how a glued label splits.\n")
	return b.String()
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode serves MCP over stdin and stdout until ctx is cancelled or
// input ends
func (s *Server) runStdioMode(ctx context.Context) error {
	if s.config.IsDebug() {
		s.logger.Printf("Starting schematic verifier in stdio mode")
		s.logger.Printf("Base directory: %s", s.paths.BaseDirectory())
	}

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(s.logger)
	if err := stdio.Listen(ctx, s.stdin, s.stdout); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE until ctx is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting schematic verifier SSE server on %s", addr)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("SSE server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("SSE server shutdown: %w", err)
		}
		return ctx.Err()
	}
}
