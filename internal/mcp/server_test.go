package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/schematic-verify/internal/config"
	"github.com/a3tai/schematic-verify/internal/pdf/pdftest"
	"github.com/a3tai/schematic-verify/internal/verify"
)

const testDesign = `{
  "components": ["R241", "C15", "U1"],
  "nets": ["VDD_3V3", "GND_A"],
  "text_primitives": ["R241", "C15"]
}`

func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseDirectory = dir
	cfg.LogLevel = "error"
	cfg.Workers = 2
	cfg.ServerName = "test-server"
	return cfg
}

func newTestServer(t *testing.T, dir string) *Server {
	t.Helper()
	cfg := testConfig(dir)
	svc, err := verify.NewService(cfg)
	if err != nil {
		t.Fatalf("failed to create verify service: %v", err)
	}
	server, err := NewServer(cfg, svc)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return server
}

func writeFixtures(t *testing.T, dir string) (jsonPath, pdfPath string) {
	t.Helper()
	jsonPath = filepath.Join(dir, "design.json")
	if err := os.WriteFile(jsonPath, []byte(testDesign), 0o644); err != nil {
		t.Fatalf("failed to write design: %v", err)
	}
	pdfPath = pdftest.Write(t, dir, "board.pdf", "R241 C15 VDD_3V3")
	return jsonPath, pdfPath
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestNewServer(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	svc, err := verify.NewService(cfg)
	if err != nil {
		t.Fatalf("failed to create verify service: %v", err)
	}

	tests := []struct {
		name        string
		config      *config.Config
		service     *verify.Service
		expectError bool
	}{
		{name: "valid config", config: cfg, service: svc},
		{name: "nil config", config: nil, service: svc, expectError: true},
		{name: "nil service", config: cfg, service: nil, expectError: true},
		{
			name: "empty base directory",
			config: func() *config.Config {
				c := testConfig("")
				return c
			}(),
			service:     svc,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.config, tt.service)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.expectError {
				if server == nil {
					t.Fatal("server should not be nil")
				}
				if server.config != tt.config {
					t.Error("server config not set correctly")
				}
				if server.mcpServer == nil {
					t.Error("mcpServer should be initialized")
				}
			}
		})
	}
}

func TestServer_HandleVerifyDesign(t *testing.T) {
	dir := t.TempDir()
	jsonPath, pdfPath := writeFixtures(t, dir)
	server := newTestServer(t, dir)

	result, err := server.handleVerifyDesign(context.Background(), callRequest(map[string]interface{}{
		"json_path": jsonPath,
		"pdf_path":  "board.pdf",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", extractTextFromResult(result))
	}

	text := extractTextFromResult(result)
	for _, want := range []string{"## Component Verification", "R241", "U1"} {
		if !strings.Contains(text, want) {
			t.Errorf("report should contain %q, got: %s", want, text)
		}
	}

	result, err = server.handleVerifyDesign(context.Background(), callRequest(map[string]interface{}{
		"json_path": jsonPath,
		"pdf_path":  pdfPath,
		"format":    "json",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(extractTextFromResult(result)), &decoded); err != nil {
		t.Fatalf("json report should decode: %v", err)
	}
	if _, ok := decoded["result"]; !ok {
		t.Error("json report should carry a result")
	}
}

func TestServer_InvalidArguments(t *testing.T) {
	dir := t.TempDir()
	jsonPath, pdfPath := writeFixtures(t, dir)
	server := newTestServer(t, dir)
	ctx := context.Background()

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]interface{}
		want    string
	}{
		{
			name:    "verify without pdf",
			handler: server.handleVerifyDesign,
			args:    map[string]interface{}{"json_path": jsonPath},
			want:    "pdf_path",
		},
		{
			name:    "verify outside base directory",
			handler: server.handleVerifyDesign,
			args:    map[string]interface{}{"json_path": "/etc/passwd", "pdf_path": pdfPath},
			want:    "access denied",
		},
		{
			name:    "verify xlsx",
			handler: server.handleVerifyDesign,
			args:    map[string]interface{}{"json_path": jsonPath, "pdf_path": pdfPath, "format": "xlsx"},
			want:    "xlsx",
		},
		{
			name:    "verify unknown format",
			handler: server.handleVerifyDesign,
			args:    map[string]interface{}{"json_path": jsonPath, "pdf_path": pdfPath, "format": "html"},
			want:    "html",
		},
		{
			name:    "verify bad page selection",
			handler: server.handleVerifyDesign,
			args:    map[string]interface{}{"json_path": jsonPath, "pdf_path": pdfPath, "pages": "3-1"},
			want:    "3-1",
		},
		{
			name:    "consistency without path",
			handler: server.handleCheckConsistency,
			args:    map[string]interface{}{},
			want:    "json_path",
		},
		{
			name:    "consistency traversal",
			handler: server.handleCheckConsistency,
			args:    map[string]interface{}{"json_path": "../design.json"},
			want:    "access denied",
		},
		{
			name:    "segment without text",
			handler: server.handleSegmentFragment,
			args:    map[string]interface{}{},
			want:    "text",
		},
		{
			name:    "audit missing expectations",
			handler: server.handleAuditDesign,
			args:    map[string]interface{}{"json_path": jsonPath, "audit_path": "none.yaml"},
			want:    "none.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(ctx, callRequest(tt.args))
			if err != nil {
				t.Fatalf("handler should report errors in the result, got: %v", err)
			}
			if !result.IsError {
				t.Errorf("expected a tool error, got: %s", extractTextFromResult(result))
			}
			if text := extractTextFromResult(result); !strings.Contains(text, tt.want) {
				t.Errorf("error should mention %q, got: %s", tt.want, text)
			}
		})
	}
}

func TestServer_HandleCheckConsistency(t *testing.T) {
	dir := t.TempDir()
	jsonPath, _ := writeFixtures(t, dir)
	server := newTestServer(t, dir)

	result, err := server.handleCheckConsistency(context.Background(), callRequest(map[string]interface{}{
		"json_path": jsonPath,
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	text := extractTextFromResult(result)
	if !strings.Contains(text, "Internal Consistency") {
		t.Errorf("expected consistency section, got: %s", text)
	}
	if !strings.Contains(text, "U1") {
		t.Errorf("expected U1 to be listed as inconsistent, got: %s", text)
	}
}

func TestServer_HandleSegmentFragment(t *testing.T) {
	dir := t.TempDir()
	jsonPath, _ := writeFixtures(t, dir)
	server := newTestServer(t, dir)

	result, err := server.handleSegmentFragment(context.Background(), callRequest(map[string]interface{}{
		"text":      "R241C15",
		"json_path": jsonPath,
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	text := extractTextFromResult(result)
	if !strings.Contains(text, `Fragment "R241C15": 2 candidate(s)`) {
		t.Errorf("unexpected segmentation: %s", text)
	}
	if !strings.Contains(text, "[4:7] component") {
		t.Errorf("C15 should be a component at [4:7], got: %s", text)
	}
}

func TestServer_HandleAuditDesign(t *testing.T) {
	dir := t.TempDir()
	jsonPath, _ := writeFixtures(t, dir)
	server := newTestServer(t, dir)

	result, err := server.handleAuditDesign(context.Background(), callRequest(map[string]interface{}{
		"json_path": jsonPath,
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", extractTextFromResult(result))
	}
	if !strings.Contains(extractTextFromResult(result), "Design Logic Audit") {
		t.Errorf("expected audit section, got: %s", extractTextFromResult(result))
	}
}

func TestServer_HandleVerifierInfo(t *testing.T) {
	dir := t.TempDir()
	server := newTestServer(t, dir)

	result, err := server.handleVerifierInfo(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	text := extractTextFromResult(result)
	for _, want := range []string{"test-server", dir, ToolVerifyDesign, ToolSegmentFragment, "FB"} {
		if !strings.Contains(text, want) {
			t.Errorf("info should mention %q, got: %s", want, text)
		}
	}
}

// extractTextFromResult returns the first text content of a tool result
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}
