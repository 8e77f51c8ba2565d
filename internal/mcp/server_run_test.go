package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

func TestServer_Run_StdioEndOfInput(t *testing.T) {
	server := newTestServer(t, t.TempDir())
	server.stdin = strings.NewReader("")
	server.stdout = io.Discard

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run(context.Background())
	}()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Run() should stop cleanly at end of input, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Run() did not return at end of input")
	}
}

func TestServer_ToolsRegistration(t *testing.T) {
	server := newTestServer(t, t.TempDir())

	response := server.mcpServer.HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	out, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("failed to encode response: %v", err)
	}

	for _, name := range []string{ToolVerifyDesign, ToolCheckConsistency, ToolSegmentFragment, ToolAuditDesign, ToolVerifierInfo} {
		if !strings.Contains(string(out), `"`+name+`"`) {
			t.Errorf("tools/list should include %s, got: %s", name, out)
		}
	}
}

func TestServer_Run_ContextCancellation(t *testing.T) {
	tests := []struct {
		name string
		mode string
	}{
		{name: "stdio mode context cancellation", mode: "stdio"},
		{name: "server mode context cancellation", mode: "server"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, t.TempDir())
			server.config.Mode = tt.mode
			server.config.Port = freePort(t)

			stdin, stdinWriter := io.Pipe()
			defer stdinWriter.Close()
			server.stdin = stdin
			server.stdout = io.Discard

			ctx, cancel := context.WithCancel(context.Background())

			errChan := make(chan error, 1)
			go func() {
				errChan <- server.Run(ctx)
			}()

			time.Sleep(50 * time.Millisecond)
			cancel()

			select {
			case err := <-errChan:
				if err != nil && !strings.Contains(err.Error(), "context") {
					t.Errorf("Run() error = %v, expected context-related error", err)
				}
			case <-time.After(2 * time.Second):
				t.Error("Run() did not return after context cancellation")
			}
		})
	}
}

func TestServer_Run_ServerModeAddressInUse(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer listener.Close()

	server := newTestServer(t, t.TempDir())
	server.config.Mode = "server"
	server.config.Host = "127.0.0.1"
	server.config.Port = listener.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := server.Run(ctx); err == nil {
		t.Error("Run() should fail when the port is taken")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}
