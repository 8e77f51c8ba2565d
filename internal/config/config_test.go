package config

import (
	"os"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "stdio" {
		t.Errorf("Expected default mode to be 'stdio', got '%s'", cfg.Mode)
	}

	if cfg.Format != "markdown" {
		t.Errorf("Expected default format to be 'markdown', got '%s'", cfg.Format)
	}

	if cfg.Workers < 1 {
		t.Errorf("Expected at least one worker, got %d", cfg.Workers)
	}

	if cfg.SampleLimit != 20 || cfg.UnmatchedLimit != 50 {
		t.Errorf("Expected sample limits 20/50, got %d/%d", cfg.SampleLimit, cfg.UnmatchedLimit)
	}

	if cfg.ComponentsKey != "components" || cfg.NetsKey != "nets" || cfg.TextKey != "text_primitives" {
		t.Errorf("Unexpected default keys: %+v", cfg.Keys())
	}

	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected default max file size to be 100MB, got %d", cfg.MaxFileSize)
	}

	currentDir, _ := os.Getwd()
	if cfg.BaseDirectory != currentDir {
		t.Errorf("Expected default base directory to be '%s', got '%s'", currentDir, cfg.BaseDirectory)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid default", mutate: func(*Config) {}},
		{name: "valid server mode", mutate: func(c *Config) { c.Mode = ModeServer }},
		{name: "invalid mode", mutate: func(c *Config) { c.Mode = "invalid" }, wantErr: "mode must be"},
		{name: "invalid port", mutate: func(c *Config) { c.Mode = ModeServer; c.Port = 70000 }, wantErr: "port must be"},
		{name: "port ignored in stdio", mutate: func(c *Config) { c.Port = 0 }},
		{name: "invalid format", mutate: func(c *Config) { c.Format = "pdf" }, wantErr: "invalid report format"},
		{name: "zero workers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: "workers"},
		{name: "zero max file size", mutate: func(c *Config) { c.MaxFileSize = 0 }, wantErr: "maximum file size"},
		{name: "zero sample limit", mutate: func(c *Config) { c.SampleLimit = 0 }, wantErr: "sample limits"},
		{name: "empty nets key", mutate: func(c *Config) { c.NetsKey = "" }, wantErr: "keys cannot be empty"},
		{name: "empty prefixes", mutate: func(c *Config) { c.RefDesPrefixes = nil }, wantErr: "vocabulary cannot be empty"},
		{name: "bad prefix", mutate: func(c *Config) { c.RefDesPrefixes = []string{"R1"} }, wantErr: "letters only"},
		{name: "invalid log level", mutate: func(c *Config) { c.LogLevel = "verbose" }, wantErr: "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 9090}
	if got := cfg.Address(); got != "localhost:9090" {
		t.Errorf("Address() = %s, want localhost:9090", got)
	}
}

func TestConfigIsDebug(t *testing.T) {
	for level, want := range map[string]bool{"debug": true, "info": false, "warn": false, "error": false} {
		cfg := &Config{LogLevel: level}
		if got := cfg.IsDebug(); got != want {
			t.Errorf("IsDebug() with %s = %v, want %v", level, got, want)
		}
	}
}

func TestConfigModes(t *testing.T) {
	cfg := &Config{Mode: ModeServer}
	if !cfg.IsServerMode() || cfg.IsStdioMode() {
		t.Errorf("Expected server mode")
	}
	cfg.Mode = ModeStdio
	if cfg.IsServerMode() || !cfg.IsStdioMode() {
		t.Errorf("Expected stdio mode")
	}
}

func TestConfigGrammar(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RefDesPrefixes = []string{"R", "FB"}

	g, err := cfg.Grammar()
	if err != nil {
		t.Fatalf("Grammar() unexpected error: %v", err)
	}
	if !g.IsRefDes("FB12") || g.IsRefDes("C12") {
		t.Errorf("Grammar() did not use configured prefixes: %v", g.Prefixes())
	}
}

func TestConfigString(t *testing.T) {
	s := DefaultConfig().String()
	for _, want := range []string{"Mode: stdio", "Format: markdown", "LogLevel: info"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %s, missing %q", s, want)
		}
	}
}
