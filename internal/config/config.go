package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/schematic-verify/internal/design"
	"github.com/a3tai/schematic-verify/internal/grammar"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Report formats
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatXLSX     = "xlsx"

	// Default values
	DefaultPort           = 8080
	DefaultHost           = "127.0.0.1"
	DefaultLogLevel       = "info"
	DefaultFormat         = FormatMarkdown
	DefaultMaxFileSize    = 100 * 1024 * 1024 // 100MB
	DefaultSampleLimit    = 20
	DefaultUnmatchedLimit = 50

	// EnvPrefix is prepended to every environment variable name
	EnvPrefix = "SCHEMATIC_VERIFY"
)

// Flag names, also used as viper keys and config file keys
const (
	FlagConfig         = "config"
	FlagJSON           = "json"
	FlagPDF            = "pdf"
	FlagReport         = "report"
	FlagFormat         = "format"
	FlagWorkers        = "workers"
	FlagMaxFileSize    = "max-file-size"
	FlagLogLevel       = "log-level"
	FlagSampleLimit    = "sample-limit"
	FlagUnmatchedLimit = "unmatched-limit"
	FlagPrefixes       = "refdes-prefixes"
	FlagNetNoise       = "net-noise"
	FlagComponentsKey  = "components-key"
	FlagNetsKey        = "nets-key"
	FlagTextKey        = "text-key"
	FlagMode           = "mode"
	FlagHost           = "host"
	FlagPort           = "port"
	FlagDir            = "dir"
	FlagAudit          = "audit"
	FlagPages          = "pages"
)

// Config holds all configuration for a verification run or the MCP server
type Config struct {
	// Inputs and outputs
	JSONPath   string
	PDFPath    string
	ReportPath string
	Format     string
	AuditFile  string
	Pages      string

	// Extraction and reconciliation
	Workers        int
	MaxFileSize    int64
	RefDesPrefixes []string
	NetNoise       []string
	ComponentsKey  string
	NetsKey        string
	TextKey        string

	// Report sample sizes
	SampleLimit    int
	UnmatchedLimit int

	// Server configuration
	Mode          string
	Host          string
	Port          int
	BaseDirectory string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	keys := design.DefaultKeys()
	return &Config{
		Format:         DefaultFormat,
		Workers:        runtime.NumCPU(),
		MaxFileSize:    DefaultMaxFileSize,
		RefDesPrefixes: append([]string(nil), grammar.DefaultPrefixes...),
		NetNoise:       append([]string(nil), grammar.DefaultNoise...),
		ComponentsKey:  keys.Components,
		NetsKey:        keys.Nets,
		TextKey:        keys.Text,
		SampleLimit:    DefaultSampleLimit,
		UnmatchedLimit: DefaultUnmatchedLimit,
		Mode:           ModeStdio,
		Host:           DefaultHost,
		Port:           DefaultPort,
		BaseDirectory:  currentDir,
		Version:        "1.0.0",
		ServerName:     "schematic-verify",
		LogLevel:       DefaultLogLevel,
	}
}

// RegisterFlags defines every configuration flag on fs with defaults taken
// from cfg
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String(FlagConfig, "", "Config file (yaml, json or toml)")
	fs.String(FlagJSON, cfg.JSONPath, "Design export JSON file")
	fs.String(FlagPDF, cfg.PDFPath, "Schematic PDF file")
	fs.String(FlagReport, cfg.ReportPath, "Report output file (default stdout)")
	fs.String(FlagFormat, cfg.Format, "Report format: markdown, json, xlsx")
	fs.String(FlagAudit, cfg.AuditFile, "Design audit expectations file")
	fs.String(FlagPages, cfg.Pages, "Pages to verify, e.g. 1-3,7 (default all)")
	fs.Int(FlagWorkers, cfg.Workers, "Pages processed in parallel")
	fs.Int64(FlagMaxFileSize, cfg.MaxFileSize, "Maximum PDF file size in bytes")
	fs.String(FlagLogLevel, cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int(FlagSampleLimit, cfg.SampleLimit, "Matched entries shown per sample list")
	fs.Int(FlagUnmatchedLimit, cfg.UnmatchedLimit, "Unmatched or missing entries shown per list")
	fs.StringSlice(FlagPrefixes, cfg.RefDesPrefixes, "Reference designator prefixes")
	fs.StringSlice(FlagNetNoise, cfg.NetNoise, "Words never reported as net labels")
	fs.String(FlagComponentsKey, cfg.ComponentsKey, "JSON key of the component list")
	fs.String(FlagNetsKey, cfg.NetsKey, "JSON key of the net list")
	fs.String(FlagTextKey, cfg.TextKey, "JSON key of the text primitive list")
	fs.String(FlagMode, cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for SSE server")
	fs.String(FlagHost, cfg.Host, "Server host address (server mode only)")
	fs.Int(FlagPort, cfg.Port, "Server port (server mode only)")
	fs.String(FlagDir, cfg.BaseDirectory, "Directory MCP tools may read from")
}

// Load builds a Config from parsed flags, environment variables and an
// optional config file. Flags win over environment, environment over the
// file, the file over defaults.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if file := v.GetString(FlagConfig); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := DefaultConfig()
	populateConfigFromViper(v, cfg)

	if cfg.BaseDirectory != "" {
		if abs, err := filepath.Abs(cfg.BaseDirectory); err == nil {
			cfg.BaseDirectory = abs
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.JSONPath = v.GetString(FlagJSON)
	cfg.PDFPath = v.GetString(FlagPDF)
	cfg.ReportPath = v.GetString(FlagReport)
	cfg.Format = strings.ToLower(v.GetString(FlagFormat))
	cfg.AuditFile = v.GetString(FlagAudit)
	cfg.Pages = v.GetString(FlagPages)
	cfg.Workers = v.GetInt(FlagWorkers)
	cfg.MaxFileSize = v.GetInt64(FlagMaxFileSize)
	cfg.LogLevel = strings.ToLower(v.GetString(FlagLogLevel))
	cfg.SampleLimit = v.GetInt(FlagSampleLimit)
	cfg.UnmatchedLimit = v.GetInt(FlagUnmatchedLimit)
	cfg.RefDesPrefixes = v.GetStringSlice(FlagPrefixes)
	cfg.NetNoise = v.GetStringSlice(FlagNetNoise)
	cfg.ComponentsKey = v.GetString(FlagComponentsKey)
	cfg.NetsKey = v.GetString(FlagNetsKey)
	cfg.TextKey = v.GetString(FlagTextKey)
	cfg.Mode = v.GetString(FlagMode)
	cfg.Host = v.GetString(FlagHost)
	cfg.Port = v.GetInt(FlagPort)
	cfg.BaseDirectory = v.GetString(FlagDir)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	switch c.Format {
	case FormatMarkdown, FormatJSON, FormatXLSX:
	default:
		return fmt.Errorf("invalid report format: %s (must be one of: markdown, json, xlsx)", c.Format)
	}

	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.SampleLimit <= 0 || c.UnmatchedLimit <= 0 {
		return errors.New("sample limits must be positive")
	}

	if c.ComponentsKey == "" || c.NetsKey == "" || c.TextKey == "" {
		return errors.New("design JSON keys cannot be empty")
	}

	if _, err := c.Grammar(); err != nil {
		return err
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Grammar builds the identifier grammar from the configured vocabulary
func (c *Config) Grammar() (*grammar.Grammar, error) {
	return grammar.New(c.RefDesPrefixes, c.NetNoise)
}

// Keys returns the design JSON key names
func (c *Config) Keys() design.Keys {
	return design.Keys{
		Components: c.ComponentsKey,
		Nets:       c.NetsKey,
		Text:       c.TextKey,
	}
}

// Logger returns a logger for one component. Progress lines are dropped at
// warn and error levels.
func (c *Config) Logger(component string) *log.Logger {
	var out io.Writer = os.Stderr
	if c.LogLevel == "warn" || c.LogLevel == "error" {
		out = io.Discard
	}
	return log.New(out, "["+component+"] ", log.LstdFlags)
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, BaseDirectory: %s, Format: %s, Workers: %d, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.BaseDirectory, c.Format, c.Workers, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in SSE server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
