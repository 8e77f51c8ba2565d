package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/a3tai/schematic-verify/internal/config"
	"github.com/a3tai/schematic-verify/internal/design"
	"github.com/a3tai/schematic-verify/internal/faults"
	"github.com/a3tai/schematic-verify/internal/mcp"
	"github.com/a3tai/schematic-verify/internal/report"
	"github.com/a3tai/schematic-verify/internal/verify"
)

// Exit codes
const (
	exitFailure      = 1
	exitInvalidInput = 2
	exitSchema       = 3
)

func exitCode(err error) int {
	switch {
	case faults.IsType(err, faults.TypeInvalidInput):
		return exitInvalidInput
	case faults.IsType(err, faults.TypeSchemaError):
		return exitSchema
	default:
		return exitFailure
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "schematic-verify",
		Short: "Cross-check schematic PDFs against design export JSON",
		Long: `schematic-verify reconciles the text layer of a schematic PDF with the
design export it was generated from. Components and nets are matched,
missing and unmatched identifiers are listed, and glued labels such as
"11FB213SW212" are split using the design's own vocabulary.

Examples:
  schematic-verify verify board.json board.pdf
  schematic-verify verify --json board.json --pdf board.pdf --report out.xlsx
  schematic-verify consistency board.json
  schematic-verify audit board.json --audit expectations.yaml
  schematic-verify segment 11FB213SW212 --json board.json
  schematic-verify serve --dir ./designs`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	config.RegisterFlags(root.PersistentFlags(), config.DefaultConfig())

	root.AddCommand(
		newVerifyCmd(),
		newConsistencyCmd(),
		newAuditCmd(),
		newSegmentCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig builds the configuration from the command's flags, the
// environment and an optional config file
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, faults.Wrap(faults.TypeInvalidInput, err)
	}
	if version != "dev" {
		cfg.Version = version
	}
	return cfg, nil
}

func newService(cmd *cobra.Command) (*config.Config, *verify.Service, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	svc, err := verify.NewService(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, svc, nil
}

// argOr returns the positional argument at i, falling back to value
func argOr(args []string, i int, value string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return value
}

func requireJSON(path string) error {
	if path == "" {
		return faults.New(faults.TypeInvalidInput, "design JSON is required (argument or --json)")
	}
	return nil
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [design.json] [schematic.pdf]",
		Short: "Reconcile a schematic PDF with its design export",
		Long: `Extract the PDF text layer page by page, segment it into candidate
identifiers and reconcile them with the design's components and nets.

The report goes to stdout unless --report is given. Without an explicit
--format the report file extension picks the format.`,
		Args: cobra.MaximumNArgs(2),
		RunE: runVerify,
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, svc, err := newService(cmd)
	if err != nil {
		return err
	}

	req := verify.Request{
		JSONPath:  argOr(args, 0, cfg.JSONPath),
		PDFPath:   argOr(args, 1, cfg.PDFPath),
		AuditFile: cfg.AuditFile,
		Pages:     cfg.Pages,
	}
	if err := requireJSON(req.JSONPath); err != nil {
		return err
	}
	if req.PDFPath == "" {
		return faults.New(faults.TypeInvalidInput, "schematic PDF is required (argument or --pdf)")
	}

	format, err := reportFormat(cmd, cfg)
	if err != nil {
		return err
	}

	env, err := svc.Verify(cmd.Context(), req)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), cfg.ReportPath, format, env, svc.ReportOptions())
}

// reportFormat picks the report format. An explicit --format wins; otherwise
// a recognised report file extension does.
func reportFormat(cmd *cobra.Command, cfg *config.Config) (report.Format, error) {
	if !cmd.Flags().Changed(config.FlagFormat) && cfg.ReportPath != "" {
		if f, err := report.ParseFormat(filepath.Ext(cfg.ReportPath)); err == nil {
			return f, nil
		}
	}
	f, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return "", faults.Wrap(faults.TypeInvalidInput, err)
	}
	return f, nil
}

func writeReport(stdout io.Writer, path string, format report.Format, env *report.Envelope, opts report.Options) error {
	if path == "" {
		if format == report.FormatXLSX {
			return faults.New(faults.TypeInvalidInput, "xlsx reports need a --report file")
		}
		return report.Write(stdout, format, env, opts)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := report.Write(f, format, env, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(stdout, "Report written to %s\n", path)
	return nil
}

func newConsistencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consistency [design.json]",
		Short: "Check declared components against the design's own text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, svc, err := newService(cmd)
			if err != nil {
				return err
			}
			jsonPath := argOr(args, 0, cfg.JSONPath)
			if err := requireJSON(jsonPath); err != nil {
				return err
			}

			c, err := svc.Consistency(jsonPath)
			if err != nil {
				return err
			}
			return report.WriteConsistency(cmd.OutOrStdout(), c, cfg.UnmatchedLimit)
		},
	}
}

// errAuditFailed reports an audit with FAIL findings under --strict
var errAuditFailed = errors.New("design audit has failing findings")

func newAuditCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "audit [design.json]",
		Short: "Audit design hierarchy, pages, coordinates and wiring",
		Long: `Audit the design export against expectations read from --audit
(yaml, json or toml). Without --audit only the default coordinate bounds
are checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, svc, err := newService(cmd)
			if err != nil {
				return err
			}
			jsonPath := argOr(args, 0, cfg.JSONPath)
			if err := requireJSON(jsonPath); err != nil {
				return err
			}

			rep, err := svc.Audit(jsonPath, cfg.AuditFile)
			if err != nil {
				return err
			}
			if err := report.WriteAudit(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
			if strict && rep.Failed() {
				return errAuditFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any finding is FAIL")
	return cmd
}

func newSegmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "segment <text>...",
		Short: "Show how text is split into candidate identifiers",
		Long: `Split text the way PDF page text is split and print each candidate.
With --json the design's components and nets guide segmentation.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, svc, err := newService(cmd)
			if err != nil {
				return err
			}

			var idx *design.Index
			if cfg.JSONPath != "" {
				if idx, err = svc.LoadDesign(cfg.JSONPath); err != nil {
					return err
				}
			}

			segs, err := svc.SegmentText(strings.Join(args, " "), idx)
			if err != nil {
				return err
			}
			return report.WriteSegmentations(cmd.OutOrStdout(), segs)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool server",
		Long: `Serve the verification tools over the Model Context Protocol.
--mode stdio speaks MCP on standard I/O; --mode server serves SSE on
--host:--port. Tool paths are confined to --dir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, svc, err := newService(cmd)
			if err != nil {
				return err
			}
			setupLogging(cfg)

			if cfg.IsDebug() {
				cfg.Logger("Main").Printf("Starting with configuration: %s", cfg.String())
			}

			server, err := mcp.NewServer(cfg, svc)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			err = server.Run(cmd.Context())
			if err != nil && cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}
