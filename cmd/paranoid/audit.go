package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/paranoid/internal/audit"
	"github.com/verte-zerg/paranoid/internal/auditui"
	"github.com/verte-zerg/paranoid/internal/charset"
	"github.com/verte-zerg/paranoid/internal/compliance"
	"github.com/verte-zerg/paranoid/internal/entropy"
	"github.com/verte-zerg/paranoid/internal/metrics"
	"github.com/verte-zerg/paranoid/internal/model"
	"github.com/verte-zerg/paranoid/internal/platform"
	"github.com/verte-zerg/paranoid/internal/server"
	"github.com/verte-zerg/paranoid/internal/stats"
	"github.com/verte-zerg/paranoid/internal/store"
	"github.com/verte-zerg/paranoid/internal/wire"
)

// highTermThreshold is the chi-squared term above which a histogram bar is
// highlighted (the 0.05 critical value for one degree of freedom).
const highTermThreshold = 3.841

const topDeviations = 5

var (
	auditCharset      string
	auditLength       int
	auditBatchSize    int
	auditFormat       string
	auditTUI          bool
	auditSave         bool
	auditPlot         bool
	auditShowPassword bool
	auditPolicy       string

	historySince  string
	historyLast   int
	historyWindow int

	benchRuns     int
	benchParallel int

	complianceCharset string
	complianceLength  int
	compliancePolicy  string
	complianceJSON    bool

	schemaJSON bool

	serveAddr   string
	servePolicy string
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Generate a password and audit the generator",
		Args:  cobra.NoArgs,
		RunE:  runAuditCmd,
	}
	cmd.Flags().StringVarP(&auditCharset, "charset", "c", defaultCharset, "charset or preset name")
	cmd.Flags().IntVarP(&auditLength, "length", "l", defaultLength, "password length")
	cmd.Flags().IntVarP(&auditBatchSize, "batch-size", "b", defaultBatchSize, "passwords in the collision batch")
	cmd.Flags().StringVarP(&auditFormat, "format", "f", "text", "output format: text, json or wire")
	cmd.Flags().BoolVar(&auditTUI, "tui", false, "show live progress in a terminal UI")
	cmd.Flags().BoolVar(&auditSave, "save", false, "store the audit summary in history")
	cmd.Flags().BoolVar(&auditPlot, "plot", false, "print the symbol frequency histogram")
	cmd.Flags().BoolVar(&auditShowPassword, "show-password", false, "include the password in the output")
	cmd.Flags().StringVar(&auditPolicy, "policy", "", "YAML file with custom compliance frameworks")
	return cmd
}

func runAuditCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "charset", &auditCharset, s.file.Generate.Charset)
	applyIntConfig(cmd, "length", &auditLength, s.file.Generate.Length)
	applyIntConfig(cmd, "batch-size", &auditBatchSize, s.file.Audit.BatchSize)
	applyBoolConfig(cmd, "save", &auditSave, s.file.Audit.Save)

	switch auditFormat {
	case "text", "json", "wire":
	default:
		return fmt.Errorf("%w: unknown --format %q", audit.ErrInvalidArgument, auditFormat)
	}
	custom, err := s.customFrameworks(auditPolicy)
	if err != nil {
		return err
	}

	cs := charset.Resolve(auditCharset)
	req := model.AuditRequest{Charset: cs, Length: auditLength, BatchSize: auditBatchSize}
	logger := newLogger()
	opts := []audit.Option{
		audit.WithLogger(logger),
		audit.WithGeneratorOptions(s.generatorOptions()...),
	}

	var detail audit.Detail
	if auditTUI {
		ui := auditui.NewModel(auditui.AuditorRunner(platform.NewSystem(), req, opts...), custom)
		program := tea.NewProgram(ui, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run audit TUI: %w", err)
		}
		detail, err = ui.Detail()
	} else {
		detail, err = audit.New(platform.NewSystem(), opts...).RunDetailed(req)
	}
	if err != nil {
		if detail.Result != nil {
			logErrf("audit stopped at stage %d (%s)\n", detail.Result.Stage, detail.Result.Stage)
		}
		return err
	}
	if detail.Result == nil {
		// The TUI was closed before the audit finished.
		logErrln("audit cancelled")
		return nil
	}
	res := detail.Result
	defer platform.Wipe(res.Password)

	if auditSave {
		if err := saveAudit(cmd.Context(), s.dbPath(), res); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	switch auditFormat {
	case "json":
		return writeAuditJSON(w, res, auditShowPassword)
	case "wire":
		if _, err := w.Write(wire.Encode(nil, res)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := stats.RenderAudit(w, res, stats.ReportOptions{ShowPassword: auditShowPassword}); err != nil {
		return fmt.Errorf("failed to render audit: %w", err)
	}
	if len(custom) > 0 {
		if err := writeVerdicts(w, compliance.CheckAll(custom, compliance.SubjectOf(res))); err != nil {
			return err
		}
	}
	if auditPlot {
		normalized, err := resolveCharset(auditCharset)
		if err != nil {
			return err
		}
		if err := stats.PlotFrequencies(w, detail.Chi, normalized, 0, highTermThreshold); err != nil {
			return fmt.Errorf("failed to plot frequencies: %w", err)
		}
		if err := stats.RenderDeviations(w, stats.TopDeviations(detail.Chi, topDeviations)); err != nil {
			return fmt.Errorf("failed to render deviations: %w", err)
		}
	}
	return nil
}

type auditJSON struct {
	Password string `json:"password,omitempty"`
	*model.AuditResult
}

func writeAuditJSON(w io.Writer, res *model.AuditResult, showPassword bool) error {
	out := auditJSON{AuditResult: res}
	if showPassword {
		out.Password = string(res.Password)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func writeVerdicts(w io.Writer, verdicts []compliance.Verdict) error {
	if _, err := fmt.Fprintln(w, "Custom frameworks"); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	for _, v := range verdicts {
		result := "FAIL"
		if v.Compliant {
			result = "PASS"
		}
		line := fmt.Sprintf("%-4s %s", result, v.Framework.Name)
		if len(v.Failures) > 0 {
			line += fmt.Sprintf(" (%s)", strings.Join(v.Failures, "; "))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func saveAudit(ctx context.Context, path string, res *model.AuditResult) error {
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	if _, err := st.InsertAudit(ctx, store.RecordFromResult(res, time.Now())); err != nil {
		return fmt.Errorf("failed to save audit: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored audits",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N audits")
	cmd.Flags().IntVar(&historyWindow, "window", defaultTrendWindow, "moving average window for the p-value trend")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	var filter model.HistoryFilter
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	filter.Last = historyLast

	st, err := store.Open(s.dbPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	report, err := stats.BuildHistory(cmd.Context(), st, filter, historyWindow)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	return stats.RenderHistory(cmd.OutOrStdout(), report)
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run independent audits concurrently and report pass rates",
		Args:  cobra.NoArgs,
		RunE:  runBenchCmd,
	}
	cmd.Flags().StringVarP(&auditCharset, "charset", "c", defaultCharset, "charset or preset name")
	cmd.Flags().IntVarP(&auditLength, "length", "l", defaultLength, "password length")
	cmd.Flags().IntVarP(&auditBatchSize, "batch-size", "b", defaultBatchSize, "passwords in the collision batch")
	cmd.Flags().IntVar(&benchRuns, "runs", defaultBenchRuns, "number of audits")
	cmd.Flags().IntVar(&benchParallel, "parallel", defaultBenchPar, "audits in flight")
	return cmd
}

// benchTally counts passing component tests across bench runs.
type benchTally struct {
	chi, serial, collision, patterns, all atomic.Int64
}

func (t *benchTally) add(res *model.AuditResult) {
	if res.ChiPass {
		t.chi.Add(1)
	}
	if res.SerialPass {
		t.serial.Add(1)
	}
	if res.CollisionPass {
		t.collision.Add(1)
	}
	if res.PatternIssues == 0 {
		t.patterns.Add(1)
	}
	if res.AllPass {
		t.all.Add(1)
	}
}

func runBenchCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "charset", &auditCharset, s.file.Generate.Charset)
	applyIntConfig(cmd, "length", &auditLength, s.file.Generate.Length)
	applyIntConfig(cmd, "batch-size", &auditBatchSize, s.file.Audit.BatchSize)
	if benchRuns <= 0 || benchParallel <= 0 {
		return fmt.Errorf("%w: --runs and --parallel must be > 0", audit.ErrInvalidArgument)
	}

	logger := newLogger()
	auditor := audit.New(platform.NewSystem(),
		audit.WithLogger(logger),
		audit.WithGeneratorOptions(s.generatorOptions()...),
	)
	req := model.AuditRequest{
		Charset:   charset.Resolve(auditCharset),
		Length:    auditLength,
		BatchSize: auditBatchSize,
	}

	var tally benchTally
	start := time.Now()
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(benchParallel)
	for i := 0; i < benchRuns; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := auditor.Run(req)
			if err != nil {
				return err
			}
			platform.Wipe(res.Password)
			tally.add(res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	rate := func(n int64) float64 { return float64(n) / float64(benchRuns) * 100 }
	w := cmd.OutOrStdout()
	lines := []string{
		fmt.Sprintf("Runs: %d  Parallel: %d  Elapsed: %s", benchRuns, benchParallel, elapsed.Round(time.Millisecond)),
		fmt.Sprintf("Chi-squared        %6.1f%%", rate(tally.chi.Load())),
		fmt.Sprintf("Serial correlation %6.1f%%", rate(tally.serial.Load())),
		fmt.Sprintf("Collisions         %6.1f%%", rate(tally.collision.Load())),
		fmt.Sprintf("Patterns           %6.1f%%", rate(tally.patterns.Load())),
		fmt.Sprintf("Overall            %6.1f%%", rate(tally.all.Load())),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newComplianceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compliance",
		Short: "Check a charset and length against compliance frameworks",
		Args:  cobra.NoArgs,
		RunE:  runComplianceCmd,
	}
	cmd.Flags().StringVarP(&complianceCharset, "charset", "c", defaultCharset, "charset or preset name")
	cmd.Flags().IntVarP(&complianceLength, "length", "l", defaultLength, "password length")
	cmd.Flags().StringVar(&compliancePolicy, "policy", "", "YAML file with custom compliance frameworks")
	cmd.Flags().BoolVar(&complianceJSON, "json", false, "print verdicts as JSON")
	return cmd
}

// runComplianceCmd generates one password and evaluates every framework on
// it. Composition depends on the sampled password, so repeated calls can
// differ for frameworks with class requirements.
func runComplianceCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "charset", &complianceCharset, s.file.Generate.Charset)
	applyIntConfig(cmd, "length", &complianceLength, s.file.Generate.Length)
	custom, err := s.customFrameworks(compliancePolicy)
	if err != nil {
		return err
	}
	cs, err := resolveCharset(complianceCharset)
	if err != nil {
		return err
	}
	pw, err := audit.New(platform.NewSystem(), audit.WithGeneratorOptions(s.generatorOptions()...)).
		Generator().Generate(cs, complianceLength)
	if err != nil {
		return err
	}
	subject := compliance.Subject{
		Length:       len(pw),
		TotalEntropy: entropy.NewProof(len(cs), len(pw)).TotalEntropy,
		Composition:  charset.Compose(pw),
	}
	platform.Wipe(pw)

	verdicts := compliance.CheckAll(append(compliance.Builtins(), custom...), subject)
	w := cmd.OutOrStdout()
	if complianceJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(verdicts); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if _, err := fmt.Fprintf(w, "Length %d, %.1f bits, composition %+v\n", subject.Length, subject.TotalEntropy, subject.Composition); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return writeVerdicts(w, verdicts)
}

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the audit result wire schema",
		Args:  cobra.NoArgs,
		RunE:  runSchemaCmd,
	}
	cmd.Flags().BoolVar(&schemaJSON, "json", false, "print the schema as JSON")
	return cmd
}

func runSchemaCmd(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	if schemaJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		payload := struct {
			Version int          `json:"version"`
			Fields  []wire.Field `json:"fields"`
		}{Version: wire.SchemaVersion, Fields: wire.Fields()}
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if _, err := fmt.Fprintf(w, "schema version %d\n", wire.SchemaVersion); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	for _, f := range wire.Fields() {
		if _, err := fmt.Fprintf(w, "%3d  %-24s %s\n", f.Number, f.Name, f.Kind); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&servePolicy, "policy", "", "YAML file with custom compliance frameworks")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "addr", &serveAddr, s.file.Server.Addr)
	custom, err := s.customFrameworks(servePolicy)
	if err != nil {
		return err
	}

	logger := newLogger()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	auditor := audit.New(platform.NewSystem(),
		audit.WithLogger(logger),
		audit.WithRecorder(m),
		audit.WithGeneratorOptions(s.generatorOptions()...),
	)
	handler := server.New(auditor,
		server.WithLogger(logger),
		server.WithMetrics(m, reg),
		server.WithFrameworks(custom),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Serve(ctx, server.NewHTTPServer(serveAddr, handler.Routes()), logger)
}
