package stats

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/verte-zerg/paranoid/internal/entropy"
	"github.com/verte-zerg/paranoid/internal/model"
)

var printer = message.NewPrinter(language.English)

// ReportOptions controls what RenderAudit prints.
type ReportOptions struct {
	ShowPassword bool
}

// RenderAudit prints every section of an audit result.
func RenderAudit(w io.Writer, res *model.AuditResult, opts ReportOptions) error {
	gen := table{title: "Generation", headers: []string{"Field", "Value"}}
	if opts.ShowPassword {
		gen.add("Password", string(res.Password))
	}
	gen.add("SHA-256", res.SHA256Hex)
	gen.add("Length", printer.Sprintf("%d", res.PasswordLength))
	gen.add("Charset size", printer.Sprintf("%d", res.CharsetSize))
	gen.add("Stage", fmt.Sprintf("%d (%s)", res.Stage, res.Stage))
	if res.RunID != "" {
		gen.add("Run", res.RunID)
	}

	tests := table{
		title:      "Statistical tests",
		headers:    []string{"Test", "Value", "Detail", "Result"},
		rightAlign: map[int]bool{1: true},
	}
	tests.add("Chi-squared", fmt.Sprintf("%.4f", res.ChiSquared), fmt.Sprintf("df=%d p=%.4f", res.ChiDF, res.ChiPValue), verdict(res.ChiPass))
	tests.add("Serial correlation", fmt.Sprintf("%.6f", res.SerialCorrelation), fmt.Sprintf("|r| < %.2f", SerialPassAbsLimit), verdict(res.SerialPass))
	tests.add("Collisions", printer.Sprintf("%d", res.Duplicates), printer.Sprintf("batch=%d", res.BatchSize), verdict(res.CollisionPass))
	tests.add("Runs", printer.Sprintf("%d", res.RunsObserved), fmt.Sprintf("expected %.1f", res.RunsExpected), "info")
	tests.add("Patterns", fmt.Sprintf("%d", res.PatternIssues), "repeats, runs, walks", verdict(res.PatternIssues == 0))

	ent := table{
		title:      "Entropy",
		headers:    []string{"Metric", "Value"},
		rightAlign: map[int]bool{1: true},
	}
	ent.add("Bits per symbol", fmt.Sprintf("%.4f", res.BitsPerChar))
	ent.add("Total entropy (bits)", fmt.Sprintf("%.2f", res.TotalEntropy))
	ent.add("Search space", fmt.Sprintf("10^%.2f", res.Log10SearchSpace))
	for _, ct := range entropy.CrackTimes(res.Log10SearchSpace) {
		ent.add(fmt.Sprintf("Brute force @%.0e/s (years)", ct.Rate), fmt.Sprintf("%.3e", ct.Years))
	}
	ent.add("Memorized secret (>=30)", verdict(res.NISTMemorized))
	ent.add("High value (>=80)", verdict(res.NISTHighValue))
	ent.add("Crypto equivalent (>=128)", verdict(res.NISTCryptoEquiv))
	ent.add("Post-quantum (>=256)", verdict(res.NISTPostQuantum))
	ent.add("Collision probability", fmt.Sprintf("%.3e", res.CollisionProbability))
	ent.add("Passwords for 50% collision", fmt.Sprintf("%.3e", res.PasswordsFor50Pct))
	ent.add("Passwords for 1e-9 collision", fmt.Sprintf("%.3e", res.PasswordsFor1PPB))
	ent.add("Rejection max byte", fmt.Sprintf("%d", res.RejectionMaxValid))
	ent.add("Rejection rate", fmt.Sprintf("%.4f%%", res.RejectionRatePct))

	compliance := table{title: "Compliance", headers: []string{"Framework", "Result"}}
	compliance.add("NIST SP 800-63B", verdict(res.CompliantNIST))
	compliance.add("PCI DSS 4.0", verdict(res.CompliantPCIDSS))
	compliance.add("HIPAA", verdict(res.CompliantHIPAA))
	compliance.add("SOC 2", verdict(res.CompliantSOC2))
	compliance.add("GDPR/ENISA", verdict(res.CompliantGDPR))
	compliance.add("ISO 27001", verdict(res.CompliantISO27001))

	comp := table{
		title:      "Composition",
		headers:    []string{"Lower", "Upper", "Digits", "Symbols"},
		rightAlign: map[int]bool{0: true, 1: true, 2: true, 3: true},
	}
	c := res.Composition
	comp.add(fmt.Sprint(c.Lowercase), fmt.Sprint(c.Uppercase), fmt.Sprint(c.Digits), fmt.Sprint(c.Symbols))

	for _, t := range []*table{&gen, &tests, &ent, &compliance, &comp} {
		if err := t.render(w); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Overall: %s\n", verdict(res.AllPass))
	return err
}

func verdict(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

// HistorySource lists stored audit records.
type HistorySource interface {
	ListAudits(ctx context.Context, filter model.HistoryFilter) ([]model.AuditRecord, error)
}

// HistoryReport contains precomputed data for history rendering.
type HistoryReport struct {
	Records  []model.AuditRecord
	Passed   int
	PTrend   []float64
	Earliest time.Time
	Latest   time.Time
}

// PassRate returns the share of passing audits.
func (r HistoryReport) PassRate() float64 {
	if len(r.Records) == 0 {
		return 0
	}
	return float64(r.Passed) / float64(len(r.Records))
}

// BuildHistory loads and prepares stored audits for rendering.
func BuildHistory(ctx context.Context, src HistorySource, filter model.HistoryFilter, window int) (HistoryReport, error) {
	records, err := src.ListAudits(ctx, filter)
	if err != nil {
		return HistoryReport{}, err
	}
	if filter.Last > 0 && len(records) > filter.Last {
		records = records[len(records)-filter.Last:]
	}
	report := HistoryReport{Records: records}
	pvals := make([]float64, len(records))
	for i, rec := range records {
		if rec.AllPass {
			report.Passed++
		}
		pvals[i] = rec.ChiPValue
	}
	report.PTrend = MovingAverage(pvals, window)
	if len(records) > 0 {
		report.Earliest = records[0].CreatedAt
		report.Latest = records[len(records)-1].CreatedAt
	}
	return report, nil
}

// RenderHistory prints stored audits and a p-value trend line.
func RenderHistory(w io.Writer, report HistoryReport) error {
	if len(report.Records) == 0 {
		_, err := fmt.Fprintln(w, "No audits found.")
		return err
	}
	tbl := table{
		title:      "Audit history",
		headers:    []string{"When", "N", "Len", "Batch", "Chi2 p", "Serial", "Dupes", "Bits", "Patterns", "Result"},
		rightAlign: map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true, 8: true},
	}
	for _, rec := range report.Records {
		tbl.add(
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprint(rec.CharsetSize),
			fmt.Sprint(rec.PasswordLength),
			printer.Sprintf("%d", rec.BatchSize),
			fmt.Sprintf("%.4f", rec.ChiPValue),
			fmt.Sprintf("%.4f", rec.Serial),
			fmt.Sprint(rec.Duplicates),
			fmt.Sprintf("%.1f", rec.TotalEntropy),
			fmt.Sprint(rec.PatternIssues),
			verdict(rec.AllPass),
		)
	}
	if err := tbl.render(w); err != nil {
		return err
	}
	if _, err := printer.Fprintf(w, "Audits: %d  Passed: %d (%.1f%%)\n", len(report.Records), report.Passed, report.PassRate()*100); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Chi2 p trend: [%s]\n", Sparkline(report.PTrend))
	return err
}

// RenderDeviations prints the symbols contributing most to chi-squared.
func RenderDeviations(w io.Writer, devs []Deviation) error {
	if len(devs) == 0 {
		return nil
	}
	tbl := table{
		title:      "Largest deviations",
		headers:    []string{"Symbol", "Observed", "Expected", "Term"},
		rightAlign: map[int]bool{1: true, 2: true, 3: true},
	}
	for _, d := range devs {
		tbl.add(symbolLabel(d.Symbol), printer.Sprintf("%d", d.Observed), fmt.Sprintf("%.1f", d.Expected), fmt.Sprintf("%.3f", d.Term))
	}
	return tbl.render(w)
}
