// Package report renders prediction results for the console and for JSON
// report files, and formats the currency and percentage values shown to
// users.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"loan-approval/internal/applicant"
	"loan-approval/internal/ml"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CurrencySymbol prefixes every formatted loan value.
const CurrencySymbol = "₹"

var printer = message.NewPrinter(language.English)

// FormatCurrency renders v with thousands grouping and two decimals, e.g.
// "₹ 1,234,567.89".
func FormatCurrency(v float64) string {
	return CurrencySymbol + " " + printer.Sprintf("%v", number.Decimal(v,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// FormatPercent renders a probability in [0,1] as "87.00%".
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}

// Status returns APPROVED or REJECTED.
func Status(res ml.Result) string {
	if res.Approved {
		return "APPROVED"
	}
	return "REJECTED"
}

// Reporter writes prediction results
type Reporter struct {
	out io.Writer
}

// NewReporter creates a reporter that prints to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// PrintBanner prints the application header.
func (r *Reporter) PrintBanner() {
	fmt.Fprintln(r.out, "============================")
	fmt.Fprintln(r.out, "   Loan Approval System")
	fmt.Fprintln(r.out, "============================")
}

// PrintSampleNotice announces that the built-in applicant is used.
func (r *Reporter) PrintSampleNotice() {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "--- Using Sample Applicant Data ---")
}

// PrintResult prints the decision block. The recommended value line is only
// printed for approved applicants.
func (r *Reporter) PrintResult(res ml.Result) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "------ RESULT ------")
	fmt.Fprintf(r.out, "Approval Probability : %s\n", FormatPercent(res.Probability))
	fmt.Fprintf(r.out, "Loan Status : %s\n", Status(res))
	if res.Approved && res.RecommendedValue != nil {
		fmt.Fprintf(r.out, "Recommended Loan Value : %.2f\n", *res.RecommendedValue)
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "---------------------")
}

// WriteJSON writes the applicant and its result to path, creating parent
// directories as needed.
func (r *Reporter) WriteJSON(path string, rec applicant.Record, res ml.Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	report := map[string]interface{}{
		"applicant": rec,
		"result": map[string]interface{}{
			"approved":          res.Approved,
			"status":            Status(res),
			"probability":       res.Probability,
			"threshold":         res.Threshold,
			"recommended_value": res.RecommendedValue,
		},
		"model_versions": map[string]string{
			ml.KindClassifier: res.ClassifierVersion,
			ml.KindRegressor:  res.RegressorVersion,
		},
		"generated_at": time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", path).Msg("JSON report generated")
	return nil
}
