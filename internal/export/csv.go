// Package export writes sync reports for use outside the app.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	appsync "github.com/eshaffer321/itemize/internal/application/sync"
)

// CSVWriter writes the matched pairs of a sync run as CSV.
type CSVWriter struct {
	IncludeHeader bool
}

// WriteToFile writes the report to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, result *appsync.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	if err := w.Write(f, result); err != nil {
		return err
	}
	return f.Close()
}

// Write writes one row per annotated pair. Pairs that never reached the
// annotation pass are written with an empty outcome.
func (w *CSVWriter) Write(out io.Writer, result *appsync.Result) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		for _, row := range metadata(result) {
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	header := []string{"Transaction ID", "Transaction Date", "Amount", "Order ID", "Charge Date", "Provider", "Items", "Outcome", "Note"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, a := range rows(result) {
		row := []string{
			a.Pair.Ledger.ID,
			a.Pair.Ledger.Date,
			formatAmount(a.Pair.Ledger.Amount),
			a.Pair.Charge.OrderID,
			a.Pair.Charge.Date,
			a.Provider,
			strconv.Itoa(len(a.Pair.Charge.Items)),
			string(a.Outcome),
			a.Note,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// metadata returns the comment rows written above the header
func metadata(result *appsync.Result) [][]string {
	var out [][]string
	if result.RunID != 0 {
		out = append(out, []string{"# Run", strconv.FormatInt(result.RunID, 10)})
	}
	if !result.StartDate.IsZero() {
		out = append(out, []string{"# Range", result.StartDate.Format("2006-01-02") + " to " + result.EndDate.Format("2006-01-02")})
	}
	return append(out, []string{"# Dry Run", strconv.FormatBool(result.DryRun)})
}

func rows(result *appsync.Result) []appsync.Annotation {
	if len(result.Annotations) > 0 {
		return result.Annotations
	}
	out := make([]appsync.Annotation, len(result.Pairs))
	for i, p := range result.Pairs {
		out[i] = appsync.Annotation{Pair: p}
	}
	return out
}

func formatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}
