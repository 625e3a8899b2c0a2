package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/eshaffer321/itemize/internal/application/sync"
	"github.com/eshaffer321/itemize/internal/infrastructure/storage"
)

// PrintHeader prints the application header
func PrintHeader(w io.Writer, providerNames []string, dryRun bool) {
	mode := "PRODUCTION"
	if dryRun {
		mode = "DRY-RUN"
	}
	target := "all enabled providers"
	if len(providerNames) > 0 {
		target = strings.Join(providerNames, ", ")
	}
	fmt.Fprintf(w, "itemize: %s (%s mode)\n", target, mode)
}

// PrintSyncSummary prints the sync result summary. stats may be nil.
func PrintSyncSummary(w io.Writer, result *sync.Result, stats *storage.Stats) {
	fmt.Fprintln(w, strings.Repeat("-", 60))

	if !result.StartDate.IsZero() {
		fmt.Fprintf(w, "Range: %s to %s\n",
			result.StartDate.Format("2006-01-02"), result.EndDate.Format("2006-01-02"))
	}
	fmt.Fprintf(w, "Summary: Orders=%d Transactions=%d Matches=%d Updated=%d\n",
		result.OrdersFound,
		result.TransactionsFound,
		result.MatchesFound,
		result.TransactionsUpdated)

	if len(result.SkippedProviders) > 0 {
		names := make([]string, 0, len(result.SkippedProviders))
		for name := range result.SkippedProviders {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(w, "\nSkipped (not signed in):")
		PrintProviderStatus(w, names, result.SkippedProviders)
	}

	// Print failed writes if any
	var failed []sync.Annotation
	for _, a := range result.Annotations {
		if a.Outcome == sync.AnnotationFailed {
			failed = append(failed, a)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, a := range failed {
			fmt.Fprintf(w, "  - %s: %v\n", a.Pair.Ledger.ID, a.Err)
		}
	}

	if stats != nil && stats.TotalRuns > 0 {
		fmt.Fprintf(w, "\nAll-Time Stats: Runs=%d Successful=%d Updated=%d\n",
			stats.TotalRuns,
			stats.SuccessfulRuns,
			stats.TransactionsUpdated)
	}

	switch {
	case !result.Success():
		fmt.Fprintf(w, "\nSync failed: %s\n", result.FailureReason)
	case result.DryRun:
		fmt.Fprintf(w, "\nDry run: %d transactions would be updated.\n", result.TransactionsUpdated)
	default:
		fmt.Fprintln(w, "\nSync completed successfully.")
	}
}
