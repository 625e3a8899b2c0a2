package sync

import (
	"context"
	"errors"
	"time"

	"github.com/eshaffer321/itemize/internal/domain/notes"
)

// annotate writes item notes for every matched pair. A dry run computes the
// notes and records them without writing.
func (o *Orchestrator) annotate(ctx context.Context, opts Options, orderProviders map[string]string, result *Result) error {
	pairs := result.Pairs
	if opts.DryRun {
		for _, pair := range pairs {
			a := Annotation{
				Pair:     pair,
				Provider: orderProviders[pair.Charge.OrderID],
				Note:     notes.Format(pair.Charge.Items),
				Outcome:  AnnotationDryRun,
			}
			o.logger.Debug("[DRY RUN] Would update transaction",
				"transaction_id", pair.Ledger.ID,
				"order_id", pair.Charge.OrderID,
				"note", a.Note,
			)
			result.Annotations = append(result.Annotations, a)
			o.recordAnnotation(result.RunID, a)
		}
		result.TransactionsUpdated = len(pairs)
		return nil
	}

	o.report(opts, Progress{Phase: PhaseUpdatingNotes, Total: len(pairs)})

	wrote := false
	for i, pair := range pairs {
		a := Annotation{
			Pair:     pair,
			Provider: orderProviders[pair.Charge.OrderID],
			Note:     notes.Format(pair.Charge.Items),
		}

		switch {
		case a.Note == "":
			a.Outcome = AnnotationNoItems
			o.logger.Debug("No items found for transaction", "transaction_id", pair.Ledger.ID)

		case !notes.NeedsUpdate(pair.Ledger.Notes, a.Note):
			a.Outcome = AnnotationUnchanged
			o.logger.Debug("Transaction already has correct note", "transaction_id", pair.Ledger.ID)

		default:
			if wrote {
				if err := o.sleep(ctx, o.cfg.WriteDelay); err != nil {
					return failure(ReasonUnknown, "", err)
				}
			}
			wrote = true

			if err := o.updateNotes(ctx, result.RunID, pair.Ledger.ID, a.Note); err != nil {
				a.Outcome = AnnotationFailed
				a.Err = err
				o.logger.Warn("Failed to update transaction",
					"transaction_id", pair.Ledger.ID,
					"order_id", pair.Charge.OrderID,
					"error", err,
				)
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					result.Annotations = append(result.Annotations, a)
					o.recordAnnotation(result.RunID, a)
					return failure(ReasonUnknown, "", err)
				}
			} else {
				a.Outcome = AnnotationUpdated
				result.TransactionsUpdated++
				o.logger.Debug("Updated transaction",
					"transaction_id", pair.Ledger.ID,
					"order_id", pair.Charge.OrderID,
				)
			}
		}

		result.Annotations = append(result.Annotations, a)
		o.recordAnnotation(result.RunID, a)
		o.report(opts, Progress{Phase: PhaseUpdatingNotes, Complete: i + 1, Total: len(pairs)})
	}

	return nil
}

// updateNotes writes a note and logs the call for the audit trail
func (o *Orchestrator) updateNotes(ctx context.Context, runID int64, transactionID, note string) error {
	start := time.Now()
	err := o.ledger.UpdateNotes(ctx, transactionID, note)
	duration := time.Since(start).Milliseconds()

	o.logAPICall(runID, transactionID, "UpdateNotes",
		map[string]string{"id": transactionID, "notes": note}, nil, err, duration)

	return err
}
