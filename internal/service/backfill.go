package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-workflow/internal/notes"
	"github.com/spec-kit/complaint-workflow/internal/repository"
)

const backfillPageSize = 100

// BackfillReport summarizes one message table backfill.
type BackfillReport struct {
	Scanned  int
	Imported int
	Messages int
	Skipped  int
}

// BackfillMessages copies the notes blob of every complaint into the message
// table, filling in whatever lines have no row yet. Complete complaints are
// left alone and existing rows are never rewritten, so the job can be re-run.
func BackfillMessages(ctx context.Context, store repository.Store, logger *zap.Logger) (BackfillReport, error) {
	var report BackfillReport
	if store.Messages == nil {
		return report, errors.New("backend has no message table")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	for offset := 0; ; offset += backfillPageSize {
		page, err := store.Complaints.ListWithFilter(ctx, repository.ComplaintFilter{Limit: backfillPageSize, Offset: offset})
		if err != nil {
			return report, err
		}
		for _, c := range page {
			report.Scanned++
			msgs := notes.Import(c.ID, c.Notes, c.UpdatedAt)
			if len(msgs) == 0 {
				report.Skipped++
				continue
			}
			count, err := store.Messages.CountByComplaint(ctx, c.ID)
			if err != nil {
				return report, err
			}
			if count >= len(msgs) {
				report.Skipped++
				continue
			}
			if err := store.Messages.Append(ctx, msgs...); err != nil {
				return report, err
			}
			added := len(msgs) - count
			report.Imported++
			report.Messages += added
			logger.Debug("conversation imported",
				zap.String("complaint_id", c.ID),
				zap.Int("messages", added),
				zap.Int("already_present", count))
		}
		if len(page) < backfillPageSize {
			return report, nil
		}
	}
}
