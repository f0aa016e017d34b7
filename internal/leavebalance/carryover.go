package leavebalance

import (
	"context"
	"sync/atomic"

	leavebalanceerrors "leaveflow/internal/leavebalance/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CarryOver creates next-year balances for every row of a carry-over-allowed
// leave type, seeding carried_over_days = min(remaining, cap). Each row is an
// independent unit: rows are processed in parallel with per-row transactions,
// and re-running the job is a no-op for rows that already exist.
func (s *service) CarryOver(ctx context.Context, fromYear int) (CarryOverSummary, error) {
	if fromYear < 2000 || fromYear > 2100 {
		return CarryOverSummary{}, leavebalanceerrors.ErrInvalidYear
	}

	candidates, err := s.repo.ListCarryOverCandidates(ctx, fromYear)
	if err != nil {
		s.logger.Error("carry over list candidates failed", zap.Int("from_year", fromYear), zap.Error(err))
		return CarryOverSummary{}, err
	}

	s.logger.Info("carry over started",
		zap.Int("from_year", fromYear),
		zap.Int("candidates", len(candidates)),
	)

	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, c := range candidates {
		c := c
		g.Go(func() error {
			if err := s.carryOverRow(gctx, c, fromYear); err != nil {
				failed.Add(1)
				s.logger.Error("carry over row failed",
					zap.String("user_id", c.UserID),
					zap.String("leave_type_id", c.LeaveTypeID),
					zap.Error(err),
				)
			}
			// Row failures are counted, not fatal: the job must visit every row.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return CarryOverSummary{}, err
	}

	summary := CarryOverSummary{
		FromYear:  fromYear,
		ToYear:    fromYear + 1,
		Processed: len(candidates) - int(failed.Load()),
		Failed:    int(failed.Load()),
	}
	s.logger.Info("carry over finished",
		zap.Int("from_year", fromYear),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *service) carryOverRow(ctx context.Context, c CarryOverCandidate, fromYear int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// GetOrCreateTx seeds next year's row from this year's remaining days;
	// if the row already exists it is returned untouched.
	if _, err := s.GetOrCreateTx(ctx, tx, c.UserID, c.LeaveTypeID, fromYear+1); err != nil {
		return err
	}

	return tx.Commit()
}
