package leavebalance

import (
	"context"
	"database/sql"
	"errors"

	leavebalanceerrors "leaveflow/internal/leavebalance/errors"
	"leaveflow/internal/leavetype"
	"leaveflow/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ledger is the transactional surface the request state machine uses. Every
// method joins the caller's transaction so a status write and its ledger
// mutation commit or roll back together.
type Ledger interface {
	GetOrCreateTx(ctx context.Context, tx *sql.Tx, userID, leaveTypeID string, year int) (*LeaveBalance, error)
	ReserveTx(ctx context.Context, tx *sql.Tx, userID, leaveTypeID string, year int, days decimal.Decimal) (*LeaveBalance, error)
	ReleaseTx(ctx context.Context, tx *sql.Tx, userID, leaveTypeID string, year int, days decimal.Decimal) (*LeaveBalance, error)
}

//go:generate mockgen -source=leavebalance_service.go -destination=mock/leavebalance_service_mock.go -package=mock
type Service interface {
	Ledger
	Get(ctx context.Context, userID, leaveTypeID string, year int) (BalanceResponse, error)
	Adjust(ctx context.Context, actorID string, req AdjustBalanceRequest) (BalanceResponse, error)
	CarryOver(ctx context.Context, fromYear int) (CarryOverSummary, error)
}

type service struct {
	db          *sql.DB
	repo        Repository
	types       leavetype.Registry
	concurrency int
	logger      *zap.Logger
}

const defaultCarryOverConcurrency = 8

func NewService(db *sql.DB, repo Repository, types leavetype.Registry, concurrency int, logger ...*zap.Logger) Service {
	l := zap.L().Named("leavebalance.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leavebalance.service")
	}
	if concurrency < 1 {
		concurrency = defaultCarryOverConcurrency
	}
	return &service{db: db, repo: repo, types: types, concurrency: concurrency, logger: l}
}

func validateKey(userID, leaveTypeID string, year int) error {
	if _, err := uuid.Parse(userID); err != nil {
		return leavebalanceerrors.ErrInvalidUserID
	}
	if _, err := uuid.Parse(leaveTypeID); err != nil {
		return leavebalanceerrors.ErrInvalidLeaveTypeID
	}
	if year < 2000 || year > 2100 {
		return leavebalanceerrors.ErrInvalidYear
	}
	return nil
}

// GetOrCreateTx returns the balance row for (user, type, year), creating it
// under the caller's transaction when absent. Creation seeds the annual
// allocation and any carry-over earned in the prior year. Losing a creation
// race is fine: the unique key makes the insert fail and we lock the row the
// winner created.
func (s *service) GetOrCreateTx(ctx context.Context, tx *sql.Tx, userID, leaveTypeID string, year int) (*LeaveBalance, error) {
	if err := validateKey(userID, leaveTypeID, year); err != nil {
		return nil, err
	}

	qtx := s.repo.WithTx(tx)

	b, err := qtx.FindForUpdate(ctx, userID, leaveTypeID, year)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	lt, err := s.types.GetByID(ctx, leaveTypeID)
	if err != nil {
		return nil, err
	}

	carriedOver := decimal.Zero
	if lt.CarryOverAllowed {
		prior, err := qtx.FindForUpdate(ctx, userID, leaveTypeID, year-1)
		if err == nil && prior.RemainingDays.IsPositive() {
			carriedOver = decimal.Min(prior.RemainingDays, lt.MaxCarryOverDays)
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	b = &LeaveBalance{
		ID:              uuid.New(),
		UserID:          uuid.MustParse(userID),
		LeaveTypeID:     uuid.MustParse(leaveTypeID),
		Year:            year,
		TotalDays:       lt.DaysPerYear,
		UsedDays:        decimal.Zero,
		CarriedOverDays: carriedOver,
		AdjustmentDays:  decimal.Zero,
	}
	b.recompute()

	if err := qtx.Insert(ctx, b); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return qtx.FindForUpdate(ctx, userID, leaveTypeID, year)
		}
		return nil, err
	}

	s.logger.Info("leave balance created",
		zap.String("user_id", userID),
		zap.String("leave_type_id", leaveTypeID),
		zap.Int("year", year),
		zap.String("total_days", b.TotalDays.String()),
		zap.String("carried_over_days", b.CarriedOverDays.String()),
	)
	return b, nil
}

// ReserveTx debits days from the balance. The row stays locked until the
// caller commits, so two concurrent approvals cannot both pass the
// remaining-days check.
func (s *service) ReserveTx(ctx context.Context, tx *sql.Tx, userID, leaveTypeID string, year int, days decimal.Decimal) (*LeaveBalance, error) {
	if !days.IsPositive() {
		return nil, leavebalanceerrors.ErrInvalidDays
	}

	b, err := s.GetOrCreateTx(ctx, tx, userID, leaveTypeID, year)
	if err != nil {
		return nil, err
	}

	if days.GreaterThan(b.RemainingDays) {
		s.logger.Warn("reserve days insufficient balance",
			zap.String("user_id", userID),
			zap.String("leave_type_id", leaveTypeID),
			zap.Int("year", year),
			zap.String("requested", days.String()),
			zap.String("remaining", b.RemainingDays.String()),
		)
		return nil, leavebalanceerrors.ErrInsufficientBalance
	}

	b.UsedDays = b.UsedDays.Add(days)
	b.recompute()

	if err := s.repo.WithTx(tx).UpdateAmounts(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReleaseTx credits days back after an approved cancellation. Used days are
// clamped at zero so a duplicate release can never push the ledger negative.
func (s *service) ReleaseTx(ctx context.Context, tx *sql.Tx, userID, leaveTypeID string, year int, days decimal.Decimal) (*LeaveBalance, error) {
	if !days.IsPositive() {
		return nil, leavebalanceerrors.ErrInvalidDays
	}

	b, err := s.GetOrCreateTx(ctx, tx, userID, leaveTypeID, year)
	if err != nil {
		return nil, err
	}

	b.UsedDays = decimal.Max(decimal.Zero, b.UsedDays.Sub(days))
	b.recompute()

	if err := s.repo.WithTx(tx).UpdateAmounts(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) Get(ctx context.Context, userID, leaveTypeID string, year int) (BalanceResponse, error) {
	if err := validateKey(userID, leaveTypeID, year); err != nil {
		return BalanceResponse{}, err
	}

	b, err := s.repo.Find(ctx, userID, leaveTypeID, year)
	if err == nil {
		return mapToResponse(*b), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return BalanceResponse{}, err
	}

	// First query for this (user, type, year): materialize the row.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BalanceResponse{}, err
	}
	defer tx.Rollback()

	b, err = s.GetOrCreateTx(ctx, tx, userID, leaveTypeID, year)
	if err != nil {
		return BalanceResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return BalanceResponse{}, err
	}

	return mapToResponse(*b), nil
}

func (s *service) Adjust(ctx context.Context, actorID string, req AdjustBalanceRequest) (BalanceResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("adjust balance requested",
		zap.String("request_id", rid),
		zap.String("actor_id", actorID),
		zap.String("user_id", req.UserID),
		zap.String("delta", req.Delta),
	)

	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return BalanceResponse{}, leavebalanceerrors.ErrInvalidUserID
	}
	delta, err := decimal.NewFromString(req.Delta)
	if err != nil || delta.IsZero() {
		return BalanceResponse{}, leavebalanceerrors.ErrInvalidDays
	}
	if req.Reason == "" {
		return BalanceResponse{}, leavebalanceerrors.ErrAdjustmentReasonRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("adjust balance begin tx failed", zap.Error(err))
		return BalanceResponse{}, err
	}
	defer tx.Rollback()

	b, err := s.GetOrCreateTx(ctx, tx, req.UserID, req.LeaveTypeID, req.Year)
	if err != nil {
		return BalanceResponse{}, err
	}

	b.AdjustmentDays = b.AdjustmentDays.Add(delta)
	b.AdjustmentReason = &req.Reason
	b.AdjustedBy = &actorUUID
	// HR override: the result may go negative, but it is always recorded.
	b.recompute()

	if err := s.repo.WithTx(tx).UpdateAmounts(ctx, b); err != nil {
		s.logger.Error("adjust balance persist failed", zap.Error(err))
		return BalanceResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("adjust balance commit failed", zap.Error(err))
		return BalanceResponse{}, err
	}

	s.logger.Info("adjust balance success",
		zap.String("balance_id", b.ID.String()),
		zap.String("delta", delta.String()),
		zap.String("remaining_days", b.RemainingDays.String()),
		zap.String("adjusted_by", actorID),
	)
	return mapToResponse(*b), nil
}

func mapToResponse(b LeaveBalance) BalanceResponse {
	resp := BalanceResponse{
		ID:               b.ID.String(),
		UserID:           b.UserID.String(),
		LeaveTypeID:      b.LeaveTypeID.String(),
		Year:             b.Year,
		TotalDays:        b.TotalDays.String(),
		UsedDays:         b.UsedDays.String(),
		RemainingDays:    b.RemainingDays.String(),
		CarriedOverDays:  b.CarriedOverDays.String(),
		AdjustmentDays:   b.AdjustmentDays.String(),
		AdjustmentReason: b.AdjustmentReason,
	}
	if b.AdjustedBy != nil {
		v := b.AdjustedBy.String()
		resp.AdjustedBy = &v
	}
	return resp
}
