package leavebalance

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var errNoRow = errors.New("leave balance row not found")

// CarryOverCandidate is one balance row eligible for year-end carry-over.
type CarryOverCandidate struct {
	UserID        string
	LeaveTypeID   string
	RemainingDays decimal.Decimal
}

//go:generate mockgen -source=leavebalance_repo.go -destination=mock/leavebalance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Find(ctx context.Context, userID, leaveTypeID string, year int) (*LeaveBalance, error)
	// FindForUpdate locks the row for the remainder of the transaction.
	// Returns gorm.ErrRecordNotFound when no row exists.
	FindForUpdate(ctx context.Context, userID, leaveTypeID string, year int) (*LeaveBalance, error)
	Insert(ctx context.Context, b *LeaveBalance) error
	UpdateAmounts(ctx context.Context, b *LeaveBalance) error
	ListCarryOverCandidates(ctx context.Context, year int) ([]CarryOverCandidate, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) Find(ctx context.Context, userID, leaveTypeID string, year int) (*LeaveBalance, error) {
	var b LeaveBalance
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("leave_type_id = ?", leaveTypeID).
		Where("year = ?", year).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const balanceColumns = `
	id::text, user_id::text, leave_type_id::text, year,
	total_days, used_days, remaining_days, carried_over_days, adjustment_days,
	adjustment_reason, adjusted_by::text
`

func (r *repository) FindForUpdate(ctx context.Context, userID, leaveTypeID string, year int) (*LeaveBalance, error) {
	query := `
SELECT ` + balanceColumns + `
FROM leave_balances
WHERE user_id = $1 AND leave_type_id = $2 AND year = $3
FOR UPDATE
`
	row := r.queryer().QueryRowContext(ctx, query, userID, leaveTypeID, year)
	b, err := scanBalance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *repository) Insert(ctx context.Context, b *LeaveBalance) error {
	query := `
INSERT INTO leave_balances (
	id, user_id, leave_type_id, year,
	total_days, used_days, remaining_days, carried_over_days, adjustment_days,
	adjustment_reason, adjusted_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`
	_, err := r.execer().ExecContext(ctx, query,
		b.ID, b.UserID, b.LeaveTypeID, b.Year,
		b.TotalDays, b.UsedDays, b.RemainingDays, b.CarriedOverDays, b.AdjustmentDays,
		b.AdjustmentReason, b.AdjustedBy,
	)
	return err
}

func (r *repository) UpdateAmounts(ctx context.Context, b *LeaveBalance) error {
	query := `
UPDATE leave_balances
SET
	total_days = $2,
	used_days = $3,
	remaining_days = $4,
	carried_over_days = $5,
	adjustment_days = $6,
	adjustment_reason = $7,
	adjusted_by = $8,
	updated_at = NOW()
WHERE id = $1
`
	res, err := r.execer().ExecContext(ctx, query,
		b.ID,
		b.TotalDays, b.UsedDays, b.RemainingDays, b.CarriedOverDays, b.AdjustmentDays,
		b.AdjustmentReason, b.AdjustedBy,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errNoRow
	}
	return nil
}

func (r *repository) ListCarryOverCandidates(ctx context.Context, year int) ([]CarryOverCandidate, error) {
	var candidates []CarryOverCandidate
	err := r.db.WithContext(ctx).
		Table("leave_balances").
		Select("leave_balances.user_id::text AS user_id, leave_balances.leave_type_id::text AS leave_type_id, leave_balances.remaining_days AS remaining_days").
		Joins("JOIN leave_types ON leave_types.id = leave_balances.leave_type_id").
		Where("leave_balances.year = ?", year).
		Where("leave_types.carry_over_allowed = true").
		Where("leave_balances.remaining_days > 0").
		Scan(&candidates).Error
	return candidates, err
}

func scanBalance(row *sql.Row) (*LeaveBalance, error) {
	var (
		b           LeaveBalance
		id, user    string
		leaveTypeID string
		adjustedBy  sql.NullString
	)
	err := row.Scan(
		&id, &user, &leaveTypeID, &b.Year,
		&b.TotalDays, &b.UsedDays, &b.RemainingDays, &b.CarriedOverDays, &b.AdjustmentDays,
		&b.AdjustmentReason, &adjustedBy,
	)
	if err != nil {
		return nil, err
	}

	if err := assignUUIDs(&b, id, user, leaveTypeID, adjustedBy); err != nil {
		return nil, err
	}
	return &b, nil
}

func assignUUIDs(b *LeaveBalance, id, user, leaveTypeID string, adjustedBy sql.NullString) error {
	var err error
	if b.ID, err = uuid.Parse(id); err != nil {
		return err
	}
	if b.UserID, err = uuid.Parse(user); err != nil {
		return err
	}
	if b.LeaveTypeID, err = uuid.Parse(leaveTypeID); err != nil {
		return err
	}
	if adjustedBy.Valid {
		parsed, err := uuid.Parse(adjustedBy.String)
		if err != nil {
			return err
		}
		b.AdjustedBy = &parsed
	}
	return nil
}

func (r *repository) queryer() interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
} {
	if r.tx != nil {
		return r.tx
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		panic(err)
	}
	return sqlDB
}

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		panic(err)
	}
	return sqlDB
}
