package leavebalance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeaveBalance is the per (user, leave type, year) ledger row. RemainingDays
// is derived but persisted for query performance; every mutation must go
// through recompute so the row never drifts from the invariant
// remaining = total + carried_over + adjustment - used.
type LeaveBalance struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_balance_user_type_year"`
	LeaveTypeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_balance_user_type_year"`
	Year        int       `gorm:"not null;uniqueIndex:uq_balance_user_type_year"`

	TotalDays       decimal.Decimal `gorm:"type:numeric(6,1);not null;default:0"`
	UsedDays        decimal.Decimal `gorm:"type:numeric(6,1);not null;default:0"`
	RemainingDays   decimal.Decimal `gorm:"type:numeric(6,1);not null;default:0"`
	CarriedOverDays decimal.Decimal `gorm:"type:numeric(6,1);not null;default:0"`
	AdjustmentDays  decimal.Decimal `gorm:"type:numeric(6,1);not null;default:0"`

	AdjustmentReason *string    `gorm:"type:text"`
	AdjustedBy       *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveBalance) TableName() string { return "leave_balances" }

func (b *LeaveBalance) recompute() {
	b.RemainingDays = b.TotalDays.
		Add(b.CarriedOverDays).
		Add(b.AdjustmentDays).
		Sub(b.UsedDays)
}
