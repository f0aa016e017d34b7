package leaverequest

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LeaveRequest struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RequestNumber string    `gorm:"type:varchar(20);not null;uniqueIndex:uq_leave_requests_number"`
	UserID        uuid.UUID `gorm:"type:uuid;not null"`
	LeaveTypeID   uuid.UUID `gorm:"type:uuid;not null"`

	StartDate       time.Time       `gorm:"type:date;not null"`
	EndDate         time.Time       `gorm:"type:date;not null"`
	Duration        Duration        `gorm:"type:varchar(20);not null;default:'full_day'"`
	CustomStartTime *string         `gorm:"type:varchar(5)"`
	CustomEndTime   *string         `gorm:"type:varchar(5)"`
	TotalDays       decimal.Decimal `gorm:"type:numeric(6,1);not null"`

	Reason                string  `gorm:"type:text;not null;default:''"`
	AttachmentRef         *string `gorm:"type:text"`
	EmergencyContactName  *string `gorm:"type:varchar(150)"`
	EmergencyContactPhone *string `gorm:"type:varchar(30)"`
	AvailabilityTag       *string `gorm:"type:varchar(50)"`

	Status Status `gorm:"type:varchar(30);not null;default:'pending_manager'"`
	// Version guards concurrent decisions: every write bumps it and carries
	// the value it read, so the slower of two racing writers gets zero rows.
	Version int `gorm:"not null;default:1"`

	// ManagerID is snapshotted at submission so a later reporting-line change
	// cannot reroute an in-flight request.
	ManagerID        *uuid.UUID `gorm:"type:uuid"`
	ManagerDecidedBy *uuid.UUID `gorm:"type:uuid"`
	ManagerDecidedAt *time.Time
	ManagerComments  *string `gorm:"type:text"`

	HRDecidedBy *uuid.UUID `gorm:"type:uuid"`
	HRDecidedAt *time.Time
	HRComments  *string `gorm:"type:text"`

	AppealReason *string `gorm:"type:text"`
	AppealedAt   *time.Time

	CancellationReason      *string `gorm:"type:text"`
	CancellationRequestedAt *time.Time
	CancellationDecidedBy   *uuid.UUID `gorm:"type:uuid"`
	CancellationDecidedAt   *time.Time
	CancellationHRComments  *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt
}

func (LeaveRequest) TableName() string { return "leave_requests" }

// BalanceYear is the ledger year a request draws from. Requests spanning a
// year boundary debit the year they start in.
func (r LeaveRequest) BalanceYear() int { return r.StartDate.Year() }
