package leavetype

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	GenderAny    = ""
	GenderMale   = "male"
	GenderFemale = "female"
)

type LeaveType struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code string    `gorm:"type:varchar(30);not null;uniqueIndex:uq_leave_types_code"`
	Name string    `gorm:"type:varchar(100);not null"`

	DaysPerYear    decimal.Decimal `gorm:"type:numeric(6,1);not null;default:0"`
	IsPaid         bool            `gorm:"not null;default:true"`
	GenderSpecific string          `gorm:"type:varchar(10);not null;default:''"`

	RequiresMedicalCert      bool            `gorm:"not null;default:false"`
	MedicalCertDaysThreshold decimal.Decimal `gorm:"type:numeric(6,1);not null;default:0"`

	CarryOverAllowed bool            `gorm:"not null;default:false"`
	MaxCarryOverDays decimal.Decimal `gorm:"type:numeric(6,1);not null;default:0"`

	RequiresManagerApproval bool     `gorm:"not null;default:true"`
	RequiresHRApproval      bool     `gorm:"not null;default:true"`
	CanApproveRoles         []string `gorm:"type:jsonb;serializer:json;not null;default:'[]'"`
	SkipManagerForRoles     []string `gorm:"type:jsonb;serializer:json;not null;default:'[]'"`

	IsActive bool `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveType) TableName() string { return "leave_types" }

// SkipsManagerFor reports whether requests from the given role start at the
// HR stage instead of the manager stage.
func (t LeaveType) SkipsManagerFor(role string) bool {
	for _, r := range t.SkipManagerForRoles {
		if r == role {
			return true
		}
	}
	return false
}

// EligibleForGender reports whether a requester with the recorded gender may
// use this leave type.
func (t LeaveType) EligibleForGender(gender string) bool {
	return t.GenderSpecific == GenderAny || t.GenderSpecific == gender
}
