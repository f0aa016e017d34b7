package directory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleHR       = "hr"
	RoleAdmin    = "admin"
)

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FullName  string     `gorm:"type:varchar(150);not null"`
	Email     string     `gorm:"type:varchar(150);not null;uniqueIndex:uq_users_email"`
	Role      string     `gorm:"type:varchar(30);not null;default:'employee'"`
	Gender    string     `gorm:"type:varchar(10);not null;default:''"`
	ManagerID *uuid.UUID `gorm:"type:uuid"`
	HiredAt   *time.Time `gorm:"type:date"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt
}

func (User) TableName() string { return "users" }
