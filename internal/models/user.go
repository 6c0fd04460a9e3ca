package models

import (
	"time"
)

// User is an account that can hold board memberships.
// Users are never hard-deleted; Status carries the lifecycle.
type User struct {
	ID                        uint       `gorm:"primaryKey" json:"id"`
	FirstName                 string     `gorm:"size:50;not null" json:"first_name"`
	LastName                  string     `gorm:"size:50;not null" json:"last_name"`
	Email                     string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	EmailVerified             bool       `gorm:"not null;default:false" json:"email_verification"`
	EmailVerifiedAt           *time.Time `json:"email_verification_date"`
	VerificationCode          string     `gorm:"size:50;not null" json:"-"`
	VerificationCodeExpiresAt time.Time  `gorm:"not null" json:"-"`
	PasswordHash              string     `gorm:"size:120;not null" json:"-"`
	Status                    UserStatus `gorm:"size:20;not null;default:active;index" json:"status"`
	CreatedAt                 time.Time  `json:"date_created"`
	UpdatedAt                 time.Time  `json:"date_modified"`
}

func (User) TableName() string { return "users" }

// FullName joins first and last name the way notifications address users.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
