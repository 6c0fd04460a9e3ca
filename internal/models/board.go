package models

import "time"

// Board groups cards. Ownership is expressed through BoardMember rows.
type Board struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Name        string      `gorm:"size:100;not null" json:"name"`
	Description *string     `gorm:"type:text" json:"description"`
	Status      BoardStatus `gorm:"size:20;not null;default:active;index" json:"status"`
	CreatedAt   time.Time   `json:"date_created"`
	UpdatedAt   time.Time   `json:"date_modified"`
}

func (Board) TableName() string { return "boards" }
