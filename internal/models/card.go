package models

import "time"

// Card is a task on a board.
type Card struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	BoardID         uint         `gorm:"index;not null" json:"board_id"`
	Board           *Board       `gorm:"foreignKey:BoardID" json:"-"`
	OwnerID         uint         `gorm:"index;not null" json:"owner_id"`
	Owner           *User        `gorm:"foreignKey:OwnerID" json:"-"`
	AssignmentID    *uint        `gorm:"index" json:"assignment_id"`
	Title           string       `gorm:"size:150;not null" json:"title"`
	Content         *string      `gorm:"type:text" json:"content"`
	EstimatedStart  *time.Time   `gorm:"index" json:"estimated_start"`
	EstimatedFinish *time.Time   `gorm:"index" json:"estimated_finish"`
	FinishDate      *time.Time   `json:"finish_date"`
	State           CardState    `gorm:"size:20;not null;default:todo" json:"state"`
	Status          RecordStatus `gorm:"size:20;not null;default:active;index" json:"status"`
	CreatedAt       time.Time    `json:"date_created"`
	UpdatedAt       time.Time    `json:"date_modified"`
}

func (Card) TableName() string { return "cards" }
