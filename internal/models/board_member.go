package models

import "time"

// BoardMember represents a user's membership and role within a board.
// The unique index on (board_id, user_id) keeps one row per pair even
// when two requests race on adding the same member.
type BoardMember struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	BoardID   uint          `gorm:"uniqueIndex:idx_board_user;not null" json:"board_id"`
	Board     *Board        `gorm:"foreignKey:BoardID" json:"board,omitempty"`
	UserID    uint          `gorm:"uniqueIndex:idx_board_user;not null;index" json:"user_id"`
	User      *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      BoardRole     `gorm:"size:20;not null;default:member" json:"role"`
	State     ApprovalState `gorm:"size:20;not null;default:waiting" json:"status"`
	CreatedAt time.Time     `json:"date_created"`
	UpdatedAt time.Time     `json:"date_modified"`
}

func (BoardMember) TableName() string { return "board_members" }
