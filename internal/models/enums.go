package models

// UserStatus is the lifecycle of a user account.
type UserStatus string

const (
	UserActive  UserStatus = "active"
	UserPassive UserStatus = "passive"
	UserDeleted UserStatus = "deleted"
)

// BoardStatus is the lifecycle of a board. Deleted is terminal.
type BoardStatus string

const (
	BoardActive   BoardStatus = "active"
	BoardArchived BoardStatus = "archived"
	BoardDeleted  BoardStatus = "deleted"
)

func (s BoardStatus) Valid() bool {
	switch s {
	case BoardActive, BoardArchived, BoardDeleted:
		return true
	}
	return false
}

// BoardRole is a member's role on a board.
type BoardRole string

const (
	RoleOwner  BoardRole = "owner"
	RoleMember BoardRole = "member"
)

// AllRoles is the default role set accepted by membership checks.
var AllRoles = []BoardRole{RoleOwner, RoleMember}

func (r BoardRole) Valid() bool {
	return r == RoleOwner || r == RoleMember
}

// ApprovalState tracks whether a membership is in effect.
// Only approved memberships grant access.
type ApprovalState string

const (
	ApprovalApproved ApprovalState = "approved"
	ApprovalWaiting  ApprovalState = "waiting"
	ApprovalDeclined ApprovalState = "declined"
)

// CardState is the workflow position of a card.
type CardState string

const (
	CardTodo       CardState = "todo"
	CardInProgress CardState = "in_progress"
	CardInReview   CardState = "in_review"
	CardDone       CardState = "done"
)

func (s CardState) Valid() bool {
	switch s {
	case CardTodo, CardInProgress, CardInReview, CardDone:
		return true
	}
	return false
}

// RecordStatus is the soft-delete flag of a card.
type RecordStatus string

const (
	RecordActive  RecordStatus = "active"
	RecordDeleted RecordStatus = "deleted"
)
