package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coyote/taskboard/internal/apperr"
	"github.com/coyote/taskboard/internal/models"
	"gorm.io/gorm"
)

// BoardService is the board registry. Every method takes the acting user
// and resolves their membership before reading or mutating anything.
type BoardService struct {
	db      *gorm.DB
	members *MembershipService
	users   *UserService
}

func NewBoardService(db *gorm.DB, members *MembershipService, users *UserService) *BoardService {
	return &BoardService{db: db, members: members, users: users}
}

type CreateBoardRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description"`
}

type BoardListRequest struct {
	PageRequest
	Search string           `form:"search"`
	Role   models.BoardRole `form:"role" binding:"omitempty,board_role"`
}

// BoardListItem is a board together with the caller's role on it.
type BoardListItem struct {
	ID          uint               `json:"id"`
	Name        string             `json:"name"`
	Description *string            `json:"description"`
	Status      models.BoardStatus `json:"status"`
	Role        models.BoardRole   `json:"role"`
	CreatedAt   time.Time          `json:"date_created"`
	UpdatedAt   time.Time          `json:"date_modified"`
}

// BoardPatch is a partial board update. Status may only move between
// active and archived; deletion goes through Delete.
type BoardPatch struct {
	Name        Field[string]             `json:"name"`
	Description Field[*string]            `json:"description"`
	Status      Field[models.BoardStatus] `json:"status"`
}

func (p *BoardPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Description.Set && !p.Status.Set
}

func (p *BoardPatch) Validate() error {
	if p.Name.Set && (p.Name.Null || strings.TrimSpace(p.Name.Value) == "") {
		return apperr.Validation("name must not be empty")
	}
	if p.Name.Set && len(p.Name.Value) > 100 {
		return apperr.Validation("name must be at most 100 characters")
	}
	if p.Status.Set {
		if p.Status.Null || (p.Status.Value != models.BoardActive && p.Status.Value != models.BoardArchived) {
			return apperr.Validation("status must be active or archived")
		}
	}
	return nil
}

func (p *BoardPatch) updates() map[string]interface{} {
	updates := make(map[string]interface{})
	if p.Name.Set {
		updates["name"] = p.Name.Value
	}
	if p.Description.Set {
		updates["description"] = p.Description.Value
	}
	if p.Status.Set {
		updates["status"] = p.Status.Value
	}
	return updates
}

var visibleBoardStatuses = []models.BoardStatus{models.BoardActive, models.BoardArchived}

// Create stores a board and the creator's approved owner membership in one
// transaction. Board names are not unique.
func (s *BoardService) Create(ctx context.Context, actorID uint, req *CreateBoardRequest) (*models.Board, error) {
	board := models.Board{
		Name:        req.Name,
		Description: req.Description,
		Status:      models.BoardActive,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&board).Error; err != nil {
			return fmt.Errorf("create board: %w", err)
		}
		owner := models.BoardMember{
			BoardID: board.ID,
			UserID:  actorID,
			Role:    models.RoleOwner,
			State:   models.ApprovalApproved,
		}
		if err := tx.Create(&owner).Error; err != nil {
			return fmt.Errorf("create owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &board, nil
}

// List returns the non-deleted boards on which the actor holds an approved
// membership, in insertion order. Search is a case-insensitive substring
// match on the name; Role restricts to boards where the actor has that role.
func (s *BoardService) List(ctx context.Context, actorID uint, req *BoardListRequest) (*Page[BoardListItem], error) {
	page := req.PageRequest.normalize()

	query := s.db.WithContext(ctx).
		Table("boards").
		Joins("JOIN board_members ON board_members.board_id = boards.id").
		Where("board_members.user_id = ? AND board_members.state = ?", actorID, models.ApprovalApproved).
		Where("boards.status <> ?", models.BoardDeleted)

	if search := strings.TrimSpace(req.Search); search != "" {
		query = query.Where("LOWER(boards.name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if req.Role != "" {
		query = query.Where("board_members.role = ?", req.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count boards: %w", err)
	}

	var items []BoardListItem
	err := query.
		Select("boards.id, boards.name, boards.description, boards.status, board_members.role, " +
			"boards.created_at, boards.updated_at").
		Order("boards.id ASC").
		Offset(page.offset()).
		Limit(page.PageSize).
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}

	return newPage(page, total, items), nil
}

// Get returns a board the actor is an approved member of.
func (s *BoardService) Get(ctx context.Context, actorID, boardID uint) (*models.Board, error) {
	board, err := s.load(ctx, boardID, visibleBoardStatuses...)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.Resolve(ctx, board.ID, actorID); err != nil {
		return nil, err
	}
	return board, nil
}

// Update applies patch to a board the actor owns. An empty patch succeeds
// without writing.
func (s *BoardService) Update(ctx context.Context, actorID, boardID uint, patch *BoardPatch) (*models.Board, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	board, err := s.load(ctx, boardID, visibleBoardStatuses...)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.Resolve(ctx, board.ID, actorID, models.RoleOwner); err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		return board, nil
	}
	if err := s.db.WithContext(ctx).Model(board).Updates(patch.updates()).Error; err != nil {
		return nil, fmt.Errorf("update board: %w", err)
	}
	return s.load(ctx, board.ID, visibleBoardStatuses...)
}

// Delete soft-deletes a board the actor owns. Deleting a deleted board
// fails with ErrBoardAlreadyDeleted.
func (s *BoardService) Delete(ctx context.Context, actorID, boardID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		board, err := loadBoard(tx, boardID, models.BoardActive, models.BoardArchived, models.BoardDeleted)
		if err != nil {
			return err
		}
		if _, err := resolveMember(tx, board.ID, actorID, []models.BoardRole{models.RoleOwner}); err != nil {
			return err
		}
		if board.Status == models.BoardDeleted {
			return apperr.ErrBoardAlreadyDeleted
		}

		// Conditional on the prior status so two concurrent deletes cannot
		// both succeed.
		res := tx.Model(&models.Board{}).
			Where("id = ? AND status <> ?", board.ID, models.BoardDeleted).
			Update("status", models.BoardDeleted)
		if res.Error != nil {
			return fmt.Errorf("delete board: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.ErrBoardAlreadyDeleted
		}
		return nil
	})
}

// ListMembers returns the approved members of a board the actor belongs to.
func (s *BoardService) ListMembers(ctx context.Context, actorID, boardID uint, page PageRequest) (*Page[MemberItem], error) {
	if _, err := s.Get(ctx, actorID, boardID); err != nil {
		return nil, err
	}
	return s.members.List(ctx, boardID, page)
}

// AddMember adds an active user to a board the actor owns.
func (s *BoardService) AddMember(ctx context.Context, actorID, boardID, userID uint, role models.BoardRole) (*models.BoardMember, error) {
	if err := s.authorizeOwner(ctx, actorID, boardID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.members.Add(ctx, boardID, userID, role)
}

// UpdateMember changes a member's role on a board the actor owns.
func (s *BoardService) UpdateMember(ctx context.Context, actorID, boardID, userID uint, role models.BoardRole) (*models.BoardMember, error) {
	if err := s.authorizeOwner(ctx, actorID, boardID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.members.UpdateRole(ctx, boardID, userID, role)
}

// RemoveMember removes a member from a board the actor owns.
func (s *BoardService) RemoveMember(ctx context.Context, actorID, boardID, userID uint) error {
	if err := s.authorizeOwner(ctx, actorID, boardID); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	return s.members.Remove(ctx, boardID, userID)
}

func (s *BoardService) authorizeOwner(ctx context.Context, actorID, boardID uint) error {
	board, err := s.load(ctx, boardID, visibleBoardStatuses...)
	if err != nil {
		return err
	}
	_, err = s.members.Resolve(ctx, board.ID, actorID, models.RoleOwner)
	return err
}

// load returns the board when its status is one of statuses.
func (s *BoardService) load(ctx context.Context, boardID uint, statuses ...models.BoardStatus) (*models.Board, error) {
	return loadBoard(s.db.WithContext(ctx), boardID, statuses...)
}

func loadBoard(db *gorm.DB, boardID uint, statuses ...models.BoardStatus) (*models.Board, error) {
	if len(statuses) == 0 {
		statuses = visibleBoardStatuses
	}
	var board models.Board
	err := db.Where("id = ? AND status IN ?", boardID, statuses).First(&board).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrBoardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	return &board, nil
}
