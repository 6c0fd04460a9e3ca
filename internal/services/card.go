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

// CardService manages the cards of a board. Any approved member may use
// every card operation.
type CardService struct {
	db      *gorm.DB
	members *MembershipService
}

func NewCardService(db *gorm.DB, members *MembershipService) *CardService {
	return &CardService{db: db, members: members}
}

type CreateCardRequest struct {
	AssignmentID    *uint            `json:"assignment_id" binding:"omitempty,min=1"`
	Title           string           `json:"title" binding:"required,max=150"`
	Content         *string          `json:"content"`
	EstimatedStart  *time.Time       `json:"estimated_start"`
	EstimatedFinish *time.Time       `json:"estimated_finish"`
	FinishDate      *time.Time       `json:"finish_date"`
	State           models.CardState `json:"state" binding:"omitempty,card_state"`
}

// CardPatch is a partial card update. Title and State cannot be nulled.
type CardPatch struct {
	AssignmentID    Field[*uint]            `json:"assignment_id"`
	Title           Field[string]           `json:"title"`
	Content         Field[*string]          `json:"content"`
	EstimatedStart  Field[*time.Time]       `json:"estimated_start"`
	EstimatedFinish Field[*time.Time]       `json:"estimated_finish"`
	FinishDate      Field[*time.Time]       `json:"finish_date"`
	State           Field[models.CardState] `json:"state"`
}

func (p *CardPatch) IsEmpty() bool {
	return !p.AssignmentID.Set && !p.Title.Set && !p.Content.Set &&
		!p.EstimatedStart.Set && !p.EstimatedFinish.Set && !p.FinishDate.Set && !p.State.Set
}

func (p *CardPatch) Validate() error {
	if p.Title.Set && (p.Title.Null || strings.TrimSpace(p.Title.Value) == "") {
		return apperr.Validation("title must not be empty")
	}
	if p.Title.Set && len(p.Title.Value) > 150 {
		return apperr.Validation("title must be at most 150 characters")
	}
	if p.State.Set && (p.State.Null || !p.State.Value.Valid()) {
		return apperr.Validation("state must be one of todo, in_progress, in_review, done")
	}
	if p.AssignmentID.Set && p.AssignmentID.Value != nil && *p.AssignmentID.Value == 0 {
		return apperr.Validation("assignment_id must be positive")
	}
	return nil
}

func (p *CardPatch) updates() map[string]interface{} {
	updates := make(map[string]interface{})
	if p.AssignmentID.Set {
		updates["assignment_id"] = p.AssignmentID.Value
	}
	if p.Title.Set {
		updates["title"] = p.Title.Value
	}
	if p.Content.Set {
		updates["content"] = p.Content.Value
	}
	if p.EstimatedStart.Set {
		updates["estimated_start"] = utcTime(p.EstimatedStart.Value)
	}
	if p.EstimatedFinish.Set {
		updates["estimated_finish"] = utcTime(p.EstimatedFinish.Value)
	}
	if p.FinishDate.Set {
		updates["finish_date"] = utcTime(p.FinishDate.Value)
	}
	if p.State.Set {
		updates["state"] = p.State.Value
	}
	return updates
}

// utcTime stores card timestamps in UTC so stores that keep them as text
// still order them by instant.
func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Create adds a card owned by the actor to an active board. A non-nil
// assignee must be an approved member of the board; otherwise nothing is
// written and ErrNotMember is returned.
func (s *CardService) Create(ctx context.Context, actorID, boardID uint, req *CreateCardRequest) (*models.Card, error) {
	state := req.State
	if state == "" {
		state = models.CardTodo
	}
	if !state.Valid() {
		return nil, apperr.Validation("state must be one of todo, in_progress, in_review, done")
	}

	var card models.Card
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		board, err := loadBoard(tx, boardID, models.BoardActive)
		if err != nil {
			return err
		}
		if _, err := resolveMember(tx, board.ID, actorID, nil); err != nil {
			return err
		}
		if req.AssignmentID != nil {
			if _, err := resolveMember(tx, board.ID, *req.AssignmentID, nil); err != nil {
				return err
			}
		}

		card = models.Card{
			BoardID:         board.ID,
			OwnerID:         actorID,
			AssignmentID:    req.AssignmentID,
			Title:           req.Title,
			Content:         req.Content,
			EstimatedStart:  utcTime(req.EstimatedStart),
			EstimatedFinish: utcTime(req.EstimatedFinish),
			FinishDate:      utcTime(req.FinishDate),
			State:           state,
			Status:          models.RecordActive,
		}
		if err := tx.Create(&card).Error; err != nil {
			return fmt.Errorf("create card: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// List returns the active cards of a board in insertion order.
func (s *CardService) List(ctx context.Context, actorID, boardID uint, page PageRequest) (*Page[models.Card], error) {
	board, err := s.authorize(ctx, actorID, boardID)
	if err != nil {
		return nil, err
	}
	page = page.normalize()

	query := s.db.WithContext(ctx).Model(&models.Card{}).
		Where("board_id = ? AND status = ?", board.ID, models.RecordActive)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count cards: %w", err)
	}

	var cards []models.Card
	if err := query.Order("id ASC").Offset(page.offset()).Limit(page.PageSize).Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return newPage(page, total, cards), nil
}

// Get returns an active card of a board the actor belongs to.
func (s *CardService) Get(ctx context.Context, actorID, boardID, cardID uint) (*models.Card, error) {
	board, err := s.authorize(ctx, actorID, boardID)
	if err != nil {
		return nil, err
	}
	return loadCard(s.db.WithContext(ctx), board.ID, cardID)
}

// Update applies patch to an active card. An empty patch succeeds without
// writing. A new non-null assignee must be an approved member.
func (s *CardService) Update(ctx context.Context, actorID, boardID, cardID uint, patch *CardPatch) (*models.Card, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var card *models.Card
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		board, err := loadBoard(tx, boardID, visibleBoardStatuses...)
		if err != nil {
			return err
		}
		if _, err := resolveMember(tx, board.ID, actorID, nil); err != nil {
			return err
		}
		card, err = loadCard(tx, board.ID, cardID)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			return nil
		}
		if patch.AssignmentID.Set && patch.AssignmentID.Value != nil {
			if _, err := resolveMember(tx, board.ID, *patch.AssignmentID.Value, nil); err != nil {
				return err
			}
		}
		if err := tx.Model(card).Updates(patch.updates()).Error; err != nil {
			return fmt.Errorf("update card: %w", err)
		}
		card, err = loadCard(tx, board.ID, cardID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// Delete soft-deletes an active card.
func (s *CardService) Delete(ctx context.Context, actorID, boardID, cardID uint) error {
	board, err := s.authorize(ctx, actorID, boardID)
	if err != nil {
		return err
	}
	card, err := loadCard(s.db.WithContext(ctx), board.ID, cardID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(card).Update("status", models.RecordDeleted).Error; err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

func (s *CardService) authorize(ctx context.Context, actorID, boardID uint) (*models.Board, error) {
	db := s.db.WithContext(ctx)
	board, err := loadBoard(db, boardID, visibleBoardStatuses...)
	if err != nil {
		return nil, err
	}
	if _, err := resolveMember(db, board.ID, actorID, nil); err != nil {
		return nil, err
	}
	return board, nil
}

func loadCard(db *gorm.DB, boardID, cardID uint) (*models.Card, error) {
	var card models.Card
	err := db.Where("id = ? AND board_id = ? AND status = ?", cardID, boardID, models.RecordActive).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load card: %w", err)
	}
	return &card, nil
}
