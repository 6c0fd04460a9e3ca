package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coyote/taskboard/internal/apperr"
	"github.com/coyote/taskboard/internal/metrics"
	"github.com/coyote/taskboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipService is the authorization gate for boards. Only approved
// rows grant access; waiting and declined rows are inert.
type MembershipService struct {
	db *gorm.DB
}

func NewMembershipService(db *gorm.DB) *MembershipService {
	return &MembershipService{db: db}
}

// MemberItem is one row of a board's member listing.
type MemberItem struct {
	ID        uint             `json:"id"`
	UserID    uint             `json:"user_id"`
	FullName  string           `json:"full_name"`
	Role      models.BoardRole `json:"role"`
	CreatedAt time.Time        `json:"date_created"`
	UpdatedAt time.Time        `json:"date_modified"`
}

// Find returns the approved membership of userID on boardID whose role is
// in roles (any role when roles is empty). It returns nil, nil when there
// is none.
func (s *MembershipService) Find(ctx context.Context, boardID, userID uint, roles ...models.BoardRole) (*models.BoardMember, error) {
	return findMember(s.db.WithContext(ctx), boardID, userID, roles)
}

// Resolve is Find with the membership required. A missing approved row
// fails with ErrNotMember; an approved row with a role outside roles fails
// with ErrNotOwner.
func (s *MembershipService) Resolve(ctx context.Context, boardID, userID uint, roles ...models.BoardRole) (*models.BoardMember, error) {
	return resolveMember(s.db.WithContext(ctx), boardID, userID, roles)
}

// Add creates an approved membership. Any approved row for the pair is a
// conflict regardless of role. A waiting or declined row is promoted in
// place since the pair may only have one row.
func (s *MembershipService) Add(ctx context.Context, boardID, userID uint, role models.BoardRole) (*models.BoardMember, error) {
	if !role.Valid() {
		return nil, apperr.Validation("role must be owner or member")
	}

	var member models.BoardMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.BoardMember
		err := tx.Where("board_id = ? AND user_id = ?", boardID, userID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			member = models.BoardMember{
				BoardID: boardID,
				UserID:  userID,
				Role:    role,
				State:   models.ApprovalApproved,
			}
			if err := tx.Create(&member).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return apperr.Wrap(apperr.ErrAlreadyMember, err)
				}
				return fmt.Errorf("create membership: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("load membership: %w", err)
		case existing.State == models.ApprovalApproved:
			return apperr.ErrAlreadyMember
		}

		existing.Role = role
		existing.State = models.ApprovalApproved
		if err := tx.Model(&existing).Updates(map[string]interface{}{
			"role":  role,
			"state": models.ApprovalApproved,
		}).Error; err != nil {
			return fmt.Errorf("approve membership: %w", err)
		}
		member = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateRole changes the role of an approved member. Demoting the only
// approved owner fails with ErrLastOwner.
func (s *MembershipService) UpdateRole(ctx context.Context, boardID, userID uint, role models.BoardRole) (*models.BoardMember, error) {
	if !role.Valid() {
		return nil, apperr.Validation("role must be owner or member")
	}

	var member *models.BoardMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := resolveMember(tx, boardID, userID, nil)
		if err != nil {
			return err
		}
		if m.Role == role {
			member = m
			return nil
		}
		if m.Role == models.RoleOwner {
			if err := ensureAnotherOwner(tx, boardID, userID); err != nil {
				return err
			}
		}
		if err := tx.Model(m).Update("role", role).Error; err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		m.Role = role
		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// Remove deletes an approved membership. Removing the only approved owner
// fails with ErrLastOwner.
func (s *MembershipService) Remove(ctx context.Context, boardID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := resolveMember(tx, boardID, userID, nil)
		if err != nil {
			return err
		}
		if m.Role == models.RoleOwner {
			if err := ensureAnotherOwner(tx, boardID, userID); err != nil {
				return err
			}
		}
		if err := tx.Delete(m).Error; err != nil {
			return fmt.Errorf("delete membership: %w", err)
		}
		return nil
	})
}

// List returns the approved members of a board with their full names.
func (s *MembershipService) List(ctx context.Context, boardID uint, page PageRequest) (*Page[MemberItem], error) {
	page = page.normalize()

	query := s.db.WithContext(ctx).
		Table("board_members").
		Joins("JOIN users ON users.id = board_members.user_id").
		Where("board_members.board_id = ? AND board_members.state = ?", boardID, models.ApprovalApproved)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}

	type row struct {
		ID        uint
		UserID    uint
		FirstName string
		LastName  string
		Role      models.BoardRole
		CreatedAt time.Time
		UpdatedAt time.Time
	}
	var rows []row
	err := query.
		Select("board_members.id, board_members.user_id, users.first_name, users.last_name, " +
			"board_members.role, board_members.created_at, board_members.updated_at").
		Order("board_members.id ASC").
		Offset(page.offset()).
		Limit(page.PageSize).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	items := make([]MemberItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, MemberItem{
			ID:        r.ID,
			UserID:    r.UserID,
			FullName:  r.FirstName + " " + r.LastName,
			Role:      r.Role,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return newPage(page, total, items), nil
}

func findMember(db *gorm.DB, boardID, userID uint, roles []models.BoardRole) (*models.BoardMember, error) {
	if len(roles) == 0 {
		roles = models.AllRoles
	}

	var member models.BoardMember
	err := db.
		Where("board_id = ? AND user_id = ? AND state = ?", boardID, userID, models.ApprovalApproved).
		Where("role IN ?", roles).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find membership: %w", err)
	}
	return &member, nil
}

func resolveMember(db *gorm.DB, boardID, userID uint, roles []models.BoardRole) (*models.BoardMember, error) {
	m, err := findMember(db, boardID, userID, roles)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m, nil
	}

	// Distinguish "not a member" from "member without the required role".
	if len(roles) > 0 {
		other, err := findMember(db, boardID, userID, nil)
		if err != nil {
			return nil, err
		}
		if other != nil {
			metrics.AuthorizationDeniedTotal.WithLabelValues("not_owner").Inc()
			return nil, apperr.ErrNotOwner
		}
	}
	metrics.AuthorizationDeniedTotal.WithLabelValues("not_member").Inc()
	return nil, apperr.ErrNotMember
}

// ensureAnotherOwner fails with ErrLastOwner unless the board has an
// approved owner other than userID. Owner rows are locked for the rest of
// the transaction where the dialect supports it.
func ensureAnotherOwner(tx *gorm.DB, boardID, userID uint) error {
	var owners []models.BoardMember
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("board_id = ? AND state = ? AND role = ?", boardID, models.ApprovalApproved, models.RoleOwner).
		Find(&owners).Error
	if err != nil {
		return fmt.Errorf("count owners: %w", err)
	}
	for _, o := range owners {
		if o.UserID != userID {
			return nil
		}
	}
	return apperr.ErrLastOwner
}
