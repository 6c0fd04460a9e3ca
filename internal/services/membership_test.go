package services

import (
	"context"
	"errors"
	"testing"

	"github.com/coyote/taskboard/internal/apperr"
	"github.com/coyote/taskboard/internal/models"
	"gorm.io/gorm"
)

func TestResolve_OnlyApprovedRowsGrantAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Olive")
	b := f.newBoard(t, owner, "Roadmap")

	waiting := f.user(t, "Walt")
	declined := f.user(t, "Dora")
	stranger := f.user(t, "Sam")
	f.insertMember(t, b.ID, waiting.ID, models.RoleMember, models.ApprovalWaiting)
	f.insertMember(t, b.ID, declined.ID, models.RoleOwner, models.ApprovalDeclined)

	tests := []struct {
		name   string
		userID uint
		roles  []models.BoardRole
		want   error
	}{
		{"approved owner, any role", owner.ID, nil, nil},
		{"approved owner, owner role", owner.ID, []models.BoardRole{models.RoleOwner}, nil},
		{"waiting row", waiting.ID, nil, apperr.ErrNotMember},
		{"declined owner row", declined.ID, []models.BoardRole{models.RoleOwner}, apperr.ErrNotMember},
		{"no row", stranger.ID, nil, apperr.ErrNotMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := f.members.Resolve(ctx, b.ID, tt.userID, tt.roles...)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Resolve() error = %v", err)
				}
				if m.UserID != tt.userID || m.State != models.ApprovalApproved {
					t.Errorf("Resolve() = %+v", m)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Resolve() error = %v, expected %v", err, tt.want)
			}
			if m != nil {
				t.Error("Resolve() should not return a membership on failure")
			}
		})
	}
}

func TestResolve_RoleMismatchIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Olive")
	member := f.user(t, "Mia")
	b := f.newBoard(t, owner, "Roadmap")
	if _, err := f.members.Add(ctx, b.ID, member.ID, models.RoleMember); err != nil {
		t.Fatal(err)
	}

	_, err := f.members.Resolve(ctx, b.ID, member.ID, models.RoleOwner)
	if !errors.Is(err, apperr.ErrNotOwner) {
		t.Errorf("error = %v, expected ErrNotOwner", err)
	}
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("kind = %v, expected forbidden", apperr.KindOf(err))
	}
}

func TestFind_AbsentMembershipIsNil(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Olive")
	stranger := f.user(t, "Sam")
	b := f.newBoard(t, owner, "Roadmap")

	m, err := f.members.Find(context.Background(), b.ID, stranger.ID)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if m != nil {
		t.Errorf("Find() = %+v, expected nil", m)
	}
}

func TestAdd_SecondCallConflictsRegardlessOfRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Olive")
	member := f.user(t, "Mia")
	b := f.newBoard(t, owner, "Roadmap")

	m, err := f.members.Add(ctx, b.ID, member.ID, models.RoleMember)
	if err != nil {
		t.Fatalf("first Add() error = %v", err)
	}
	if m.State != models.ApprovalApproved || m.Role != models.RoleMember {
		t.Errorf("Add() = %+v, expected approved member", m)
	}

	for _, role := range models.AllRoles {
		_, err := f.members.Add(ctx, b.ID, member.ID, role)
		if !errors.Is(err, apperr.ErrAlreadyMember) {
			t.Errorf("Add(%s) error = %v, expected ErrAlreadyMember", role, err)
		}
	}

	// Adding the creator again is also a conflict.
	if _, err := f.members.Add(ctx, b.ID, owner.ID, models.RoleMember); !errors.Is(err, apperr.ErrAlreadyMember) {
		t.Errorf("Add(owner) error = %v, expected ErrAlreadyMember", err)
	}
}

func TestAdd_ApprovesWaitingRowInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Olive")
	invitee := f.user(t, "Ivy")
	b := f.newBoard(t, owner, "Roadmap")
	f.insertMember(t, b.ID, invitee.ID, models.RoleMember, models.ApprovalWaiting)

	m, err := f.members.Add(ctx, b.ID, invitee.ID, models.RoleOwner)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if m.Role != models.RoleOwner || m.State != models.ApprovalApproved {
		t.Errorf("Add() = %+v, expected approved owner", m)
	}

	var count int64
	f.db.Model(&models.BoardMember{}).Where("board_id = ? AND user_id = ?", b.ID, invitee.ID).Count(&count)
	if count != 1 {
		t.Errorf("expected one row for the pair, got %d", count)
	}
}

func TestAdd_UniqueIndexRejectsDuplicatePair(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Olive")
	b := f.newBoard(t, owner, "Roadmap")

	dup := models.BoardMember{BoardID: b.ID, UserID: owner.ID, Role: models.RoleMember, State: models.ApprovalWaiting}
	err := f.db.Create(&dup).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("direct insert error = %v, expected gorm.ErrDuplicatedKey", err)
	}
}

func TestAdd_InvalidRole(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Olive")
	member := f.user(t, "Mia")
	b := f.newBoard(t, owner, "Roadmap")

	_, err := f.members.Add(context.Background(), b.ID, member.ID, models.BoardRole("admin"))
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("kind = %v, expected validation_failed", apperr.KindOf(err))
	}
}

func TestUpdateRole_RequiresApprovedMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Olive")
	waiting := f.user(t, "Walt")
	b := f.newBoard(t, owner, "Roadmap")
	f.insertMember(t, b.ID, waiting.ID, models.RoleMember, models.ApprovalWaiting)

	_, err := f.members.UpdateRole(ctx, b.ID, waiting.ID, models.RoleOwner)
	if !errors.Is(err, apperr.ErrNotMember) {
		t.Errorf("error = %v, expected ErrNotMember", err)
	}
}

func TestUpdateRole_PromoteMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Olive")
	member := f.user(t, "Mia")
	b := f.newBoard(t, owner, "Roadmap")
	f.members.Add(ctx, b.ID, member.ID, models.RoleMember)

	m, err := f.members.UpdateRole(ctx, b.ID, member.ID, models.RoleOwner)
	if err != nil {
		t.Fatalf("UpdateRole() error = %v", err)
	}
	if m.Role != models.RoleOwner {
		t.Errorf("Role = %s, expected owner", m.Role)
	}
	if _, err := f.members.Resolve(ctx, b.ID, member.ID, models.RoleOwner); err != nil {
		t.Errorf("promoted member should resolve as owner: %v", err)
	}
}

func TestUpdateRole_RefusesToDemoteLastOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Olive")
	b := f.newBoard(t, owner, "Roadmap")

	_, err := f.members.UpdateRole(ctx, b.ID, owner.ID, models.RoleMember)
	if !errors.Is(err, apperr.ErrLastOwner) {
		t.Fatalf("error = %v, expected ErrLastOwner", err)
	}
	if _, err := f.members.Resolve(ctx, b.ID, owner.ID, models.RoleOwner); err != nil {
		t.Errorf("last owner must keep the owner role: %v", err)
	}
}

func TestUpdateRole_DemotesOwnerWhenAnotherOwnerRemains(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Olive")
	second := f.user(t, "Oscar")
	b := f.newBoard(t, owner, "Roadmap")
	f.members.Add(ctx, b.ID, second.ID, models.RoleOwner)

	m, err := f.members.UpdateRole(ctx, b.ID, owner.ID, models.RoleMember)
	if err != nil {
		t.Fatalf("UpdateRole() error = %v", err)
	}
	if m.Role != models.RoleMember {
		t.Errorf("Role = %s, expected member", m.Role)
	}

	// Oscar is now the last owner.
	if _, err := f.members.UpdateRole(ctx, b.ID, second.ID, models.RoleMember); !errors.Is(err, apperr.ErrLastOwner) {
		t.Errorf("error = %v, expected ErrLastOwner", err)
	}
}

func TestUpdateRole_WaitingOwnerDoesNotCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Olive")
	pending := f.user(t, "Pat")
	b := f.newBoard(t, owner, "Roadmap")
	f.insertMember(t, b.ID, pending.ID, models.RoleOwner, models.ApprovalWaiting)

	if _, err := f.members.UpdateRole(ctx, b.ID, owner.ID, models.RoleMember); !errors.Is(err, apperr.ErrLastOwner) {
		t.Errorf("error = %v, expected ErrLastOwner", err)
	}
}

func TestRemove_RefusesToRemoveLastOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Olive")
	b := f.newBoard(t, owner, "Roadmap")

	if err := f.members.Remove(ctx, b.ID, owner.ID); !errors.Is(err, apperr.ErrLastOwner) {
		t.Fatalf("error = %v, expected ErrLastOwner", err)
	}
	if _, err := f.members.Resolve(ctx, b.ID, owner.ID); err != nil {
		t.Errorf("last owner must remain a member: %v", err)
	}
}

func TestRemove_DeletesMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Olive")
	member := f.user(t, "Mia")
	b := f.newBoard(t, owner, "Roadmap")
	f.members.Add(ctx, b.ID, member.ID, models.RoleMember)

	if err := f.members.Remove(ctx, b.ID, member.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := f.members.Resolve(ctx, b.ID, member.ID); !errors.Is(err, apperr.ErrNotMember) {
		t.Errorf("removed member should not resolve, got %v", err)
	}
	if err := f.members.Remove(ctx, b.ID, member.ID); !errors.Is(err, apperr.ErrNotMember) {
		t.Errorf("second Remove() error = %v, expected ErrNotMember", err)
	}

	// The pair can be added again after removal.
	if _, err := f.members.Add(ctx, b.ID, member.ID, models.RoleMember); err != nil {
		t.Errorf("re-adding removed member: %v", err)
	}
}

func TestListMembers_ApprovedWithFullName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Olive")
	member := f.user(t, "Mia")
	waiting := f.user(t, "Walt")
	b := f.newBoard(t, owner, "Roadmap")
	f.members.Add(ctx, b.ID, member.ID, models.RoleMember)
	f.insertMember(t, b.ID, waiting.ID, models.RoleMember, models.ApprovalWaiting)

	page, err := f.members.List(ctx, b.ID, PageRequest{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("Total = %d, items = %d, expected 2 approved members", page.Total, len(page.Items))
	}
	if page.Items[0].FullName != "Olive Tester" || page.Items[0].Role != models.RoleOwner {
		t.Errorf("first item = %+v", page.Items[0])
	}
	if page.Items[1].UserID != member.ID {
		t.Errorf("second item = %+v", page.Items[1])
	}
	if page.Page != 1 || page.PageSize != defaultPageSize {
		t.Errorf("page defaults = %d/%d", page.Page, page.PageSize)
	}
}
