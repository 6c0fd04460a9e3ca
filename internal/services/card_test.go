package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coyote/taskboard/internal/apperr"
	"github.com/coyote/taskboard/internal/models"
)

type cardFixture struct {
	*fixture
	owner  *models.User
	member *models.User
	board  *models.Board
}

func newCardFixture(t *testing.T) *cardFixture {
	t.Helper()
	f := newFixture(t)
	owner := f.user(t, "Olive")
	member := f.user(t, "Mia")
	b := f.newBoard(t, owner, "Roadmap")
	if _, err := f.boards.AddMember(context.Background(), owner.ID, b.ID, member.ID, models.RoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}
	return &cardFixture{fixture: f, owner: owner, member: member, board: b}
}

func (f *cardFixture) card(t *testing.T, actor *models.User, title string) *models.Card {
	t.Helper()
	c, err := f.cards.Create(context.Background(), actor.ID, f.board.ID, &CreateCardRequest{Title: title})
	if err != nil {
		t.Fatalf("create card %s: %v", title, err)
	}
	return c
}

func TestCreateCard_Defaults(t *testing.T) {
	f := newCardFixture(t)

	c := f.card(t, f.member, "Write docs")
	if c.State != models.CardTodo {
		t.Errorf("State = %s, expected todo", c.State)
	}
	if c.Status != models.RecordActive {
		t.Errorf("Status = %s, expected active", c.Status)
	}
	if c.OwnerID != f.member.ID || c.BoardID != f.board.ID {
		t.Errorf("card = %+v", c)
	}
	if c.AssignmentID != nil {
		t.Errorf("AssignmentID = %v, expected nil", *c.AssignmentID)
	}
}

func TestCreateCard_WithAssigneeAndDates(t *testing.T) {
	f := newCardFixture(t)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	c, err := f.cards.Create(context.Background(), f.owner.ID, f.board.ID, &CreateCardRequest{
		Title:          "Ship",
		AssignmentID:   &f.member.ID,
		EstimatedStart: &start,
		State:          models.CardInProgress,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.AssignmentID == nil || *c.AssignmentID != f.member.ID {
		t.Errorf("AssignmentID = %v", c.AssignmentID)
	}
	if c.State != models.CardInProgress {
		t.Errorf("State = %s", c.State)
	}
	if c.EstimatedStart == nil || !c.EstimatedStart.Equal(start) {
		t.Errorf("EstimatedStart = %v", c.EstimatedStart)
	}
}

func TestCreateCard_AssigneeMustBeMember(t *testing.T) {
	f := newCardFixture(t)
	stranger := f.user(t, "Sam")

	waiting := f.user(t, "Wes")
	f.insertMember(t, f.board.ID, waiting.ID, models.RoleMember, models.ApprovalWaiting)

	unknown := uint(9999)
	for _, assignee := range []uint{stranger.ID, waiting.ID, unknown} {
		id := assignee
		_, err := f.cards.Create(context.Background(), f.owner.ID, f.board.ID, &CreateCardRequest{
			Title:        "Orphan",
			AssignmentID: &id,
		})
		if !errors.Is(err, apperr.ErrNotMember) {
			t.Errorf("assignee %d: error = %v, expected ErrNotMember", id, err)
		}
	}

	var count int64
	f.db.Model(&models.Card{}).Count(&count)
	if count != 0 {
		t.Errorf("no card should be created, found %d", count)
	}
}

func TestCreateCard_Authorization(t *testing.T) {
	f := newCardFixture(t)
	ctx := context.Background()
	stranger := f.user(t, "Sam")

	if _, err := f.cards.Create(ctx, stranger.ID, f.board.ID, &CreateCardRequest{Title: "x"}); !errors.Is(err, apperr.ErrNotMember) {
		t.Errorf("stranger error = %v, expected ErrNotMember", err)
	}
	if _, err := f.cards.Create(ctx, f.owner.ID, 9999, &CreateCardRequest{Title: "x"}); !errors.Is(err, apperr.ErrBoardNotFound) {
		t.Errorf("missing board error = %v, expected ErrBoardNotFound", err)
	}

	if _, err := f.boards.Update(ctx, f.owner.ID, f.board.ID, &BoardPatch{Status: Set(models.BoardArchived)}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cards.Create(ctx, f.owner.ID, f.board.ID, &CreateCardRequest{Title: "x"}); !errors.Is(err, apperr.ErrBoardNotFound) {
		t.Errorf("archived board error = %v, expected ErrBoardNotFound", err)
	}
}

func TestCreateCard_InvalidState(t *testing.T) {
	f := newCardFixture(t)
	_, err := f.cards.Create(context.Background(), f.owner.ID, f.board.ID, &CreateCardRequest{Title: "x", State: "blocked"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("kind = %v, expected validation_failed", apperr.KindOf(err))
	}
}

func TestListCards(t *testing.T) {
	f := newCardFixture(t)
	ctx := context.Background()
	a := f.card(t, f.owner, "a")
	b := f.card(t, f.member, "b")
	c := f.card(t, f.owner, "c")
	if err := f.cards.Delete(ctx, f.owner.ID, f.board.ID, b.ID); err != nil {
		t.Fatal(err)
	}

	page, err := f.cards.List(ctx, f.member.ID, f.board.ID, PageRequest{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("List() total = %d, items = %d", page.Total, len(page.Items))
	}
	if page.Items[0].ID != a.ID || page.Items[1].ID != c.ID {
		t.Errorf("order = %d,%d expected %d,%d", page.Items[0].ID, page.Items[1].ID, a.ID, c.ID)
	}
}

func TestGetCard_ScopedToBoard(t *testing.T) {
	f := newCardFixture(t)
	ctx := context.Background()
	c := f.card(t, f.owner, "a")
	other := f.newBoard(t, f.owner, "Other")

	got, err := f.cards.Get(ctx, f.member.ID, f.board.ID, c.ID)
	if err != nil || got.Title != "a" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
	if _, err := f.cards.Get(ctx, f.owner.ID, other.ID, c.ID); !errors.Is(err, apperr.ErrCardNotFound) {
		t.Errorf("card via another board error = %v, expected ErrCardNotFound", err)
	}
	if _, err := f.cards.Get(ctx, f.member.ID, other.ID, c.ID); !errors.Is(err, apperr.ErrNotMember) {
		t.Errorf("non-member of other board error = %v, expected ErrNotMember", err)
	}
}

func TestUpdateCard_EmptyPatch(t *testing.T) {
	f := newCardFixture(t)
	c, _ := f.cards.Create(context.Background(), f.owner.ID, f.board.ID, &CreateCardRequest{Title: "a", Content: strPtr("body")})

	got, err := f.cards.Update(context.Background(), f.member.ID, f.board.ID, c.ID, &CardPatch{})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Title != "a" || got.Content == nil || *got.Content != "body" || got.State != models.CardTodo {
		t.Errorf("empty patch changed the card: %+v", got)
	}
}

func TestUpdateCard_PartialFields(t *testing.T) {
	f := newCardFixture(t)
	ctx := context.Background()
	finish := time.Date(2026, 4, 1, 17, 0, 0, 0, time.UTC)
	c, _ := f.cards.Create(ctx, f.owner.ID, f.board.ID, &CreateCardRequest{
		Title:        "a",
		Content:      strPtr("body"),
		AssignmentID: &f.member.ID,
	})

	got, err := f.cards.Update(ctx, f.member.ID, f.board.ID, c.ID, &CardPatch{
		Content:         Null[*string](),
		AssignmentID:    Null[*uint](),
		EstimatedFinish: Set(&finish),
		State:           Set(models.CardInReview),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Content != nil {
		t.Errorf("Content = %q, expected nil", *got.Content)
	}
	if got.AssignmentID != nil {
		t.Errorf("AssignmentID = %d, expected nil", *got.AssignmentID)
	}
	if got.EstimatedFinish == nil || !got.EstimatedFinish.Equal(finish) {
		t.Errorf("EstimatedFinish = %v", got.EstimatedFinish)
	}
	if got.State != models.CardInReview || got.Title != "a" {
		t.Errorf("card = %+v", got)
	}
}

func TestUpdateCard_AssigneeMustBeMember(t *testing.T) {
	f := newCardFixture(t)
	stranger := f.user(t, "Sam")
	c := f.card(t, f.owner, "a")

	_, err := f.cards.Update(context.Background(), f.owner.ID, f.board.ID, c.ID, &CardPatch{AssignmentID: Set(&stranger.ID)})
	if !errors.Is(err, apperr.ErrNotMember) {
		t.Fatalf("error = %v, expected ErrNotMember", err)
	}

	var stored models.Card
	f.db.First(&stored, c.ID)
	if stored.AssignmentID != nil {
		t.Errorf("assignee should be unchanged, got %d", *stored.AssignmentID)
	}
}

func TestUpdateCard_RejectsNullTitle(t *testing.T) {
	f := newCardFixture(t)
	c := f.card(t, f.owner, "a")

	_, err := f.cards.Update(context.Background(), f.owner.ID, f.board.ID, c.ID, &CardPatch{Title: Null[string]()})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("kind = %v, expected validation_failed", apperr.KindOf(err))
	}
}

func TestDeleteCard_Twice(t *testing.T) {
	f := newCardFixture(t)
	ctx := context.Background()
	c := f.card(t, f.owner, "a")

	if err := f.cards.Delete(ctx, f.member.ID, f.board.ID, c.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := f.cards.Delete(ctx, f.member.ID, f.board.ID, c.ID); !errors.Is(err, apperr.ErrCardNotFound) {
		t.Errorf("second Delete() error = %v, expected ErrCardNotFound", err)
	}
	if _, err := f.cards.Get(ctx, f.member.ID, f.board.ID, c.ID); !errors.Is(err, apperr.ErrCardNotFound) {
		t.Errorf("Get() after delete error = %v, expected ErrCardNotFound", err)
	}

	var stored models.Card
	f.db.First(&stored, c.ID)
	if stored.Status != models.RecordDeleted {
		t.Errorf("Status = %s, expected deleted", stored.Status)
	}
}

func TestUTCTime(t *testing.T) {
	if utcTime(nil) != nil {
		t.Error("utcTime(nil) should be nil")
	}

	local := time.Date(2026, 5, 4, 15, 0, 0, 0, time.FixedZone("UTC+3", 3*60*60))
	got := utcTime(&local)
	if got.Location() != time.UTC || !got.Equal(local) {
		t.Errorf("utcTime() = %v, expected %v in UTC", got, local)
	}
}
