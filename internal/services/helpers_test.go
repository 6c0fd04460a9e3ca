package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coyote/taskboard/internal/config"
	"github.com/coyote/taskboard/internal/models"
	"github.com/coyote/taskboard/internal/notify"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// recordingQueue captures enqueued notifications. Recipients listed in
// failFor are rejected.
type recordingQueue struct {
	mu      sync.Mutex
	msgs    []*notify.Message
	failFor map[string]bool
}

func (q *recordingQueue) Enqueue(_ context.Context, msg *notify.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failFor[msg.Recipient] {
		return errors.New("queue unavailable")
	}
	q.msgs = append(q.msgs, msg)
	return nil
}

func (q *recordingQueue) IsAsync() bool { return true }
func (q *recordingQueue) Close() error  { return nil }

func (q *recordingQueue) messages() []*notify.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*notify.Message(nil), q.msgs...)
}

type fixture struct {
	db      *gorm.DB
	queue   *recordingQueue
	users   *UserService
	members *MembershipService
	boards  *BoardService
	cards   *CardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	queue := &recordingQueue{}
	users := NewUserService(db, config.VerificationConfig{
		DeveloperMode: true,
		TestCode:      "123456",
		CodeLength:    6,
		CodeTTL:       5 * time.Minute,
	}, queue)
	members := NewMembershipService(db)
	return &fixture{
		db:      db,
		queue:   queue,
		users:   users,
		members: members,
		boards:  NewBoardService(db, members, users),
		cards:   NewCardService(db, members),
	}
}

func (f *fixture) user(t *testing.T, first string) *models.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), &RegisterRequest{
		FirstName: first,
		LastName:  "Tester",
		Email:     strings.ToLower(first) + "@example.com",
		Password:  "secret123",
	})
	if err != nil {
		t.Fatalf("register %s: %v", first, err)
	}
	return u
}

func (f *fixture) newBoard(t *testing.T, owner *models.User, name string) *models.Board {
	t.Helper()
	b, err := f.boards.Create(context.Background(), owner.ID, &CreateBoardRequest{Name: name})
	if err != nil {
		t.Fatalf("create board %s: %v", name, err)
	}
	return b
}

// insertMember writes a membership row directly, bypassing Add.
func (f *fixture) insertMember(t *testing.T, boardID, userID uint, role models.BoardRole, state models.ApprovalState) {
	t.Helper()
	m := models.BoardMember{BoardID: boardID, UserID: userID, Role: role, State: state}
	if err := f.db.Create(&m).Error; err != nil {
		t.Fatalf("insert member: %v", err)
	}
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
