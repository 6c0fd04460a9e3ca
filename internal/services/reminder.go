package services

import (
	"context"
	"fmt"
	"time"

	"github.com/coyote/taskboard/internal/apperr"
	"github.com/coyote/taskboard/internal/metrics"
	"github.com/coyote/taskboard/internal/models"
	"github.com/coyote/taskboard/internal/notify"
	"github.com/coyote/taskboard/pkg/logger"
	"gorm.io/gorm"
)

// ReminderKind selects which scan produced a reminder.
type ReminderKind string

const (
	ReminderStart  ReminderKind = "start"
	ReminderFinish ReminderKind = "finish"
)

// ReminderRequest is one notification due for a card. The recipient is the
// card owner.
type ReminderRequest struct {
	Kind      ReminderKind `json:"kind"`
	CardID    uint         `json:"card_id"`
	Email     string       `json:"email"`
	FullName  string       `json:"full_name"`
	CardTitle string       `json:"card_title"`
	BoardName string       `json:"board_name"`
	At        time.Time    `json:"at"`
}

// Message builds the notification for this reminder.
func (r *ReminderRequest) Message() *notify.Message {
	template, timeKey := notify.TemplateCardStartReminder, "estimated_start"
	if r.Kind == ReminderFinish {
		template, timeKey = notify.TemplateCardFinishReminder, "estimated_finish"
	}
	return &notify.Message{
		Template:  template,
		Subject:   "Reminder",
		Recipient: r.Email,
		Variables: map[string]interface{}{
			"full_name":  r.FullName,
			"board_name": r.BoardName,
			"card_title": r.CardTitle,
			timeKey:      r.At,
		},
	}
}

// ScanResult summarizes one scan run.
type ScanResult struct {
	Kind     ReminderKind `json:"kind"`
	Matched  int          `json:"matched"`
	Enqueued int          `json:"enqueued"`
	Skipped  int          `json:"skipped"`
	Failed   int          `json:"failed"`
}

// ReminderGuard suppresses a reminder that was already sent recently.
// Claim returns false when req should be skipped.
type ReminderGuard interface {
	Claim(ctx context.Context, req *ReminderRequest) (bool, error)
}

// ReminderService selects cards whose estimated start or finish has passed
// and hands one notification per card to the queue. Nothing records that a
// reminder was sent, so every run re-sends unless a guard is configured.
type ReminderService struct {
	db    *gorm.DB
	queue TaskQueue
	guard ReminderGuard
}

func NewReminderService(db *gorm.DB, queue TaskQueue, guard ReminderGuard) *ReminderService {
	return &ReminderService{db: db, queue: queue, guard: guard}
}

// StartReminders returns a reminder for every active card on an active
// board that is still todo and whose estimated start is at or before now.
func (s *ReminderService) StartReminders(ctx context.Context, now time.Time) ([]ReminderRequest, error) {
	return s.find(ctx, ReminderStart, "cards.estimated_start", func(q *gorm.DB) *gorm.DB {
		return q.Where("cards.state = ? AND cards.estimated_start <= ?", models.CardTodo, now.UTC())
	})
}

// FinishReminders returns a reminder for every active card on an active
// board that is not done and whose estimated finish is at or before now.
func (s *ReminderService) FinishReminders(ctx context.Context, now time.Time) ([]ReminderRequest, error) {
	return s.find(ctx, ReminderFinish, "cards.estimated_finish", func(q *gorm.DB) *gorm.DB {
		return q.Where("cards.state <> ? AND cards.estimated_finish <= ?", models.CardDone, now.UTC())
	})
}

func (s *ReminderService) find(ctx context.Context, kind ReminderKind, timeColumn string, filter func(*gorm.DB) *gorm.DB) ([]ReminderRequest, error) {
	type row struct {
		CardID    uint
		Email     string
		FirstName string
		LastName  string
		CardTitle string
		BoardName string
		DueAt     time.Time
	}

	query := s.db.WithContext(ctx).
		Table("cards").
		Joins("JOIN boards ON boards.id = cards.board_id").
		Joins("JOIN users ON users.id = cards.owner_id").
		Where("boards.status = ? AND cards.status = ?", models.BoardActive, models.RecordActive)

	var rows []row
	err := filter(query).
		Select("cards.id AS card_id, users.email, users.first_name, users.last_name, " +
			"cards.title AS card_title, boards.name AS board_name, " + timeColumn + " AS due_at").
		Order("cards.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("scan %s reminders: %w", kind, err)
	}

	reqs := make([]ReminderRequest, 0, len(rows))
	for _, r := range rows {
		reqs = append(reqs, ReminderRequest{
			Kind:      kind,
			CardID:    r.CardID,
			Email:     r.Email,
			FullName:  r.FirstName + " " + r.LastName,
			CardTitle: r.CardTitle,
			BoardName: r.BoardName,
			At:        r.DueAt,
		})
	}
	return reqs, nil
}

// RunStartScan enqueues every start reminder due at now.
func (s *ReminderService) RunStartScan(ctx context.Context, now time.Time) (*ScanResult, error) {
	reqs, err := s.StartReminders(ctx, now)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, ReminderStart, reqs)
}

// RunFinishScan enqueues every finish reminder due at now.
func (s *ReminderService) RunFinishScan(ctx context.Context, now time.Time) (*ScanResult, error) {
	reqs, err := s.FinishReminders(ctx, now)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, ReminderFinish, reqs)
}

// dispatch enqueues each request. A failure for one card is logged and
// counted and the loop moves on. Cancellation is honoured between cards and
// returns the partial result with the context error.
func (s *ReminderService) dispatch(ctx context.Context, kind ReminderKind, reqs []ReminderRequest) (*ScanResult, error) {
	log := logger.Component("reminder")
	result := &ScanResult{Kind: kind, Matched: len(reqs)}
	metrics.RemindersMatchedTotal.WithLabelValues(string(kind)).Add(float64(len(reqs)))

	for i := range reqs {
		if err := ctx.Err(); err != nil {
			log.Warn().Str("kind", string(kind)).Int("remaining", len(reqs)-i).Msg("scan cancelled")
			return result, err
		}
		req := &reqs[i]

		if s.guard != nil {
			claimed, err := s.guard.Claim(ctx, req)
			if err != nil {
				log.Warn().Err(err).Uint("card_id", req.CardID).Msg("dedup check failed, sending anyway")
			} else if !claimed {
				result.Skipped++
				metrics.RemindersSkippedTotal.WithLabelValues(string(kind)).Inc()
				continue
			}
		}

		if err := enqueueNotification(ctx, s.queue, req.Message()); err != nil {
			result.Failed++
			log.Error().Err(err).
				Str("kind", string(kind)).
				Str("error_kind", apperr.KindOf(err).String()).
				Uint("card_id", req.CardID).
				Msg("reminder not enqueued")
			continue
		}
		result.Enqueued++
	}

	log.Info().
		Str("kind", string(kind)).
		Int("matched", result.Matched).
		Int("enqueued", result.Enqueued).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("scan finished")
	return result, nil
}
