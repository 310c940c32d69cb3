package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"Lee_Moments/internal/model"
)

type NotificationKind string

const (
	NotifyRegistrationConfirmed  NotificationKind = "registration_confirmed"
	NotifyRegistrationWaitlisted NotificationKind = "registration_waitlisted"
	NotifyWaitlistPromoted       NotificationKind = "waitlist_promoted"
	NotifyHostNewRegistration    NotificationKind = "host_new_registration"
	NotifyHostNewComment         NotificationKind = "host_new_comment"
	NotifyMomentCancelled        NotificationKind = "moment_cancelled"
	NotifyMomentUpdated          NotificationKind = "moment_updated"
)

// Notification 只携带渲染所需的数据，格式化和投递由下游负责
type Notification struct {
	Kind           NotificationKind `json:"kind"`
	RecipientID    uint64           `json:"recipient_id"`
	ActorID        uint64           `json:"actor_id,omitempty"`
	CircleID       uint64           `json:"circle_id"`
	MomentID       uint64           `json:"moment_id"`
	MomentSlug     string           `json:"moment_slug"`
	MomentTitle    string           `json:"moment_title"`
	StartsAt       time.Time        `json:"starts_at"`
	RegistrationID uint64           `json:"registration_id,omitempty"`
	CommentID      uint64           `json:"comment_id,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, notes ...Notification) error
}

func momentNotification(kind NotificationKind, m *model.Moment, recipient uint64) Notification {
	return Notification{
		Kind:        kind,
		RecipientID: recipient,
		CircleID:    m.CircleID,
		MomentID:    m.ID,
		MomentSlug:  m.Slug,
		MomentTitle: m.Title,
		StartsAt:    m.StartsAt,
	}
}

// OutboxNotifier 把通知写进 outbox 表，由 OutboxRelayer 异步投递
type OutboxNotifier struct {
	store OutboxStore
	now   func() time.Time
}

func NewOutboxNotifier(store OutboxStore) *OutboxNotifier {
	return &OutboxNotifier{store: store, now: time.Now}
}

func (n *OutboxNotifier) Notify(ctx context.Context, notes ...Notification) error {
	if len(notes) == 0 {
		return nil
	}
	rows := make([]model.Outbox, 0, len(notes))
	for _, note := range notes {
		if note.OccurredAt.IsZero() {
			note.OccurredAt = n.now().UTC()
		}
		payload, err := json.Marshal(note)
		if err != nil {
			return err
		}
		rows = append(rows, model.Outbox{
			EventType:   string(note.Kind),
			RecipientID: note.RecipientID,
			MomentID:    note.MomentID,
			Payload:     string(payload),
			Status:      model.OutboxPending,
		})
	}
	return n.store.Insert(ctx, rows)
}

// LogNotifier 不落库，直接打印
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, notes ...Notification) error {
	for _, note := range notes {
		n.Logger.Info("notification",
			"kind", note.Kind,
			"recipient", note.RecipientID,
			"moment", note.MomentID,
		)
	}
	return nil
}
