package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"Lee_Moments/internal/model"
	"Lee_Moments/internal/pkg"
)

type Sender func(ctx context.Context, ob *model.Outbox) error

// OutboxRelayer 定时从 outbox 表拉取待投递的通知
type OutboxRelayer struct {
	repo      OutboxStore
	batchSize int
	maxRetry  int
	interval  time.Duration
	sender    Sender
	logger    *slog.Logger
}

func NewOutboxRelayer(repo OutboxStore, sender Sender, batchSize, maxRetry int, interval time.Duration, logger *slog.Logger) *OutboxRelayer {
	if batchSize <= 0 {
		batchSize = 200
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxRelayer{
		repo:      repo,
		batchSize: batchSize,
		maxRetry:  maxRetry,
		interval:  interval,
		sender:    sender,
		logger:    logger,
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 投递一批，返回成功条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		r.logger.Error("outbox query failed", "error", err)
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			r.logger.Warn("outbox send failed", "id", ob.ID, "event", ob.EventType, "retry", ob.Retry, "error", err)
			if err := r.repo.RetryUpdate(ctx, ob.ID); err != nil {
				r.logger.Error("outbox retry update failed", "id", ob.ID, "error", err)
			}
			continue
		}
		if err := r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			r.logger.Error("outbox success update failed", "id", ob.ID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

func LogSender(logger *slog.Logger) Sender {
	return func(_ context.Context, ob *model.Outbox) error {
		logger.Info("outbox send", "type", ob.EventType, "recipient", ob.RecipientID, "moment", ob.MomentID, "payload", ob.Payload)
		return nil
	}
}

// KafkaSender 以 moment id 作为 key，同一 moment 的通知进同一分区
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.Outbox) error {
		return p.Send(ctx, pkg.MakeKeyFromID(ob.MomentID), []byte(ob.Payload), map[string]string{
			"event_type": ob.EventType,
		})
	}
}

var mailHeadlines = map[NotificationKind]string{
	NotifyRegistrationConfirmed:  "You're registered.",
	NotifyRegistrationWaitlisted: "The moment is full, you're on the waitlist.",
	NotifyWaitlistPromoted:       "A seat opened up, you're now registered.",
	NotifyHostNewRegistration:    "Someone just registered for your moment.",
	NotifyHostNewComment:         "New comment on your moment.",
	NotifyMomentCancelled:        "This moment has been cancelled.",
	NotifyMomentUpdated:          "This moment has been updated.",
}

// MailSender 查收件人邮箱并发信
func MailSender(cfg pkg.SMTPConfig, users UserStore, baseURL string) Sender {
	return func(ctx context.Context, ob *model.Outbox) error {
		var note Notification
		if err := json.Unmarshal([]byte(ob.Payload), &note); err != nil {
			return fmt.Errorf("decode outbox %d: %w", ob.ID, err)
		}
		u, err := users.FindByID(ctx, ob.RecipientID)
		if err != nil {
			return err
		}
		if u == nil || u.Email == "" {
			// 收件人不存在，没法投递也不必重试
			return nil
		}
		headline, ok := mailHeadlines[note.Kind]
		if !ok {
			headline = "Update about a moment."
		}
		link := fmt.Sprintf("%s/moments/%s", baseURL, note.MomentSlug)
		body := pkg.MomentNoticeHTML(headline, note.MomentTitle, note.StartsAt, link)
		return pkg.SendEmail(cfg, u.Email, note.MomentTitle, body)
	}
}
