package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"Lee_Moments/internal/model"
	"Lee_Moments/internal/pkg"
	"Lee_Moments/internal/service"
	"Lee_Moments/internal/testkit/fakes"
)

func TestOutboxNotifierWritesPendingRows(t *testing.T) {
	store := fakes.New()
	n := service.NewOutboxNotifier(store.Outbox)

	err := n.Notify(context.Background(),
		service.Notification{Kind: service.NotifyWaitlistPromoted, RecipientID: 7, MomentID: 3, MomentSlug: "catan"},
		service.Notification{Kind: service.NotifyHostNewComment, RecipientID: 1, MomentID: 3, CommentID: 9},
	)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	rows := store.Outbox.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].EventType != string(service.NotifyWaitlistPromoted) || rows[0].RecipientID != 7 ||
		rows[0].MomentID != 3 || rows[0].Status != model.OutboxPending {
		t.Fatalf("unexpected row %+v", rows[0])
	}
	var note service.Notification
	if err := json.Unmarshal([]byte(rows[1].Payload), &note); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if note.CommentID != 9 || note.OccurredAt.IsZero() {
		t.Fatalf("unexpected payload %+v", note)
	}
}

func TestOutboxRelayerRetriesThenGivesUp(t *testing.T) {
	store := fakes.New()
	ctx := context.Background()
	if err := store.Outbox.Insert(ctx, []model.Outbox{
		{EventType: "a", RecipientID: 1, Payload: "{}"},
		{EventType: "b", RecipientID: 2, Payload: "{}"},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	sender := func(_ context.Context, ob *model.Outbox) error {
		if ob.EventType == "b" {
			return errors.New("broker down")
		}
		return nil
	}
	r := service.NewOutboxRelayer(store.Outbox, sender, 10, 2, time.Second, fakes.DiscardLogger())

	if sent := r.DrainOnce(ctx); sent != 1 {
		t.Fatalf("expected 1 sent, got %d", sent)
	}
	if sent := r.DrainOnce(ctx); sent != 0 {
		t.Fatalf("expected 0 sent, got %d", sent)
	}
	rows := store.Outbox.Rows()
	if rows[0].Status != model.OutboxSent {
		t.Fatalf("expected first row sent, got %+v", rows[0])
	}
	if rows[1].Status != model.OutboxFailed || rows[1].Retry != 2 {
		t.Fatalf("expected second row failed twice, got %+v", rows[1])
	}

	calls := 0
	r = service.NewOutboxRelayer(store.Outbox, func(context.Context, *model.Outbox) error {
		calls++
		return nil
	}, 10, 2, time.Second, fakes.DiscardLogger())
	r.DrainOnce(ctx)
	if calls != 0 {
		t.Fatalf("rows past max retry must not be sent again, got %d calls", calls)
	}
}

func TestOutboxRelayerRunStopsOnCancel(t *testing.T) {
	store := fakes.New()
	r := service.NewOutboxRelayer(store.Outbox, service.LogSender(fakes.DiscardLogger()), 10, 3, 10*time.Millisecond, fakes.DiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	if err := store.Outbox.Insert(context.Background(), []model.Outbox{{EventType: "x", Payload: "{}"}}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for store.Outbox.Rows()[0].Status != model.OutboxSent {
		select {
		case <-deadline:
			t.Fatal("relayer never delivered the row")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relayer did not stop")
	}
}

func TestMailSenderSkipsUnknownRecipient(t *testing.T) {
	store := fakes.New()
	send := service.MailSender(pkg.SMTPConfig{}, store.Users, "https://example.test")
	err := send(context.Background(), &model.Outbox{ID: 1, RecipientID: 42, Payload: `{"kind":"waitlist_promoted"}`})
	if err != nil {
		t.Fatalf("expected nil for unknown recipient, got %v", err)
	}
	err = send(context.Background(), &model.Outbox{ID: 2, RecipientID: 42, Payload: `not json`})
	if err == nil {
		t.Fatal("expected decode error")
	}
}
