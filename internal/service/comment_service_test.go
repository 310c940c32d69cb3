package service_test

import (
	"context"
	"strings"
	"testing"

	"Lee_Moments/internal/errs"
	"Lee_Moments/internal/model"
	"Lee_Moments/internal/service"
)

func TestAddCommentContentBoundaries(t *testing.T) {
	e := newEnv(t)
	c := e.circle(t, hostID)
	m := e.moment(t, c.ID, 0)

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"exactly max", strings.Repeat("a", service.MaxCommentLen), nil},
		{"max after trim", "  " + strings.Repeat("b", service.MaxCommentLen) + "\n", nil},
		{"multibyte max", strings.Repeat("好", service.MaxCommentLen), nil},
		{"one over", strings.Repeat("a", service.MaxCommentLen+1), errs.ErrCommentContentTooLong},
		{"empty", "", errs.ErrCommentContentEmpty},
		{"whitespace", " \t\n ", errs.ErrCommentContentEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.comments.AddComment(context.Background(), m.ID, playerID, tt.content)
			if tt.want != nil {
				expectErr(t, err, tt.want)
				return
			}
			if err != nil {
				t.Fatalf("add: %v", err)
			}
			if got.Content != strings.TrimSpace(tt.content) {
				t.Fatal("expected trimmed content stored")
			}
		})
	}

	_, err := e.comments.AddComment(context.Background(), 9999, playerID, "hi")
	expectErr(t, err, errs.ErrMomentNotFound)
}

func TestAddCommentNotifiesHosts(t *testing.T) {
	e := newEnv(t)
	c := e.circle(t, hostID)
	m := e.moment(t, c.ID, 0)

	cm, err := e.comments.AddComment(context.Background(), m.ID, playerID, "bringing snacks")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	notes := e.notes.Of(service.NotifyHostNewComment)
	if len(notes) != 1 || notes[0].RecipientID != hostID || notes[0].CommentID != cm.ID {
		t.Fatalf("unexpected notices %+v", notes)
	}

	if _, err := e.comments.AddComment(context.Background(), m.ID, hostID, "great"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if n := len(e.notes.Of(service.NotifyHostNewComment)); n != 1 {
		t.Fatalf("host must not be notified of their own comment, got %d", n)
	}
}

func TestDeleteCommentAuthorization(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.circle(t, hostID)
	e.circle(t, 2)
	m := e.moment(t, a.ID, 0)

	add := func(author uint64) uint64 {
		cm, err := e.comments.AddComment(ctx, m.ID, author, "hello")
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		return cm.ID
	}
	byPlayer := add(playerID)
	byOther := add(playerID + 1)

	expectErr(t, e.comments.DeleteComment(ctx, byPlayer, playerID+1), errs.ErrUnauthorizedCommentDeletion)
	expectErr(t, e.comments.DeleteComment(ctx, byPlayer, 2), errs.ErrUnauthorizedCommentDeletion)
	expectErr(t, e.comments.DeleteComment(ctx, 9999, playerID), errs.ErrCommentNotFound)

	if err := e.comments.DeleteComment(ctx, byPlayer, playerID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if err := e.comments.DeleteComment(ctx, byOther, hostID); err != nil {
		t.Fatalf("host delete: %v", err)
	}
	expectErr(t, e.comments.DeleteComment(ctx, byOther, hostID), errs.ErrCommentNotFound)
}

func TestListCommentsPaginates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.circle(t, hostID)
	m := e.moment(t, c.ID, 0)
	for i := 0; i < 5; i++ {
		if _, err := e.comments.AddComment(ctx, m.ID, playerID, "msg"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	page, err := e.comments.ListComments(ctx, m.ID, 0, 3)
	if err != nil || len(page.Comments) != 3 || page.NextCursor == 0 {
		t.Fatalf("first page: %v %+v", err, page)
	}
	page, err = e.comments.ListComments(ctx, m.ID, page.NextCursor, 3)
	if err != nil || len(page.Comments) != 2 || page.NextCursor != 0 {
		t.Fatalf("second page: %v %+v", err, page)
	}
	_, err = e.comments.ListComments(ctx, 9999, 0, 3)
	expectErr(t, err, errs.ErrMomentNotFound)
}

func TestPromotedCoHostCanModerate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.circle(t, hostID)
	m := e.moment(t, c.ID, 0)
	const coHost = playerID + 5

	if _, err := e.circles.JoinCircle(ctx, c.ID, coHost); err != nil {
		t.Fatalf("join: %v", err)
	}
	cm, err := e.comments.AddComment(ctx, m.ID, playerID, "spam")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	expectErr(t, e.comments.DeleteComment(ctx, cm.ID, coHost), errs.ErrUnauthorizedCommentDeletion)

	e.store.Members.SetRole(c.ID, coHost, model.RoleHost)
	if err := e.comments.DeleteComment(ctx, cm.ID, coHost); err != nil {
		t.Fatalf("co-host delete: %v", err)
	}
}
