package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"Lee_Moments/internal/errs"
	"Lee_Moments/internal/model"
	"Lee_Moments/internal/service"
)

func momentInput(circleID uint64, start time.Time) service.CreateMomentInput {
	return service.CreateMomentInput{
		CircleID:     circleID,
		Title:        "Friday Catan",
		StartsAt:     start,
		LocationType: model.LocationInPerson,
	}
}

func TestCreateMomentAutoRegistersHost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.circle(t, hostID)

	in := momentInput(c.ID, baseTime.Add(48*time.Hour))
	in.Capacity = intPtr(2)
	m, err := e.moments.CreateMoment(ctx, hostID, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Status != model.MomentPublished || m.Slug != "friday-catan" || m.CreatedByID != hostID {
		t.Fatalf("unexpected moment %+v", m)
	}

	rows := e.store.Registrations.ByMoment(m.ID)
	if len(rows) != 1 || rows[0].UserID != hostID || rows[0].Status != model.RegistrationRegistered {
		t.Fatalf("expected host registered, got %+v", rows)
	}

	// host 占了一个座位
	e.join(t, m.ID, 201)
	if reg := e.join(t, m.ID, 202); reg.Status != model.RegistrationWaitlisted {
		t.Fatalf("expected WAITLISTED, got %s", reg.Status)
	}

	got, err := e.moments.GetMoment(ctx, "friday-catan")
	if err != nil || got.ID != m.ID {
		t.Fatalf("get moment: %v %+v", err, got)
	}
	_, err = e.moments.GetMoment(ctx, "missing")
	expectErr(t, err, errs.ErrMomentNotFound)
}

func TestCreateMomentRequiresHostOfTargetCircle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.circle(t, hostID)
	e.circle(t, 2)
	if _, err := e.circles.JoinCircle(ctx, a.ID, playerID); err != nil {
		t.Fatalf("join: %v", err)
	}

	in := momentInput(a.ID, baseTime.Add(time.Hour))
	_, err := e.moments.CreateMoment(ctx, playerID, in)
	expectErr(t, err, errs.ErrUnauthorizedMomentAction)
	_, err = e.moments.CreateMoment(ctx, 2, in)
	expectErr(t, err, errs.ErrUnauthorizedMomentAction)

	in.CircleID = 9999
	_, err = e.moments.CreateMoment(ctx, hostID, in)
	expectErr(t, err, errs.ErrCircleNotFound)
}

func TestCreateMomentValidation(t *testing.T) {
	e := newEnv(t)
	c := e.circle(t, hostID)
	future := baseTime.Add(time.Hour)
	before := future.Add(-time.Minute)

	tests := []struct {
		name   string
		mutate func(*service.CreateMomentInput)
	}{
		{"blank title", func(in *service.CreateMomentInput) { in.Title = "  " }},
		{"no start", func(in *service.CreateMomentInput) { in.StartsAt = time.Time{} }},
		{"start in past", func(in *service.CreateMomentInput) { in.StartsAt = baseTime.Add(-time.Hour) }},
		{"end before start", func(in *service.CreateMomentInput) { in.EndsAt = &before }},
		{"zero capacity", func(in *service.CreateMomentInput) { in.Capacity = intPtr(0) }},
		{"bad location", func(in *service.CreateMomentInput) { in.LocationType = "MOON" }},
		{"negative price", func(in *service.CreateMomentInput) { in.Price = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := momentInput(c.ID, future)
			tt.mutate(&in)
			_, err := e.moments.CreateMoment(context.Background(), hostID, in)
			if errs.CodeOf(err) != errs.CodeInvalidArgument {
				t.Fatalf("expected invalid argument, got %v", err)
			}
		})
	}
}

func TestCreateMomentSlugCollision(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.circle(t, hostID)
	e.moments.SetSlugSuffix(func(base string) string { return base + "-ab12cd" })

	in := momentInput(c.ID, baseTime.Add(time.Hour))
	if _, err := e.moments.CreateMoment(ctx, hostID, in); err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := e.moments.CreateMoment(ctx, hostID, in)
	if err != nil || second.Slug != "friday-catan-ab12cd" {
		t.Fatalf("second: %v %+v", err, second)
	}
	_, err = e.moments.CreateMoment(ctx, hostID, in)
	expectErr(t, err, errs.ErrMomentSlugAlreadyExists)
}

func TestUpdateAndDeleteMomentResolveCircleFromMoment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.circle(t, hostID)
	e.circle(t, 2)
	m := e.moment(t, a.ID, 0)

	title := "Hijacked"
	_, err := e.moments.UpdateMoment(ctx, m.ID, 2, service.UpdateMomentInput{Title: &title})
	expectErr(t, err, errs.ErrUnauthorizedMomentAction)
	expectErr(t, e.moments.DeleteMoment(ctx, m.ID, 2), errs.ErrUnauthorizedMomentAction)
	_, err = e.moments.CancelMoment(ctx, m.ID, 2)
	expectErr(t, err, errs.ErrUnauthorizedMomentAction)

	_, err = e.moments.UpdateMoment(ctx, 9999, hostID, service.UpdateMomentInput{Title: &title})
	expectErr(t, err, errs.ErrMomentNotFound)

	e.join(t, m.ID, playerID)
	if _, err := e.comments.AddComment(ctx, m.ID, playerID, "see you"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if err := e.moments.DeleteMoment(ctx, m.ID, hostID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rows := e.store.Registrations.ByMoment(m.ID); len(rows) != 0 {
		t.Fatalf("expected registrations removed, got %d", len(rows))
	}
	_, err = e.regs.JoinMoment(ctx, m.ID, playerID)
	expectErr(t, err, errs.ErrMomentNotFound)
}

func TestUpdateMomentCapacityIncreasePromotes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.circle(t, hostID)
	m := e.moment(t, c.ID, 1)

	e.join(t, m.ID, 201)
	w1 := e.join(t, m.ID, 202)
	w2 := e.join(t, m.ID, 203)
	w3 := e.join(t, m.ID, 204)
	e.notes.Reset()

	_, err := e.moments.UpdateMoment(ctx, m.ID, hostID, service.UpdateMomentInput{Capacity: intPtr(3)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if e.registration(t, w1.ID).Status != model.RegistrationRegistered ||
		e.registration(t, w2.ID).Status != model.RegistrationRegistered {
		t.Fatal("expected the two oldest waitlisted promoted")
	}
	if e.registration(t, w3.ID).Status != model.RegistrationWaitlisted {
		t.Fatal("expected the newest waitlisted to keep waiting")
	}
	if n := len(e.notes.Of(service.NotifyWaitlistPromoted)); n != 2 {
		t.Fatalf("expected 2 promotion notices, got %d", n)
	}
	if n := len(e.notes.Of(service.NotifyMomentUpdated)); n != 4 {
		t.Fatalf("expected 4 update notices, got %d", n)
	}

	_, err = e.moments.UpdateMoment(ctx, m.ID, hostID, service.UpdateMomentInput{ClearCapacity: true})
	if err != nil {
		t.Fatalf("clear capacity: %v", err)
	}
	if e.registration(t, w3.ID).Status != model.RegistrationRegistered {
		t.Fatal("expected everyone promoted once capacity is unlimited")
	}
}

func TestUpdateMomentRejectsCapacityBelowSeated(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.circle(t, hostID)
	m := e.moment(t, c.ID, 3)
	e.join(t, m.ID, 201)
	e.join(t, m.ID, 202)

	_, err := e.moments.UpdateMoment(ctx, m.ID, hostID, service.UpdateMomentInput{Capacity: intPtr(1)})
	if errs.CodeOf(err) != errs.CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	got, _ := e.store.Moments.FindByID(ctx, m.ID)
	if *got.Capacity != 3 {
		t.Fatalf("capacity must be unchanged, got %d", *got.Capacity)
	}
}

func TestCancelMomentClosesRegistration(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.circle(t, hostID)
	m := e.moment(t, c.ID, 0)
	e.join(t, m.ID, 201)
	e.join(t, m.ID, 202)

	got, err := e.moments.CancelMoment(ctx, m.ID, hostID)
	if err != nil || got.Status != model.MomentCancelled {
		t.Fatalf("cancel: %v %+v", err, got)
	}
	if n := len(e.notes.Of(service.NotifyMomentCancelled)); n != 2 {
		t.Fatalf("expected 2 cancellation notices, got %d", n)
	}
	_, err = e.regs.JoinMoment(ctx, m.ID, 203)
	expectErr(t, err, errs.ErrMomentNotOpenForRegistration)

	if _, err := e.moments.CancelMoment(ctx, m.ID, hostID); err != nil {
		t.Fatalf("cancelling twice should be a no-op: %v", err)
	}
}

func TestAdminCancelMoment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.circle(t, hostID)
	m := e.moment(t, c.ID, 0)
	e.store.Users.Put(model.User{ID: 900, Username: "root", Role: model.UserRoleAdmin})
	e.store.Users.Put(model.User{ID: 901, Username: "joe", Role: model.UserRoleMember})

	_, err := e.moments.AdminCancelMoment(ctx, m.ID, 901)
	expectErr(t, err, errs.ErrAdminUnauthorized)
	_, err = e.moments.AdminCancelMoment(ctx, m.ID, 999)
	expectErr(t, err, errs.ErrUserNotFound)

	got, err := e.moments.AdminCancelMoment(ctx, m.ID, 900)
	if err != nil || got.Status != model.MomentCancelled {
		t.Fatalf("admin cancel: %v %+v", err, got)
	}

	past := e.moment(t, c.ID, 0)
	past.Status = model.MomentPast
	e.store.Moments.Put(*past)
	_, err = e.moments.AdminCancelMoment(ctx, past.ID, 900)
	if errs.CodeOf(err) != errs.CodeInvalidArgument {
		t.Fatalf("expected invalid argument for past moment, got %v", err)
	}
}

func TestCreateMomentRollsBackWhenHostRegistrationFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.circle(t, hostID)
	in := momentInput(c.ID, baseTime.Add(time.Hour))

	e.store.CreateRegistrationErr = errors.New("db down")
	if _, err := e.moments.CreateMoment(ctx, hostID, in); err == nil {
		t.Fatal("expected create to fail")
	}
	if m, _ := e.store.Moments.FindBySlug(ctx, "friday-catan"); m != nil {
		t.Fatalf("moment must not survive a failed host registration: %+v", m)
	}

	e.store.CreateRegistrationErr = nil
	m, err := e.moments.CreateMoment(ctx, hostID, in)
	if err != nil || m.Slug != "friday-catan" {
		t.Fatalf("retry: %v %+v", err, m)
	}
	if rows := e.store.Registrations.ByMoment(m.ID); len(rows) != 1 || rows[0].UserID != hostID {
		t.Fatalf("expected host registered, got %+v", rows)
	}
}
