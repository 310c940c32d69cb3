package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"Lee_Moments/internal/model"
	"Lee_Moments/internal/service"
	"Lee_Moments/internal/testkit/fakes"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type env struct {
	store    *fakes.Store
	notes    *fakes.Notifier
	clock    *fakes.Clock
	regs     *service.RegistrationService
	circles  *service.CircleService
	moments  *service.MomentService
	comments *service.CommentService
	seq      int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := fakes.New()
	notes := &fakes.Notifier{}
	clock := fakes.NewClock(baseTime)
	d := fakes.Deps(store, notes, clock)
	regs := service.NewRegistrationService(d)
	return &env{
		store:    store,
		notes:    notes,
		clock:    clock,
		regs:     regs,
		circles:  service.NewCircleService(d, regs),
		moments:  service.NewMomentService(d, regs),
		comments: service.NewCommentService(d),
	}
}

func (e *env) circle(t *testing.T, hostID uint64) *model.Circle {
	t.Helper()
	e.seq++
	c, err := e.circles.CreateCircle(context.Background(), hostID, service.CreateCircleInput{
		Name: fmt.Sprintf("Circle %d", e.seq),
	})
	if err != nil {
		t.Fatalf("create circle: %v", err)
	}
	return c
}

// moment 直接写入一条 PUBLISHED 的 moment，一天后开始，不自动报名 host
func (e *env) moment(t *testing.T, circleID uint64, capacity int) *model.Moment {
	t.Helper()
	e.seq++
	m := model.Moment{
		Slug:         fmt.Sprintf("moment-%d", e.seq),
		CircleID:     circleID,
		Title:        fmt.Sprintf("Moment %d", e.seq),
		StartsAt:     e.clock.Now().Add(24 * time.Hour),
		LocationType: model.LocationInPerson,
		Status:       model.MomentPublished,
	}
	if capacity > 0 {
		m.Capacity = &capacity
	}
	return e.store.Moments.Put(m)
}

func (e *env) join(t *testing.T, momentID, userID uint64) *model.Registration {
	t.Helper()
	reg, err := e.regs.JoinMoment(context.Background(), momentID, userID)
	if err != nil {
		t.Fatalf("join moment %d as %d: %v", momentID, userID, err)
	}
	e.clock.Advance(time.Second)
	return reg
}

func (e *env) registration(t *testing.T, id uint64) *model.Registration {
	t.Helper()
	reg, err := e.store.Registrations.FindByID(context.Background(), id)
	if err != nil || reg == nil {
		t.Fatalf("registration %d missing: %v", id, err)
	}
	return reg
}

func expectErr(t *testing.T, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func intPtr(v int) *int { return &v }
