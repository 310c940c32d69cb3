package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"Lee_Moments/internal/errs"
	"Lee_Moments/internal/model"
	"Lee_Moments/internal/pkg"
	"Lee_Moments/internal/service"
	"Lee_Moments/internal/testkit/fakes"
)

func TestCircleDeleteRemovesItsMoments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	circles := &CircleRepository{DB: db}
	moments := &MomentRepository{DB: db}
	regs := &RegistrationRepository{DB: db}
	comments := &CommentRepository{DB: db}

	c := &model.Circle{Slug: "hikers", Name: "Hikers", Visibility: model.VisibilityPublic, CreatedByID: 1}
	other := &model.Circle{Slug: "climbers", Name: "Climbers", Visibility: model.VisibilityPublic, CreatedByID: 1}
	for _, circle := range []*model.Circle{c, other} {
		if err := circles.Create(ctx, circle, 1); err != nil {
			t.Fatalf("create circle: %v", err)
		}
	}
	doomed := &model.Moment{Slug: "ridge", CircleID: c.ID, Title: "Ridge", StartsAt: t0.Add(24 * time.Hour),
		LocationType: model.LocationInPerson, Status: model.MomentPublished}
	kept := &model.Moment{Slug: "wall", CircleID: other.ID, Title: "Wall", StartsAt: t0.Add(24 * time.Hour),
		LocationType: model.LocationInPerson, Status: model.MomentPublished}
	for _, m := range []*model.Moment{doomed, kept} {
		if err := moments.Create(ctx, m); err != nil {
			t.Fatalf("create moment: %v", err)
		}
		if err := regs.Create(ctx, &model.Registration{MomentID: m.ID, UserID: 7, Status: model.RegistrationRegistered, RegisteredAt: t0}); err != nil {
			t.Fatalf("create registration: %v", err)
		}
		if err := comments.Create(ctx, &model.Comment{MomentID: m.ID, UserID: 7, Content: "hi", CreatedAt: t0}); err != nil {
			t.Fatalf("create comment: %v", err)
		}
	}

	if err := circles.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if m, _ := moments.FindByID(ctx, doomed.ID); m != nil {
		t.Fatal("expected the circle's moment removed")
	}
	if r, _ := regs.FindByMomentAndUser(ctx, doomed.ID, 7); r != nil {
		t.Fatal("expected the moment's registrations removed")
	}
	if list, _, _ := comments.ListByMoment(ctx, doomed.ID, 0, 10); len(list) != 0 {
		t.Fatal("expected the moment's comments removed")
	}

	if m, _ := moments.FindByID(ctx, kept.ID); m == nil {
		t.Fatal("moments of other circles must survive")
	}
	if r, _ := regs.FindByMomentAndUser(ctx, kept.ID, 7); r == nil {
		t.Fatal("registrations of other circles must survive")
	}
}

func TestTxManagerRollsBackAllWrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	txm := &TxManager{DB: db}
	moments := &MomentRepository{DB: db}
	regs := &RegistrationRepository{DB: db}
	boom := errors.New("boom")

	err := txm.InTx(ctx, func(ctx context.Context) error {
		m := &model.Moment{Slug: "lost", CircleID: 1, Title: "Lost", StartsAt: t0,
			LocationType: model.LocationOnline, Status: model.MomentPublished}
		if err := moments.Create(ctx, m); err != nil {
			return err
		}
		// 嵌套调用复用外层事务
		if err := txm.InTx(ctx, func(ctx context.Context) error {
			return regs.Create(ctx, &model.Registration{MomentID: m.ID, UserID: 1, Status: model.RegistrationRegistered, RegisteredAt: t0})
		}); err != nil {
			return err
		}
		if locked, err := moments.FindByIDForUpdate(ctx, m.ID); err != nil || locked == nil {
			t.Fatalf("row lock read inside tx: %+v %v", locked, err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if ok, _ := moments.SlugExists(ctx, "lost"); ok {
		t.Fatal("moment must be rolled back")
	}
	var n int64
	db.Model(&model.Registration{}).Count(&n)
	if n != 0 {
		t.Fatalf("registration must be rolled back, found %d", n)
	}
}

// failingRegistrations 报名写入总是失败
type failingRegistrations struct {
	*RegistrationRepository
}

func (failingRegistrations) Create(context.Context, *model.Registration) error {
	return errors.New("db down")
}

func TestCreateMomentIsAtomicOnSQL(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	circles := &CircleRepository{DB: db}
	c := &model.Circle{Slug: "readers", Name: "Readers", Visibility: model.VisibilityPublic, CreatedByID: 1}
	if err := circles.Create(ctx, c, 1); err != nil {
		t.Fatalf("create circle: %v", err)
	}

	moments := &MomentRepository{DB: db}
	d := service.Deps{
		Circles:       circles,
		Members:       &CircleMemberRepository{DB: db},
		Follows:       &CircleFollowRepository{DB: db},
		Moments:       moments,
		Registrations: failingRegistrations{&RegistrationRepository{DB: db}},
		Comments:      &CommentRepository{DB: db},
		Users:         &UserRepository{DB: db},
		Tx:            &TxManager{DB: db},
		Locker:        pkg.NewKeyedMutex(),
		Logger:        fakes.DiscardLogger(),
		Now:           func() time.Time { return t0 },
	}
	svc := service.NewMomentService(d, service.NewRegistrationService(d))

	_, err := svc.CreateMoment(ctx, 1, service.CreateMomentInput{
		CircleID: c.ID, Title: "Book Night", StartsAt: t0.Add(time.Hour), LocationType: model.LocationInPerson,
	})
	if err == nil || errs.CodeOf(err) != errs.CodeUnknown {
		t.Fatalf("expected storage error, got %v", err)
	}
	if ok, _ := moments.SlugExists(ctx, "book-night"); ok {
		t.Fatal("moment without its host registration must not be persisted")
	}
}
