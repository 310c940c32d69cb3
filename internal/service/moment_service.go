package service

import (
	"context"
	"strings"
	"time"

	"Lee_Moments/internal/errs"
	"Lee_Moments/internal/model"
	"Lee_Moments/internal/pkg"
)

type MomentService struct {
	d      Deps
	regs   *RegistrationService
	suffix func(string) string
}

type CreateMomentInput struct {
	CircleID     uint64             `json:"circle_id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	StartsAt     time.Time          `json:"starts_at"`
	EndsAt       *time.Time         `json:"ends_at"`
	LocationType model.LocationType `json:"location_type"`
	LocationName string             `json:"location_name"`
	Address      string             `json:"address"`
	OnlineURL    string             `json:"online_url"`
	Capacity     *int               `json:"capacity"`
	Price        int64              `json:"price"`
	Currency     string             `json:"currency"`
}

// UpdateMomentInput nil 字段不修改；ClearCapacity 为 true 时改为不限人数
type UpdateMomentInput struct {
	Title         *string             `json:"title"`
	Description   *string             `json:"description"`
	StartsAt      *time.Time          `json:"starts_at"`
	EndsAt        *time.Time          `json:"ends_at"`
	LocationType  *model.LocationType `json:"location_type"`
	LocationName  *string             `json:"location_name"`
	Address       *string             `json:"address"`
	OnlineURL     *string             `json:"online_url"`
	Capacity      *int                `json:"capacity"`
	ClearCapacity bool                `json:"clear_capacity"`
}

func NewMomentService(d Deps, regs *RegistrationService) *MomentService {
	return &MomentService{d: d, regs: regs, suffix: pkg.SlugSuffix}
}

func validateSchedule(startsAt time.Time, endsAt *time.Time) error {
	if startsAt.IsZero() {
		return errs.Invalid("starts_at required")
	}
	if endsAt != nil && !endsAt.After(startsAt) {
		return errs.Invalid("ends_at must be after starts_at")
	}
	return nil
}

func validateCapacity(capacity *int) error {
	if capacity != nil && *capacity < 1 {
		return errs.Invalid("capacity must be at least 1")
	}
	return nil
}

// CreateMoment HOST 发布活动，创建者自动报名
func (s *MomentService) CreateMoment(ctx context.Context, userID uint64, in CreateMomentInput) (*model.Moment, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, errs.Invalid("title required")
	}
	if err := validateSchedule(in.StartsAt, in.EndsAt); err != nil {
		return nil, err
	}
	if !in.StartsAt.After(s.d.now()) {
		return nil, errs.Invalid("starts_at must be in the future")
	}
	if in.LocationType == "" {
		in.LocationType = model.LocationInPerson
	}
	if !in.LocationType.Valid() {
		return nil, errs.Invalid("unknown location_type")
	}
	if err := validateCapacity(in.Capacity); err != nil {
		return nil, err
	}
	if in.Price < 0 {
		return nil, errs.Invalid("price must not be negative")
	}

	c, err := s.d.Circles.FindByID(ctx, in.CircleID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errs.ErrCircleNotFound
	}
	if err := s.d.requireHost(ctx, c.ID, userID, errs.ErrUnauthorizedMomentAction); err != nil {
		return nil, err
	}

	base := pkg.Slugify(title)
	if base == "" {
		base = s.suffix("moment")
	}
	slug, err := uniqueSlug(ctx, base, s.d.Moments.SlugExists, s.suffix, errs.ErrMomentSlugAlreadyExists)
	if err != nil {
		return nil, err
	}

	m := &model.Moment{
		Slug:         slug,
		CircleID:     c.ID,
		CreatedByID:  userID,
		Title:        title,
		Description:  in.Description,
		StartsAt:     in.StartsAt,
		EndsAt:       in.EndsAt,
		LocationType: in.LocationType,
		LocationName: in.LocationName,
		Address:      in.Address,
		OnlineURL:    in.OnlineURL,
		Capacity:     in.Capacity,
		Price:        in.Price,
		Currency:     in.Currency,
		Status:       model.MomentPublished,
	}
	// moment 和创建者的报名同一事务写入
	err = s.d.inTx(ctx, func(ctx context.Context) error {
		if err := s.d.Moments.Create(ctx, m); err != nil {
			return err
		}
		return s.d.Registrations.Create(ctx, &model.Registration{
			MomentID:     m.ID,
			UserID:       userID,
			Status:       model.RegistrationRegistered,
			RegisteredAt: s.d.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	s.d.Logger.Info("moment created", "moment", m.ID, "slug", m.Slug, "circle", c.ID, "host", userID)
	return m, nil
}

func (s *MomentService) GetMoment(ctx context.Context, slug string) (*model.Moment, error) {
	m, err := s.d.Moments.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errs.ErrMomentNotFound
	}
	return m, nil
}

// UpdateMoment 扩容或取消人数上限时按 FIFO 递补候补
func (s *MomentService) UpdateMoment(ctx context.Context, momentID, userID uint64, in UpdateMomentInput) (*model.Moment, error) {
	if _, err := s.d.hostMoment(ctx, momentID, userID); err != nil {
		return nil, err
	}

	unlock, err := s.d.lockMoment(ctx, momentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		m        *model.Moment
		promoted []*model.Registration
	)
	err = s.d.inTx(ctx, func(ctx context.Context) error {
		m, err = s.d.lockMomentRow(ctx, momentID)
		if err != nil {
			return err
		}
		grow, err := s.apply(ctx, m, in)
		if err != nil {
			return err
		}
		if err := s.d.Moments.Update(ctx, m); err != nil {
			return err
		}
		if grow && m.Status == model.MomentPublished {
			promoted, err = s.regs.promoteLocked(ctx, m, -1)
			if err != nil {
				return err
			}
		}
		s.d.notifyRegistrants(ctx, NotifyMomentUpdated, m, userID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.d.Logger.Info("moment updated", "moment", m.ID, "host", userID, "promoted", len(promoted))
	return m, nil
}

// apply 把修改写到 m 上，返回人数上限是否变大
func (s *MomentService) apply(ctx context.Context, m *model.Moment, in UpdateMomentInput) (bool, error) {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return false, errs.Invalid("title required")
		}
		m.Title = title
	}
	if in.Description != nil {
		m.Description = *in.Description
	}
	if in.StartsAt != nil {
		m.StartsAt = *in.StartsAt
	}
	if in.EndsAt != nil {
		m.EndsAt = in.EndsAt
	}
	if err := validateSchedule(m.StartsAt, m.EndsAt); err != nil {
		return false, err
	}
	if in.LocationType != nil {
		if !in.LocationType.Valid() {
			return false, errs.Invalid("unknown location_type")
		}
		m.LocationType = *in.LocationType
	}
	if in.LocationName != nil {
		m.LocationName = *in.LocationName
	}
	if in.Address != nil {
		m.Address = *in.Address
	}
	if in.OnlineURL != nil {
		m.OnlineURL = *in.OnlineURL
	}

	switch {
	case in.ClearCapacity:
		grow := m.Capacity != nil
		m.Capacity = nil
		return grow, nil
	case in.Capacity != nil:
		if err := validateCapacity(in.Capacity); err != nil {
			return false, err
		}
		seated, err := s.regs.seated(ctx, m.ID)
		if err != nil {
			return false, err
		}
		if int64(*in.Capacity) < seated {
			return false, errs.Invalid("capacity below confirmed registrations")
		}
		grow := m.Capacity != nil && *in.Capacity > *m.Capacity
		c := *in.Capacity
		m.Capacity = &c
		return grow, nil
	}
	return false, nil
}

func (s *MomentService) DeleteMoment(ctx context.Context, momentID, userID uint64) error {
	m, err := s.d.hostMoment(ctx, momentID, userID)
	if err != nil {
		return err
	}
	unlock, err := s.d.lockMoment(ctx, m.ID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.d.Moments.Delete(ctx, m.ID); err != nil {
		return err
	}
	s.d.Logger.Info("moment deleted", "moment", m.ID, "host", userID)
	return nil
}

// CancelMoment 所属 circle 的 HOST 取消活动
func (s *MomentService) CancelMoment(ctx context.Context, momentID, userID uint64) (*model.Moment, error) {
	if _, err := s.d.hostMoment(ctx, momentID, userID); err != nil {
		return nil, err
	}
	return s.cancel(ctx, momentID, userID)
}

// AdminCancelMoment 平台管理员取消任意活动
func (s *MomentService) AdminCancelMoment(ctx context.Context, momentID, adminID uint64) (*model.Moment, error) {
	if err := s.d.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return s.cancel(ctx, momentID, adminID)
}

func (s *MomentService) cancel(ctx context.Context, momentID, actorID uint64) (*model.Moment, error) {
	unlock, err := s.d.lockMoment(ctx, momentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var m *model.Moment
	err = s.d.inTx(ctx, func(ctx context.Context) error {
		m, err = s.d.lockMomentRow(ctx, momentID)
		if err != nil {
			return err
		}
		switch m.Status {
		case model.MomentCancelled:
			return nil
		case model.MomentPast:
			return errs.Invalid("moment is already past")
		}
		m.Status = model.MomentCancelled
		if err := s.d.Moments.Update(ctx, m); err != nil {
			return err
		}
		s.d.notifyRegistrants(ctx, NotifyMomentCancelled, m, actorID)
		s.d.Logger.Info("moment cancelled", "moment", m.ID, "actor", actorID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
