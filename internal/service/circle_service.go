package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"Lee_Moments/internal/errs"
	"Lee_Moments/internal/model"
	"Lee_Moments/internal/pkg"
)

const maxCircleNameLen = 64

type CircleService struct {
	d      Deps
	regs   *RegistrationService
	suffix func(string) string
}

type CreateCircleInput struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Visibility  model.Visibility `json:"visibility"`
	Category    string           `json:"category"`
	City        string           `json:"city"`
}

type UpdateCircleInput struct {
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	Visibility  *model.Visibility `json:"visibility"`
	Category    *string           `json:"category"`
	City        *string           `json:"city"`
}

type LeaveResult struct {
	CancelledRegistrations int `json:"cancelled_registrations"`
	PromotedRegistrations  int `json:"promoted_registrations"`
}

func NewCircleService(d Deps, regs *RegistrationService) *CircleService {
	return &CircleService{d: d, regs: regs, suffix: pkg.SlugSuffix}
}

func validCircleName(name string) error {
	if name == "" {
		return errs.Invalid("circle name required")
	}
	if utf8.RuneCountInString(name) > maxCircleNameLen {
		return errs.Invalid("circle name too long")
	}
	return nil
}

func validVisibility(v model.Visibility) error {
	if v != model.VisibilityPublic && v != model.VisibilityPrivate {
		return errs.Invalid("visibility must be PUBLIC or PRIVATE")
	}
	return nil
}

// CreateCircle 创建者自动成为唯一的 HOST
func (s *CircleService) CreateCircle(ctx context.Context, userID uint64, in CreateCircleInput) (*model.Circle, error) {
	name := strings.TrimSpace(in.Name)
	if err := validCircleName(name); err != nil {
		return nil, err
	}
	if in.Visibility == "" {
		in.Visibility = model.VisibilityPublic
	}
	if err := validVisibility(in.Visibility); err != nil {
		return nil, err
	}

	base := pkg.Slugify(name)
	if base == "" {
		base = s.suffix("circle")
	}
	slug, err := uniqueSlug(ctx, base, s.d.Circles.SlugExists, s.suffix, errs.ErrSlugAlreadyExists)
	if err != nil {
		return nil, err
	}

	c := &model.Circle{
		Slug:        slug,
		Name:        name,
		Description: in.Description,
		Visibility:  in.Visibility,
		Category:    in.Category,
		City:        in.City,
		CreatedByID: userID,
	}
	if err := s.d.Circles.Create(ctx, c, userID); err != nil {
		return nil, err
	}
	s.d.Logger.Info("circle created", "circle", c.ID, "slug", c.Slug, "host", userID)
	return c, nil
}

func (s *CircleService) GetCircle(ctx context.Context, slug string) (*model.Circle, error) {
	c, err := s.d.Circles.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errs.ErrCircleNotFound
	}
	return c, nil
}

func (s *CircleService) findCircle(ctx context.Context, circleID uint64) (*model.Circle, error) {
	c, err := s.d.Circles.FindByID(ctx, circleID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errs.ErrCircleNotFound
	}
	return c, nil
}

func (s *CircleService) UpdateCircle(ctx context.Context, circleID, userID uint64, in UpdateCircleInput) (*model.Circle, error) {
	c, err := s.findCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	if err := s.d.requireHost(ctx, c.ID, userID, errs.ErrUnauthorizedCircleAction); err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validCircleName(name); err != nil {
			return nil, err
		}
		c.Name = name
	}
	if in.Visibility != nil {
		if err := validVisibility(*in.Visibility); err != nil {
			return nil, err
		}
		c.Visibility = *in.Visibility
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Category != nil {
		c.Category = *in.Category
	}
	if in.City != nil {
		c.City = *in.City
	}
	if err := s.d.Circles.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CircleService) DeleteCircle(ctx context.Context, circleID, userID uint64) error {
	c, err := s.findCircle(ctx, circleID)
	if err != nil {
		return err
	}
	if err := s.d.requireHost(ctx, c.ID, userID, errs.ErrUnauthorizedCircleAction); err != nil {
		return err
	}
	if err := s.d.Circles.Delete(ctx, c.ID); err != nil {
		return err
	}
	s.d.Logger.Info("circle deleted", "circle", c.ID, "host", userID)
	return nil
}

// JoinCircle 幂等加入，已是成员时保持原角色
func (s *CircleService) JoinCircle(ctx context.Context, circleID, userID uint64) (*model.CircleMember, error) {
	if _, err := s.findCircle(ctx, circleID); err != nil {
		return nil, err
	}
	if err := s.d.ensureMember(ctx, circleID, userID); err != nil {
		return nil, err
	}
	return s.d.Members.FindMembership(ctx, circleID, userID)
}

func (s *CircleService) FollowCircle(ctx context.Context, circleID, userID uint64) error {
	if _, err := s.findCircle(ctx, circleID); err != nil {
		return err
	}
	changed, err := s.d.Follows.Follow(ctx, circleID, userID)
	if err != nil {
		return err
	}
	if !changed {
		return errs.ErrAlreadyFollowingCircle
	}
	return nil
}

func (s *CircleService) UnfollowCircle(ctx context.Context, circleID, userID uint64) error {
	if _, err := s.findCircle(ctx, circleID); err != nil {
		return err
	}
	changed, err := s.d.Follows.Unfollow(ctx, circleID, userID)
	if err != nil {
		return err
	}
	if !changed {
		return errs.ErrNotFollowingCircle
	}
	return nil
}

// LeaveCircle PLAYER 退出：取消其在该 circle 所有未开始的有效报名并逐个递补
func (s *CircleService) LeaveCircle(ctx context.Context, circleID, userID uint64) (*LeaveResult, error) {
	mem, err := s.d.Members.FindMembership(ctx, circleID, userID)
	if err != nil {
		return nil, err
	}
	if mem == nil {
		return nil, errs.ErrNotMemberOfCircle
	}
	if mem.IsHost() {
		return nil, errs.ErrCannotLeaveAsHost
	}

	regs, err := s.d.Registrations.FindFutureActiveByUserAndCircle(ctx, userID, circleID, s.d.now())
	if err != nil {
		return nil, err
	}
	res := &LeaveResult{}
	for _, r := range regs {
		promoted, cancelled, err := s.cancelForLeave(ctx, r.ID, r.MomentID)
		if err != nil {
			return nil, err
		}
		if cancelled {
			res.CancelledRegistrations++
		}
		if promoted {
			res.PromotedRegistrations++
		}
	}

	if err := s.d.Members.RemoveMembership(ctx, circleID, userID); err != nil {
		return nil, err
	}
	if _, err := s.d.Follows.Unfollow(ctx, circleID, userID); err != nil {
		s.d.Logger.Warn("unfollow on leave failed", "circle", circleID, "user", userID, "error", err)
	}
	s.d.Logger.Info("circle left", "circle", circleID, "user", userID,
		"cancelled", res.CancelledRegistrations, "promoted", res.PromotedRegistrations)
	return res, nil
}

func (s *CircleService) cancelForLeave(ctx context.Context, registrationID, momentID uint64) (promoted, cancelled bool, err error) {
	unlock, err := s.d.lockMoment(ctx, momentID)
	if err != nil {
		return false, false, err
	}
	defer unlock()

	err = s.d.inTx(ctx, func(ctx context.Context) error {
		m, err := s.d.Moments.FindByIDForUpdate(ctx, momentID)
		if err != nil || m == nil {
			return err
		}
		reg, err := s.d.Registrations.FindByID(ctx, registrationID)
		if err != nil || !reg.Active() {
			return err
		}
		p, err := s.regs.cancelLocked(ctx, m, reg)
		if err != nil {
			return err
		}
		promoted, cancelled = p != nil, true
		return nil
	})
	if err != nil {
		return false, false, err
	}
	return promoted, cancelled, nil
}
