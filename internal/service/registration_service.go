package service

import (
	"context"

	"Lee_Moments/internal/errs"
	"Lee_Moments/internal/model"
)

type RegistrationService struct {
	d Deps
}

type CancelResult struct {
	Registration *model.Registration `json:"registration"`
	Promoted     *model.Registration `json:"promoted_registration"`
}

func NewRegistrationService(d Deps) *RegistrationService {
	return &RegistrationService{d: d}
}

// JoinMoment 报名：有空位则 REGISTERED，否则 WAITLISTED
func (s *RegistrationService) JoinMoment(ctx context.Context, momentID, userID uint64) (*model.Registration, error) {
	unlock, err := s.d.lockMoment(ctx, momentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var reg *model.Registration
	err = s.d.inTx(ctx, func(ctx context.Context) error {
		m, err := s.d.lockMomentRow(ctx, momentID)
		if err != nil {
			return err
		}
		now := s.d.now()
		if m.Status != model.MomentPublished {
			return errs.ErrMomentNotOpenForRegistration
		}
		if !m.StartsAt.After(now) {
			return errs.ErrMomentAlreadyStarted
		}
		if m.Price != 0 {
			return errs.ErrPaidMomentNotSupported
		}

		existing, err := s.d.Registrations.FindByMomentAndUser(ctx, momentID, userID)
		if err != nil {
			return err
		}
		if existing.Active() {
			return errs.ErrAlreadyRegistered
		}

		status, err := s.seatStatus(ctx, m)
		if err != nil {
			return err
		}
		if err := s.d.ensureMember(ctx, m.CircleID, userID); err != nil {
			return err
		}

		if existing != nil {
			// 取消过的行直接复用，不插新行
			reg = existing
			reg.Status = status
			reg.RegisteredAt = now
			reg.CancelledAt = nil
			reg.CheckedInAt = nil
			if err := s.d.Registrations.Update(ctx, reg); err != nil {
				return err
			}
		} else {
			reg = &model.Registration{
				MomentID:     momentID,
				UserID:       userID,
				Status:       status,
				RegisteredAt: now,
			}
			if err := s.d.Registrations.Create(ctx, reg); err != nil {
				return err
			}
		}

		kind := NotifyRegistrationConfirmed
		if status == model.RegistrationWaitlisted {
			kind = NotifyRegistrationWaitlisted
		}
		note := momentNotification(kind, m, userID)
		note.RegistrationID = reg.ID
		s.d.notify(ctx, note)
		s.d.notifyHosts(ctx, NotifyHostNewRegistration, m, userID, func(n *Notification) {
			n.RegistrationID = reg.ID
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.d.Logger.Info("moment joined", "moment", momentID, "user", userID, "registration", reg.ID, "status", reg.Status)
	return reg, nil
}

// CancelRegistration 取消自己的报名；释放的座位按 FIFO 递补
func (s *RegistrationService) CancelRegistration(ctx context.Context, registrationID, userID uint64) (*CancelResult, error) {
	reg, err := s.d.Registrations.FindByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if !reg.Active() {
		return nil, errs.ErrRegistrationNotFound
	}
	if reg.UserID != userID {
		return nil, errs.ErrUnauthorizedRegistrationAction
	}
	m, err := s.d.Moments.FindByID(ctx, reg.MomentID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errs.ErrRegistrationNotFound
	}
	host, err := s.d.isHost(ctx, m.CircleID, userID)
	if err != nil {
		return nil, err
	}
	if host {
		return nil, errs.ErrHostCannotCancelRegistration
	}

	unlock, err := s.d.lockMoment(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var promoted *model.Registration
	err = s.d.inTx(ctx, func(ctx context.Context) error {
		locked, err := s.d.lockMomentRow(ctx, m.ID)
		if err != nil {
			return err
		}
		// 拿到锁后重新读一次，防止并发重复取消
		reg, err = s.d.Registrations.FindByID(ctx, registrationID)
		if err != nil {
			return err
		}
		if !reg.Active() {
			return errs.ErrRegistrationNotFound
		}
		promoted, err = s.cancelLocked(ctx, locked, reg)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.d.Logger.Info("registration cancelled", "registration", reg.ID, "moment", m.ID, "promoted", promoted != nil)
	return &CancelResult{Registration: reg, Promoted: promoted}, nil
}

// CheckIn HOST 给已确认的参与者签到
func (s *RegistrationService) CheckIn(ctx context.Context, registrationID, hostID uint64) (*model.Registration, error) {
	reg, err := s.d.Registrations.FindByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if !reg.Active() {
		return nil, errs.ErrRegistrationNotFound
	}
	m, err := s.d.Moments.FindByID(ctx, reg.MomentID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errs.ErrRegistrationNotFound
	}
	if err := s.d.requireHost(ctx, m.CircleID, hostID, errs.ErrUnauthorizedMomentAction); err != nil {
		return nil, err
	}

	switch reg.Status {
	case model.RegistrationCheckedIn:
		return reg, nil
	case model.RegistrationWaitlisted:
		return nil, errs.ErrRegistrationNotConfirmed
	}
	now := s.d.now()
	reg.Status = model.RegistrationCheckedIn
	reg.CheckedInAt = &now
	if err := s.d.Registrations.Update(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// GetRegistration 当前用户在该 moment 的有效报名
func (s *RegistrationService) GetRegistration(ctx context.Context, momentID, userID uint64) (*model.Registration, error) {
	reg, err := s.d.Registrations.FindByMomentAndUser(ctx, momentID, userID)
	if err != nil {
		return nil, err
	}
	if !reg.Active() {
		return nil, errs.ErrRegistrationNotFound
	}
	return reg, nil
}

// seatStatus 已确认人数（REGISTERED + CHECKED_IN）未满则 REGISTERED
func (s *RegistrationService) seatStatus(ctx context.Context, m *model.Moment) (model.RegistrationStatus, error) {
	if m.Capacity == nil {
		return model.RegistrationRegistered, nil
	}
	seated, err := s.seated(ctx, m.ID)
	if err != nil {
		return "", err
	}
	if seated < int64(*m.Capacity) {
		return model.RegistrationRegistered, nil
	}
	return model.RegistrationWaitlisted, nil
}

func (s *RegistrationService) seated(ctx context.Context, momentID uint64) (int64, error) {
	registered, err := s.d.Registrations.CountByMomentAndStatus(ctx, momentID, model.RegistrationRegistered)
	if err != nil {
		return 0, err
	}
	checkedIn, err := s.d.Registrations.CountByMomentAndStatus(ctx, momentID, model.RegistrationCheckedIn)
	if err != nil {
		return 0, err
	}
	return registered + checkedIn, nil
}

// cancelLocked 调用方必须持有该 moment 的锁，并在事务内调用
func (s *RegistrationService) cancelLocked(ctx context.Context, m *model.Moment, reg *model.Registration) (*model.Registration, error) {
	prior := reg.Status
	now := s.d.now()
	reg.Status = model.RegistrationCancelled
	reg.CancelledAt = &now
	if err := s.d.Registrations.Update(ctx, reg); err != nil {
		return nil, err
	}
	if prior != model.RegistrationRegistered && prior != model.RegistrationCheckedIn {
		return nil, nil
	}
	promoted, err := s.promoteLocked(ctx, m, 1)
	if err != nil {
		return nil, err
	}
	if len(promoted) == 0 {
		return nil, nil
	}
	return promoted[0], nil
}

// promoteLocked 在有空位时按 registered_at 顺序递补最多 limit 个候补，limit<0 表示不限
func (s *RegistrationService) promoteLocked(ctx context.Context, m *model.Moment, limit int) ([]*model.Registration, error) {
	var promoted []*model.Registration
	for limit < 0 || len(promoted) < limit {
		if m.Capacity != nil {
			seated, err := s.seated(ctx, m.ID)
			if err != nil {
				return promoted, err
			}
			if seated >= int64(*m.Capacity) {
				break
			}
		}
		next, err := s.d.Registrations.FindFirstWaitlisted(ctx, m.ID)
		if err != nil {
			return promoted, err
		}
		if next == nil {
			break
		}
		// 只改 status，registered_at 保留原排队时间
		ok, err := s.d.Registrations.UpdateStatus(ctx, next.ID, model.RegistrationWaitlisted, model.RegistrationRegistered)
		if err != nil {
			return promoted, err
		}
		if !ok {
			break
		}
		next.Status = model.RegistrationRegistered
		promoted = append(promoted, next)

		note := momentNotification(NotifyWaitlistPromoted, m, next.UserID)
		note.RegistrationID = next.ID
		s.d.notify(ctx, note)
	}
	return promoted, nil
}
