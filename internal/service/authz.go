package service

import (
	"context"
	"log/slog"
	"time"

	"Lee_Moments/internal/errs"
	"Lee_Moments/internal/model"
)

// Deps 各个 service 共享的依赖
type Deps struct {
	Circles       CircleStore
	Members       MemberStore
	Follows       FollowStore
	Moments       MomentStore
	Registrations RegistrationStore
	Comments      CommentStore
	Users         UserStore
	Tx            TxRunner
	Locker        Locker
	Notifier      Notifier
	Logger        *slog.Logger
	Now           func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// inTx 没有配置 Tx 时直接执行
func (d Deps) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if d.Tx == nil {
		return fn(ctx)
	}
	return d.Tx.InTx(ctx, fn)
}

func (d Deps) isHost(ctx context.Context, circleID, userID uint64) (bool, error) {
	m, err := d.Members.FindMembership(ctx, circleID, userID)
	if err != nil {
		return false, err
	}
	return m.IsHost(), nil
}

// requireHost 校验 userID 是 circleID 的 HOST，否则返回 deny
func (d Deps) requireHost(ctx context.Context, circleID, userID uint64, deny error) error {
	ok, err := d.isHost(ctx, circleID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return deny
	}
	return nil
}

func (d Deps) requireAdmin(ctx context.Context, userID uint64) error {
	u, err := d.Users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return errs.ErrUserNotFound
	}
	if !u.IsAdmin() {
		return errs.ErrAdminUnauthorized
	}
	return nil
}

func (d Deps) findMoment(ctx context.Context, momentID uint64) (*model.Moment, error) {
	m, err := d.Moments.FindByID(ctx, momentID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errs.ErrMomentNotFound
	}
	return m, nil
}

// lockMomentRow 事务内重新读取 moment 并加行锁
func (d Deps) lockMomentRow(ctx context.Context, momentID uint64) (*model.Moment, error) {
	m, err := d.Moments.FindByIDForUpdate(ctx, momentID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errs.ErrMomentNotFound
	}
	return m, nil
}

// hostMoment 通过 moment 自身的 circle_id 校验 HOST 权限，不信任调用方传入的 circle
func (d Deps) hostMoment(ctx context.Context, momentID, userID uint64) (*model.Moment, error) {
	m, err := d.findMoment(ctx, momentID)
	if err != nil {
		return nil, err
	}
	if err := d.requireHost(ctx, m.CircleID, userID, errs.ErrUnauthorizedMomentAction); err != nil {
		return nil, err
	}
	return m, nil
}

// ensureMember 不存在才插入 PLAYER，已有的角色（包括 HOST）保持不变
func (d Deps) ensureMember(ctx context.Context, circleID, userID uint64) error {
	existing, err := d.Members.FindMembership(ctx, circleID, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	_, err = d.Members.AddMembership(ctx, &model.CircleMember{
		CircleID: circleID,
		UserID:   userID,
		Role:     model.RolePlayer,
	})
	return err
}

func (d Deps) lockMoment(ctx context.Context, momentID uint64) (func(), error) {
	return d.Locker.Lock(ctx, momentLockKey(momentID))
}

// notify 通知失败只记日志，不影响主流程
func (d Deps) notify(ctx context.Context, notes ...Notification) {
	if d.Notifier == nil || len(notes) == 0 {
		return
	}
	now := d.now().UTC()
	for i := range notes {
		if notes[i].OccurredAt.IsZero() {
			notes[i].OccurredAt = now
		}
	}
	if err := d.Notifier.Notify(ctx, notes...); err != nil {
		d.Logger.Warn("notify failed", "kind", notes[0].Kind, "count", len(notes), "error", err)
	}
}

func (d Deps) notifyHosts(ctx context.Context, kind NotificationKind, m *model.Moment, actorID uint64, fill func(*Notification)) {
	hosts, err := d.Members.ListHostIDs(ctx, m.CircleID)
	if err != nil {
		d.Logger.Warn("list hosts failed", "circle", m.CircleID, "error", err)
		return
	}
	var notes []Notification
	for _, h := range hosts {
		if h == actorID {
			continue
		}
		n := momentNotification(kind, m, h)
		n.ActorID = actorID
		if fill != nil {
			fill(&n)
		}
		notes = append(notes, n)
	}
	d.notify(ctx, notes...)
}

func (d Deps) notifyRegistrants(ctx context.Context, kind NotificationKind, m *model.Moment, actorID uint64) {
	ids, err := d.Registrations.ListActiveUserIDs(ctx, m.ID)
	if err != nil {
		d.Logger.Warn("list registrants failed", "moment", m.ID, "error", err)
		return
	}
	var notes []Notification
	for _, id := range ids {
		if id == actorID {
			continue
		}
		n := momentNotification(kind, m, id)
		n.ActorID = actorID
		notes = append(notes, n)
	}
	d.notify(ctx, notes...)
}

// uniqueSlug 冲突时追加一次随机后缀，仍冲突则返回 conflict
func uniqueSlug(ctx context.Context, base string, exists func(context.Context, string) (bool, error), suffix func(string) string, conflict error) (string, error) {
	taken, err := exists(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}
	candidate := suffix(base)
	taken, err = exists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if taken {
		return "", conflict
	}
	return candidate, nil
}
