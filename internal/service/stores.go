package service

import (
	"context"
	"strconv"
	"time"

	"Lee_Moments/internal/model"
)

// 所有 Find* 方法在记录不存在时返回 (nil, nil)，其他错误原样返回

type CircleStore interface {
	// Create 在同一事务里写入 circle 和创建者的 HOST 成员关系
	Create(ctx context.Context, c *model.Circle, hostID uint64) error
	FindByID(ctx context.Context, id uint64) (*model.Circle, error)
	FindBySlug(ctx context.Context, slug string) (*model.Circle, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, c *model.Circle) error
	Delete(ctx context.Context, id uint64) error
}

type MemberStore interface {
	FindMembership(ctx context.Context, circleID, userID uint64) (*model.CircleMember, error)
	// AddMembership 仅在不存在时插入，返回是否真的写入
	AddMembership(ctx context.Context, m *model.CircleMember) (bool, error)
	RemoveMembership(ctx context.Context, circleID, userID uint64) error
	ListHostIDs(ctx context.Context, circleID uint64) ([]uint64, error)
}

type FollowStore interface {
	// Follow/Unfollow 返回状态是否发生变化
	Follow(ctx context.Context, circleID, userID uint64) (bool, error)
	Unfollow(ctx context.Context, circleID, userID uint64) (bool, error)
}

type MomentStore interface {
	FindByID(ctx context.Context, id uint64) (*model.Moment, error)
	// FindByIDForUpdate 在事务内读取并锁住 moment 行
	FindByIDForUpdate(ctx context.Context, id uint64) (*model.Moment, error)
	FindBySlug(ctx context.Context, slug string) (*model.Moment, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, m *model.Moment) error
	Update(ctx context.Context, m *model.Moment) error
	Delete(ctx context.Context, id uint64) error
}

type RegistrationStore interface {
	FindByID(ctx context.Context, id uint64) (*model.Registration, error)
	// FindByMomentAndUser 返回该用户在该 moment 的行（包含 CANCELLED）
	FindByMomentAndUser(ctx context.Context, momentID, userID uint64) (*model.Registration, error)
	Create(ctx context.Context, r *model.Registration) error
	Update(ctx context.Context, r *model.Registration) error
	// UpdateStatus 只改 status，from 不匹配时返回 false
	UpdateStatus(ctx context.Context, id uint64, from, to model.RegistrationStatus) (bool, error)
	CountByMomentAndStatus(ctx context.Context, momentID uint64, status model.RegistrationStatus) (int64, error)
	// FindFirstWaitlisted 按 registered_at 最早（同时间按 id）返回
	FindFirstWaitlisted(ctx context.Context, momentID uint64) (*model.Registration, error)
	FindFutureActiveByUserAndCircle(ctx context.Context, userID, circleID uint64, now time.Time) ([]model.Registration, error)
	ListActiveUserIDs(ctx context.Context, momentID uint64) ([]uint64, error)
}

type CommentStore interface {
	Create(ctx context.Context, c *model.Comment) error
	FindByID(ctx context.Context, id uint64) (*model.Comment, error)
	Delete(ctx context.Context, id uint64) error
	ListByMoment(ctx context.Context, momentID, cursor uint64, limit int) ([]model.Comment, uint64, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id uint64) (*model.User, error)
}

type OutboxStore interface {
	Insert(ctx context.Context, rows []model.Outbox) error
	List(ctx context.Context, batchSize, maxRetry int) ([]model.Outbox, error)
	RetryUpdate(ctx context.Context, id uint64) error
	SuccessUpdate(ctx context.Context, id uint64) error
}

// TxRunner 在同一个数据库事务里执行 fn，fn 内的 store 调用通过 ctx 共享事务；fn 返回错误时整体回滚
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker 按 moment 串行化 "先读后写" 的报名/递补流程
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func momentLockKey(momentID uint64) string {
	return "moment:" + strconv.FormatUint(momentID, 10)
}
