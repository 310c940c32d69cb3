package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	LockKeyPrefix   = "lock:"
	DefaultLockTTL  = 5 * time.Second
	DefaultLockWait = 3 * time.Second
	lockRetryDelay  = 20 * time.Millisecond
)

var ErrLockTimeout = errors.New("lock wait timeout")

// 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// MomentLock 基于 SETNX 的分布式锁，多实例部署时串行化同一 moment 的报名流程
type MomentLock struct {
	RDB  redis.UniversalClient
	TTL  time.Duration
	Wait time.Duration
}

// Acquire 请求加分布式锁
func (l *MomentLock) Acquire(ctx context.Context, key, token string) (bool, error) {
	return l.RDB.SetNX(ctx, LockKeyPrefix+key, token, l.ttl()).Result()
}

// Release 用lua保证原子性
func (l *MomentLock) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, l.RDB, []string{LockKeyPrefix + key}, token).Err()
}

// Lock 轮询 SETNX 直到拿到锁、ctx 结束或超过 Wait
func (l *MomentLock) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	wait := l.Wait
	if wait <= 0 {
		wait = DefaultLockWait
	}
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	for {
		ok, err := l.Acquire(ctx, key, token)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// 请求 ctx 可能已经取消，释放用独立的 ctx
				rctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = l.Release(rctx, key, token)
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrLockTimeout
		case <-time.After(lockRetryDelay):
		}
	}
}

func (l *MomentLock) ttl() time.Duration {
	if l.TTL <= 0 {
		return DefaultLockTTL
	}
	return l.TTL
}
