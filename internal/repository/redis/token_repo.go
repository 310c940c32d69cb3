package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrRedisUnavailable = errors.New("redis unavailable")
	ErrExtendFailed     = errors.New("token extend failed")
)

const (
	UserTokenPrefix = "login:user:token"
	UserTokenExpire = 30 * time.Minute
)

// TokenRepository 单点登录 token，由账号服务写入，这里只读和续期
type TokenRepository struct {
	RDB redis.UniversalClient
}

func tokenKey(userID uint64) string {
	return fmt.Sprintf("%s:%d", UserTokenPrefix, userID)
}

func (r *TokenRepository) GetUserToken(ctx context.Context, userID uint64) (string, error) {
	token, err := r.RDB.Get(ctx, tokenKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", ErrRedisUnavailable
	}
	return token, nil
}

func (r *TokenRepository) ExtendUserToken(ctx context.Context, userID uint64) error {
	if err := r.RDB.Expire(ctx, tokenKey(userID), UserTokenExpire).Err(); err != nil {
		return ErrExtendFailed
	}
	return nil
}

// SetUserToken 本地联调和测试用
func (r *TokenRepository) SetUserToken(ctx context.Context, userID uint64, token string) error {
	if err := r.RDB.Set(ctx, tokenKey(userID), token, UserTokenExpire).Err(); err != nil {
		return ErrRedisUnavailable
	}
	return nil
}
