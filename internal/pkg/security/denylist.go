package security

import (
	"Herald/internal/pkg/consts"
	"Herald/internal/pkg/redis"
	"context"
)

// RedisDenylist 账号服务注销 Token 时写入 auth:token:deny:<signature>
type RedisDenylist struct{}

func (RedisDenylist) IsDenied(ctx context.Context, signature string) (bool, error) {
	return redis.Exists(ctx, consts.TokenDenyKey+signature)
}
