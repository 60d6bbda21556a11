package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// NonceRepository 基于 Redis 实现单次使用的防重放 nonce 记录。
// 键 nonce:<value> 带 TTL：SET NX 成功即首次使用，失败即重放；
// 过期键由 Redis 自动回收，等价于「过期记录可被覆盖」的语义。
type NonceRepository struct {
	client *redis.Client
	log    *log.Helper
}

// NewNonceRepository 构造 NonceRepository。client 可为 nil（防重放关闭）。
func NewNonceRepository(client *redis.Client, logger log.Logger) *NonceRepository {
	return &NonceRepository{
		client: client,
		log:    log.NewHelper(logger),
	}
}

// Available 判断存储是否可用。
func (r *NonceRepository) Available() bool {
	return r != nil && r.client != nil
}

// Register 记录一个 nonce。返回 firstUse=false 表示该 nonce 在 TTL 窗口内已被使用。
// 存储故障时返回 error，由调用方按 fail-open/fail-closed 策略决定放行与否。
func (r *NonceRepository) Register(ctx context.Context, nonce string, ttl time.Duration) (firstUse bool, err error) {
	if !r.Available() {
		return false, fmt.Errorf("nonce store not configured")
	}
	key := "nonce:" + nonce
	ok, err := r.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("register nonce: %w", err)
	}
	return ok, nil
}
