// Package redisdb 负责 Redis 客户端的初始化，当前仅服务于防重放 nonce 存储。
package redisdb

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
)

// NewClient 创建 Redis 客户端并验证连通性，返回 Wire cleanup。
// 未配置地址时返回 nil 客户端（防重放关闭场景），调用方需自行判空。
func NewClient(ctx context.Context, cfg configloader.DataConfig, logger log.Logger) (*redis.Client, func(), error) {
	helper := log.NewHelper(logger)
	if cfg.Redis.Addr == "" {
		helper.Info("redis not configured, nonce store disabled")
		return nil, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	helper.Infof("redis client created: addr=%s db=%d", cfg.Redis.Addr, cfg.Redis.DB)
	cleanup := func() {
		helper.Info("closing redis client")
		_ = client.Close()
	}
	return client, cleanup, nil
}
