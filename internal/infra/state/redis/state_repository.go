package redisstate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/repository"
)

// RedisStateRepository 是 StateRepository 接口的 Redis 实现
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateRepository 创建 RedisStateRepository 实例
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "cs:"
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// --- Key Generation Helpers ---

// presenceSeenKey 是房间心跳的有序集合，member 为用户 ID，score 为毫秒时间戳
func (r *RedisStateRepository) presenceSeenKey(roomID string) string {
	return fmt.Sprintf("%spresence:%s:seen", r.keyPrefix, roomID)
}

// presenceRoomsKey 记录存在心跳记录的房间，清理任务从这里遍历
func (r *RedisStateRepository) presenceRoomsKey() string {
	return r.keyPrefix + "presence:rooms"
}

func (r *RedisStateRepository) dirtyDocumentsKey() string {
	return r.keyPrefix + "documents:dirty"
}

// --- StateRepository Interface Implementation ---

// RecordHeartbeat 写入（或刷新）用户的最近心跳时间
func (r *RedisStateRepository) RecordHeartbeat(ctx context.Context, roomID, userID string, at time.Time) error {
	key := r.presenceSeenKey(roomID)
	pipe := r.client.Pipeline()
	pipe.ZAdd(ctx, key, &redis.Z{Score: float64(at.UnixMilli()), Member: userID})
	pipe.SAdd(ctx, r.presenceRoomsKey(), roomID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to record heartbeat for user %s in room %s: %w", userID, roomID, err)
	}
	return nil
}

// ExpiredHeartbeats 遍历所有房间，找出心跳早于 before 的用户
func (r *RedisStateRepository) ExpiredHeartbeats(ctx context.Context, before time.Time) ([]repository.HeartbeatKey, error) {
	roomIDs, err := r.client.SMembers(ctx, r.presenceRoomsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to list presence rooms: %w", err)
	}
	max := strconv.FormatInt(before.UnixMilli(), 10)
	var expired []repository.HeartbeatKey
	for _, roomID := range roomIDs {
		userIDs, err := r.client.ZRangeByScore(ctx, r.presenceSeenKey(roomID), &redis.ZRangeBy{
			Min: "-inf",
			Max: "(" + max, // 严格早于 before
		}).Result()
		if err != nil {
			logrus.WithField("room_id", roomID).WithError(err).Warn("redis: failed to read expired heartbeats")
			continue
		}
		for _, userID := range userIDs {
			expired = append(expired, repository.HeartbeatKey{RoomID: roomID, UserID: userID})
		}
	}
	return expired, nil
}

// RemoveHeartbeat 删除用户心跳，房间为空时同时移出房间集合
func (r *RedisStateRepository) RemoveHeartbeat(ctx context.Context, roomID, userID string) error {
	key := r.presenceSeenKey(roomID)
	if err := r.client.ZRem(ctx, key, userID).Err(); err != nil {
		return fmt.Errorf("redis: failed to remove heartbeat for user %s in room %s: %w", userID, roomID, err)
	}
	remaining, err := r.client.ZCard(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis: failed to count heartbeats in room %s: %w", roomID, err)
	}
	if remaining == 0 {
		if err := r.client.SRem(ctx, r.presenceRoomsKey(), roomID).Err(); err != nil {
			return fmt.Errorf("redis: failed to drop presence room %s: %w", roomID, err)
		}
	}
	return nil
}

// MarkDocumentDirty 标记房间文档需要生成检查点
func (r *RedisStateRepository) MarkDocumentDirty(ctx context.Context, roomID string) error {
	if err := r.client.SAdd(ctx, r.dirtyDocumentsKey(), roomID).Err(); err != nil {
		return fmt.Errorf("redis: failed to mark document dirty for room %s: %w", roomID, err)
	}
	return nil
}

// PopDirtyDocuments 在 MULTI 中读取并删除集合，避免漏掉并发写入的标记
func (r *RedisStateRepository) PopDirtyDocuments(ctx context.Context) ([]string, error) {
	key := r.dirtyDocumentsKey()
	var membersCmd *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		membersCmd = pipe.SMembers(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis: failed to pop dirty documents: %w", err)
	}
	return membersCmd.Val(), nil
}

// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, duration time.Duration) (bool, error) {
	pipe := r.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, duration)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: pipeline failed for rate limit check on key %s: %w", key, err)
	}
	return incrCmd.Val() > int64(limit), nil
}
