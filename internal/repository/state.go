package repository

import (
	"context"
	"time"
)

// StateRepository 定义了与房间实时状态相关的操作，由 Redis 实现。
// 这些数据是临时的，不属于持久化存储。
type StateRepository interface {
	// === Presence Ledger ===

	// RecordHeartbeat 记录某用户在房间中的最近一次心跳时间。
	RecordHeartbeat(ctx context.Context, roomID, userID string, at time.Time) error

	// ExpiredHeartbeats 返回所有房间中最近心跳早于 before 的 (roomID, userID)。
	ExpiredHeartbeats(ctx context.Context, before time.Time) ([]HeartbeatKey, error)

	// RemoveHeartbeat 删除心跳记录。
	RemoveHeartbeat(ctx context.Context, roomID, userID string) error

	// === Document Checkpoint Worker State ===

	// MarkDocumentDirty 记录房间文档自上次检查点后发生过写入。
	MarkDocumentDirty(ctx context.Context, roomID string) error

	// PopDirtyDocuments 取出并清空待生成检查点的房间集合。
	PopDirtyDocuments(ctx context.Context) ([]string, error)

	// === Rate Limiting ===

	// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
	// 返回 true 如果超限，false 如果未超限。
	CheckRateLimit(ctx context.Context, key string, limit int, duration time.Duration) (bool, error)
}

// HeartbeatKey 标识房间中的一名在线用户。
type HeartbeatKey struct {
	RoomID string
	UserID string
}
