package repository

import (
	"context"

	"code-collaboration-studio/internal/domain"
)

// CheckpointRepository 定义了文档检查点在数据库中的操作。
type CheckpointRepository interface {
	// Latest 获取房间最新的检查点，没有时返回 ErrCheckpointNotFound。
	Latest(ctx context.Context, roomID string) (*domain.DocumentCheckpoint, error)

	// Save 保存检查点。
	Save(ctx context.Context, checkpoint *domain.DocumentCheckpoint) error

	// List 按时间倒序返回房间的检查点。
	List(ctx context.Context, roomID string, limit int) ([]domain.DocumentCheckpoint, error)

	// Prune 只保留房间最新的 keep 个检查点，返回删除的数量。
	Prune(ctx context.Context, roomID string, keep int) (int64, error)
}
