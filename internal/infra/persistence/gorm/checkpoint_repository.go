package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/repository"
)

// GormCheckpointRepository 是 CheckpointRepository 接口的 GORM 实现
type GormCheckpointRepository struct {
	db *gorm.DB
}

// NewGormCheckpointRepository 创建 GormCheckpointRepository 实例
func NewGormCheckpointRepository(db *gorm.DB) *GormCheckpointRepository {
	if db == nil {
		panic("database connection cannot be nil for GormCheckpointRepository")
	}
	return &GormCheckpointRepository{db: db}
}

// Latest 获取指定房间的最新检查点
// 自增 ID 与创建顺序一致，按 ID 降序取第一条
func (r *GormCheckpointRepository) Latest(ctx context.Context, roomID string) (*domain.DocumentCheckpoint, error) {
	var checkpoint domain.DocumentCheckpoint
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id DESC").
		First(&checkpoint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("gorm: failed to get latest checkpoint for room %s: %w", roomID, err)
	}
	return &checkpoint, nil
}

// Save 插入新的检查点
func (r *GormCheckpointRepository) Save(ctx context.Context, checkpoint *domain.DocumentCheckpoint) error {
	if err := r.db.WithContext(ctx).Create(checkpoint).Error; err != nil {
		return fmt.Errorf("gorm: failed to save checkpoint (room %s, version %d): %w", checkpoint.RoomID, checkpoint.DocumentVersion, err)
	}
	return nil
}

// List 按时间倒序返回检查点
func (r *GormCheckpointRepository) List(ctx context.Context, roomID string, limit int) ([]domain.DocumentCheckpoint, error) {
	var checkpoints []domain.DocumentCheckpoint
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id DESC").
		Limit(limit).
		Find(&checkpoints).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: failed to list checkpoints for room %s: %w", roomID, err)
	}
	return checkpoints, nil
}

// Prune 删除超出保留数量的旧检查点
func (r *GormCheckpointRepository) Prune(ctx context.Context, roomID string, keep int) (int64, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&domain.DocumentCheckpoint{}).
		Where("room_id = ?", roomID).
		Order("id DESC").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: failed to find stale checkpoints for room %s: %w", roomID, err)
	}
	// MySQL 不支持无 LIMIT 的 OFFSET，在内存中截取
	if len(ids) <= keep {
		return 0, nil
	}
	staleIDs := ids[keep:]
	result := r.db.WithContext(ctx).Where("id IN ?", staleIDs).Delete(&domain.DocumentCheckpoint{})
	if result.Error != nil {
		return 0, fmt.Errorf("gorm: failed to prune checkpoints for room %s: %w", roomID, result.Error)
	}
	return result.RowsAffected, nil
}
