package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/repository"
)

// GormWhiteboardRepository 是 WhiteboardRepository 接口的 GORM 实现
type GormWhiteboardRepository struct {
	db *gorm.DB
}

// NewGormWhiteboardRepository 创建 GormWhiteboardRepository 实例
func NewGormWhiteboardRepository(db *gorm.DB) *GormWhiteboardRepository {
	if db == nil {
		panic("database connection cannot be nil for GormWhiteboardRepository")
	}
	return &GormWhiteboardRepository{db: db}
}

// ListByRoom 按 seq 升序返回操作，即提交顺序
func (r *GormWhiteboardRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.WhiteboardRecord, error) {
	var records []domain.WhiteboardRecord
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("seq ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list whiteboard operations of room %s: %w", roomID, err)
	}
	return records, nil
}

// Insert 追加操作
func (r *GormWhiteboardRepository) Insert(ctx context.Context, record *domain.WhiteboardRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if isDuplicateEntryError(err) {
			return fmt.Errorf("%w: %v", repository.ErrDuplicateEntry, err)
		}
		return fmt.Errorf("gorm: insert whiteboard operation %s: %w", record.ID, err)
	}
	return nil
}

// Delete 只允许作者删除自己的操作
func (r *GormWhiteboardRepository) Delete(ctx context.Context, id, userID string) (*domain.WhiteboardRecord, error) {
	var record domain.WhiteboardRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrOperationNotFound
			}
			return err
		}
		if record.UserID != userID {
			return repository.ErrForbidden
		}
		return tx.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.WhiteboardRecord{}).Error
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("gorm: delete whiteboard operation %s: %w", id, err)
	}
	return &record, nil
}
