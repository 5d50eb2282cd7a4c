package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/repository"
)

// GormRoomRepository 是 RoomRepository 接口的 GORM 实现
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository 创建 GormRoomRepository 实例
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

// FindByID 实现根据房间 ID 查找房间
func (r *GormRoomRepository) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %s: %w", id, err)
	}
	return &room, nil
}

// FindByCode 实现根据加入码查找房间
func (r *GormRoomRepository) FindByCode(ctx context.Context, code string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by code '%s': %w", code, err)
	}
	return &room, nil
}

// Create 实现插入新房间
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		if isDuplicateEntryError(err) {
			return fmt.Errorf("%w: %v", repository.ErrDuplicateEntry, err)
		}
		return fmt.Errorf("gorm: create room (id: %s, code: %s): %w", room.ID, room.Code, err)
	}
	return nil
}

// IsCodeExists 实现检查加入码是否存在
func (r *GormRoomRepository) IsCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Room{}).Where("code = ?", code).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count rooms by code '%s': %w", code, err)
	}
	return count > 0, nil
}

// UpdateDocument 在事务内覆盖文档、递增版本并读回新版本。
// 行锁持有到提交，读回的版本即本次写入的版本。
func (r *GormRoomRepository) UpdateDocument(ctx context.Context, roomID, content string) (uint64, error) {
	var version uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Room{}).
			Where("id = ?", roomID).
			Updates(map[string]interface{}{
				"current_document": content,
				"document_version": gorm.Expr("document_version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrRoomNotFound
		}
		return tx.Model(&domain.Room{}).Where("id = ?", roomID).Pluck("document_version", &version).Error
	})
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("gorm: update document for room %s: %w", roomID, err)
	}
	return version, nil
}
