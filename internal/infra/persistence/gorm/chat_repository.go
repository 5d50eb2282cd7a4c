package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/repository"
)

// GormChatRepository 是 ChatRepository 接口的 GORM 实现
type GormChatRepository struct {
	db *gorm.DB
}

// NewGormChatRepository 创建 GormChatRepository 实例
func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	if db == nil {
		panic("database connection cannot be nil for GormChatRepository")
	}
	return &GormChatRepository{db: db}
}

// ListRecent 取最近 limit 条再翻转为升序
func (r *GormChatRepository) ListRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list recent messages of room %s: %w", roomID, err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// FindByID 实现根据 ID 查找消息
func (r *GormChatRepository) FindByID(ctx context.Context, id string) (*domain.ChatMessage, error) {
	return findMessage(r.db.WithContext(ctx), id)
}

// Insert 实现插入消息
func (r *GormChatRepository) Insert(ctx context.Context, msg *domain.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		if isDuplicateEntryError(err) {
			return fmt.Errorf("%w: %v", repository.ErrDuplicateEntry, err)
		}
		return fmt.Errorf("gorm: insert message (id: %s, room: %s): %w", msg.ID, msg.RoomID, err)
	}
	return nil
}

// UpdateContent 只允许作者修改内容
func (r *GormChatRepository) UpdateContent(ctx context.Context, id, userID, content string) (*domain.ChatMessage, error) {
	var updated *domain.ChatMessage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg, err := findMessage(tx, id)
		if err != nil {
			return err
		}
		if msg.UserID != userID {
			return repository.ErrForbidden
		}
		err = tx.Model(&domain.ChatMessage{}).
			Where("id = ? AND user_id = ?", id, userID).
			Update("content", content).Error
		if err != nil {
			return err
		}
		updated, err = findMessage(tx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("gorm: update message %s: %w", id, err)
	}
	return updated, nil
}

// Delete 只允许作者删除消息
func (r *GormChatRepository) Delete(ctx context.Context, id, userID string) (*domain.ChatMessage, error) {
	var deleted *domain.ChatMessage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg, err := findMessage(tx, id)
		if err != nil {
			return err
		}
		if msg.UserID != userID {
			return repository.ErrForbidden
		}
		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.ChatMessage{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrForbidden
		}
		deleted = msg
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("gorm: delete message %s: %w", id, err)
	}
	return deleted, nil
}

func findMessage(db *gorm.DB, id string) (*domain.ChatMessage, error) {
	var msg domain.ChatMessage
	if err := db.Where("id = ?", id).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMessageNotFound
		}
		return nil, fmt.Errorf("gorm: find message %s: %w", id, err)
	}
	return &msg, nil
}
