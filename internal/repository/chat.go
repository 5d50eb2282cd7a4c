package repository

import (
	"context"

	"code-collaboration-studio/internal/domain"
)

// ChatRepository 定义了聊天消息的存储操作。
// 修改和删除都带作者谓词，非作者返回 ErrForbidden。
type ChatRepository interface {
	// ListRecent 返回房间最近的 limit 条消息，按 created_at 升序。
	ListRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)

	// FindByID 根据消息 ID 查找。
	FindByID(ctx context.Context, id string) (*domain.ChatMessage, error)

	// Insert 插入新消息。
	Insert(ctx context.Context, msg *domain.ChatMessage) error

	// UpdateContent 修改消息内容，返回修改后的消息。
	UpdateContent(ctx context.Context, id, userID, content string) (*domain.ChatMessage, error)

	// Delete 删除消息，返回被删除的消息。
	Delete(ctx context.Context, id, userID string) (*domain.ChatMessage, error)
}
