package repository

import (
	"context"

	"code-collaboration-studio/internal/domain"
)

// WhiteboardRepository 定义了白板操作日志的存储。
type WhiteboardRepository interface {
	// ListByRoom 按提交顺序返回房间的全部操作。
	ListByRoom(ctx context.Context, roomID string) ([]domain.WhiteboardRecord, error)

	// Insert 追加一条操作。
	Insert(ctx context.Context, record *domain.WhiteboardRecord) error

	// Delete 删除作者自己的一条操作，非作者返回 ErrForbidden。
	Delete(ctx context.Context, id, userID string) (*domain.WhiteboardRecord, error)
}
