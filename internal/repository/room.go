package repository

import (
	"context"

	"code-collaboration-studio/internal/domain"
)

// RoomRepository 定义了房间数据的存储和检索操作。
type RoomRepository interface {
	// FindByID 根据房间 ID 查找房间，不存在时返回 ErrRoomNotFound。
	FindByID(ctx context.Context, id string) (*domain.Room, error)

	// FindByCode 根据加入码查找房间，调用方负责先规范化加入码。
	FindByCode(ctx context.Context, code string) (*domain.Room, error)

	// Create 插入新房间。加入码冲突时返回 ErrDuplicateEntry。
	Create(ctx context.Context, room *domain.Room) error

	// IsCodeExists 检查加入码是否已被占用。
	IsCodeExists(ctx context.Context, code string) (bool, error)

	// UpdateDocument 覆盖房间文档并原子递增版本号，返回新版本。
	UpdateDocument(ctx context.Context, roomID, content string) (uint64, error)
}

// MemberRepository 定义了房间成员关系的操作。
type MemberRepository interface {
	// Upsert 以 (room_id, user_id) 为冲突目标插入或刷新成员，并标记在线。
	// 重复调用不会产生重复行。
	Upsert(ctx context.Context, member *domain.Member) error

	// ListByRoom 返回房间的全部成员，按加入时间升序。
	ListByRoom(ctx context.Context, roomID string) ([]domain.Member, error)

	// SetOnline 更新成员在线状态。成员不存在时返回 ErrNotFound。
	SetOnline(ctx context.Context, roomID, userID string, online bool) error
}
