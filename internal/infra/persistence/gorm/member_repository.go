package gormpersistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/repository"
)

// GormMemberRepository 是 MemberRepository 接口的 GORM 实现
type GormMemberRepository struct {
	db *gorm.DB
}

// NewGormMemberRepository 创建 GormMemberRepository 实例
func NewGormMemberRepository(db *gorm.DB) *GormMemberRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMemberRepository")
	}
	return &GormMemberRepository{db: db}
}

// Upsert 以 (room_id, user_id) 为冲突目标插入成员。
// 冲突时只刷新在线状态和最近活跃时间，joined_at 保持首次加入的值。
func (r *GormMemberRepository) Upsert(ctx context.Context, member *domain.Member) error {
	now := time.Now()
	if member.JoinedAt.IsZero() {
		member.JoinedAt = now
	}
	member.IsOnline = true
	member.LastSeenAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_online", "last_seen_at"}),
	}).Create(member).Error
	if err != nil {
		return fmt.Errorf("gorm: upsert member (room: %s, user: %s): %w", member.RoomID, member.UserID, err)
	}
	return nil
}

// ListByRoom 返回房间全部成员
func (r *GormMemberRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Member, error) {
	var members []domain.Member
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list members of room %s: %w", roomID, err)
	}
	return members, nil
}

// SetOnline 更新成员在线状态
func (r *GormMemberRepository) SetOnline(ctx context.Context, roomID, userID string, online bool) error {
	result := r.db.WithContext(ctx).Model(&domain.Member{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Updates(map[string]interface{}{
			"is_online":    online,
			"last_seen_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("gorm: set member online=%t (room: %s, user: %s): %w", online, roomID, userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
