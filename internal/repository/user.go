package repository

import (
	"context"

	"code-collaboration-studio/internal/domain"
)

// UserRepository 定义了账户数据的存储和检索操作。
type UserRepository interface {
	// FindByEmail 根据邮箱查找用户，不存在时返回 ErrUserNotFound。
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// Create 插入新用户及其资料，两者在同一事务内完成。
	// 邮箱冲突时返回 ErrDuplicateEntry。
	Create(ctx context.Context, user *domain.User, profile *domain.Profile) error
}

// ProfileRepository 定义了公开资料的查询。
type ProfileRepository interface {
	// FindByUserID 查找单个用户的资料。
	FindByUserID(ctx context.Context, userID string) (*domain.Profile, error)

	// FindByUserIDs 批量查找资料，缺失的用户不会出现在结果中。
	FindByUserIDs(ctx context.Context, userIDs []string) ([]domain.Profile, error)
}
