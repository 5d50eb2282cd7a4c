package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/repository"
)

// GormUserRepository 是 UserRepository 与 ProfileRepository 的 GORM 实现
type GormUserRepository struct {
	db *gorm.DB // 依赖 GORM DB 连接
}

// NewGormUserRepository 创建 GormUserRepository 实例
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	if db == nil {
		panic("database connection cannot be nil for GormUserRepository")
	}
	return &GormUserRepository{db: db}
}

// FindByEmail 实现根据邮箱查找用户
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("gorm: find user by email '%s': %w", email, err)
	}
	return &user, nil
}

// Create 在一个事务里插入用户和资料
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User, profile *domain.Profile) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		return tx.Create(profile).Error
	})
	if err != nil {
		if isDuplicateEntryError(err) {
			return fmt.Errorf("%w: %v", repository.ErrDuplicateEntry, err)
		}
		return fmt.Errorf("gorm: create user (id: %s, email: %s): %w", user.ID, user.Email, err)
	}
	return nil
}

// FindByUserID 实现查找单个资料
func (r *GormUserRepository) FindByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find profile of user %s: %w", userID, err)
	}
	return &profile, nil
}

// FindByUserIDs 实现批量查找资料
func (r *GormUserRepository) FindByUserIDs(ctx context.Context, userIDs []string) ([]domain.Profile, error) {
	var profiles []domain.Profile
	if len(userIDs) == 0 {
		return profiles, nil
	}
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("gorm: find profiles by user ids: %w", err)
	}
	return profiles, nil
}
