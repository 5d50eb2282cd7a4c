package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/identity"
	"code-collaboration-studio/internal/repository"
)

// AuthService 负责用户认证相关的业务逻辑。
type AuthService struct {
	userRepo repository.UserRepository
	tokens   *identity.Tokens
	resolver *identity.Resolver
	newID    IDGenerator
}

// NewAuthService 创建 AuthService 实例。
func NewAuthService(userRepo repository.UserRepository, tokens *identity.Tokens, resolver *identity.Resolver) *AuthService {
	if userRepo == nil {
		panic("UserRepository cannot be nil for AuthService")
	}
	if tokens == nil || resolver == nil {
		panic("Tokens and Resolver cannot be nil for AuthService")
	}
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		resolver: resolver,
		newID:    UUIDGenerator,
	}
}

// Register 处理用户注册，同时创建公开资料。
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)
	logCtx := logrus.WithField("email", email)

	// 1. 基本验证
	if _, err := mail.ParseAddress(email); err != nil || password == "" {
		return nil, ErrInvalidCredentials
	}
	if displayName == "" {
		return nil, ErrDisplayNameRequired
	}

	// 2. 哈希密码
	hashedPassword, err := hashPassword(password)
	if err != nil {
		logCtx.WithError(err).Error("Failed to hash password during registration")
		return nil, ErrInternalServer
	}

	user := &domain.User{
		ID:           s.newID(),
		Email:        email,
		PasswordHash: hashedPassword,
	}
	profile := &domain.Profile{DisplayName: displayName}

	// 3. 保存用户与资料
	if err := s.userRepo.Create(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.WithError(err).Warn("Registration failed: email already exists")
			return nil, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
		}
		logCtx.WithError(err).Error("Database error during user creation")
		return nil, storeError("create user", err)
	}

	logCtx.WithField("user_id", user.ID).Info("User registered successfully")
	user.PasswordHash = "" // 清除密码哈希再返回
	return user, nil
}

// Login 处理用户登录，返回 JWT。
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	logCtx := logrus.WithField("email", email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("Login attempt failed: User not found")
			return "", ErrInvalidCredentials
		}
		logCtx.WithError(err).Error("Login attempt failed: Error finding user")
		return "", storeError("find user", err)
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	if !checkPassword(password, user.PasswordHash) {
		logCtx.Warn("Login attempt failed: Invalid password")
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate JWT token during login")
		return "", ErrInternalServer
	}

	logCtx.WithField("user_id", user.ID).Info("User logged in successfully")
	return token, nil
}

// Me 返回当前用户的身份。
func (s *AuthService) Me(ctx context.Context, userID string) (identity.Identity, error) {
	if userID == "" {
		return identity.Identity{}, ErrNotAuthenticated
	}
	id, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return identity.Identity{}, storeError("resolve identity", err)
	}
	return id, nil
}

// --- 私有辅助函数 ---

// hashPassword 使用 bcrypt 对密码进行哈希处理
func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to generate hash from password: %w", err)
	}
	return string(bytes), nil
}

// checkPassword 验证提供的密码是否与存储的哈希匹配
func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
