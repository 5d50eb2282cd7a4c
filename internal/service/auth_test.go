package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/identity"
	"code-collaboration-studio/internal/repository"
	"code-collaboration-studio/internal/repository/mocks"
	"code-collaboration-studio/internal/service"
)

func newAuthService(t *testing.T) (*service.AuthService, *mocks.UserRepository, *mocks.ProfileRepository, *identity.Tokens) {
	t.Helper()
	userRepo := new(mocks.UserRepository)
	profileRepo := new(mocks.ProfileRepository)
	tokens, err := identity.NewTokens("very-secret-key", time.Hour)
	require.NoError(t, err, "创建 Tokens 不应失败")
	return service.NewAuthService(userRepo, tokens, identity.NewResolver(profileRepo)), userRepo, profileRepo, tokens
}

// --- 测试 Register 方法 ---

func TestAuthService_Register_Success(t *testing.T) {
	authService, userRepo, _, _ := newAuthService(t)
	ctx := context.Background()
	password := "StrongPass123"

	userRepo.On("Create", ctx,
		mock.MatchedBy(func(user *domain.User) bool {
			assert.Equal(t, "newbie@example.com", user.Email)
			assert.NotEmpty(t, user.ID)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)), "密码应被正确哈希")
			return true
		}),
		mock.MatchedBy(func(p *domain.Profile) bool { return p.DisplayName == "Newbie" }),
	).Return(nil).Once()

	user, err := authService.Register(ctx, " Newbie@Example.com ", password, "  Newbie ")

	require.NoError(t, err, "成功注册时不应有错误")
	assert.Equal(t, "newbie@example.com", user.Email)
	assert.Empty(t, user.PasswordHash, "返回的用户密码应为空")
	userRepo.AssertExpectations(t)
}

func TestAuthService_Register_DisplayNameRequired(t *testing.T) {
	authService, userRepo, _, _ := newAuthService(t)

	_, err := authService.Register(context.Background(), "a@example.com", "password", "   ")

	assert.ErrorIs(t, err, service.ErrDisplayNameRequired)
	userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	authService, userRepo, _, _ := newAuthService(t)
	ctx := context.Background()
	userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User"), mock.AnythingOfType("*domain.Profile")).
		Return(repository.ErrDuplicateEntry).Once()

	_, err := authService.Register(ctx, "dup@example.com", "password", "Dup")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRegistrationFailed), "保存冲突时应返回 ErrRegistrationFailed")
	userRepo.AssertExpectations(t)
}

func TestAuthService_Register_StoreDown(t *testing.T) {
	authService, userRepo, _, _ := newAuthService(t)
	ctx := context.Background()
	userRepo.On("Create", ctx, mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()

	_, err := authService.Register(ctx, "x@example.com", "password", "X")

	assert.ErrorIs(t, err, service.ErrStoreUnavailable)
}

// --- 测试 Login 方法 ---

func TestAuthService_Login_Success(t *testing.T) {
	authService, userRepo, _, tokens := newAuthService(t)
	ctx := context.Background()
	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	userRepo.On("FindByEmail", ctx, "test@example.com").
		Return(&domain.User{ID: "user-1", Email: "test@example.com", PasswordHash: string(hashed)}, nil).Once()

	token, err := authService.Login(ctx, "test@example.com", "password123")

	require.NoError(t, err)
	userID, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	userRepo.AssertExpectations(t)
}

func TestAuthService_Login_WrongPasswordAndUnknownUser(t *testing.T) {
	authService, userRepo, _, _ := newAuthService(t)
	ctx := context.Background()
	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	userRepo.On("FindByEmail", ctx, "test@example.com").
		Return(&domain.User{ID: "user-1", PasswordHash: string(hashed)}, nil).Once()
	userRepo.On("FindByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrUserNotFound).Once()

	_, err := authService.Login(ctx, "test@example.com", "wrong")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = authService.Login(ctx, "ghost@example.com", "password123")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials, "对客户端不区分用户不存在和密码错误")
	userRepo.AssertExpectations(t)
}

func TestAuthService_Me(t *testing.T) {
	authService, _, profileRepo, _ := newAuthService(t)
	ctx := context.Background()
	profileRepo.On("FindByUserID", ctx, "user-1").Return(&domain.Profile{UserID: "user-1", DisplayName: "Ada"}, nil).Once()

	id, err := authService.Me(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", id.DisplayName)

	_, err = authService.Me(ctx, "")
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)
}
