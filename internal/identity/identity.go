// Package identity 封装身份提供方：签发和校验 JWT，解析当前用户的显示名称。
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/repository"
)

// ErrInvalidToken 表示 token 无法解析、签名无效或已过期。
var ErrInvalidToken = errors.New("identity: invalid or expired token")

// Identity 是已认证用户的身份。
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Authenticated 报告是否存在已认证用户。
func (i Identity) Authenticated() bool { return i.UserID != "" }

// Tokens 负责 JWT 的签发和校验。
type Tokens struct {
	secret []byte
	expiry time.Duration
}

// NewTokens 创建 Tokens 实例。
func NewTokens(secret string, expiry time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), expiry: expiry}, nil
}

// Issue 为用户签发 token。
func (t *Tokens) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(t.expiry).Unix(),
		"iat":     now.Unix(),
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify 校验 token 并返回其中的 user_id。
func (t *Tokens) Verify(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: missing user_id claim", ErrInvalidToken)
	}
	return userID, nil
}

// Resolver 根据用户 ID 解析完整身份。
type Resolver struct {
	profiles repository.ProfileRepository
}

// NewResolver 创建 Resolver 实例。
func NewResolver(profiles repository.ProfileRepository) *Resolver {
	if profiles == nil {
		panic("ProfileRepository cannot be nil for Resolver")
	}
	return &Resolver{profiles: profiles}
}

// Resolve 查询资料，资料缺失时显示名称为 Unknown。
// 只有存储不可用时才返回错误。
func (r *Resolver) Resolve(ctx context.Context, userID string) (Identity, error) {
	profile, err := r.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Identity{UserID: userID, DisplayName: domain.UnknownDisplayName}, nil
		}
		return Identity{}, err
	}
	return Identity{UserID: userID, DisplayName: profile.DisplayName}, nil
}

type contextKey struct{}

// WithIdentity 把身份放入 context。
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext 取出身份，不存在时返回零值。
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(contextKey{}).(Identity)
	return id
}
