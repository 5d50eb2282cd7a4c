package service

import (
	"errors"
	"fmt"
)

// NotFound
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrOperationNotFound = errors.New("whiteboard operation not found")
	ErrUserNotFound      = errors.New("user not found")
)

// ValidationRejected：操作未执行
var (
	ErrEmptyContent         = errors.New("content cannot be empty")
	ErrDisplayNameRequired  = errors.New("display name is required")
	ErrInvalidRoomCode      = errors.New("invalid room code")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidOperation     = errors.New("invalid whiteboard operation")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrAuthenticationFailed = ErrInvalidCredentials
)

// Forbidden：只有作者可以修改或删除
var ErrNotAuthor = errors.New("only the author can modify this item")

// RemoteRejected：存储拒绝了写入
var (
	ErrRoomCodeTaken      = errors.New("room code already taken")
	ErrRegistrationFailed = errors.New("registration failed: email already exists")
)

// TransportFailure
var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInternalServer   = errors.New("internal server error")
)

// storeError 用 ErrStoreUnavailable 包装底层错误，保留原因
func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
