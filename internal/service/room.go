package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/repository"
	"code-collaboration-studio/internal/roomcode"
)

const maxCodeAttempts = 10

// RoomService 负责房间管理相关的业务逻辑。
type RoomService struct {
	roomRepo repository.RoomRepository
	members  *MemberService
	newID    IDGenerator
	newCode  func() (string, error)
}

// NewRoomService 创建 RoomService 实例。
func NewRoomService(roomRepo repository.RoomRepository, members *MemberService) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	if members == nil {
		panic("MemberService cannot be nil for RoomService")
	}
	return &RoomService{
		roomRepo: roomRepo,
		members:  members,
		newID:    UUIDGenerator,
		newCode:  roomcode.Generate,
	}
}

// CreateRoom 创建一个新房间，并把房主登记为成员。
func (s *RoomService) CreateRoom(ctx context.Context, hostID, name string) (*domain.Room, error) {
	logCtx := logrus.WithField("host_id", hostID)
	if hostID == "" {
		return nil, ErrNotAuthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.DefaultRoomName
	}

	// 1. 生成唯一的加入码
	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate unique room code")
		return nil, err
	}
	logCtx = logCtx.WithField("code", code)

	// 2. 保存房间
	room := &domain.Room{
		ID:     s.newID(),
		Code:   code,
		Name:   name,
		HostID: hostID,
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// 检查与插入之间被抢占，按存储的拒绝原样返回
			logCtx.WithError(err).Warn("Room code taken between check and insert")
			return nil, fmt.Errorf("%w: %v", ErrRoomCodeTaken, err)
		}
		logCtx.WithError(err).Error("Failed to save new room to database")
		return nil, storeError("create room", err)
	}
	logCtx = logCtx.WithField("room_id", room.ID)

	// 3. 房主成为第一个成员
	if err := s.members.Join(ctx, "", room.ID, hostID); err != nil {
		logCtx.WithError(err).Error("Failed to register host as member")
		return nil, err
	}

	logCtx.Info("Room created successfully")
	return room, nil
}

// FindByCode 规范化加入码后查找房间。
func (s *RoomService) FindByCode(ctx context.Context, code string) (*domain.Room, error) {
	code = roomcode.Normalize(code)
	if !roomcode.Valid(code) {
		return nil, ErrInvalidRoomCode
	}
	room, err := s.roomRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			logrus.WithField("code", code).Info("Room not found by code")
			return nil, ErrRoomNotFound
		}
		logrus.WithField("code", code).WithError(err).Error("FindByCode: Repository error")
		return nil, storeError("find room", err)
	}
	return room, nil
}

// JoinRoom 通过加入码进入房间并登记成员关系，重复加入是幂等的。
func (s *RoomService) JoinRoom(ctx context.Context, writer, userID, code string) (*domain.Room, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	room, err := s.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.members.Join(ctx, writer, room.ID, userID); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": room.ID}).Info("User joined room successfully")
	return room, nil
}

// --- 私有辅助函数 ---

// generateUniqueCode 生成未被占用的加入码，最多尝试 maxCodeAttempts 次
func (s *RoomService) generateUniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}
		exists, err := s.roomRepo.IsCodeExists(ctx, code)
		if err != nil {
			return "", storeError("check room code", err)
		}
		if !exists {
			logrus.WithField("code", code).Debugf("Generated unique room code after %d attempt(s).", attempt+1)
			return code, nil
		}
		logrus.WithField("code", code).Warnf("Generated room code already exists, retrying (attempt %d)...", attempt+1)
	}
	return "", fmt.Errorf("%w: no free code after %d attempts", ErrRoomCodeTaken, maxCodeAttempts)
}
