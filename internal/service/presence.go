package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/repository"
)

// DefaultPresenceExpiry 是心跳的默认过期窗口。
const DefaultPresenceExpiry = 30 * time.Second

// PresenceService 维护 Redis 中的心跳记录，并把过期或离开的用户标记为离线。
type PresenceService struct {
	stateRepo repository.StateRepository
	members   *MemberService
	expiry    time.Duration
}

// NewPresenceService 创建 PresenceService 实例。
func NewPresenceService(stateRepo repository.StateRepository, members *MemberService, expiry time.Duration) *PresenceService {
	if stateRepo == nil || members == nil {
		panic("StateRepository and MemberService cannot be nil for PresenceService")
	}
	if expiry <= 0 {
		expiry = DefaultPresenceExpiry
	}
	return &PresenceService{stateRepo: stateRepo, members: members, expiry: expiry}
}

// Expiry 返回心跳过期窗口。
func (s *PresenceService) Expiry() time.Duration { return s.expiry }

// RecordHeartbeat 记录一次心跳。
func (s *PresenceService) RecordHeartbeat(ctx context.Context, roomID, userID string, at time.Time) error {
	if err := s.stateRepo.RecordHeartbeat(ctx, roomID, userID, at); err != nil {
		return storeError("record heartbeat", err)
	}
	return nil
}

// MarkOffline 删除心跳记录并将成员标记为离线。
func (s *PresenceService) MarkOffline(ctx context.Context, roomID, userID string) error {
	if err := s.stateRepo.RemoveHeartbeat(ctx, roomID, userID); err != nil {
		logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).WithError(err).Warn("Failed to remove heartbeat")
	}
	return s.members.MarkOffline(ctx, roomID, userID)
}

// Sweep 将最近心跳早于 now-expiry 的成员标记为离线，返回处理的数量。
func (s *PresenceService) Sweep(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.stateRepo.ExpiredHeartbeats(ctx, now.Add(-s.expiry))
	if err != nil {
		logrus.WithError(err).Error("Failed to read expired heartbeats")
		return 0, storeError("expired heartbeats", err)
	}
	swept := 0
	for _, key := range expired {
		if err := s.MarkOffline(ctx, key.RoomID, key.UserID); err != nil {
			logrus.WithFields(logrus.Fields{"room_id": key.RoomID, "user_id": key.UserID}).WithError(err).Warn("Sweep failed for member")
			continue
		}
		swept++
	}
	if swept > 0 {
		logrus.WithField("count", swept).Info("Presence sweep marked members offline")
	}
	return swept, nil
}
