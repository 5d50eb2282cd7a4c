package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/feed"
	"code-collaboration-studio/internal/repository"
)

// MemberService 负责成员关系和名册。
type MemberService struct {
	memberRepo  repository.MemberRepository
	profileRepo repository.ProfileRepository
	pub         ChangePublisher
}

// NewMemberService 创建 MemberService 实例。
func NewMemberService(memberRepo repository.MemberRepository, profileRepo repository.ProfileRepository, pub ChangePublisher) *MemberService {
	if memberRepo == nil || profileRepo == nil {
		panic("Member and Profile repositories cannot be nil for MemberService")
	}
	return &MemberService{memberRepo: memberRepo, profileRepo: profileRepo, pub: pub}
}

// Join 以 (room_id, user_id) 为键 upsert 成员并标记在线。
func (s *MemberService) Join(ctx context.Context, writer, roomID, userID string) error {
	member := &domain.Member{RoomID: roomID, UserID: userID}
	if err := s.memberRepo.Upsert(ctx, member); err != nil {
		logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).WithError(err).Error("Failed to upsert member")
		return storeError("upsert member", err)
	}
	publishChange(ctx, s.pub, feed.TableMembers, feed.KindUpdate, roomID, writer,
		feed.MemberRow{RoomID: roomID, UserID: userID, IsOnline: true})
	return nil
}

// MarkOffline 将成员标记为离线，行不会被删除。
func (s *MemberService) MarkOffline(ctx context.Context, roomID, userID string) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})
	if err := s.memberRepo.SetOnline(ctx, roomID, userID, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logCtx.Debug("MarkOffline: member row does not exist")
			return nil
		}
		logCtx.WithError(err).Error("Failed to mark member offline")
		return storeError("mark member offline", err)
	}
	publishChange(ctx, s.pub, feed.TableMembers, feed.KindUpdate, roomID, "",
		feed.MemberRow{RoomID: roomID, UserID: userID, IsOnline: false})
	logCtx.Info("Member marked offline")
	return nil
}

// Roster 重新读取成员并合并显示名称。资料查询失败的成员显示为 Unknown。
func (s *MemberService) Roster(ctx context.Context, roomID, hostID string) ([]domain.RosterEntry, error) {
	members, err := s.memberRepo.ListByRoom(ctx, roomID)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to list members")
		return nil, storeError("list members", err)
	}

	userIDs := make([]string, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	names := make(map[string]string, len(members))
	profiles, err := s.profileRepo.FindByUserIDs(ctx, userIDs)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Warn("Profile lookup failed, falling back to Unknown")
	}
	for _, p := range profiles {
		names[p.UserID] = p.DisplayName
	}

	roster := make([]domain.RosterEntry, 0, len(members))
	for _, m := range members {
		name, ok := names[m.UserID]
		if !ok || name == "" {
			name = domain.UnknownDisplayName
		}
		roster = append(roster, domain.RosterEntry{
			UserID:      m.UserID,
			DisplayName: name,
			IsOnline:    m.IsOnline,
			IsHost:      m.UserID == hostID,
			JoinedAt:    m.JoinedAt,
		})
	}
	return roster, nil
}
