package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/feed"
	"code-collaboration-studio/internal/repository"
	"code-collaboration-studio/internal/repository/mocks"
	"code-collaboration-studio/internal/service"
)

func TestMemberService_Roster_ResolvesNames(t *testing.T) {
	memberRepo := new(mocks.MemberRepository)
	profileRepo := new(mocks.ProfileRepository)
	svc := service.NewMemberService(memberRepo, profileRepo, nil)
	ctx := context.Background()
	joined := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	memberRepo.On("ListByRoom", ctx, "room-1").Return([]domain.Member{
		{RoomID: "room-1", UserID: "host", IsOnline: true, JoinedAt: joined},
		{RoomID: "room-1", UserID: "ghost", IsOnline: false, JoinedAt: joined},
	}, nil).Once()
	profileRepo.On("FindByUserIDs", ctx, []string{"host", "ghost"}).
		Return([]domain.Profile{{UserID: "host", DisplayName: "Ada"}}, nil).Once()

	roster, err := svc.Roster(ctx, "room-1", "host")

	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "Ada", roster[0].DisplayName)
	assert.True(t, roster[0].IsHost)
	assert.Equal(t, domain.UnknownDisplayName, roster[1].DisplayName, "缺少资料的成员应显示为 Unknown")
	assert.False(t, roster[1].IsOnline)
}

func TestMemberService_Roster_ProfileFailureFallsBack(t *testing.T) {
	memberRepo := new(mocks.MemberRepository)
	profileRepo := new(mocks.ProfileRepository)
	svc := service.NewMemberService(memberRepo, profileRepo, nil)
	ctx := context.Background()

	memberRepo.On("ListByRoom", ctx, "room-1").Return([]domain.Member{{RoomID: "room-1", UserID: "u1"}}, nil).Once()
	profileRepo.On("FindByUserIDs", ctx, mock.Anything).Return(nil, errors.New("timeout")).Once()

	roster, err := svc.Roster(ctx, "room-1", "")

	require.NoError(t, err, "资料查询失败不应导致整个名册失败")
	require.Len(t, roster, 1)
	assert.Equal(t, domain.UnknownDisplayName, roster[0].DisplayName)
}

func TestMemberService_Roster_StoreDown(t *testing.T) {
	memberRepo := new(mocks.MemberRepository)
	svc := service.NewMemberService(memberRepo, new(mocks.ProfileRepository), nil)
	ctx := context.Background()
	memberRepo.On("ListByRoom", ctx, "room-1").Return(nil, errors.New("connection reset")).Once()

	_, err := svc.Roster(ctx, "room-1", "")
	assert.ErrorIs(t, err, service.ErrStoreUnavailable)
}

func TestMemberService_MarkOffline(t *testing.T) {
	memberRepo := new(mocks.MemberRepository)
	pub := &recordingPublisher{}
	svc := service.NewMemberService(memberRepo, new(mocks.ProfileRepository), pub)
	ctx := context.Background()

	memberRepo.On("SetOnline", ctx, "room-1", "u1", false).Return(nil).Once()
	memberRepo.On("SetOnline", ctx, "room-1", "missing", false).Return(repository.ErrNotFound).Once()

	require.NoError(t, svc.MarkOffline(ctx, "room-1", "u1"))
	require.NoError(t, svc.MarkOffline(ctx, "room-1", "missing"), "不存在的成员应被忽略")

	events := pub.Events()
	require.Len(t, events, 1)
	var row feed.MemberRow
	require.NoError(t, events[0].DecodeRow(&row))
	assert.False(t, row.IsOnline)
	assert.Equal(t, "u1", row.UserID)
}
