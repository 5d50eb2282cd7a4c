package service_test

import (
	"context"
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

func TestChatService_Send_RejectsEmptyAndAnonymous(t *testing.T) {
	chatRepo := new(mocks.ChatRepository)
	svc := service.NewChatService(chatRepo, nil)
	ctx := context.Background()

	_, err := svc.Send(ctx, "s1", svc.NewDraft("room-1", "u1", "   \n\t"))
	assert.ErrorIs(t, err, service.ErrEmptyContent)

	_, err = svc.Send(ctx, "s1", svc.NewDraft("room-1", "", "hello"))
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)

	chatRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestChatService_Send_PublishesInsert(t *testing.T) {
	chatRepo := new(mocks.ChatRepository)
	pub := &recordingPublisher{}
	svc := service.NewChatService(chatRepo, pub)
	ctx := context.Background()
	draft := svc.NewDraft("room-1", "u1", "  hi there ")

	chatRepo.On("Insert", ctx, mock.MatchedBy(func(m *domain.ChatMessage) bool {
		return m.ID == draft.ID && m.Content == "hi there"
	})).Return(nil).Once()

	msg, err := svc.Send(ctx, "s1", draft)

	require.NoError(t, err)
	assert.Equal(t, "hi there", msg.Content)
	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, feed.TableChat, events[0].Table)
	assert.Equal(t, feed.KindInsert, events[0].Kind)
	assert.Equal(t, "s1", events[0].Writer)
}

func TestChatService_Edit_NonAuthorRejected(t *testing.T) {
	chatRepo := new(mocks.ChatRepository)
	pub := &recordingPublisher{}
	svc := service.NewChatService(chatRepo, pub)
	ctx := context.Background()

	chatRepo.On("FindByID", ctx, "m1").Return(&domain.ChatMessage{ID: "m1", RoomID: "room-1", UserID: "author"}, nil)
	chatRepo.On("UpdateContent", ctx, "m1", "intruder", "hacked").Return(nil, repository.ErrForbidden).Once()
	chatRepo.On("Delete", ctx, "m1", "intruder").Return(nil, repository.ErrForbidden).Once()

	_, err := svc.Edit(ctx, "s2", "room-1", "m1", "intruder", "hacked")
	assert.ErrorIs(t, err, service.ErrNotAuthor)

	err = svc.Remove(ctx, "s2", "room-1", "m1", "intruder")
	assert.ErrorIs(t, err, service.ErrNotAuthor)

	assert.Empty(t, pub.Events(), "被拒绝的修改不应发布事件")
}

func TestChatService_Edit_Author(t *testing.T) {
	chatRepo := new(mocks.ChatRepository)
	pub := &recordingPublisher{}
	svc := service.NewChatService(chatRepo, pub)
	ctx := context.Background()
	created := time.Now().Add(-time.Minute)

	chatRepo.On("FindByID", ctx, "m1").Return(&domain.ChatMessage{ID: "m1", RoomID: "room-1", UserID: "author"}, nil)
	chatRepo.On("UpdateContent", ctx, "m1", "author", "fixed").
		Return(&domain.ChatMessage{ID: "m1", RoomID: "room-1", UserID: "author", Content: "fixed", CreatedAt: created}, nil).Once()
	chatRepo.On("Delete", ctx, "m1", "author").
		Return(&domain.ChatMessage{ID: "m1", RoomID: "room-1", UserID: "author"}, nil).Once()

	msg, err := svc.Edit(ctx, "s1", "room-1", "m1", "author", " fixed ")
	require.NoError(t, err)
	assert.Equal(t, created, msg.CreatedAt, "修改不应改变创建时间")

	require.NoError(t, svc.Remove(ctx, "s1", "room-1", "m1", "author"))

	events := pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, feed.KindUpdate, events[0].Kind)
	assert.Equal(t, feed.KindDelete, events[1].Kind)
	var row feed.DeletedRow
	require.NoError(t, events[1].DecodeRow(&row))
	assert.Equal(t, "m1", row.ID)
}

func TestChatService_Edit_OtherRoomIsNotFound(t *testing.T) {
	chatRepo := new(mocks.ChatRepository)
	svc := service.NewChatService(chatRepo, nil)
	ctx := context.Background()

	chatRepo.On("FindByID", ctx, "m1").Return(&domain.ChatMessage{ID: "m1", RoomID: "room-2", UserID: "author"}, nil)
	chatRepo.On("FindByID", ctx, "gone").Return(nil, repository.ErrMessageNotFound)

	_, err := svc.Edit(ctx, "s1", "room-1", "m1", "author", "x")
	assert.ErrorIs(t, err, service.ErrMessageNotFound)

	err = svc.Remove(ctx, "s1", "room-1", "gone", "author")
	assert.ErrorIs(t, err, service.ErrMessageNotFound)
	chatRepo.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
