package service_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/repository"
	"code-collaboration-studio/internal/repository/mocks"
	"code-collaboration-studio/internal/service"
)

func hashOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestCheckpointService_CheckpointRoom_SavesWhenChanged(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	checkpointRepo := new(mocks.CheckpointRepository)
	svc := service.NewCheckpointService(roomRepo, checkpointRepo, new(mocks.StateRepository), 3)
	ctx := context.Background()

	roomRepo.On("FindByID", ctx, "room-1").Return(&domain.Room{ID: "room-1", CurrentDocument: "v2", DocumentVersion: 2}, nil).Once()
	checkpointRepo.On("Latest", ctx, "room-1").Return(&domain.DocumentCheckpoint{ContentHash: hashOf("v1")}, nil).Once()
	checkpointRepo.On("Save", ctx, mock.MatchedBy(func(c *domain.DocumentCheckpoint) bool {
		return c.Content == "v2" && c.ContentHash == hashOf("v2") && c.DocumentVersion == 2
	})).Return(nil).Once()
	checkpointRepo.On("Prune", ctx, "room-1", 3).Return(int64(1), nil).Once()

	created, err := svc.CheckpointRoom(ctx, "room-1")

	require.NoError(t, err)
	assert.True(t, created)
	checkpointRepo.AssertExpectations(t)
}

func TestCheckpointService_CheckpointRoom_SkipsUnchanged(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	checkpointRepo := new(mocks.CheckpointRepository)
	svc := service.NewCheckpointService(roomRepo, checkpointRepo, new(mocks.StateRepository), 0)
	ctx := context.Background()

	roomRepo.On("FindByID", ctx, "room-1").Return(&domain.Room{ID: "room-1", CurrentDocument: "same"}, nil).Once()
	checkpointRepo.On("Latest", ctx, "room-1").Return(&domain.DocumentCheckpoint{ContentHash: hashOf("same")}, nil).Once()

	created, err := svc.CheckpointRoom(ctx, "room-1")

	require.NoError(t, err)
	assert.False(t, created)
	checkpointRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCheckpointService_CheckpointRoom_FirstCheckpoint(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	checkpointRepo := new(mocks.CheckpointRepository)
	svc := service.NewCheckpointService(roomRepo, checkpointRepo, new(mocks.StateRepository), 0)
	ctx := context.Background()

	roomRepo.On("FindByID", ctx, "room-1").Return(&domain.Room{ID: "room-1", CurrentDocument: ""}, nil).Once()
	checkpointRepo.On("Latest", ctx, "room-1").Return(nil, repository.ErrCheckpointNotFound).Once()
	checkpointRepo.On("Save", ctx, mock.Anything).Return(nil).Once()
	checkpointRepo.On("Prune", ctx, "room-1", service.DefaultCheckpointKeep).Return(int64(0), nil).Once()

	created, err := svc.CheckpointRoom(ctx, "room-1")

	require.NoError(t, err)
	assert.True(t, created)
}

func TestCheckpointService_CheckpointDirtyRooms_RemarksFailures(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	checkpointRepo := new(mocks.CheckpointRepository)
	stateRepo := new(mocks.StateRepository)
	svc := service.NewCheckpointService(roomRepo, checkpointRepo, stateRepo, 5)
	ctx := context.Background()

	stateRepo.On("PopDirtyDocuments", ctx).Return([]string{"ok", "broken"}, nil).Once()
	roomRepo.On("FindByID", ctx, "ok").Return(&domain.Room{ID: "ok", CurrentDocument: "x"}, nil).Once()
	roomRepo.On("FindByID", ctx, "broken").Return(nil, errors.New("db down")).Once()
	checkpointRepo.On("Latest", ctx, "ok").Return(nil, repository.ErrCheckpointNotFound).Once()
	checkpointRepo.On("Save", ctx, mock.Anything).Return(nil).Once()
	checkpointRepo.On("Prune", ctx, "ok", 5).Return(int64(0), nil).Once()
	stateRepo.On("MarkDocumentDirty", ctx, "broken").Return(nil).Once()

	created, err := svc.CheckpointDirtyRooms(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, created)
	stateRepo.AssertExpectations(t)
}

func TestCheckpointService_List_ClampsLimit(t *testing.T) {
	checkpointRepo := new(mocks.CheckpointRepository)
	svc := service.NewCheckpointService(new(mocks.RoomRepository), checkpointRepo, new(mocks.StateRepository), 4)
	ctx := context.Background()
	checkpointRepo.On("List", ctx, "room-1", 4).Return([]domain.DocumentCheckpoint{{ID: 2}, {ID: 1}}, nil).Once()

	list, err := svc.List(ctx, "room-1", 100)

	require.NoError(t, err)
	assert.Len(t, list, 2)
}
