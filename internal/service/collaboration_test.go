package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/feed"
	"code-collaboration-studio/internal/repository"
	"code-collaboration-studio/internal/repository/mocks"
	"code-collaboration-studio/internal/service"
)

type collaborationFixture struct {
	svc       *service.CollaborationService
	roomRepo  *mocks.RoomRepository
	boardRepo *mocks.WhiteboardRepository
	stateRepo *mocks.StateRepository
	pub       *recordingPublisher
}

func newCollaborationFixture() collaborationFixture {
	f := collaborationFixture{
		roomRepo:  new(mocks.RoomRepository),
		boardRepo: new(mocks.WhiteboardRepository),
		stateRepo: new(mocks.StateRepository),
		pub:       &recordingPublisher{},
	}
	f.svc = service.NewCollaborationService(f.roomRepo, f.boardRepo, f.stateRepo, f.pub)
	return f
}

func TestCollaborationService_SaveDocument(t *testing.T) {
	f := newCollaborationFixture()
	ctx := context.Background()
	f.roomRepo.On("UpdateDocument", ctx, "room-1", "int main() {}").Return(uint64(7), nil).Once()
	f.stateRepo.On("MarkDocumentDirty", ctx, "room-1").Return(nil).Once()

	version, err := f.svc.SaveDocument(ctx, "s1", "room-1", "int main() {}")

	require.NoError(t, err)
	assert.Equal(t, uint64(7), version)
	events := f.pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, feed.TableRooms, events[0].Table)
	var row feed.DocumentRow
	require.NoError(t, events[0].DecodeRow(&row))
	assert.Equal(t, uint64(7), row.Version)
	assert.Equal(t, "int main() {}", row.Text)
	f.stateRepo.AssertExpectations(t)
}

func TestCollaborationService_SaveDocument_Failures(t *testing.T) {
	f := newCollaborationFixture()
	ctx := context.Background()
	f.roomRepo.On("UpdateDocument", ctx, "gone", mock.Anything).Return(uint64(0), repository.ErrRoomNotFound).Once()
	f.roomRepo.On("UpdateDocument", ctx, "room-1", mock.Anything).Return(uint64(0), errors.New("dial tcp: refused")).Once()

	_, err := f.svc.SaveDocument(ctx, "s1", "gone", "x")
	assert.ErrorIs(t, err, service.ErrRoomNotFound)

	_, err = f.svc.SaveDocument(ctx, "s1", "room-1", "x")
	assert.ErrorIs(t, err, service.ErrStoreUnavailable)
	assert.Empty(t, f.pub.Events())
	f.stateRepo.AssertNotCalled(t, "MarkDocumentDirty", mock.Anything, mock.Anything)
}

func TestCollaborationService_CommitAndUndo(t *testing.T) {
	f := newCollaborationFixture()
	ctx := context.Background()
	stroke := domain.Stroke{Kind: domain.ToolPen, Points: []domain.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}, Style: domain.Style{Color: domain.DefaultColor, StrokeWidth: 2}}

	f.boardRepo.On("Insert", ctx, mock.MatchedBy(func(r *domain.WhiteboardRecord) bool {
		return r.ID == "op-1" && r.RoomID == "room-1" && r.UserID == "u1" && r.Kind == string(domain.ToolPen)
	})).Return(nil).Once()
	f.boardRepo.On("Delete", ctx, "op-1", "u1").Return(&domain.WhiteboardRecord{ID: "op-1", RoomID: "room-1", UserID: "u1"}, nil).Once()

	entry, err := f.svc.CommitOperation(ctx, "s1", "room-1", "u1", "op-1", stroke)
	require.NoError(t, err)
	assert.Equal(t, "op-1", entry.ID)
	assert.Equal(t, stroke, entry.Operation)

	require.NoError(t, f.svc.UndoOperation(ctx, "s1", "room-1", "u1", "op-1"))

	events := f.pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, feed.KindInsert, events[0].Kind)
	assert.Equal(t, feed.TableWhiteboard, events[0].Table)
	assert.Equal(t, feed.KindDelete, events[1].Kind)
}

func TestCollaborationService_CommitRejectsInvalid(t *testing.T) {
	f := newCollaborationFixture()
	ctx := context.Background()

	_, err := f.svc.CommitOperation(ctx, "s1", "room-1", "u1", "", domain.Stroke{Kind: domain.ToolPen})
	assert.ErrorIs(t, err, service.ErrInvalidOperation)

	_, err = f.svc.CommitOperation(ctx, "s1", "room-1", "u1", "", domain.Text{At: domain.Point{X: 1, Y: 1}, Value: "  "})
	assert.ErrorIs(t, err, service.ErrInvalidOperation)

	_, err = f.svc.CommitOperation(ctx, "s1", "room-1", "", "", domain.Shape{Kind: domain.ToolArrow})
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)

	f.boardRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestCollaborationService_UndoErrors(t *testing.T) {
	f := newCollaborationFixture()
	ctx := context.Background()
	f.boardRepo.On("Delete", ctx, "op-1", "intruder").Return(nil, repository.ErrForbidden).Once()
	f.boardRepo.On("Delete", ctx, "op-2", "u1").Return(nil, repository.ErrOperationNotFound).Once()

	assert.ErrorIs(t, f.svc.UndoOperation(ctx, "s1", "room-1", "intruder", "op-1"), service.ErrNotAuthor)
	assert.ErrorIs(t, f.svc.UndoOperation(ctx, "s1", "room-1", "u1", "op-2"), service.ErrOperationNotFound)
	assert.Empty(t, f.pub.Events())
}

func TestCollaborationService_LoadBoardSkipsUnreadable(t *testing.T) {
	f := newCollaborationFixture()
	ctx := context.Background()
	good, err := domain.NewWhiteboardRecord("op-1", "room-1", "u1",
		domain.Shape{Kind: domain.ToolRectangle, Start: domain.Point{X: 0, Y: 0}, End: domain.Point{X: 5, Y: 5}, Style: domain.Style{Color: "#fff", StrokeWidth: 2}})
	require.NoError(t, err)
	bad := domain.WhiteboardRecord{ID: "op-2", RoomID: "room-1", UserID: "u1", Kind: "pen", Payload: "{not json"}
	f.boardRepo.On("ListByRoom", ctx, "room-1").Return([]domain.WhiteboardRecord{*good, bad}, nil).Once()

	entries, err := f.svc.LoadBoard(ctx, "room-1")

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "op-1", entries[0].ID)
}
