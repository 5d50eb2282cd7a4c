package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/feed"
	"code-collaboration-studio/internal/repository"
)

// CollaborationService 负责共享文档和白板的写入路径：
// 先写持久化存储，成功后发布变更事件。
type CollaborationService struct {
	roomRepo  repository.RoomRepository
	boardRepo repository.WhiteboardRepository
	stateRepo repository.StateRepository // 标记待生成检查点的房间
	pub       ChangePublisher
	newID     IDGenerator
}

// NewCollaborationService 创建 CollaborationService 实例。
func NewCollaborationService(
	roomRepo repository.RoomRepository,
	boardRepo repository.WhiteboardRepository,
	stateRepo repository.StateRepository,
	pub ChangePublisher,
) *CollaborationService {
	if roomRepo == nil || boardRepo == nil || stateRepo == nil {
		panic("All repositories must be non-nil for CollaborationService")
	}
	return &CollaborationService{
		roomRepo:  roomRepo,
		boardRepo: boardRepo,
		stateRepo: stateRepo,
		pub:       pub,
		newID:     UUIDGenerator,
	}
}

// SaveDocument 覆盖房间文档，返回新的文档版本。
func (s *CollaborationService) SaveDocument(ctx context.Context, writer, roomID, text string) (uint64, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "session_id": writer})

	version, err := s.roomRepo.UpdateDocument(ctx, roomID, text)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return 0, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to persist document")
		return 0, storeError("update document", err)
	}
	logCtx = logCtx.WithField("version", version)

	publishChange(ctx, s.pub, feed.TableRooms, feed.KindUpdate, roomID, writer,
		feed.DocumentRow{RoomID: roomID, Text: text, Version: version})

	if err := s.stateRepo.MarkDocumentDirty(ctx, roomID); err != nil {
		// 只影响检查点的及时性
		logCtx.WithError(err).Warn("Failed to mark document dirty")
	}
	logCtx.Debug("Document persisted")
	return version, nil
}

// LoadBoard 按提交顺序返回白板日志。无法解析的行会被跳过。
func (s *CollaborationService) LoadBoard(ctx context.Context, roomID string) ([]domain.BoardEntry, error) {
	records, err := s.boardRepo.ListByRoom(ctx, roomID)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to load whiteboard")
		return nil, storeError("list whiteboard operations", err)
	}
	entries := make([]domain.BoardEntry, 0, len(records))
	for i := range records {
		entry, err := records[i].Entry()
		if err != nil {
			logrus.WithField("room_id", roomID).WithError(err).Warn("Skipping unreadable whiteboard operation")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// NewOperationID 为即将提交的操作分配 ID。
func (s *CollaborationService) NewOperationID() string { return s.newID() }

// CommitOperation 保存一条已完成的绘制操作并广播插入事件。
func (s *CollaborationService) CommitOperation(ctx context.Context, writer, roomID, userID, entryID string, op domain.DrawOperation) (domain.BoardEntry, error) {
	if userID == "" {
		return domain.BoardEntry{}, ErrNotAuthenticated
	}
	if err := validateOperation(op); err != nil {
		return domain.BoardEntry{}, err
	}
	if entryID == "" {
		entryID = s.newID()
	}
	record, err := domain.NewWhiteboardRecord(entryID, roomID, userID, op)
	if err != nil {
		return domain.BoardEntry{}, ErrInvalidOperation
	}
	if err := s.boardRepo.Insert(ctx, record); err != nil {
		logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).WithError(err).Error("Failed to insert whiteboard operation")
		return domain.BoardEntry{}, storeError("insert whiteboard operation", err)
	}
	publishChange(ctx, s.pub, feed.TableWhiteboard, feed.KindInsert, roomID, writer, record)
	return domain.BoardEntry{ID: record.ID, UserID: userID, Operation: op}, nil
}

// UndoOperation 删除作者自己的一条操作并广播删除事件。
func (s *CollaborationService) UndoOperation(ctx context.Context, writer, roomID, userID, entryID string) error {
	record, err := s.boardRepo.Delete(ctx, entryID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrForbidden):
			return ErrNotAuthor
		case errors.Is(err, repository.ErrOperationNotFound):
			return ErrOperationNotFound
		default:
			return storeError("delete whiteboard operation", err)
		}
	}
	publishChange(ctx, s.pub, feed.TableWhiteboard, feed.KindDelete, roomID, writer, feed.DeletedRow{ID: record.ID})
	return nil
}

// validateOperation 拒绝无法绘制的操作
func validateOperation(op domain.DrawOperation) error {
	switch o := op.(type) {
	case domain.Stroke:
		if (o.Kind != domain.ToolPen && o.Kind != domain.ToolEraser) || len(o.Points) == 0 {
			return ErrInvalidOperation
		}
	case domain.Shape:
		if o.Kind != domain.ToolRectangle && o.Kind != domain.ToolArrow {
			return ErrInvalidOperation
		}
	case domain.Text:
		if strings.TrimSpace(o.Value) == "" {
			return ErrInvalidOperation
		}
	default:
		return ErrInvalidOperation
	}
	return nil
}
