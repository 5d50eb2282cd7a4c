package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/repository"
)

// DefaultCheckpointKeep 是每个房间默认保留的检查点数量。
const DefaultCheckpointKeep = 20

// CheckpointService 负责为房间文档生成和查询检查点。
type CheckpointService struct {
	roomRepo       repository.RoomRepository
	checkpointRepo repository.CheckpointRepository
	stateRepo      repository.StateRepository
	keep           int
}

// NewCheckpointService 创建 CheckpointService 实例。keep <= 0 时使用默认值。
func NewCheckpointService(
	roomRepo repository.RoomRepository,
	checkpointRepo repository.CheckpointRepository,
	stateRepo repository.StateRepository,
	keep int,
) *CheckpointService {
	if roomRepo == nil || checkpointRepo == nil || stateRepo == nil {
		panic("All repositories must be non-nil for CheckpointService")
	}
	if keep <= 0 {
		keep = DefaultCheckpointKeep
	}
	return &CheckpointService{
		roomRepo:       roomRepo,
		checkpointRepo: checkpointRepo,
		stateRepo:      stateRepo,
		keep:           keep,
	}
}

// CheckpointDirtyRooms 为自上次运行以来有写入的房间生成检查点，返回新建的数量。
// 单个房间失败不会中断其余房间。
func (s *CheckpointService) CheckpointDirtyRooms(ctx context.Context) (int, error) {
	roomIDs, err := s.stateRepo.PopDirtyDocuments(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to pop dirty documents")
		return 0, storeError("pop dirty documents", err)
	}
	created := 0
	for _, roomID := range roomIDs {
		ok, err := s.CheckpointRoom(ctx, roomID)
		if err != nil {
			// 放回集合，下一轮重试
			if markErr := s.stateRepo.MarkDocumentDirty(ctx, roomID); markErr != nil {
				logrus.WithField("room_id", roomID).WithError(markErr).Warn("Failed to re-mark document dirty")
			}
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// CheckpointRoom 在内容哈希与最新检查点不同时保存一个新检查点，并裁剪旧的检查点。
func (s *CheckpointService) CheckpointRoom(ctx context.Context, roomID string) (bool, error) {
	logCtx := logrus.WithField("room_id", roomID)

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			logCtx.Warn("Checkpoint skipped: room no longer exists")
			return false, nil
		}
		logCtx.WithError(err).Error("Failed to load room for checkpoint")
		return false, storeError("find room", err)
	}

	hash := contentHash(room.CurrentDocument)
	latest, err := s.checkpointRepo.Latest(ctx, roomID)
	switch {
	case err == nil && latest.ContentHash == hash:
		logCtx.Debug("Checkpoint skipped: content unchanged")
		return false, nil
	case err != nil && !errors.Is(err, repository.ErrCheckpointNotFound):
		logCtx.WithError(err).Error("Failed to load latest checkpoint")
		return false, storeError("latest checkpoint", err)
	}

	checkpoint := &domain.DocumentCheckpoint{
		RoomID:          roomID,
		Content:         room.CurrentDocument,
		ContentHash:     hash,
		DocumentVersion: room.DocumentVersion,
	}
	if err := s.checkpointRepo.Save(ctx, checkpoint); err != nil {
		logCtx.WithError(err).Error("Failed to save checkpoint")
		return false, storeError("save checkpoint", err)
	}

	pruned, err := s.checkpointRepo.Prune(ctx, roomID, s.keep)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to prune checkpoints")
	}
	logCtx.WithFields(logrus.Fields{
		"version": room.DocumentVersion,
		"pruned":  pruned,
	}).Info("Document checkpoint saved")
	return true, nil
}

// List 返回房间最近的检查点，最新的在前。
func (s *CheckpointService) List(ctx context.Context, roomID string, limit int) ([]domain.DocumentCheckpoint, error) {
	if limit <= 0 || limit > s.keep {
		limit = s.keep
	}
	checkpoints, err := s.checkpointRepo.List(ctx, roomID, limit)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to list checkpoints")
		return nil, storeError("list checkpoints", err)
	}
	return checkpoints, nil
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
