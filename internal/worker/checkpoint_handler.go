package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// DirtyCheckpointer 为自上次以来有写入的房间生成检查点
type DirtyCheckpointer interface {
	CheckpointDirtyRooms(ctx context.Context) (int, error)
}

// CheckpointHandler 处理周期性的文档检查点任务
type CheckpointHandler struct {
	checkpoints DirtyCheckpointer
}

// NewCheckpointHandler 创建 Handler 实例
func NewCheckpointHandler(checkpoints DirtyCheckpointer) *CheckpointHandler {
	if checkpoints == nil {
		panic("DirtyCheckpointer cannot be nil for CheckpointHandler")
	}
	return &CheckpointHandler{checkpoints: checkpoints}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *CheckpointHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)
	logCtx.Debug("Running document checkpoint task...")

	saved, err := h.checkpoints.CheckpointDirtyRooms(ctx)
	if err != nil {
		// 失败的房间已经重新标记，下一轮会再处理
		logCtx.WithError(err).Error("Document checkpoint task failed")
		return fmt.Errorf("checkpoint dirty rooms: %w", err)
	}
	if saved > 0 {
		logCtx.WithField("saved", saved).Info("Document checkpoints saved")
	}
	return nil
}
