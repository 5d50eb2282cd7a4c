package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/tasks"
)

// OfflineMarker 把成员标记为离线
type OfflineMarker interface {
	MarkOffline(ctx context.Context, roomID, userID string) error
}

// LiveSessionCounter 报告用户在房间内仍活跃的会话数
type LiveSessionCounter interface {
	LiveSessions(roomID, userID string) int
}

// PresenceSweeper 清理过期心跳
type PresenceSweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// taskLogger 构造带任务信息的日志上下文
func taskLogger(ctx context.Context, t *asynq.Task) *logrus.Entry {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	currentRetry, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	return logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     currentRetry,
		"max_retry": maxRetry,
	})
}

// MemberOfflineHandler 处理成员离线任务
type MemberOfflineHandler struct {
	presence OfflineMarker
	live     LiveSessionCounter
}

// NewMemberOfflineHandler 创建 Handler 实例。live 为空时不做重连检查。
func NewMemberOfflineHandler(presence OfflineMarker, live LiveSessionCounter) *MemberOfflineHandler {
	if presence == nil {
		panic("OfflineMarker cannot be nil for MemberOfflineHandler")
	}
	return &MemberOfflineHandler{presence: presence, live: live}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *MemberOfflineHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)

	payload, err := tasks.ParseMemberOfflinePayload(t)
	if err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	logCtx = logCtx.WithFields(logrus.Fields{"room_id": payload.RoomID, "user_id": payload.UserID})

	// 任务入队后用户可能已经重新进入房间
	if h.live != nil && h.live.LiveSessions(payload.RoomID, payload.UserID) > 0 {
		logCtx.Info("User reconnected before offline task ran, skipping")
		return nil
	}

	if err := h.presence.MarkOffline(ctx, payload.RoomID, payload.UserID); err != nil {
		logCtx.WithError(err).Error("Failed to mark member offline")
		return fmt.Errorf("failed to mark member offline: %w", err)
	}
	logCtx.Info("Member offline task processed successfully")
	return nil
}

// PresenceSweepHandler 处理周期性的心跳清理任务
type PresenceSweepHandler struct {
	presence PresenceSweeper
	now      func() time.Time
}

// NewPresenceSweepHandler 创建 Handler 实例
func NewPresenceSweepHandler(presence PresenceSweeper) *PresenceSweepHandler {
	if presence == nil {
		panic("PresenceSweeper cannot be nil for PresenceSweepHandler")
	}
	return &PresenceSweepHandler{presence: presence, now: time.Now}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *PresenceSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)
	swept, err := h.presence.Sweep(ctx, h.now())
	if err != nil {
		logCtx.WithError(err).Error("Presence sweep failed")
		return fmt.Errorf("presence sweep: %w", err)
	}
	if swept > 0 {
		logCtx.WithField("swept", swept).Info("Expired members marked offline")
	}
	return nil
}
