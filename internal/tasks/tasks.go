package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// 定义任务类型常量
const (
	TypeMemberOffline      = "member:offline"      // 用户最后一个会话离开房间
	TypePresenceSweep      = "presence:sweep"      // 周期性清理过期心跳
	TypeDocumentCheckpoint = "document:checkpoint" // 周期性生成文档检查点
)

// MemberOfflinePayload 定义了成员离线任务的数据结构
type MemberOfflinePayload struct {
	RoomID string    `json:"room_id"`
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}

// NewMemberOfflineTask 创建一个成员离线任务
func NewMemberOfflineTask(roomID, userID string, at time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(MemberOfflinePayload{RoomID: roomID, UserID: userID, At: at})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal member offline payload: %w", err)
	}
	return asynq.NewTask(TypeMemberOffline, payload, asynq.MaxRetry(3), asynq.Timeout(30*time.Second)), nil
}

// ParseMemberOfflinePayload 解析成员离线任务
func ParseMemberOfflinePayload(t *asynq.Task) (MemberOfflinePayload, error) {
	var payload MemberOfflinePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return MemberOfflinePayload{}, err
	}
	if payload.RoomID == "" || payload.UserID == "" {
		return MemberOfflinePayload{}, fmt.Errorf("member offline payload needs room_id and user_id")
	}
	return payload, nil
}

// NewPresenceSweepTask 创建心跳清理任务，周期任务不带负载
func NewPresenceSweepTask() *asynq.Task {
	return asynq.NewTask(TypePresenceSweep, nil, asynq.MaxRetry(0))
}

// NewDocumentCheckpointTask 创建检查点任务
func NewDocumentCheckpointTask() *asynq.Task {
	return asynq.NewTask(TypeDocumentCheckpoint, nil, asynq.MaxRetry(1))
}

// Enqueuer 是 asynq.Client 的一层封装
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// OfflineScheduler 把成员离线转换为后台任务
type OfflineScheduler struct {
	client Enqueuer
}

// NewOfflineScheduler 创建 OfflineScheduler
func NewOfflineScheduler(client Enqueuer) *OfflineScheduler {
	if client == nil {
		panic("asynq client cannot be nil for OfflineScheduler")
	}
	return &OfflineScheduler{client: client}
}

// ScheduleMemberOffline 入队一个成员离线任务
func (s *OfflineScheduler) ScheduleMemberOffline(ctx context.Context, roomID, userID string) error {
	task, err := NewMemberOfflineTask(roomID, userID, time.Now())
	if err != nil {
		return err
	}
	if _, err := s.client.EnqueueContext(ctx, task, asynq.Queue("default")); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TypeMemberOffline, err)
	}
	return nil
}
