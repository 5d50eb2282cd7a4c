package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/feed"
)

// ChangePublisher 发布行变更事件，feed.Broker 实现了它。
type ChangePublisher interface {
	PublishChange(ctx context.Context, event feed.ChangeEvent) error
}

// IDGenerator 生成新记录的主键
type IDGenerator func() string

// UUIDGenerator 是默认的 IDGenerator
func UUIDGenerator() string { return uuid.NewString() }

// publishChange 在存储写入成功之后调用。推送是尽力而为的，失败只记录日志。
func publishChange(ctx context.Context, pub ChangePublisher, table feed.Table, kind feed.Kind, roomID, writer string, row interface{}) {
	if pub == nil {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "table": table, "kind": kind})
	event, err := feed.NewChangeEvent(table, kind, roomID, writer, row)
	if err != nil {
		logCtx.WithError(err).Error("Failed to build change event")
		return
	}
	if err := pub.PublishChange(ctx, event); err != nil {
		logCtx.WithError(err).Warn("Change event dropped")
	}
}
