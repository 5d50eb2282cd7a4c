package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Broker 在 Transport 之上提供带类型的发布/订阅，并负责频道命名。
type Broker struct {
	transport Transport
	prefix    string
	log       *logrus.Entry
}

// NewBroker 创建 Broker。
func NewBroker(transport Transport, prefix string, log *logrus.Logger) *Broker {
	if transport == nil {
		panic("transport cannot be nil for Broker")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Broker{transport: transport, prefix: prefix, log: log.WithField("component", "feed")}
}

// TableChannel 返回 (表, 房间) 的频道名。
func (b *Broker) TableChannel(table Table, roomID string) string {
	return fmt.Sprintf("%sfeed:%s:%s", b.prefix, table, roomID)
}

// PresenceChannel 返回房间的在线广播频道名。
func (b *Broker) PresenceChannel(roomID string) string {
	return fmt.Sprintf("%spresence:%s", b.prefix, roomID)
}

// PublishChange 发布行变更事件。
func (b *Broker) PublishChange(ctx context.Context, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("feed: marshal change event: %w", err)
	}
	channel := b.TableChannel(event.Table, event.RoomID)
	if err := b.transport.Publish(ctx, channel, payload); err != nil {
		b.log.WithFields(logrus.Fields{
			"channel": channel,
			"kind":    event.Kind,
			"room_id": event.RoomID,
		}).WithError(err).Error("Publish change event failed")
		return err
	}
	return nil
}

// PublishPresence 发布在线信号。
func (b *Broker) PublishPresence(ctx context.Context, roomID string, signal PresenceSignal) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("feed: marshal presence signal: %w", err)
	}
	return b.transport.Publish(ctx, b.PresenceChannel(roomID), payload)
}

// SubscribeChanges 订阅 (表, 房间) 的行变更。
func (b *Broker) SubscribeChanges(ctx context.Context, table Table, roomID string) (Subscription, error) {
	return b.transport.Subscribe(ctx, b.TableChannel(table, roomID))
}

// SubscribePresence 订阅房间的在线广播。
func (b *Broker) SubscribePresence(ctx context.Context, roomID string) (Subscription, error) {
	return b.transport.Subscribe(ctx, b.PresenceChannel(roomID))
}

// DecodeChange 解析行变更事件。
func DecodeChange(payload []byte) (ChangeEvent, error) {
	var event ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return ChangeEvent{}, fmt.Errorf("feed: unmarshal change event: %w", err)
	}
	return event, nil
}

// DecodePresence 解析在线信号。
func DecodePresence(payload []byte) (PresenceSignal, error) {
	var signal PresenceSignal
	if err := json.Unmarshal(payload, &signal); err != nil {
		return PresenceSignal{}, fmt.Errorf("feed: unmarshal presence signal: %w", err)
	}
	return signal, nil
}
