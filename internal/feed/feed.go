// Package feed 定义变更推送的传输契约和事件格式。
// 表级事件按 (表, 房间) 分频道，在线状态走独立的房间频道，不经过持久化存储。
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrClosed 表示传输已关闭。
var ErrClosed = errors.New("feed: transport closed")

// Transport 是发布/订阅传输。
type Transport interface {
	// Publish 向频道发布消息，尽力投递。
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe 订阅频道，只在传输确认订阅生效后返回。
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription 是一个已生效的频道订阅。
type Subscription interface {
	// Messages 按发布顺序投递消息，Close 之后关闭。
	Messages() <-chan []byte
	Close() error
}

// Table 是产生变更事件的表名。
type Table string

const (
	TableRooms      Table = "rooms"
	TableMembers    Table = "room_members"
	TableChat       Table = "chat_messages"
	TableWhiteboard Table = "whiteboard_operations"
)

// Kind 是行级变更类型。
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// ChangeEvent 描述一次已提交的行变更。Writer 是发起写入的会话 ID，用于识别回声。
type ChangeEvent struct {
	Table  Table           `json:"table"`
	Kind   Kind            `json:"kind"`
	RoomID string          `json:"room_id"`
	Writer string          `json:"writer,omitempty"`
	Row    json.RawMessage `json:"row,omitempty"`
	At     time.Time       `json:"at"`
}

// NewChangeEvent 序列化 row 并构造事件。
func NewChangeEvent(table Table, kind Kind, roomID, writer string, row interface{}) (ChangeEvent, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("feed: marshal %s row: %w", table, err)
	}
	return ChangeEvent{Table: table, Kind: kind, RoomID: roomID, Writer: writer, Row: raw, At: time.Now()}, nil
}

// DecodeRow 将事件行解析到 v。
func (e ChangeEvent) DecodeRow(v interface{}) error {
	if len(e.Row) == 0 {
		return fmt.Errorf("feed: %s %s event has no row", e.Table, e.Kind)
	}
	return json.Unmarshal(e.Row, v)
}

// PresenceKind 是在线信号类型。
type PresenceKind string

const (
	PresenceHeartbeat PresenceKind = "heartbeat"
	PresenceLeave     PresenceKind = "leave"
)

// PresenceSignal 是临时的在线广播，不持久化。
type PresenceSignal struct {
	Kind      PresenceKind `json:"kind"`
	UserID    string       `json:"user_id"`
	SessionID string       `json:"session_id"`
	At        time.Time    `json:"at"`
}

// DocumentRow 是文档更新事件携带的行。
type DocumentRow struct {
	RoomID  string `json:"room_id"`
	Text    string `json:"text"`
	Version uint64 `json:"version"`
}

// DeletedRow 是删除事件携带的行，只有主键。
type DeletedRow struct {
	ID string `json:"id"`
}

// MemberRow 是成员事件携带的行。
type MemberRow struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}
