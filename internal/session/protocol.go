package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/feed"
	"code-collaboration-studio/internal/service"
)

// 客户端发往会话的命令类型。
const (
	CmdRoomEnter   = "room.enter"
	CmdRoomExit    = "room.exit"
	CmdDocumentSet = "document.set"
	CmdChatOpen    = "chat.open"
	CmdChatSend    = "chat.send"
	CmdChatEdit    = "chat.edit"
	CmdChatDelete  = "chat.delete"
	CmdBoardBegin  = "board.begin"
	CmdBoardExtend = "board.extend"
	CmdBoardDone   = "board.release"
	CmdBoardText   = "board.text"
	CmdBoardUndo   = "board.undo"
	CmdRun         = "run"
)

// 会话发往客户端的事件类型。
const (
	EvtRoomReady       = "room.ready"
	EvtRoomNotFound    = "room.not_found"
	EvtRoomLeft        = "room.left"
	EvtDocumentUpdated = "document.updated"
	EvtRosterUpdated   = "roster.updated"
	EvtPresenceUpdated = "presence.updated"
	EvtChatLoaded      = "chat.loaded"
	EvtChatDelta       = "chat.delta"
	EvtBoardUpdated    = "board.updated"
	EvtRunResult       = "run.result"
	EvtError           = "error"
)

// Command 是客户端消息，字段按 Type 取用。
type Command struct {
	Type    string        `json:"type"`
	Code    string        `json:"code,omitempty"`
	Text    string        `json:"text,omitempty"`
	Content string        `json:"content,omitempty"`
	ID      string        `json:"id,omitempty"`
	Tool    string        `json:"tool,omitempty"`
	Point   *domain.Point `json:"point,omitempty"`
	Color   string        `json:"color,omitempty"`
	Width   float64       `json:"width,omitempty"`
	Stdin   string        `json:"stdin,omitempty"`
}

// DecodeCommand 解析客户端消息。
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if cmd.Type == "" {
		return Command{}, fmt.Errorf("%w: missing type", ErrInvalidCommand)
	}
	return cmd, nil
}

// Event 是发往客户端的消息。Payload 的字段与 type 平铺在同一个 JSON 对象中。
type Event struct {
	Type    string
	Payload interface{}
}

// MarshalJSON 输出 {"type": ..., <payload 字段>}。
func (e Event) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage)
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("event %s payload must be an object: %w", e.Type, err)
		}
	}
	typ, err := json.Marshal(e.Type)
	if err != nil {
		return nil, err
	}
	fields["type"] = typ
	return json.Marshal(fields)
}

// Snapshot 是会话就绪后的合并视图。
type Snapshot struct {
	RoomID   string               `json:"room_id"`
	Code     string               `json:"code"`
	Name     string               `json:"name"`
	HostID   string               `json:"host_id"`
	Document string               `json:"document"`
	Version  uint64               `json:"version"`
	Members  []domain.RosterEntry `json:"members"`
	Online   []string             `json:"online"`
	Board    BoardView            `json:"board"`
}

// ChatView 是带作者显示名称的消息。
type ChatView struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type readyPayload struct {
	Snapshot Snapshot `json:"snapshot"`
}

type notFoundPayload struct {
	Code string `json:"code"`
}

type documentPayload struct {
	Text    string `json:"text"`
	Version uint64 `json:"version"`
}

type rosterPayload struct {
	Members []domain.RosterEntry `json:"members"`
}

type presencePayload struct {
	Online []string `json:"online"`
}

type chatLoadedPayload struct {
	Messages []ChatView `json:"messages"`
}

type chatDeltaPayload struct {
	Kind    feed.Kind `json:"kind"`
	Message ChatView  `json:"message"`
}

type runPayload struct {
	Outcome json.RawMessage `json:"outcome"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MarshalJSON 输出 {"operations": [...], "draft": {...}}。
func (v BoardView) MarshalJSON() ([]byte, error) {
	ops := v.Operations
	if ops == nil {
		ops = []domain.BoardEntry{}
	}
	var draftJSON json.RawMessage
	if v.Draft != nil {
		raw, err := domain.EncodeOperation(v.Draft)
		if err != nil {
			return nil, err
		}
		draftJSON = raw
	}
	return json.Marshal(struct {
		Operations []domain.BoardEntry `json:"operations"`
		Draft      json.RawMessage     `json:"draft,omitempty"`
	}{ops, draftJSON})
}

// 错误事件的 code 取值。
const (
	ErrCodeNotFound    = "not_found"
	ErrCodeValidation  = "validation"
	ErrCodeForbidden   = "forbidden"
	ErrCodeRejected    = "rejected"
	ErrCodeUnavailable = "unavailable"
	ErrCodeInternal    = "internal"
)

// ErrNotInRoom 表示命令需要先进入房间。
var ErrNotInRoom = errors.New("not in a room")

// ErrorCode 把业务错误映射到错误事件的 code
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrOperationNotFound):
		return ErrCodeNotFound
	case errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrInvalidRoomCode),
		errors.Is(err, service.ErrInvalidOperation),
		errors.Is(err, service.ErrNotAuthenticated),
		errors.Is(err, ErrNotInRoom),
		errors.Is(err, ErrUnknownCommand),
		errors.Is(err, ErrInvalidCommand):
		return ErrCodeValidation
	case errors.Is(err, service.ErrNotAuthor):
		return ErrCodeForbidden
	case errors.Is(err, service.ErrRoomCodeTaken),
		errors.Is(err, ErrRateLimited):
		return ErrCodeRejected
	case errors.Is(err, service.ErrStoreUnavailable):
		return ErrCodeUnavailable
	default:
		return ErrCodeInternal
	}
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidCommand = errors.New("invalid command")
	ErrRateLimited    = errors.New("too many messages, slow down")
)

// ErrorEvent 构造 error 事件。
func ErrorEvent(err error) Event {
	msg := err.Error()
	if ErrorCode(err) == ErrCodeUnavailable {
		// 不向客户端暴露存储错误细节
		msg = service.ErrStoreUnavailable.Error()
	}
	return Event{Type: EvtError, Payload: errorPayload{Code: ErrorCode(err), Message: msg}}
}
