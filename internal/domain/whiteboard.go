package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Tool 是白板工具类型。
type Tool string

const (
	ToolPointer   Tool = "pointer" // 不产生绘制
	ToolPen       Tool = "pen"
	ToolEraser    Tool = "eraser"
	ToolRectangle Tool = "rectangle"
	ToolArrow     Tool = "arrow"
	ToolText      Tool = "text"
)

// 与前端画布保持一致的默认样式。
const (
	DefaultColor       = "#38bdf8"
	DefaultStrokeWidth = 2.0
	EraserStrokeWidth  = 20.0
)

// ParseTool 校验工具名称。
func ParseTool(s string) (Tool, error) {
	switch t := Tool(s); t {
	case ToolPointer, ToolPen, ToolEraser, ToolRectangle, ToolArrow, ToolText:
		return t, nil
	default:
		return "", fmt.Errorf("unknown whiteboard tool %q", s)
	}
}

// Point 是画布坐标。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Style 是所有绘制操作共有的外观属性。
type Style struct {
	Color       string  `json:"color"`
	StrokeWidth float64 `json:"width"`
}

// DrawOperation 是封闭的绘制操作集合：Stroke、Shape、Text。
// 消费方应通过类型 switch 穷举处理。
type DrawOperation interface {
	Tool() Tool
	Appearance() Style
	isDrawOperation()
}

// Stroke 是画笔或橡皮擦的自由路径。
type Stroke struct {
	Kind   Tool    // ToolPen 或 ToolEraser
	Points []Point
	Style  Style
}

// Shape 是矩形或箭头，只有起点和终点有几何意义。
type Shape struct {
	Kind  Tool // ToolRectangle 或 ToolArrow
	Start Point
	End   Point
	Style Style
}

// Text 是放置在某一点的文字。
type Text struct {
	At    Point
	Value string
	Style Style
}

func (s Stroke) Tool() Tool        { return s.Kind }
func (s Stroke) Appearance() Style { return s.Style }
func (Stroke) isDrawOperation() {}

func (s Shape) Tool() Tool        { return s.Kind }
func (s Shape) Appearance() Style { return s.Style }
func (Shape) isDrawOperation() {}

func (Text) Tool() Tool          { return ToolText }
func (t Text) Appearance() Style { return t.Style }
func (Text) isDrawOperation() {}

// operationEnvelope 是绘制操作的 JSON 线格式，type 字段作为标签。
type operationEnvelope struct {
	Type   Tool    `json:"type"`
	Points []Point `json:"points,omitempty"`
	Start  *Point  `json:"start,omitempty"`
	End    *Point  `json:"end,omitempty"`
	At     *Point  `json:"at,omitempty"`
	Text   string  `json:"text,omitempty"`
	Style
}

// EncodeOperation 将绘制操作序列化为带标签的 JSON。
func EncodeOperation(op DrawOperation) ([]byte, error) {
	env := operationEnvelope{Type: op.Tool(), Style: op.Appearance()}
	switch o := op.(type) {
	case Stroke:
		env.Points = o.Points
	case Shape:
		start, end := o.Start, o.End
		env.Start, env.End = &start, &end
	case Text:
		at := o.At
		env.At, env.Text = &at, o.Value
	default:
		return nil, fmt.Errorf("unsupported draw operation %T", op)
	}
	return json.Marshal(env)
}

// DecodeOperation 解析 EncodeOperation 的输出。
func DecodeOperation(data []byte) (DrawOperation, error) {
	var env operationEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draw operation: %w", err)
	}
	switch env.Type {
	case ToolPen, ToolEraser:
		if len(env.Points) == 0 {
			return nil, fmt.Errorf("%s operation has no points", env.Type)
		}
		return Stroke{Kind: env.Type, Points: env.Points, Style: env.Style}, nil
	case ToolRectangle, ToolArrow:
		if env.Start == nil || env.End == nil {
			return nil, fmt.Errorf("%s operation needs start and end", env.Type)
		}
		return Shape{Kind: env.Type, Start: *env.Start, End: *env.End, Style: env.Style}, nil
	case ToolText:
		if env.At == nil || env.Text == "" {
			return nil, fmt.Errorf("text operation needs a point and text")
		}
		return Text{At: *env.At, Value: env.Text, Style: env.Style}, nil
	default:
		return nil, fmt.Errorf("unknown draw operation type %q", env.Type)
	}
}

// BoardEntry 是白板日志中已提交的一项。
type BoardEntry struct {
	ID        string
	UserID    string
	Operation DrawOperation
}

// MarshalJSON 输出扁平后的操作以便推送给前端。
func (e BoardEntry) MarshalJSON() ([]byte, error) {
	op, err := EncodeOperation(e.Operation)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		ID        string          `json:"id"`
		UserID    string          `json:"user_id"`
		Operation json.RawMessage `json:"operation"`
	}{e.ID, e.UserID, op})
}

// WhiteboardRecord 是绘制操作在持久化存储中的行。Seq 自增，决定回放顺序。
type WhiteboardRecord struct {
	Seq       uint      `gorm:"primaryKey;autoIncrement" json:"seq"`
	ID        string    `gorm:"type:varchar(36);uniqueIndex:idx_board_op_id;not null" json:"id"`
	RoomID    string    `gorm:"type:varchar(36);index;not null" json:"room_id"`
	UserID    string    `gorm:"type:varchar(36);not null" json:"user_id"`
	Kind      string    `gorm:"type:varchar(20);not null" json:"kind"`
	Payload   string    `gorm:"type:text;not null" json:"payload"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定白板操作表名。
func (WhiteboardRecord) TableName() string { return "whiteboard_operations" }

// NewWhiteboardRecord 根据操作构造存储行。
func NewWhiteboardRecord(id, roomID, userID string, op DrawOperation) (*WhiteboardRecord, error) {
	payload, err := EncodeOperation(op)
	if err != nil {
		return nil, err
	}
	return &WhiteboardRecord{
		ID:      id,
		RoomID:  roomID,
		UserID:  userID,
		Kind:    string(op.Tool()),
		Payload: string(payload),
	}, nil
}

// Entry 将存储行还原为日志项。
func (r *WhiteboardRecord) Entry() (BoardEntry, error) {
	op, err := DecodeOperation([]byte(r.Payload))
	if err != nil {
		return BoardEntry{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return BoardEntry{ID: r.ID, UserID: r.UserID, Operation: op}, nil
}
