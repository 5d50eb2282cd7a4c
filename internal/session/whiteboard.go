package session

import (
	"sync"

	"code-collaboration-studio/internal/domain"
)

// draft 是正在绘制的操作。矩形和箭头保留所有中间点，但只有首尾两点有几何意义。
type draft struct {
	tool   domain.Tool
	points []domain.Point
	style  domain.Style
}

func (d *draft) operation() domain.DrawOperation {
	switch d.tool {
	case domain.ToolRectangle, domain.ToolArrow:
		return domain.Shape{Kind: d.tool, Start: d.points[0], End: d.points[len(d.points)-1], Style: d.style}
	default:
		points := make([]domain.Point, len(d.points))
		copy(points, d.points)
		return domain.Stroke{Kind: d.tool, Points: points, Style: d.style}
	}
}

// BoardView 是白板的可回放视图：按日志顺序的已提交操作，加上至多一个进行中的操作。
type BoardView struct {
	Operations []domain.BoardEntry
	Draft      domain.DrawOperation
}

// WhiteboardLog 是只追加、可回放的绘制操作日志。
type WhiteboardLog struct {
	userID string
	newID  func() string

	mu      sync.Mutex
	entries []domain.BoardEntry
	current *draft
}

// NewWhiteboardLog 创建属于 userID 的白板日志。
func NewWhiteboardLog(userID string, newID func() string) *WhiteboardLog {
	return &WhiteboardLog{userID: userID, newID: newID}
}

// Load 用已持久化的操作替换日志。
func (w *WhiteboardLog) Load(entries []domain.BoardEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append([]domain.BoardEntry(nil), entries...)
}

// StyleFor 返回工具的默认样式，color 和 width 为零值时使用默认值。
func StyleFor(tool domain.Tool, color string, width float64) domain.Style {
	if color == "" {
		color = domain.DefaultColor
	}
	if width <= 0 {
		width = domain.DefaultStrokeWidth
		if tool == domain.ToolEraser {
			width = domain.EraserStrokeWidth
		}
	}
	return domain.Style{Color: color, StrokeWidth: width}
}

// Begin 在 point 处开始一个新的进行中操作，返回是否开始。
// pointer 不绘制，text 通过 AddText 放置，二者都是空操作。
func (w *WhiteboardLog) Begin(tool domain.Tool, point domain.Point, style domain.Style) bool {
	switch tool {
	case domain.ToolPen, domain.ToolEraser, domain.ToolRectangle, domain.ToolArrow:
	default:
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = &draft{tool: tool, points: []domain.Point{point}, style: style}
	return true
}

// Extend 向进行中的操作追加一个点。
func (w *WhiteboardLog) Extend(point domain.Point) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return false
	}
	w.current.points = append(w.current.points, point)
	return true
}

// Release 提交进行中的操作并清空进行中槽位。没有进行中操作时是空操作。
func (w *WhiteboardLog) Release() (domain.BoardEntry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return domain.BoardEntry{}, false
	}
	entry := domain.BoardEntry{ID: w.newID(), UserID: w.userID, Operation: w.current.operation()}
	w.current = nil
	w.entries = append(w.entries, entry)
	return entry, true
}

// AddText 直接提交一个文字操作。
func (w *WhiteboardLog) AddText(point domain.Point, text string, style domain.Style) (domain.BoardEntry, bool) {
	if text == "" {
		return domain.BoardEntry{}, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	entry := domain.BoardEntry{ID: w.newID(), UserID: w.userID, Operation: domain.Text{At: point, Value: text, Style: style}}
	w.entries = append(w.entries, entry)
	return entry, true
}

// Undo 移除本地用户最近提交的一个操作，返回被移除的项和它的位置。
// 没有可撤销的操作时是空操作。
func (w *WhiteboardLog) Undo() (domain.BoardEntry, int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := len(w.entries) - 1; i >= 0; i-- {
		if w.entries[i].UserID == w.userID {
			entry := w.entries[i]
			w.entries = append(w.entries[:i], w.entries[i+1:]...)
			return entry, i, true
		}
	}
	return domain.BoardEntry{}, -1, false
}

// Restore 把撤销失败的项放回原位置。
func (w *WhiteboardLog) Restore(entry domain.BoardEntry, index int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.indexLocked(entry.ID) >= 0 {
		return
	}
	if index < 0 || index > len(w.entries) {
		index = len(w.entries)
	}
	w.entries = append(w.entries, domain.BoardEntry{})
	copy(w.entries[index+1:], w.entries[index:])
	w.entries[index] = entry
}

// ApplyInsert 追加远端提交的操作，已存在的 ID 被忽略。
func (w *WhiteboardLog) ApplyInsert(entry domain.BoardEntry) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.indexLocked(entry.ID) >= 0 {
		return false
	}
	w.entries = append(w.entries, entry)
	return true
}

// ApplyDelete 移除指定 ID 的操作，不存在时是空操作。
func (w *WhiteboardLog) ApplyDelete(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := w.indexLocked(id)
	if idx < 0 {
		return false
	}
	w.entries = append(w.entries[:idx], w.entries[idx+1:]...)
	return true
}

func (w *WhiteboardLog) indexLocked(id string) int {
	for i := range w.entries {
		if w.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// Snapshot 返回当前视图的副本。
func (w *WhiteboardLog) Snapshot() BoardView {
	w.mu.Lock()
	defer w.mu.Unlock()
	view := BoardView{Operations: append([]domain.BoardEntry(nil), w.entries...)}
	if w.current != nil {
		view.Draft = w.current.operation()
	}
	return view
}

// Replay 按日志顺序把每个已提交操作和进行中操作交给 draw，后面的操作覆盖前面的。
func (w *WhiteboardLog) Replay(draw func(domain.DrawOperation)) {
	view := w.Snapshot()
	for _, entry := range view.Operations {
		draw(entry.Operation)
	}
	if view.Draft != nil {
		draw(view.Draft)
	}
}
