// Package session 实现每个参与者的房间会话：文档、名册、聊天、白板和在线状态的本地视图，
// 以及围绕一个房间的订阅生命周期。
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/execution"
	"code-collaboration-studio/internal/feed"
	"code-collaboration-studio/internal/identity"
	"code-collaboration-studio/internal/service"
)

// State 是会话的生命周期状态。
type State int

const (
	StateIdle State = iota
	StateEntering
	StateReady
	StateNotFound
	StateExiting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEntering:
		return "entering"
	case StateReady:
		return "ready"
	case StateNotFound:
		return "not_found"
	case StateExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// Rooms 按加入码解析房间并登记成员。
type Rooms interface {
	FindByCode(ctx context.Context, code string) (*domain.Room, error)
}

// Members 维护成员关系。
type Members interface {
	RosterSource
	Join(ctx context.Context, writer, roomID, userID string) error
}

// Documents 持久化共享文档。
type Documents interface {
	SaveDocument(ctx context.Context, writer, roomID, text string) (uint64, error)
}

// Chat 是聊天消息的读写入口。
type Chat interface {
	History(ctx context.Context, roomID string) ([]domain.ChatMessage, error)
	NewDraft(roomID, userID, content string) domain.ChatMessage
	Send(ctx context.Context, writer string, draft domain.ChatMessage) (*domain.ChatMessage, error)
	Edit(ctx context.Context, writer, roomID, messageID, userID, content string) (*domain.ChatMessage, error)
	Remove(ctx context.Context, writer, roomID, messageID, userID string) error
}

// Board 是白板操作的读写入口。
type Board interface {
	LoadBoard(ctx context.Context, roomID string) ([]domain.BoardEntry, error)
	NewOperationID() string
	CommitOperation(ctx context.Context, writer, roomID, userID, entryID string, op domain.DrawOperation) (domain.BoardEntry, error)
	UndoOperation(ctx context.Context, writer, roomID, userID, entryID string) error
}

// Heartbeats 记录心跳，供离线清扫任务使用。
type Heartbeats interface {
	RecordHeartbeat(ctx context.Context, roomID, userID string, at time.Time) error
}

// Feed 是变更推送和在线广播。
type Feed interface {
	SubscribeChanges(ctx context.Context, table feed.Table, roomID string) (feed.Subscription, error)
	SubscribePresence(ctx context.Context, roomID string) (feed.Subscription, error)
	PublishPresence(ctx context.Context, roomID string, signal feed.PresenceSignal) error
}

// Lifecycle 接收会话进入和离开房间的通知。
type Lifecycle interface {
	RoomEntered(sessionID, roomID, userID string)
	RoomExited(sessionID, roomID, userID string)
}

// Deps 是会话依赖的协作者。Heartbeats、Runner 和 Lifecycle 可以为空。
type Deps struct {
	Rooms      Rooms
	Members    Members
	Documents  Documents
	Chat       Chat
	Board      Board
	Heartbeats Heartbeats
	Feed       Feed
	Runner     execution.Runner
	Lifecycle  Lifecycle
}

// Config 是会话的计时参数。
type Config struct {
	Debounce          time.Duration
	HeartbeatInterval time.Duration
	PresenceExpiry    time.Duration
	WriteTimeout      time.Duration // 后台写入（防抖落盘、心跳）的超时
}

func (c Config) withDefaults() Config {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.PresenceExpiry <= 0 {
		c.PresenceExpiry = DefaultPresenceExpiry
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	return c
}

// EmitFunc 把事件交给客户端，必须是非阻塞且并发安全的。
type EmitFunc func(Event)

// phase 是一次 Ready 阶段的全部状态。退出时整体丢弃，重新进入会创建新的 phase。
type phase struct {
	room   domain.Room
	ctx    context.Context
	cancel context.CancelFunc

	doc      *DocumentSync
	chat     *ChatStream
	roster   *Roster
	presence *PresenceTracker
	board    *WhiteboardLog

	mu       sync.Mutex
	subs     []feed.Subscription
	chatOpen bool
	ready    bool
	wg       sync.WaitGroup
}

func (p *phase) isReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready && p.ctx.Err() == nil
}

func (p *phase) addSub(sub feed.Subscription) {
	p.mu.Lock()
	p.subs = append(p.subs, sub)
	p.mu.Unlock()
}

// Session 是一个参与者的房间会话。
type Session struct {
	id   string
	user identity.Identity
	deps Deps
	cfg  Config
	emit EmitFunc
	now  func() time.Time
	log  *logrus.Entry

	lifecycle sync.Mutex // 串行化 Enter、Exit 和 OpenChat

	mu      sync.RWMutex
	state   State
	current *phase
}

// New 创建会话。
func New(id string, user identity.Identity, deps Deps, cfg Config, emit EmitFunc) *Session {
	if deps.Rooms == nil || deps.Members == nil || deps.Documents == nil || deps.Chat == nil || deps.Board == nil || deps.Feed == nil {
		panic("session: rooms, members, documents, chat, board and feed are required")
	}
	if emit == nil {
		emit = func(Event) {}
	}
	return &Session{
		id:   id,
		user: user,
		deps: deps,
		cfg:  cfg.withDefaults(),
		emit: emit,
		now:  time.Now,
		log:  logrus.WithFields(logrus.Fields{"session_id": id, "user_id": user.UserID}),
	}
}

// ID 返回会话 ID，也是写入变更事件时的 writer。
func (s *Session) ID() string { return s.id }

// User 返回会话的用户。
func (s *Session) User() identity.Identity { return s.user }

// State 返回当前生命周期状态。
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// RoomID 返回当前房间 ID，不在房间中时为空。
func (s *Session) RoomID() string {
	if p := s.phase(); p != nil {
		return p.room.ID
	}
	return ""
}

func (s *Session) phase() *phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Session) setState(state State, p *phase) {
	s.mu.Lock()
	s.state = state
	s.current = p
	s.mu.Unlock()
}

// Enter 按加入码进入房间。已经在某个房间中时先完整退出，再建立新的订阅。
func (s *Session) Enter(ctx context.Context, code string) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.phase() != nil {
		s.exitLocked(ctx)
	}
	s.setState(StateEntering, nil)
	logCtx := s.log.WithField("code", code)

	room, err := s.deps.Rooms.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) || errors.Is(err, service.ErrInvalidRoomCode) {
			logCtx.Info("Room not found on enter")
			s.setState(StateNotFound, nil)
			s.emit(Event{Type: EvtRoomNotFound, Payload: notFoundPayload{Code: code}})
			return err
		}
		s.setState(StateIdle, nil)
		return err
	}
	logCtx = logCtx.WithField("room_id", room.ID)

	if err := s.deps.Members.Join(ctx, s.id, room.ID, s.user.UserID); err != nil {
		logCtx.WithError(err).Warn("Failed to register member on enter")
		s.setState(StateIdle, nil)
		return err
	}

	p := s.newPhase(*room)
	if err := s.openSubscriptions(ctx, p); err != nil {
		logCtx.WithError(err).Error("Failed to open room subscriptions")
		s.teardown(p)
		s.setState(StateIdle, nil)
		return err
	}

	if _, err := p.roster.Refresh(ctx); err != nil {
		logCtx.WithError(err).Warn("Initial roster fetch failed")
	}
	if entries, err := s.deps.Board.LoadBoard(ctx, room.ID); err != nil {
		logCtx.WithError(err).Warn("Initial whiteboard load failed")
	} else {
		p.board.Load(entries)
	}

	s.setState(StateReady, p)
	p.mu.Lock()
	p.ready = true
	p.mu.Unlock()

	if s.deps.Lifecycle != nil {
		s.deps.Lifecycle.RoomEntered(s.id, room.ID, s.user.UserID)
	}
	s.emit(Event{Type: EvtRoomReady, Payload: readyPayload{Snapshot: s.snapshotOf(p)}})
	s.startHeartbeats(p)
	logCtx.Info("Session ready")
	return nil
}

func (s *Session) newPhase(room domain.Room) *phase {
	ctx, cancel := context.WithCancel(context.Background())
	p := &phase{
		room:     room,
		ctx:      ctx,
		cancel:   cancel,
		chat:     NewChatStream(),
		roster:   NewRoster(s.deps.Members, room.ID, room.HostID),
		presence: NewPresenceTracker(s.cfg.PresenceExpiry),
		board:    NewWhiteboardLog(s.user.UserID, s.deps.Board.NewOperationID),
	}
	roomID := room.ID
	p.doc = NewDocumentSync(room.CurrentDocument, room.DocumentVersion, s.cfg.Debounce,
		func(text string) (uint64, error) {
			writeCtx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
			defer cancel()
			return s.deps.Documents.SaveDocument(writeCtx, s.id, roomID, text)
		},
		func(err error) {
			// 本地编辑不受影响，等待下一次防抖
			s.log.WithField("room_id", roomID).WithError(err).Warn("Document persist failed")
		})
	return p
}

// openSubscriptions 打开文档、成员、白板和在线频道的订阅，任何一个失败都返回错误
func (s *Session) openSubscriptions(ctx context.Context, p *phase) error {
	roomID := p.room.ID
	tables := []struct {
		table  feed.Table
		handle func(feed.ChangeEvent)
	}{
		{feed.TableRooms, func(ev feed.ChangeEvent) { s.onDocumentEvent(p, ev) }},
		{feed.TableMembers, func(ev feed.ChangeEvent) { s.onMemberEvent(p, ev) }},
		{feed.TableWhiteboard, func(ev feed.ChangeEvent) { s.onBoardEvent(p, ev) }},
	}
	for _, t := range tables {
		sub, err := s.deps.Feed.SubscribeChanges(ctx, t.table, roomID)
		if err != nil {
			return err
		}
		p.addSub(sub)
		s.pump(p, sub, s.changeHandler(p, t.handle))
	}

	sub, err := s.deps.Feed.SubscribePresence(ctx, roomID)
	if err != nil {
		return err
	}
	p.addSub(sub)
	s.pump(p, sub, func(payload []byte) {
		signal, err := feed.DecodePresence(payload)
		if err != nil {
			s.log.WithError(err).Warn("Dropping malformed presence signal")
			return
		}
		s.onPresence(p, signal)
	})
	return nil
}

func (s *Session) changeHandler(p *phase, handle func(feed.ChangeEvent)) func([]byte) {
	return func(payload []byte) {
		ev, err := feed.DecodeChange(payload)
		if err != nil {
			s.log.WithField("room_id", p.room.ID).WithError(err).Warn("Dropping malformed change event")
			return
		}
		if ev.RoomID != p.room.ID {
			return
		}
		handle(ev)
	}
}

// pump 把订阅中的消息依次交给 handle，phase 结束或订阅关闭时退出
func (s *Session) pump(p *phase, sub feed.Subscription, handle func([]byte)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-p.ctx.Done():
				return
			case payload, ok := <-sub.Messages():
				if !ok || p.ctx.Err() != nil {
					return
				}
				handle(payload)
			}
		}
	}()
}

// emitFor 只在 phase 仍然处于就绪状态时发送事件
func (s *Session) emitFor(p *phase, ev Event) {
	if p.isReady() {
		s.emit(ev)
	}
}

func (s *Session) onDocumentEvent(p *phase, ev feed.ChangeEvent) {
	if ev.Kind != feed.KindUpdate {
		return
	}
	var row feed.DocumentRow
	if err := ev.DecodeRow(&row); err != nil {
		s.log.WithError(err).Warn("Dropping malformed document row")
		return
	}
	if p.doc.OnRemoteUpdate(row.Text, row.Version, ev.Writer == s.id) {
		s.emitFor(p, Event{Type: EvtDocumentUpdated, Payload: documentPayload{Text: row.Text, Version: row.Version}})
	}
}

func (s *Session) onMemberEvent(p *phase, _ feed.ChangeEvent) {
	entries, err := p.roster.Refresh(p.ctx)
	if err != nil {
		s.log.WithField("room_id", p.room.ID).WithError(err).Warn("Roster refetch failed")
		return
	}
	s.emitFor(p, Event{Type: EvtRosterUpdated, Payload: rosterPayload{Members: entries}})
}

func (s *Session) onBoardEvent(p *phase, ev feed.ChangeEvent) {
	changed := false
	switch ev.Kind {
	case feed.KindInsert:
		var record domain.WhiteboardRecord
		if err := ev.DecodeRow(&record); err != nil {
			s.log.WithError(err).Warn("Dropping malformed whiteboard row")
			return
		}
		entry, err := record.Entry()
		if err != nil {
			s.log.WithError(err).Warn("Dropping unreadable whiteboard operation")
			return
		}
		changed = p.board.ApplyInsert(entry)
	case feed.KindDelete:
		var row feed.DeletedRow
		if err := ev.DecodeRow(&row); err != nil {
			return
		}
		changed = p.board.ApplyDelete(row.ID)
	}
	if changed {
		s.emitFor(p, Event{Type: EvtBoardUpdated, Payload: p.board.Snapshot()})
	}
}

func (s *Session) onChatEvent(p *phase, ev feed.ChangeEvent) {
	var msg domain.ChatMessage
	if ev.Kind == feed.KindDelete {
		var row feed.DeletedRow
		if err := ev.DecodeRow(&row); err != nil {
			return
		}
		existing, ok := p.chat.Find(row.ID)
		if !ok && p.chat.Loaded() {
			return
		}
		msg = existing
		msg.ID = row.ID
	} else if err := ev.DecodeRow(&msg); err != nil {
		s.log.WithError(err).Warn("Dropping malformed chat row")
		return
	}
	s.applyChat(p, ChatDelta{Kind: ev.Kind, Message: msg})
}

func (s *Session) applyChat(p *phase, delta ChatDelta) {
	if p.chat.Apply(delta) {
		s.emitFor(p, Event{Type: EvtChatDelta, Payload: chatDeltaPayload{Kind: delta.Kind, Message: s.chatView(p, delta.Message)}})
	}
}

func (s *Session) onPresence(p *phase, signal feed.PresenceSignal) {
	if signal.UserID == "" {
		return
	}
	changed := false
	switch signal.Kind {
	case feed.PresenceHeartbeat:
		changed = p.presence.Observe(signal.UserID, signal.SessionID, s.now())
	case feed.PresenceLeave:
		if signal.SessionID == s.id {
			return
		}
		changed = p.presence.Leave(signal.UserID, signal.SessionID, s.now())
	}
	if changed {
		s.emitPresence(p)
	}
}

func (s *Session) emitPresence(p *phase) {
	s.emitFor(p, Event{Type: EvtPresenceUpdated, Payload: presencePayload{Online: p.presence.Online(s.now())}})
}

// startHeartbeats 在订阅确认后立即广播一次心跳，之后按间隔重复，并清理过期的同伴
func (s *Session) startHeartbeats(p *phase) {
	s.heartbeat(p)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(s.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				s.heartbeat(p)
				if expired := p.presence.Expire(s.now()); len(expired) > 0 {
					s.emitPresence(p)
				}
			}
		}
	}()
}

func (s *Session) heartbeat(p *phase) {
	now := s.now()
	ctx, cancel := context.WithTimeout(p.ctx, s.cfg.WriteTimeout)
	defer cancel()
	signal := feed.PresenceSignal{Kind: feed.PresenceHeartbeat, UserID: s.user.UserID, SessionID: s.id, At: now}
	if err := s.deps.Feed.PublishPresence(ctx, p.room.ID, signal); err != nil {
		s.log.WithError(err).Debug("Heartbeat broadcast failed")
	}
	if s.deps.Heartbeats != nil {
		if err := s.deps.Heartbeats.RecordHeartbeat(ctx, p.room.ID, s.user.UserID, now); err != nil {
			s.log.WithError(err).Debug("Heartbeat record failed")
		}
	}
}

// Exit 离开当前房间并关闭所有订阅。不在房间中时只把状态复位。
func (s *Session) Exit(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.exitLocked(ctx)
}

func (s *Session) exitLocked(ctx context.Context) {
	p := s.phase()
	if p == nil {
		s.setState(StateIdle, nil)
		return
	}
	s.mu.Lock()
	s.state = StateExiting
	s.mu.Unlock()

	leave := feed.PresenceSignal{Kind: feed.PresenceLeave, UserID: s.user.UserID, SessionID: s.id, At: s.now()}
	if err := s.deps.Feed.PublishPresence(ctx, p.room.ID, leave); err != nil {
		s.log.WithError(err).Debug("Leave broadcast failed")
	}
	s.teardown(p)
	p.doc.Flush()
	p.doc.Stop()

	s.setState(StateIdle, nil)
	if s.deps.Lifecycle != nil {
		s.deps.Lifecycle.RoomExited(s.id, p.room.ID, s.user.UserID)
	}
	s.emit(Event{Type: EvtRoomLeft})
	s.log.WithField("room_id", p.room.ID).Info("Session left room")
}

// teardown 取消 phase、关闭所有订阅并等待处理协程退出
func (s *Session) teardown(p *phase) {
	p.mu.Lock()
	p.ready = false
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()

	p.cancel()
	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			s.log.WithError(err).Debug("Subscription close failed")
		}
	}
	p.wg.Wait()
}

// Close 在连接断开时调用。
func (s *Session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	s.Exit(ctx)
}

func (s *Session) ready() (*phase, error) {
	p := s.phase()
	if p == nil || !p.isReady() {
		return nil, ErrNotInRoom
	}
	return p, nil
}

// Snapshot 返回当前合并视图。
func (s *Session) Snapshot() (Snapshot, bool) {
	p, err := s.ready()
	if err != nil {
		return Snapshot{}, false
	}
	return s.snapshotOf(p), true
}

func (s *Session) snapshotOf(p *phase) Snapshot {
	return Snapshot{
		RoomID:   p.room.ID,
		Code:     p.room.Code,
		Name:     p.room.Name,
		HostID:   p.room.HostID,
		Document: p.doc.Text(),
		Version:  p.doc.Version(),
		Members:  p.roster.Entries(),
		Online:   p.presence.Online(s.now()),
		Board:    p.board.Snapshot(),
	}
}

// SetDocument 应用本地编辑。
func (s *Session) SetDocument(text string) error {
	p, err := s.ready()
	if err != nil {
		return err
	}
	p.doc.SetLocalText(text)
	return nil
}

// OpenChat 打开聊天订阅并加载历史。已加载时重新发送当前消息。
// 订阅先于历史加载建立，加载期间到达的变更在加载后重放。
func (s *Session) OpenChat(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	p, err := s.ready()
	if err != nil {
		return err
	}

	p.mu.Lock()
	open := p.chatOpen
	p.mu.Unlock()
	if !open {
		sub, err := s.deps.Feed.SubscribeChanges(ctx, feed.TableChat, p.room.ID)
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.chatOpen = true
		p.mu.Unlock()
		p.addSub(sub)
		s.pump(p, sub, s.changeHandler(p, func(ev feed.ChangeEvent) { s.onChatEvent(p, ev) }))
	}

	// 订阅保留，历史加载失败时下一次打开重新拉取
	if !p.chat.Loaded() {
		history, err := s.deps.Chat.History(ctx, p.room.ID)
		if err != nil {
			return err
		}
		p.chat.Load(history)
	}

	messages := p.chat.Messages()
	views := make([]ChatView, 0, len(messages))
	for _, m := range messages {
		views = append(views, s.chatView(p, m))
	}
	s.emitFor(p, Event{Type: EvtChatLoaded, Payload: chatLoadedPayload{Messages: views}})
	return nil
}

func (s *Session) chatView(p *phase, m domain.ChatMessage) ChatView {
	return ChatView{
		ID:          m.ID,
		UserID:      m.UserID,
		DisplayName: p.roster.DisplayName(m.UserID),
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// SendChat 乐观插入一条消息，写入失败时撤回。
func (s *Session) SendChat(ctx context.Context, content string) error {
	p, err := s.ready()
	if err != nil {
		return err
	}
	if !s.user.Authenticated() {
		return service.ErrNotAuthenticated
	}
	if strings.TrimSpace(content) == "" {
		return service.ErrEmptyContent
	}
	draft := s.deps.Chat.NewDraft(p.room.ID, s.user.UserID, content)
	s.applyChat(p, ChatDelta{Kind: feed.KindInsert, Message: draft})

	saved, err := s.deps.Chat.Send(ctx, s.id, draft)
	if err != nil {
		s.applyChat(p, ChatDelta{Kind: feed.KindDelete, Message: draft})
		return err
	}
	s.applyChat(p, ChatDelta{Kind: feed.KindInsert, Message: *saved})
	return nil
}

// EditChat 修改自己的消息。
func (s *Session) EditChat(ctx context.Context, messageID, content string) error {
	p, err := s.ready()
	if err != nil {
		return err
	}
	msg, err := s.deps.Chat.Edit(ctx, s.id, p.room.ID, messageID, s.user.UserID, content)
	if err != nil {
		return err
	}
	s.applyChat(p, ChatDelta{Kind: feed.KindUpdate, Message: *msg})
	return nil
}

// DeleteChat 删除自己的消息。
func (s *Session) DeleteChat(ctx context.Context, messageID string) error {
	p, err := s.ready()
	if err != nil {
		return err
	}
	existing, _ := p.chat.Find(messageID)
	if err := s.deps.Chat.Remove(ctx, s.id, p.room.ID, messageID, s.user.UserID); err != nil {
		return err
	}
	existing.ID = messageID
	s.applyChat(p, ChatDelta{Kind: feed.KindDelete, Message: existing})
	return nil
}

// BeginStroke 开始绘制。pointer 和 text 工具不会开始进行中操作。
func (s *Session) BeginStroke(tool domain.Tool, point domain.Point, style domain.Style) error {
	p, err := s.ready()
	if err != nil {
		return err
	}
	if p.board.Begin(tool, point, style) {
		s.emitFor(p, Event{Type: EvtBoardUpdated, Payload: p.board.Snapshot()})
	}
	return nil
}

// ExtendStroke 向进行中的操作追加一个点。
func (s *Session) ExtendStroke(point domain.Point) error {
	p, err := s.ready()
	if err != nil {
		return err
	}
	if p.board.Extend(point) {
		s.emitFor(p, Event{Type: EvtBoardUpdated, Payload: p.board.Snapshot()})
	}
	return nil
}

// ReleaseStroke 提交进行中的操作并广播给其他参与者。
func (s *Session) ReleaseStroke(ctx context.Context) error {
	p, err := s.ready()
	if err != nil {
		return err
	}
	entry, ok := p.board.Release()
	if !ok {
		return nil
	}
	return s.commit(ctx, p, entry)
}

// AddText 在 point 处放置文字。
func (s *Session) AddText(ctx context.Context, point domain.Point, text string, style domain.Style) error {
	p, err := s.ready()
	if err != nil {
		return err
	}
	entry, ok := p.board.AddText(point, strings.TrimSpace(text), style)
	if !ok {
		return nil
	}
	return s.commit(ctx, p, entry)
}

func (s *Session) commit(ctx context.Context, p *phase, entry domain.BoardEntry) error {
	s.emitFor(p, Event{Type: EvtBoardUpdated, Payload: p.board.Snapshot()})
	if _, err := s.deps.Board.CommitOperation(ctx, s.id, p.room.ID, s.user.UserID, entry.ID, entry.Operation); err != nil {
		p.board.ApplyDelete(entry.ID)
		s.emitFor(p, Event{Type: EvtBoardUpdated, Payload: p.board.Snapshot()})
		return err
	}
	return nil
}

// UndoStroke 撤销本地用户最近提交的操作。
func (s *Session) UndoStroke(ctx context.Context) error {
	p, err := s.ready()
	if err != nil {
		return err
	}
	entry, index, ok := p.board.Undo()
	if !ok {
		return nil
	}
	s.emitFor(p, Event{Type: EvtBoardUpdated, Payload: p.board.Snapshot()})
	if err := s.deps.Board.UndoOperation(ctx, s.id, p.room.ID, s.user.UserID, entry.ID); err != nil {
		if !errors.Is(err, service.ErrOperationNotFound) {
			p.board.Restore(entry, index)
			s.emitFor(p, Event{Type: EvtBoardUpdated, Payload: p.board.Snapshot()})
		}
		return err
	}
	return nil
}

// Run 用当前文档和 stdin 调用执行服务，结果作为事件发送。
func (s *Session) Run(ctx context.Context, stdin string) error {
	p, err := s.ready()
	if err != nil {
		return err
	}
	var outcome execution.Outcome
	if s.deps.Runner == nil {
		outcome = execution.Error{Message: "Execution service not configured"}
	} else {
		outcome = s.deps.Runner.Run(ctx, p.doc.Text(), stdin)
	}
	raw, err := execution.MarshalOutcome(outcome)
	if err != nil {
		return err
	}
	s.emitFor(p, Event{Type: EvtRunResult, Payload: runPayload{Outcome: raw}})
	return nil
}
