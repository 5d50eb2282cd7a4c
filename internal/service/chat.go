package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/feed"
	"code-collaboration-studio/internal/repository"
)

// ChatService 负责聊天消息的读写。修改和删除在这里强制作者校验。
type ChatService struct {
	chatRepo repository.ChatRepository
	pub      ChangePublisher
	newID    IDGenerator
	now      func() time.Time
}

// NewChatService 创建 ChatService 实例。
func NewChatService(chatRepo repository.ChatRepository, pub ChangePublisher) *ChatService {
	if chatRepo == nil {
		panic("ChatRepository cannot be nil for ChatService")
	}
	return &ChatService{chatRepo: chatRepo, pub: pub, newID: UUIDGenerator, now: time.Now}
}

// History 返回最近的消息，按 created_at 升序。
func (s *ChatService) History(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	messages, err := s.chatRepo.ListRecent(ctx, roomID, domain.ChatHistoryLimit)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to load chat history")
		return nil, storeError("list messages", err)
	}
	return messages, nil
}

// NewDraft 构造一条尚未保存的消息，供乐观插入使用。
func (s *ChatService) NewDraft(roomID, userID, content string) domain.ChatMessage {
	now := s.now().UTC()
	return domain.ChatMessage{
		ID:        s.newID(),
		RoomID:    roomID,
		UserID:    userID,
		Content:   strings.TrimSpace(content),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Send 保存消息。内容去空白后为空或没有用户时拒绝。
func (s *ChatService) Send(ctx context.Context, writer string, draft domain.ChatMessage) (*domain.ChatMessage, error) {
	draft.Content = strings.TrimSpace(draft.Content)
	if draft.UserID == "" {
		return nil, ErrNotAuthenticated
	}
	if draft.Content == "" {
		return nil, ErrEmptyContent
	}
	if draft.ID == "" || draft.CreatedAt.IsZero() {
		filled := s.NewDraft(draft.RoomID, draft.UserID, draft.Content)
		if draft.ID != "" {
			filled.ID = draft.ID
		}
		draft = filled
	}

	logCtx := logrus.WithFields(logrus.Fields{"room_id": draft.RoomID, "user_id": draft.UserID, "message_id": draft.ID})
	msg := draft
	if err := s.chatRepo.Insert(ctx, &msg); err != nil {
		logCtx.WithError(err).Error("Failed to insert chat message")
		return nil, storeError("insert message", err)
	}
	publishChange(ctx, s.pub, feed.TableChat, feed.KindInsert, msg.RoomID, writer, msg)
	logCtx.Debug("Chat message sent")
	return &msg, nil
}

// Edit 修改消息内容，只有作者可以修改。
func (s *ChatService) Edit(ctx context.Context, writer, roomID, messageID, userID, content string) (*domain.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	if content == "" {
		return nil, ErrEmptyContent
	}
	if err := s.checkRoom(ctx, roomID, messageID); err != nil {
		return nil, err
	}
	msg, err := s.chatRepo.UpdateContent(ctx, messageID, userID, content)
	if err != nil {
		return nil, s.mapMutationError("edit", messageID, userID, err)
	}
	publishChange(ctx, s.pub, feed.TableChat, feed.KindUpdate, msg.RoomID, writer, msg)
	return msg, nil
}

// Remove 删除消息，只有作者可以删除。
func (s *ChatService) Remove(ctx context.Context, writer, roomID, messageID, userID string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	if err := s.checkRoom(ctx, roomID, messageID); err != nil {
		return err
	}
	msg, err := s.chatRepo.Delete(ctx, messageID, userID)
	if err != nil {
		return s.mapMutationError("delete", messageID, userID, err)
	}
	publishChange(ctx, s.pub, feed.TableChat, feed.KindDelete, msg.RoomID, writer, feed.DeletedRow{ID: msg.ID})
	return nil
}

// checkRoom 确认消息属于该房间，其他房间的消息按不存在处理
func (s *ChatService) checkRoom(ctx context.Context, roomID, messageID string) error {
	msg, err := s.chatRepo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		return storeError("find message", err)
	}
	if msg.RoomID != roomID {
		return ErrMessageNotFound
	}
	return nil
}

func (s *ChatService) mapMutationError(op, messageID, userID string, err error) error {
	logCtx := logrus.WithFields(logrus.Fields{"message_id": messageID, "user_id": userID, "op": op})
	switch {
	case errors.Is(err, repository.ErrForbidden):
		logCtx.Warn("Rejected chat mutation by non-author")
		return ErrNotAuthor
	case errors.Is(err, repository.ErrMessageNotFound):
		return ErrMessageNotFound
	default:
		logCtx.WithError(err).Error("Chat mutation failed")
		return storeError(op+" message", err)
	}
}
