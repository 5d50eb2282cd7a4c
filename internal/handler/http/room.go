package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/domain"
)

// RoomService 是 RoomHandler 依赖的房间用例
type RoomService interface {
	CreateRoom(ctx context.Context, hostID, name string) (*domain.Room, error)
	FindByCode(ctx context.Context, code string) (*domain.Room, error)
	JoinRoom(ctx context.Context, writer, userID, code string) (*domain.Room, error)
}

// ChatService 是消息接口依赖的聊天用例
type ChatService interface {
	History(ctx context.Context, roomID string) ([]domain.ChatMessage, error)
	Edit(ctx context.Context, writer, roomID, messageID, userID, content string) (*domain.ChatMessage, error)
	Remove(ctx context.Context, writer, roomID, messageID, userID string) error
}

// CheckpointService 是检查点接口依赖的用例
type CheckpointService interface {
	List(ctx context.Context, roomID string, limit int) ([]domain.DocumentCheckpoint, error)
}

// RoomHandler 封装了房间及其消息、检查点的 HTTP 处理逻辑
type RoomHandler struct {
	rooms       RoomService
	chat        ChatService
	checkpoints CheckpointService
}

// NewRoomHandler 创建 RoomHandler 实例
func NewRoomHandler(rooms RoomService, chat ChatService, checkpoints CheckpointService) *RoomHandler {
	if rooms == nil || chat == nil || checkpoints == nil {
		panic("RoomService, ChatService and CheckpointService cannot be nil for RoomHandler")
	}
	return &RoomHandler{rooms: rooms, chat: chat, checkpoints: checkpoints}
}

// CreateRoomRequest 定义创建房间请求，名称为空时使用默认名称
type CreateRoomRequest struct {
	Name string `json:"name" binding:"max=191"`
}

// CreateRoom 处理创建新房间的请求
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	var req CreateRoomRequest
	// 允许空请求体
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logCtx.WithError(err).Warn("Handler.CreateRoom: Invalid input format")
			ErrorResponse(c, http.StatusBadRequest, "Invalid input")
			return
		}
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), userID, req.Name)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	logCtx.WithFields(logrus.Fields{"room_id": room.ID, "code": room.Code}).Info("Handler.CreateRoom: Room created successfully")
	SuccessResponse(c, http.StatusCreated, room)
}

// JoinRoomRequest 定义加入房间请求的结构体
type JoinRoomRequest struct {
	Code string `json:"code" binding:"required"`
}

// JoinRoom 处理用户加入房间的请求
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: code is required")
		return
	}

	room, err := h.rooms.JoinRoom(c.Request.Context(), httpWriter, userID, req.Code)
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "code": req.Code}).WithError(err).Warn("Handler.JoinRoom: Failed to join room")
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

// GetRoom 按加入码查询房间
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.rooms.FindByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

// ListMessages 返回房间最近的聊天消息，按创建时间升序
func (h *RoomHandler) ListMessages(c *gin.Context) {
	room, err := h.rooms.FindByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	messages, err := h.chat.History(c.Request.Context(), room.ID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	SuccessResponse(c, http.StatusOK, gin.H{"messages": messages})
}

// EditMessageRequest 定义编辑消息请求的结构体
type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// EditMessage 修改自己发送的消息
func (h *RoomHandler) EditMessage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: content is required")
		return
	}
	room, err := h.rooms.FindByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	msg, err := h.chat.Edit(c.Request.Context(), httpWriter, room.ID, c.Param("id"), userID, req.Content)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, msg)
}

// DeleteMessage 删除自己发送的消息
func (h *RoomHandler) DeleteMessage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	room, err := h.rooms.FindByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if err := h.chat.Remove(c.Request.Context(), httpWriter, room.ID, c.Param("id"), userID); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCheckpoints 返回文档检查点，最新的在前。可用 limit 查询参数限制数量。
func (h *RoomHandler) ListCheckpoints(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			ErrorResponse(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	room, err := h.rooms.FindByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	checkpoints, err := h.checkpoints.List(c.Request.Context(), room.ID, limit)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if checkpoints == nil {
		checkpoints = []domain.DocumentCheckpoint{}
	}
	SuccessResponse(c, http.StatusOK, gin.H{"checkpoints": checkpoints})
}
