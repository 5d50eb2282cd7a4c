package domain

import "time"

// ChatMessage 是一条聊天消息。ID、CreatedAt、UserID 创建后不可变，
// Content 只能由作者修改。
type ChatMessage struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	RoomID    string    `gorm:"type:varchar(36);index:idx_chat_room_created,priority:1;not null" json:"room_id"`
	UserID    string    `gorm:"type:varchar(36);not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_chat_room_created,priority:2;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ChatHistoryLimit 是初次加载的最大消息数。
const ChatHistoryLimit = 200
