package domain

import "time"

// DefaultRoomName 是创建房间时未提供名称的默认值。
const DefaultRoomName = "Untitled Room"

// Room 表示一个协作房间，CurrentDocument 是共享文档的权威快照。
type Room struct {
	ID              string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Code            string    `gorm:"type:varchar(11);uniqueIndex:idx_room_code;not null" json:"code"` // 形如 ABC-DEF-GHI 的加入码
	Name            string    `gorm:"type:varchar(191);not null" json:"name"`
	HostID          string    `gorm:"type:varchar(36);index;not null" json:"host_id"`
	CurrentDocument string    `gorm:"type:text;not null" json:"current_document"`
	DocumentVersion uint64    `gorm:"not null;default:0" json:"document_version"` // 每次持久化写入递增
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Member 表示房间成员关系，复合主键 (RoomID, UserID) 保证唯一。
// 断开连接时不会删除行，只会标记为离线。
type Member struct {
	RoomID     string    `gorm:"type:varchar(36);primaryKey" json:"room_id"`
	UserID     string    `gorm:"type:varchar(36);primaryKey" json:"user_id"`
	IsOnline   bool      `gorm:"not null;default:false" json:"is_online"`
	JoinedAt   time.Time `gorm:"not null" json:"joined_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// TableName 指定成员表名。
func (Member) TableName() string { return "room_members" }

// RosterEntry 是合并了显示名称的成员视图。
type RosterEntry struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	IsOnline    bool      `json:"is_online"`
	IsHost      bool      `json:"is_host"`
	JoinedAt    time.Time `json:"joined_at"`
}

// UnknownDisplayName 用于资料查询失败的成员。
const UnknownDisplayName = "Unknown"

// DocumentCheckpoint 记录某一时刻的文档内容，由周期任务生成。
type DocumentCheckpoint struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	RoomID          string    `gorm:"type:varchar(36);index:idx_checkpoint_room_created,priority:1;not null" json:"room_id"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	ContentHash     string    `gorm:"type:varchar(64);not null" json:"content_hash"`
	DocumentVersion uint64    `gorm:"not null" json:"document_version"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index:idx_checkpoint_room_created,priority:2" json:"created_at"`
}
