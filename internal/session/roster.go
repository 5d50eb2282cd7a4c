package session

import (
	"context"
	"sync"

	"code-collaboration-studio/internal/domain"
)

// RosterSource 查询合并了显示名称的成员名册。
type RosterSource interface {
	Roster(ctx context.Context, roomID, hostID string) ([]domain.RosterEntry, error)
}

// Roster 是房间成员名册的本地副本。任何成员变更都触发整表重新读取。
type Roster struct {
	source RosterSource
	roomID string
	hostID string

	mu      sync.RWMutex
	entries []domain.RosterEntry
}

// NewRoster 创建名册。
func NewRoster(source RosterSource, roomID, hostID string) *Roster {
	return &Roster{source: source, roomID: roomID, hostID: hostID}
}

// Refresh 重新读取整个名册。失败时保留旧的名册。
func (r *Roster) Refresh(ctx context.Context) ([]domain.RosterEntry, error) {
	entries, err := r.source.Roster(ctx, r.roomID, r.hostID)
	if err != nil {
		return r.Entries(), err
	}
	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	return r.Entries(), nil
}

// Entries 返回名册副本。
func (r *Roster) Entries() []domain.RosterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RosterEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// DisplayName 返回成员的显示名称，不在名册中时返回 Unknown。
func (r *Roster) DisplayName(userID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.UserID == userID {
			return e.DisplayName
		}
	}
	return domain.UnknownDisplayName
}
