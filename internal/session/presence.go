package session

import (
	"sort"
	"sync"
	"time"
)

const (
	DefaultHeartbeatInterval = 10 * time.Second
	DefaultPresenceExpiry    = 30 * time.Second
)

// PresenceTracker 按 (用户, 会话) 汇总同伴的心跳。用户的任一会话在过期窗口内有心跳即视为在线，
// 离开信号只移除对应的会话。
type PresenceTracker struct {
	expiry time.Duration

	mu       sync.Mutex
	lastSeen map[string]map[string]time.Time // userID -> sessionID -> 最近心跳
}

// NewPresenceTracker 创建在线状态跟踪器。
func NewPresenceTracker(expiry time.Duration) *PresenceTracker {
	if expiry <= 0 {
		expiry = DefaultPresenceExpiry
	}
	return &PresenceTracker{expiry: expiry, lastSeen: make(map[string]map[string]time.Time)}
}

// Observe 记录一次会话心跳，返回在线集合是否改变。
func (p *PresenceTracker) Observe(userID, sessionID string, at time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	sessions := p.lastSeen[userID]
	if prev, ok := sessions[sessionID]; ok && prev.After(at) {
		return false
	}
	wasOnline := p.onlineLocked(userID, at)
	if sessions == nil {
		sessions = make(map[string]time.Time)
		p.lastSeen[userID] = sessions
	}
	sessions[sessionID] = at
	return !wasOnline
}

// Leave 立即移除一个会话，返回在线集合是否改变。用户还有其他会话时仍然在线。
func (p *PresenceTracker) Leave(userID, sessionID string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	sessions := p.lastSeen[userID]
	if _, ok := sessions[sessionID]; !ok {
		return false
	}
	wasOnline := p.onlineLocked(userID, now)
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(p.lastSeen, userID)
	}
	return wasOnline && !p.onlineLocked(userID, now)
}

// Expire 移除心跳早于 now-expiry 的会话，返回因此离线的用户。
func (p *PresenceTracker) Expire(now time.Time) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var expired []string
	for userID, sessions := range p.lastSeen {
		for sessionID, at := range sessions {
			if now.Sub(at) > p.expiry {
				delete(sessions, sessionID)
			}
		}
		if len(sessions) == 0 {
			expired = append(expired, userID)
			delete(p.lastSeen, userID)
		}
	}
	sort.Strings(expired)
	return expired
}

// Online 返回 now 时刻在线的用户，按 ID 排序。
func (p *PresenceTracker) Online(now time.Time) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	online := make([]string, 0, len(p.lastSeen))
	for userID := range p.lastSeen {
		if p.onlineLocked(userID, now) {
			online = append(online, userID)
		}
	}
	sort.Strings(online)
	return online
}

func (p *PresenceTracker) onlineLocked(userID string, now time.Time) bool {
	for _, at := range p.lastSeen[userID] {
		if now.Sub(at) <= p.expiry {
			return true
		}
	}
	return false
}
