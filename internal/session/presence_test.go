package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"code-collaboration-studio/internal/session"
)

func TestPresenceTracker_ExpiryWindow(t *testing.T) {
	tracker := session.NewPresenceTracker(30 * time.Second)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	assert.True(t, tracker.Observe("alice", "a1", now))
	assert.False(t, tracker.Observe("alice", "a1", now.Add(10*time.Second)), "连续心跳不改变在线集合")
	assert.True(t, tracker.Observe("bob", "b1", now.Add(5*time.Second)))

	assert.Equal(t, []string{"alice", "bob"}, tracker.Online(now.Add(20*time.Second)))
	assert.Equal(t, []string{"bob"}, tracker.Online(now.Add(41*time.Second)))

	assert.Equal(t, []string{"alice", "bob"}, tracker.Expire(now.Add(2*time.Minute)))
	assert.Empty(t, tracker.Online(now.Add(2*time.Minute)))
}

func TestPresenceTracker_LeaveRemovesImmediately(t *testing.T) {
	tracker := session.NewPresenceTracker(0)
	now := time.Now()
	tracker.Observe("alice", "a1", now)

	assert.True(t, tracker.Leave("alice", "a1", now))
	assert.False(t, tracker.Leave("alice", "a1", now))
	assert.Empty(t, tracker.Online(now))
}

func TestPresenceTracker_LeaveOneOfTwoSessions(t *testing.T) {
	tracker := session.NewPresenceTracker(30 * time.Second)
	now := time.Now()
	assert.True(t, tracker.Observe("alice", "tab-1", now))
	assert.False(t, tracker.Observe("alice", "tab-2", now), "第二个会话不改变在线集合")

	assert.False(t, tracker.Leave("alice", "tab-1", now))
	assert.Equal(t, []string{"alice"}, tracker.Online(now))

	assert.True(t, tracker.Leave("alice", "tab-2", now))
	assert.Empty(t, tracker.Online(now))
}

func TestPresenceTracker_ExpireKeepsLiveSession(t *testing.T) {
	tracker := session.NewPresenceTracker(10 * time.Second)
	now := time.Now()
	tracker.Observe("alice", "old-tab", now)
	tracker.Observe("alice", "new-tab", now.Add(8*time.Second))

	assert.Empty(t, tracker.Expire(now.Add(15*time.Second)), "仍有会话在窗口内")
	assert.Equal(t, []string{"alice"}, tracker.Online(now.Add(15*time.Second)))
	assert.Equal(t, []string{"alice"}, tracker.Expire(now.Add(20*time.Second)))
}

func TestPresenceTracker_IgnoresOlderHeartbeat(t *testing.T) {
	tracker := session.NewPresenceTracker(10 * time.Second)
	now := time.Now()
	tracker.Observe("alice", "a1", now)

	assert.False(t, tracker.Observe("alice", "a1", now.Add(-time.Minute)))
	assert.Equal(t, []string{"alice"}, tracker.Online(now.Add(5*time.Second)))
}
