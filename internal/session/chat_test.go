package session_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/feed"
	"code-collaboration-studio/internal/session"
)

var chatBase = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func msgAt(id string, offset time.Duration, content string) domain.ChatMessage {
	return domain.ChatMessage{ID: id, RoomID: "room-1", UserID: "u1", Content: content, CreatedAt: chatBase.Add(offset)}
}

func assertSorted(t *testing.T, messages []domain.ChatMessage) {
	t.Helper()
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt), "created_at 应非递减")
	}
}

func TestChatStream_LoadSortsAscending(t *testing.T) {
	stream := session.NewChatStream()

	got := stream.Load([]domain.ChatMessage{msgAt("c", 3*time.Second, "c"), msgAt("a", time.Second, "a"), msgAt("b", 2*time.Second, "b")})

	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[2].ID)
	assertSorted(t, got)
}

func TestChatStream_BuffersUntilLoaded(t *testing.T) {
	stream := session.NewChatStream()

	assert.False(t, stream.Apply(session.ChatDelta{Kind: feed.KindInsert, Message: msgAt("live", 5*time.Second, "live")}))
	assert.False(t, stream.Apply(session.ChatDelta{Kind: feed.KindUpdate, Message: msgAt("old", 0, "edited")}))

	got := stream.Load([]domain.ChatMessage{msgAt("old", 0, "original"), msgAt("live", 5*time.Second, "live")})

	require.Len(t, got, 2, "历史和实时插入中重复的消息应去重")
	assert.Equal(t, "edited", got[0].Content)
	assert.Equal(t, "live", got[1].ID)
}

func TestChatStream_BufferIsBounded(t *testing.T) {
	stream := session.NewChatStream()
	for i := 0; i < 250; i++ {
		stream.Apply(session.ChatDelta{Kind: feed.KindInsert, Message: msgAt(fmt.Sprintf("m-%03d", i), time.Duration(i)*time.Second, "x")})
	}

	got := stream.Load(nil)

	require.Len(t, got, 200)
	assert.Equal(t, "m-050", got[0].ID, "超出上限时丢弃最早的变更")
	assert.Equal(t, "m-249", got[199].ID)
}

func TestChatStream_InsertKeepsOrder(t *testing.T) {
	stream := session.NewChatStream()
	stream.Load([]domain.ChatMessage{msgAt("a", 0, "a"), msgAt("c", 2*time.Second, "c")})

	assert.True(t, stream.Apply(session.ChatDelta{Kind: feed.KindInsert, Message: msgAt("d", 3*time.Second, "d")}))
	assert.True(t, stream.Apply(session.ChatDelta{Kind: feed.KindInsert, Message: msgAt("b", time.Second, "b")}))

	got := stream.Messages()
	require.Len(t, got, 4)
	assert.Equal(t, []string{"a", "b", "c", "d"}, []string{got[0].ID, got[1].ID, got[2].ID, got[3].ID})
	assertSorted(t, got)
}

func TestChatStream_InsertEchoDeduplicates(t *testing.T) {
	stream := session.NewChatStream()
	stream.Load(nil)
	draft := msgAt("m1", 0, "hello")

	assert.True(t, stream.Apply(session.ChatDelta{Kind: feed.KindInsert, Message: draft}))
	assert.False(t, stream.Apply(session.ChatDelta{Kind: feed.KindInsert, Message: draft}))
	assert.Len(t, stream.Messages(), 1)
}

func TestChatStream_UpdateAndDeleteMissingAreNoops(t *testing.T) {
	stream := session.NewChatStream()
	stream.Load([]domain.ChatMessage{msgAt("a", 0, "a")})

	assert.False(t, stream.Apply(session.ChatDelta{Kind: feed.KindUpdate, Message: msgAt("ghost", 0, "x")}))
	assert.False(t, stream.Apply(session.ChatDelta{Kind: feed.KindDelete, Message: domain.ChatMessage{ID: "ghost"}}))
	assert.Len(t, stream.Messages(), 1)
}

func TestChatStream_UpdateKeepsPosition(t *testing.T) {
	stream := session.NewChatStream()
	stream.Load([]domain.ChatMessage{msgAt("a", 0, "a"), msgAt("b", time.Second, "b")})

	edited := msgAt("a", time.Hour, "a2")
	assert.True(t, stream.Apply(session.ChatDelta{Kind: feed.KindUpdate, Message: edited}))

	got := stream.Messages()
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "a2", got[0].Content)
	assert.Equal(t, chatBase, got[0].CreatedAt)

	assert.True(t, stream.Apply(session.ChatDelta{Kind: feed.KindDelete, Message: domain.ChatMessage{ID: "a"}}))
	assert.Len(t, stream.Messages(), 1)
}
