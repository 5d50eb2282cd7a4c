package redisfeed_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-collaboration-studio/internal/feed"
	redisfeed "code-collaboration-studio/internal/infra/feed/redis"
)

func newTransport(t *testing.T) *redisfeed.RedisTransport {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisfeed.NewRedisTransport(client)
}

func receive(t *testing.T, sub feed.Subscription) []byte {
	t.Helper()
	select {
	case msg, ok := <-sub.Messages():
		require.True(t, ok, "订阅不应提前关闭")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestRedisTransport_SubscribeIsConfirmedBeforeReturn(t *testing.T) {
	ctx := context.Background()
	transport := newTransport(t)

	sub, err := transport.Subscribe(ctx, "cs:feed:chat_messages:r1")
	require.NoError(t, err)
	defer sub.Close()

	// Subscribe 返回后立即发布的消息必须可达
	require.NoError(t, transport.Publish(ctx, "cs:feed:chat_messages:r1", []byte("one")))
	require.NoError(t, transport.Publish(ctx, "cs:feed:chat_messages:r1", []byte("two")))

	assert.Equal(t, "one", string(receive(t, sub)))
	assert.Equal(t, "two", string(receive(t, sub)))
}

func TestRedisTransport_CloseStopsDelivery(t *testing.T) {
	ctx := context.Background()
	transport := newTransport(t)

	sub, err := transport.Subscribe(ctx, "cs:presence:r1")
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close(), "重复关闭应安全")

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.Messages():
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisTransport_BrokerRoundTrip(t *testing.T) {
	ctx := context.Background()
	broker := feed.NewBroker(newTransport(t), "cs:", nil)

	sub, err := broker.SubscribeChanges(ctx, feed.TableRooms, "r1")
	require.NoError(t, err)
	defer sub.Close()

	event, err := feed.NewChangeEvent(feed.TableRooms, feed.KindUpdate, "r1", "s1", feed.DocumentRow{RoomID: "r1", Text: "hi", Version: 3})
	require.NoError(t, err)
	require.NoError(t, broker.PublishChange(ctx, event))

	got, err := feed.DecodeChange(receive(t, sub))
	require.NoError(t, err)
	assert.Equal(t, feed.KindUpdate, got.Kind)
	assert.Equal(t, "s1", got.Writer)
	var row feed.DocumentRow
	require.NoError(t, got.DecodeRow(&row))
	assert.Equal(t, uint64(3), row.Version)
	assert.Equal(t, "hi", row.Text)
}
