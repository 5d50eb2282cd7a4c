package redisfeed

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"code-collaboration-studio/internal/feed"
)

// RedisTransport 是基于 Redis Pub/Sub 的 feed.Transport 实现。
// 每个订阅独占一个 PubSub 连接，关闭订阅即退订。
type RedisTransport struct {
	client *redis.Client
}

// NewRedisTransport 创建 RedisTransport 实例
func NewRedisTransport(client *redis.Client) *RedisTransport {
	if client == nil {
		panic("redis client cannot be nil for RedisTransport")
	}
	return &RedisTransport{client: client}
}

// Publish 执行 PUBLISH
func (t *RedisTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := t.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: failed to publish to channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe 执行 SUBSCRIBE 并等待服务端确认
func (t *RedisTransport) Subscribe(ctx context.Context, channel string) (feed.Subscription, error) {
	pubsub := t.client.Subscribe(ctx, channel)
	// Receive 阻塞到收到 subscribe 确认
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: failed to subscribe to channel %s: %w", channel, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan []byte, 256),
		done:   make(chan struct{}),
	}
	go sub.forward(channel)
	return sub, nil
}

type redisSubscription struct {
	pubsub    *redis.PubSub
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *redisSubscription) Messages() <-chan []byte { return s.out }

// forward 把 go-redis 的消息通道转换为字节通道
func (s *redisSubscription) forward(channel string) {
	defer close(s.out)
	msgs := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			select {
			case s.out <- []byte(msg.Payload):
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
		if err != nil {
			logrus.WithError(err).Warn("redis: error closing pubsub")
		}
	})
	return err
}
