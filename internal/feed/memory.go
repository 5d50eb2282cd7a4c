package feed

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

const memoryBufferSize = 256

// MemoryTransport 是进程内的 Transport 实现，用于单节点部署和测试。
// 发布时持锁投递，同一频道内保持发布顺序。
type MemoryTransport struct {
	mu     sync.Mutex
	subs   map[string]map[*memorySubscription]struct{}
	closed bool
}

// NewMemoryTransport 创建进程内传输。
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{subs: make(map[string]map[*memorySubscription]struct{})}
}

// Publish 向频道的所有订阅者投递。订阅者缓冲区满时丢弃该消息。
func (m *MemoryTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for sub := range m.subs[channel] {
		msg := append([]byte(nil), payload...)
		select {
		case sub.ch <- msg:
		default:
			logrus.WithField("channel", channel).Warn("Memory feed subscriber buffer full, dropping message")
		}
	}
	return nil
}

// Subscribe 注册订阅，返回时即已生效。
func (m *MemoryTransport) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	sub := &memorySubscription{transport: m, channel: channel, ch: make(chan []byte, memoryBufferSize)}
	if m.subs[channel] == nil {
		m.subs[channel] = make(map[*memorySubscription]struct{})
	}
	m.subs[channel][sub] = struct{}{}
	return sub, nil
}

// SubscriberCount 返回频道当前的订阅数。
func (m *MemoryTransport) SubscriberCount(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[channel])
}

// Close 关闭全部订阅。
func (m *MemoryTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for channel, set := range m.subs {
		for sub := range set {
			sub.closeLocked()
		}
		delete(m.subs, channel)
	}
	return nil
}

type memorySubscription struct {
	transport *MemoryTransport
	channel   string
	ch        chan []byte
	once      sync.Once
}

func (s *memorySubscription) Messages() <-chan []byte { return s.ch }

func (s *memorySubscription) Close() error {
	s.transport.mu.Lock()
	defer s.transport.mu.Unlock()
	if set := s.transport.subs[s.channel]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(s.transport.subs, s.channel)
		}
	}
	s.closeLocked()
	return nil
}

// closeLocked 要求调用方持有 transport.mu
func (s *memorySubscription) closeLocked() {
	s.once.Do(func() { close(s.ch) })
}
