package service_test

import (
	"context"
	"sync"

	"code-collaboration-studio/internal/feed"
)

// recordingPublisher 记录所有发布的变更事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []feed.ChangeEvent
	err    error
}

func (p *recordingPublisher) PublishChange(_ context.Context, event feed.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []feed.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]feed.ChangeEvent(nil), p.events...)
}
