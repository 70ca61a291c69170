// Package bus implements the in-process live distribution fanout for
// ingestion and configuration events.
package bus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/domain"
)

const defaultBufferSize = 64

// Subscription 单个订阅者的接收句柄
// OrgID 为空表示 admin 订阅（接收全部租户的事件）
type Subscription struct {
	ID    uint64
	OrgID string
	C     chan domain.Event
}

// Bus 实时分发总线：进程内显式注册表，生命周期随进程
// Publish 不会阻塞在慢订阅者上：缓冲写满直接剔除该订阅者
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription
	buffer int
	logger *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		subs:   make(map[uint64]*Subscription),
		buffer: defaultBufferSize,
		logger: logger,
	}
}

// Subscribe 注册新的订阅者；orgID 限定可见的租户，空串表示不过滤（admin）
// 不会阻塞
func (b *Bus) Subscribe(orgID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		ID:    b.nextID,
		OrgID: orgID,
		C:     make(chan domain.Event, b.buffer),
	}
	b.subs[sub.ID] = sub
	b.logger.Debug("bus subscriber added",
		zap.Uint64("sub_id", sub.ID),
		zap.String("org_id", orgID),
		zap.Int("subscribers", len(b.subs)))
	return sub
}

// Unsubscribe 移除订阅者并关闭其通道（断连检测时调用）
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.ID]; ok {
		delete(b.subs, sub.ID)
		close(sub.C)
	}
}

// Publish 将事件分发给所有匹配租户的订阅者
// 缓冲写满的订阅者被剔除，发布方永不阻塞
func (b *Bus) Publish(evt domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subs {
		// 租户过滤在订阅侧完成：admin 订阅（OrgID 为空）看到全部
		if sub.OrgID != "" && evt.OrgID != "" && sub.OrgID != evt.OrgID {
			continue
		}
		select {
		case sub.C <- evt:
		default:
			// 慢订阅者：剔除而不是阻塞采集链路
			delete(b.subs, id)
			close(sub.C)
			b.logger.Warn("bus subscriber dropped (buffer full)",
				zap.Uint64("sub_id", id))
		}
	}
}

// SubscriberCount 当前订阅者数量
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close 关闭所有订阅者通道（进程停止时调用）
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.C)
	}
}
