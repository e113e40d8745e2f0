package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/container"
)

var (
	// ErrBusClosed 总线已关闭且没有待读消息
	ErrBusClosed = errors.New("bus closed")
	// ErrWaitTimeout 等待消息超时
	ErrWaitTimeout = errors.New("wait timeout")
)

// Bus 广播总线
// 功能：每条消息投递给所有订阅者，所有订阅者看到的消息顺序相同
// 说明：Send在总线锁内依次追加到每个订阅者的无界队列，因此全局有序且发送方不会阻塞
type Bus struct {
	subs   []*Subscription
	closed bool
	mu     sync.Mutex
}

// NewBus 创建总线
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe 订阅总线，只能收到订阅之后发送的消息
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &Subscription{
		bus:    b,
		queue:  &container.List[ActorMessage]{},
		notify: make(chan struct{}, 1),
		closed: b.closed,
	}
	b.subs = append(b.subs, s)
	return s
}

// Send 广播消息
// 返回：总线已关闭时返回ErrBusClosed
func (b *Bus) Send(msg ActorMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	for _, s := range b.subs {
		s.push(msg)
	}
	return nil
}

// Close 关闭总线，订阅者读完剩余消息后收到ErrBusClosed
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		s.close()
	}
}

func (b *Bus) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == s {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
}

// Subscription 总线的一个接收端
type Subscription struct {
	bus    *Bus
	queue  *container.List[ActorMessage]
	notify chan struct{}
	closed bool
	mu     sync.Mutex
}

func (s *Subscription) push(msg ActorMessage) {
	s.mu.Lock()
	s.queue.PushBackValue(msg)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// TryRecv 非阻塞读取
// 返回：ok表示读到消息；队列为空且总线已关闭时返回ErrBusClosed
func (s *Subscription) TryRecv() (msg ActorMessage, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := s.queue.PopFront(); ok {
		return msg, true, nil
	}
	if s.closed {
		return msg, false, ErrBusClosed
	}
	return msg, false, nil
}

// Recv 阻塞读取，直到有消息、总线关闭或ctx结束
func (s *Subscription) Recv(ctx context.Context) (ActorMessage, error) {
	for {
		msg, ok, err := s.TryRecv()
		if ok || err != nil {
			return msg, err
		}
		select {
		case <-ctx.Done():
			return ActorMessage{}, ctx.Err()
		case <-s.notify:
		}
	}
}

// Pending 尚未读取的消息数
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Unsubscribe 取消订阅
func (s *Subscription) Unsubscribe() {
	s.bus.unsubscribe(s)
}
