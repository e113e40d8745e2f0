package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/container"
)

// DefaultWaitTimeout 单次等待的默认上限
const DefaultWaitTimeout = 5 * time.Second

// Mailbox 参与者的信箱
// 功能：在共享广播流上选择性接收发给自己的消息，其余消息按到达顺序保存在积压队列中供之后处理
// 说明：积压队列中的消息相对顺序始终与到达顺序一致；消息不会被静默丢弃，被取走的消息只取走一次。
// Mailbox只能由其所有者的协程使用
type Mailbox struct {
	self    ActorInfo
	bus     *Bus
	sub     *Subscription
	backlog *container.List[ActorMessage]
	timeout time.Duration
}

// NewMailbox 创建信箱并订阅总线
// 参数：b-总线，self-所有者标识，timeout-单次等待上限（<=0表示DefaultWaitTimeout）
func NewMailbox(b *Bus, self ActorInfo, timeout time.Duration) *Mailbox {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	return &Mailbox{
		self:    self,
		bus:     b,
		sub:     b.Subscribe(),
		backlog: &container.List[ActorMessage]{},
		timeout: timeout,
	}
}

// Self 所有者标识
func (m *Mailbox) Self() ActorInfo {
	return m.self
}

// PushMessage 发送消息
// 说明：发送前先把所有已到达的消息转入积压队列，保证发送不会越过尚未处理的消息
func (m *Mailbox) PushMessage(msg ActorMessage) error {
	m.MsgCatchup()
	if msg.Sender.IsZero() {
		msg.Sender = m.self
	}
	if err := m.bus.Send(msg); err != nil {
		return fmt.Errorf("%v push %v: %w", m.self, msg.Kind, err)
	}
	return nil
}

// MsgCatchup 把所有已到达的消息转入积压队列，不做处理
// 返回：转入的消息数
func (m *Mailbox) MsgCatchup() int {
	n := 0
	for {
		msg, ok, _ := m.sub.TryRecv()
		if !ok {
			return n
		}
		m.backlog.PushBackValue(msg)
		n++
	}
}

// GetNextMessage 下一条发给自己的消息
// 算法说明：
// 1. 先按FIFO扫描积压队列
// 2. 再从总线接收，遇到发给他人的消息追加到积压队列
func (m *Mailbox) GetNextMessage(ctx context.Context) (ActorMessage, error) {
	return m.wait(ctx, func(msg ActorMessage) bool { return msg.AddressedTo(m.self) }, "any")
}

// SpecificWait 等待匹配任一模式的消息
// 说明：先检查积压队列，再从总线接收；途中不匹配的消息按原顺序保存在积压队列中
func (m *Mailbox) SpecificWait(ctx context.Context, patterns ...Pattern) (ActorMessage, error) {
	return m.wait(ctx, func(msg ActorMessage) bool { return MatchAny(msg, m.self, patterns) }, patterns)
}

// TakeBacklogged 从积压队列中取出第一条匹配的消息，不阻塞
func (m *Mailbox) TakeBacklogged(patterns ...Pattern) (ActorMessage, bool) {
	node := m.backlog.Find(func(msg ActorMessage) bool { return MatchAny(msg, m.self, patterns) })
	if node == nil {
		return ActorMessage{}, false
	}
	m.backlog.Remove(node)
	return node.Value, true
}

// PruneBacklog 删除积压队列中keep返回false的消息
// 返回：删除的消息数
func (m *Mailbox) PruneBacklog(keep func(ActorMessage) bool) int {
	n := m.backlog.RemoveIf(func(msg ActorMessage) bool { return !keep(msg) })
	if n > 0 {
		log.Debugf("%v pruned %d backlogged messages, %d left", m.self, n, m.backlog.Len())
	}
	return n
}

// Backlog 积压队列的副本（按到达顺序）
func (m *Mailbox) Backlog() []ActorMessage {
	return m.backlog.Values()
}

// Close 取消订阅
func (m *Mailbox) Close() {
	m.sub.Unsubscribe()
}

func (m *Mailbox) wait(ctx context.Context, match func(ActorMessage) bool, what any) (ActorMessage, error) {
	if node := m.backlog.Find(match); node != nil {
		m.backlog.Remove(node)
		return node.Value, nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	for {
		msg, err := m.sub.Recv(waitCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return ActorMessage{}, fmt.Errorf("%w: %v waiting for %v after %v (backlog %d)",
					ErrWaitTimeout, m.self, what, m.timeout, m.backlog.Len())
			}
			return ActorMessage{}, fmt.Errorf("%v waiting for %v: %w", m.self, what, err)
		}
		if match(msg) {
			return msg, nil
		}
		m.backlog.PushBackValue(msg)
	}
}
