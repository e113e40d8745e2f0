package pop

import (
	"context"
	"errors"
	"math"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/container"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/randengine"
)

// Broker 撮合方在总线上的标识
var Broker = bus.Market(0)

// SplashShare 外溢欲望分给每个其他居民的比例
const SplashShare = 0.1

// FreeTimeFunc 空闲时间的自定义行为，在挂出卖单之后、报告Finished之前调用
type FreeTimeFunc func(ctx context.Context, p *Pop) error

// Pop 居民
// 功能：持有账本与需求阶梯，通过信箱与其他参与者交易
// 说明：账本只由居民自己的协程修改，模拟日之间可由管理器读取
type Pop struct {
	container.IncrementalItemBase

	ctx      entity.ITaskContext
	id       int32
	actor    bus.ActorInfo
	mailbox  *bus.Mailbox
	property *ecosim.Property
	employer *bus.ActorInfo
	rng      *randengine.Engine

	timeProduct int32
	listed      map[int32]float64 // 已挂出的卖单数量
	freeTime    FreeTimeFunc

	prevSat, currentSat ecosim.TieredValue

	log *logrus.Entry
}

// New 创建居民
// 功能：建立账本、订阅总线，按需求阶梯计算默认库存目标并完成初次筛选
// 参数：ctx-任务上下文，id-居民ID，desires-需求阶梯，holdings-初始持有，employer-雇主企业ID（可为nil）
// 返回：新创建的居民
func New(
	ctx entity.ITaskContext,
	id int32,
	desires []ecosim.Desire,
	holdings map[int32]float64,
	employer *int32,
) *Pop {
	rc := ctx.RuntimeConfig()
	p := &Pop{
		ctx:         ctx,
		id:          id,
		actor:       bus.Pop(id),
		mailbox:     bus.NewMailbox(ctx.Bus(), bus.Pop(id), rc.WaitTimeout),
		property:    ecosim.NewProperty(nil),
		rng:         randengine.New(rc.C.Seed + uint64(id)),
		timeProduct: rc.E.TimeProduct,
		listed:      make(map[int32]float64),
		log:         log.WithField("pop", id),
	}
	if employer != nil {
		e := bus.Firm(*employer)
		p.employer = &e
	}
	p.property.MaxTier = rc.E.MaxSiftTier
	for good, amount := range holdings {
		p.property.UnsafeAddProperty(good, amount)
	}
	p.property.SetDesires(desires, ctx.Catalog())
	p.currentSat = p.property.Satisfaction
	p.prevSat = p.currentSat
	return p
}

func (p *Pop) ID() int32 {
	return p.id
}

func (p *Pop) Actor() bus.ActorInfo {
	return p.actor
}

func (p *Pop) Property() *ecosim.Property {
	return p.property
}

func (p *Pop) Satisfaction() (prev, current ecosim.TieredValue) {
	return p.prevSat, p.currentSat
}

func (p *Pop) Employer() (bus.ActorInfo, bool) {
	if p.employer == nil {
		return bus.ActorInfo{}, false
	}
	return *p.employer, true
}

// Mailbox 居民的信箱
func (p *Pop) Mailbox() *bus.Mailbox {
	return p.mailbox
}

// SetFreeTime 设置空闲时间的自定义行为
func (p *Pop) SetFreeTime(fn FreeTimeFunc) {
	p.freeTime = fn
}

func (p *Pop) catalog() ecosim.ICatalog {
	return p.ctx.Catalog()
}

func (p *Pop) market() ecosim.IMarket {
	return p.ctx.Market()
}

// send 发送消息，发送者为自己
func (p *Pop) send(msg bus.ActorMessage) error {
	msg.Sender = p.actor
	return p.mailbox.PushMessage(msg)
}

// passive 不需要谈判状态即可处理的消息
var passive = []bus.Pattern{
	bus.Expect(bus.SendProduct),
	bus.Expect(bus.SendWant),
	bus.Expect(bus.WantSplash),
	bus.Expect(bus.CheckItem),
}

// await 等待匹配patterns之一的消息
// 说明：等待期间顺带处理被动消息：转入的商品与欲望记入账本，不在patterns中的询价以NotInStock回绝，
// 保证两个同时购物的居民不会互相等待
func (p *Pop) await(ctx context.Context, patterns ...bus.Pattern) (bus.ActorMessage, error) {
	all := append(slices.Clone(patterns), passive...)
	for {
		msg, err := p.mailbox.SpecificWait(ctx, all...)
		if err != nil {
			return msg, err
		}
		if bus.MatchAny(msg, p.actor, patterns) {
			return msg, nil
		}
		if err := p.handlePassive(msg); err != nil {
			return msg, err
		}
	}
}

// awaitIdle 与await相同，但等待超时不视为错误
// 说明：用于等待协调者的StartDay/AllFinished，这段时间的长短取决于其他参与者
func (p *Pop) awaitIdle(ctx context.Context, patterns ...bus.Pattern) (bus.ActorMessage, error) {
	for {
		msg, err := p.await(ctx, patterns...)
		if errors.Is(err, bus.ErrWaitTimeout) {
			p.log.Debugf("still idle: %v", err)
			continue
		}
		return msg, err
	}
}

func (p *Pop) handlePassive(msg bus.ActorMessage) error {
	switch msg.Kind {
	case bus.CheckItem:
		p.log.WithField("deal", msg.Deal).Debugf("busy, decline check from %v", msg.Sender)
		reply := msg.Reply(bus.NotInStock)
		reply.Reason = bus.OutOfStock
		return p.send(reply)
	default:
		p.fold(msg)
	}
	return nil
}

// fold 把转入的商品或欲望记入账本
func (p *Pop) fold(msg bus.ActorMessage) {
	switch msg.Kind {
	case bus.SendProduct:
		if msg.Quantity <= ecosim.Epsilon {
			return
		}
		info := p.property.Ensure(msg.Product)
		info.Add(msg.Quantity)
		info.Received += msg.Quantity
		p.property.IsSifted = false
		p.property.SiftAll(p.catalog())
	case bus.SendWant, bus.WantSplash:
		if msg.Quantity <= ecosim.Epsilon {
			return
		}
		p.property.AddWant(msg.Product, msg.Quantity, p.catalog())
	}
}

// foldBacklogged 处理积压队列中全部的转入消息
func (p *Pop) foldBacklogged() int {
	n := 0
	for {
		msg, ok := p.mailbox.TakeBacklogged(passive[:3]...)
		if !ok {
			return n
		}
		p.fold(msg)
		n++
	}
}

// timeLeft 剩余可用时间
func (p *Pop) timeLeft() float64 {
	return p.property.Unreserved(p.timeProduct)
}

// spendTime 消耗时间，返回实际消耗量
func (p *Pop) spendTime(amount float64) float64 {
	info := p.property.Ensure(p.timeProduct)
	spent := info.Expend(amount)
	info.Used += spent
	return spent
}

// wholeUnits 不可分割商品向下取整
func wholeUnits(catalog ecosim.ICatalog, good int32, amount float64) float64 {
	if ecosim.IsFractional(catalog, good) {
		return amount
	}
	return math.Floor(amount + ecosim.Epsilon)
}
