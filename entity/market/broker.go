package market

import (
	"context"
	"errors"
	"slices"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/container"
)

// IStats 撮合方记录成交统计的市场
type IStats interface {
	RecordOffered(id int32, quantity float64)
	RecordSold(id int32, quantity float64)
	ResetDaily()
}

// order 一条挂单
type order struct {
	seller   bus.ActorInfo
	product  int32
	quantity float64
	seq      int // 首次挂单的顺序
}

// Broker 撮合方
// 功能：根据SellOrder维护挂单簿，回答买方的FindProduct/FindClass/FindWant
// 说明：撮合方只介绍卖方，不参与谈判；挂单簿跨日保留，卖方以数量0撤单
type Broker struct {
	ctx     entity.ITaskContext
	actor   bus.ActorInfo
	mailbox *bus.Mailbox
	stats   IStats

	book    map[int32]map[bus.ActorInfo]*order // 商品 -> 卖方 -> 挂单
	nextSeq int
}

// NewBroker 创建撮合方并订阅总线
// 参数：ctx-任务上下文，stats-成交统计（可为nil）
func NewBroker(ctx entity.ITaskContext, stats IStats) *Broker {
	actor := bus.Market(0)
	return &Broker{
		ctx:     ctx,
		actor:   actor,
		mailbox: bus.NewMailbox(ctx.Bus(), actor, ctx.RuntimeConfig().WaitTimeout),
		stats:   stats,
		book:    make(map[int32]map[bus.ActorInfo]*order),
	}
}

func (b *Broker) Actor() bus.ActorInfo {
	return b.actor
}

// RunDay 处理消息直到AllFinished
// 说明：撮合方没有自己的谈判，等待超时只表示暂时空闲
func (b *Broker) RunDay(ctx context.Context) error {
	for {
		msg, err := b.mailbox.GetNextMessage(ctx)
		if errors.Is(err, bus.ErrWaitTimeout) {
			continue
		}
		if err != nil {
			return err
		}
		switch msg.Kind {
		case bus.StartDay:
			b.mailbox.MsgCatchup()
			b.mailbox.PruneBacklog(func(m bus.ActorMessage) bool { return m.AddressedTo(b.actor) })
			if b.stats != nil {
				b.stats.ResetDaily()
			}
		case bus.AllFinished:
			log.Debugf("day over, %d products listed", len(b.book))
			return nil
		case bus.SellOrder:
			b.updateOrder(msg)
		case bus.FindProduct:
			err = b.answer(msg, []int32{msg.Product}, bus.FoundProduct, bus.ProductNotFound)
		case bus.FindClass:
			err = b.answer(msg, b.ctx.Catalog().ClassMembers(msg.Class), bus.FoundClass, bus.ClassNotFound)
		case bus.FindWant:
			err = b.answer(msg, WantSources(b.ctx.Catalog(), msg.Product), bus.FoundWant, bus.ProductNotFound)
		default:
			log.Debugf("ignore %v", msg)
		}
		if err != nil {
			return err
		}
	}
}

// Listed 当前挂单中指定商品的卖方，按挂单量降序
func (b *Broker) Listed(product int32) []bus.ActorInfo {
	return lo.Map(b.rank([]int32{product}, bus.ActorInfo{}), func(o *order, _ int) bus.ActorInfo { return o.seller })
}

func (b *Broker) updateOrder(msg bus.ActorMessage) {
	sellers, ok := b.book[msg.Product]
	if !ok {
		sellers = make(map[bus.ActorInfo]*order)
		b.book[msg.Product] = sellers
	}
	prev := 0.0
	o, ok := sellers[msg.Sender]
	if ok {
		prev = o.quantity
	}
	if b.stats != nil {
		if msg.Quantity > prev {
			b.stats.RecordOffered(msg.Product, msg.Quantity-prev)
		} else if ok && msg.Quantity < prev {
			// 挂单减少视为成交
			b.stats.RecordSold(msg.Product, prev-msg.Quantity)
		}
	}
	if msg.Quantity <= ecosim.Epsilon {
		delete(sellers, msg.Sender)
		if len(sellers) == 0 {
			delete(b.book, msg.Product)
		}
		return
	}
	if !ok {
		o = &order{seller: msg.Sender, product: msg.Product, seq: b.nextSeq}
		b.nextSeq++
		sellers[msg.Sender] = o
	}
	o.quantity = msg.Quantity
}

// rank 在候选商品的挂单中排序卖方：挂单量大者优先，相同则先挂单者优先
func (b *Broker) rank(products []int32, exclude bus.ActorInfo) []*order {
	var orders []*order
	for _, product := range products {
		for _, o := range b.book[product] {
			if o.seller != exclude {
				orders = append(orders, o)
			}
		}
	}
	slices.SortFunc(orders, func(x, y *order) int { return x.seq - y.seq })
	q := container.NewPriorityQueue[*order]()
	for _, o := range orders {
		q.Push(o, -o.quantity)
	}
	q.Heapify()
	return q.Drain()
}

func (b *Broker) answer(req bus.ActorMessage, products []int32, found, notFound bus.MessageKind) error {
	ranked := b.rank(products, req.Sender)
	if len(ranked) == 0 {
		return b.mailbox.PushMessage(req.Reply(notFound))
	}
	best := ranked[0]
	reply := req.Reply(found)
	reply.Product, reply.Target, reply.Quantity = best.product, best.seller, best.quantity
	return b.mailbox.PushMessage(reply)
}

// WantSources 能够满足欲望的商品：拥有即可满足的商品，以及使用/消耗流程的商品投入
// 返回：去重后的商品ID，按ID升序
func WantSources(catalog ecosim.ICatalog, want int32) []int32 {
	w, ok := catalog.Want(want)
	if !ok {
		return nil
	}
	goods := slices.Clone(w.OwnershipSources)
	for _, pid := range append(slices.Clone(w.UseSources), w.ConsumptionSources...) {
		proc, ok := catalog.Process(pid)
		if !ok {
			continue
		}
		goods = append(goods, lo.Map(proc.ProductInputs(), func(part ecosim.ProcessPart, _ int) int32 {
			return part.Item.ID
		})...)
	}
	goods = lo.Uniq(goods)
	slices.Sort(goods)
	return goods
}
