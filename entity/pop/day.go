package pop

import (
	"context"
	"maps"
	"slices"

	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/metrics"
)

// RunDay 运行一个模拟日
// 功能：StartDay -> 工作 -> 挂单 -> 购物 -> 空闲时间 -> 日终结算
// 参数：ctx-生命周期控制
// 返回：总线断开、谈判等待超时或ctx结束时返回error
func (p *Pop) RunDay(ctx context.Context) error {
	if _, err := p.awaitIdle(ctx, bus.Expect(bus.StartDay)); err != nil {
		return err
	}
	p.startDay()
	if err := p.Work(ctx); err != nil {
		return err
	}
	if err := p.postSellOrders(); err != nil {
		return err
	}
	bought, err := p.ShoppingLoop(ctx)
	if err != nil {
		return err
	}
	p.log.Debugf("bought %d times", bought)
	if err := p.FreeTime(ctx, p.freeTime); err != nil {
		return err
	}
	return p.endDay()
}

// startDay 日初准备
// 算法说明：
// 1. 删除积压队列中不是发给自己的旧消息
// 2. 清空当日流水，记入昨天日终之后转入的商品与欲望
// 3. 发放当天的时间并重新筛选
func (p *Pop) startDay() {
	p.mailbox.MsgCatchup()
	p.mailbox.PruneBacklog(func(m bus.ActorMessage) bool { return m.AddressedTo(p.actor) })
	p.property.ResetDailyCounters()
	p.foldBacklogged()
	p.property.UnsafeAddProperty(p.timeProduct, p.ctx.RuntimeConfig().E.TimePerDay)
	p.property.SiftAll(p.catalog())
}

// endDay 日终结算
// 算法说明：
// 1. 执行计划的流程，外溢的欲望广播给其他居民
// 2. 商品损坏与欲望衰减
// 3. 调整库存目标
// 4. 未用完的时间作废
func (p *Pop) endDay() error {
	catalog := p.catalog()
	splash := p.property.ConsumeGoods(catalog)
	for _, want := range slices.Sorted(maps.Keys(splash)) {
		msg := bus.New(bus.WantSplash, p.actor, bus.Everyone)
		msg.Product, msg.Quantity = want, splash[want]*SplashShare
		if err := p.send(msg); err != nil {
			return err
		}
	}
	lost := p.property.DecayGoods(catalog, p.rng)
	if len(lost) > 0 {
		p.log.Debugf("decayed %v", lost)
	}
	p.AdaptFuturePlan(p.ctx.RuntimeConfig().E.TargetStep)
	if left := p.property.Total(p.timeProduct); left > ecosim.Epsilon {
		p.property.Ensure(p.timeProduct).Remove(left)
		p.property.IsSifted = false
	}
	p.currentSat = p.property.SiftAll(catalog)
	if full := p.property.FullTierSatisfaction; full != nil {
		metrics.SatisfactionTier.Observe(float64(*full))
	}
	return nil
}
