package pop

import (
	"context"

	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/metrics"
)

// ShoppingLoop 购物循环
// 功能：从最低的未满足需求开始逐个尝试购买，直到时间不足、需求走完或收到Shutdown
// 参数：ctx-生命周期控制
// 返回：购买成功的次数；总线断开或等待超时时返回error
// 算法说明：
// 1. 每次尝试前先MsgCatchup，避免已经到达的Shutdown与交易消息竞争
// 2. 每次尝试消耗固定的购物时间，成功时计入该商品的TimeCost
// 3. 同一需求出现失败后只重试一次，然后沿阶梯向上跳过已满足的出现
func (p *Pop) ShoppingLoop(ctx context.Context) (int, error) {
	cost := p.ctx.RuntimeConfig().E.ShoppingTimeCost
	bought := 0
	coord, ok := p.property.GetFirstUnsatisfiedDesire()
	retried := false
	spent := 0.0
	for ok {
		if p.timeLeft() < cost-ecosim.Epsilon {
			p.log.Debug("out of time")
			break
		}
		p.mailbox.MsgCatchup()
		if msg, stop := p.mailbox.TakeBacklogged(bus.Expect(bus.Shutdown)); stop {
			p.log.Infof("shutdown from %v", msg.Sender)
			break
		}
		spent += p.spendTime(cost)
		result, err := p.TryToBuy(ctx, coord)
		if err != nil {
			return bought, err
		}
		metrics.BuyResults.WithLabelValues(result.Kind.String()).Inc()
		if result.Kind == Successful {
			p.property.Ensure(result.Good).TimeCost += spent
			bought++
		} else if !retried {
			retried = true
			continue
		}
		retried, spent = false, 0
		coord, ok = p.nextUnsatisfied(coord)
	}
	return bought, nil
}

// nextUnsatisfied coord之后第一个未满足的需求出现
func (p *Pop) nextUnsatisfied(coord ecosim.DesireCoord) (ecosim.DesireCoord, bool) {
	next, ok := p.property.WalkUpTiers(coord)
	for ok && p.property.Desires[next.Idx].SatisfiedAt(next.Tier) {
		next, ok = p.property.WalkUpTiers(next)
	}
	return next, ok
}
