package pop

import (
	"context"
	"fmt"

	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
)

// FreeTime 空闲时间
// 功能：挂出剩余商品，执行自定义行为，记录满足价值，报告Finished后为其他买方服务直到AllFinished
// 参数：ctx-生命周期控制，shop-自定义行为（可为nil）
// 返回：总线断开或谈判等待超时时返回error
func (p *Pop) FreeTime(ctx context.Context, shop FreeTimeFunc) error {
	if err := p.postSellOrders(); err != nil {
		return err
	}
	if shop != nil {
		if err := shop(ctx, p); err != nil {
			return fmt.Errorf("pop %d free time: %w", p.id, err)
		}
	}
	p.prevSat = p.currentSat
	p.currentSat = p.property.SiftAll(p.catalog())

	if err := p.send(bus.New(bus.Finished, p.actor, bus.System)); err != nil {
		return err
	}
	for {
		msg, err := p.awaitIdle(ctx, bus.Expect(bus.AllFinished), bus.Expect(bus.CheckItem))
		if err != nil {
			return err
		}
		if msg.Kind == bus.AllFinished {
			return nil
		}
		if err := p.StandardSell(ctx, msg); err != nil {
			return err
		}
	}
}
