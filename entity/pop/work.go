package pop

import (
	"context"
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
)

// Work 为雇主工作
// 功能：响应雇主的FirmToEmployee请求，交出时间或商品，直到WorkDayEnded
// 参数：ctx-生命周期控制
// 返回：总线断开或等待超时时返回error
// 算法说明：
//   - RequestTime：交出请求的时间（不超过剩余时间）
//   - RequestItem：交出指定商品的未预留部分（不超过请求数量）
//   - RequestEverything：交出全部未预留商品（时间除外）
//
// 每次交出后回复EmployeeToFirm{RequestSent}；工资等转入消息在等待期间记入账本
func (p *Pop) Work(ctx context.Context) error {
	if p.employer == nil {
		return nil
	}
	employer := *p.employer
	for {
		msg, err := p.await(ctx, bus.Expect(bus.FirmToEmployee).From(employer))
		if err != nil {
			return err
		}
		switch msg.Action {
		case bus.WorkDayEnded:
			p.foldBacklogged()
			return nil
		case bus.RequestTime:
			if err := p.handOver(employer, p.timeProduct, msg.Quantity); err != nil {
				return err
			}
		case bus.RequestItem:
			if err := p.handOver(employer, msg.Product, msg.Quantity); err != nil {
				return err
			}
		case bus.RequestEverything:
			for _, g := range p.property.Goods() {
				if g == p.timeProduct {
					continue
				}
				if err := p.handOver(employer, g, math.Inf(1)); err != nil {
					return err
				}
			}
		default:
			p.log.Warnf("unexpected firm action %v from %v", msg.Action, employer)
			continue
		}
		reply := bus.New(bus.EmployeeToFirm, p.actor, employer)
		reply.Action = bus.RequestSent
		if err := p.send(reply); err != nil {
			return err
		}
	}
}

// handOver 交出商品的未预留部分
func (p *Pop) handOver(to bus.ActorInfo, good int32, requested float64) error {
	amount := wholeUnits(p.catalog(), good, math.Min(p.property.Unreserved(good), requested))
	if amount <= ecosim.Epsilon {
		return nil
	}
	info := p.property.Ensure(good)
	info.Remove(amount)
	info.Spent += amount
	p.property.IsSifted = false
	p.property.SiftAll(p.catalog())

	msg := bus.New(bus.SendProduct, p.actor, to)
	msg.Product, msg.Quantity = good, amount
	return p.send(msg)
}
