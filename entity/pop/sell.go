package pop

import (
	"context"
	"math"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/metrics"
)

// StandardSell 响应买方的询价并完成出售
// 功能：检查库存，报出价格与数量，评估买方的以物易物报价，接受（必要时找零）或拒绝
// 参数：ctx-生命周期控制，req-买方的CheckItem
// 返回：总线断开或等待超时时返回error
// 算法说明：
// 1. 可售数量为未预留部分（不可分割商品取整）
// 2. 可售数量为0或低于买方要求的最低数量时，先尝试放弃该商品优先级最低的一次已满足需求（见releaseFor）
// 3. 仍不足则NotInStock；否则回复InStock{市场价, 可售数量}，等待BuyOffer或RejectPurchase
// 4. 报价按市场价估值，不低于价格×数量则成交：超出部分用自己的其他未预留商品找零，不超过超出的价值
// 5. 否则拒绝；拒绝次数达到上限时以CloseDeal结束谈判
// 说明：放弃需求后谈判未成交时重新筛选，归还预留
func (p *Pop) StandardSell(ctx context.Context, req bus.ActorMessage) error {
	catalog, market := p.catalog(), p.market()
	buyer, deal, good := req.Sender, req.Deal, req.Product
	logger := p.log.WithFields(logrus.Fields{"deal": deal, "product": good, "buyer": buyer})

	avail := wholeUnits(catalog, good, p.property.Unreserved(good))
	price := ecosim.Price(market, good)
	short := func() bool { return avail <= ecosim.Epsilon || avail < req.Quantity-ecosim.Epsilon }
	if good != p.timeProduct && price > 0 && short() && p.releaseFor(good) {
		avail = wholeUnits(catalog, good, p.property.Unreserved(good))
		logger.Debugf("released a desire occurrence, %g available", avail)
		defer func() {
			if !p.property.IsSifted {
				p.property.SiftAll(catalog)
			}
		}()
	}
	if good == p.timeProduct || price <= 0 || short() {
		reply := req.Reply(bus.NotInStock)
		reply.Reason = bus.OutOfStock
		metrics.SellResults.WithLabelValues("not_in_stock").Inc()
		return p.send(reply)
	}
	stock := req.Reply(bus.InStock)
	stock.Price, stock.Quantity = price, avail
	if err := p.send(stock); err != nil {
		return err
	}

	maxRejects := p.ctx.RuntimeConfig().E.MaxRejectRounds
	rejects := 0
	for {
		msg, err := p.await(ctx,
			bus.Expect(bus.BuyOffer).From(buyer).InDeal(deal),
			bus.Expect(bus.RejectPurchase).From(buyer).InDeal(deal),
		)
		if err != nil {
			return err
		}
		if msg.Kind == bus.RejectPurchase {
			logger.Debugf("buyer cancelled: %v", msg.Reason)
			metrics.SellResults.WithLabelValues("buyer_cancelled").Inc()
			return nil
		}
		offer, cancelled, err := p.readBundle(ctx, buyer, deal, bus.BuyOfferFollowup, msg.Followups,
			bus.Expect(bus.RejectPurchase).From(buyer).InDeal(deal))
		if err != nil {
			return err
		}
		if cancelled {
			logger.Debug("buyer cancelled while sending offer")
			metrics.SellResults.WithLabelValues("buyer_cancelled").Inc()
			return nil
		}
		qty := math.Min(msg.Quantity, avail)
		value := offerValue(market, offer)
		if qty > ecosim.Epsilon && value >= price*qty-ecosim.Epsilon {
			change := p.makeChange(value-price*qty, good)
			p.settleSale(good, qty, offer, change)
			if len(change) == 0 {
				if err := p.send(msg.Reply(bus.SellerAcceptOfferAsIs)); err != nil {
					return err
				}
			} else {
				reply := msg.Reply(bus.OfferAcceptedWithChange)
				reply.Followups = len(change)
				if err := p.send(reply); err != nil {
					return err
				}
				if err := p.sendBundle(buyer, deal, bus.ChangeFollowup, change); err != nil {
					return err
				}
			}
			logger.Debugf("sold %g for %v, change %v", qty, offer, change)
			metrics.SellResults.WithLabelValues("settled").Inc()
			return p.postSellOrders()
		}
		rejects++
		if rejects >= maxRejects {
			logger.Debugf("offer %v for %g too low, closing", offer, qty)
			metrics.SellResults.WithLabelValues("closed").Inc()
			return p.send(msg.Reply(bus.CloseDeal))
		}
		reply := msg.Reply(bus.RejectOffer)
		reply.Reason = bus.TooExpensive
		metrics.SellResults.WithLabelValues("rejected").Inc()
		if err := p.send(reply); err != nil {
			return err
		}
	}
}

// releaseFor 为出售good放弃一次已满足的需求出现
// 功能：从最高层级向下找到good的第一个有满足量的出现并释放其预留
// 返回：是否释放出了good
// 说明：只放弃层级高于最低未满足层级的出现，所有需求都已满足时不放弃；释放后账本处于未筛选状态
func (p *Pop) releaseFor(good int32) bool {
	catalog := p.catalog()
	if !p.property.IsSifted {
		p.property.SiftAll(catalog)
	}
	lowest, ok := p.property.GetLowestUnsatisfiedTier()
	if !ok {
		return false
	}
	item := ecosim.ProductItem(good)
	top := ecosim.DesireCoord{Tier: math.MaxInt32, Idx: len(p.property.Desires)}
	coord, ok := p.property.WalkDownTiersForItem(top, item)
	for ok && p.property.Desires[coord.Idx].SatisfactionAt(coord.Tier) <= ecosim.Epsilon {
		coord, ok = p.property.WalkDownTiersForItem(coord, item)
	}
	if !ok || coord.Tier <= lowest {
		return false
	}
	freed, ok := p.property.ReleaseDesireAt(coord, p.market(), catalog)
	return ok && freed[good] > ecosim.Epsilon
}

// makeChange 用未预留商品找零
// 参数：excess-需要找回的价值，sold-正在出售的商品（不用于找零）
// 返回：找零商品及数量，总价值不超过excess
func (p *Pop) makeChange(excess float64, sold int32) map[int32]float64 {
	catalog, market := p.catalog(), p.market()
	change := make(map[int32]float64)
	goods := lo.Filter(p.property.Goods(), func(g int32, _ int) bool {
		return g != sold && g != p.timeProduct && ecosim.Price(market, g) > 0 && p.property.Unreserved(g) > ecosim.Epsilon
	})
	for _, g := range ecosim.SaleOrder(market, goods) {
		if excess <= ecosim.Epsilon {
			break
		}
		price := ecosim.Price(market, g)
		take := wholeUnits(catalog, g, math.Min(p.property.Unreserved(g), excess/price))
		if take <= ecosim.Epsilon {
			continue
		}
		change[g] = take
		excess -= take * price
	}
	return change
}

// settleSale 卖方成交入账
func (p *Pop) settleSale(good int32, qty float64, offer, change map[int32]float64) {
	info := p.property.Ensure(good)
	info.Remove(qty)
	info.Spent += qty
	for g, amount := range offer {
		in := p.property.Ensure(g)
		in.Add(amount)
		in.Received += amount
	}
	for g, amount := range change {
		out := p.property.Ensure(g)
		out.Remove(amount)
		out.Spent += amount
	}
	p.property.IsSifted = false
	p.property.SiftAll(p.catalog())
}

// surplus 可以挂出的数量：未预留部分中超过库存上界的部分
func (p *Pop) surplus(good int32) float64 {
	info := p.property.Info(good)
	if info == nil || good == p.timeProduct {
		return 0
	}
	amount := math.Min(info.Unreserved, info.TotalProperty-info.UpperTarget)
	return math.Max(wholeUnits(p.catalog(), good, amount), 0)
}

// postSellOrders 把剩余商品挂到撮合方
// 说明：只发送与上次挂单数量不同的商品；不再有剩余的商品以数量0撤单
func (p *Pop) postSellOrders() error {
	market := p.market()
	goods := lo.Uniq(append(p.property.Goods(), lo.Keys(p.listed)...))
	for _, g := range ecosim.SaleOrder(market, goods) {
		qty := p.surplus(g)
		if ecosim.Price(market, g) <= 0 {
			qty = 0
		}
		if math.Abs(qty-p.listed[g]) <= ecosim.Epsilon {
			continue
		}
		msg := bus.New(bus.SellOrder, p.actor, Broker)
		msg.Product, msg.Quantity, msg.Price = g, qty, ecosim.Price(market, g)
		if err := p.send(msg); err != nil {
			return err
		}
		if qty <= ecosim.Epsilon {
			delete(p.listed, g)
		} else {
			p.listed[g] = qty
		}
	}
	return nil
}
