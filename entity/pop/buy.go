package pop

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/metrics"
)

// MaxBuyAttempts 一次购买中最多发出的报价次数（首次报价加一次TooExpensive之后的缩减重试）
const MaxBuyAttempts = 2

// BuyResultKind 购买尝试的终态
type BuyResultKind uint8

const (
	Successful BuyResultKind = iota
	NotSuccessful
	CancelBuy
	SellerClosed
)

var buyResultNames = [...]string{"Successful", "NotSuccessful", "CancelBuy", "SellerClosed"}

func (k BuyResultKind) String() string {
	if int(k) < len(buyResultNames) {
		return buyResultNames[k]
	}
	return fmt.Sprintf("BuyResultKind(%d)", k)
}

// BuyResult 购买尝试的结果
type BuyResult struct {
	Kind   BuyResultKind
	Reason bus.OfferResult // NotSuccessful的原因；Successful时为报价评估结果
	Good   int32           // 购买的商品
	Amount float64         // 成交数量
}

func (r BuyResult) String() string {
	if r.Kind == NotSuccessful {
		return fmt.Sprintf("NotSuccessful{%v}", r.Reason)
	}
	return r.Kind.String()
}

func notSuccessful(reason bus.OfferResult) BuyResult {
	return BuyResult{Kind: NotSuccessful, Reason: reason}
}

// ClassifyOffer 报价评估
// 参数：value-报价总价值，marketValue-按市场价计算的成交价值
// 返回：Steal/Cheap/Reasonable/Expensive/TooExpensive之一
func ClassifyOffer(value, marketValue float64) bus.OfferResult {
	if marketValue <= ecosim.Epsilon {
		return bus.Reasonable
	}
	ratio := value / marketValue
	switch {
	case ratio < 0.5:
		return bus.Steal
	case ratio < 0.9:
		return bus.Cheap
	case ratio <= 1.1:
		return bus.Reasonable
	case ratio <= 1.5:
		return bus.Expensive
	default:
		return bus.TooExpensive
	}
}

// CreateOffer 贪心构造报价
// 功能：按卖出优先顺序从可支付商品中依次取用，直到总价值达到targetValue或可支付商品用尽
// 参数：targetValue-目标价值，spendable-可支付的商品及数量，catalog-目录，market-市场快照
// 返回：报价（商品ID到数量）与其按市场价计算的总价值
// 算法说明：
// 1. 可支付商品按SaleOrder排序：声明的优先顺序，货币，可售性降序
// 2. 对每个商品取(目标-已有价值)/单价；不可分割商品向上取整，并且只能使用整数部分的持有量
// 3. 总价值可能超过目标，这里不做找零修正
func CreateOffer(
	targetValue float64,
	spendable map[int32]float64,
	catalog ecosim.ICatalog,
	market ecosim.IMarket,
) (map[int32]float64, float64) {
	offer := make(map[int32]float64)
	value := 0.0
	for _, good := range ecosim.SaleOrder(market, lo.Keys(spendable)) {
		if value >= targetValue-ecosim.Epsilon {
			break
		}
		price := ecosim.Price(market, good)
		have := spendable[good]
		if price <= 0 {
			continue
		}
		take := (targetValue - value) / price
		if !ecosim.IsFractional(catalog, good) {
			take = math.Ceil(take - ecosim.Epsilon)
			have = math.Floor(have + ecosim.Epsilon)
		}
		take = math.Min(take, have)
		if take <= ecosim.Epsilon {
			continue
		}
		offer[good] = take
		value += take * price
	}
	return offer, value
}

// offerValue 按市场价计算一组商品的总价值
func offerValue(market ecosim.IMarket, goods map[int32]float64) float64 {
	return lo.SumBy(lo.Entries(goods), func(e lo.Entry[int32, float64]) float64 {
		return e.Value * ecosim.Price(market, e.Key)
	})
}

// TryToBuy 寻找卖方并购买满足coord处需求的商品
// 功能：向撮合方询问可以满足该需求的卖方，找到后进入StandardBuy
// 参数：ctx-生命周期控制，coord-需求出现
// 返回：购买结果；总线断开或等待超时时返回error
func (p *Pop) TryToBuy(ctx context.Context, coord ecosim.DesireCoord) (BuyResult, error) {
	if coord.Idx < 0 || coord.Idx >= len(p.property.Desires) {
		return BuyResult{}, fmt.Errorf("pop %d: desire coord %v out of range", p.id, coord)
	}
	item := p.property.Desires[coord.Idx].Item
	deal := uuid.NewString()
	var req bus.ActorMessage
	switch item.Kind {
	case ecosim.ItemProduct:
		req = bus.New(bus.FindProduct, p.actor, Broker)
		req.Product = item.ID
	case ecosim.ItemClass:
		req = bus.New(bus.FindClass, p.actor, Broker)
		req.Class = item.ID
	case ecosim.ItemWant:
		req = bus.New(bus.FindWant, p.actor, Broker)
		req.Product = item.ID
	}
	req.Deal = deal
	if err := p.send(req); err != nil {
		return BuyResult{}, err
	}
	reply, err := p.await(ctx,
		bus.Expect(bus.FoundProduct).InDeal(deal),
		bus.Expect(bus.ProductNotFound).InDeal(deal),
		bus.Expect(bus.FoundClass).InDeal(deal),
		bus.Expect(bus.ClassNotFound).InDeal(deal),
		bus.Expect(bus.FoundWant).InDeal(deal),
	)
	if err != nil {
		return BuyResult{}, err
	}
	switch reply.Kind {
	case bus.ProductNotFound, bus.ClassNotFound:
		p.log.WithFields(logrus.Fields{"deal": deal, "item": item}).Debug("no seller in market")
		return notSuccessful(bus.NotInMarket), nil
	}
	return p.StandardBuy(ctx, reply.Target, reply.Product, coord, deal)
}

// wantedQuantity 为满足coord处的需求需要购买的good数量
// 算法说明：
// 1. 需求出现的缺口，欲望需求按每单位商品的欲望产出折算
// 2. 不低于该商品的库存下界与持有量之差
// 3. 设有库存上界时不超过上界与持有量之差
// 4. 不可分割商品向上取整
func (p *Pop) wantedQuantity(good int32, coord ecosim.DesireCoord) float64 {
	d := &p.property.Desires[coord.Idx]
	need := math.Max(d.Amount-d.SatisfactionAt(coord.Tier), 0)
	if d.Item.Kind == ecosim.ItemWant {
		need /= p.wantPerUnit(good, d.Item.ID)
	}
	if info := p.property.Info(good); info != nil {
		need = math.Max(need, info.LowerTarget-info.TotalProperty)
		if info.UpperTarget > ecosim.Epsilon {
			need = math.Min(need, math.Max(info.UpperTarget-info.TotalProperty, 0))
		}
	}
	if !ecosim.IsFractional(p.catalog(), good) {
		need = math.Ceil(need - ecosim.Epsilon)
	}
	return need
}

// wantPerUnit 每单位商品能带来的欲望满足量（拥有或经由使用/消耗流程）
func (p *Pop) wantPerUnit(good, want int32) float64 {
	catalog := p.catalog()
	product, ok := catalog.Product(good)
	if !ok {
		return 1
	}
	if per := product.Wants[want]; per > 0 {
		return per
	}
	for _, pid := range append(slices.Clone(product.UseProcesses), product.ConsumptionProcesses...) {
		proc, ok := catalog.Process(pid)
		if !ok {
			continue
		}
		out := proc.OutputOf(ecosim.WantItem(want))
		in := lo.SumBy(proc.ProductInputs(), func(part ecosim.ProcessPart) float64 {
			if part.Item.ID == good {
				return part.Amount
			}
			return 0
		})
		if out > 0 && in > 0 {
			return out / in
		}
	}
	return 1
}

// StandardBuy 向已知卖方购买商品
// 功能：询问库存，构造以物易物的报价，处理卖方的接受、找零、拒绝与关闭
// 参数：ctx-生命周期控制，seller-卖方，good-商品，coord-要满足的需求出现，deal-谈判ID（为空则生成）
// 返回：购买结果；总线断开或等待超时时返回error
// 算法说明：
// 1. 目标数量受需求缺口、库存上下界约束，为0时直接放弃（CancelBuy）
// 2. CheckItem询问库存，NotInStock则失败（OutOfStock），并受卖方库存约束
// 3. 可支付商品为满足coord之前全部需求后剩余的未预留商品
// 4. 报价价值不足时按可支付价值缩减数量；缩减后交易的预测满足变化为负则放弃（TooExpensive）
// 5. 卖方以TooExpensive拒绝时重试一次：数量取被拒报价的价值可支付的数量再减一个调整步长；
//    其他原因的拒绝或重试再被拒绝则失败（Rejected）
// 6. 任何等待中收到卖方的CloseDeal都终止谈判（SellerClosed）
// 说明：只有成交时才修改账本，其余任何终态下账本保持不变
func (p *Pop) StandardBuy(
	ctx context.Context,
	seller bus.ActorInfo,
	good int32,
	coord ecosim.DesireCoord,
	deal string,
) (BuyResult, error) {
	if deal == "" {
		deal = uuid.NewString()
	}
	catalog, market := p.catalog(), p.market()
	logger := p.log.WithFields(logrus.Fields{"deal": deal, "product": good, "seller": seller})
	fractional := ecosim.IsFractional(catalog, good)

	qty := p.wantedQuantity(good, coord)
	if qty <= ecosim.Epsilon {
		logger.Debug("nothing wanted within targets")
		return BuyResult{Kind: CancelBuy}, nil
	}
	floor := 0.0
	step := p.ctx.RuntimeConfig().E.TargetStep
	if !fractional {
		floor = 1
		step = math.Max(math.Ceil(step-ecosim.Epsilon), 1)
	}
	closed := bus.Expect(bus.CloseDeal).From(seller).InDeal(deal)
	check := bus.New(bus.CheckItem, p.actor, seller)
	check.Deal, check.Product, check.Quantity = deal, good, floor
	if err := p.send(check); err != nil {
		return BuyResult{}, err
	}
	stock, err := p.await(ctx,
		bus.Expect(bus.InStock).From(seller).InDeal(deal),
		bus.Expect(bus.NotInStock).From(seller).InDeal(deal),
		closed,
	)
	if err != nil {
		return BuyResult{}, err
	}
	switch stock.Kind {
	case bus.NotInStock:
		logger.Debug("seller out of stock")
		return notSuccessful(bus.OutOfStock), nil
	case bus.CloseDeal:
		logger.Debug("seller closed the deal before quoting")
		return BuyResult{Kind: SellerClosed}, nil
	}
	price := stock.Price
	qty = math.Min(qty, stock.Quantity)
	if !fractional {
		qty = math.Floor(qty + ecosim.Epsilon)
	}
	if qty <= ecosim.Epsilon || price <= 0 {
		return p.rejectPurchase(seller, deal, good, bus.OutOfStock)
	}

	spendable := p.property.SpendableAfter(coord, catalog)
	delete(spendable, good)
	for g := range spendable {
		if ecosim.Price(market, g) <= 0 {
			delete(spendable, g)
		}
	}
	if len(spendable) == 0 {
		logger.Debug("nothing to pay with")
		if _, err := p.rejectPurchase(seller, deal, good, bus.OfferNone); err != nil {
			return BuyResult{}, err
		}
		return BuyResult{Kind: CancelBuy}, nil
	}

	marketPrice := ecosim.Price(market, good)
	if marketPrice <= 0 {
		marketPrice = price
	}
	for attempt := 0; attempt < MaxBuyAttempts; attempt++ {
		offer, value := CreateOffer(price*qty, spendable, catalog, market)
		if value < price*qty-ecosim.Epsilon {
			// 可支付的价值不足，缩减数量
			qty = value / price
			if !fractional {
				qty = math.Floor(qty + ecosim.Epsilon)
			}
			if qty <= ecosim.Epsilon {
				return p.rejectPurchase(seller, deal, good, bus.TooExpensive)
			}
			offer, value = CreateOffer(price*qty, spendable, catalog, market)
		}
		delta := lo.MapValues(offer, func(v float64, _ int32) float64 { return -v })
		delta[good] += qty
		if p.property.PredictValueChanged(delta, catalog).Sign() < 0 {
			logger.Debugf("trade of %g for %v would lose satisfaction", qty, offer)
			return p.rejectPurchase(seller, deal, good, bus.TooExpensive)
		}
		class := ClassifyOffer(value, marketPrice*qty)
		metrics.OfferClasses.WithLabelValues(class.String()).Inc()

		if err := p.sendOffer(seller, deal, good, qty, value, offer); err != nil {
			return BuyResult{}, err
		}
		reply, err := p.await(ctx,
			bus.Expect(bus.SellerAcceptOfferAsIs).From(seller).InDeal(deal),
			bus.Expect(bus.OfferAcceptedWithChange).From(seller).InDeal(deal),
			bus.Expect(bus.RejectOffer).From(seller).InDeal(deal),
			closed,
		)
		if err != nil {
			return BuyResult{}, err
		}
		switch reply.Kind {
		case bus.SellerAcceptOfferAsIs:
			p.settlePurchase(good, qty, offer, nil)
			logger.WithField("result", class).Debugf("bought %g for %v", qty, offer)
			return BuyResult{Kind: Successful, Reason: class, Good: good, Amount: qty}, nil
		case bus.OfferAcceptedWithChange:
			change, aborted, err := p.readBundle(ctx, seller, deal, bus.ChangeFollowup, reply.Followups, closed)
			if err != nil {
				return BuyResult{}, err
			}
			if aborted {
				logger.Debug("seller closed the deal while returning change")
				return BuyResult{Kind: SellerClosed}, nil
			}
			p.settlePurchase(good, qty, offer, change)
			logger.WithField("result", class).Debugf("bought %g for %v with change %v", qty, offer, change)
			return BuyResult{Kind: Successful, Reason: class, Good: good, Amount: qty}, nil
		case bus.CloseDeal:
			logger.Debug("seller closed the deal")
			return BuyResult{Kind: SellerClosed}, nil
		}
		if reply.Reason != bus.TooExpensive || attempt+1 >= MaxBuyAttempts {
			logger.Debugf("offer rejected: %v", reply.Reason)
			break
		}
		// 重试数量：被拒报价的价值按卖方价格可换得的数量，再减一个步长
		qty = math.Min(qty, value/price) - step
		if !fractional {
			qty = math.Floor(qty + ecosim.Epsilon)
		}
		if qty <= ecosim.Epsilon {
			return p.rejectPurchase(seller, deal, good, bus.TooExpensive)
		}
	}
	return p.rejectPurchase(seller, deal, good, bus.Rejected)
}

// rejectPurchase 通知卖方放弃购买
func (p *Pop) rejectPurchase(seller bus.ActorInfo, deal string, good int32, reason bus.OfferResult) (BuyResult, error) {
	msg := bus.New(bus.RejectPurchase, p.actor, seller)
	msg.Deal, msg.Product, msg.Reason = deal, good, reason
	if err := p.send(msg); err != nil {
		return BuyResult{}, err
	}
	return notSuccessful(reason), nil
}

// sendOffer 发送报价头与跟随消息
// 说明：跟随消息按卖出优先顺序排列，数量与头消息中的Followups一致
func (p *Pop) sendOffer(seller bus.ActorInfo, deal string, good int32, qty, value float64, offer map[int32]float64) error {
	head := bus.New(bus.BuyOffer, p.actor, seller)
	head.Deal, head.Product, head.Quantity, head.Price, head.Followups = deal, good, qty, value, len(offer)
	if err := p.send(head); err != nil {
		return err
	}
	return p.sendBundle(seller, deal, bus.BuyOfferFollowup, offer)
}

// sendBundle 发送一组商品的跟随消息
func (p *Pop) sendBundle(to bus.ActorInfo, deal string, kind bus.MessageKind, goods map[int32]float64) error {
	for _, g := range ecosim.SaleOrder(p.market(), lo.Keys(goods)) {
		msg := bus.New(kind, p.actor, to)
		msg.Deal, msg.Product, msg.Quantity = deal, g, goods[g]
		if err := p.send(msg); err != nil {
			return err
		}
	}
	return nil
}

// readBundle 依次读取n条跟随消息
// 返回：商品及数量；对方以abort模式的消息中止时aborted为true
func (p *Pop) readBundle(
	ctx context.Context,
	from bus.ActorInfo,
	deal string,
	kind bus.MessageKind,
	n int,
	abort bus.Pattern,
) (goods map[int32]float64, aborted bool, err error) {
	goods = make(map[int32]float64, n)
	for range n {
		msg, err := p.await(ctx, bus.Expect(kind).From(from).InDeal(deal), abort)
		if err != nil {
			return nil, false, err
		}
		if abort.Matches(msg, p.actor) {
			return nil, true, nil
		}
		goods[msg.Product] += msg.Quantity
	}
	return goods, false, nil
}

// settlePurchase 买方成交入账
// 说明：AmvCost记录扣除找零后的净支付价值
func (p *Pop) settlePurchase(good int32, qty float64, offer, change map[int32]float64) {
	market := p.market()
	for g, amount := range offer {
		info := p.property.Ensure(g)
		info.Remove(amount)
		info.Spent += amount
	}
	info := p.property.Ensure(good)
	info.Add(qty)
	info.Received += qty
	info.AmvCost += offerValue(market, offer) - offerValue(market, change)
	for g, amount := range change {
		c := p.property.Ensure(g)
		c.Add(amount)
		c.Received += amount
	}
	p.property.IsSifted = false
	p.property.SiftAll(p.catalog())
}
