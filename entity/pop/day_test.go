package pop_test

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity/market"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity/pop"
)

func TestWorkHandsOverAndCollectsWage(t *testing.T) {
	ctx := newTestContext(t)
	employer := newPeer(t, ctx, bus.Firm(1))
	p := pop.New(ctx, 1, nil, map[int32]float64{goodTime: 16, goodFruit: 3}, lo.ToPtr(int32(1)))
	e, ok := p.Employer()
	require.True(t, ok)
	assert.Equal(t, bus.Firm(1), e)

	done := make(chan error, 1)
	go func() { done <- p.Work(context.Background()) }()

	req := bus.New(bus.FirmToEmployee, employer.mb.Self(), p.Actor())
	req.Action, req.Quantity = bus.RequestTime, 8
	employer.send(req)
	got := employer.expect(bus.SendProduct)
	assert.Equal(t, goodTime, got.Product)
	assert.Equal(t, 8.0, got.Quantity)
	assert.Equal(t, bus.RequestSent, employer.expect(bus.EmployeeToFirm).Action)

	req.Action, req.Product, req.Quantity = bus.RequestItem, goodFruit, 5
	employer.send(req)
	got = employer.expect(bus.SendProduct)
	assert.Equal(t, goodFruit, got.Product)
	assert.Equal(t, 3.0, got.Quantity)
	employer.expect(bus.EmployeeToFirm)

	wage := bus.New(bus.SendProduct, employer.mb.Self(), p.Actor())
	wage.Product, wage.Quantity = goodCoin, 8
	employer.send(wage)
	end := bus.New(bus.FirmToEmployee, employer.mb.Self(), p.Actor())
	end.Action = bus.WorkDayEnded
	employer.send(end)

	require.NoError(t, <-done)
	assert.Equal(t, map[int32]float64{goodTime: 8, goodCoin: 8}, p.Property().Holdings())
	assert.Equal(t, 8.0, p.Property().Info(goodCoin).Received)
	assert.Equal(t, 8.0, p.Property().Info(goodTime).Spent)
}

func TestWorkWithoutEmployerReturns(t *testing.T) {
	ctx := newTestContext(t)
	p := pop.New(ctx, 1, nil, nil, nil)
	_, ok := p.Employer()
	assert.False(t, ok)
	assert.NoError(t, p.Work(context.Background()))
}

func TestAdaptFuturePlan(t *testing.T) {
	ctx := newTestContext(t)
	p := pop.New(ctx, 1, []ecosim.Desire{singleton(goodFruit, 0, 4)}, map[int32]float64{goodFruit: 4}, nil)
	prop := p.Property()

	fruit := prop.Info(goodFruit)
	require.Equal(t, 4.0, fruit.LowerTarget)
	require.Equal(t, 4.0, fruit.UpperTarget)
	fruit.Consumed = 5

	clothes := prop.Ensure(goodClothes)
	clothes.LowerTarget, clothes.UpperTarget = 3, 5

	cabin := prop.Ensure(goodCabin)
	cabin.LowerTarget, cabin.UpperTarget = 1, 5
	cabin.Consumed, cabin.Lost = 2, 1

	p.AdaptFuturePlan(1)
	// 消耗超过上界：提高两个步长
	assert.Equal(t, 6.0, fruit.LowerTarget)
	assert.Equal(t, 6.0, fruit.UpperTarget)
	// 没有消耗：降低一个步长
	assert.Equal(t, 2.0, clothes.LowerTarget)
	assert.Equal(t, 4.0, clothes.UpperTarget)
	// 在上下界之间：不变
	assert.Equal(t, 1.0, cabin.LowerTarget)
	assert.Equal(t, 5.0, cabin.UpperTarget)

	clothes.LowerTarget, clothes.UpperTarget = 0.5, 0.5
	p.AdaptFuturePlan(1)
	assert.Zero(t, clothes.LowerTarget)
	assert.Zero(t, clothes.UpperTarget)
}

func TestAdaptFuturePlanThresholds(t *testing.T) {
	ctx := newTestContext(t)
	p := pop.New(ctx, 1, nil, map[int32]float64{goodCoin: 3}, nil)
	prop := p.Property()

	// 用量恰好等于上界：提高一个步长
	fruit := prop.Ensure(goodFruit)
	fruit.LowerTarget, fruit.UpperTarget = 1, 2
	fruit.Consumed, fruit.Lost = 1.5, 0.5

	// 恰好等于下界：降低
	clothes := prop.Ensure(goodClothes)
	clothes.LowerTarget, clothes.UpperTarget = 2, 4
	clothes.Consumed = 2

	p.AdaptFuturePlan(1)
	assert.Equal(t, 2.0, fruit.LowerTarget)
	assert.Equal(t, 3.0, fruit.UpperTarget)
	assert.Equal(t, 1.0, clothes.LowerTarget)
	assert.Equal(t, 3.0, clothes.UpperTarget)

	// 没有目标也没有用量的商品不会被提高
	coin := prop.Info(goodCoin)
	for range 3 {
		p.AdaptFuturePlan(1)
	}
	assert.Zero(t, coin.LowerTarget)
	assert.Zero(t, coin.UpperTarget)
}

func TestFreeTimePostsSurplusAndServes(t *testing.T) {
	ctx := newTestContext(t)
	broker := newPeer(t, ctx, pop.Broker)
	system := newPeer(t, ctx, bus.System)
	buyer := newPeer(t, ctx, bus.Pop(9))
	p := pop.New(ctx, 1, []ecosim.Desire{singleton(goodFruit, 0, 4)}, map[int32]float64{goodFruit: 10}, nil)

	called := false
	done := make(chan error, 1)
	go func() {
		done <- p.FreeTime(context.Background(), func(context.Context, *pop.Pop) error {
			called = true
			return nil
		})
	}()

	order := broker.expect(bus.SellOrder)
	assert.Equal(t, goodFruit, order.Product)
	assert.Equal(t, 6.0, order.Quantity)
	assert.Equal(t, 1.0, order.Price)
	system.expect(bus.Finished)

	// 报告Finished之后仍为其他买方服务
	check := bus.New(bus.CheckItem, buyer.mb.Self(), p.Actor())
	check.Deal, check.Product, check.Quantity = "late", goodFruit, 1
	buyer.send(check)
	stock := buyer.expect(bus.InStock)
	assert.Equal(t, 6.0, stock.Quantity)
	cancel := stock.Reply(bus.RejectPurchase)
	buyer.send(cancel)

	system.send(bus.New(bus.AllFinished, bus.System, bus.Everyone))
	require.NoError(t, <-done)
	assert.True(t, called)
	_, current := p.Satisfaction()
	assert.Equal(t, ecosim.TieredValue{Tier: 0, Value: 1}, current)
}

func TestTryToBuyThroughBroker(t *testing.T) {
	ctx := newTestContext(t)
	system := newPeer(t, ctx, bus.System)
	seller := newPeer(t, ctx, bus.Pop(9))
	b := market.NewBroker(ctx, nil)
	brokerDone := make(chan error, 1)
	go func() { brokerDone <- b.RunDay(context.Background()) }()

	buyer := pop.New(ctx, 1, []ecosim.Desire{singleton(goodX, 0, 1)}, map[int32]float64{goodY: 10}, nil)
	coord := firstUnsatisfied(t, buyer)

	res, err := buyer.TryToBuy(context.Background(), coord)
	require.NoError(t, err)
	assert.Equal(t, pop.NotSuccessful, res.Kind)
	assert.Equal(t, bus.NotInMarket, res.Reason)

	listing := bus.New(bus.SellOrder, seller.mb.Self(), pop.Broker)
	listing.Product, listing.Quantity, listing.Price = goodX, 3, 1000
	seller.send(listing)

	done := make(chan buyOutcome, 1)
	go func() {
		res, err := buyer.TryToBuy(context.Background(), coord)
		done <- buyOutcome{res, err}
	}()
	check := seller.expect(bus.CheckItem)
	assert.Equal(t, goodX, check.Product)
	out := check.Reply(bus.NotInStock)
	out.Reason = bus.OutOfStock
	seller.send(out)

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, bus.OutOfStock, got.res.Reason)

	system.send(bus.New(bus.AllFinished, bus.System, bus.Everyone))
	require.NoError(t, <-brokerDone)
}

func TestShoppingLoopNeedsTime(t *testing.T) {
	ctx := newTestContext(t)
	p := pop.New(ctx, 1, []ecosim.Desire{singleton(goodX, 0, 1)}, map[int32]float64{goodY: 10}, nil)
	bought, err := p.ShoppingLoop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, bought)
	assert.Equal(t, 10.0, p.Property().Holdings()[goodY])
}

func TestShoppingLoopStopsOnShutdown(t *testing.T) {
	ctx := newTestContext(t)
	system := newPeer(t, ctx, bus.System)
	p := pop.New(ctx, 1, []ecosim.Desire{singleton(goodX, 0, 1)}, map[int32]float64{goodTime: 5, goodY: 10}, nil)
	system.send(bus.New(bus.Shutdown, bus.System, bus.Everyone))

	bought, err := p.ShoppingLoop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, bought)
	assert.Equal(t, 5.0, p.Property().Holdings()[goodTime])
}

func TestShoppingLoopRetriesOnce(t *testing.T) {
	ctx := newTestContext(t)
	system := newPeer(t, ctx, bus.System)
	b := market.NewBroker(ctx, nil)
	brokerDone := make(chan error, 1)
	go func() { brokerDone <- b.RunDay(context.Background()) }()

	p := pop.New(ctx, 1, []ecosim.Desire{singleton(goodX, 0, 1)}, map[int32]float64{goodTime: 5, goodY: 10}, nil)
	bought, err := p.ShoppingLoop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, bought)
	// 一次失败加一次重试
	assert.Equal(t, 3.0, p.Property().Holdings()[goodTime])
	assert.Equal(t, 10.0, p.Property().Holdings()[goodY])

	system.send(bus.New(bus.AllFinished, bus.System, bus.Everyone))
	require.NoError(t, <-brokerDone)
}
