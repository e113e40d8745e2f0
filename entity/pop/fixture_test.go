package pop_test

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/clock"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity/pop"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/config"
)

const (
	goodTime    int32 = 1
	goodFruit   int32 = 2
	goodClothes int32 = 3
	goodCabin   int32 = 4
	goodX       int32 = 5
	goodY       int32 = 6
	goodZ       int32 = 7
	goodCoin    int32 = 8
)

// testContext 只提供居民需要的部分
type testContext struct {
	rc      *config.RuntimeConfig
	catalog *ecosim.Catalog
	market  *ecosim.Market
	bus     *bus.Bus
}

func (c *testContext) Clock() *clock.Clock                  { return nil }
func (c *testContext) RuntimeConfig() *config.RuntimeConfig { return c.rc }
func (c *testContext) Catalog() ecosim.ICatalog             { return c.catalog }
func (c *testContext) Market() ecosim.IMarket               { return c.market }
func (c *testContext) Bus() *bus.Bus                        { return c.bus }
func (c *testContext) PopManager() entity.IPopManager       { return nil }

func newTestContext(t *testing.T) *testContext {
	t.Helper()
	catalog := ecosim.NewCatalog()
	for _, p := range []*ecosim.Product{
		{ID: goodTime, Name: "time", Fractional: true},
		{ID: goodFruit, Name: "ambrosia fruit"},
		{ID: goodClothes, Name: "cotton clothes"},
		{ID: goodCabin, Name: "cabin"},
		{ID: goodX, Name: "x"},
		{ID: goodY, Name: "y"},
		{ID: goodZ, Name: "z", Fractional: true},
		{ID: goodCoin, Name: "coin", Fractional: true},
	} {
		require.NoError(t, catalog.AddProduct(p))
	}
	require.NoError(t, catalog.Link())

	market := ecosim.NewMarket()
	market.SetProduct(goodFruit, ecosim.ProductInfo{Price: 1, Salability: 0.9})
	market.SetProduct(goodClothes, ecosim.ProductInfo{Price: 2, Salability: 0.5})
	market.SetProduct(goodCabin, ecosim.ProductInfo{Price: 5.9, Salability: 0.1})
	market.SetProduct(goodX, ecosim.ProductInfo{Price: 1000, Salability: 0.1})
	market.SetProduct(goodY, ecosim.ProductInfo{Price: 2, Salability: 0.5})
	market.SetProduct(goodZ, ecosim.ProductInfo{Price: 20, Salability: 0.1})
	market.SetProduct(goodCoin, ecosim.ProductInfo{Price: 1, Salability: 1, IsCurrency: true})

	rc := config.NewRuntimeConfig(config.Config{
		Control: config.Control{WaitTimeout: 2},
		Economy: config.Economy{TimeProduct: goodTime, WageProduct: goodCoin},
	})
	return &testContext{rc: rc, catalog: catalog, market: market, bus: bus.NewBus()}
}

func singleton(good int32, tier int, amount float64) ecosim.Desire {
	return ecosim.Desire{Item: ecosim.ProductItem(good), StartTier: tier, Amount: amount}
}

func ladder(good int32, start, end int, amount float64) ecosim.Desire {
	return ecosim.Desire{Item: ecosim.ProductItem(good), StartTier: start, EndTier: &end, Step: 1, Amount: amount}
}

// peer 脚本化的交易对手
type peer struct {
	t  *testing.T
	mb *bus.Mailbox
}

func newPeer(t *testing.T, ctx *testContext, actor bus.ActorInfo) *peer {
	return &peer{t: t, mb: bus.NewMailbox(ctx.bus, actor, 2*time.Second)}
}

func (p *peer) expect(kind bus.MessageKind) bus.ActorMessage {
	p.t.Helper()
	msg, err := p.mb.SpecificWait(context.Background(), bus.Expect(kind))
	require.NoError(p.t, err)
	return msg
}

func (p *peer) send(msg bus.ActorMessage) {
	p.t.Helper()
	require.NoError(p.t, p.mb.PushMessage(msg))
}

// readOffer 读取报价头及其跟随消息
func (p *peer) readOffer() (bus.ActorMessage, map[int32]float64) {
	p.t.Helper()
	head := p.expect(bus.BuyOffer)
	goods := make(map[int32]float64)
	for range head.Followups {
		f := p.expect(bus.BuyOfferFollowup)
		goods[f.Product] += f.Quantity
	}
	return head, goods
}

// addressedTo 信箱中还未处理的、发给p的消息
func addressedTo(p *pop.Pop) []bus.ActorMessage {
	p.Mailbox().MsgCatchup()
	return lo.Filter(p.Mailbox().Backlog(), func(m bus.ActorMessage, _ int) bool {
		return m.AddressedTo(p.Actor())
	})
}

func firstUnsatisfied(t *testing.T, p *pop.Pop) ecosim.DesireCoord {
	t.Helper()
	coord, ok := p.Property().GetFirstUnsatisfiedDesire()
	require.True(t, ok)
	return coord
}
