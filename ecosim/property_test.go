package ecosim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/randengine"
)

func TestSiftProductLadder(t *testing.T) {
	cat := newCatalog()
	p := ecosim.NewProperty([]ecosim.Desire{ladder(ecosim.ProductItem(rice), 0, 4, 1, 2)})
	p.UnsafeAddProperty(rice, 7)
	v := p.SiftAll(cat)

	assert.True(t, p.IsSifted)
	assert.Equal(t, 7.0, p.Desires[0].Satisfaction)
	assert.Equal(t, 3, p.HardSatisfaction)
	require.NotNil(t, p.FullTierSatisfaction)
	assert.Equal(t, 2, *p.FullTierSatisfaction)
	assert.Equal(t, 3, p.HighestTier)
	assert.Equal(t, 7.0, p.QuantitySatisfied)
	assert.InDelta(t, 0.5, p.PartialSatisfaction, 1e-12)
	assert.Equal(t, 0, v.Tier)
	assert.InDelta(t, 1+0.9+0.81+0.5*0.729, v.Value, 1e-9)

	info := p.Info(rice)
	assert.Equal(t, 7.0, info.ProductReserve)
	assert.Equal(t, 0.0, info.Unreserved)
	assertPools(t, info)
}

func TestSiftClassInCatalogOrder(t *testing.T) {
	cat := newCatalog()
	p := ecosim.NewProperty([]ecosim.Desire{singleton(ecosim.ClassItem(classFood), 0, 3)})
	p.UnsafeAddProperty(rice, 5)
	p.UnsafeAddProperty(bread, 1)
	p.SiftAll(cat)

	assert.Equal(t, 1.0, p.Info(bread).ClassReserve)
	assert.Equal(t, 2.0, p.Info(rice).ClassReserve)
	assert.Equal(t, 3.0, p.Info(rice).Unreserved)
	assert.Equal(t, 1, p.HardSatisfaction)
}

func TestSiftSharesOverlappingUnit(t *testing.T) {
	cat := newCatalog()
	p := ecosim.NewProperty([]ecosim.Desire{
		singleton(ecosim.WantItem(wantNutrition), 0, 1),
		singleton(ecosim.ProductItem(bread), 0, 1),
	})
	p.UnsafeAddProperty(bread, 1)
	p.SiftAll(cat)

	info := p.Info(bread)
	assert.Equal(t, 2, p.HardSatisfaction)
	assert.Equal(t, 1.0, info.TotalProperty)
	assert.Equal(t, 1.0, info.ProductReserve)
	assert.Equal(t, 0.0, info.WantReserve)
	assert.Equal(t, 0.0, info.Unreserved)
	assertPools(t, info)
}

func TestSiftPlansConsumption(t *testing.T) {
	cat := newCatalog()
	p := ecosim.NewProperty([]ecosim.Desire{singleton(ecosim.WantItem(wantWarmth), 0, 4)})
	p.UnsafeAddProperty(firewood, 3)
	p.SiftAll(cat)

	assert.Equal(t, 2.0, p.ProcessPlan[procBurn])
	assert.Equal(t, 2.0, p.Info(firewood).WantReserve)
	assert.Equal(t, 1, p.HardSatisfaction)

	splash := p.ConsumeGoods(cat)
	assert.Equal(t, map[int32]float64{wantWarmth: 4}, splash)
	fw := p.Info(firewood)
	assert.Equal(t, 1.0, fw.TotalProperty)
	assert.Equal(t, 2.0, fw.Consumed)
	assert.Equal(t, 4.0, p.WantStore[wantWarmth].Expended)
	// 剩余1单位柴只够一半
	assert.Equal(t, 1.0, p.ProcessPlan[procBurn])
	assert.Equal(t, 0, p.HardSatisfaction)
}

func TestSiftUsesWantStoreFirst(t *testing.T) {
	cat := newCatalog()
	p := ecosim.NewProperty([]ecosim.Desire{singleton(ecosim.WantItem(wantWarmth), 0, 4)})
	p.UnsafeAddProperty(firewood, 3)
	p.EnsureWant(wantWarmth).Add(3)
	p.SiftAll(cat)
	assert.Equal(t, 3.0, p.WantStore[wantWarmth].Reserved)
	assert.Equal(t, 0.5, p.ProcessPlan[procBurn])
}

func TestSiftIdempotent(t *testing.T) {
	cat := newCatalog()
	p := ecosim.NewProperty([]ecosim.Desire{
		singleton(ecosim.WantItem(wantNutrition), 0, 2),
		ladder(ecosim.ClassItem(classFood), 1, 5, 2, 1),
		{Item: ecosim.ProductItem(rice), StartTier: 2, Step: 1, Amount: 0.5},
		singleton(ecosim.WantItem(wantWarmth), 3, 2),
	})
	p.UnsafeAddProperty(bread, 4)
	p.UnsafeAddProperty(rice, 6)
	p.UnsafeAddProperty(firewood, 2)
	first := p.SiftAll(cat)
	snapshot := p.Clone()
	second := p.SiftAll(cat)
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot.Property, p.Property)
	assert.Equal(t, snapshot.Desires, p.Desires)
	assert.Equal(t, snapshot.ProcessPlan, p.ProcessPlan)
	for _, info := range p.Property {
		assertPools(t, info)
	}
}

func TestSiftUpToStopsAtCoord(t *testing.T) {
	cat := newCatalog()
	p := ecosim.NewProperty([]ecosim.Desire{
		ladder(ecosim.ProductItem(rice), 0, 4, 1, 2),
		singleton(ecosim.ProductItem(bread), 1, 1),
	})
	p.UnsafeAddProperty(rice, 10)
	p.UnsafeAddProperty(bread, 1)

	p.SiftUpTo(ecosim.DesireCoord{Tier: 1, Idx: 0}, cat)
	assert.False(t, p.IsSifted)
	assert.Equal(t, 4.0, p.Desires[0].Satisfaction)
	assert.Equal(t, 0.0, p.Desires[1].Satisfaction)
	assert.Equal(t, 4.0, p.Info(rice).ProductReserve)
	assert.Equal(t, 1.0, p.Info(bread).Unreserved)

	p.SiftAll(cat)
	assert.True(t, p.IsSifted)
	assert.Equal(t, 10.0, p.Desires[0].Satisfaction)
	assert.Equal(t, 1.0, p.Info(bread).ProductReserve)
	assertPools(t, p.Info(rice))
	assertPools(t, p.Info(bread))
}

func TestInfiniteLadderStopsAtCap(t *testing.T) {
	cat := newCatalog()
	p := ecosim.NewProperty([]ecosim.Desire{{Item: ecosim.ProductItem(rice), Step: 1, Amount: 1}})
	p.MaxTier = 20
	p.UnsafeAddProperty(rice, 1000)
	p.SiftAll(cat)
	assert.Equal(t, 21.0, p.Desires[0].Satisfaction)
	_, ok := p.GetFirstUnsatisfiedDesire()
	assert.False(t, ok)
}

func TestWalkers(t *testing.T) {
	p := ecosim.NewProperty([]ecosim.Desire{
		ladder(ecosim.ProductItem(bread), 0, 4, 2, 1), // 0, 2, 4
		singleton(ecosim.ProductItem(rice), 1, 1),
	})
	c := func(tier, idx int) ecosim.DesireCoord { return ecosim.DesireCoord{Tier: tier, Idx: idx} }

	next, ok := p.WalkUpTiers(c(0, 0))
	assert.True(t, ok)
	assert.Equal(t, c(1, 1), next)
	next, _ = p.WalkUpTiers(c(1, 1))
	assert.Equal(t, c(2, 0), next)
	// 越界下标转到下一层级
	next, ok = p.WalkUpTiers(c(0, 99))
	assert.True(t, ok)
	assert.Equal(t, c(1, 1), next)
	_, ok = p.WalkUpTiers(c(4, 0))
	assert.False(t, ok)

	prev, ok := p.WalkDownTiers(c(2, 0))
	assert.True(t, ok)
	assert.Equal(t, c(1, 1), prev)
	_, ok = p.WalkDownTiers(c(0, 0))
	assert.False(t, ok)
	prev, ok = p.WalkDownTiers(c(3, -5))
	assert.True(t, ok)
	assert.Equal(t, c(2, 0), prev)

	next, ok = p.WalkUpTiersForItem(c(0, 0), ecosim.ProductItem(bread))
	assert.True(t, ok)
	assert.Equal(t, c(2, 0), next)
	prev, ok = p.WalkDownTiersForItem(c(4, 0), ecosim.ProductItem(rice))
	assert.True(t, ok)
	assert.Equal(t, c(1, 1), prev)
}

func TestFirstUnsatisfied(t *testing.T) {
	cat := newCatalog()
	p := ecosim.NewProperty([]ecosim.Desire{
		ladder(ecosim.ProductItem(bread), 0, 4, 2, 1),
		singleton(ecosim.ProductItem(rice), 1, 1),
	})
	p.SiftAll(cat)
	first, ok := p.GetFirstUnsatisfiedDesire()
	assert.True(t, ok)
	assert.Equal(t, ecosim.DesireCoord{Tier: 0, Idx: 0}, first)

	p.AddProperty(bread, 1, cat)
	first, _ = p.GetFirstUnsatisfiedDesire()
	assert.Equal(t, ecosim.DesireCoord{Tier: 1, Idx: 1}, first)
	tier, ok := p.GetLowestUnsatisfiedTierOfItem(ecosim.ProductItem(bread))
	assert.True(t, ok)
	assert.Equal(t, 2, tier)
	tier, _ = p.GetLowestUnsatisfiedTier()
	assert.Equal(t, 1, tier)
}

func TestAddRemoveRealizedDelta(t *testing.T) {
	cat := newCatalog()
	p := ecosim.NewProperty([]ecosim.Desire{singleton(ecosim.ProductItem(rice), 0, 1)})
	gained := p.AddProperty(rice, 1, cat)
	assert.Equal(t, ecosim.TieredValue{Tier: 0, Value: 1}, gained)
	assert.True(t, p.IsSifted)

	lost := p.RemoveProperty(rice, 1, cat)
	assert.Equal(t, -1.0, lost.Value)
	assert.Equal(t, 0.0, p.Total(rice))
}

func TestPredictDoesNotMutate(t *testing.T) {
	cat := newCatalog()
	p := ecosim.NewProperty([]ecosim.Desire{
		ladder(ecosim.ProductItem(rice), 0, 3, 1, 1),
		singleton(ecosim.ClassItem(classFood), 1, 2),
	})
	p.UnsafeAddProperty(rice, 2)
	p.SiftAll(cat)
	before := p.Clone()

	gain := p.PredictValueGained(rice, 2, cat)
	assert.Equal(t, 1, gain.Sign())
	loss := p.PredictValueLost(rice, 1, cat)
	assert.Equal(t, 1, loss.Sign())
	change := p.PredictValueChanged(map[int32]float64{rice: -1, bread: 1}, cat)
	assert.Equal(t, -1, change.Sign())

	assert.Equal(t, before, p)
}

func TestSpendableAfter(t *testing.T) {
	cat := newCatalog()
	p := ecosim.NewProperty([]ecosim.Desire{
		singleton(ecosim.ProductItem(bread), 0, 1),
		singleton(ecosim.ProductItem(rice), 1, 2),
	})
	p.UnsafeAddProperty(bread, 3)
	p.UnsafeAddProperty(rice, 1)
	p.SiftAll(cat)
	spendable := p.SpendableAfter(ecosim.DesireCoord{Tier: 1, Idx: 1}, cat)
	assert.Equal(t, map[int32]float64{bread: 2, rice: 1}, spendable)
	// 第一个出现之前没有需求
	spendable = p.SpendableAfter(ecosim.DesireCoord{Tier: 0, Idx: 0}, cat)
	assert.Equal(t, map[int32]float64{bread: 3, rice: 1}, spendable)
	assert.Equal(t, 2.0, p.Info(bread).Unreserved)
}

func TestReleaseDesireAtCheapestFirst(t *testing.T) {
	cat := newCatalog()
	market := newMarket()
	p := ecosim.NewProperty([]ecosim.Desire{singleton(ecosim.ClassItem(classFood), 0, 3)})
	p.UnsafeAddProperty(bread, 1)
	p.UnsafeAddProperty(rice, 5)
	p.SiftAll(cat)

	released, ok := p.ReleaseDesireAt(ecosim.DesireCoord{Tier: 0, Idx: 0}, market, cat)
	assert.True(t, ok)
	assert.Equal(t, map[int32]float64{rice: 2, bread: 1}, released)
	assert.Equal(t, 0.0, p.Desires[0].Satisfaction)
	assert.Equal(t, 5.0, p.Info(rice).Unreserved)
	assert.Equal(t, 1.0, p.Info(bread).Unreserved)
	assert.False(t, p.IsSifted)
	assertPools(t, p.Info(rice))

	_, ok = p.ReleaseDesireAt(ecosim.DesireCoord{Tier: 0, Idx: 7}, market, cat)
	assert.False(t, ok)
}

func TestDecayGoods(t *testing.T) {
	cat := newCatalog()
	p := ecosim.NewProperty(nil)
	p.UnsafeAddProperty(coat, 8)
	p.UnsafeAddProperty(bread, 5)
	p.EnsureWant(wantWarmth).Add(4)
	p.EnsureWant(wantNutrition).Add(2)

	lost := p.DecayGoods(cat, randengine.New(1))
	assert.Equal(t, map[int32]float64{coat: 2}, lost)
	assert.Equal(t, 6.0, p.Total(coat))
	assert.Equal(t, 2.0, p.Info(coat).Lost)
	assert.Equal(t, 2.0, p.Total(ash))
	assert.Equal(t, 2.0, p.Info(ash).Received)
	assert.Equal(t, 5.0, p.Total(bread))
	assert.Equal(t, 2.0, p.WantStore[wantWarmth].Total)
	assert.Equal(t, 2.0, p.WantStore[wantWarmth].Lost)
	assert.Equal(t, 2.0, p.WantStore[wantNutrition].Total)
}

func TestDecayNonFractionalIsWhole(t *testing.T) {
	cat := newCatalog()
	for seed := uint64(0); seed < 20; seed++ {
		p := ecosim.NewProperty(nil)
		p.UnsafeAddProperty(coat, 3) // 3*0.25 = 0.75
		lost := p.DecayGoods(cat, randengine.New(seed))
		l := lost[coat]
		assert.True(t, l == 0 || l == 1, "lost %v", l)
	}
}

func TestSetDesiresTargets(t *testing.T) {
	cat := newCatalog()
	p := ecosim.NewProperty(nil)
	p.SetDesires([]ecosim.Desire{
		ladder(ecosim.ProductItem(rice), 0, 2, 1, 2),
		{Item: ecosim.ProductItem(bread), Step: 1, Amount: 1},
	}, cat)
	assert.Equal(t, 2.0, p.Info(rice).LowerTarget)
	assert.Equal(t, 6.0, p.Info(rice).UpperTarget)
	assert.Equal(t, 1.0, p.Info(bread).LowerTarget)
	assert.Equal(t, 2.0, p.Info(bread).UpperTarget)
	assert.True(t, p.IsSifted)
}

func TestResetDailyCounters(t *testing.T) {
	p := ecosim.NewProperty(nil)
	info := p.Ensure(rice)
	info.Spent, info.Received, info.Consumed, info.AmvCost = 1, 2, 3, 4
	p.ResetDailyCounters()
	assert.Equal(t, 0.0, info.Spent+info.Received+info.Consumed)
	assert.Equal(t, 4.0, info.AmvCost)
}
