package ecosim

import (
	"cmp"
	"math"
	"slices"
)

// ReleaseDesireAt 放弃一次已满足的需求出现，归还为其预留的商品
// 功能：把为coord处需求预留的商品移回未预留部分，使其可被交易
// 参数：coord-需求坐标，market-市场快照（用于选择单价最低的商品），catalog-目录
// 返回：各商品被释放到未预留部分的数量；该出现没有任何满足时返回false
// 算法说明：
// 1. 确定可被释放的候选商品：商品需求为该商品，类别需求为类别成员，欲望需求为欲望库存和拥有来源
// 2. 候选商品按市场单价升序，单价相同按目录顺序
// 3. 依次撤销认领，直到释放完该出现的满足量
// 说明：释放后账本处于未筛选状态，下一次筛选会重新分配
func (p *Property) ReleaseDesireAt(coord DesireCoord, market IMarket, catalog ICatalog) (map[int32]float64, bool) {
	if coord.Idx < 0 || coord.Idx >= len(p.Desires) {
		return nil, false
	}
	if !p.IsSifted {
		p.SiftAll(catalog)
	}
	d := &p.Desires[coord.Idx]
	initial := d.SatisfactionAt(coord.Tier)
	remaining := initial
	if remaining <= Epsilon {
		return nil, false
	}
	released := make(map[int32]float64)
	var candidates []int32
	var kind ReserveKind
	perUnit := func(int32) float64 { return 1 }
	switch d.Item.Kind {
	case ItemProduct:
		candidates, kind = []int32{d.Item.ID}, ProductReserve
	case ItemClass:
		candidates, kind = slices.Clone(catalog.ClassMembers(d.Item.ID)), ClassReserve
	case ItemWant:
		kind = WantReserve
		if ws := p.WantStore[d.Item.ID]; ws != nil {
			remaining -= ws.Release(remaining)
		}
		if w, ok := catalog.Want(d.Item.ID); ok {
			candidates = slices.Clone(w.OwnershipSources)
		}
		perUnit = func(id int32) float64 {
			if product, ok := catalog.Product(id); ok && product.Wants[d.Item.ID] > 0 {
				return product.Wants[d.Item.ID]
			}
			return 0
		}
	}
	order := make(map[int32]int, len(candidates))
	for i, id := range candidates {
		order[id] = i
	}
	slices.SortStableFunc(candidates, func(a, b int32) int {
		if c := cmp.Compare(Price(market, a), Price(market, b)); c != 0 {
			return c
		}
		return cmp.Compare(order[a], order[b])
	})
	for _, id := range candidates {
		if remaining <= Epsilon {
			break
		}
		info := p.Property[id]
		rate := perUnit(id)
		if info == nil || rate <= 0 {
			continue
		}
		units := math.Min(remaining/rate, info.claims[kind])
		if units <= Epsilon {
			continue
		}
		if freed := info.unclaim(kind, units); freed > 0 {
			released[id] += freed
		}
		remaining -= units * rate
	}
	d.Satisfaction = math.Max(0, d.Satisfaction-(initial-math.Max(0, remaining)))
	p.IsSifted = false
	log.Debugf("released desire %v at %v: %v", d.Item, coord, released)
	return released, true
}
