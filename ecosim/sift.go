package ecosim

import "math"

// siftStats 一次筛选过程中累计的统计量
type siftStats struct {
	value       TieredValue
	hard        int
	quantity    float64
	partial     float64
	highest     int
	unfilled    int
	hasUnfilled bool
	lastVisited int
	visited     bool
}

func (s *siftStats) record(tier int, covered, amount float64) {
	s.visited = true
	s.lastVisited = tier
	if covered > Epsilon {
		s.value = s.value.Add(TieredValue{Tier: tier, Value: covered / amount})
		s.quantity += covered
		s.highest = tier
	}
	if covered >= amount-Epsilon {
		s.hard++
		return
	}
	if covered > Epsilon {
		s.partial += covered / amount
	}
	if !s.hasUnfilled {
		s.unfilled, s.hasUnfilled = tier, true
	}
}

// minTier 所有需求的最低起始层级
func (p *Property) minTier() int {
	if len(p.Desires) == 0 {
		return 0
	}
	tier := p.Desires[0].StartTier
	for i := range p.Desires {
		tier = min(tier, p.Desires[i].StartTier)
	}
	return tier
}

// lastCoord 需求阶梯的最大坐标，无界阶梯以MaxTier截断
func (p *Property) lastCoord() (DesireCoord, bool) {
	if len(p.Desires) == 0 {
		return DesireCoord{}, false
	}
	tier := p.minTier()
	for i := range p.Desires {
		if last, ok := p.Desires[i].LastTier(); ok {
			tier = max(tier, last)
		} else {
			tier = max(tier, p.maxTier())
		}
	}
	return DesireCoord{Tier: tier, Idx: len(p.Desires) - 1}, true
}

// resetPass 筛选前的复位：预留归还、满足量清零、流程计划清空
func (p *Property) resetPass() {
	for _, info := range p.Property {
		info.ResetReserves()
	}
	for _, w := range p.WantStore {
		w.ResetReserves()
	}
	for i := range p.Desires {
		p.Desires[i].Satisfaction = 0
	}
	clear(p.ProcessPlan)
	if p.ProcessPlan == nil {
		p.ProcessPlan = make(map[int32]float64)
	}
}

// SiftAll 对整个需求阶梯筛选
// 返回：总满足价值
func (p *Property) SiftAll(catalog ICatalog) TieredValue {
	end, ok := p.lastCoord()
	if !ok {
		p.resetPass()
		p.applyStats(siftStats{})
		p.IsSifted = true
		return p.Satisfaction
	}
	v := p.SiftUpTo(end, catalog)
	p.IsSifted = true
	return v
}

// SiftUpTo 从最低层级筛选到指定坐标（含）
// 功能：按层级优先、下标次之的顺序访问每次需求出现，把商品预留给它
// 参数：coord-终止坐标，catalog-目录
// 返回：总满足价值
// 算法说明：
// 1. 复位所有预留与满足量
// 2. 逐层级、逐需求处理出现：商品需求1:1认领；类别需求按目录顺序认领类别成员；
//    欲望需求依次使用欲望库存、拥有来源、使用流程、消耗流程
// 3. 某需求一次出现未被完全满足后，其后续出现不再访问
// 4. 所有需求都越过终点或无法继续满足时提前结束
// 说明：每次筛选都从复位开始，因此在账本不变时结果完全相同
func (p *Property) SiftUpTo(coord DesireCoord, catalog ICatalog) TieredValue {
	p.resetPass()
	stats := siftStats{}
	exhausted := make([]bool, len(p.Desires))
	last, ok := p.lastCoord()
	if !ok {
		p.applyStats(stats)
		p.IsSifted = false
		return p.Satisfaction
	}
	for tier := p.minTier(); tier <= coord.Tier && tier <= last.Tier; tier++ {
		if p.allDone(tier, exhausted) {
			break
		}
		for idx := range p.Desires {
			if tier == coord.Tier && idx > coord.Idx {
				break
			}
			d := &p.Desires[idx]
			if exhausted[idx] || !d.OnTier(tier) {
				continue
			}
			covered := p.satisfy(d, catalog)
			d.Satisfaction += covered
			stats.record(tier, covered, d.Amount)
			if covered < d.Amount-Epsilon {
				exhausted[idx] = true
			}
		}
	}
	p.applyStats(stats)
	p.IsSifted = false
	return p.Satisfaction
}

func (p *Property) allDone(tier int, exhausted []bool) bool {
	for i := range p.Desires {
		if exhausted[i] {
			continue
		}
		if _, ok := p.Desires[i].NextTier(tier - 1); ok {
			return false
		}
	}
	return true
}

func (p *Property) applyStats(s siftStats) {
	p.Satisfaction = s.value
	p.HardSatisfaction = s.hard
	p.QuantitySatisfied = s.quantity
	p.PartialSatisfaction = s.partial
	p.HighestTier = s.highest
	p.FullTierSatisfaction = nil
	switch {
	case !s.visited:
	case !s.hasUnfilled:
		t := s.lastVisited
		p.FullTierSatisfaction = &t
	case s.unfilled > p.minTier():
		t := s.unfilled - 1
		p.FullTierSatisfaction = &t
	}
}

// satisfy 满足一次需求出现，返回满足的数量
func (p *Property) satisfy(d *Desire, catalog ICatalog) float64 {
	switch d.Item.Kind {
	case ItemProduct:
		return p.claimGood(d.Item.ID, ProductReserve, d.Amount)
	case ItemClass:
		got := 0.0
		for _, id := range catalog.ClassMembers(d.Item.ID) {
			if got >= d.Amount-Epsilon {
				break
			}
			got += p.claimGood(id, ClassReserve, d.Amount-got)
		}
		return got
	case ItemWant:
		return p.satisfyWant(d.Item.ID, d.Amount, catalog)
	}
	return 0
}

func (p *Property) claimGood(good int32, kind ReserveKind, amount float64) float64 {
	info := p.Property[good]
	if info == nil {
		return 0
	}
	return info.claim(kind, amount)
}

// satisfyWant 满足欲望需求
// 算法说明：
// 1. 欲望库存中的未预留部分
// 2. 拥有即可满足的商品，不可分割商品按整数单位认领
// 3. 使用流程与消耗流程，认领投入并记录计划执行次数
func (p *Property) satisfyWant(want int32, need float64, catalog ICatalog) float64 {
	got := 0.0
	if ws := p.WantStore[want]; ws != nil {
		got += ws.Reserve(need)
	}
	w, ok := catalog.Want(want)
	if !ok {
		return got
	}
	for _, pid := range w.OwnershipSources {
		if got >= need-Epsilon {
			return got
		}
		info := p.Property[pid]
		product, ok := catalog.Product(pid)
		if info == nil || !ok || product.Wants[want] <= 0 {
			continue
		}
		perUnit := product.Wants[want]
		units := (need - got) / perUnit
		if !product.Fractional {
			units = math.Min(math.Ceil(units-Epsilon), math.Floor(info.claimable(WantReserve)+Epsilon))
		}
		units = info.claim(WantReserve, units)
		got += math.Min(units*perUnit, need-got)
	}
	for _, sources := range [][]int32{w.UseSources, w.ConsumptionSources} {
		for _, pid := range sources {
			if got >= need-Epsilon {
				return got
			}
			got += p.planProcess(pid, want, need-got, catalog)
		}
	}
	return got
}

// planProcess 规划执行流程以产出欲望，返回产出（计入满足）的数量
func (p *Property) planProcess(pid, want int32, need float64, catalog ICatalog) float64 {
	proc, ok := catalog.Process(pid)
	if !ok || proc.HasWantInputs() {
		return 0
	}
	perRun := proc.OutputOf(WantItem(want))
	if perRun <= 0 {
		return 0
	}
	runs := need / perRun
	whole := false
	inputs := proc.ProductInputs()
	for _, part := range inputs {
		if part.Amount <= 0 {
			continue
		}
		info := p.Property[part.Item.ID]
		if info == nil {
			return 0
		}
		runs = math.Min(runs, info.claimable(WantReserve)/part.Amount)
		if !IsFractional(catalog, part.Item.ID) {
			whole = true
		}
	}
	if whole {
		maxRuns := math.Inf(1)
		for _, part := range inputs {
			if part.Amount > 0 {
				maxRuns = math.Min(maxRuns, math.Floor(p.Property[part.Item.ID].claimable(WantReserve)/part.Amount+Epsilon))
			}
		}
		runs = math.Min(math.Ceil(need/perRun-Epsilon), maxRuns)
	}
	if runs <= Epsilon {
		return 0
	}
	for _, part := range inputs {
		p.Property[part.Item.ID].claim(WantReserve, runs*part.Amount)
	}
	p.ProcessPlan[pid] += runs
	return math.Min(runs*perRun, need)
}
