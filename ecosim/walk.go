package ecosim

// seekUp 从(tier, idx)开始（含）向后查找第一个满足条件的需求出现
// 说明：下标越界时转到下一层级的0号需求，不会panic
func (p *Property) seekUp(tier, idx int, match func(idx, tier int) bool) (DesireCoord, bool) {
	last, ok := p.lastCoord()
	if !ok {
		return DesireCoord{}, false
	}
	if idx < 0 {
		idx = 0
	}
	if bottom := p.minTier(); tier < bottom {
		tier, idx = bottom, 0
	}
	for tier <= last.Tier {
		if idx >= len(p.Desires) {
			tier, idx = tier+1, 0
			continue
		}
		if p.Desires[idx].OnTier(tier) && match(idx, tier) {
			return DesireCoord{Tier: tier, Idx: idx}, true
		}
		idx++
	}
	return DesireCoord{}, false
}

// seekDown 从(tier, idx)开始（含）向前查找第一个满足条件的需求出现
func (p *Property) seekDown(tier, idx int, match func(idx, tier int) bool) (DesireCoord, bool) {
	last, ok := p.lastCoord()
	if !ok {
		return DesireCoord{}, false
	}
	if idx >= len(p.Desires) {
		idx = len(p.Desires) - 1
	}
	if tier > last.Tier {
		tier, idx = last.Tier, len(p.Desires)-1
	}
	bottom := p.minTier()
	for tier >= bottom {
		if idx < 0 {
			tier, idx = tier-1, len(p.Desires)-1
			continue
		}
		if p.Desires[idx].OnTier(tier) && match(idx, tier) {
			return DesireCoord{Tier: tier, Idx: idx}, true
		}
		idx--
	}
	return DesireCoord{}, false
}

func anyOccurrence(int, int) bool { return true }

func (p *Property) unsatisfied(idx, tier int) bool {
	return !p.Desires[idx].SatisfiedAt(tier)
}

// GetFirstUnsatisfiedDesire 第一个未完全满足的需求出现
func (p *Property) GetFirstUnsatisfiedDesire() (DesireCoord, bool) {
	return p.seekUp(p.minTier(), 0, p.unsatisfied)
}

// GetLowestUnsatisfiedTier 最低的未完全满足层级
func (p *Property) GetLowestUnsatisfiedTier() (int, bool) {
	c, ok := p.GetFirstUnsatisfiedDesire()
	return c.Tier, ok
}

// GetLowestUnsatisfiedTierOfItem 指定物品最低的未完全满足层级
func (p *Property) GetLowestUnsatisfiedTierOfItem(item Item) (int, bool) {
	c, ok := p.seekUp(p.minTier(), 0, func(idx, tier int) bool {
		return p.Desires[idx].Item == item && p.unsatisfied(idx, tier)
	})
	return c.Tier, ok
}

// WalkUpTiers 下一次需求出现
func (p *Property) WalkUpTiers(coord DesireCoord) (DesireCoord, bool) {
	return p.seekUp(coord.Tier, coord.Idx+1, anyOccurrence)
}

// WalkDownTiers 上一次需求出现
func (p *Property) WalkDownTiers(coord DesireCoord) (DesireCoord, bool) {
	return p.seekDown(coord.Tier, coord.Idx-1, anyOccurrence)
}

// WalkUpTiersForItem 指定物品的下一次需求出现
func (p *Property) WalkUpTiersForItem(coord DesireCoord, item Item) (DesireCoord, bool) {
	return p.seekUp(coord.Tier, coord.Idx+1, func(idx, _ int) bool { return p.Desires[idx].Item == item })
}

// WalkDownTiersForItem 指定物品的上一次需求出现
func (p *Property) WalkDownTiersForItem(coord DesireCoord, item Item) (DesireCoord, bool) {
	return p.seekDown(coord.Tier, coord.Idx-1, func(idx, _ int) bool { return p.Desires[idx].Item == item })
}
