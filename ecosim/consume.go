package ecosim

import "math"

// ConsumeGoods 执行当天的流程计划
// 功能：按筛选得到的ProcessPlan执行使用/消耗流程，并扣除用于满足需求的欲望库存
// 参数：catalog-目录
// 返回：带Splash标签流程外溢的欲望（欲望ID -> 数量），由调用方广播给其他居民
// 算法说明：
// 1. 欲望库存中被预留的部分视为已用于满足需求，计入Expended
// 2. 每个流程的执行次数受投入实际持有量限制
// 3. 投入商品被移除：消耗流程计入Consumed，其他流程计入Used；资本只计入Used
// 4. 商品产出加入账本并计入Received；欲望产出当场用于满足需求
// 5. 清空计划并重新筛选，得到下一天的计划
func (p *Property) ConsumeGoods(catalog ICatalog) map[int32]float64 {
	if !p.IsSifted {
		p.SiftAll(catalog)
	}
	splash := make(map[int32]float64)
	for _, wid := range sortedKeys(p.WantStore) {
		if ws := p.WantStore[wid]; ws.Reserved > Epsilon {
			ws.Expend(ws.Reserved)
		}
	}
	for _, pid := range sortedKeys(p.ProcessPlan) {
		proc, ok := catalog.Process(pid)
		if !ok {
			continue
		}
		runs := p.ProcessPlan[pid]
		for _, part := range proc.ProductInputs() {
			if part.Amount <= 0 {
				continue
			}
			runs = math.Min(runs, p.Total(part.Item.ID)/part.Amount)
		}
		if runs <= Epsilon {
			continue
		}
		for _, part := range proc.Parts {
			amount := runs * part.Amount
			switch {
			case part.Item.Kind == ItemProduct && part.Role == PartInput:
				info := p.Ensure(part.Item.ID)
				info.Remove(amount)
				if proc.Has(TagConsumption) {
					info.Consumed += amount
				} else {
					info.Used += amount
				}
			case part.Item.Kind == ItemProduct && part.Role == PartCapital:
				p.Ensure(part.Item.ID).Used += amount
			case part.Item.Kind == ItemProduct && part.Role == PartOutput:
				info := p.Ensure(part.Item.ID)
				info.Add(amount)
				info.Received += amount
			case part.Item.Kind == ItemWant && part.Role == PartOutput:
				w := p.EnsureWant(part.Item.ID)
				w.Gained += amount
				w.Expended += amount
				if proc.Has(TagSplash) {
					splash[part.Item.ID] += amount
				}
			}
		}
	}
	clear(p.ProcessPlan)
	p.IsSifted = false
	p.SiftAll(catalog)
	return splash
}
