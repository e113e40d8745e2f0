package ecosim

import (
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/randengine"
)

// DecayGoods 商品损坏与欲望衰减
// 功能：每天对有损坏率的商品按比例损坏，执行其损坏流程；对欲望库存按衰减率衰减
// 参数：catalog-目录，rng-随机数引擎（不可分割商品的随机取整）
// 返回：各商品损坏的数量
// 算法说明：
// 1. 可分割商品损坏量 = 持有量×损坏率
// 2. 不可分割商品损坏量 = 持有量×损坏率的随机取整（整数部分必然损坏，小数部分按概率）
// 3. 损坏量计入Lost；损坏流程的商品产出计入Received，欲望产出进入欲望库存
// 4. 欲望库存按Decay比例衰减，计入Lost
// 说明：损坏率或衰减率为0的商品/欲望不受影响；结束后重新筛选
func (p *Property) DecayGoods(catalog ICatalog, rng *randengine.Engine) map[int32]float64 {
	lost := make(map[int32]float64)
	for _, id := range p.Goods() {
		info := p.Property[id]
		product, ok := catalog.Product(id)
		if !ok || product.FailureChance <= 0 || info.TotalProperty <= Epsilon {
			continue
		}
		failed := info.TotalProperty * product.FailureChance
		if !product.Fractional {
			failed = rng.StochasticRound(failed)
		}
		failed = math.Min(failed, info.TotalProperty)
		if failed <= Epsilon {
			continue
		}
		info.Remove(failed)
		info.Lost += failed
		lost[id] = failed
		if product.FailureProcess == nil {
			continue
		}
		proc, ok := catalog.Process(*product.FailureProcess)
		if !ok {
			continue
		}
		perRun := 1.0
		for _, part := range proc.ProductInputs() {
			if part.Item.ID == id && part.Amount > 0 {
				perRun = part.Amount
			}
		}
		runs := failed / perRun
		for _, part := range proc.Parts {
			if part.Role != PartOutput {
				continue
			}
			amount := runs * part.Amount
			switch part.Item.Kind {
			case ItemProduct:
				out := p.Ensure(part.Item.ID)
				out.Add(amount)
				out.Received += amount
			case ItemWant:
				w := p.EnsureWant(part.Item.ID)
				w.Add(amount)
				w.Gained += amount
			}
		}
	}
	for _, wid := range sortedKeys(p.WantStore) {
		ws := p.WantStore[wid]
		want, ok := catalog.Want(wid)
		if !ok || want.Decay <= 0 || ws.Total <= Epsilon {
			continue
		}
		amount := ws.Total * want.Decay
		ws.Remove(amount)
		ws.Lost += amount
	}
	p.IsSifted = false
	p.SiftAll(catalog)
	return lost
}
