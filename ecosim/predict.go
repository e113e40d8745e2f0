package ecosim

// PredictValueChanged 预测一组持有量变化带来的满足价值变化
// 功能：在副本上应用变化并重新筛选，不修改当前账本
// 参数：delta-商品ID到变化量（正为获得，负为失去），catalog-目录
// 返回：变化后与变化前总满足价值之差
func (p *Property) PredictValueChanged(delta map[int32]float64, catalog ICatalog) TieredValue {
	scratch := p.Clone()
	before := scratch.SiftAll(catalog)
	for _, id := range sortedKeys(delta) {
		scratch.Ensure(id).Add(delta[id])
	}
	scratch.IsSifted = false
	return scratch.SiftAll(catalog).Sub(before)
}

// PredictValueGained 预测获得商品带来的满足价值增加
func (p *Property) PredictValueGained(good int32, amount float64, catalog ICatalog) TieredValue {
	return p.PredictValueChanged(map[int32]float64{good: amount}, catalog)
}

// PredictValueLost 预测失去商品造成的满足价值损失（以正值表示）
func (p *Property) PredictValueLost(good int32, amount float64, catalog ICatalog) TieredValue {
	return p.PredictValueChanged(map[int32]float64{good: -amount}, catalog).Neg()
}

// SpendableAfter 满足coord之前所有需求后仍未预留的商品
// 功能：在副本上筛选到coord的前一个出现，返回剩余的未预留数量
// 说明：用于构造买方报价，coord之前的需求所需的商品不会被拿去支付
func (p *Property) SpendableAfter(coord DesireCoord, catalog ICatalog) map[int32]float64 {
	scratch := p.Clone()
	scratch.resetPass()
	if prev, ok := scratch.WalkDownTiers(coord); ok {
		scratch.SiftUpTo(prev, catalog)
	}
	out := make(map[int32]float64)
	for id, info := range scratch.Property {
		if info.Unreserved > Epsilon {
			out[id] = info.Unreserved
		}
	}
	return out
}
