package ecosim

import (
	"maps"

	"github.com/samber/lo"
)

// Property 居民的账本与需求阶梯
// 功能：持有全部商品账本、欲望库存和需求阶梯，通过筛选（sift）把商品分配给需求
// 说明：每个Property只由其所属居民的协程修改；预测类方法在副本上计算，可被并发读取
type Property struct {
	Desires     []Desire
	Property    map[int32]*PropertyInfo
	WantStore   map[int32]*WantInfo
	ProcessPlan map[int32]float64 // 流程ID -> 计划执行次数

	HighestTier          int         // 获得满足的最高层级
	FullTierSatisfaction *int        // 该层级及以下的全部需求都已满足
	HardSatisfaction     int         // 完全满足的需求出现次数
	QuantitySatisfied    float64     // 满足的总数量
	PartialSatisfaction  float64     // 部分满足的出现的满足比例之和
	Satisfaction         TieredValue // 总满足价值
	IsSifted             bool

	MaxTier int // 无界阶梯的筛选层级上限，0表示DefaultMaxSiftTier
}

// NewProperty 创建账本
func NewProperty(desires []Desire) *Property {
	p := &Property{
		Property:    make(map[int32]*PropertyInfo),
		WantStore:   make(map[int32]*WantInfo),
		ProcessPlan: make(map[int32]float64),
	}
	p.Desires = lo.Map(desires, func(d Desire, _ int) Desire { return d.Clone() })
	return p
}

// Clone 深拷贝
func (p *Property) Clone() *Property {
	c := *p
	c.Desires = lo.Map(p.Desires, func(d Desire, _ int) Desire { return d.Clone() })
	c.Property = make(map[int32]*PropertyInfo, len(p.Property))
	for id, info := range p.Property {
		cp := *info
		c.Property[id] = &cp
	}
	c.WantStore = make(map[int32]*WantInfo, len(p.WantStore))
	for id, w := range p.WantStore {
		cp := *w
		c.WantStore[id] = &cp
	}
	c.ProcessPlan = maps.Clone(p.ProcessPlan)
	if p.FullTierSatisfaction != nil {
		t := *p.FullTierSatisfaction
		c.FullTierSatisfaction = &t
	}
	return &c
}

func (p *Property) maxTier() int {
	if p.MaxTier > 0 {
		return p.MaxTier
	}
	return DefaultMaxSiftTier
}

// Info 商品账本，不存在时返回nil
func (p *Property) Info(good int32) *PropertyInfo {
	return p.Property[good]
}

// Ensure 商品账本，不存在时创建
func (p *Property) Ensure(good int32) *PropertyInfo {
	info, ok := p.Property[good]
	if !ok {
		info = &PropertyInfo{}
		p.Property[good] = info
	}
	return info
}

// EnsureWant 欲望库存，不存在时创建
func (p *Property) EnsureWant(want int32) *WantInfo {
	w, ok := p.WantStore[want]
	if !ok {
		w = &WantInfo{}
		p.WantStore[want] = w
	}
	return w
}

// Total 商品持有量
func (p *Property) Total(good int32) float64 {
	if info := p.Property[good]; info != nil {
		return info.TotalProperty
	}
	return 0
}

// Unreserved 商品未预留量
func (p *Property) Unreserved(good int32) float64 {
	if info := p.Property[good]; info != nil {
		return info.Unreserved
	}
	return 0
}

// Goods 有账本的商品ID，升序
func (p *Property) Goods() []int32 {
	return sortedKeys(p.Property)
}

// Holdings 持有量大于0的商品及数量
func (p *Property) Holdings() map[int32]float64 {
	out := make(map[int32]float64)
	for id, info := range p.Property {
		if info.TotalProperty > Epsilon {
			out[id] = info.TotalProperty
		}
	}
	return out
}

// UnsafeAddProperty 只增加持有量，不重新筛选
// 说明：用于批量初始化，调用方负责随后调用SiftAll
func (p *Property) UnsafeAddProperty(good int32, amount float64) {
	p.Ensure(good).Add(amount)
	p.IsSifted = false
}

// AddProperty 增加商品并重新筛选
// 返回：实际实现的满足价值变化
func (p *Property) AddProperty(good int32, amount float64, catalog ICatalog) TieredValue {
	before := p.sifted(catalog)
	p.Ensure(good).Add(amount)
	p.IsSifted = false
	return p.SiftAll(catalog).Sub(before)
}

// RemoveProperty 移除商品并重新筛选
// 返回：实际实现的满足价值变化（通常为负）
func (p *Property) RemoveProperty(good int32, amount float64, catalog ICatalog) TieredValue {
	before := p.sifted(catalog)
	p.Ensure(good).Remove(amount)
	p.IsSifted = false
	return p.SiftAll(catalog).Sub(before)
}

// AddWant 增加欲望库存并重新筛选
func (p *Property) AddWant(want int32, amount float64, catalog ICatalog) TieredValue {
	before := p.sifted(catalog)
	w := p.EnsureWant(want)
	w.Add(amount)
	if amount > 0 {
		w.Gained += amount
	}
	p.IsSifted = false
	return p.SiftAll(catalog).Sub(before)
}

func (p *Property) sifted(catalog ICatalog) TieredValue {
	if !p.IsSifted {
		p.SiftAll(catalog)
	}
	return p.Satisfaction
}

// SetDesires 替换需求阶梯（人口构成变化时调用）
// 功能：替换需求并按新需求重算各商品的默认库存目标，然后重新筛选
// 算法说明：
// 1. 所有商品目标清零
// 2. 对每个具体商品需求：下界累加首次出现的需求量；上界累加总需求量，无界阶梯取两倍单次需求量
func (p *Property) SetDesires(desires []Desire, catalog ICatalog) {
	p.Desires = lo.Map(desires, func(d Desire, _ int) Desire { return d.Clone() })
	for _, info := range p.Property {
		info.LowerTarget, info.UpperTarget = 0, 0
	}
	for i := range p.Desires {
		d := &p.Desires[i]
		if d.Item.Kind != ItemProduct {
			continue
		}
		info := p.Ensure(d.Item.ID)
		info.LowerTarget += d.Amount
		if total, ok := d.TotalDesire(); ok {
			info.UpperTarget += total
		} else {
			info.UpperTarget += 2 * d.Amount
		}
	}
	p.IsSifted = false
	p.SiftAll(catalog)
}

// ResetDailyCounters 清空当日流水计数（成本基数保留）
func (p *Property) ResetDailyCounters() {
	for _, info := range p.Property {
		info.Spent, info.Received, info.Consumed, info.Lost, info.Used = 0, 0, 0, 0, 0
	}
	for _, w := range p.WantStore {
		w.Gained, w.Lost, w.Expended = 0, 0, 0
	}
}
