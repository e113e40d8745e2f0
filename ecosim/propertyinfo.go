package ecosim

import "math"

// ReserveKind 预留池类型
type ReserveKind uint8

const (
	WantReserve    ReserveKind = iota // 欲望预留
	ClassReserve                      // 类别预留
	ProductReserve                    // 具体商品预留
)

// ReserveOverlap 预留池的重叠关系与抽取顺序
// 说明：同一单位商品可以同时计入一个欲望预留和一个类别/商品预留；
// 欲望预留向类别、商品两个池借用时先类别后商品；类别与商品预留互不重叠
var ReserveOverlap = map[ReserveKind][]ReserveKind{
	WantReserve:    {ClassReserve, ProductReserve},
	ClassReserve:   {WantReserve},
	ProductReserve: {WantReserve},
}

// PropertyInfo 单个商品的账本
// 功能：记录持有量、四个互斥的预留池以及记账计数
// 说明：Unreserved+WantReserve+ClassReserve+ProductReserve == TotalProperty 始终成立
type PropertyInfo struct {
	TotalProperty  float64
	Unreserved     float64
	WantReserve    float64
	ClassReserve   float64
	ProductReserve float64

	Spent       float64 // 支付给他人的数量
	Received    float64 // 从他人或流程获得的数量
	Consumed    float64 // 被消耗流程消耗的数量
	Lost        float64 // 损坏的数量
	Used        float64 // 被使用流程占用的数量
	AmvCost     float64 // 获取时付出的市场价值
	TimeCost    float64 // 获取时付出的时间（尽力统计）
	UpperTarget float64 // 库存目标上界
	LowerTarget float64 // 库存目标下界

	// 本轮筛选各类预留的认领量，不同类别可能共享同一单位
	claims [3]float64
}

// NewPropertyInfo 以给定数量创建账本
func NewPropertyInfo(amount float64) *PropertyInfo {
	info := &PropertyInfo{}
	info.Add(amount)
	return info
}

func (p *PropertyInfo) pool(kind ReserveKind) *float64 {
	switch kind {
	case WantReserve:
		return &p.WantReserve
	case ClassReserve:
		return &p.ClassReserve
	default:
		return &p.ProductReserve
	}
}

// Reserve 指定预留池的当前数量
func (p *PropertyInfo) Reserve(kind ReserveKind) float64 {
	return *p.pool(kind)
}

// Add 增加持有量，负数等价于Remove
func (p *PropertyInfo) Add(amount float64) {
	if amount < 0 {
		p.Remove(-amount)
		return
	}
	p.TotalProperty += amount
	p.Unreserved += amount
}

// Remove 减少持有量，负数等价于Add
// 算法说明：
// 1. 先从未预留部分扣除
// 2. 不足时反复从当前最大的预留池扣除，直到扣完或所有池为0
// 说明：扣除量超过持有量时截断，持有量不会为负
func (p *PropertyInfo) Remove(amount float64) {
	if amount < 0 {
		p.Add(-amount)
		return
	}
	amount = math.Min(amount, p.TotalProperty)
	p.TotalProperty -= amount
	take := math.Min(amount, p.Unreserved)
	p.Unreserved -= take
	amount -= take
	for amount > Epsilon {
		largest := p.pool(p.largestPool())
		if *largest <= 0 {
			break
		}
		take = math.Min(amount, *largest)
		*largest -= take
		amount -= take
	}
	p.normalize()
}

func (p *PropertyInfo) largestPool() ReserveKind {
	kind := WantReserve
	for _, k := range []ReserveKind{ClassReserve, ProductReserve} {
		if p.Reserve(k) > p.Reserve(kind) {
			kind = k
		}
	}
	return kind
}

// ShiftToWantReserve 移入欲望预留，返回实际移入量
func (p *PropertyInfo) ShiftToWantReserve(amount float64) float64 {
	return p.shiftTo(WantReserve, amount)
}

// ShiftToClassReserve 移入类别预留，返回实际移入量
func (p *PropertyInfo) ShiftToClassReserve(amount float64) float64 {
	return p.shiftTo(ClassReserve, amount)
}

// ShiftToSpecificReserve 移入具体商品预留，返回实际移入量
func (p *PropertyInfo) ShiftToSpecificReserve(amount float64) float64 {
	return p.shiftTo(ProductReserve, amount)
}

// shiftTo 移入指定预留池
// 算法说明：
// 1. 按ReserveOverlap的顺序从重叠的池中转标签
// 2. 再从未预留部分补足
// 3. 仍不足时放弃超出部分，不报错
func (p *PropertyInfo) shiftTo(kind ReserveKind, amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	target := p.pool(kind)
	moved := 0.0
	for _, other := range ReserveOverlap[kind] {
		src := p.pool(other)
		take := math.Min(amount-moved, *src)
		*src -= take
		moved += take
	}
	take := math.Min(amount-moved, p.Unreserved)
	p.Unreserved -= take
	moved += take
	*target += moved
	p.normalize()
	return moved
}

// Expend 只从未预留部分扣除，超出部分忽略，返回实际扣除量
func (p *PropertyInfo) Expend(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	take := math.Min(amount, p.Unreserved)
	p.Unreserved -= take
	p.TotalProperty -= take
	p.normalize()
	return take
}

// ResetReserves 所有预留归还到未预留部分，同时清空本轮认领
func (p *PropertyInfo) ResetReserves() {
	p.Unreserved = p.TotalProperty
	p.WantReserve, p.ClassReserve, p.ProductReserve = 0, 0, 0
	p.claims = [3]float64{}
}

// Available 未预留部分加上最大的单个预留池
// 说明：用于快速估计可以腾出的数量，不是精确值
func (p *PropertyInfo) Available() float64 {
	return p.Unreserved + p.MaxSpecReserve()
}

// MaxSpecReserve 三个预留池中的最大值
func (p *PropertyInfo) MaxSpecReserve() float64 {
	return max(p.WantReserve, p.ClassReserve, p.ProductReserve)
}

// Reserved 全部预留量
func (p *PropertyInfo) Reserved() float64 {
	return p.WantReserve + p.ClassReserve + p.ProductReserve
}

// reservedByClaims 按认领量计算实际被占用的单位数
// 说明：欲望认领与类别+商品认领可以共享同一单位
func reservedByClaims(c [3]float64) float64 {
	return math.Max(c[WantReserve], c[ClassReserve]+c[ProductReserve])
}

// claimable 指定类别还能认领的数量
func (p *PropertyInfo) claimable(kind ReserveKind) float64 {
	var free float64
	if kind == WantReserve {
		free = p.TotalProperty - p.claims[WantReserve]
	} else {
		free = p.TotalProperty - p.claims[ClassReserve] - p.claims[ProductReserve]
	}
	return math.Max(0, free)
}

// claim 为指定类别认领数量并调整预留池
// 算法说明：
// 1. 认领后被占用的单位数增加的部分（fresh）来自未预留部分
// 2. 其余部分（shared）由重叠的预留池转标签得到
// 返回：实际认领量
func (p *PropertyInfo) claim(kind ReserveKind, amount float64) float64 {
	amount = math.Min(amount, p.claimable(kind))
	if amount <= Epsilon {
		return 0
	}
	before := reservedByClaims(p.claims)
	p.claims[kind] += amount
	fresh := reservedByClaims(p.claims) - before
	shared := amount - fresh
	target := p.pool(kind)
	for _, other := range ReserveOverlap[kind] {
		if shared <= Epsilon {
			break
		}
		src := p.pool(other)
		take := math.Min(shared, *src)
		*src -= take
		*target += take
		shared -= take
	}
	take := math.Min(fresh, p.Unreserved)
	p.Unreserved -= take
	*target += take
	p.normalize()
	return amount
}

// unclaim 撤销指定类别的认领，被释放的单位回到未预留部分
// 返回：回到未预留部分的数量
func (p *PropertyInfo) unclaim(kind ReserveKind, amount float64) float64 {
	amount = math.Min(amount, p.claims[kind])
	if amount <= 0 {
		return 0
	}
	before := reservedByClaims(p.claims)
	p.claims[kind] -= amount
	freed := before - reservedByClaims(p.claims)
	left := freed
	for _, k := range append([]ReserveKind{kind}, ReserveOverlap[kind]...) {
		src := p.pool(k)
		take := math.Min(left, *src)
		*src -= take
		left -= take
	}
	p.Unreserved += freed - left
	p.normalize()
	return freed - left
}

// normalize 消除浮点误差导致的微小负数，保证池之和等于持有量
func (p *PropertyInfo) normalize() {
	for _, f := range []*float64{&p.TotalProperty, &p.Unreserved, &p.WantReserve, &p.ClassReserve, &p.ProductReserve} {
		if *f < Epsilon {
			*f = 0
		}
	}
	p.Unreserved = math.Max(0, p.TotalProperty-p.Reserved())
}
