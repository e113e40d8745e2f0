package ecosim

import "math"

// WantInfo 欲望库存
// 说明：Unreserved+Reserved == Total 始终成立
type WantInfo struct {
	Total      float64
	Unreserved float64
	Reserved   float64

	Gained   float64 // 累计获得
	Lost     float64 // 累计衰减
	Expended float64 // 累计用于满足需求
}

// Add 增加库存，负数等价于Remove
func (w *WantInfo) Add(amount float64) {
	if amount < 0 {
		w.Remove(-amount)
		return
	}
	w.Total += amount
	w.Unreserved += amount
}

// Remove 减少库存，先扣未预留部分，截断到0
func (w *WantInfo) Remove(amount float64) {
	if amount < 0 {
		w.Add(-amount)
		return
	}
	amount = math.Min(amount, w.Total)
	take := math.Min(amount, w.Unreserved)
	w.Unreserved -= take
	w.Reserved = math.Max(0, w.Reserved-(amount-take))
	w.Total -= amount
	w.normalize()
}

// Reserve 从未预留部分预留，返回实际预留量
func (w *WantInfo) Reserve(amount float64) float64 {
	take := math.Max(0, math.Min(amount, w.Unreserved))
	w.Unreserved -= take
	w.Reserved += take
	w.normalize()
	return take
}

// Release 把预留归还到未预留部分，返回实际归还量
func (w *WantInfo) Release(amount float64) float64 {
	take := math.Max(0, math.Min(amount, w.Reserved))
	w.Reserved -= take
	w.Unreserved += take
	w.normalize()
	return take
}

// Expend 从预留部分扣除（预留不足时再扣未预留部分），计入Expended
func (w *WantInfo) Expend(amount float64) float64 {
	amount = math.Max(0, math.Min(amount, w.Total))
	take := math.Min(amount, w.Reserved)
	w.Reserved -= take
	w.Unreserved -= amount - take
	w.Total -= amount
	w.Expended += amount
	w.normalize()
	return amount
}

// ResetReserves 预留全部归还
func (w *WantInfo) ResetReserves() {
	w.Unreserved = w.Total
	w.Reserved = 0
}

func (w *WantInfo) normalize() {
	if w.Total < Epsilon {
		w.Total = 0
	}
	if w.Reserved < Epsilon {
		w.Reserved = 0
	}
	w.Unreserved = math.Max(0, w.Total-w.Reserved)
}
