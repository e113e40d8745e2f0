package ecosim

import (
	"cmp"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// ProductInfo 市场快照中单个商品的信息
type ProductInfo struct {
	Price      float64 // 单价
	Salability float64 // 可售性，越高越容易被他人接受
	IsCurrency bool    // 是否为货币
	Available  float64 // 市场上可获得的数量
	Offered    float64 // 当日挂出的数量
	Sold       float64 // 当日成交的数量
}

// IMarket 只读的市场快照
type IMarket interface {
	ProductInfo(id int32) (ProductInfo, bool)
	// 卖出（用于支付）的优先顺序，为空表示未声明
	SalePriority() []int32
	IsCurrency(id int32) bool
	Currencies() []int32
}

// Market 市场快照的内存实现
// 说明：价格由外部设定，本系统只读取；成交统计由撮合方并发写入
type Market struct {
	products map[int32]*ProductInfo
	priority []int32
	mu       sync.RWMutex
}

// NewMarket 创建空市场
func NewMarket() *Market {
	return &Market{products: make(map[int32]*ProductInfo)}
}

// SetProduct 设置商品信息
func (m *Market) SetProduct(id int32, info ProductInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = &info
}

// SetSalePriority 设置卖出优先顺序
func (m *Market) SetSalePriority(ids []int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priority = slices.Clone(ids)
}

func (m *Market) ProductInfo(id int32) (ProductInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if info, ok := m.products[id]; ok {
		return *info, true
	}
	return ProductInfo{}, false
}

func (m *Market) SalePriority() []int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.priority)
}

func (m *Market) IsCurrency(id int32) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.products[id]
	return ok && info.IsCurrency
}

func (m *Market) Currencies() []int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := lo.FilterMap(lo.Entries(m.products), func(e lo.Entry[int32, *ProductInfo], _ int) (int32, bool) {
		return e.Key, e.Value.IsCurrency
	})
	slices.Sort(ids)
	return ids
}

// RecordOffered 记录挂单数量
func (m *Market) RecordOffered(id int32, quantity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if info, ok := m.products[id]; ok {
		info.Offered += quantity
	}
}

// RecordSold 记录成交数量
func (m *Market) RecordSold(id int32, quantity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if info, ok := m.products[id]; ok {
		info.Sold += quantity
	}
}

// ResetDaily 清空当日统计
func (m *Market) ResetDaily() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, info := range m.products {
		info.Offered, info.Sold = 0, 0
	}
}

// Price 商品单价，不在市场中的商品价格为0
func Price(market IMarket, id int32) float64 {
	info, _ := market.ProductInfo(id)
	return info.Price
}

// SaleOrder 按卖出优先顺序排列给定商品
// 算法说明：
// 1. 在市场声明的SalePriority中的商品按声明顺序排在最前
// 2. 其余商品：货币优先，然后可售性降序，最后ID升序
func SaleOrder(market IMarket, goods []int32) []int32 {
	declared := make(map[int32]int)
	for i, id := range market.SalePriority() {
		if _, ok := declared[id]; !ok {
			declared[id] = i
		}
	}
	out := slices.Clone(goods)
	slices.SortStableFunc(out, func(a, b int32) int {
		ia, oka := declared[a]
		ib, okb := declared[b]
		switch {
		case oka && okb:
			return cmp.Compare(ia, ib)
		case oka:
			return -1
		case okb:
			return 1
		}
		pa, _ := market.ProductInfo(a)
		pb, _ := market.ProductInfo(b)
		if pa.IsCurrency != pb.IsCurrency {
			if pa.IsCurrency {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(pb.Salability, pa.Salability); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return out
}
