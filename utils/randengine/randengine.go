// 随机数引擎，包装了golang.org/x/exp/rand，为物品损耗等随机过程提供可复现的随机数
package randengine

import (
	"flag"
	"math"
	"sync"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：提供可复现的随机数，每个居民持有一个以自身ID为种子的引擎
// 说明：非Safe后缀的方法不加锁，只能由拥有者所在的协程调用
type Engine struct {
	*rand.Rand            // 底层随机数生成器
	mtx        sync.Mutex // 互斥锁，用于Safe方法
}

// New 创建随机数引擎
// 参数：seed-随机数种子（会叠加命令行指定的种子偏移量）
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// PTrue 以指定概率返回true（非线程安全）
func (e *Engine) PTrue(p float64) bool {
	return e.Float64() < p
}

// PTrueSafe 以指定概率返回true（线程安全）
func (e *Engine) PTrueSafe(p float64) bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Float64() < p
}

// StochasticRound 随机取整（非线程安全）
// 功能：把非负实数x取整为floor(x)或floor(x)+1，期望值等于x
// 参数：x-待取整的数
// 返回：取整后的数（以float64表示）
// 说明：用于不可分割物品的按比例损耗，保证长期平均损耗率与设定一致
func (e *Engine) StochasticRound(x float64) float64 {
	if x <= 0 {
		return 0
	}
	whole := math.Floor(x)
	if e.PTrue(x - whole) {
		whole++
	}
	return whole
}

// DiscreteDistribution 按给定权重生成随机下标（非线程安全）
// 参数：weight-权重数组
// 返回：[0, len(weight))范围内的下标；权重全为0时返回-1
func (e *Engine) DiscreteDistribution(weight []float64) int32 {
	random := .0
	for _, w := range weight {
		random += w
	}
	if random <= 0 {
		return -1
	}
	random *= e.Float64()
	sum := 0.
	for i, w := range weight {
		sum += w
		if sum > random {
			return int32(i)
		}
	}
	return int32(len(weight) - 1)
}

// Float64Safe 生成[0.0, 1.0)范围内的随机浮点数（线程安全）
func (e *Engine) Float64Safe() float64 {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Float64()
}
