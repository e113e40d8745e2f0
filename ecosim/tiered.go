package ecosim

import (
	"cmp"
	"fmt"
	"math"
)

// TieredValue 带层级的价值
// 功能：表示某个需求层级上的满足量，用于跨层级比较
// 说明：层级越低优先级越高；不同层级的值相加前先按TierDecay换算到较低层级
type TieredValue struct {
	Tier  int
	Value float64
}

// Shift 把价值换算到指定层级
// 说明：从高层级换算到低层级时价值按TierDecay^(Tier-tier)缩小，反之放大
func (v TieredValue) Shift(tier int) TieredValue {
	if tier == v.Tier || v.Value == 0 {
		return TieredValue{Tier: tier, Value: v.Value}
	}
	return TieredValue{Tier: tier, Value: v.Value * math.Pow(TierDecay, float64(v.Tier-tier))}
}

// Add 相加，结果位于两者中较低的层级；零值不改变另一方的层级
func (v TieredValue) Add(o TieredValue) TieredValue {
	if v.Value == 0 {
		return o
	}
	if o.Value == 0 {
		return v
	}
	tier := min(v.Tier, o.Tier)
	return TieredValue{Tier: tier, Value: v.Shift(tier).Value + o.Shift(tier).Value}
}

// Neg 取反
func (v TieredValue) Neg() TieredValue {
	return TieredValue{Tier: v.Tier, Value: -v.Value}
}

// Sub 相减
func (v TieredValue) Sub(o TieredValue) TieredValue {
	return v.Add(o.Neg())
}

// Sign 符号，绝对值小于Epsilon视为0
func (v TieredValue) Sign() int {
	switch {
	case v.Value > Epsilon:
		return 1
	case v.Value < -Epsilon:
		return -1
	default:
		return 0
	}
}

// IsZero 是否为零
func (v TieredValue) IsZero() bool {
	return v.Sign() == 0
}

// Compare 比较大小
// 算法说明：
// 1. 先比较符号
// 2. 同为正：层级低者大，层级相同比较数值
// 3. 同为负：层级低者（损失更重要）小，层级相同比较数值
func (v TieredValue) Compare(o TieredValue) int {
	sv, so := v.Sign(), o.Sign()
	if sv != so {
		return cmp.Compare(sv, so)
	}
	if sv == 0 {
		return 0
	}
	if v.Tier != o.Tier {
		if sv > 0 {
			return cmp.Compare(o.Tier, v.Tier)
		}
		return cmp.Compare(v.Tier, o.Tier)
	}
	return cmp.Compare(v.Value, o.Value)
}

func (v TieredValue) String() string {
	return fmt.Sprintf("%.4f@T%d", v.Value, v.Tier)
}
