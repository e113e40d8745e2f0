package ecosim

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/samber/lo"
)

// Desire 需求阶梯
// 功能：描述一个在层级Start, Start+Step, Start+2*Step, ...上重复出现的需求，每次出现需要Amount单位
// 说明：Step为0表示只出现一次；End为空且Step>0表示无界阶梯
type Desire struct {
	Item         Item
	StartTier    int
	EndTier      *int
	Step         int
	Amount       float64 // 每次出现需要的数量
	Satisfaction float64 // 本轮筛选累计满足的数量
	Tags         []string
}

// DesireCoord 需求阶梯坐标：层级+需求下标
type DesireCoord struct {
	Tier int
	Idx  int
}

// Compare 按层级优先、下标次之比较
func (c DesireCoord) Compare(o DesireCoord) int {
	if c.Tier != o.Tier {
		return cmp.Compare(c.Tier, o.Tier)
	}
	return cmp.Compare(c.Idx, o.Idx)
}

func (c DesireCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Tier, c.Idx)
}

// IsInfinite 是否为无界阶梯
func (d *Desire) IsInfinite() bool {
	return d.Step > 0 && d.EndTier == nil
}

// LastTier 最后一次出现的层级，无界阶梯返回false
func (d *Desire) LastTier() (int, bool) {
	if d.Step == 0 {
		return d.StartTier, true
	}
	if d.EndTier == nil {
		return 0, false
	}
	if *d.EndTier < d.StartTier {
		return d.StartTier, true
	}
	return d.StartTier + (*d.EndTier-d.StartTier)/d.Step*d.Step, true
}

// OnTier 该需求是否在指定层级出现
func (d *Desire) OnTier(tier int) bool {
	if tier < d.StartTier {
		return false
	}
	if d.Step == 0 {
		return tier == d.StartTier
	}
	if last, ok := d.LastTier(); ok && tier > last {
		return false
	}
	return (tier-d.StartTier)%d.Step == 0
}

// NextTier 严格大于tier的下一次出现层级
func (d *Desire) NextTier(tier int) (int, bool) {
	var next int
	switch {
	case tier < d.StartTier:
		next = d.StartTier
	case d.Step == 0:
		return 0, false
	default:
		next = d.StartTier + ((tier-d.StartTier)/d.Step+1)*d.Step
	}
	if last, ok := d.LastTier(); ok && next > last {
		return 0, false
	}
	return next, true
}

// PrevTier 严格小于tier的上一次出现层级
func (d *Desire) PrevTier(tier int) (int, bool) {
	if tier <= d.StartTier {
		return 0, false
	}
	if d.Step == 0 {
		return d.StartTier, true
	}
	prev := d.StartTier + (tier-d.StartTier-1)/d.Step*d.Step
	if last, ok := d.LastTier(); ok && prev > last {
		prev = last
	}
	return prev, true
}

// StepsUpTo 层级不超过tier的出现次数
func (d *Desire) StepsUpTo(tier int) int {
	if tier < d.StartTier {
		return 0
	}
	if d.Step == 0 {
		return 1
	}
	if last, ok := d.LastTier(); ok && tier > last {
		tier = last
	}
	return (tier-d.StartTier)/d.Step + 1
}

// TotalDesire 有界阶梯的总需求量
func (d *Desire) TotalDesire() (float64, bool) {
	last, ok := d.LastTier()
	if !ok {
		return math.Inf(1), false
	}
	return float64(d.StepsUpTo(last)) * d.Amount, true
}

// DesireUpTo 截至tier的累计需求量
func (d *Desire) DesireUpTo(tier int) float64 {
	return float64(d.StepsUpTo(tier)) * d.Amount
}

// SatisfactionAt 指定层级那次出现已被满足的数量
func (d *Desire) SatisfactionAt(tier int) float64 {
	if !d.OnTier(tier) {
		return 0
	}
	before := float64(d.StepsUpTo(tier)-1) * d.Amount
	return math.Max(0, math.Min(d.Amount, d.Satisfaction-before))
}

// SatisfiedAt 指定层级那次出现是否已完全满足
func (d *Desire) SatisfiedAt(tier int) bool {
	return d.SatisfactionAt(tier) >= d.Amount-Epsilon
}

// IsFullySatisfied 有界阶梯是否所有出现都已满足
func (d *Desire) IsFullySatisfied() bool {
	total, ok := d.TotalDesire()
	return ok && d.Satisfaction >= total-Epsilon
}

// Clone 深拷贝
func (d Desire) Clone() Desire {
	if d.EndTier != nil {
		end := *d.EndTier
		d.EndTier = &end
	}
	d.Tags = slices.Clone(d.Tags)
	return d
}

// DesireTemplate 人口学需求模板（物种、文化、意识形态）
type DesireTemplate struct {
	Source  string   // 模板来源
	Desires []Desire // 该来源的需求阶梯，Amount为每单位人口的需求
}

// MergeDesireTemplates 按人群构成合并需求模板
// 功能：把若干模板的需求按权重加总为一个居民的需求阶梯
// 参数：templates-模板列表，weights-对应模板来源的人群占比（缺省为0）
// 返回：合并后的需求阶梯
// 算法说明：
// 1. 物品、起止层级、步长完全相同的需求视为同一阶梯，Amount按权重累加
// 2. 保留首次出现的顺序，结果中Amount为0的阶梯被丢弃
func MergeDesireTemplates(templates []DesireTemplate, weights map[string]float64) []Desire {
	type key struct {
		item        Item
		start, step int
		end         int
		bounded     bool
	}
	merged := make([]Desire, 0)
	index := make(map[key]int)
	for _, tpl := range templates {
		w := weights[tpl.Source]
		if w <= 0 {
			continue
		}
		for _, d := range tpl.Desires {
			k := key{item: d.Item, start: d.StartTier, step: d.Step}
			if d.EndTier != nil {
				k.end, k.bounded = *d.EndTier, true
			}
			if i, ok := index[k]; ok {
				merged[i].Amount += d.Amount * w
				merged[i].Tags = lo.Union(merged[i].Tags, d.Tags)
				continue
			}
			nd := d.Clone()
			nd.Amount = d.Amount * w
			nd.Satisfaction = 0
			index[k] = len(merged)
			merged = append(merged, nd)
		}
	}
	return lo.Filter(merged, func(d Desire, _ int) bool { return d.Amount > Epsilon })
}
