package pop

import (
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
)

// AdaptFuturePlan 调整库存目标
// 功能：按当天的消耗与损失调整每个商品的库存上下界（滞回控制）
// 参数：step-调整步长
// 算法说明：
//   - 消耗+损失 >= 上界：上下界同时提高step；消耗本身已超过上界时提高2×step
//   - 消耗+损失 <= 下界：上下界同时降低step，不低于0
//   - 其他情况保持不变
//
// 说明：没有库存目标且当天没有消耗和损失的商品（例如只是换来的货币）不调整，
// 否则0 >= 0会让所有持有过的商品的目标每天上涨
func (p *Pop) AdaptFuturePlan(step float64) {
	for _, g := range p.property.Goods() {
		if g == p.timeProduct {
			continue
		}
		info := p.property.Info(g)
		used := info.Consumed + info.Lost
		switch {
		case used <= ecosim.Epsilon && info.UpperTarget <= ecosim.Epsilon:
		case used >= info.UpperTarget-ecosim.Epsilon:
			inc := step
			if info.Consumed > info.UpperTarget+ecosim.Epsilon {
				inc = 2 * step
			}
			info.UpperTarget += inc
			info.LowerTarget += inc
		case used <= info.LowerTarget+ecosim.Epsilon:
			info.LowerTarget = math.Max(info.LowerTarget-step, 0)
			info.UpperTarget = math.Max(info.UpperTarget-step, 0)
		}
	}
}
