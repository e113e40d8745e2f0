package entity

import (
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/input"
)

// Manager依赖倒置

// entity/pop/manager.go的依赖倒置
type IPopManager interface {
	// 初始化：按人口构成合并需求模板，建立账本并完成初次筛选
	Init(seeds []input.PopSeed, templates []ecosim.DesireTemplate)

	// 输入Pop ID，查找Pop，如果不存在则panic
	Get(id int32) IPop
	// 输入Pop ID，查找Pop，如果不存在则返回error
	GetOrError(id int32) (IPop, error)
	// 当前生效的全部Pop，按加入顺序
	Pops() []IPop

	Prepare() // 准备阶段：生效日间的增删
}
