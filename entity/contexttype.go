package entity

import (
	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/clock"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/config"
)

// ITaskContext 模拟任务上下文
// 说明：模拟日内只读；目录与市场快照由外部协作者提供
type ITaskContext interface {
	Clock() *clock.Clock
	RuntimeConfig() *config.RuntimeConfig
	Catalog() ecosim.ICatalog
	Market() ecosim.IMarket
	Bus() *bus.Bus
	PopManager() IPopManager
}
