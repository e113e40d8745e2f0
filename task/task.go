package task

import (
	"os"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/clock"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity/firm"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity/market"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity/pop"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/input"
)

// Context 模拟任务上下文
// 功能：包含一次模拟任务的所有变量和状态
// 说明：管理时钟、总线、目录与市场快照、居民、企业与撮合方
type Context struct {
	// 任务名
	job string
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock
	// 运行时配置
	runtimeConfig *config.RuntimeConfig

	// 广播总线
	bus *bus.Bus
	// 协调者的信箱
	mailbox *bus.Mailbox

	catalog *ecosim.Catalog
	market  *ecosim.Market

	// Pop管理器
	popManager *pop.PopManager
	// 企业
	firms []*firm.Firm
	// 撮合方
	broker *market.Broker

	// 每日报告的输出
	output *os.File

	// 用于初始化的输入
	initRes *input.Input
}

// NewContext 创建新的模拟任务上下文
// 功能：补全配置，构建内置样例世界并创建各参与者
// 参数：job-任务名称，c-配置对象
// 返回：创建完成的Context实例
func NewContext(job string, c config.Config) *Context {
	rc := config.NewRuntimeConfig(c)
	return NewContextWithInput(job, rc, input.Init(rc.All))
}

// NewContextWithInput 使用给定的输入创建模拟任务上下文
// 算法说明：
// 1. 设置跨层级衰减系数
// 2. 创建总线与协调者信箱
// 3. 新建撮合方、居民管理器与企业（创建时即订阅总线）
func NewContextWithInput(job string, rc *config.RuntimeConfig, in *input.Input) *Context {
	ecosim.TierDecay = rc.E.TierDecay
	ctx := &Context{
		job:           job,
		clock:         clock.New(rc.C),
		runtimeConfig: rc,
		bus:           bus.NewBus(),
		catalog:       in.Catalog,
		market:        in.Market,
		initRes:       in,
	}
	ctx.mailbox = bus.NewMailbox(ctx.bus, bus.System, rc.WaitTimeout)
	ctx.broker = market.NewBroker(ctx, ctx.market)
	ctx.popManager = pop.NewManager(ctx)
	ctx.firms = lo.Map(in.Firms, func(s input.FirmSeed, _ int) *firm.Firm {
		return firm.New(ctx, s.ID, s.Employees)
	})
	if path := rc.All.Output.Path; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			log.Panicf("failed to open output %s: %v", path, err)
		}
		ctx.output = f
	}
	return ctx
}

func (ctx *Context) Job() string {
	return ctx.job
}

func (ctx *Context) GetInput() *input.Input {
	return ctx.initRes
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) Catalog() ecosim.ICatalog {
	return ctx.catalog
}

func (ctx *Context) Market() ecosim.IMarket {
	return ctx.market
}

func (ctx *Context) Bus() *bus.Bus {
	return ctx.bus
}

func (ctx *Context) PopManager() entity.IPopManager {
	return ctx.popManager
}

// Pops Pop管理器（具体类型，用于设置空闲时间行为等）
func (ctx *Context) Pops() *pop.PopManager {
	return ctx.popManager
}

func (ctx *Context) Firms() []entity.IFirm {
	return lo.Map(ctx.firms, func(f *firm.Firm, _ int) entity.IFirm { return f })
}

// Init 初始化时钟与居民
func (ctx *Context) Init() {
	ctx.clock.Init()
	in := ctx.initRes
	log.Infof("Product: %v", len(ctx.catalog.Products()))
	log.Infof("Template: %v", len(in.Templates))
	log.Infof("Pop: %v", len(in.Pops))
	log.Infof("Firm: %v", len(in.Firms))
	ctx.popManager.Init(in.Pops, in.Templates)
}

// Stop 请求停止：广播Shutdown，当前模拟日结束后退出
// 说明：可以从任意协程调用；直接发到总线，不经过协调者的信箱
func (ctx *Context) Stop() {
	if ctx.closed.Swap(true) {
		return
	}
	if err := ctx.bus.Send(bus.New(bus.Shutdown, bus.System, bus.Everyone)); err != nil {
		log.Warnf("failed to broadcast shutdown: %v", err)
	}
}

// Close 关闭总线与输出
func (ctx *Context) Close() {
	ctx.closed.Store(true)
	ctx.bus.Close()
	if ctx.output != nil {
		if err := ctx.output.Close(); err != nil {
			log.Errorf("failed to close output: %v", err)
		}
		ctx.output = nil
	}
}
