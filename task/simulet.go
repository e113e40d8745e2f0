package task

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity/firm"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/metrics"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 1, "心跳日志间隔天数")
)

// prepare 准备阶段，每天执行一次
// 功能：生效日间的居民增删并重新筛选账本，输出心跳日志
func (ctx *Context) prepare() {
	if interval := int32(*heartBeatInterval); interval > 0 && ctx.clock.Elapsed()%interval == 0 {
		log.Infof("%v", ctx.clock)
	}
	ctx.popManager.Prepare()
}

// agents 当天运行的全部参与者：撮合方、企业、居民
func (ctx *Context) agents() []entity.IAgent {
	agents := []entity.IAgent{ctx.broker}
	for _, f := range ctx.firms {
		agents = append(agents, f)
	}
	for _, p := range ctx.popManager.Pops() {
		agents = append(agents, p)
	}
	return agents
}

// runDay 运行一个模拟日
// 功能：每个参与者一个协程，协调者广播StartDay，收齐Finished后广播AllFinished
// 参数：parent-生命周期控制
// 返回：任一参与者的第一个错误
// 说明：任一协程出错时errgroup取消其余协程的等待
func (ctx *Context) runDay(parent context.Context) error {
	start := time.Now()
	agents := ctx.agents()
	g, gctx := errgroup.WithContext(parent)
	for _, a := range agents {
		g.Go(func() error {
			if err := a.RunDay(gctx); err != nil {
				return fmt.Errorf("%v: %w", a.Actor(), err)
			}
			return nil
		})
	}
	g.Go(func() error {
		// 撮合方不报告Finished
		return ctx.coordinate(gctx, agents[1:])
	})
	if err := g.Wait(); err != nil {
		return err
	}
	metrics.DaysCompleted.Inc()
	metrics.DayDuration.Observe(time.Since(start).Seconds())
	return nil
}

// coordinate 协调一个模拟日
// 算法说明：
// 1. 清理协调者信箱中的旧消息，广播StartDay
// 2. 等待每个参与者的Finished；等待超时只记录日志，参与者自己的谈判等待是有界的
// 3. 广播AllFinished
func (ctx *Context) coordinate(gctx context.Context, participants []entity.IAgent) error {
	ctx.mailbox.MsgCatchup()
	ctx.mailbox.PruneBacklog(func(m bus.ActorMessage) bool { return m.AddressedTo(bus.System) })
	if err := ctx.mailbox.PushMessage(bus.New(bus.StartDay, bus.System, bus.Everyone)); err != nil {
		return err
	}
	pending := lo.SliceToMap(participants, func(a entity.IAgent) (bus.ActorInfo, struct{}) {
		return a.Actor(), struct{}{}
	})
	for len(pending) > 0 {
		msg, err := ctx.mailbox.SpecificWait(gctx, bus.Expect(bus.Finished))
		if errors.Is(err, bus.ErrWaitTimeout) {
			log.Debugf("%v: waiting for %d participants", ctx.clock, len(pending))
			continue
		}
		if err != nil {
			return err
		}
		delete(pending, msg.Sender)
	}
	return ctx.mailbox.PushMessage(bus.New(bus.AllFinished, bus.System, bus.Everyone))
}

// Run 运行
// 功能：初始化后逐日运行，直到模拟天数用完或收到停止指令
// 参数：parent-生命周期控制
// 返回：某一天运行失败时的错误
func (ctx *Context) Run(parent context.Context) error {
	ctx.Init()
	defer ctx.Close()
	metrics.Serve(parent, ctx.runtimeConfig.All.Metrics.Listen)
	for !ctx.clock.Done() {
		ctx.prepare()
		if err := ctx.runDay(parent); err != nil {
			return fmt.Errorf("%v: %w", ctx.clock, err)
		}
		if err := ctx.report(); err != nil {
			log.Errorf("failed to write report: %v", err)
		}
		ctx.clock.Next()
		if ctx.closed.Load() {
			log.Infof("stopped at %v", ctx.clock)
			break
		}
	}
	log.Infof("engine complete")
	return nil
}

// DayReport 当天的报告
// 功能：汇总居民的满足情况与持有、企业的用工、市场的挂单与成交
// 返回：结构化的报告
func (ctx *Context) DayReport() (*structpb.Struct, error) {
	all := ctx.popManager.Pops()
	data := lo.SliceToMap(all, func(p entity.IPop) (int32, entity.IPop) { return p.ID(), p })
	selected, missing := utils.Find(data, all, ctx.runtimeConfig.All.Output.PopIDs)
	if len(missing) > 0 {
		log.Warnf("report: unknown pop ids %v", missing)
	}
	pops := make([]any, 0, len(selected))
	for _, p := range selected {
		prop := p.Property()
		prev, cur := p.Satisfaction()
		holdings := make(map[string]any)
		for id, amount := range prop.Holdings() {
			holdings[strconv.Itoa(int(id))] = amount
		}
		entry := map[string]any{
			"id":                 p.ID(),
			"satisfaction_tier":  cur.Tier,
			"satisfaction":       cur.Value,
			"change":             cur.Sub(prev).String(),
			"hard_satisfaction":  prop.HardSatisfaction,
			"quantity_satisfied": prop.QuantitySatisfied,
			"holdings":           holdings,
		}
		if prop.FullTierSatisfaction != nil {
			entry["full_tier"] = *prop.FullTierSatisfaction
		}
		pops = append(pops, entry)
	}
	firms := lo.Map(ctx.firms, func(f *firm.Firm, _ int) any {
		hours, paid := f.Labor()
		return map[string]any{"id": f.ID(), "hours": hours, "paid": paid}
	})
	products := make(map[string]any)
	for _, id := range ctx.catalog.Products() {
		info, ok := ctx.market.ProductInfo(id)
		if !ok || (info.Offered == 0 && info.Sold == 0) {
			continue
		}
		products[strconv.Itoa(int(id))] = map[string]any{"offered": info.Offered, "sold": info.Sold}
	}
	return structpb.NewStruct(map[string]any{
		"job":    ctx.job,
		"day":    ctx.clock.Day,
		"pops":   pops,
		"firms":  firms,
		"market": products,
	})
}

// report 输出当天的报告
// 说明：配置了输出路径时每天写一行JSON，否则只写调试日志
func (ctx *Context) report() error {
	rep, err := ctx.DayReport()
	if err != nil {
		return err
	}
	line, err := protojson.MarshalOptions{UseProtoNames: true}.Marshal(rep)
	if err != nil {
		return err
	}
	if ctx.output == nil {
		log.Debugf("report: %s", line)
		return nil
	}
	_, err = ctx.output.Write(append(line, '\n'))
	return err
}
