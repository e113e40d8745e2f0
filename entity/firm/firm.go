package firm

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity"
)

// Firm 企业
// 功能：每天向雇员索取工作时间，按收到的时间以工资商品支付报酬
// 说明：工资商品由企业直接发放，企业本身不持有账本
type Firm struct {
	ctx       entity.ITaskContext
	id        int32
	actor     bus.ActorInfo
	mailbox   *bus.Mailbox
	employees []int32

	hours       float64 // 每天向每个雇员索取的时间
	timeProduct int32
	wageProduct int32
	wage        float64

	labor    map[int32]float64 // 当天收到的时间
	paid     float64           // 当天支付的工资总额
	received map[int32]float64 // 当天收到的其他商品

	log *logrus.Entry
}

// New 创建企业并订阅总线
// 参数：ctx-任务上下文，id-企业ID，employees-雇员居民ID
func New(ctx entity.ITaskContext, id int32, employees []int32) *Firm {
	rc := ctx.RuntimeConfig()
	return &Firm{
		ctx:         ctx,
		id:          id,
		actor:       bus.Firm(id),
		mailbox:     bus.NewMailbox(ctx.Bus(), bus.Firm(id), rc.WaitTimeout),
		employees:   slices.Clone(employees),
		hours:       rc.E.TimePerDay / 2,
		timeProduct: rc.E.TimeProduct,
		wageProduct: rc.E.WageProduct,
		wage:        rc.E.Wage,
		labor:       make(map[int32]float64),
		received:    make(map[int32]float64),
		log:         log.WithField("firm", id),
	}
}

func (f *Firm) ID() int32 {
	return f.id
}

func (f *Firm) Actor() bus.ActorInfo {
	return f.actor
}

func (f *Firm) Employees() []int32 {
	return slices.Clone(f.employees)
}

// Labor 当天收到的工作时间总量与支付的工资总额
func (f *Firm) Labor() (hours, paid float64) {
	return lo.Sum(lo.Values(f.labor)), f.paid
}

// RunDay 运行一个模拟日
// 算法说明：
// 1. 等待StartDay
// 2. 向每个雇员发送RequestTime，收集SendProduct与RequestSent
// 3. 按收到的时间支付工资，发送WorkDayEnded
// 4. 报告Finished并等待AllFinished
func (f *Firm) RunDay(ctx context.Context) error {
	if _, err := f.waitIdle(ctx, bus.Expect(bus.StartDay)); err != nil {
		return err
	}
	f.mailbox.MsgCatchup()
	f.mailbox.PruneBacklog(func(m bus.ActorMessage) bool { return m.AddressedTo(f.actor) })
	clear(f.labor)
	clear(f.received)
	f.paid = 0

	for _, e := range f.employees {
		msg := bus.New(bus.FirmToEmployee, f.actor, bus.Pop(e))
		msg.Action, msg.Product, msg.Quantity = bus.RequestTime, f.timeProduct, f.hours
		if err := f.mailbox.PushMessage(msg); err != nil {
			return err
		}
	}
	if err := f.collect(ctx); err != nil {
		return err
	}
	for _, e := range f.employees {
		if pay := f.labor[e] * f.wage; pay > ecosim.Epsilon {
			msg := bus.New(bus.SendProduct, f.actor, bus.Pop(e))
			msg.Product, msg.Quantity = f.wageProduct, pay
			if err := f.mailbox.PushMessage(msg); err != nil {
				return err
			}
			f.paid += pay
		}
		end := bus.New(bus.FirmToEmployee, f.actor, bus.Pop(e))
		end.Action = bus.WorkDayEnded
		if err := f.mailbox.PushMessage(end); err != nil {
			return err
		}
	}
	hours, paid := f.Labor()
	f.log.Debugf("work day ended: %g hours, %g paid", hours, paid)

	if err := f.mailbox.PushMessage(bus.New(bus.Finished, f.actor, bus.System)); err != nil {
		return err
	}
	_, err := f.waitIdle(ctx, bus.Expect(bus.AllFinished))
	return err
}

// collect 收集每个雇员交来的商品，直到全部回复RequestSent
func (f *Firm) collect(ctx context.Context) error {
	pending := lo.SliceToMap(f.employees, func(e int32) (bus.ActorInfo, struct{}) {
		return bus.Pop(e), struct{}{}
	})
	for len(pending) > 0 {
		msg, err := f.mailbox.SpecificWait(ctx, bus.Expect(bus.SendProduct), bus.Expect(bus.EmployeeToFirm))
		if err != nil {
			return fmt.Errorf("firm %d waiting for %d employees: %w", f.id, len(pending), err)
		}
		if _, ok := pending[msg.Sender]; !ok {
			f.log.Warnf("unexpected %v from %v", msg.Kind, msg.Sender)
			continue
		}
		switch msg.Kind {
		case bus.SendProduct:
			if msg.Product == f.timeProduct {
				f.labor[msg.Sender.ID] += msg.Quantity
			} else {
				f.received[msg.Product] += msg.Quantity
			}
		case bus.EmployeeToFirm:
			if msg.Action == bus.RequestSent {
				delete(pending, msg.Sender)
			}
		}
	}
	return nil
}

func (f *Firm) waitIdle(ctx context.Context, patterns ...bus.Pattern) (bus.ActorMessage, error) {
	for {
		msg, err := f.mailbox.SpecificWait(ctx, patterns...)
		if errors.Is(err, bus.ErrWaitTimeout) {
			continue
		}
		return msg, err
	}
}
