package entity

import (
	"context"

	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
)

// IAgent 每天占用一个协程的参与者
type IAgent interface {
	Actor() bus.ActorInfo // 总线上的标识
	// RunDay 运行一个模拟日，直到收到AllFinished
	// 说明：只在总线断开、等待超时或ctx结束时返回error
	RunDay(ctx context.Context) error
}

// entity/pop/pop.go的依赖倒置
type IPop interface {
	IAgent

	ID() int32
	// 账本，只能在模拟日之间读取
	Property() *ecosim.Property
	// 前一天与当天结束时的总满足价值
	Satisfaction() (prev, current ecosim.TieredValue)
	// 雇主，没有则返回false
	Employer() (bus.ActorInfo, bool)
}

// entity/firm/firm.go的依赖倒置
type IFirm interface {
	IAgent

	ID() int32
	Employees() []int32
}
