package clock

import (
	"fmt"

	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/config"
)

// Clock 仿真时钟管理器
// 功能：管理以“天”为单位的逻辑时间推进
// 说明：时间是逻辑资源而非调度依据，时钟只记录当前是第几天
type Clock struct {
	START_DAY int32 // 起始天
	END_DAY   int32 // 结束天，模拟区间[START, END)

	Day int32 // 当前天
}

// New 根据配置创建新的时钟实例
// 参数：control-控制配置，包含模拟天数
// 返回：初始化完成的时钟实例
func New(control config.Control) *Clock {
	c := &Clock{
		START_DAY: 0,
		END_DAY:   control.Days,
	}
	c.Init()
	return c
}

// Init 重置到起始天
func (c *Clock) Init() {
	c.Day = c.START_DAY
}

// Next 推进一天
func (c *Clock) Next() {
	c.Day++
}

// Done 是否已经走完模拟区间
func (c *Clock) Done() bool {
	return c.Day >= c.END_DAY
}

// Elapsed 已完成的天数
func (c *Clock) Elapsed() int32 {
	return c.Day - c.START_DAY
}

// String 获取时钟的字符串表示（Day X/Y）
func (c *Clock) String() string {
	return fmt.Sprintf("Day %d/%d", c.Day, c.END_DAY)
}
