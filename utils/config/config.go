package config

import "time"

// 缺省值
const (
	DefaultDays             = 1
	DefaultWaitTimeout      = 5.0
	DefaultTierDecay        = 0.9
	DefaultTimePerDay       = 16.0
	DefaultShoppingTimeCost = 1.0
	DefaultTargetStep       = 1.0
	DefaultMaxSiftTier      = 100
	DefaultMaxRejectRounds  = 2
	DefaultWage             = 1.0
	DefaultTimeProduct      = 1
	DefaultWageProduct      = 7
	DefaultPops             = 8
	DefaultStartingStock    = 10
)

// RuntimeConfig 运行时配置
// 功能：存储补全缺省值后的配置信息
// 说明：将YAML配置转换为运行时可用的配置对象
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置
	E   Economy // 经济规则配置

	WaitTimeout time.Duration // 单次消息等待上限
}

// NewRuntimeConfig 根据配置初始化全局变量
// 功能：创建运行时配置对象，为未指定的项填入缺省值
// 参数：config-原始配置对象
// 返回：初始化的运行时配置指针
func NewRuntimeConfig(config Config) *RuntimeConfig {
	c := &config.Control
	if c.Days <= 0 {
		c.Days = DefaultDays
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	e := &config.Economy
	if e.TierDecay <= 0 || e.TierDecay > 1 {
		e.TierDecay = DefaultTierDecay
	}
	if e.TimePerDay <= 0 {
		e.TimePerDay = DefaultTimePerDay
	}
	if e.ShoppingTimeCost <= 0 {
		e.ShoppingTimeCost = DefaultShoppingTimeCost
	}
	if e.TargetStep <= 0 {
		e.TargetStep = DefaultTargetStep
	}
	if e.MaxSiftTier <= 0 {
		e.MaxSiftTier = DefaultMaxSiftTier
	}
	if e.MaxRejectRounds <= 0 {
		e.MaxRejectRounds = DefaultMaxRejectRounds
	}
	if e.TimeProduct <= 0 {
		e.TimeProduct = DefaultTimeProduct
	}
	if e.WageProduct <= 0 {
		e.WageProduct = DefaultWageProduct
	}
	if e.Wage <= 0 {
		e.Wage = DefaultWage
	}
	if config.Input.Pops <= 0 {
		config.Input.Pops = DefaultPops
	}
	if config.Input.StartingStock <= 0 {
		config.Input.StartingStock = DefaultStartingStock
	}

	return &RuntimeConfig{
		All:         config,
		C:           config.Control,
		E:           config.Economy,
		WaitTimeout: time.Duration(c.WaitTimeout * float64(time.Second)),
	}
}
