package ecosim

// DefaultTierDecay 相邻层级之间的价值衰减系数
const DefaultTierDecay = 0.9

// DefaultMaxSiftTier 无界需求阶梯在一次筛选中访问的最高层级
const DefaultMaxSiftTier = 100

// Epsilon 浮点数量比较的容差
const Epsilon = 1e-9

// TierDecay 跨层级价值换算使用的衰减系数，由配置设置
// 说明：值越小，高层级（低优先级）需求的价值折算到低层级时越少
var TierDecay = DefaultTierDecay
