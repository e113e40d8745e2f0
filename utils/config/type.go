package config

// Control 模拟器控制配置
// 功能：定义仿真的天数、等待上限与随机种子
type Control struct {
	Days        int32   `yaml:"days"`                   // 模拟天数
	WaitTimeout float64 `yaml:"wait_timeout,omitempty"` // 单次消息等待的上限（秒），0表示使用默认值
	Seed        uint64  `yaml:"seed,omitempty"`         // 随机种子基数，每个居民在此基础上叠加自身ID
}

// Economy 经济规则配置
// 功能：定义需求排序、时间预算、购物开销等经济参数
type Economy struct {
	TierDecay        float64 `yaml:"tier_decay,omitempty"`         // 跨层级价值衰减系数，默认0.9
	TimeProduct      int32   `yaml:"time_product"`                 // 表示时间的商品ID
	TimePerDay       float64 `yaml:"time_per_day,omitempty"`       // 每天发放给每个居民的时间
	ShoppingTimeCost float64 `yaml:"shopping_time_cost,omitempty"` // 每次购物尝试消耗的时间
	TargetStep       float64 `yaml:"target_step,omitempty"`        // 库存目标每次调整的步长
	MaxSiftTier      int     `yaml:"max_sift_tier,omitempty"`      // 无界需求阶梯的层级上限
	MaxRejectRounds  int     `yaml:"max_reject_rounds,omitempty"`  // 卖方拒绝报价的最多轮数
	WageProduct      int32   `yaml:"wage_product"`                 // 企业发放工资所用的商品ID
	Wage             float64 `yaml:"wage,omitempty"`               // 每单位工作时间的工资
}

// Input 内置样例世界的规模配置
type Input struct {
	Pops          int32 `yaml:"pops"`                     // 居民数量
	Firms         int32 `yaml:"firms,omitempty"`          // 企业数量
	StartingStock int32 `yaml:"starting_stock,omitempty"` // 每个居民初始持有的各类商品数量
}

// Output 输出配置
type Output struct {
	Path   string  `yaml:"path,omitempty"`    // 每日报告的输出路径（JSON Lines），为空则只写日志
	PopIDs []int32 `yaml:"pop_ids,omitempty"` // 需要在报告中展开明细的居民ID，为空表示全部
}

// Metrics 监控指标配置
type Metrics struct {
	Listen string `yaml:"listen,omitempty"` // Prometheus指标的HTTP监听地址，为空则不启动
}

// Config YAML配置文件的根结构
// 功能：定义整个仿真系统的配置结构
// 说明：包含输入、控制、经济规则、输出、监控等所有配置项
type Config struct {
	Control Control `yaml:"control"`           // 模拟过程控制
	Economy Economy `yaml:"economy"`           // 经济规则
	Input   Input   `yaml:"input"`             // 输入
	Output  Output  `yaml:"output,omitempty"`  // 输出
	Metrics Metrics `yaml:"metrics,omitempty"` // 监控
}
