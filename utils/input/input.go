package input

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/config"
)

// 内置样例世界的商品ID
const (
	GoodTime     int32 = 1 // 时间，每天发放，不可交易
	GoodGrain    int32 = 2
	GoodFruit    int32 = 3
	GoodCloth    int32 = 4
	GoodCabin    int32 = 5
	GoodFirewood int32 = 6
	GoodCoin     int32 = 7 // 货币，企业以其发放工资
	GoodAsh      int32 = 8
)

// 欲望ID
const (
	WantNutrition int32 = 1
	WantWarmth    int32 = 2
	WantShelter   int32 = 3
)

// 类别ID
const (
	ClassFood int32 = 100
)

// 流程ID
const (
	ProcessEatGrain     int32 = 1
	ProcessBurnFirewood int32 = 2
	ProcessLiveInCabin  int32 = 3
	ProcessCabinFailure int32 = 4
)

// 需求模板来源
const (
	TemplateSpecies  = "species"
	TemplateCulture  = "culture"
	TemplateIdeology = "ideology"
)

// PopSeed 单个居民的初始化数据
type PopSeed struct {
	ID       int32
	Cohort   map[string]float64 // 需求模板来源 -> 人口构成占比
	Holdings map[int32]float64  // 初始持有
	Employer *int32             // 雇主企业ID
}

// FirmSeed 单个企业的初始化数据
type FirmSeed struct {
	ID        int32
	Employees []int32
}

// Input 输入数据
// 功能：存储模拟所需的全部输入：目录、市场快照、需求模板、居民与企业
// 说明：定义数据的加载属于外部协作者，这里只提供内置的样例世界
type Input struct {
	Catalog   *ecosim.Catalog
	Market    *ecosim.Market
	Templates []ecosim.DesireTemplate
	Pops      []PopSeed
	Firms     []FirmSeed
}

// Init 构建内置样例世界
// 功能：根据配置的规模生成目录、市场快照、需求模板、居民与企业
// 参数：config-配置对象（已补全缺省值）
// 返回：构建完成的输入数据
// 算法说明：
// 1. 目录：商品、欲望、流程，建立反向索引
// 2. 市场：价格与可售性固定，货币优先卖出
// 3. 居民：每人持有两种主要商品与少量货币，文化与理念占比随ID变化
// 4. 企业：居民按ID轮流分配给企业
// 说明：目录或ID不一致属于编程错误，直接panic
func Init(config config.Config) *Input {
	catalog, err := NewCatalog()
	if err != nil {
		log.Panicf("failed to build catalog: %v", err)
	}
	res := &Input{
		Catalog:   catalog,
		Market:    NewMarket(),
		Templates: Templates(),
	}

	stock := float64(config.Input.StartingStock)
	tradable := []int32{GoodGrain, GoodFruit, GoodCloth, GoodCabin, GoodFirewood}
	for i := range config.Input.Pops {
		id := i + 1
		major := tradable[int(i)%len(tradable)]
		minor := tradable[int(i+2)%len(tradable)]
		seed := PopSeed{
			ID: id,
			Cohort: map[string]float64{
				TemplateSpecies:  1,
				TemplateCulture:  0.5 + 0.5*float64(i%2),
				TemplateIdeology: 0.25 * float64(i%3),
			},
			Holdings: map[int32]float64{
				major:    stock,
				minor:    stock / 2,
				GoodCoin: stock / 5,
			},
		}
		if config.Input.Firms > 0 {
			seed.Employer = lo.ToPtr(i%config.Input.Firms + 1)
		}
		res.Pops = append(res.Pops, seed)
	}
	for f := range config.Input.Firms {
		id := f + 1
		employees := lo.FilterMap(res.Pops, func(p PopSeed, _ int) (int32, bool) {
			return p.ID, p.Employer != nil && *p.Employer == id
		})
		res.Firms = append(res.Firms, FirmSeed{ID: id, Employees: employees})
	}
	if err := checkUnique("pop", lo.Map(res.Pops, func(p PopSeed, _ int) int32 { return p.ID })); err != nil {
		log.Panic(err)
	}
	if err := checkUnique("firm", lo.Map(res.Firms, func(f FirmSeed, _ int) int32 { return f.ID })); err != nil {
		log.Panic(err)
	}
	log.Infof("built sample world: %d products, %d pops, %d firms",
		len(catalog.Products()), len(res.Pops), len(res.Firms))
	return res
}

// NewCatalog 样例世界的目录
func NewCatalog() (*ecosim.Catalog, error) {
	c := ecosim.NewCatalog()
	food := ClassFood
	wants := []*ecosim.Want{
		{ID: WantNutrition, Name: "nutrition"},
		{ID: WantWarmth, Name: "warmth", Decay: 0.5},
		{ID: WantShelter, Name: "shelter", Decay: 1},
	}
	products := []*ecosim.Product{
		{ID: GoodTime, Name: "time", Fractional: true},
		{ID: GoodGrain, Name: "grain", Fractional: true, Class: &food},
		{ID: GoodFruit, Name: "ambrosia fruit", Class: &food,
			Wants: map[int32]float64{WantNutrition: 0.5}},
		{ID: GoodCloth, Name: "cotton clothes"},
		{ID: GoodCabin, Name: "cabin",
			FailureChance: 0.02, FailureProcess: lo.ToPtr(ProcessCabinFailure)},
		{ID: GoodFirewood, Name: "firewood", Fractional: true},
		{ID: GoodCoin, Name: "coin", Fractional: true},
		{ID: GoodAsh, Name: "ash", Fractional: true},
	}
	processes := []*ecosim.Process{
		{ID: ProcessEatGrain, Name: "eat grain", Tags: ecosim.TagConsumption, Parts: []ecosim.ProcessPart{
			{Item: ecosim.ProductItem(GoodGrain), Amount: 1, Role: ecosim.PartInput},
			{Item: ecosim.WantItem(WantNutrition), Amount: 1, Role: ecosim.PartOutput},
		}},
		{ID: ProcessBurnFirewood, Name: "burn firewood", Tags: ecosim.TagConsumption | ecosim.TagSplash, Parts: []ecosim.ProcessPart{
			{Item: ecosim.ProductItem(GoodFirewood), Amount: 1, Role: ecosim.PartInput},
			{Item: ecosim.WantItem(WantWarmth), Amount: 2, Role: ecosim.PartOutput},
		}},
		{ID: ProcessLiveInCabin, Name: "live in cabin", Tags: ecosim.TagUse, Parts: []ecosim.ProcessPart{
			{Item: ecosim.ProductItem(GoodCabin), Amount: 1, Role: ecosim.PartCapital},
			{Item: ecosim.WantItem(WantShelter), Amount: 1, Role: ecosim.PartOutput},
		}},
		{ID: ProcessCabinFailure, Name: "cabin collapse", Tags: ecosim.TagFailure, Parts: []ecosim.ProcessPart{
			{Item: ecosim.ProductItem(GoodCabin), Amount: 1, Role: ecosim.PartInput},
			{Item: ecosim.ProductItem(GoodFirewood), Amount: 3, Role: ecosim.PartOutput},
			{Item: ecosim.ProductItem(GoodAsh), Amount: 1, Role: ecosim.PartOutput},
		}},
	}
	for _, w := range wants {
		if err := c.AddWant(w); err != nil {
			return nil, err
		}
	}
	for _, p := range products {
		if err := c.AddProduct(p); err != nil {
			return nil, err
		}
	}
	for _, p := range processes {
		if err := c.AddProcess(p); err != nil {
			return nil, err
		}
	}
	if err := c.Link(); err != nil {
		return nil, fmt.Errorf("link catalog: %w", err)
	}
	return c, nil
}

// NewMarket 样例世界的市场快照
func NewMarket() *ecosim.Market {
	m := ecosim.NewMarket()
	m.SetProduct(GoodTime, ecosim.ProductInfo{})
	m.SetProduct(GoodGrain, ecosim.ProductInfo{Price: 1, Salability: 0.8})
	m.SetProduct(GoodFruit, ecosim.ProductInfo{Price: 1, Salability: 0.6})
	m.SetProduct(GoodCloth, ecosim.ProductInfo{Price: 2, Salability: 0.5})
	m.SetProduct(GoodCabin, ecosim.ProductInfo{Price: 6, Salability: 0.2})
	m.SetProduct(GoodFirewood, ecosim.ProductInfo{Price: 0.5, Salability: 0.7})
	m.SetProduct(GoodCoin, ecosim.ProductInfo{Price: 1, Salability: 1, IsCurrency: true})
	m.SetProduct(GoodAsh, ecosim.ProductInfo{Price: 0.1, Salability: 0.1})
	m.SetSalePriority([]int32{GoodCoin})
	return m
}

// Templates 样例世界的需求模板
// 说明：物种模板人人都有，文化与理念模板按人口构成占比加权
func Templates() []ecosim.DesireTemplate {
	return []ecosim.DesireTemplate{
		{Source: TemplateSpecies, Desires: []ecosim.Desire{
			{Item: ecosim.ClassItem(ClassFood), StartTier: 0, Step: 3, Amount: 2},
			{Item: ecosim.WantItem(WantWarmth), StartTier: 1, EndTier: lo.ToPtr(10), Step: 3, Amount: 1},
		}},
		{Source: TemplateCulture, Desires: []ecosim.Desire{
			{Item: ecosim.ProductItem(GoodCloth), StartTier: 2, EndTier: lo.ToPtr(20), Step: 6, Amount: 1},
			{Item: ecosim.WantItem(WantShelter), StartTier: 4, Amount: 1},
		}},
		{Source: TemplateIdeology, Desires: []ecosim.Desire{
			{Item: ecosim.ProductItem(GoodCoin), StartTier: 6, EndTier: lo.ToPtr(30), Step: 4, Amount: 4},
		}},
	}
}
