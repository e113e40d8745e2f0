package ecosim

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// PartRole 流程部件的角色
type PartRole uint8

const (
	PartInput   PartRole = iota // 投入，执行后被消耗
	PartCapital                 // 资本，执行时占用但不消耗
	PartOutput                  // 产出
)

// ProcessTag 流程标签（位掩码）
type ProcessTag uint8

const (
	TagUse         ProcessTag = 1 << iota // 使用流程：以资本方式使用商品产生欲望
	TagConsumption                        // 消耗流程：消耗商品产生欲望
	TagFailure                            // 损坏流程：商品损坏时的转化
	TagSplash                             // 产出的欲望会外溢给其他居民
)

// ProcessPart 流程部件
type ProcessPart struct {
	Item   Item
	Amount float64 // 每次执行的数量
	Role   PartRole
}

// Process 生产/使用/消耗/损坏流程
type Process struct {
	ID    int32
	Name  string
	Parts []ProcessPart
	Tags  ProcessTag
}

// Has 是否带有指定标签
func (p *Process) Has(tag ProcessTag) bool {
	return p.Tags&tag != 0
}

// OutputOf 每次执行产出的指定物品数量
func (p *Process) OutputOf(item Item) float64 {
	return lo.SumBy(p.Parts, func(part ProcessPart) float64 {
		if part.Role == PartOutput && part.Item == item {
			return part.Amount
		}
		return 0
	})
}

// ProductInputs 返回每次执行需要的商品投入与资本（不含产出）
func (p *Process) ProductInputs() []ProcessPart {
	return lo.Filter(p.Parts, func(part ProcessPart, _ int) bool {
		return part.Role != PartOutput && part.Item.Kind == ItemProduct
	})
}

// HasWantInputs 流程是否需要消耗欲望
func (p *Process) HasWantInputs() bool {
	return lo.ContainsBy(p.Parts, func(part ProcessPart) bool {
		return part.Role != PartOutput && part.Item.Kind == ItemWant
	})
}

// Product 商品定义
type Product struct {
	ID         int32
	Name       string
	Fractional bool              // 是否可分割，不可分割商品只能整数交易
	Class      *int32            // 商品类别
	Wants      map[int32]float64 // 拥有每单位商品带来的欲望满足量

	UseProcesses         []int32 // 使用流程（由Link生成）
	ConsumptionProcesses []int32 // 消耗流程（由Link生成）
	FailureProcess       *int32  // 损坏时执行的流程
	FailureChance        float64 // 每天的损坏比例
}

// Want 欲望定义
type Want struct {
	ID    int32
	Name  string
	Decay float64 // 欲望库存每天的衰减比例

	OwnershipSources   []int32 // 拥有即可满足该欲望的商品
	UseSources         []int32 // 产出该欲望的使用流程
	ConsumptionSources []int32 // 产出该欲望的消耗流程
	ProcessSources     []int32 // 其他产出该欲望的流程
}

// ICatalog 只读的物品/流程目录
type ICatalog interface {
	Product(id int32) (*Product, bool)
	Process(id int32) (*Process, bool)
	Want(id int32) (*Want, bool)
	// 同类别的全部商品，按ID升序
	ClassMembers(class int32) []int32
}

// Catalog 目录的内存实现
// 说明：先Add全部定义，再调用Link生成反向索引；Link之后只读，可被多个协程并发访问
type Catalog struct {
	products  map[int32]*Product
	processes map[int32]*Process
	wants     map[int32]*Want
	classes   map[int32][]int32
	mu        sync.RWMutex
}

// NewCatalog 创建空目录
func NewCatalog() *Catalog {
	return &Catalog{
		products:  make(map[int32]*Product),
		processes: make(map[int32]*Process),
		wants:     make(map[int32]*Want),
		classes:   make(map[int32][]int32),
	}
}

// AddProduct 添加商品
func (c *Catalog) AddProduct(p *Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.products[p.ID]; exists {
		return fmt.Errorf("product %d already exists", p.ID)
	}
	c.products[p.ID] = p
	return nil
}

// AddProcess 添加流程
func (c *Catalog) AddProcess(p *Process) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.processes[p.ID]; exists {
		return fmt.Errorf("process %d already exists", p.ID)
	}
	c.processes[p.ID] = p
	return nil
}

// AddWant 添加欲望
func (c *Catalog) AddWant(w *Want) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.wants[w.ID]; exists {
		return fmt.Errorf("want %d already exists", w.ID)
	}
	c.wants[w.ID] = w
	return nil
}

// Link 生成反向索引
// 功能：根据商品和流程定义，计算类别成员、商品的使用/消耗流程以及欲望的来源
// 返回：引用了不存在的商品或欲望时返回错误
// 算法说明：
// 1. 清空所有派生字段
// 2. 商品的Wants生成欲望的OwnershipSources，Class生成类别成员
// 3. 带Use/Consumption标签的流程，其资本/投入商品记录该流程，其欲望产出记录到欲望来源
// 4. 所有列表按ID升序，保证筛选顺序确定
func (c *Catalog) Link() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.classes = make(map[int32][]int32)
	for _, w := range c.wants {
		w.OwnershipSources, w.UseSources, w.ConsumptionSources, w.ProcessSources = nil, nil, nil, nil
	}
	for _, p := range c.products {
		p.UseProcesses, p.ConsumptionProcesses = nil, nil
	}
	for _, id := range sortedKeys(c.products) {
		p := c.products[id]
		if p.Class != nil {
			c.classes[*p.Class] = append(c.classes[*p.Class], id)
		}
		for _, wid := range sortedKeys(p.Wants) {
			w, ok := c.wants[wid]
			if !ok {
				return fmt.Errorf("product %d references unknown want %d", id, wid)
			}
			w.OwnershipSources = append(w.OwnershipSources, id)
		}
		if p.FailureProcess != nil {
			if _, ok := c.processes[*p.FailureProcess]; !ok {
				return fmt.Errorf("product %d references unknown failure process %d", id, *p.FailureProcess)
			}
		}
	}
	for _, pid := range sortedKeys(c.processes) {
		proc := c.processes[pid]
		for _, part := range proc.Parts {
			switch part.Item.Kind {
			case ItemProduct:
				p, ok := c.products[part.Item.ID]
				if !ok {
					return fmt.Errorf("process %d references unknown product %d", pid, part.Item.ID)
				}
				if proc.Has(TagUse) && part.Role == PartCapital {
					p.UseProcesses = append(p.UseProcesses, pid)
				}
				if proc.Has(TagConsumption) && part.Role == PartInput {
					p.ConsumptionProcesses = append(p.ConsumptionProcesses, pid)
				}
			case ItemWant:
				w, ok := c.wants[part.Item.ID]
				if !ok {
					return fmt.Errorf("process %d references unknown want %d", pid, part.Item.ID)
				}
				if part.Role != PartOutput {
					continue
				}
				switch {
				case proc.Has(TagUse):
					w.UseSources = append(w.UseSources, pid)
				case proc.Has(TagConsumption):
					w.ConsumptionSources = append(w.ConsumptionSources, pid)
				default:
					w.ProcessSources = append(w.ProcessSources, pid)
				}
			}
		}
	}
	for _, w := range c.wants {
		w.UseSources = lo.Uniq(w.UseSources)
		w.ConsumptionSources = lo.Uniq(w.ConsumptionSources)
		w.ProcessSources = lo.Uniq(w.ProcessSources)
	}
	for _, p := range c.products {
		p.UseProcesses = lo.Uniq(p.UseProcesses)
		p.ConsumptionProcesses = lo.Uniq(p.ConsumptionProcesses)
	}
	return nil
}

func (c *Catalog) Product(id int32) (*Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	return p, ok
}

func (c *Catalog) Process(id int32) (*Process, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.processes[id]
	return p, ok
}

func (c *Catalog) Want(id int32) (*Want, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.wants[id]
	return w, ok
}

func (c *Catalog) ClassMembers(class int32) []int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.classes[class]
}

// Products 全部商品ID，升序
func (c *Catalog) Products() []int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.products)
}

// IsFractional 商品是否可分割，未知商品视为可分割
func IsFractional(catalog ICatalog, id int32) bool {
	p, ok := catalog.Product(id)
	return !ok || p.Fractional
}

func sortedKeys[K int32 | int, V any](m map[K]V) []K {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
