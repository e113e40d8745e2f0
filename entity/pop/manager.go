package pop

import (
	"fmt"
	"sync"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/container"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/input"
)

// PopManager Pop管理器
// 功能：管理所有居民，提供创建、查找、日间增删等功能
type PopManager struct {
	ctx entity.ITaskContext

	data    map[int32]*Pop
	dataMtx sync.RWMutex

	// 参与模拟的居民，日间增删
	pops *container.IncrementalArray[*Pop]

	templates []ecosim.DesireTemplate
	freeTime  FreeTimeFunc
}

// NewManager 创建Pop管理器实例
func NewManager(ctx entity.ITaskContext) *PopManager {
	return &PopManager{
		ctx:  ctx,
		data: make(map[int32]*Pop),
		pops: container.NewIncrementalArray[*Pop](),
	}
}

// Init 初始化所有Pop
// 功能：按人口构成合并需求模板，并行建立账本并完成初次筛选
// 参数：seeds-居民初始化数据，templates-需求模板
// 说明：ID重复属于数据错误，直接panic
func (m *PopManager) Init(seeds []input.PopSeed, templates []ecosim.DesireTemplate) {
	m.templates = templates
	m.pops = container.NewIncrementalArray[*Pop]()
	pops := parallel.GoMap(seeds, func(seed input.PopSeed) *Pop {
		return m.newPop(seed)
	})
	m.dataMtx.Lock()
	m.data = make(map[int32]*Pop, len(pops))
	for _, p := range pops {
		if _, ok := m.data[p.id]; ok {
			log.Panicf("Pop ID %v already exists!", p.id)
		}
		m.data[p.id] = p
		m.pops.Add(p)
	}
	m.dataMtx.Unlock()
	m.pops.Prepare()
	log.Infof("init %d pops", len(pops))
}

func (m *PopManager) newPop(seed input.PopSeed) *Pop {
	desires := ecosim.MergeDesireTemplates(m.templates, seed.Cohort)
	p := New(m.ctx, seed.ID, desires, seed.Holdings, seed.Employer)
	p.SetFreeTime(m.freeTime)
	return p
}

// SetFreeTime 设置所有居民（包括之后加入的）的空闲时间行为
func (m *PopManager) SetFreeTime(fn FreeTimeFunc) {
	m.freeTime = fn
	for _, p := range m.pops.Data() {
		p.SetFreeTime(fn)
	}
}

// Get 根据ID获取Pop实例，如果不存在则panic
func (m *PopManager) Get(id int32) entity.IPop {
	p, err := m.GetOrError(id)
	if err != nil {
		log.Panic(err)
	}
	return p
}

// GetOrError 根据ID获取Pop实例，如果不存在则返回错误
func (m *PopManager) GetOrError(id int32) (entity.IPop, error) {
	m.dataMtx.RLock()
	defer m.dataMtx.RUnlock()
	if p, ok := m.data[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("no id %d in pop data", id)
}

// Pops 当前参与模拟的全部居民
func (m *PopManager) Pops() []entity.IPop {
	return lo.Map(m.pops.Data(), func(p *Pop, _ int) entity.IPop { return p })
}

// Add 加入新居民（下一次Prepare时生效）
func (m *PopManager) Add(seed input.PopSeed) (entity.IPop, error) {
	m.dataMtx.Lock()
	defer m.dataMtx.Unlock()
	if _, ok := m.data[seed.ID]; ok {
		return nil, fmt.Errorf("pop %d already exists", seed.ID)
	}
	p := m.newPop(seed)
	m.data[seed.ID] = p
	m.pops.Add(p)
	return p, nil
}

// Remove 移除居民（下一次Prepare时生效），同时取消其总线订阅
func (m *PopManager) Remove(id int32) error {
	m.dataMtx.Lock()
	defer m.dataMtx.Unlock()
	p, ok := m.data[id]
	if !ok {
		return fmt.Errorf("pop %d not found", id)
	}
	delete(m.data, id)
	m.pops.Remove(p)
	p.mailbox.Close()
	return nil
}

// SetCohort 人口构成变化：重新合并需求模板并替换需求阶梯
func (m *PopManager) SetCohort(id int32, cohort map[string]float64) error {
	m.dataMtx.RLock()
	p, ok := m.data[id]
	m.dataMtx.RUnlock()
	if !ok {
		return fmt.Errorf("pop %d not found", id)
	}
	p.property.SetDesires(ecosim.MergeDesireTemplates(m.templates, cohort), m.ctx.Catalog())
	return nil
}

// Prepare 准备阶段：生效日间的增删，并行重新筛选账本
func (m *PopManager) Prepare() {
	m.pops.Prepare()
	catalog := m.ctx.Catalog()
	parallel.GoFor(m.pops.Data(), func(p *Pop) {
		if !p.property.IsSifted {
			p.property.SiftAll(catalog)
		}
	})
}
