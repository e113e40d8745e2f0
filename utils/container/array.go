package container

import (
	"sync"
)

// IIncrementalItem 支持增量更新的元素接口
// 说明：元素需要记住自己在数组中的位置，用于O(1)标记删除
type IIncrementalItem interface {
	Index() int         // 获取元素的索引
	SetIndex(index int) // 设置元素的索引
}

// IncrementalItemBase 增量元素基类，可以作为嵌入字段快速实现IIncrementalItem
type IncrementalItemBase struct {
	index int
}

func (b *IncrementalItemBase) Index() int {
	return b.index
}

func (b *IncrementalItemBase) SetIndex(index int) {
	b.index = index
}

// IncrementalArray 增量数组
// 功能：在模拟日之间批量加入、移除元素，日内数据保持不变
// 说明：Add/Remove只登记操作，Prepare时统一生效；Prepare保持剩余元素的相对顺序，
// 使每天遍历居民的顺序可复现
type IncrementalArray[T IIncrementalItem] struct {
	data        []T
	add         []T
	remove      []T
	addMutex    sync.Mutex
	removeMutex sync.Mutex
}

// NewIncrementalArray 创建增量数组
func NewIncrementalArray[T IIncrementalItem]() *IncrementalArray[T] {
	return &IncrementalArray[T]{
		data:   make([]T, 0),
		add:    make([]T, 0),
		remove: make([]T, 0),
	}
}

// Len 获取当前数组长度
func (a *IncrementalArray[T]) Len() int {
	return len(a.data)
}

// Data 获取已生效的数据
func (a *IncrementalArray[T]) Data() []T {
	return a.data
}

// Add 增加元素（等到Prepare时才会真正增加）
func (a *IncrementalArray[T]) Add(value T) {
	a.addMutex.Lock()
	defer a.addMutex.Unlock()
	a.add = append(a.add, value)
}

// Remove 删除元素（等到Prepare时才会真正删除）
func (a *IncrementalArray[T]) Remove(value T) {
	a.removeMutex.Lock()
	defer a.removeMutex.Unlock()
	a.remove = append(a.remove, value)
}

// Pending 返回尚未生效的增加与删除数量
func (a *IncrementalArray[T]) Pending() (added int, removed int) {
	a.addMutex.Lock()
	added = len(a.add)
	a.addMutex.Unlock()
	a.removeMutex.Lock()
	removed = len(a.remove)
	a.removeMutex.Unlock()
	return
}

// Prepare 执行增量操作
// 算法说明：
// 1. 按索引标记待删除的元素（重复删除只生效一次）
// 2. 顺序压缩数组，跳过被标记的元素
// 3. 将待增加的元素按登记顺序追加到末尾
// 4. 重新设置所有元素的索引并清空待处理列表
func (a *IncrementalArray[T]) Prepare() {
	a.addMutex.Lock()
	defer a.addMutex.Unlock()
	a.removeMutex.Lock()
	defer a.removeMutex.Unlock()

	if len(a.remove) > 0 {
		drop := make(map[int]struct{}, len(a.remove))
		for _, x := range a.remove {
			ind := x.Index()
			if ind >= 0 && ind < len(a.data) {
				drop[ind] = struct{}{}
			}
		}
		kept := a.data[:0]
		for i, x := range a.data {
			if _, ok := drop[i]; !ok {
				kept = append(kept, x)
			}
		}
		// 清理尾部引用，避免内存泄漏
		var zero T
		for i := len(kept); i < len(a.data); i++ {
			a.data[i] = zero
		}
		a.data = kept
	}
	a.data = append(a.data, a.add...)
	for i, x := range a.data {
		x.SetIndex(i)
	}

	a.add = []T{}
	a.remove = []T{}
}
