package container

import "container/heap"

// item 优先队列中单个元素
// 说明：seq记录入队顺序，优先级相同时先入队者先出队
type item[T any] struct {
	Value    T       // 元素的值
	Priority float64 // 元素在队列中的优先级（越小越优先）
	seq      uint64  // 入队序号
	index    int     // 项在堆中的索引，由heap.Interface方法维护
}

// priorityQueue 实现了 heap.Interface
type priorityQueue[T any] []*item[T]

func (pq priorityQueue[T]) Len() int { return len(pq) }

// Less 比较两个元素的优先级
// 说明：优先级数值小者在前，相同则按入队顺序，保证出队顺序是确定的
func (pq priorityQueue[T]) Less(i, j int) bool {
	if pq[i].Priority != pq[j].Priority {
		return pq[i].Priority < pq[j].Priority
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue[T]) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue[T]) Push(x any) {
	n := len(*pq)
	item := x.(*item[T])
	item.index = n
	*pq = append(*pq, item)
}

func (pq *priorityQueue[T]) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // 避免内存泄漏
	item.index = -1 // 为了安全起见
	*pq = old[0 : n-1]
	return item
}

// PriorityQueue 稳定优先队列
// 功能：按优先级从小到大出队，同优先级保持入队顺序
// 说明：撮合方用它在挂单中挑选卖方（挂单量大者优先，相同则先挂单者优先）
type PriorityQueue[T any] struct {
	queue   priorityQueue[T]
	nextSeq uint64
}

// NewPriorityQueue 创建优先队列
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{queue: make(priorityQueue[T], 0)}
}

// Len 获取当前队列长度
func (q *PriorityQueue[T]) Len() int {
	return len(q.queue)
}

// Empty 队列是否为空
func (q *PriorityQueue[T]) Empty() bool {
	return len(q.queue) == 0
}

// First 获取第一个元素（优先级数值最小的元素），不移除
// 说明：只有在Heapify或全部使用HeapPush之后结果才有意义
func (q *PriorityQueue[T]) First() T {
	return q.queue[0].Value
}

// Push 加入元素（简单添加，不维护堆结构）
// 说明：批量添加后需要调用Heapify()
func (q *PriorityQueue[T]) Push(value T, priority float64) {
	q.queue = append(q.queue, &item[T]{
		Value:    value,
		Priority: priority,
		seq:      q.nextSeq,
	})
	q.nextSeq++
}

// Heapify 重新构建堆
func (q *PriorityQueue[T]) Heapify() {
	heap.Init(&q.queue)
}

// HeapPush 加入元素（堆操作）
func (q *PriorityQueue[T]) HeapPush(value T, priority float64) {
	heap.Push(&q.queue, &item[T]{
		Value:    value,
		Priority: priority,
		seq:      q.nextSeq,
	})
	q.nextSeq++
}

// HeapPop 弹出优先级最高的元素（堆操作）
// 返回：value-元素值，priority-元素优先级
func (q *PriorityQueue[T]) HeapPop() (value T, priority float64) {
	item := heap.Pop(&q.queue).(*item[T])
	return item.Value, item.Priority
}

// Drain 按出队顺序弹出全部元素
func (q *PriorityQueue[T]) Drain() []T {
	values := make([]T, 0, q.Len())
	for !q.Empty() {
		v, _ := q.HeapPop()
		values = append(values, v)
	}
	return values
}
