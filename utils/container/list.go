package container

import (
	"fmt"
	"log"
)

// ListNode 双向链表中的节点
// 功能：表示FIFO链表中的一个节点
// 说明：节点只能同时属于一个链表，移除后可以重新加入其他链表
type ListNode[T any] struct {
	parent     *List[T]     // 所属链表
	prev, next *ListNode[T] // 前驱和后继节点
	Value      T            // 节点值
}

// NewListNode 创建未挂载的链表节点
func NewListNode[T any](value T) *ListNode[T] {
	return &ListNode[T]{Value: value}
}

// String 获取节点的字符串表示
func (n *ListNode[T]) String() string {
	return fmt.Sprintf("Node{Value:%+v}", n.Value)
}

// Prev 获取节点的前一个节点，如果是第一个节点则返回nil
func (n *ListNode[T]) Prev() *ListNode[T] {
	return n.prev
}

// Next 获取节点的下一个节点，如果是最后一个节点则返回nil
func (n *ListNode[T]) Next() *ListNode[T] {
	return n.next
}

// Parent 获取节点所在的链表
func (n *ListNode[T]) Parent() *List[T] {
	return n.parent
}

// InsertBefore 在节点前插入新节点
// 功能：在当前节点之前插入一个新节点
// 参数：add-要插入的新节点（不能已经属于某个链表）
func (n *ListNode[T]) InsertBefore(add *ListNode[T]) {
	if add.parent != nil {
		log.Panic("insert node who already in list")
	}
	add.parent = n.parent
	add.next = n
	add.prev = n.prev
	n.prev = add
	if add.prev != nil {
		add.prev.next = add
	} else {
		add.parent.head = add
	}
	n.parent.length++
}

// InsertAfter 在节点后插入新节点
// 功能：在当前节点之后插入一个新节点
// 参数：add-要插入的新节点（不能已经属于某个链表）
func (n *ListNode[T]) InsertAfter(add *ListNode[T]) {
	if add.parent != nil {
		log.Panic("insert node who already in list")
	}
	add.parent = n.parent
	add.prev = n
	add.next = n.next
	n.next = add
	if add.next != nil {
		add.next.prev = add
	} else {
		add.parent.tail = add
	}
	n.parent.length++
}

// List 双向链表
// 功能：保持插入顺序的通用双向链表，支持从任意位置O(1)移除
// 说明：邮箱的积压队列基于它实现，移除中间的消息不会打乱其余消息的相对顺序
type List[T any] struct {
	head, tail *ListNode[T] // 头尾节点指针
	length     int          // 链表长度
}

// Values 按顺序获取链表中所有节点的值
func (l *List[T]) Values() []T {
	values := make([]T, l.length)
	for i, node := 0, l.head; node != nil; i, node = i+1, node.next {
		values[i] = node.Value
	}
	return values
}

// Len 获取双向链表长度
func (l *List[T]) Len() int {
	return l.length
}

// PushFront 向链表头部插入节点
func (l *List[T]) PushFront(add *ListNode[T]) {
	if add.parent != nil {
		log.Panic("push front node who already in list")
	}
	add.next = nil
	add.prev = nil
	if l.head == nil {
		add.parent = l
		l.head = add
		l.tail = add
		l.length++
	} else {
		// length++和add.parent在InsertBefore中处理
		l.head.InsertBefore(add)
	}
}

// PushBack 向链表尾部插入节点
func (l *List[T]) PushBack(add *ListNode[T]) {
	if add.parent != nil {
		log.Panic("push back node who already in list")
	}
	add.next = nil
	add.prev = nil
	if l.tail == nil {
		add.parent = l
		l.head = add
		l.tail = add
		l.length++
	} else {
		// length++和add.parent在InsertAfter中处理
		l.tail.InsertAfter(add)
	}
}

// PushBackValue 将值包装成节点后插入链表尾部
func (l *List[T]) PushBackValue(value T) *ListNode[T] {
	node := NewListNode(value)
	l.PushBack(node)
	return node
}

// Remove 从链表中移除节点
// 功能：从链表中删除指定的节点，其余节点相对顺序不变
// 参数：node-要删除的节点，必须属于当前链表
func (l *List[T]) Remove(node *ListNode[T]) {
	if node.parent != l {
		log.Panic("remove node from wrong list")
	}
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	node.parent = nil
	l.length--
}

// PopFront 移除并返回链表头部的值
// 返回：头部的值，链表为空时ok为false
func (l *List[T]) PopFront() (value T, ok bool) {
	if l.head == nil {
		return value, false
	}
	node := l.head
	l.Remove(node)
	return node.Value, true
}

// First 获取链表头部节点，如果链表为空则返回nil
func (l *List[T]) First() *ListNode[T] {
	return l.head
}

// Last 获取链表尾部节点，如果链表为空则返回nil
func (l *List[T]) Last() *ListNode[T] {
	return l.tail
}

// Find 从头开始查找第一个满足条件的节点
// 参数：match-匹配函数
// 返回：第一个匹配的节点，没有则返回nil
func (l *List[T]) Find(match func(T) bool) *ListNode[T] {
	for node := l.head; node != nil; node = node.next {
		if match(node.Value) {
			return node
		}
	}
	return nil
}

// RemoveIf 移除所有满足条件的节点
// 返回：被移除的节点数量
func (l *List[T]) RemoveIf(match func(T) bool) int {
	removed := 0
	for node := l.head; node != nil; {
		next := node.next
		if match(node.Value) {
			l.Remove(node)
			removed++
		}
		node = next
	}
	return removed
}
