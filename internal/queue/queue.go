package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/LJTian/NewsWatch/internal/collector"
)

// ErrEmptyQueue 对空队列调用 PopFront；按文档的消费方式不应出现
var ErrEmptyQueue = errors.New("queue: empty")

// DeliveryQueue 无界 FIFO，按 NewsItem 整体相等去重。
// 生产者（调度器）与消费者（渲染循环）在不同 goroutine 中共享同一个实例。
//
// 去重只针对"当前仍在队列中"的元素：已经被取走的记录之后再次出现会重新入队。
type DeliveryQueue struct {
	mu     sync.Mutex
	items  []collector.NewsItem
	member map[collector.NewsItem]struct{}
	// 容量为 1 的唤醒信号，Pop 阻塞时等待
	notify chan struct{}
}

func New() *DeliveryQueue {
	return &DeliveryQueue{
		member: make(map[collector.NewsItem]struct{}),
		notify: make(chan struct{}, 1),
	}
}

// PushIfAbsent 检查与追加在同一把锁内完成；返回是否真正入队
func (q *DeliveryQueue) PushIfAbsent(item collector.NewsItem) bool {
	q.mu.Lock()
	if _, ok := q.member[item]; ok {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	q.member[item] = struct{}{}
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// PopFront 非阻塞取出队首
func (q *DeliveryQueue) PopFront() (collector.NewsItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *DeliveryQueue) popLocked() (collector.NewsItem, error) {
	if len(q.items) == 0 {
		return collector.NewsItem{}, ErrEmptyQueue
	}
	item := q.items[0]
	q.items[0] = collector.NewsItem{}
	q.items = q.items[1:]
	delete(q.member, item)
	if len(q.items) == 0 {
		// 释放底层数组，避免长时间运行后切片头部一直前移
		q.items = nil
	}
	return item, nil
}

// Pop 阻塞直到有元素或 ctx 结束。ctx 已结束时即使队列非空也直接返回，
// 剩余积压留在队列里不再取出
func (q *DeliveryQueue) Pop(ctx context.Context) (collector.NewsItem, error) {
	for {
		if err := ctx.Err(); err != nil {
			return collector.NewsItem{}, err
		}
		q.mu.Lock()
		item, err := q.popLocked()
		remaining := len(q.items)
		q.mu.Unlock()
		if err == nil {
			if remaining > 0 {
				// 还有剩余，把信号续上，其他等待者不会漏掉
				select {
				case q.notify <- struct{}{}:
				default:
				}
			}
			return item, nil
		}

		select {
		case <-ctx.Done():
			return collector.NewsItem{}, ctx.Err()
		case <-q.notify:
		}
	}
}

func (q *DeliveryQueue) IsEmpty() bool {
	return q.Len() == 0
}

func (q *DeliveryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *DeliveryQueue) snapshot() []collector.NewsItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]collector.NewsItem, len(q.items))
	copy(out, q.items)
	return out
}
