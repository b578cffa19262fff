package delivery

import (
	"context"
	"log"

	"github.com/LJTian/NewsWatch/internal/queue"
)

// Consumer 从投递队列取出记录交给 sink，直到 ctx 结束。
// 队列为空时阻塞等待，不做空转轮询。
type Consumer struct {
	queue *queue.DeliveryQueue
	sink  Sink
}

func NewConsumer(q *queue.DeliveryQueue, sink Sink) *Consumer {
	return &Consumer{queue: q, sink: sink}
}

func (c *Consumer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			log.Printf("consumer stopped, %d records left in queue", c.queue.Len())
			return nil
		}
		item, err := c.queue.Pop(ctx)
		if err != nil {
			// 只有 ctx 结束才会出错
			log.Printf("consumer stopped, %d records left in queue", c.queue.Len())
			return nil
		}
		// 已取出的记录完整投递后再检查取消
		if err := c.sink.Deliver(context.WithoutCancel(ctx), item); err != nil {
			log.Printf("deliver %q error: %v", item.Title, err)
		}
	}
}

// Drain 把当前队列中已有的记录全部投递，不等待新记录
func (c *Consumer) Drain(ctx context.Context) int {
	n := 0
	for !c.queue.IsEmpty() {
		item, err := c.queue.PopFront()
		if err != nil {
			break
		}
		if err := c.sink.Deliver(ctx, item); err != nil {
			log.Printf("deliver %q error: %v", item.Title, err)
		}
		n++
	}
	return n
}
