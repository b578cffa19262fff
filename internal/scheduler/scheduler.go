package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/LJTian/NewsWatch/internal/collector"
	"github.com/LJTian/NewsWatch/internal/queue"
	"github.com/robfig/cron/v3"
)

const DefaultInterval = 30 * time.Second

// FixedDelay 从上一轮结束时刻起等满整个间隔。
// cron.Every 会把下一时刻对齐到整秒，实际等待可能比间隔短将近一秒。
type FixedDelay time.Duration

func (d FixedDelay) Next(t time.Time) time.Time { return t.Add(time.Duration(d)) }

// Scheduler 按固定节奏轮询所有数据源，把新记录送进投递队列。
// 一轮内按配置顺序串行抓取；一轮结束后等待 schedule 给出的下一时刻再开始，
// 两轮之间不会重叠。
type Scheduler struct {
	fetchers []collector.Fetcher
	schedule cron.Schedule
	queue    *queue.DeliveryQueue
}

// CycleStats 单轮采集统计
type CycleStats struct {
	Fetched    int
	Queued     int
	Duplicates int
	Failed     int
}

func New(fetchers []collector.Fetcher, schedule cron.Schedule, q *queue.DeliveryQueue) (*Scheduler, error) {
	if len(fetchers) == 0 {
		return nil, fmt.Errorf("scheduler: no fetchers configured")
	}
	if q == nil {
		return nil, fmt.Errorf("scheduler: queue is required")
	}
	if schedule == nil {
		schedule = FixedDelay(DefaultInterval)
	}
	fs := make([]collector.Fetcher, len(fetchers))
	copy(fs, fetchers)
	return &Scheduler{
		fetchers: fs,
		schedule: schedule,
		queue:    q,
	}, nil
}

// ParseSchedule 有 cron 表达式时优先使用，否则按固定间隔
func ParseSchedule(spec string, interval time.Duration) (cron.Schedule, error) {
	if spec != "" {
		s, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
		}
		return s, nil
	}
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", interval)
	}
	return FixedDelay(interval), nil
}

// Run 立即执行首轮，之后一直运行到 ctx 结束
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		s.RunOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}

		now := time.Now()
		wait := s.schedule.Next(now).Sub(now)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("scheduler stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce 执行一轮采集，对外暴露方便手动触发
func (s *Scheduler) RunOnce(ctx context.Context) CycleStats {
	log.Println("start collect cycle...")

	var stats CycleStats
	for _, f := range s.fetchers {
		if ctx.Err() != nil {
			log.Printf("collect cycle interrupted before %s", f.Name())
			return stats
		}

		item, ok := f.Fetch(ctx)
		if !ok {
			stats.Failed++
			continue
		}
		stats.Fetched++

		if s.queue.PushIfAbsent(item) {
			stats.Queued++
			log.Printf("%s: queued %q", f.Name(), item.Title)
		} else {
			stats.Duplicates++
		}
	}

	log.Printf("collect cycle done, fetched=%d queued=%d duplicates=%d failed=%d",
		stats.Fetched, stats.Queued, stats.Duplicates, stats.Failed)
	return stats
}
