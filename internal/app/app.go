package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/LJTian/NewsWatch/internal/collector"
	"github.com/LJTian/NewsWatch/internal/config"
	"github.com/LJTian/NewsWatch/internal/delivery"
	"github.com/LJTian/NewsWatch/internal/queue"
	"github.com/LJTian/NewsWatch/internal/scheduler"
	"github.com/LJTian/NewsWatch/internal/storage"
	"golang.org/x/sync/errgroup"
)

// App 持有一次运行所需的全部组件。队列在这里创建，显式注入调度器与消费者。
type App struct {
	Config    *config.Config
	Queue     *queue.DeliveryQueue
	Scheduler *scheduler.Scheduler
	Consumer  *delivery.Consumer

	closers []io.Closer
}

// New 组装组件；out 为文本输出目标（通常是 stdout）
func New(cfg *config.Config, out io.Writer) (*App, error) {
	a := &App{Config: cfg, Queue: queue.New()}

	transport := collector.NewCollyTransport(cfg.RequestTimeout, cfg.UserAgent)
	fetchers, err := BuildFetchers(cfg.Sources, transport, collector.LogReporter{})
	if err != nil {
		return nil, err
	}

	schedule, err := scheduler.ParseSchedule(cfg.CronSpec, cfg.PollInterval)
	if err != nil {
		return nil, err
	}
	a.Scheduler, err = scheduler.New(fetchers, schedule, a.Queue)
	if err != nil {
		return nil, err
	}

	sink, err := a.initSinks(out)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Consumer = delivery.NewConsumer(a.Queue, sink)
	return a, nil
}

// BuildFetchers 按配置顺序为每个源创建 SourceFetcher
func BuildFetchers(sources []config.Source, transport collector.Transport, reporter collector.Reporter) ([]collector.Fetcher, error) {
	fetchers := make([]collector.Fetcher, 0, len(sources))
	for _, src := range sources {
		ex, err := resolveExtractor(src)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", src.Name, err)
		}
		fetchers = append(fetchers, collector.NewSourceFetcher(src.Name, src.URL, ex, transport, reporter))
	}
	return fetchers, nil
}

func resolveExtractor(src config.Source) (collector.Extractor, error) {
	if src.Extractor == config.SelectorsExtractor {
		if src.Selectors == nil {
			return nil, errors.New("selectors extractor needs a selectors block")
		}
		ex := collector.SelectorExtractor{
			Title:   src.Selectors.Title,
			Summary: src.Selectors.Summary,
			Author:  src.Selectors.Author,
		}
		if err := ex.Validate(); err != nil {
			return nil, err
		}
		return ex, nil
	}
	ex, ok := collector.Lookup(src.Extractor)
	if !ok {
		return nil, fmt.Errorf("unknown extractor %q (known: %v)", src.Extractor, collector.Registered())
	}
	return ex, nil
}

func (a *App) initSinks(out io.Writer) (delivery.Sink, error) {
	sinks := delivery.MultiSink{delivery.NewTextSink(out)}

	if a.Config.RedisAddr != "" {
		rs := storage.NewRedisSink(a.Config.RedisAddr, a.Config.RedisListKey, a.Config.RedisListMax)
		sinks = append(sinks, rs)
		a.closers = append(a.closers, rs)
		log.Printf("redis sink enabled: %s key=%s", a.Config.RedisAddr, a.Config.RedisListKey)
	}
	if a.Config.PostgresDSN != "" {
		archive, err := storage.OpenArchive(a.Config.PostgresDSN)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, archive)
		a.closers = append(a.closers, archive)
		log.Println("postgres archive enabled")
	}

	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

// Run 同时运行调度器与消费者，直到 ctx 结束。
// 消费者退出后取消调度器并等待其返回。
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Scheduler.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return a.Consumer.Run(gctx)
	})
	return g.Wait()
}

// RunOnce 执行一轮采集并输出本轮入队的全部记录，返回输出条数
func (a *App) RunOnce(ctx context.Context) int {
	a.Scheduler.RunOnce(ctx)
	return a.Consumer.Drain(ctx)
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
