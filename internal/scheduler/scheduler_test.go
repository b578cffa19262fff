package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/LJTian/NewsWatch/internal/collector"
	"github.com/LJTian/NewsWatch/internal/queue"
)

// fakeFetcher 按调用次数依次返回预设结果
type fakeFetcher struct {
	name    string
	mu      sync.Mutex
	calls   int
	results []fakeResult
}

type fakeResult struct {
	item collector.NewsItem
	ok   bool
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(context.Context) (collector.NewsItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	if len(f.results) == 0 {
		return collector.NewsItem{}, false
	}
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	r := f.results[idx]
	return r.item, r.ok
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func always(item collector.NewsItem) *fakeFetcher {
	return &fakeFetcher{name: item.Title, results: []fakeResult{{item: item, ok: true}}}
}

func failing(name string) *fakeFetcher {
	return &fakeFetcher{name: name}
}

func TestSingleFetcherOneCycle(t *testing.T) {
	q := queue.New()
	s, err := New([]collector.Fetcher{always(collector.NewsItem{Title: "A", Summary: "B", Author: "C"})}, nil, q)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	stats := s.RunOnce(context.Background())
	if stats.Queued != 1 || stats.Fetched != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	got, err := q.PopFront()
	if err != nil {
		t.Fatalf("PopFront() error: %v", err)
	}
	if got != (collector.NewsItem{Title: "A", Summary: "B", Author: "C"}) {
		t.Fatalf("delivered %+v", got)
	}
	if !q.IsEmpty() {
		t.Fatalf("queue should be empty after one pop")
	}
}

func TestFailingFetcherDoesNotStopOthers(t *testing.T) {
	q := queue.New()
	bad := failing("broken")
	good := always(collector.NewsItem{Title: "X", Summary: "Y", Author: "Z"})
	s, err := New([]collector.Fetcher{bad, good}, nil, q)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	stats := s.RunOnce(context.Background())
	if stats.Failed != 1 || stats.Queued != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
	got, _ := q.PopFront()
	if got.Title != "X" {
		t.Fatalf("queued item = %+v, want the second fetcher's", got)
	}
	if bad.callCount() != 1 || good.callCount() != 1 {
		t.Fatalf("each fetcher should be called once, got %d/%d", bad.callCount(), good.callCount())
	}
}

func TestSameRecordAcrossCyclesStaysSingle(t *testing.T) {
	q := queue.New()
	s, _ := New([]collector.Fetcher{always(collector.NewsItem{Title: "A", Summary: "B", Author: "C"})}, nil, q)

	s.RunOnce(context.Background())
	stats := s.RunOnce(context.Background())

	if q.Len() != 1 {
		t.Fatalf("Len() = %d after two cycles, want 1", q.Len())
	}
	if stats.Duplicates != 1 {
		t.Fatalf("second cycle should count a duplicate, got %+v", stats)
	}
}

func TestRecordRequeuedAfterDelivery(t *testing.T) {
	q := queue.New()
	s, _ := New([]collector.Fetcher{always(collector.NewsItem{Title: "A", Summary: "B", Author: "C"})}, nil, q)

	s.RunOnce(context.Background())
	if _, err := q.PopFront(); err != nil {
		t.Fatalf("PopFront() error: %v", err)
	}
	s.RunOnce(context.Background())

	// 已投递过的记录再次出现会再次入队，没有永久的去重记忆
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (re-queued)", q.Len())
	}
}

func TestOrderFollowsConfiguration(t *testing.T) {
	q := queue.New()
	a := always(collector.NewsItem{Title: "first", Summary: "s", Author: "a"})
	b := always(collector.NewsItem{Title: "second", Summary: "s", Author: "a"})
	s, _ := New([]collector.Fetcher{a, b}, nil, q)

	s.RunOnce(context.Background())
	for _, want := range []string{"first", "second"} {
		got, err := q.PopFront()
		if err != nil {
			t.Fatalf("PopFront() error: %v", err)
		}
		if got.Title != want {
			t.Fatalf("PopFront() = %q, want %q", got.Title, want)
		}
	}
}

func TestMixedOutcomesNeverDuplicate(t *testing.T) {
	q := queue.New()
	x := collector.NewsItem{Title: "X", Summary: "s", Author: "a"}
	y := collector.NewsItem{Title: "Y", Summary: "s", Author: "a"}
	f1 := &fakeFetcher{name: "f1", results: []fakeResult{{x, true}, {}, {y, true}, {x, true}}}
	f2 := &fakeFetcher{name: "f2", results: []fakeResult{{y, true}, {x, true}, {}, {y, true}}}
	s, _ := New([]collector.Fetcher{f1, f2}, nil, q)

	seen := make(map[collector.NewsItem]bool)
	for cycle := 0; cycle < 4; cycle++ {
		stats := s.RunOnce(context.Background())
		for _, f := range []*fakeFetcher{f1, f2} {
			r := f.results[cycle]
			if r.ok {
				seen[r.item] = true
			}
		}
		// 没有弹出时，队列长度等于出现过的不同记录数
		if q.Len() != len(seen) {
			t.Fatalf("cycle %d: Len() = %d, want %d distinct (stats %+v)", cycle, q.Len(), len(seen), stats)
		}
	}
	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	q := queue.New()
	f := always(collector.NewsItem{Title: "A", Summary: "B", Author: "C"})
	s, _ := New([]collector.Fetcher{f}, FixedDelay(10*time.Millisecond), q)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for f.callCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if f.callCount() < 3 {
		t.Fatalf("expected several cycles, got %d", f.callCount())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run() did not stop after cancel")
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
}

func TestRunCancelDuringLongWait(t *testing.T) {
	q := queue.New()
	f := always(collector.NewsItem{Title: "A", Summary: "B", Author: "C"})
	s, _ := New([]collector.Fetcher{f}, FixedDelay(time.Hour), q)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.callCount() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run() should return promptly instead of sleeping the full interval")
	}
}

func TestRunOnceSkipsRemainingAfterCancel(t *testing.T) {
	q := queue.New()
	a := always(collector.NewsItem{Title: "A", Summary: "B", Author: "C"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, _ := New([]collector.Fetcher{a}, nil, q)

	s.RunOnce(ctx)
	if a.callCount() != 0 {
		t.Fatalf("fetcher should not run with a cancelled context")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, nil, queue.New()); err == nil {
		t.Fatalf("New() should reject empty fetcher list")
	}
	if _, err := New([]collector.Fetcher{failing("x")}, nil, nil); err == nil {
		t.Fatalf("New() should reject nil queue")
	}
}

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("", 30*time.Second)
	if err != nil {
		t.Fatalf("ParseSchedule() error: %v", err)
	}
	base := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	if got := s.Next(base); !got.Equal(base.Add(30 * time.Second)) {
		t.Fatalf("Next() = %v, want %v", got, base.Add(30*time.Second))
	}

	// 上一轮在非整秒时刻结束，也要等满整个间隔
	odd := base.Add(700 * time.Millisecond)
	if got := s.Next(odd); got.Sub(odd) != 30*time.Second {
		t.Fatalf("Next() waits %s, want 30s", got.Sub(odd))
	}

	s, err = ParseSchedule("*/5 * * * *", 30*time.Second)
	if err != nil {
		t.Fatalf("ParseSchedule(cron) error: %v", err)
	}
	if got := s.Next(base); !got.Equal(base.Add(5 * time.Minute)) {
		t.Fatalf("cron Next() = %v, want %v", got, base.Add(5*time.Minute))
	}

	if _, err := ParseSchedule("not a cron", time.Second); err == nil {
		t.Fatalf("ParseSchedule() should reject a bad cron spec")
	}
	if _, err := ParseSchedule("", 0); err == nil {
		t.Fatalf("ParseSchedule() should reject zero interval")
	}
}
