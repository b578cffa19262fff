package delivery

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/LJTian/NewsWatch/internal/collector"
)

// Separator 两条记录之间的分隔线
var Separator = strings.Repeat("-", 50)

// Sink 消费一条已出队的记录
type Sink interface {
	Deliver(ctx context.Context, item collector.NewsItem) error
}

// TextSink 以纯文本逐行输出，每条记录一次性写入，不会出现半条
type TextSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

func (s *TextSink) Deliver(_ context.Context, item collector.NewsItem) error {
	block := Render(item)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, block)
	return err
}

// Render 返回一条记录的文本块（含结尾分隔线）
func Render(item collector.NewsItem) string {
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(item.Title)
	b.WriteString("\nSummary: ")
	b.WriteString(item.Summary)
	b.WriteString("\nAuthor: ")
	b.WriteString(item.Author)
	b.WriteString("\n")
	b.WriteString(Separator)
	b.WriteString("\n")
	return b.String()
}

// MultiSink 依次投递到多个 sink，全部执行后返回合并的错误
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, item collector.NewsItem) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, item); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
