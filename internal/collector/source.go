package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Reporter 接收被隔离的抓取/提取失败
type Reporter interface {
	Report(err error)
}

// LogReporter 直接写日志，按失败类型区分前缀
type LogReporter struct{}

func (LogReporter) Report(err error) {
	switch {
	case IsFetchError(err):
		log.Printf("fetch failed: %v", err)
	case IsExtractError(err):
		// 多半是站点改版，选择器需要更新
		log.Printf("extract failed: %v", err)
	default:
		log.Printf("source error: %v", err)
	}
}

// SourceFetcher 绑定一个首页 URL 与其提取器，启动时创建，之后只读
type SourceFetcher struct {
	name      string
	url       string
	extractor Extractor
	transport Transport
	reporter  Reporter
}

func NewSourceFetcher(name, url string, extractor Extractor, transport Transport, reporter Reporter) *SourceFetcher {
	if reporter == nil {
		reporter = LogReporter{}
	}
	return &SourceFetcher{
		name:      name,
		url:       url,
		extractor: extractor,
		transport: transport,
		reporter:  reporter,
	}
}

func (f *SourceFetcher) Name() string {
	return f.name
}

// Fetch 不做重试，失败等下一轮
func (f *SourceFetcher) Fetch(ctx context.Context) (NewsItem, bool) {
	body, err := f.transport.Get(ctx, f.url)
	if err != nil {
		f.reporter.Report(&FetchError{URL: f.url, Err: err})
		return NewsItem{}, false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		f.reporter.Report(&ExtractError{URL: f.url, Err: fmt.Errorf("parse html: %w", err)})
		return NewsItem{}, false
	}

	item, err := f.extract(doc)
	if err != nil {
		f.reporter.Report(&ExtractError{URL: f.url, Err: err})
		return NewsItem{}, false
	}
	return item, true
}

func (f *SourceFetcher) extract(doc *goquery.Document) (item NewsItem, err error) {
	// 第三方提取器 panic 也按提取失败处理，不影响其他源
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()

	item, err = f.extractor.Extract(doc)
	if err != nil {
		return NewsItem{}, err
	}
	item = clean(item)
	switch {
	case item.Title == "":
		return NewsItem{}, fmt.Errorf("title: %w", ErrMissingField)
	case item.Summary == "":
		return NewsItem{}, fmt.Errorf("summary: %w", ErrMissingField)
	case item.Author == "":
		return NewsItem{}, fmt.Errorf("author: %w", ErrMissingField)
	}
	return item, nil
}

// clean 规范为合法 UTF-8 并去掉首尾空白
func clean(it NewsItem) NewsItem {
	return NewsItem{
		Title:   strings.TrimSpace(strings.ToValidUTF8(it.Title, "\uFFFD")),
		Summary: strings.TrimSpace(strings.ToValidUTF8(it.Summary, "\uFFFD")),
		Author:  strings.TrimSpace(strings.ToValidUTF8(it.Author, "\uFFFD")),
	}
}

// IsFetchError / IsExtractError 方便调用方区分失败类型
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

func IsExtractError(err error) bool {
	var ee *ExtractError
	return errors.As(err, &ee)
}
