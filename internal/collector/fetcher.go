package collector

import (
	"context"
	"errors"
	"fmt"
)

// NewsItem 是从站点首页提取出的一条文章摘要。
// 三个字段都参与相等比较，两条内容一致的记录即视为同一条（不区分来源）。
type NewsItem struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Author  string `json:"author"`
}

// Fetcher 抽象每一个数据源：一次调用完成一轮 抓取 → 解析 → 提取。
// 失败在内部上报，不向调用方返回，返回 false 表示本轮没有记录。
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) (NewsItem, bool)
}

// FetchError 网络层失败：连接错误、超时、非 2xx 状态码
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractError 解析或字段提取失败，通常意味着站点改版
type ExtractError struct {
	URL string
	Err error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// ErrMissingField 表示期望的节点不存在或文本为空
var ErrMissingField = errors.New("missing field")
