package collector

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Extractor 从解析后的首页中提取一条 NewsItem，每个站点一个实现
type Extractor interface {
	Extract(doc *goquery.Document) (NewsItem, error)
}

// ExtractorFunc 让普通函数满足 Extractor
type ExtractorFunc func(doc *goquery.Document) (NewsItem, error)

func (f ExtractorFunc) Extract(doc *goquery.Document) (NewsItem, error) {
	return f(doc)
}

// SelectorExtractor 用 CSS 选择器链描述三个字段。
// 链上每一步都在上一步命中节点内部取第一个匹配，例如 {"h2.post-card__title", "a"}。
type SelectorExtractor struct {
	Title   []string
	Summary []string
	Author  []string
}

func (s SelectorExtractor) Extract(doc *goquery.Document) (NewsItem, error) {
	title, err := chainText(doc.Selection, "title", s.Title)
	if err != nil {
		return NewsItem{}, err
	}
	summary, err := chainText(doc.Selection, "summary", s.Summary)
	if err != nil {
		return NewsItem{}, err
	}
	author, err := chainText(doc.Selection, "author", s.Author)
	if err != nil {
		return NewsItem{}, err
	}
	return NewsItem{Title: title, Summary: summary, Author: author}, nil
}

// Validate 检查三条选择器链都已配置
func (s SelectorExtractor) Validate() error {
	for field, chain := range map[string][]string{"title": s.Title, "summary": s.Summary, "author": s.Author} {
		if len(chain) == 0 {
			return fmt.Errorf("selectors: %s chain is empty", field)
		}
		for _, sel := range chain {
			if strings.TrimSpace(sel) == "" {
				return fmt.Errorf("selectors: %s chain has an empty selector", field)
			}
		}
	}
	return nil
}

func chainText(root *goquery.Selection, field string, chain []string) (string, error) {
	if len(chain) == 0 {
		return "", fmt.Errorf("%s: %w", field, ErrMissingField)
	}
	sel := root
	for _, step := range chain {
		sel = sel.Find(step).First()
		if sel.Length() == 0 {
			return "", fmt.Errorf("%s: no node for %q: %w", field, step, ErrMissingField)
		}
	}
	text := strings.TrimSpace(sel.Text())
	if text == "" {
		return "", fmt.Errorf("%s: empty text at %q: %w", field, strings.Join(chain, " > "), ErrMissingField)
	}
	return text, nil
}

// SelectorsExtractorID 由配置文件提供选择器链的通用提取器
const SelectorsExtractorID = "selectors"

var (
	registryMu sync.RWMutex
	registry   = map[string]Extractor{
		// theintercept.com 首页卡片
		"theintercept": SelectorExtractor{
			Title:   []string{"h3.content-card__title"},
			Summary: []string{"div.content-card__excerpt"},
			Author:  []string{"div.content-card__author"},
		},
		"observer": SelectorExtractor{
			Title:   []string{"h2.post-card__title", "a"},
			Summary: []string{"div.post-card__excerpt"},
			Author:  []string{"div.post-card__byline", "a"},
		},
		// chicagoreader.com 基于 newspack 主题
		"chicagoreader": SelectorExtractor{
			Title:   []string{"h3.entry-title", "a"},
			Summary: []string{"div.newspack-post-subtitle--in-homepage-block"},
			Author:  []string{"span.author.vcard", "a"},
		},
	}
)

// Register 注册一个新站点的提取器；新增站点只需注册并在配置中引用其 id
func Register(id string, ex Extractor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[id] = ex
}

// Lookup 按 id 查找已注册的提取器
func Lookup(id string) (Extractor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ex, ok := registry[id]
	return ex, ok
}

// Registered 返回所有已注册 id（排序后），外加 "selectors"
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ids := make([]string, 0, len(registry)+1)
	for id := range registry {
		ids = append(ids, id)
	}
	ids = append(ids, SelectorsExtractorID)
	sort.Strings(ids)
	return ids
}
