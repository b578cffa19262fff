package collector

import (
	"context"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultUserAgent      = "NewsWatchBot/1.0"
	maxBodyBytes          = 4 << 20 // 4MB，首页 HTML 足够
)

// Transport 负责按 URL 取回原始文档
type Transport interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// CollyTransport 基于 colly 的 HTTP 实现。每次请求新建 collector，避免 colly 的
// 已访问 URL 记录导致同一首页第二轮被跳过。
type CollyTransport struct {
	Timeout   time.Duration
	UserAgent string
}

func NewCollyTransport(timeout time.Duration, userAgent string) *CollyTransport {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &CollyTransport{Timeout: timeout, UserAgent: userAgent}
}

func (t *CollyTransport) Get(ctx context.Context, url string) ([]byte, error) {
	c := colly.NewCollector(
		colly.UserAgent(t.UserAgent),
		// 超过上限的部分直接截断，截断后的 HTML 照常解析；文章链接都在首页前部
		colly.MaxBodySize(maxBodyBytes),
	)
	c.SetRequestTimeout(t.Timeout)
	// colly 本身不接收 context，通过 RoundTripper 把取消信号挂到请求上
	c.WithTransport(&contextTransport{ctx: ctx, base: http.DefaultTransport})

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	// 状态码 >= 203 时 colly 的 Visit 会返回错误
	if err := c.Visit(url); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return body, nil
}

type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}
