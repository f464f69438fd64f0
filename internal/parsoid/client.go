package parsoid

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PageRef 页面标识
type PageRef struct {
	Title string
}

// RevisionRef 版本标识：页面 + 具体版本 ID
// RevID 为 0 表示最新版本（由上层解析后填入真实 ID）
type RevisionRef struct {
	Page  PageRef
	RevID uint
}

// Client 转换服务客户端接口
// 三个操作分别对应：取页面 HTML、HTML 转 wikitext、wikitext 转 HTML
type Client interface {
	// GetPageHTML 获取指定版本渲染出的 HTML
	GetPageHTML(ctx context.Context, rev RevisionRef, targetLanguage string) (*Envelope, error)

	// TransformHTML 把编辑后的 HTML 转回 wikitext
	// baseRevID 为 0 表示不基于任何版本；etag 为空表示调用方没有 etag
	TransformHTML(ctx context.Context, page PageRef, targetLanguage, html string, baseRevID uint, etag string) (*Envelope, error)

	// TransformWikitext 把 wikitext 渲染成 HTML
	// stash 为 true 时要求服务端暂存解析结果
	TransformWikitext(ctx context.Context, page PageRef, targetLanguage, wikitext string, bodyOnly bool, baseRevID uint, stash bool) (*Envelope, error)
}

// directClient 直连转换服务 REST v3 API 的实现
type directClient struct {
	baseURL string
	httpc   *http.Client
}

// NewDirectClient 构造函数
// baseURL 形如 http://parsoid:8000/w/rest.php/localhost/v3
func NewDirectClient(baseURL string, httpc *http.Client) Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &directClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   httpc,
	}
}

// GetPageHTML GET page/html/{title}/{revid}
func (c *directClient) GetPageHTML(ctx context.Context, rev RevisionRef, targetLanguage string) (*Envelope, error) {
	endpoint := fmt.Sprintf("%s/page/html/%s", c.baseURL, url.PathEscape(rev.Page.Title))
	if rev.RevID != 0 {
		endpoint += "/" + strconv.FormatUint(uint64(rev.RevID), 10)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if targetLanguage != "" {
		req.Header.Set("Accept-Language", targetLanguage)
	}

	return c.do(req)
}

// TransformHTML POST transform/html/to/wikitext/{title}[/{revid}]
func (c *directClient) TransformHTML(ctx context.Context, page PageRef, targetLanguage, html string, baseRevID uint, etag string) (*Envelope, error) {
	endpoint := fmt.Sprintf("%s/transform/html/to/wikitext/%s", c.baseURL, url.PathEscape(page.Title))
	if baseRevID != 0 {
		endpoint += "/" + strconv.FormatUint(uint64(baseRevID), 10)
	}

	form := url.Values{}
	form.Set("html", html)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if targetLanguage != "" {
		req.Header.Set("Accept-Language", targetLanguage)
	}
	// 服务端用 If-Match 校验 HTML 是不是它自己发出的那一版
	if etag != "" {
		req.Header.Set("If-Match", etag)
	}

	return c.do(req)
}

// TransformWikitext POST transform/wikitext/to/html/{title}[/{revid}]
func (c *directClient) TransformWikitext(ctx context.Context, page PageRef, targetLanguage, wikitext string, bodyOnly bool, baseRevID uint, stash bool) (*Envelope, error) {
	endpoint := fmt.Sprintf("%s/transform/wikitext/to/html/%s", c.baseURL, url.PathEscape(page.Title))
	if baseRevID != 0 {
		endpoint += "/" + strconv.FormatUint(uint64(baseRevID), 10)
	}

	form := url.Values{}
	form.Set("wikitext", wikitext)
	if bodyOnly {
		form.Set("body_only", "1")
	}
	if stash {
		form.Set("stash", "1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if targetLanguage != "" {
		req.Header.Set("Accept-Language", targetLanguage)
	}

	return c.do(req)
}

// do 发请求并折叠成信封
// 4xx/5xx 不算传输错误：状态码进 Code，错误正文进 Error，由上层决定怎么办
func (c *directClient) do(req *http.Request) (*Envelope, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// 响应头 key 统一转小写
	headers := make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		if len(values) > 0 {
			headers[strings.ToLower(name)] = values[0]
		}
	}

	env := &Envelope{
		Code:    resp.StatusCode,
		Reason:  http.StatusText(resp.StatusCode),
		Headers: headers,
		Body:    string(body),
	}
	if resp.StatusCode >= 400 {
		env.Error = fmt.Sprintf("parsoid-http-%d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return env, nil
}
