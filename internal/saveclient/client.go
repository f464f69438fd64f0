package saveclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"

	"wikiedit-go-server/internal/rawdeflate"
)

// ========== 客户端保存协议 ==========
// 状态机：PREPARING → POSTING → (SUCCESS | RETRYING_WITHOUT_CACHE_KEY → POSTING | FAILED)
// badtoken 由 token 层透明重试，不占用 badcachekey 的一次重试额度

// Paction 编辑子动作
type Paction string

const (
	PactionSave      Paction = "save"
	PactionSerialize Paction = "serialize"
	PactionDiff      Paction = "diff"
)

// editAction 动作标识，也是响应里的顶层 key
const editAction = "visualeditoredit"

// ErrInvalidResponse 响应结构不完整错误
// 与 HTTP 状态无关：缺字段就是缺字段
var ErrInvalidResponse = errors.New("saveclient: invalid response from server")

// APIError 服务端返回的结构化错误
type APIError struct {
	Code string
	Info string
	Raw  json.RawMessage // 原始响应，供调用方检查
}

func (e *APIError) Error() string {
	return fmt.Sprintf("saveclient: api error %s: %s", e.Code, e.Info)
}

// NoSuccessError result 既不是 success 也没有 error 字段
// 这是给第三方验证码扩展预留的接力信号，调用方自行处理，绝不重试
type NoSuccessError struct {
	Raw json.RawMessage
}

func (e *NoSuccessError) Error() string {
	return "saveclient: response was neither success nor error"
}

// EditResult 编辑动作的成功响应
type EditResult struct {
	Result   string  `json:"result"`
	Paction  Paction `json:"paction"`
	Content  *string `json:"content,omitempty"`
	Diff     *string `json:"diff,omitempty"`
	CacheKey string  `json:"cachekey,omitempty"`
	NewRevID uint    `json:"newrevid,omitempty"`
}

// apiResponse 整个响应信封
type apiResponse struct {
	Edit  *EditResult `json:"visualeditoredit"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// tokenResponse GET /api/tokens 的响应
type tokenResponse struct {
	Query struct {
		Tokens struct {
			CSRFToken string `json:"csrftoken"`
		} `json:"tokens"`
	} `json:"query"`
}

// SaveParams 一次保存动作的参数
// CacheKey 与 HTML 互斥发送：有 CacheKey 时只发 key；
// key 失效重试时回落到 HTML 全文，所以两者都要填
type SaveParams struct {
	Page     string
	HTML     string // 已经过 PrepareHTML 的内容
	CacheKey string
	OldID    uint
	ETag     string // load 时拿到的带标签 ETag，原样回传
	Summary  string
	Extra    map[string]string // 调用方附加字段
}

// Client 保存协议客户端
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	AuthHeader string // Clerk JWT，形如 "Bearer xxx"

	// OnStaleCacheKey 在 badcachekey 重试前回调，调用方借此作废本地缓存的 key
	OnStaleCacheKey func(key string)

	mu        sync.Mutex
	csrfToken string
}

// NewClient 构造函数
func NewClient(baseURL, authHeader string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		AuthHeader: authHeader,
	}
}

// PrepareHTML PREPARING 阶段：消毒 + 压缩
func PrepareHTML(raw string) (string, error) {
	clean, err := SanitizeHTML(raw)
	if err != nil {
		return "", err
	}
	return rawdeflate.Compress(clean)
}

// Save 提交保存
func (c *Client) Save(ctx context.Context, params SaveParams) (*EditResult, error) {
	return c.PostHTML(ctx, PactionSave, params)
}

// Serialize 只做 HTML → wikitext 转换并暂存
func (c *Client) Serialize(ctx context.Context, params SaveParams) (*EditResult, error) {
	return c.PostHTML(ctx, PactionSerialize, params)
}

// Diff 请求与基准版本的 wikitext diff
func (c *Client) Diff(ctx context.Context, params SaveParams) (*EditResult, error) {
	return c.PostHTML(ctx, PactionDiff, params)
}

// PostHTML POSTING 阶段：提交一次编辑动作
// badcachekey 只重试一次；其他 API 错误立即上抛
func (c *Client) PostHTML(ctx context.Context, paction Paction, params SaveParams) (*EditResult, error) {
	result, err := c.postOnce(ctx, paction, params)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == "badcachekey" && params.CacheKey != "" {
		// 服务端的暂存 key 已失效：作废本地 key，去掉 cachekey 重传全文
		log.Printf("[SaveClient] ♻️ cachekey %s 已失效，重传全文", params.CacheKey)
		if c.OnStaleCacheKey != nil {
			c.OnStaleCacheKey(params.CacheKey)
		}
		params.CacheKey = ""
		return c.postOnce(ctx, paction, params)
	}
	return result, err
}

// postOnce 单次提交，badtoken 时换新 token 透明重试一次
func (c *Client) postOnce(ctx context.Context, paction Paction, params SaveParams) (*EditResult, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	result, err := c.doPost(ctx, paction, params, token)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == "badtoken" {
		// token 过期属于鉴权层问题，换新 token 重来，不计入协议重试
		c.mu.Lock()
		c.csrfToken = ""
		c.mu.Unlock()

		token, err = c.token(ctx)
		if err != nil {
			return nil, err
		}
		return c.doPost(ctx, paction, params, token)
	}
	return result, err
}

// doPost 拼 multipart 表单并解析响应
func (c *Client) doPost(ctx context.Context, paction Paction, params SaveParams, token string) (*EditResult, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	fields := map[string]string{
		"action":         editAction,
		"paction":        string(paction),
		"page":           params.Page,
		"token":          token,
		"format":         "json",
		"formatversion":  "2",
		"errorformat":    "html",
		"errorlang":      "uselang",
		"errorsuselocal": "1",
	}
	if params.OldID != 0 {
		fields["oldid"] = strconv.FormatUint(uint64(params.OldID), 10)
	}
	if params.ETag != "" {
		fields["etag"] = params.ETag
	}
	if params.Summary != "" {
		fields["summary"] = params.Summary
	}

	// cachekey 和 html 互斥：不靠 cachekey 时必须带全文，key 可能随时过期
	if params.CacheKey != "" {
		fields["cachekey"] = params.CacheKey
	} else {
		fields["html"] = params.HTML
	}
	for k, v := range params.Extra {
		fields[k] = v
	}

	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/visualeditoredit", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if c.AuthHeader != "" {
		req.Header.Set("Authorization", c.AuthHeader)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return parseResponse(raw)
}

// parseResponse 响应校验
// 顶层 key 缺失、字段残缺 → ErrInvalidResponse（与 HTTP 状态无关）
// result != success 且没有 error → NoSuccessError（验证码接力信号）
func parseResponse(raw []byte) (*EditResult, error) {
	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, ErrInvalidResponse
	}

	if parsed.Error != nil {
		return nil, &APIError{Code: parsed.Error.Code, Info: parsed.Error.Info, Raw: raw}
	}
	if parsed.Edit == nil {
		return nil, ErrInvalidResponse
	}
	if parsed.Edit.Result != "success" {
		return nil, &NoSuccessError{Raw: raw}
	}

	// 按 paction 校验必需字段
	switch parsed.Edit.Paction {
	case PactionSave, PactionSerialize:
		if parsed.Edit.Content == nil {
			return nil, ErrInvalidResponse
		}
	case PactionDiff:
		if parsed.Edit.Diff == nil {
			return nil, ErrInvalidResponse
		}
	default:
		return nil, ErrInvalidResponse
	}

	return parsed.Edit, nil
}

// token 懒加载 CSRF token，带缓存
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.csrfToken
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/tokens", nil)
	if err != nil {
		return "", err
	}
	if c.AuthHeader != "" {
		req.Header.Set("Authorization", c.AuthHeader)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", ErrInvalidResponse
	}
	if parsed.Query.Tokens.CSRFToken == "" {
		return "", ErrInvalidResponse
	}

	c.mu.Lock()
	c.csrfToken = parsed.Query.Tokens.CSRFToken
	c.mu.Unlock()
	return parsed.Query.Tokens.CSRFToken, nil
}
