package parsoid

import "strings"

// Envelope 转换服务的统一响应信封
// Headers 的 key 一律小写，由构造方保证
type Envelope struct {
	Code    int               `json:"code"`    // HTTP 状态码
	Reason  string            `json:"reason"`  // 状态描述
	Headers map[string]string `json:"headers"` // 响应头（key 小写）
	Body    string            `json:"body"`    // 响应正文
	Error   string            `json:"error,omitempty"` // 上游业务错误，非空即终止本次请求
}

// ETag 读取信封里的 etag 头，没有则返回空串
func (e *Envelope) ETag() string {
	if e.Headers == nil {
		return ""
	}
	return e.Headers["etag"]
}

// SetETag 写回 etag 头
func (e *Envelope) SetETag(etag string) {
	if e.Headers == nil {
		e.Headers = make(map[string]string)
	}
	e.Headers["etag"] = etag
}

// CacheHit 判断响应是否命中了边缘缓存
// x-cache 头里出现 hit 子串即视为命中（大小写按上游原样）
func (e *Envelope) CacheHit() bool {
	if e.Headers == nil {
		return false
	}
	return strings.Contains(e.Headers["x-cache"], "hit")
}
