package parsoid

import (
	"context"
	"regexp"
)

// ========== 双实现分发装饰器 ==========
// 编辑会话可能跨越很长时间，保存时必须路由回当初加载内容的那个后端。
// 装饰器自身不保存任何会话状态：后端标识藏在 ETag 里随会话流转。

// DefaultBackendTag 直连后端的标识，埋进 ETag 的引号内侧
// 以后接入新后端时在这里扩展标识常量
const DefaultBackendTag = "direct"

// ClientFactory 每次调用时重新解析要用哪个后端
// ⚠️ 刻意不在装饰器里缓存：不同请求的配置可能不同，
// 会话连续性靠 ETag 标签保证，而不是靠装饰器状态
type ClientFactory func() Client

// dispatchClient 装饰 ClientFactory，负责 ETag 打标/去标
type dispatchClient struct {
	factory ClientFactory
}

// NewDispatchClient 构造函数
func NewDispatchClient(factory ClientFactory) Client {
	return &dispatchClient{factory: factory}
}

// GetPageHTML 选后端、取 HTML、给结果 ETag 打标
func (d *dispatchClient) GetPageHTML(ctx context.Context, rev RevisionRef, targetLanguage string) (*Envelope, error) {
	env, err := d.factory().GetPageHTML(ctx, rev, targetLanguage)
	if err != nil {
		return nil, err
	}
	tagEnvelopeETag(env)
	return env, nil
}

// TransformHTML 转发前先把调用方 ETag 上的标签剥掉
// 后端只认它自己发出的原始 ETag
func (d *dispatchClient) TransformHTML(ctx context.Context, page PageRef, targetLanguage, html string, baseRevID uint, etag string) (*Envelope, error) {
	if etag != "" {
		etag = StripETag(etag)
	}
	env, err := d.factory().TransformHTML(ctx, page, targetLanguage, html, baseRevID, etag)
	if err != nil {
		return nil, err
	}
	tagEnvelopeETag(env)
	return env, nil
}

// TransformWikitext 没有入参 ETag，只需给结果打标
func (d *dispatchClient) TransformWikitext(ctx context.Context, page PageRef, targetLanguage, wikitext string, bodyOnly bool, baseRevID uint, stash bool) (*Envelope, error) {
	env, err := d.factory().TransformWikitext(ctx, page, targetLanguage, wikitext, bodyOnly, baseRevID, stash)
	if err != nil {
		return nil, err
	}
	tagEnvelopeETag(env)
	return env, nil
}

// ========== ETag 打标 / 去标 ==========
// 格式：["W/"]"<tag>:<payload>"，W/ 前缀和外层引号永远不动

var (
	// 匹配 ["W/"]"<payload>"，分组 1 为弱校验前缀，分组 2 为引号内载荷
	etagRe = regexp.MustCompile(`^(W/)?"(.*)"$`)

	// 匹配引号后紧跟的 <word>: 标签，去标时整体替换回引号
	stripRe = regexp.MustCompile(`"(\w+):`)
)

// TagETag 在 ETag 的引号内侧埋入后端标识
// 不是合法 ETag 形态时原样返回
func TagETag(etag, tag string) string {
	m := etagRe.FindStringSubmatch(etag)
	if m == nil {
		return etag
	}
	return m[1] + `"` + tag + ":" + m[2] + `"`
}

// StripETag 去掉引号后紧跟的 <word>: 标签
// 幂等：没有标签时原样返回，已去标的再去一次也不变
func StripETag(etag string) string {
	return stripRe.ReplaceAllString(etag, `"`)
}

// tagEnvelopeETag 给信封里的 ETag 打标，没有 ETag 头则什么都不做
func tagEnvelopeETag(env *Envelope) {
	if env == nil {
		return
	}
	etag := env.ETag()
	if etag == "" {
		return
	}
	env.SetETag(TagETag(etag, DefaultBackendTag))
}
