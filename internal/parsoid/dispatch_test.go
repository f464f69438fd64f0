package parsoid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ========== 分发装饰器单元测试 ==========
// 用桩后端捕获转发参数，验证打标/去标纪律和工厂的每次重解析

// stubClient 桩后端：记录收到的参数，返回预设信封
type stubClient struct {
	receivedETag string
	calls        int
	envelope     *Envelope
}

func (s *stubClient) GetPageHTML(ctx context.Context, rev RevisionRef, targetLanguage string) (*Envelope, error) {
	s.calls++
	return s.envelope, nil
}

func (s *stubClient) TransformHTML(ctx context.Context, page PageRef, targetLanguage, html string, baseRevID uint, etag string) (*Envelope, error) {
	s.calls++
	s.receivedETag = etag
	return s.envelope, nil
}

func (s *stubClient) TransformWikitext(ctx context.Context, page PageRef, targetLanguage, wikitext string, bodyOnly bool, baseRevID uint, stash bool) (*Envelope, error) {
	s.calls++
	return s.envelope, nil
}

func TestDispatch_GetPageHTML_TagsETag(t *testing.T) {
	stub := &stubClient{envelope: &Envelope{
		Code:    200,
		Headers: map[string]string{"etag": `W/"1219765/abc-def"`},
		Body:    "<html></html>",
	}}
	client := NewDispatchClient(func() Client { return stub })

	env, err := client.GetPageHTML(context.Background(), RevisionRef{Page: PageRef{Title: "Main_Page"}}, "en")

	assert.NoError(t, err)
	assert.Equal(t, `W/"direct:1219765/abc-def"`, env.ETag())
}

// TestDispatch_TransformHTML_StripsIncomingETag 核心性质：
// 调用方带着打过标的 ETag 来，后端必须只看到去标后的原始 ETag
func TestDispatch_TransformHTML_StripsIncomingETag(t *testing.T) {
	stub := &stubClient{envelope: &Envelope{Code: 200, Body: "wikitext"}}
	client := NewDispatchClient(func() Client { return stub })

	_, err := client.TransformHTML(context.Background(), PageRef{Title: "Main_Page"}, "en",
		"<p>edited</p>", 1219765, `W/"direct:1219765/abc-def"`)

	assert.NoError(t, err)
	assert.Equal(t, `W/"1219765/abc-def"`, stub.receivedETag)
}

// TestDispatch_TransformHTML_EmptyETagUntouched 调用方没给 ETag 时不做去标
func TestDispatch_TransformHTML_EmptyETagUntouched(t *testing.T) {
	stub := &stubClient{envelope: &Envelope{Code: 200, Body: "wikitext"}}
	client := NewDispatchClient(func() Client { return stub })

	_, err := client.TransformHTML(context.Background(), PageRef{Title: "Main_Page"}, "en",
		"<p>edited</p>", 0, "")

	assert.NoError(t, err)
	assert.Equal(t, "", stub.receivedETag)
}

// TestDispatch_NoETagHeader_Untouched 信封没有 ETag 头时打标是空操作
func TestDispatch_NoETagHeader_Untouched(t *testing.T) {
	stub := &stubClient{envelope: &Envelope{
		Code:    200,
		Headers: map[string]string{"content-type": "text/html"},
		Body:    "<html></html>",
	}}
	client := NewDispatchClient(func() Client { return stub })

	env, err := client.GetPageHTML(context.Background(), RevisionRef{Page: PageRef{Title: "Main_Page"}}, "en")

	assert.NoError(t, err)
	assert.Equal(t, "", env.ETag())
	assert.Equal(t, "text/html", env.Headers["content-type"])
}

// TestDispatch_FactoryReresolvedPerCall 工厂每次调用重新解析，装饰器不缓存后端
func TestDispatch_FactoryReresolvedPerCall(t *testing.T) {
	factoryCalls := 0
	stub := &stubClient{envelope: &Envelope{Code: 200}}
	client := NewDispatchClient(func() Client {
		factoryCalls++
		return stub
	})

	ctx := context.Background()
	rev := RevisionRef{Page: PageRef{Title: "Main_Page"}}
	_, _ = client.GetPageHTML(ctx, rev, "en")
	_, _ = client.TransformWikitext(ctx, rev.Page, "en", "hello", true, 0, false)
	_, _ = client.TransformHTML(ctx, rev.Page, "en", "<p></p>", 0, "")

	assert.Equal(t, 3, factoryCalls)
}

// TestDispatch_TransformWikitext_TagsETag wikitext 转换同样给结果打标
func TestDispatch_TransformWikitext_TagsETag(t *testing.T) {
	stub := &stubClient{envelope: &Envelope{
		Code:    200,
		Headers: map[string]string{"etag": `"1219766/new-render"`},
		Body:    "<p>hello</p>",
	}}
	client := NewDispatchClient(func() Client { return stub })

	env, err := client.TransformWikitext(context.Background(), PageRef{Title: "Main_Page"}, "en",
		"hello", true, 0, true)

	assert.NoError(t, err)
	assert.Equal(t, `"direct:1219766/new-render"`, env.ETag())
}

// TestEnvelope_CacheHit x-cache 头的命中判定
func TestEnvelope_CacheHit(t *testing.T) {
	hit := &Envelope{Headers: map[string]string{"x-cache": "cp1234 hit"}}
	miss := &Envelope{Headers: map[string]string{"x-cache": "miss"}}
	empty := &Envelope{}

	assert.True(t, hit.CacheHit())
	assert.False(t, miss.CacheHit())
	assert.False(t, empty.CacheHit())
}
