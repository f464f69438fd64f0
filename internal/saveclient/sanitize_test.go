package saveclient

import (
	"strings"
	"testing"

	"wikiedit-go-server/internal/rawdeflate"

	"github.com/stretchr/testify/assert"
)

// ========== HTML 消毒单元测试 ==========

func TestSanitizeHTML_DropsExecutable(t *testing.T) {
	raw := `<p>正文</p><script>alert(1)</script><iframe src="http://evil"></iframe><p>结尾</p>`

	out, err := SanitizeHTML(raw)

	assert.NoError(t, err)
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "iframe")
	assert.Contains(t, out, "<p>正文</p>")
	assert.Contains(t, out, "<p>结尾</p>")
}

func TestSanitizeHTML_DropsInjectedFragments(t *testing.T) {
	testCases := []struct {
		name   string
		raw    string
		marker string
	}{
		{
			name:   "Grammarly 自定义元素",
			raw:    `<p>a</p><grammarly-desktop-integration data-grammarly-shadow-root="true"></grammarly-desktop-integration>`,
			marker: "grammarly",
		},
		{
			name:   "Google 翻译弹层",
			raw:    `<p>a</p><div id="gtx-trans"><span>translate</span></div>`,
			marker: "gtx-trans",
		},
		{
			name:   "Norton 信任徽章",
			raw:    `<p>a</p><div class="norton-seal-widget"><img src="seal.png"/></div>`,
			marker: "norton",
		},
		{
			name:   "嵌套在正文里的注入片段",
			raw:    `<div><p>keep</p><span class="lastpass-icon">x</span></div>`,
			marker: "lastpass",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := SanitizeHTML(tc.raw)
			assert.NoError(t, err)
			assert.NotContains(t, strings.ToLower(out), tc.marker)
			assert.Contains(t, out, "<p>")
		})
	}
}

func TestSanitizeHTML_StripsEventAttrs(t *testing.T) {
	raw := `<p onclick="steal()" class="keep-me">正文</p>`

	out, err := SanitizeHTML(raw)

	assert.NoError(t, err)
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, `class="keep-me"`)
}

func TestSanitizeHTML_FullDocument(t *testing.T) {
	raw := `<!DOCTYPE html><html><head><script src="x.js"></script></head><body><p>正文</p></body></html>`

	out, err := SanitizeHTML(raw)

	assert.NoError(t, err)
	assert.NotContains(t, out, "script")
	assert.Contains(t, out, "<p>正文</p>")
}

// PREPARING 全链路：消毒后压缩，产物可以被服务端解开
func TestPrepareHTML_RoundTrip(t *testing.T) {
	raw := `<p>正文</p><script>alert(1)</script>`

	prepared, err := PrepareHTML(raw)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(prepared, rawdeflate.Prefix))

	restored, err := rawdeflate.Decompress(prepared)
	assert.NoError(t, err)
	assert.NotContains(t, restored, "script")
	assert.Contains(t, restored, "<p>正文</p>")
}
