package parsoid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ========== ETag 打标/去标单元测试 ==========
// 这是会话路由的根基：标签必须可逆、幂等、不碰 W/ 前缀和引号

func TestTagETag_TableDriven(t *testing.T) {
	testCases := []struct {
		name     string
		etag     string
		expected string
	}{
		{
			name:     "强校验 ETag",
			etag:     `"1219765/abc-def"`,
			expected: `"direct:1219765/abc-def"`,
		},
		{
			name:     "弱校验 ETag 保留 W/ 前缀",
			etag:     `W/"1219765/abc-def"`,
			expected: `W/"direct:1219765/abc-def"`,
		},
		{
			name:     "空载荷",
			etag:     `""`,
			expected: `"direct:"`,
		},
		{
			name:     "非法形态原样返回",
			etag:     `1219765/abc-def`,
			expected: `1219765/abc-def`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, TagETag(tc.etag, DefaultBackendTag))
		})
	}
}

// TestStripETag_RoundTrip 核心性质：strip(tag(e)) == e
func TestStripETag_RoundTrip(t *testing.T) {
	etags := []string{
		`"1219765/abc-def"`,
		`W/"1219765/abc-def"`,
		`"0/00000000-0000-0000-0000-000000000000"`,
	}

	for _, etag := range etags {
		tagged := TagETag(etag, DefaultBackendTag)
		assert.NotEqual(t, etag, tagged)
		assert.Equal(t, etag, StripETag(tagged))
	}
}

// TestStripETag_Idempotent 未打标的 ETag 去标后原样返回，再去一次也不变
func TestStripETag_Idempotent(t *testing.T) {
	testCases := []struct {
		name string
		etag string
	}{
		{"未打标", `"1219765/abc-def"`},
		{"未打标弱校验", `W/"1219765/abc-def"`},
		{"空串", ``},
		{"非法形态", `not-an-etag`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			once := StripETag(tc.etag)
			assert.Equal(t, tc.etag, once)
			assert.Equal(t, once, StripETag(once))
		})
	}
}

// TestTagETag_WeakPrefixInvariant tag(e) 以 W/ 开头当且仅当 e 以 W/ 开头
func TestTagETag_WeakPrefixInvariant(t *testing.T) {
	strong := TagETag(`"abc"`, DefaultBackendTag)
	weak := TagETag(`W/"abc"`, DefaultBackendTag)

	assert.False(t, strong[0] == 'W')
	assert.Equal(t, `W/`, weak[:2])
}
