package rawdeflate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompressDecompress_RoundTrip(t *testing.T) {
	original := `<p about="#mwt1" typeof="mw:Transclusion">你好，世界</p>`

	compressed, err := Compress(original)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(compressed, Prefix))

	restored, err := Decompress(compressed)
	assert.NoError(t, err)
	assert.Equal(t, original, restored)
}

// 没有前缀的内容按明文处理：cachekey 过期重传时可能发明文
func TestDecompress_PlainTextPassthrough(t *testing.T) {
	plain := "<p>plain html</p>"
	out, err := Decompress(plain)
	assert.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestDecompress_Corrupt(t *testing.T) {
	_, err := Decompress(Prefix + "!!!not-base64!!!")
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Decompress(Prefix + "aGVsbG8=") // 合法 base64，但不是 deflate 流
	assert.ErrorIs(t, err, ErrCorrupt)
}
