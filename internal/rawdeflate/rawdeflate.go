// Package rawdeflate 实现保存协议的压缩传输格式：
// "rawdeflate," + base64(raw DEFLATE)。客户端压缩、服务端解压共用。
package rawdeflate

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// Prefix 压缩内容的标记前缀，没有前缀的内容按明文处理
const Prefix = "rawdeflate,"

// ErrCorrupt 压缩数据损坏错误
var ErrCorrupt = errors.New("rawdeflate: corrupt deflate stream")

// Compress 压缩并编码，输出带 Prefix 前缀
func Compress(data string) (string, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return "", err
	}
	if _, err := w.Write([]byte(data)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return Prefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decompress 解码并解压
// 没有 Prefix 前缀时视为明文原样返回
func Decompress(data string) (string, error) {
	if !strings.HasPrefix(data, Prefix) {
		return data, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(data, Prefix))
	if err != nil {
		return "", ErrCorrupt
	}
	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return "", ErrCorrupt
	}
	return string(out), nil
}
