// Package csrf 无状态 CSRF token：HMAC(用户ID|签发时间)，一小时有效。
// token 失效时编辑 API 返回 badtoken，由客户端鉴权层透明换新重试。
package csrf

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL token 有效期
const DefaultTTL = time.Hour

// Issuer 签发和校验 CSRF token
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time // 测试注入
}

// NewIssuer 构造函数
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate 为用户签发 token，形如 "<ts>:<hex(hmac)>"
func (i *Issuer) Generate(userID string) string {
	ts := strconv.FormatInt(i.now().Unix(), 10)
	return ts + ":" + i.sign(userID, ts)
}

// Validate 校验 token 归属和时效
func (i *Issuer) Validate(userID, token string) bool {
	ts, sig, ok := strings.Cut(token, ":")
	if !ok {
		return false
	}

	issued, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	age := i.now().Sub(time.Unix(issued, 0))
	if age < 0 || age > i.ttl {
		return false
	}

	return hmac.Equal([]byte(sig), []byte(i.sign(userID, ts)))
}

func (i *Issuer) sign(userID, ts string) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(userID))
	mac.Write([]byte("|"))
	mac.Write([]byte(ts))
	return hex.EncodeToString(mac.Sum(nil))
}
