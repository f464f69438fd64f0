package errors

import (
	"errors"
	"fmt"
)

// ================= 业务领域错误定义 =================
// 所有业务逻辑相关的错误统一在此定义，避免跨包重复定义

// ErrPageNotFound 页面不存在错误
// 当尝试操作一个不存在于数据库中的页面时返回此错误
var ErrPageNotFound = errors.New("page not found in database")

// ErrPageAlreadyExists 页面已存在错误
var ErrPageAlreadyExists = errors.New("page already exists")

// ErrRevisionNotFound 页面没有任何版本
// 页面记录存在但 LatestRevID 为 0 时返回此错误
var ErrRevisionNotFound = errors.New("page has no current revision")

// ErrBadCacheKey 暂存 key 无效或已过期
// 客户端收到此错误后应去掉 cachekey 重传全文（只重试一次）
var ErrBadCacheKey = errors.New("stashed content not found or expired")

// ErrBadToken CSRF token 无效或已过期
// 由请求鉴权层透明重试，不占用 cachekey 重试额度
var ErrBadToken = errors.New("invalid or expired csrf token")

// ErrUnauthorized 无权限错误
var ErrUnauthorized = errors.New("user not authorized for this operation")

// ErrDocNotFound 协同文档不存在错误
var ErrDocNotFound = errors.New("collab doc not found in database")

// ErrRoomClosing 协同房间正在关闭，客户端应稍后重试
var ErrRoomClosing = errors.New("collab room is closing, retry later")

// ErrOptimisticLock 乐观锁冲突错误
// 当数据库中的版本与期望版本不匹配时返回此错误
var ErrOptimisticLock = errors.New("optimistic lock error: version mismatch, please refresh and retry")

// InvalidRevisionIDError 版本号无法解析错误
// 携带出错的版本号，错误信息需要展示给用户
type InvalidRevisionIDError struct {
	RevID uint
}

func (e *InvalidRevisionIDError) Error() string {
	return fmt.Sprintf("invalid revision id: %d", e.RevID)
}

// UpstreamError 转换服务返回的业务错误
// 信封里带 error 字段时直接终止本次请求，原样转给用户
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}
