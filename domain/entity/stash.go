package entity

import "time"

// Stash 序列化结果暂存表
// serialize 动作把 HTML 转出来的 wikitext 暂存在这里，
// 后续 save 动作可以只带 cachekey，不必重传全文
type Stash struct {
	ID        uint      `gorm:"primaryKey"`
	CacheKey  string    `gorm:"uniqueIndex;size:32"` // 随机 hex key
	PageTitle string    `gorm:"size:255"`
	Wikitext  string    `gorm:"type:text"`
	ExpiresAt time.Time `gorm:"index"` // 过期后视为 badcachekey
	CreatedAt time.Time
}
