package entity

import "time"

// Page 页面数据库模型
// 一个页面只保存元信息，正文内容在 Revision 表中按版本追加
type Page struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"uniqueIndex;size:255"` // 页面标题（业务主键）
	Language    string `gorm:"size:16"`              // 页面语言代码（如 zh / en）
	LatestRevID uint   `gorm:"default:0"`            // 当前最新版本 ID，0 表示尚无版本
	CreatorID   string `gorm:"size:64"`              // Clerk user_id
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
