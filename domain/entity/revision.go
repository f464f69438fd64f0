package entity

import "time"

// Revision 页面版本记录（只追加，不修改）
// 保存的是 wikitext 源码，HTML 由转换服务按需渲染
type Revision struct {
	ID        uint   `gorm:"primaryKey"`
	PageID    uint   `gorm:"index"`
	Content   string `gorm:"type:text"` // wikitext 正文
	Summary   string `gorm:"size:500"`  // 编辑摘要
	AuthorID  string `gorm:"size:64"`   // Clerk user_id
	CreatedAt time.Time
}
