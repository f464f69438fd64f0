package entity

import (
	"time"

	"gorm.io/datatypes"
)

// CollabDoc 协同编辑文档模型 (PostgreSQL JSONB)
// CollabPad 虚拟页面的实时文档状态，与正式的 Page/Revision 体系分开存储
type CollabDoc struct {
	ID        uint           `gorm:"primaryKey"`
	PageTitle string         `gorm:"uniqueIndex;size:255"` // Special:CollabPad/xxx
	Doc       datatypes.JSON `gorm:"type:jsonb"`           // 文档 JSON 模型
	Version   int64          `gorm:"default:0"`
	CreatorID string         `gorm:"size:64"` // Clerk user_id
	CreatedAt time.Time
	UpdatedAt time.Time
}
