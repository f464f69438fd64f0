package repository

import "wikiedit-go-server/domain/entity"

// CollabDocRepository 协同文档仓库接口
type CollabDocRepository interface {
	// GetByTitle 根据虚拟页面标题获取协同文档，不存在时返回 (nil, nil)
	GetByTitle(title string) (*entity.CollabDoc, error)

	// Create 创建协同文档
	Create(doc *entity.CollabDoc) error

	// UpdateDoc 更新文档 JSON（协同编辑的热路径）
	// oldVersion: 上次持久化的版本号，用于乐观锁检查
	// newVersion: 要写入的新版本号（允许跳跃）
	// 如果版本不匹配，返回 ErrOptimisticLock
	UpdateDoc(title string, doc []byte, oldVersion, newVersion int64) error

	// Delete 删除协同文档
	// 注意：删除前必须先通过 Hub.CloseRoom 关闭内存中的协同房间
	Delete(title string) error
}
