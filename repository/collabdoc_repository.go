package repository

import (
	"errors"

	"wikiedit-go-server/domain/entity"
	domainErrors "wikiedit-go-server/domain/errors"
	domainRepo "wikiedit-go-server/domain/repository"

	"gorm.io/gorm"
)

// collabDocRepository GORM 实现 CollabDocRepository 接口
// 同时实现 ws.DocService 接口供 Hub 使用
type collabDocRepository struct {
	db *gorm.DB
}

// NewCollabDocRepository 构造函数
func NewCollabDocRepository(db *gorm.DB) domainRepo.CollabDocRepository {
	return &collabDocRepository{db: db}
}

// ================= domain.CollabDocRepository 接口实现 =================

// GetByTitle 根据虚拟页面标题查询协同文档
func (r *collabDocRepository) GetByTitle(title string) (*entity.CollabDoc, error) {
	var doc entity.CollabDoc
	err := r.db.Where("page_title = ?", title).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // 返回 nil 表示不存在，调用方需处理
	}
	return &doc, err
}

// Create 创建协同文档（仅用于首次创建）
func (r *collabDocRepository) Create(doc *entity.CollabDoc) error {
	return r.db.Create(doc).Error
}

// UpdateDoc 只更新文档 JSON 字段（协同编辑热路径）
// ✅ 支持版本跳跃：内存中可能积累了多个版本，一次性刷盘
// oldVersion: 上次持久化的版本号（用于 WHERE 条件）
// newVersion: 要写入的新版本号（允许跳跃）
func (r *collabDocRepository) UpdateDoc(title string, doc []byte, oldVersion, newVersion int64) error {
	result := r.db.Model(&entity.CollabDoc{}).
		// ⚠️ 关键：WHERE 使用 oldVersion（上次持久化的版本）
		Where("page_title = ? AND version = ?", title, oldVersion).
		Updates(map[string]interface{}{
			"doc":     string(doc),
			"version": newVersion, // 写入新版本（允许跳跃）
		})

	if result.Error != nil {
		return result.Error
	}

	// ⚠️ 关键：检查是否真的更新了记录
	// 如果 RowsAffected == 0，说明版本冲突或文档不存在
	if result.RowsAffected == 0 {
		return domainErrors.ErrOptimisticLock
	}

	return nil
}

// Delete 删除协同文档
func (r *collabDocRepository) Delete(title string) error {
	return r.db.Where("page_title = ?", title).Delete(&entity.CollabDoc{}).Error
}

// ================= ws.DocService 接口实现 =================
// 这些方法供 Hub 直接调用，无需额外适配器

// GetDocState 获取文档状态（供 Hub 使用）
// ⚠️ 文档不存在时返回明确错误，阻止幽灵房间的创建
func (r *collabDocRepository) GetDocState(title string) ([]byte, int64, error) {
	doc, err := r.GetByTitle(title)
	if err != nil {
		return nil, 0, err
	}
	if doc == nil {
		return nil, 0, domainErrors.ErrDocNotFound
	}
	return []byte(doc.Doc), doc.Version, nil
}

// DocExists 检查文档是否存在（供 Hub 前置检查使用）
func (r *collabDocRepository) DocExists(title string) (bool, error) {
	doc, err := r.GetByTitle(title)
	if err != nil {
		return false, err
	}
	return doc != nil, nil
}

// SaveDocState 保存文档状态（供 Hub 刷盘使用，支持版本跳跃）
func (r *collabDocRepository) SaveDocState(title string, state []byte, oldVersion, newVersion int64) error {
	return r.UpdateDoc(title, state, oldVersion, newVersion)
}
