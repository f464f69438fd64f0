package repository

import (
	"errors"

	"wikiedit-go-server/domain/entity"
	domainErrors "wikiedit-go-server/domain/errors"
	domainRepo "wikiedit-go-server/domain/repository"

	"gorm.io/gorm"
)

// pageRepository GORM 实现 PageRepository 接口
type pageRepository struct {
	db *gorm.DB
}

// NewPageRepository 构造函数
func NewPageRepository(db *gorm.DB) domainRepo.PageRepository {
	return &pageRepository{db: db}
}

// GetByTitle 根据标题查询页面
func (r *pageRepository) GetByTitle(title string) (*entity.Page, error) {
	var page entity.Page
	err := r.db.Where("title = ?", title).First(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // 返回 nil 表示不存在，调用方需处理
	}
	return &page, err
}

// Create 创建新页面（仅用于首次创建）
func (r *pageRepository) Create(page *entity.Page) error {
	return r.db.Create(page).Error
}

// AdvanceLatestRev 推进最新版本指针（保存的热路径）
// oldRevID: 保存前读到的最新版本 ID（用于 WHERE 条件）
// newRevID: 新追加的版本 ID
func (r *pageRepository) AdvanceLatestRev(title string, oldRevID, newRevID uint) error {
	result := r.db.Model(&entity.Page{}).
		// ⚠️ 关键：WHERE 使用 oldRevID，防止并发保存互相覆盖
		Where("title = ? AND latest_rev_id = ?", title, oldRevID).
		Update("latest_rev_id", newRevID)

	if result.Error != nil {
		return result.Error
	}

	// ⚠️ 关键：检查是否真的更新了记录
	// 如果 RowsAffected == 0，说明指针已被推进或页面不存在
	if result.RowsAffected == 0 {
		return domainErrors.ErrOptimisticLock
	}

	return nil
}

// Delete 删除页面及其所有版本
func (r *pageRepository) Delete(title string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var page entity.Page
		err := tx.Where("title = ?", title).First(&page).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainErrors.ErrPageNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Where("page_id = ?", page.ID).Delete(&entity.Revision{}).Error; err != nil {
			return err
		}
		return tx.Delete(&page).Error
	})
}
