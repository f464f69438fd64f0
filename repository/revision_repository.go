package repository

import (
	"errors"

	"wikiedit-go-server/domain/entity"
	domainRepo "wikiedit-go-server/domain/repository"

	"gorm.io/gorm"
)

// revisionRepository GORM 实现 RevisionRepository 接口
type revisionRepository struct {
	db *gorm.DB
}

// NewRevisionRepository 构造函数
func NewRevisionRepository(db *gorm.DB) domainRepo.RevisionRepository {
	return &revisionRepository{db: db}
}

// GetByID 根据版本 ID 查询
func (r *revisionRepository) GetByID(revID uint) (*entity.Revision, error) {
	var rev entity.Revision
	err := r.db.First(&rev, revID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &rev, err
}

// GetLatestByPageID 按创建顺序取页面最新的一条版本
func (r *revisionRepository) GetLatestByPageID(pageID uint) (*entity.Revision, error) {
	var rev entity.Revision
	err := r.db.Where("page_id = ?", pageID).Order("id DESC").First(&rev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &rev, err
}

// Create 追加新版本
// ⚠️ 禁止 Update：Revision 是只追加的历史记录
func (r *revisionRepository) Create(rev *entity.Revision) error {
	return r.db.Create(rev).Error
}
