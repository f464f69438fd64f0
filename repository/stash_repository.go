package repository

import (
	"errors"
	"time"

	"wikiedit-go-server/domain/entity"
	domainErrors "wikiedit-go-server/domain/errors"
	domainRepo "wikiedit-go-server/domain/repository"

	"gorm.io/gorm"
)

// stashRepository GORM 实现 StashRepository 接口
// 起到外部缓存的作用：serialize 产出的 wikitext 暂存一小时
type stashRepository struct {
	db *gorm.DB
}

// NewStashRepository 构造函数
func NewStashRepository(db *gorm.DB) domainRepo.StashRepository {
	return &stashRepository{db: db}
}

// Put 写入暂存记录
func (r *stashRepository) Put(stash *entity.Stash) error {
	return r.db.Create(stash).Error
}

// Take 取出未过期的暂存内容
// key 不存在或已过期都按 ErrBadCacheKey 处理，客户端据此重传全文
func (r *stashRepository) Take(cacheKey string) (*entity.Stash, error) {
	var stash entity.Stash
	err := r.db.Where("cache_key = ? AND expires_at > ?", cacheKey, time.Now()).
		First(&stash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainErrors.ErrBadCacheKey
	}
	if err != nil {
		return nil, err
	}
	return &stash, nil
}

// Purge 清理过期暂存
func (r *stashRepository) Purge() (int64, error) {
	result := r.db.Where("expires_at <= ?", time.Now()).Delete(&entity.Stash{})
	return result.RowsAffected, result.Error
}
