package repository

import "wikiedit-go-server/domain/entity"

// PageRepository 页面数据仓库接口
type PageRepository interface {
	// GetByTitle 根据标题获取页面，不存在时返回 (nil, nil)
	GetByTitle(title string) (*entity.Page, error)

	// Create 创建新页面
	Create(page *entity.Page) error

	// AdvanceLatestRev 把页面的最新版本指针推进到 newRevID
	// oldRevID: 保存前的最新版本 ID，用于乐观锁检查
	// 如果指针已被别的保存推进，返回 ErrOptimisticLock
	AdvanceLatestRev(title string, oldRevID, newRevID uint) error

	// Delete 删除页面及其所有版本
	Delete(title string) error
}

// RevisionRepository 版本数据仓库接口
type RevisionRepository interface {
	// GetByID 根据版本 ID 获取版本，不存在时返回 (nil, nil)
	GetByID(revID uint) (*entity.Revision, error)

	// GetLatestByPageID 获取页面的最新版本，没有任何版本时返回 (nil, nil)
	GetLatestByPageID(pageID uint) (*entity.Revision, error)

	// Create 追加一条新版本记录（Revision 只增不改）
	Create(rev *entity.Revision) error
}

// StashRepository 序列化结果暂存仓库接口
type StashRepository interface {
	// Put 写入一条暂存记录
	Put(stash *entity.Stash) error

	// Take 根据 cachekey 取出未过期的暂存内容
	// key 不存在或已过期时返回 ErrBadCacheKey
	Take(cacheKey string) (*entity.Stash, error)

	// Purge 清理所有已过期的暂存记录，返回清理条数
	Purge() (int64, error)
}
