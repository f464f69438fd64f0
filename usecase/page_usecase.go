package usecase

import (
	"strings"

	"wikiedit-go-server/domain/entity"
	domainErrors "wikiedit-go-server/domain/errors"
	"wikiedit-go-server/domain/repository"
	"wikiedit-go-server/internal/ws"
)

// PageUseCase 页面生命周期业务逻辑层
// CollabPad 页面在内存里协同时，Hub 是 source of truth，删除前必须先关房间
type PageUseCase struct {
	pages     repository.PageRepository
	revisions repository.RevisionRepository
	docs      repository.CollabDocRepository
	hub       *ws.Hub
}

// NewPageUseCase 构造函数，依赖注入
func NewPageUseCase(
	pages repository.PageRepository,
	revisions repository.RevisionRepository,
	docs repository.CollabDocRepository,
	hub *ws.Hub,
) *PageUseCase {
	return &PageUseCase{pages: pages, revisions: revisions, docs: docs, hub: hub}
}

// GetPage 获取页面元信息和最新版本
func (uc *PageUseCase) GetPage(title string) (*entity.Page, *entity.Revision, error) {
	page, err := uc.pages.GetByTitle(title)
	if err != nil {
		return nil, nil, err
	}
	if page == nil {
		return nil, nil, domainErrors.ErrPageNotFound
	}

	var rev *entity.Revision
	if page.LatestRevID != 0 {
		rev, err = uc.revisions.GetByID(page.LatestRevID)
		if err != nil {
			return nil, nil, err
		}
	}
	return page, rev, nil
}

// CreatePage 创建新页面并写入首个版本
// CollabPad 前缀的页面同时建一份协同文档，WebSocket 房间靠它初始化
func (uc *PageUseCase) CreatePage(title, language, wikitext, creatorID string) (*entity.Page, error) {
	existing, err := uc.pages.GetByTitle(title)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domainErrors.ErrPageAlreadyExists
	}

	page := &entity.Page{
		Title:     title,
		Language:  language,
		CreatorID: creatorID,
	}
	if err := uc.pages.Create(page); err != nil {
		return nil, err
	}

	rev := &entity.Revision{
		PageID:   page.ID,
		Content:  wikitext,
		Summary:  "页面创建",
		AuthorID: creatorID,
	}
	if err := uc.revisions.Create(rev); err != nil {
		return nil, err
	}
	if err := uc.pages.AdvanceLatestRev(title, 0, rev.ID); err != nil {
		return nil, err
	}
	page.LatestRevID = rev.ID

	if strings.HasPrefix(title, CollabPadPrefix) && uc.docs != nil {
		doc := &entity.CollabDoc{
			PageTitle: title,
			Doc:       []byte(`{}`),
			CreatorID: creatorID,
		}
		if err := uc.docs.Create(doc); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// DeletePage 删除页面（仅创建者可删）
// ⚠️ 必须先通过 Hub.CloseRoom 关闭内存中的协同房间，再删数据库
func (uc *PageUseCase) DeletePage(title, userID string) error {
	page, err := uc.pages.GetByTitle(title)
	if err != nil {
		return err
	}
	if page == nil {
		return domainErrors.ErrPageNotFound
	}
	if page.CreatorID != userID {
		return domainErrors.ErrUnauthorized
	}

	if uc.hub != nil {
		uc.hub.CloseRoom(title)
	}
	if strings.HasPrefix(title, CollabPadPrefix) && uc.docs != nil {
		if err := uc.docs.Delete(title); err != nil {
			return err
		}
	}
	return uc.pages.Delete(title)
}
