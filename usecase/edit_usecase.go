package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"wikiedit-go-server/domain/entity"
	domainErrors "wikiedit-go-server/domain/errors"
	"wikiedit-go-server/domain/repository"
	"wikiedit-go-server/internal/parsoid"
	"wikiedit-go-server/internal/rawdeflate"

	"github.com/pmezard/go-difflib/difflib"
)

// CollabPadPrefix 协同编辑虚拟页面的标题前缀
// 这类页面没有自己的页面语言，语言解析时回退到站点内容语言
const CollabPadPrefix = "Special:CollabPad/"

// StashTTL 序列化结果的暂存时长，过期后按 badcachekey 处理
const StashTTL = time.Hour

// EditUseCase 编辑业务逻辑层
// 负责版本解析、语言解析和 save/serialize/diff 三个动作
type EditUseCase struct {
	pages           repository.PageRepository
	revisions       repository.RevisionRepository
	stash           repository.StashRepository
	converter       parsoid.Client
	contentLanguage string // 站点内容语言（CollabPad 页面的回退语言）
}

// NewEditUseCase 构造函数，依赖注入
func NewEditUseCase(
	pages repository.PageRepository,
	revisions repository.RevisionRepository,
	stash repository.StashRepository,
	converter parsoid.Client,
	contentLanguage string,
) *EditUseCase {
	return &EditUseCase{
		pages:           pages,
		revisions:       revisions,
		stash:           stash,
		converter:       converter,
		contentLanguage: contentLanguage,
	}
}

// ================= 版本 / 语言解析 =================

// ResolveLatest 解析页面的最新版本
// 页面不存在或没有任何版本时返回 ErrPageNotFound / ErrRevisionNotFound
func (uc *EditUseCase) ResolveLatest(title string) (*entity.Page, *entity.Revision, error) {
	page, err := uc.pages.GetByTitle(title)
	if err != nil {
		return nil, nil, err
	}
	if page == nil {
		return nil, nil, domainErrors.ErrPageNotFound
	}

	if page.LatestRevID == 0 {
		return nil, nil, domainErrors.ErrRevisionNotFound
	}
	rev, err := uc.revisions.GetByID(page.LatestRevID)
	if err != nil {
		return nil, nil, err
	}
	if rev == nil {
		return nil, nil, domainErrors.ErrRevisionNotFound
	}
	return page, rev, nil
}

// ResolveRevision 解析指定版本，revID 为 0 时等价于最新版本
// 非零 revID 解析失败时返回携带该 ID 的 InvalidRevisionIDError
func (uc *EditUseCase) ResolveRevision(title string, revID uint) (*entity.Page, *entity.Revision, error) {
	if revID == 0 {
		return uc.ResolveLatest(title)
	}

	page, err := uc.pages.GetByTitle(title)
	if err != nil {
		return nil, nil, err
	}
	if page == nil {
		return nil, nil, domainErrors.ErrPageNotFound
	}

	rev, err := uc.revisions.GetByID(revID)
	if err != nil {
		return nil, nil, err
	}
	// 版本不存在，或存在但不属于这个页面，都算无效版本号
	if rev == nil || rev.PageID != page.ID {
		return nil, nil, &domainErrors.InvalidRevisionIDError{RevID: revID}
	}
	return page, rev, nil
}

// PageLanguage 解析页面语言
// CollabPad 虚拟页面没有真实的页面语言，回退到站点内容语言
// 而不是界面语言，否则渲染出来的方向/变体会错
func (uc *EditUseCase) PageLanguage(title string, page *entity.Page) string {
	if strings.HasPrefix(title, CollabPadPrefix) {
		return uc.contentLanguage
	}
	if page != nil && page.Language != "" {
		return page.Language
	}
	return uc.contentLanguage
}

// ================= load 动作 =================

// LoadResult load 动作的返回值
type LoadResult struct {
	Content       string // 渲染出的 HTML
	ETag          string // 已带后端标签的 ETag
	OldID         uint   // 实际解析到的版本 ID
	BaseTimestamp string // 版本创建时间（保存时做冲突检测用）
	CacheHit      bool   // 上游是否命中边缘缓存（需要镜像到响应头）
}

// LoadPage 取指定版本的 HTML，供编辑器初始化
// 信封带 error 时直接终止，不再做缓存头镜像
func (uc *EditUseCase) LoadPage(ctx context.Context, title string, revID uint) (*LoadResult, error) {
	page, rev, err := uc.ResolveRevision(title, revID)
	if err != nil {
		return nil, err
	}

	env, err := uc.converter.GetPageHTML(ctx, parsoid.RevisionRef{
		Page:  parsoid.PageRef{Title: title},
		RevID: rev.ID,
	}, uc.PageLanguage(title, page))
	if err != nil {
		return nil, err
	}
	if env.Error != "" {
		return nil, &domainErrors.UpstreamError{Message: env.Error}
	}

	return &LoadResult{
		Content:       env.Body,
		ETag:          env.ETag(),
		OldID:         rev.ID,
		BaseTimestamp: rev.CreatedAt.UTC().Format("20060102150405"),
		CacheHit:      env.CacheHit(),
	}, nil
}

// ================= serialize / diff / save 动作 =================

// SerializeResult serialize 动作的返回值
type SerializeResult struct {
	Wikitext string
	CacheKey string
}

// Serialize 把编辑后的 HTML 转回 wikitext 并暂存
// html 可以带 rawdeflate 前缀；etag 由分发装饰器负责去标
func (uc *EditUseCase) Serialize(ctx context.Context, title, html, etag string, baseRevID uint) (*SerializeResult, error) {
	page, err := uc.pages.GetByTitle(title)
	if err != nil {
		return nil, err
	}

	plain, err := rawdeflate.Decompress(html)
	if err != nil {
		return nil, err
	}

	env, err := uc.converter.TransformHTML(ctx, parsoid.PageRef{Title: title},
		uc.PageLanguage(title, page), plain, baseRevID, etag)
	if err != nil {
		return nil, err
	}
	if env.Error != "" {
		return nil, &domainErrors.UpstreamError{Message: env.Error}
	}

	cacheKey, err := newCacheKey()
	if err != nil {
		return nil, err
	}
	err = uc.stash.Put(&entity.Stash{
		CacheKey:  cacheKey,
		PageTitle: title,
		Wikitext:  env.Body,
		ExpiresAt: time.Now().Add(StashTTL),
	})
	if err != nil {
		return nil, err
	}

	return &SerializeResult{Wikitext: env.Body, CacheKey: cacheKey}, nil
}

// resolveWikitext 统一处理「cachekey 还是全文」
// 二者互斥：有 cachekey 时必须命中暂存，否则返回 ErrBadCacheKey 让客户端重传
func (uc *EditUseCase) resolveWikitext(ctx context.Context, title, html, etag, cacheKey string, baseRevID uint) (string, error) {
	if cacheKey != "" {
		stash, err := uc.stash.Take(cacheKey)
		if err != nil {
			return "", err
		}
		return stash.Wikitext, nil
	}

	result, err := uc.Serialize(ctx, title, html, etag, baseRevID)
	if err != nil {
		return "", err
	}
	return result.Wikitext, nil
}

// Diff 序列化后与基准版本的 wikitext 做统一 diff
// 无改动时返回空串
func (uc *EditUseCase) Diff(ctx context.Context, title, html, etag, cacheKey string, baseRevID uint) (string, error) {
	_, baseRev, err := uc.ResolveRevision(title, baseRevID)
	if err != nil {
		return "", err
	}

	wikitext, err := uc.resolveWikitext(ctx, title, html, etag, cacheKey, baseRev.ID)
	if err != nil {
		return "", err
	}

	if wikitext == baseRev.Content {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(baseRev.Content),
		B:        difflib.SplitLines(wikitext),
		FromFile: title,
		ToFile:   title,
		Context:  3,
	})
}

// SaveResult save 动作的返回值
type SaveResult struct {
	Content  string // 保存后重新渲染的 HTML
	NewRevID uint
}

// Save 追加新版本并推进最新版本指针，再把新 wikitext 渲染回 HTML
func (uc *EditUseCase) Save(ctx context.Context, title, html, etag, cacheKey, summary, authorID string, baseRevID uint) (*SaveResult, error) {
	page, baseRev, err := uc.ResolveRevision(title, baseRevID)
	if err != nil {
		return nil, err
	}

	wikitext, err := uc.resolveWikitext(ctx, title, html, etag, cacheKey, baseRev.ID)
	if err != nil {
		return nil, err
	}

	rev := &entity.Revision{
		PageID:   page.ID,
		Content:  wikitext,
		Summary:  summary,
		AuthorID: authorID,
	}
	if err := uc.revisions.Create(rev); err != nil {
		return nil, err
	}
	if err := uc.pages.AdvanceLatestRev(title, page.LatestRevID, rev.ID); err != nil {
		return nil, err
	}

	env, err := uc.converter.TransformWikitext(ctx, parsoid.PageRef{Title: title},
		uc.PageLanguage(title, page), wikitext, true, rev.ID, false)
	if err != nil {
		return nil, err
	}
	if env.Error != "" {
		return nil, &domainErrors.UpstreamError{Message: env.Error}
	}

	return &SaveResult{Content: env.Body, NewRevID: rev.ID}, nil
}

// newCacheKey 生成 8 字节随机 hex key
func newCacheKey() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
