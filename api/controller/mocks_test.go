package controller

import (
	"context"

	"wikiedit-go-server/domain/entity"
	"wikiedit-go-server/internal/parsoid"

	"github.com/stretchr/testify/mock"
)

// ========== Repository / Converter mocks ==========
// Controller 测试用真实 UseCase + mock 依赖，验证整条 HTTP 链路

type MockPageRepository struct {
	mock.Mock
}

func (m *MockPageRepository) GetByTitle(title string) (*entity.Page, error) {
	args := m.Called(title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Page), args.Error(1)
}

func (m *MockPageRepository) Create(page *entity.Page) error {
	args := m.Called(page)
	return args.Error(0)
}

func (m *MockPageRepository) AdvanceLatestRev(title string, oldRevID, newRevID uint) error {
	args := m.Called(title, oldRevID, newRevID)
	return args.Error(0)
}

func (m *MockPageRepository) Delete(title string) error {
	args := m.Called(title)
	return args.Error(0)
}

type MockRevisionRepository struct {
	mock.Mock
}

func (m *MockRevisionRepository) GetByID(revID uint) (*entity.Revision, error) {
	args := m.Called(revID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Revision), args.Error(1)
}

func (m *MockRevisionRepository) GetLatestByPageID(pageID uint) (*entity.Revision, error) {
	args := m.Called(pageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Revision), args.Error(1)
}

func (m *MockRevisionRepository) Create(rev *entity.Revision) error {
	args := m.Called(rev)
	if rev.ID == 0 {
		rev.ID = 100
	}
	return args.Error(0)
}

type MockStashRepository struct {
	mock.Mock
}

func (m *MockStashRepository) Put(stash *entity.Stash) error {
	args := m.Called(stash)
	return args.Error(0)
}

func (m *MockStashRepository) Take(cacheKey string) (*entity.Stash, error) {
	args := m.Called(cacheKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Stash), args.Error(1)
}

func (m *MockStashRepository) Purge() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) GetPageHTML(ctx context.Context, rev parsoid.RevisionRef, targetLanguage string) (*parsoid.Envelope, error) {
	args := m.Called(rev, targetLanguage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*parsoid.Envelope), args.Error(1)
}

func (m *MockConverter) TransformHTML(ctx context.Context, page parsoid.PageRef, targetLanguage, html string, baseRevID uint, etag string) (*parsoid.Envelope, error) {
	args := m.Called(page, targetLanguage, html, baseRevID, etag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*parsoid.Envelope), args.Error(1)
}

func (m *MockConverter) TransformWikitext(ctx context.Context, page parsoid.PageRef, targetLanguage, wikitext string, bodyOnly bool, baseRevID uint, stash bool) (*parsoid.Envelope, error) {
	args := m.Called(page, targetLanguage, wikitext, bodyOnly, baseRevID, stash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*parsoid.Envelope), args.Error(1)
}
