package controller

import (
	"errors"
	"net/http"

	"wikiedit-go-server/api/middleware"
	domainErrors "wikiedit-go-server/domain/errors"
	"wikiedit-go-server/usecase"

	"github.com/gin-gonic/gin"
)

// --- 响应结构定义 ---

// PageResponse 页面响应结构
type PageResponse struct {
	Title       string `json:"title"`
	Language    string `json:"language"`
	LatestRevID uint   `json:"latestRevId"`
	Wikitext    string `json:"wikitext,omitempty"`
	CreatorID   string `json:"creatorId"`
}

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MessageResponse 消息响应结构
type MessageResponse struct {
	Message string `json:"message"`
	Title   string `json:"title,omitempty"`
}

// --- 控制器定义 ---

// PageController 页面 HTTP 控制器
type PageController struct {
	pageUseCase *usecase.PageUseCase
}

// NewPageController 创建 PageController 实例
func NewPageController(pageUseCase *usecase.PageUseCase) *PageController {
	return &PageController{pageUseCase: pageUseCase}
}

// GetPage 获取页面元信息和最新版本的 wikitext
// GET /api/pages/:title
func (pc *PageController) GetPage(c *gin.Context) {
	title := c.Param("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "title 不能为空"})
		return
	}

	page, rev, err := pc.pageUseCase.GetPage(title)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPageNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "页面不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := PageResponse{
		Title:       page.Title,
		Language:    page.Language,
		LatestRevID: page.LatestRevID,
		CreatorID:   page.CreatorID,
	}
	if rev != nil {
		resp.Wikitext = rev.Content
	}
	c.JSON(http.StatusOK, resp)
}

// CreatePageRequest 创建页面请求结构
type CreatePageRequest struct {
	Title    string `json:"title" binding:"required"`
	Language string `json:"language"` // 可选，不传则用站点内容语言
	Wikitext string `json:"wikitext"` // 可选，首个版本的内容
}

// CreatePage 创建新页面并写入首个版本
// POST /api/pages
// 请求体: { "title": "xxx", "language": "zh", "wikitext": "..." }
func (pc *PageController) CreatePage(c *gin.Context) {
	var req CreatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "title 不能为空"})
		return
	}

	userID, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "未获取到用户信息"})
		return
	}

	page, err := pc.pageUseCase.CreatePage(req.Title, req.Language, req.Wikitext, userID.(string))
	if err != nil {
		if errors.Is(err, domainErrors.ErrPageAlreadyExists) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "页面已存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, PageResponse{
		Title:       page.Title,
		Language:    page.Language,
		LatestRevID: page.LatestRevID,
		CreatorID:   page.CreatorID,
	})
}

// DeletePage 删除页面
// DELETE /api/pages/:title
// 注意：此操作会强制关闭协同编辑房间，踢出所有在线用户
func (pc *PageController) DeletePage(c *gin.Context) {
	title := c.Param("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "title 不能为空"})
		return
	}

	userID, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "未获取到用户信息"})
		return
	}

	if err := pc.pageUseCase.DeletePage(title, userID.(string)); err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrPageNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "页面不存在"})
		case errors.Is(err, domainErrors.ErrUnauthorized):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "无权限删除此页面"})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Message: "页面已删除",
		Title:   title,
	})
}
