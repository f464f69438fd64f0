package controller

import (
	"errors"
	"net/http"
	"strconv"

	"wikiedit-go-server/api/middleware"
	domainErrors "wikiedit-go-server/domain/errors"
	"wikiedit-go-server/internal/csrf"
	"wikiedit-go-server/internal/rawdeflate"
	"wikiedit-go-server/usecase"

	"github.com/gin-gonic/gin"
)

// --- 响应结构定义 ---
// 编辑 API 沿用 action API 惯例：错误也用 HTTP 200 + error 对象，
// 这样传输层状态码和业务错误码互不干扰

// APIError 结构化错误对象
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// APIErrorResponse 错误响应信封
type APIErrorResponse struct {
	Error APIError `json:"error"`
}

// LoadResponse load 动作响应（顶层 key 是动作名）
type LoadResponse struct {
	VisualEditor LoadBody `json:"visualeditor"`
}

type LoadBody struct {
	Result        string `json:"result"`
	Content       string `json:"content"`
	ETag          string `json:"etag"`
	OldID         uint   `json:"oldid"`
	BaseTimestamp string `json:"basetimestamp"`
}

// EditResponse 编辑动作响应
type EditResponse struct {
	VisualEditorEdit EditBody `json:"visualeditoredit"`
}

type EditBody struct {
	Result   string  `json:"result"`
	Paction  string  `json:"paction"`
	Content  *string `json:"content,omitempty"`
	Diff     *string `json:"diff,omitempty"`
	CacheKey string  `json:"cachekey,omitempty"`
	NewRevID uint    `json:"newrevid,omitempty"`
}

// TokenResponse CSRF token 响应
type TokenResponse struct {
	Query struct {
		Tokens struct {
			CSRFToken string `json:"csrftoken"`
		} `json:"tokens"`
	} `json:"query"`
}

// --- 控制器定义 ---

// EditController 编辑动作 HTTP 控制器
type EditController struct {
	editUseCase *usecase.EditUseCase
	csrf        *csrf.Issuer
}

// NewEditController 创建 EditController 实例
func NewEditController(editUseCase *usecase.EditUseCase, issuer *csrf.Issuer) *EditController {
	return &EditController{editUseCase: editUseCase, csrf: issuer}
}

// apiError 按 action API 惯例输出错误（HTTP 200）
func apiError(c *gin.Context, code, info string) {
	c.JSON(http.StatusOK, APIErrorResponse{Error: APIError{Code: code, Info: info}})
}

// mapError 把领域错误翻译成结构化错误码
func mapError(c *gin.Context, err error) {
	var invalidRev *domainErrors.InvalidRevisionIDError
	var upstream *domainErrors.UpstreamError

	switch {
	case errors.Is(err, domainErrors.ErrPageNotFound):
		apiError(c, "missingtitle", "页面不存在")
	case errors.Is(err, domainErrors.ErrRevisionNotFound):
		apiError(c, "missingrev", "页面没有任何版本")
	case errors.As(err, &invalidRev):
		apiError(c, "nosuchrevid", err.Error())
	case errors.Is(err, domainErrors.ErrBadCacheKey):
		apiError(c, "badcachekey", "暂存内容不存在或已过期")
	case errors.Is(err, rawdeflate.ErrCorrupt):
		apiError(c, "invalidhtml", "压缩内容无法解开")
	case errors.As(err, &upstream):
		// 上游转换服务的错误原样转给用户
		apiError(c, "parsoidserver", upstream.Message)
	default:
		apiError(c, "internal", err.Error())
	}
}

// LoadPage load 动作：取页面 HTML 供编辑器初始化
// GET /api/visualeditor?page=xxx&oldid=N
func (ec *EditController) LoadPage(c *gin.Context) {
	title := c.Query("page")
	if title == "" {
		apiError(c, "missingparam", "page 参数不能为空")
		return
	}

	var oldid uint
	if raw := c.Query("oldid"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			apiError(c, "badinteger", "oldid 必须是数字")
			return
		}
		oldid = uint(parsed)
	}

	result, err := ec.editUseCase.LoadPage(c.Request.Context(), title, oldid)
	if err != nil {
		// ⚠️ 上游错误直接终止，不能走下面的缓存头镜像
		mapError(c, err)
		return
	}

	// 上游命中边缘缓存时镜像到客户端可见的响应头
	if result.CacheHit {
		c.Header("X-Cache", "cached-response=true")
	}

	c.JSON(http.StatusOK, LoadResponse{VisualEditor: LoadBody{
		Result:        "success",
		Content:       result.Content,
		ETag:          result.ETag,
		OldID:         result.OldID,
		BaseTimestamp: result.BaseTimestamp,
	}})
}

// Edit 编辑动作：paction ∈ {save, serialize, diff}
// POST /api/visualeditoredit (multipart form)
func (ec *EditController) Edit(c *gin.Context) {
	userID, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		apiError(c, "notloggedin", "未获取到用户信息")
		return
	}

	// CSRF 校验：失败返回 badtoken，客户端鉴权层会换新 token 重试
	if !ec.csrf.Validate(userID.(string), c.PostForm("token")) {
		apiError(c, "badtoken", "CSRF token 无效或已过期")
		return
	}

	title := c.PostForm("page")
	if title == "" {
		apiError(c, "missingparam", "page 参数不能为空")
		return
	}

	html := c.PostForm("html")
	cacheKey := c.PostForm("cachekey")
	// html 和 cachekey 互斥：二者都有说明客户端逻辑出错
	if html != "" && cacheKey != "" {
		apiError(c, "invalidparammix", "html 和 cachekey 只能二选一")
		return
	}

	etag := c.PostForm("etag")
	summary := c.PostForm("summary")

	var oldid uint
	if raw := c.PostForm("oldid"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			apiError(c, "badinteger", "oldid 必须是数字")
			return
		}
		oldid = uint(parsed)
	}

	ctx := c.Request.Context()

	switch c.PostForm("paction") {
	case "serialize":
		result, err := ec.editUseCase.Serialize(ctx, title, html, etag, oldid)
		if err != nil {
			mapError(c, err)
			return
		}
		c.JSON(http.StatusOK, EditResponse{VisualEditorEdit: EditBody{
			Result:   "success",
			Paction:  "serialize",
			Content:  &result.Wikitext,
			CacheKey: result.CacheKey,
		}})

	case "diff":
		diff, err := ec.editUseCase.Diff(ctx, title, html, etag, cacheKey, oldid)
		if err != nil {
			mapError(c, err)
			return
		}
		c.JSON(http.StatusOK, EditResponse{VisualEditorEdit: EditBody{
			Result:  "success",
			Paction: "diff",
			Diff:    &diff,
		}})

	case "save":
		result, err := ec.editUseCase.Save(ctx, title, html, etag, cacheKey, summary, userID.(string), oldid)
		if err != nil {
			mapError(c, err)
			return
		}
		c.JSON(http.StatusOK, EditResponse{VisualEditorEdit: EditBody{
			Result:   "success",
			Paction:  "save",
			Content:  &result.Content,
			NewRevID: result.NewRevID,
		}})

	default:
		apiError(c, "badvalue", "paction 必须是 save / serialize / diff 之一")
	}
}

// Token 签发 CSRF token
// GET /api/tokens
func (ec *EditController) Token(c *gin.Context) {
	userID, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		apiError(c, "notloggedin", "未获取到用户信息")
		return
	}

	var resp TokenResponse
	resp.Query.Tokens.CSRFToken = ec.csrf.Generate(userID.(string))
	c.JSON(http.StatusOK, resp)
}
