package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/3Eeeecho/go-sharelink/internal/models"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/utils"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
	"github.com/3Eeeecho/go-sharelink/internal/services/share"
)

// ShareHandler 所有者管理分享链接
type ShareHandler struct {
	registry share.LinkRegistry
}

func NewShareHandler(registry share.LinkRegistry) *ShareHandler {
	return &ShareHandler{registry: registry}
}

type CreateShareRequest struct {
	Password         *string `json:"password"`
	ExpiresInMinutes *int64  `json:"expires_in_minutes"` // 以分钟为单位
	MaxDownloads     *uint32 `json:"max_downloads"`
}

// ShareLinkView 返回给所有者的链接信息，不含密码哈希
type ShareLinkView struct {
	ID                 uint64     `json:"id"`
	FileID             uint64     `json:"file_id"`
	Token              string     `json:"token"`
	ExpiresAt          *time.Time `json:"expires_at"`
	MaxDownloads       *uint32    `json:"max_downloads"`
	CurrentDownloads   uint32     `json:"current_downloads"`
	RemainingDownloads *uint32    `json:"remaining_downloads"`
	IsActive           bool       `json:"is_active"`
	PasswordProtected  bool       `json:"password_protected"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toShareLinkView(l *models.ShareLink) ShareLinkView {
	return ShareLinkView{
		ID:                 l.ID,
		FileID:             l.FileID,
		Token:              l.Token,
		ExpiresAt:          l.ExpiresAt,
		MaxDownloads:       l.MaxDownloads,
		CurrentDownloads:   l.CurrentDownloads,
		RemainingDownloads: l.RemainingDownloads(),
		IsActive:           l.IsActive,
		PasswordProtected:  l.HasPassword(),
		CreatedAt:          l.CreatedAt,
	}
}

func (r CreateShareRequest) policy() (share.LinkPolicy, error) {
	p := share.LinkPolicy{MaxDownloads: r.MaxDownloads, Password: r.Password}
	if r.ExpiresInMinutes != nil {
		d, err := share.ExpiresInMinutes(*r.ExpiresInMinutes)
		if err != nil {
			return p, err
		}
		p.ExpiresIn = &d
	}
	return p, nil
}

func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "无效的 "+name)
		return 0, false
	}
	return id, true
}

// CreateShare 为已上传的文件再创建一个分享链接
// @Summary 创建分享链接
// @Description 为指定文件创建分享链接，可设置密码、有效期和下载次数上限
// @Tags 分享
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param file_id path int true "文件 ID"
// @Param request body CreateShareRequest false "链接限制"
// @Success 200 {object} xerr.Response{data=ShareLinkView} "分享链接创建成功"
// @Failure 400 {object} xerr.Response "请求参数无效"
// @Failure 403 {object} xerr.Response "无权操作"
// @Failure 404 {object} xerr.Response "文件未找到"
// @Router /api/v1/files/{file_id}/share-links [post]
func (h *ShareHandler) CreateShare(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := parseIDParam(c, "file_id")
	if !ok {
		return
	}
	var req CreateShareRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
			return
		}
	}

	policy, err := req.policy()
	if err != nil {
		respondError(c, "CreateShare: invalid policy", err)
		return
	}

	link, err := h.registry.Create(c.Request.Context(), userID, fileID, policy)
	if err != nil {
		respondError(c, "CreateShare: 创建分享链接失败", err)
		return
	}
	xerr.Success(c, http.StatusOK, "分享链接创建成功", toShareLinkView(link))
}

// ListShares 分页列出当前用户的分享链接
// @Summary 列出我的分享链接
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} xerr.Response "分享链接列表"
// @Router /api/v1/share-links [get]
func (h *ShareHandler) ListShares(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	links, total, err := h.registry.ListByOwner(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		respondError(c, "ListShares: 查询分享链接失败", err)
		return
	}
	views := make([]ShareLinkView, 0, len(links))
	for i := range links {
		views = append(views, toShareLinkView(&links[i]))
	}
	xerr.Success(c, http.StatusOK, "获取分享链接成功", gin.H{
		"links": views,
		"total": total,
	})
}

// RevokeShare 停用分享链接，重复调用不报错
// @Summary 停用分享链接
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param link_id path int true "分享链接 ID"
// @Success 200 {object} xerr.Response "已停用"
// @Failure 403 {object} xerr.Response "无权操作"
// @Failure 404 {object} xerr.Response "分享链接不存在"
// @Router /api/v1/share-links/{link_id} [delete]
func (h *ShareHandler) RevokeShare(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	linkID, ok := parseIDParam(c, "link_id")
	if !ok {
		return
	}
	if err := h.registry.Deactivate(c.Request.Context(), userID, linkID); err != nil {
		respondError(c, "RevokeShare: 停用分享链接失败", err)
		return
	}
	xerr.Success(c, http.StatusOK, "分享链接已停用", nil)
}

// RegenerateToken 重新生成 token，旧地址立即失效
// @Summary 重新生成分享 token
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param link_id path int true "分享链接 ID"
// @Success 200 {object} xerr.Response "新的 token"
// @Failure 403 {object} xerr.Response "无权操作"
// @Failure 404 {object} xerr.Response "分享链接不存在"
// @Router /api/v1/share-links/{link_id}/regenerate [post]
func (h *ShareHandler) RegenerateToken(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	linkID, ok := parseIDParam(c, "link_id")
	if !ok {
		return
	}
	token, err := h.registry.RegenerateToken(c.Request.Context(), userID, linkID)
	if err != nil {
		respondError(c, "RegenerateToken: 重新生成 token 失败", err)
		return
	}
	xerr.Success(c, http.StatusOK, "分享 token 已更新", gin.H{"token": token})
}

// ListDownloads 查看分享链接的下载记录
// @Summary 分享链接下载记录
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param link_id path int true "分享链接 ID"
// @Param limit query int false "最多返回条数" default(100)
// @Success 200 {object} xerr.Response "下载记录"
// @Failure 403 {object} xerr.Response "无权操作"
// @Failure 404 {object} xerr.Response "分享链接不存在"
// @Router /api/v1/share-links/{link_id}/downloads [get]
func (h *ShareHandler) ListDownloads(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	linkID, ok := parseIDParam(c, "link_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	logs, err := h.registry.ListDownloads(c.Request.Context(), userID, linkID, limit)
	if err != nil {
		respondError(c, "ListDownloads: 查询下载记录失败", err)
		return
	}
	xerr.Success(c, http.StatusOK, "获取下载记录成功", logs)
}
