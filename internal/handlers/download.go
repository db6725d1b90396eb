package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/3Eeeecho/go-sharelink/internal/pkg/utils"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
	"github.com/3Eeeecho/go-sharelink/internal/services/share"
)

// DownloadHandler 匿名下载入口，不需要登录
type DownloadHandler struct {
	downloadService share.DownloadService
}

func NewDownloadHandler(downloadService share.DownloadService) *DownloadHandler {
	return &DownloadHandler{downloadService: downloadService}
}

type DownloadRequest struct {
	Token    string  `json:"token"`
	Password *string `json:"password"`
}

func requestMeta(c *gin.Context, password *string) share.RequestMeta {
	return share.RequestMeta{
		IPAddress: utils.ClientIP(c),
		UserAgent: c.Request.UserAgent(),
		Password:  password,
	}
}

// Download 校验分享 token 并签发一次性下载地址
// @Summary 通过分享 token 下载文件
// @Description 校验限流、有效期和下载次数，成功后消费一次下载并返回限时签名 URL
// @Tags 下载
// @Accept json
// @Produce json
// @Param request body DownloadRequest true "分享 token 与可选密码"
// @Success 200 {object} xerr.Response{data=share.DownloadResult} "签名下载地址"
// @Failure 400 {object} xerr.Response "token 缺失或格式错误"
// @Failure 403 {object} xerr.Response "限流、过期、次数用完或密码错误，data.reason 给出原因"
// @Failure 404 {object} xerr.Response "分享链接不存在或已停用"
// @Failure 500 {object} xerr.Response "服务器内部错误，data.error_id 用于排查"
// @Router /download-file [post]
func (h *DownloadHandler) Download(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		xerr.JSONResponse(c, http.StatusBadRequest, xerr.InvalidTokenCode, xerr.ErrInvalidToken.Error(),
			gin.H{"reason": xerr.Reason(xerr.ErrInvalidToken)})
		return
	}

	result, err := h.downloadService.Download(c.Request.Context(), req.Token, requestMeta(c, req.Password))
	if err != nil {
		respondError(c, "Download: authorization failed", err)
		return
	}
	xerr.Success(c, http.StatusOK, "下载授权成功", result)
}

// Preview 分享页预览，不消费下载次数
// @Summary 预览分享链接
// @Description 返回文件名、大小、过期时间和剩余次数；设置了密码时只返回是否需要密码
// @Tags 下载
// @Produce json
// @Param token path string true "分享 token"
// @Success 200 {object} xerr.Response{data=share.SharePreview} "分享预览"
// @Failure 400 {object} xerr.Response "token 格式错误"
// @Failure 403 {object} xerr.Response "限流、过期或次数用完"
// @Failure 404 {object} xerr.Response "分享链接不存在或已停用"
// @Router /share/{token} [get]
func (h *DownloadHandler) Preview(c *gin.Context) {
	preview, err := h.downloadService.Preview(c.Request.Context(), c.Param("token"), requestMeta(c, nil))
	if err != nil {
		respondError(c, "Preview: lookup failed", err)
		return
	}
	xerr.Success(c, http.StatusOK, "获取分享信息成功", preview)
}
