package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/3Eeeecho/go-sharelink/internal/pkg/utils"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
	"github.com/3Eeeecho/go-sharelink/internal/services/explorer"
	"github.com/3Eeeecho/go-sharelink/internal/services/share"
)

type FileHandler struct {
	fileService explorer.FileService
}

func NewFileHandler(fileService explorer.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// uploadPolicy 从表单中读取可选的链接限制
func uploadPolicy(c *gin.Context) (share.LinkPolicy, bool) {
	var p share.LinkPolicy
	if v := c.PostForm("expires_in_minutes"); v != "" {
		minutes, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "expires_in_minutes 必须为整数")
			return p, false
		}
		d, err := share.ExpiresInMinutes(minutes)
		if err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, err.Error())
			return p, false
		}
		p.ExpiresIn = &d
	}
	if v := c.PostForm("max_downloads"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "max_downloads 必须为正整数")
			return p, false
		}
		max := uint32(n)
		p.MaxDownloads = &max
	}
	if v, ok := c.GetPostForm("password"); ok && v != "" {
		p.Password = &v
	}
	return p, true
}

// UploadFile 上传文件并生成第一个分享链接
// @Summary 上传文件
// @Description 文件写入对象存储后创建文件记录和分享链接
// @Tags 文件
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "要上传的文件"
// @Param expires_in_minutes formData int false "链接有效期(分钟)"
// @Param max_downloads formData int false "最大下载次数"
// @Param password formData string false "链接密码"
// @Success 200 {object} xerr.Response "上传成功"
// @Failure 400 {object} xerr.Response "请求参数无效"
// @Failure 413 {object} xerr.Response "文件过大"
// @Router /api/v1/files [post]
func (h *FileHandler) UploadFile(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "缺少上传文件")
		return
	}
	policy, ok := uploadPolicy(c)
	if !ok {
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		xerr.InternalError(c, "UploadFile: failed to open multipart file", err)
		return
	}
	defer src.Close()

	res, err := h.fileService.Upload(c.Request.Context(), userID, &explorer.UploadRequest{
		OriginalName: fileHeader.Filename,
		Size:         fileHeader.Size,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		Content:      src,
		Policy:       policy,
	})
	if err != nil {
		respondError(c, "UploadFile: upload failed", err)
		return
	}
	xerr.Success(c, http.StatusOK, "文件上传成功", gin.H{
		"file":       res.File,
		"share_link": toShareLinkView(res.Link),
	})
}

// DeleteFile 删除文件及其全部分享链接
// @Summary 删除文件
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param file_id path int true "文件 ID"
// @Success 200 {object} xerr.Response "删除成功"
// @Failure 403 {object} xerr.Response "无权操作"
// @Failure 404 {object} xerr.Response "文件未找到"
// @Router /api/v1/files/{file_id} [delete]
func (h *FileHandler) DeleteFile(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := parseIDParam(c, "file_id")
	if !ok {
		return
	}
	if err := h.fileService.Delete(c.Request.Context(), userID, fileID); err != nil {
		respondError(c, "DeleteFile: delete failed", err)
		return
	}
	xerr.Success(c, http.StatusOK, "文件已删除", nil)
}
