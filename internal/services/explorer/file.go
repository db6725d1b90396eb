package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/3Eeeecho/go-sharelink/internal/models"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/mq"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/storage"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
	"github.com/3Eeeecho/go-sharelink/internal/repositories"
	"github.com/3Eeeecho/go-sharelink/internal/services/share"
)

const maxFileNameLength = 255

// UploadRequest 一次上传的文件内容和首个分享链接的限制
type UploadRequest struct {
	OriginalName string
	Size         int64
	ContentType  string
	Content      io.Reader
	Policy       share.LinkPolicy
}

type UploadResult struct {
	File *models.File
	Link *models.ShareLink
}

type FileService interface {
	// Upload 写入对象存储、创建文件记录并生成第一个分享链接
	Upload(ctx context.Context, userID uint64, req *UploadRequest) (*UploadResult, error)
	GetFile(ctx context.Context, userID, fileID uint64) (*models.File, error)
	// Delete 同一事务删除文件及其全部分享链接，提交后异步清理对象
	Delete(ctx context.Context, userID, fileID uint64) error
}

type FileServiceDeps struct {
	Publisher     mq.Publisher // 为 nil 时同步删除对象
	DeleteQueue   string
	BucketName    string
	MaxUploadSize int64
}

type fileService struct {
	fileRepo           repositories.FileRepository
	linkRepo           repositories.ShareLinkRepository
	registry           share.LinkRegistry
	transactionManager repositories.TransactionManager
	storage            storage.StorageService
	deps               FileServiceDeps
}

var _ FileService = (*fileService)(nil)

// NewFileService 创建一个新的文件服务实例
func NewFileService(
	fileRepo repositories.FileRepository,
	linkRepo repositories.ShareLinkRepository,
	registry share.LinkRegistry,
	transactionManager repositories.TransactionManager,
	storageService storage.StorageService,
	deps FileServiceDeps,
) FileService {
	return &fileService{
		fileRepo:           fileRepo,
		linkRepo:           linkRepo,
		registry:           registry,
		transactionManager: transactionManager,
		storage:            storageService,
		deps:               deps,
	}
}

func (s *fileService) Upload(ctx context.Context, userID uint64, req *UploadRequest) (*UploadResult, error) {
	// 1. 参数校验放在写对象之前
	if req.Content == nil || req.Size <= 0 {
		return nil, fmt.Errorf("%w: 文件为空", xerr.ErrInvalidParams)
	}
	if s.deps.MaxUploadSize > 0 && req.Size > s.deps.MaxUploadSize {
		return nil, xerr.ErrFileTooLarge
	}
	name, err := sanitizeFileName(req.OriginalName)
	if err != nil {
		return nil, err
	}
	if err := req.Policy.Validate(); err != nil {
		return nil, err
	}

	// 2. 上传到对象存储
	fileUUID := uuid.NewString()
	objectKey := fmt.Sprintf("uploads/%d/%s/%s", userID, fileUUID, name)
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	putResult, err := s.storage.PutObject(ctx, s.deps.BucketName, objectKey, req.Content, req.Size, contentType)
	if err != nil {
		logger.Error("Upload: failed to put object", zap.Uint64("userID", userID), zap.String("objectKey", objectKey), zap.Error(err))
		return nil, fmt.Errorf("file service: %w", xerr.ErrStorageError)
	}

	// 3. 写文件记录，失败时删除刚上传的对象
	file := &models.File{
		UUID:         fileUUID,
		UserID:       userID,
		FileName:     fileUUID + filepath.Ext(name),
		OriginalName: name,
		Size:         uint64(req.Size),
		MimeType:     &contentType,
		OssBucket:    s.deps.BucketName,
		OssKey:       putResult.Key,
		Status:       models.StatusNormal,
	}
	if file.OssKey == "" {
		file.OssKey = objectKey
	}
	if err := s.fileRepo.Create(ctx, file); err != nil {
		s.removeObject(ctx, s.deps.BucketName, file.OssKey)
		return nil, fmt.Errorf("file service: %w", xerr.ErrDatabaseError)
	}

	// 4. 第一个分享链接
	link, err := s.registry.Create(ctx, userID, file.ID, req.Policy)
	if err != nil {
		logger.Error("Upload: failed to create initial share link, rolling back upload",
			zap.Uint64("fileID", file.ID), zap.Error(err))
		if delErr := s.fileRepo.Delete(ctx, nil, file.ID); delErr != nil {
			logger.Error("Upload: failed to remove file record during compensation", zap.Uint64("fileID", file.ID), zap.Error(delErr))
		}
		s.removeObject(ctx, file.OssBucket, file.OssKey)
		return nil, err
	}

	logger.Info("Upload: file stored and shared",
		zap.Uint64("userID", userID),
		zap.Uint64("fileID", file.ID),
		zap.Uint64("linkID", link.ID),
		zap.Int64("size", req.Size))
	return &UploadResult{File: file, Link: link}, nil
}

func (s *fileService) GetFile(ctx context.Context, userID, fileID uint64) (*models.File, error) {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.UserID != userID {
		logger.Warn("File access denied",
			zap.Uint64("fileID", file.ID),
			zap.Uint64("userID", userID),
			zap.Uint64("ownerID", file.UserID))
		return nil, xerr.ErrPermissionDenied
	}
	return file, nil
}

func (s *fileService) Delete(ctx context.Context, userID, fileID uint64) error {
	file, err := s.GetFile(ctx, userID, fileID)
	if err != nil {
		return err
	}

	// 1. 链接和文件记录一起删除
	var removed int64
	err = s.transactionManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		n, err := s.linkRepo.WithTx(tx).DeleteByFileID(ctx, file.ID)
		if err != nil {
			return err
		}
		removed = n
		return s.fileRepo.Delete(ctx, tx, file.ID)
	})
	if err != nil {
		logger.Error("Delete: transaction failed", zap.Uint64("fileID", fileID), zap.Error(err))
		return fmt.Errorf("file service: %w", xerr.ErrDatabaseError)
	}
	// 提交后再清一次缓存，覆盖事务期间被并发读回填的旧记录
	s.fileRepo.Evict(ctx, file.ID)
	logger.Info("Delete: file and share links removed",
		zap.Uint64("fileID", fileID), zap.Int64("links", removed))

	// 2. 对象清理交给 worker，消息发不出去时同步删除
	task := models.DeleteObjectTask{
		FileID: file.ID,
		UserID: file.UserID,
		Bucket: file.OssBucket,
		OssKey: file.OssKey,
	}
	if s.deps.Publisher != nil {
		err := s.deps.Publisher.PublishJSON(ctx, s.deps.DeleteQueue, task)
		if err == nil {
			return nil
		}
		logger.Warn("Delete: failed to publish delete task, removing object inline",
			zap.Uint64("fileID", fileID), zap.Error(err))
	}
	s.removeObject(ctx, file.OssBucket, file.OssKey)
	return nil
}

// removeObject 失败只记录日志，留下的孤儿对象不影响链接状态
func (s *fileService) removeObject(ctx context.Context, bucket, key string) {
	if err := s.storage.RemoveObject(ctx, bucket, key); err != nil {
		logger.Error("failed to remove object", zap.String("bucket", bucket), zap.String("objectKey", key), zap.Error(err))
	}
}

var errEmptyName = errors.New("文件名为空")

// sanitizeFileName 去掉路径部分和控制字符
func sanitizeFileName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(filepath.Base(name))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("%w: %v", xerr.ErrFileNameInvalid, errEmptyName)
	}
	for len(name) > maxFileNameLength {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name, nil
}
