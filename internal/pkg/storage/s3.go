package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/3Eeeecho/go-sharelink/internal/config"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
)

type S3StorageService struct {
	client  *s3.Client
	presign *s3.PresignClient
	cfg     *config.S3Config
}

// NewS3StorageService 使用静态凭证创建 S3 客户端，endpoint 非空时可对接兼容 S3 的存储
func NewS3StorageService(ctx context.Context, cfg *config.S3Config) (*S3StorageService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "aws_s3")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Info("S3 客户端初始化成功", zap.String("region", cfg.Region), zap.String("endpoint", cfg.Endpoint))
	return &S3StorageService{
		client:  client,
		presign: s3.NewPresignClient(client),
		cfg:     cfg,
	}, nil
}

func (s *S3StorageService) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (PutObjectResult, error) {
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucketName),
		Key:           aws.String(objectName),
		Body:          reader,
		ContentLength: aws.Int64(objectSize),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return PutObjectResult{}, pkgerrors.Wrap(err, "aws_s3 put object")
	}
	return PutObjectResult{
		Bucket: bucketName,
		Key:    objectName,
		Size:   objectSize,
		ETag:   aws.ToString(out.ETag),
	}, nil
}

func (s *S3StorageService) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return pkgerrors.Wrap(err, "aws_s3 delete object")
	}
	return nil
}

func (s *S3StorageService) IsBucketExist(ctx context.Context, bucketName string) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucketName)})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(err, "aws_s3 head bucket")
	}
	return true, nil
}

func (s *S3StorageService) MakeBucket(ctx context.Context, bucketName string) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucketName)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return pkgerrors.Wrap(err, "aws_s3 create bucket")
	}
	logger.Info("S3 存储桶创建成功", zap.String("bucket", bucketName))
	return nil
}

// PreSignGetObjectURL 为下载生成预签名URL
func (s *S3StorageService) PreSignGetObjectURL(ctx context.Context, bucketName, objectName, filename string, expiry time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(bucketName),
		Key:                        aws.String(objectName),
		ResponseContentDisposition: aws.String(attachmentDisposition(filename)),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", pkgerrors.Wrap(err, "aws_s3 presign")
	}
	return req.URL, nil
}
