package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"talent-bridge-go/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// ObjectStorage 对象存储接口
type ObjectStorage interface {
	// UploadFile 上传文件到指定路径
	UploadFile(ctx context.Context, objectName string, reader io.Reader, fileSize int64, contentType string) (string, error)

	// DownloadFile 下载文件
	DownloadFile(ctx context.Context, objectName string) ([]byte, error)

	// GetPresignedURL 获取预签名URL
	GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)

	// DeleteFile 删除文件
	DeleteFile(ctx context.Context, objectName string) error

	// CV特定操作
	UploadCVFile(ctx context.Context, talentID, fileExt string, reader io.Reader, fileSize int64) (string, error)
	GetCVFile(ctx context.Context, objectKey string) ([]byte, error)
}

// 确保MinIO实现了ObjectStorage接口
var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供对象存储功能
type MinIO struct {
	client   *minio.Client
	cfg      *config.MinIOConfig
	cvBucket string
	logger   *log.Logger
}

// NewMinIO 创建MinIO客户端
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	logger.Printf("[MinIO] Initializing MinIO client with endpoint: %s, cvBucket: %s", cfg.Endpoint, cfg.CVBucket)

	// 创建MinIO客户端
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		logger.Printf("[MinIO] Initialization failed: %v", err)
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	cvBucket := cfg.CVBucket
	if cvBucket == "" {
		cvBucket = "cvs" // 默认值
	}

	m := &MinIO{
		client:   client,
		cfg:      cfg,
		cvBucket: cvBucket,
		logger:   logger,
	}

	// 确保存储桶存在
	err = m.ensureBucketExists(cvBucket, cfg.Location)
	if err != nil {
		logger.Printf("[MinIO] Failed to ensure CV bucket %s exists: %v", cvBucket, err)
		return nil, fmt.Errorf("确保CV存储桶 %s 存在失败: %w", cvBucket, err)
	}

	// 设置生命周期规则
	if cfg.CVExpireDays > 0 {
		err = m.setupBucketLifecycle(context.Background(), cvBucket, "expire-cvs", cfg.CVExpireDays)
		if err != nil {
			logger.Printf("[MinIO] Warning: Failed to set up lifecycle rules: %v", err)
		}
	}

	logger.Printf("[MinIO] Client initialized successfully for endpoint: %s", cfg.Endpoint)
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	m.logger.Printf("[MinIO] Ensuring bucket exists: %s (Location: %s)", bucketName, location)
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		m.logger.Printf("[MinIO] Error checking if bucket %s exists: %v", bucketName, err)
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		m.logger.Printf("[MinIO] Bucket %s does not exist, attempting to create...", bucketName)
		err = m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location})
		if err != nil {
			m.logger.Printf("[MinIO] Error creating bucket %s: %v", bucketName, err)
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
		m.logger.Printf("[MinIO] Bucket %s created successfully.", bucketName)
	} else {
		m.logger.Printf("[MinIO] Bucket %s already exists.", bucketName)
	}
	return nil
}

// setupBucketLifecycle 为指定存储桶设置生命周期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	m.logger.Printf("[MinIO] Setting lifecycle rule for bucket %s: ID=%s, ExpiryDays=%d", bucketName, ruleID, expiryDays)
	config := lifecycle.NewConfiguration()
	config.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}

	err := m.client.SetBucketLifecycle(ctx, bucketName, config)
	if err != nil {
		m.logger.Printf("[MinIO] Error setting lifecycle for bucket %s: %v", bucketName, err)
		return err
	}
	m.logger.Printf("[MinIO] Successfully set lifecycle for bucket %s.", bucketName)
	return nil
}

// UploadFile 上传文件到CV存储桶
func (m *MinIO) UploadFile(ctx context.Context, objectName string, reader io.Reader, fileSize int64, contentType string) (string, error) {
	if m.cfg.EnableTestLogging && m.logger != nil && m.logger.Writer() != io.Discard {
		m.logger.Printf("[MinIO-UploadFile] Attempting to upload: ObjectName='%s', FileSize=%d, ContentType='%s', Bucket='%s'", objectName, fileSize, contentType, m.cvBucket)
	}

	uploadInfo, err := m.client.PutObject(ctx, m.cvBucket, objectName, reader, fileSize, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		if m.cfg.EnableTestLogging && m.logger != nil && m.logger.Writer() != io.Discard {
			m.logger.Printf("[MinIO-UploadFile] Error uploading %s: %v", objectName, err)
		}
		return "", fmt.Errorf("上传对象 %s/%s 失败: %w", m.cvBucket, objectName, err)
	}

	if m.cfg.EnableTestLogging && m.logger != nil && m.logger.Writer() != io.Discard {
		m.logger.Printf("[MinIO-UploadFile] Successfully uploaded %s, ETag: %s, Size: %d", objectName, uploadInfo.ETag, uploadInfo.Size)
	}
	return objectName, nil
}

// uploadFileFromBytes 从字节数组上传文件 (私有辅助方法)
func (m *MinIO) uploadFileFromBytes(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	return m.UploadFile(ctx, objectName, bytes.NewReader(data), int64(len(data)), contentType)
}

// UploadCVFile 上传CV原始文件到MinIO的cvBucket
// 返回MinIO中的对象键 (不含bucket前缀)
func (m *MinIO) UploadCVFile(ctx context.Context, talentID, fileExt string, reader io.Reader, fileSize int64) (string, error) {
	// 构建对象名称，例如: cv/talentID/original.pdf
	objectName := fmt.Sprintf("cv/%s/original%s", talentID, fileExt)
	contentType := getContentType(fileExt)

	if m.cfg.EnableTestLogging && m.logger != nil && m.logger.Writer() != io.Discard {
		m.logger.Printf("[MinIO-UploadCVFile] Uploading: TalentID='%s', FileExt='%s', ObjectName='%s', Bucket='%s'", talentID, fileExt, objectName, m.cvBucket)
	}

	uploadedObjectName, err := m.UploadFile(ctx, objectName, reader, fileSize, contentType)
	if err != nil {
		if m.cfg.EnableTestLogging && m.logger != nil && m.logger.Writer() != io.Discard {
			m.logger.Printf("[MinIO-UploadCVFile] Error during UploadFile call: %v", err)
		}
		return "", err
	}

	if m.cfg.EnableTestLogging && m.logger != nil && m.logger.Writer() != io.Discard && uploadedObjectName != objectName {
		m.logger.Printf("[MinIO-UploadCVFile] Warning: UploadFile returned '%s' but expected '%s'", uploadedObjectName, objectName)
	}

	return objectName, nil
}

// DownloadFile 从CV存储桶下载文件。
// 适配器未初始化(nil)时返回错误而不是panic，调用方可降级处理。
func (m *MinIO) DownloadFile(ctx context.Context, objectName string) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("MinIO客户端未初始化")
	}
	if m.cfg.EnableTestLogging && m.logger != nil && m.logger.Writer() != io.Discard {
		m.logger.Printf("[MinIO-DownloadFile] Downloading: ObjectName='%s', Bucket='%s'", objectName, m.cvBucket)
	}

	obj, err := m.client.GetObject(ctx, m.cvBucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		if m.cfg.EnableTestLogging && m.logger != nil && m.logger.Writer() != io.Discard {
			m.logger.Printf("[MinIO-DownloadFile] Error getting object %s: %v", objectName, err)
		}
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", m.cvBucket, objectName, err)
	}
	defer obj.Close()

	// 检查对象状态，这对于了解对象是否存在或是否有权限访问很有用
	stat, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 状态失败: %w", m.cvBucket, objectName, err)
	}
	m.logger.Printf("[MinIO] Object %s/%s stats: Size=%d, ContentType=%s", m.cvBucket, objectName, stat.Size, stat.ContentType)

	data, err := io.ReadAll(obj)
	if err != nil {
		if m.cfg.EnableTestLogging && m.logger != nil && m.logger.Writer() != io.Discard {
			m.logger.Printf("[MinIO-DownloadFile] Error reading object data for %s: %v", objectName, err)
		}
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", m.cvBucket, objectName, err)
	}
	if m.cfg.EnableTestLogging && m.logger != nil && m.logger.Writer() != io.Discard {
		m.logger.Printf("[MinIO-DownloadFile] Successfully downloaded %d bytes from %s/%s.", len(data), m.cvBucket, objectName)
	}
	return data, nil
}

// GetCVFile 从MinIO获取CV文件
func (m *MinIO) GetCVFile(ctx context.Context, objectKey string) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("MinIO客户端未初始化")
	}
	if m.cfg.EnableTestLogging && m.logger != nil && m.logger.Writer() != io.Discard {
		m.logger.Printf("[MinIO-GetCVFile] Getting: ObjectKey='%s', Bucket='%s'", objectKey, m.cvBucket)
	}
	return m.DownloadFile(ctx, objectKey)
}

// GetPresignedURL 获取预签名URL
func (m *MinIO) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if m.cfg.EnableTestLogging && m.logger != nil && m.logger.Writer() != io.Discard {
		m.logger.Printf("[MinIO-GetPresignedURL] Generating for: ObjectName='%s', Bucket='%s', Expiry=%s", objectName, m.cvBucket, expiry)
	}

	presignedURL, err := m.client.PresignedGetObject(ctx, m.cvBucket, objectName, expiry, nil)
	if err != nil {
		if m.cfg.EnableTestLogging && m.logger != nil && m.logger.Writer() != io.Discard {
			m.logger.Printf("[MinIO-GetPresignedURL] Error generating for %s: %v", objectName, err)
		}
		return "", fmt.Errorf("生成MinIO预签名URL失败: %w", err)
	}
	return presignedURL.String(), nil
}

// DeleteFile 删除文件
func (m *MinIO) DeleteFile(ctx context.Context, objectName string) error {
	m.logger.Printf("[MinIO] Deleting object: %s", objectName)

	err := m.client.RemoveObject(ctx, m.cvBucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		if m.cfg.EnableTestLogging && m.logger != nil && m.logger.Writer() != io.Discard {
			m.logger.Printf("[MinIO-DeleteFile] Error deleting %s: %v", objectName, err)
		}
		return fmt.Errorf("删除对象 %s 失败: %w", objectName, err)
	}
	return nil
}

// StatObject 暴露底层的StatObject方法，用于测试或特定场景
func (m *MinIO) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return m.client.StatObject(ctx, bucketName, objectName, opts)
}

// getContentType 按扩展名推断内容类型
func getContentType(ext string) string {
	ext = strings.ToLower(ext)
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}
