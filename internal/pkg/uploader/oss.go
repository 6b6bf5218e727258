package uploader

import (
	"fmt"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"campusfind/internal/pkg/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
)

// 允许上传的图片扩展名
var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// MaxImageSize 单张图片上限
const MaxImageSize = 5 << 20

type Uploader interface {
	// UploadFile 上传图片到 folder，返回可公开访问的 URL
	UploadFile(folder string, file *multipart.FileHeader) (string, error)
}

type AliyunOSSUploader struct {
	bucket *oss.Bucket
	config config.OSSConfig
}

func NewAliyunOSSUploader(cfg config.OSSConfig) (*AliyunOSSUploader, error) {
	if cfg.Endpoint == "" || cfg.BucketName == "" {
		return nil, fmt.Errorf("oss config is missing")
	}
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, err
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, err
	}

	return &AliyunOSSUploader{
		bucket: bucket,
		config: cfg,
	}, nil
}

func (u *AliyunOSSUploader) UploadFile(folder string, file *multipart.FileHeader) (string, error) {
	key, err := ObjectKey(folder, file.Filename, file.Size, time.Now())
	if err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := u.bucket.PutObject(key, src, oss.ContentType(file.Header.Get("Content-Type"))); err != nil {
		return "", err
	}

	// bucket 为 public-read（或前置 CDN），直接拼接公开地址
	return fmt.Sprintf("https://%s.%s/%s", u.config.BucketName, u.config.Endpoint, key), nil
}

// ObjectKey 校验图片并生成对象键: folder/YYYYMMDD/uuid.ext
func ObjectKey(folder, filename string, size int64, now time.Time) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}
	if size > MaxImageSize {
		return "", fmt.Errorf("image %s exceeds %d bytes", filename, MaxImageSize)
	}
	if folder == "" {
		folder = "misc"
	}
	return path.Join(folder, now.Format("20060102"), uuid.New().String()+ext), nil
}
