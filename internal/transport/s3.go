package transport

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"git.home.luguber.info/inful/buildmaster/internal/config"
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/logfields"
)

// S3 copies into an S3-compatible bucket. Remote paths are object keys;
// a directory becomes one object per file under the key prefix.
type S3 struct {
	client   *minio.Client
	bucket   string
	region   string
	initOnce sync.Once
	initErr  error
}

// NewS3 creates a client for cfg. The bucket is created on first use.
func NewS3(cfg config.S3Config) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	bucket := strings.TrimSpace(cfg.Bucket)
	if endpoint == "" || bucket == "" {
		return nil, ferrors.ConfigError("s3 transport requires endpoint and bucket").Build()
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "init s3 client").
			WithContext("endpoint", endpoint).
			Build()
	}
	return &S3{client: client, bucket: bucket, region: region}, nil
}

func (s *S3) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func (s *S3) Copy(ctx context.Context, localPath, remotePath string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return failure(err, "ensure bucket "+s.bucket, localPath, remotePath)
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return failure(err, "cannot read "+localPath, localPath, remotePath)
	}
	if !info.IsDir() {
		return s.put(ctx, localPath, objectKey(remotePath))
	}

	return filepath.WalkDir(localPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return failure(err, "walk "+path, localPath, remotePath)
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localPath, path)
		if err != nil {
			return failure(err, "walk "+path, localPath, remotePath)
		}
		return s.put(ctx, path, objectKey(Join(remotePath, filepath.ToSlash(rel))))
	})
}

func (s *S3) put(ctx context.Context, path, key string) error {
	if _, err := s.client.FPutObject(ctx, s.bucket, key, path, minio.PutObjectOptions{
		ContentType: contentType(path),
	}); err != nil {
		return failure(err, "upload "+key, path, key)
	}
	slog.Debug("Uploaded object", logfields.Path(path), logfields.Remote(s.bucket+"/"+key))
	return nil
}

func objectKey(remote string) string {
	return strings.TrimLeft(filepath.ToSlash(remote), "/")
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	case ".json":
		return "application/json"
	case ".jar", ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
