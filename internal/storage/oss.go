package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/config"
)

const cacheControl = "public, max-age=31536000, immutable"

type OSS struct {
	bucket     *oss.Bucket
	endpoint   string
	bucketName string
	prefix     string
}

func NewOSS(cfg config.OSSConfig, log *zap.Logger) (*OSS, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("oss: missing ALI_OSS_ENDPOINT/ACCESS_KEY_ID/ACCESS_KEY_SECRET/BUCKET")
	}
	var opts []oss.ClientOption
	if cfg.SecurityToken != "" {
		opts = append(opts, oss.SecurityToken(cfg.SecurityToken))
	}
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret, opts...)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bkt, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}

	if loc, err := client.GetBucketLocation(cfg.Bucket); err != nil {
		var se oss.ServiceError
		if errors.As(err, &se) && se.StatusCode == 403 {
			log.Warn("oss bucket location check denied, continuing", zap.String("bucket", cfg.Bucket))
		} else {
			return nil, fmt.Errorf("verify bucket: %w", err)
		}
	} else {
		log.Info("oss bucket ready", zap.String("bucket", cfg.Bucket), zap.String("location", loc))
	}

	return &OSS{
		bucket:     bkt,
		endpoint:   cfg.Endpoint,
		bucketName: cfg.Bucket,
		prefix:     strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (s *OSS) objectKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *OSS) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		oss.CacheControl(cacheControl),
	}
	if strings.HasPrefix(contentType, "image/") {
		opts = append(opts, oss.ContentDisposition("inline"))
	}
	if err := s.bucket.PutObject(s.objectKey(key), r, opts...); err != nil {
		return fmt.Errorf("oss put %s: %w", key, err)
	}
	return nil
}

func (s *OSS) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	end := strings.TrimPrefix(strings.TrimPrefix(s.endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.bucketName, end, s.objectKey(key))
}

func (s *OSS) Delete(ctx context.Context, key string) error {
	if err := s.bucket.DeleteObject(s.objectKey(key), oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("oss delete %s: %w", key, err)
	}
	return nil
}
