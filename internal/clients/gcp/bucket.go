package gcp

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/threadforge/design-backend/internal/pkg/ctxutil"
	"github.com/threadforge/design-backend/internal/pkg/envutil"
	"github.com/threadforge/design-backend/internal/pkg/logger"
)

// BucketService hosts design thumbnails in GCS and hands out stable
// public URLs, preferring the CDN domain when one is configured.
type BucketService interface {
	UploadThumbnail(ctx context.Context, key string, png []byte) (string, error)
	DeleteThumbnail(ctx context.Context, key string) error
	PublicURL(key string) string
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	bucketName    string
	cdnDomain     string
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")

	bucketName := envutil.GetEnv("THUMBNAIL_GCS_BUCKET_NAME", "", log)
	if bucketName == "" {
		return nil, fmt.Errorf("missing env var THUMBNAIL_GCS_BUCKET_NAME")
	}
	cdnDomain := envutil.GetEnv("THUMBNAIL_CDN_DOMAIN", "", log)

	ctx := context.Background()
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if creds := envutil.GetEnv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "", nil); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	stClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		bucketName:    bucketName,
		cdnDomain:     cdnDomain,
	}, nil
}

func (bs *bucketService) UploadThumbnail(ctx context.Context, key string, png []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), 2*time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(bs.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = "image/png"
	if _, err := bytes.NewReader(png).WriteTo(w); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write thumbnail to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return bs.PublicURL(key), nil
}

func (bs *bucketService) DeleteThumbnail(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), 30*time.Second)
	defer cancel()

	err := bs.storageClient.Bucket(bs.bucketName).Object(key).Delete(ctx)
	if err != nil && err != storage.ErrObjectNotExist {
		return fmt.Errorf("failed to delete thumbnail: %w", err)
	}
	return nil
}

func (bs *bucketService) PublicURL(key string) string {
	key = strings.TrimPrefix(key, "/")
	if bs.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", strings.TrimSuffix(bs.cdnDomain, "/"), key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.bucketName, key)
}
