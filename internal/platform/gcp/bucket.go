package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

// MediaKind selects the bucket a lesson asset lives in.
type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindRaw   MediaKind = "raw"
)

var ErrMediaDisabled = errors.New("media storage is not configured")

// MediaObject is what an upload hands back: a URL to serve and the id needed to delete it.
type MediaObject struct {
	URL      string
	PublicID string
}

type MediaStore interface {
	Upload(dbc dbctx.Context, kind MediaKind, key string, file io.Reader) (MediaObject, error)
	Delete(dbc dbctx.Context, kind MediaKind, publicID string) error
	PublicURL(kind MediaKind, key string) string
}

type MediaConfig struct {
	Mode           StorageMode
	VideoBucket    string
	DocumentBucket string
	CDNDomain      string
	EmulatorHost   string
}

func (c MediaConfig) Enabled() bool {
	return strings.TrimSpace(c.VideoBucket) != "" && strings.TrimSpace(c.DocumentBucket) != ""
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	cfg           MediaConfig
}

// NewMediaStore returns a GCS backed store, or a disabled one when buckets are not set.
func NewMediaStore(log *logger.Logger, cfg MediaConfig) (MediaStore, error) {
	serviceLog := log.With("service", "MediaStore")
	if !cfg.Enabled() {
		serviceLog.Warn("media buckets not configured; lesson uploads are disabled")
		return disabledMediaStore{}, nil
	}

	ctx := context.Background()
	stClient, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info(
		"Object storage initialized",
		"video_bucket", cfg.VideoBucket,
		"document_bucket", cfg.DocumentBucket,
		"mode", cfg.Mode,
		"emulator_host", cfg.EmulatorHost,
	)
	return &bucketService{log: serviceLog, storageClient: stClient, cfg: cfg}, nil
}

func newStorageClient(ctx context.Context, cfg MediaConfig) (*storage.Client, error) {
	mode, host, err := ResolveStorageMode(string(cfg.Mode), cfg.EmulatorHost)
	if err != nil {
		return nil, err
	}
	if mode == StorageModeGCSEmulator {
		return storage.NewClient(ctx, option.WithoutAuthentication(), option.WithEndpoint(host+"/storage/v1/"))
	}
	opts := ClientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func (bs *bucketService) bucketFor(kind MediaKind) (string, error) {
	switch kind {
	case MediaKindVideo:
		return bs.cfg.VideoBucket, nil
	case MediaKindRaw:
		return bs.cfg.DocumentBucket, nil
	default:
		return "", fmt.Errorf("unknown media kind: %s", kind)
	}
}

func (bs *bucketService) Upload(dbc dbctx.Context, kind MediaKind, key string, file io.Reader) (MediaObject, error) {
	bucket, err := bs.bucketFor(kind)
	if err != nil {
		return MediaObject{}, err
	}
	ctx, cancel := context.WithTimeout(dbc.Ctx, 5*time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(bucket).Object(key).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return MediaObject{}, fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return MediaObject{}, fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return MediaObject{URL: bs.PublicURL(kind, key), PublicID: key}, nil
}

func (bs *bucketService) Delete(dbc dbctx.Context, kind MediaKind, publicID string) error {
	bucket, err := bs.bucketFor(kind)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(dbc.Ctx, 30*time.Second)
	defer cancel()
	if err := bs.storageClient.Bucket(bucket).Object(publicID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", publicID, bucket, err)
	}
	return nil
}

func (bs *bucketService) PublicURL(kind MediaKind, key string) string {
	bucket, err := bs.bucketFor(kind)
	if err != nil {
		return key
	}
	return publicURL(bs.cfg, bucket, key)
}

func publicURL(cfg MediaConfig, bucket, key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if cfg.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", cfg.CDNDomain, key)
	}
	if host := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"); host != "" {
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", host, url.PathEscape(bucket), url.PathEscape(key))
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".mp4"), strings.HasSuffix(s, ".m4v"):
		return "video/mp4"
	case strings.HasSuffix(s, ".webm"):
		return "video/webm"
	case strings.HasSuffix(s, ".mov"):
		return "video/quicktime"
	case strings.HasSuffix(s, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(s, ".doc"):
		return "application/msword"
	case strings.HasSuffix(s, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case strings.HasSuffix(s, ".ppt"):
		return "application/vnd.ms-powerpoint"
	case strings.HasSuffix(s, ".pptx"):
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	default:
		return ""
	}
}

type disabledMediaStore struct{}

func (disabledMediaStore) Upload(dbctx.Context, MediaKind, string, io.Reader) (MediaObject, error) {
	return MediaObject{}, ErrMediaDisabled
}

func (disabledMediaStore) Delete(dbctx.Context, MediaKind, string) error {
	return ErrMediaDisabled
}

func (disabledMediaStore) PublicURL(_ MediaKind, key string) string { return key }
