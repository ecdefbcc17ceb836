package itineraryarchive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/route-forecast/internal/domain/routeplanner"
)

// Options configures the S3-compatible archive.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
}

// ObjectArchive writes delivered itineraries as JSON documents to an S3-compatible bucket.
type ObjectArchive struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewObjectArchive constructs the archive adapter.
func NewObjectArchive(opts Options, logger *slog.Logger) (*ObjectArchive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	useSSL := !strings.HasPrefix(strings.ToLower(opts.Endpoint), "http://")
	client, err := minio.New(sanitizeEndpoint(opts.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       useSSL,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init archive client: %w", err)
	}
	return &ObjectArchive{
		client: client,
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
		logger: logger.With("component", "itineraryarchive.object"),
	}, nil
}

// Archive uploads the itinerary and returns its object key.
func (a *ObjectArchive) Archive(ctx context.Context, it routeplanner.Itinerary) (string, error) {
	if err := a.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}
	payload, err := json.Marshal(it)
	if err != nil {
		return "", err
	}
	key := objectKey(a.prefix, it)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType:      "application/json",
		DisableMultipart: true,
	})
	if err != nil {
		return "", err
	}
	a.logger.Debug("itinerary uploaded", "bucket", a.bucket, "key", key, "bytes", len(payload))
	return key, nil
}

func (a *ObjectArchive) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err == nil && exists {
		return nil
	}
	err = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	return nil
}

func objectKey(prefix string, it routeplanner.Itinerary) string {
	owner := strings.NewReplacer("/", "_", " ", "_").Replace(it.OwnerID)
	return path.Join(prefix, owner, it.ID+".json")
}

// sanitizeEndpoint strips scheme and path segments; minio expects host[:port].
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if idx := strings.Index(raw, "/"); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}

var _ routeplanner.ItineraryArchive = (*ObjectArchive)(nil)
