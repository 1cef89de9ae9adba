package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"upgrade-tracker/core/storage"
	"upgrade-tracker/feature/catalog/models"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// SnapshotArchive persists raw fetch payloads to object storage so a
// bad parse or a vanished listing can be reconstructed later. Objects
// live under snapshots/<category>/<timestamp>.json.
type SnapshotArchive struct {
	client storage.Client
	bucket string
	logger *zap.Logger

	// Retain caps snapshots kept per category; older objects are
	// pruned after each upload. Zero keeps everything.
	Retain int
}

// NewSnapshotArchive verifies the bucket exists, creating it if needed.
func NewSnapshotArchive(ctx context.Context, client storage.Client, bucket string, logger *zap.Logger) (*SnapshotArchive, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", bucket, err)
		}
	}

	return &SnapshotArchive{
		client: client,
		bucket: bucket,
		logger: logger,
		Retain: 20,
	}, nil
}

// Archive uploads the payload as JSON. The object name embeds the
// upload time so snapshots sort chronologically.
func (a *SnapshotArchive) Archive(ctx context.Context, cat models.Category, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	name := fmt.Sprintf("snapshots/%s/%s.json", cat, time.Now().UTC().Format("20060102T150405Z"))
	_, err = a.client.PutObject(ctx, a.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot %s: %w", name, err)
	}

	a.prune(ctx, cat)
	return nil
}

// prune removes snapshots beyond the retention cap. Failures are
// logged and ignored; retention is best effort.
func (a *SnapshotArchive) prune(ctx context.Context, cat models.Category) {
	if a.Retain <= 0 {
		return
	}

	prefix := fmt.Sprintf("snapshots/%s/", cat)
	var names []string
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			a.logger.Warn("Snapshot listing failed", zap.String("prefix", prefix), zap.Error(obj.Err))
			return
		}
		names = append(names, obj.Key)
	}
	if len(names) <= a.Retain {
		return
	}

	// Timestamped names sort chronologically.
	sort.Strings(names)
	for _, name := range names[:len(names)-a.Retain] {
		if err := a.client.RemoveObject(ctx, a.bucket, name, minio.RemoveObjectOptions{}); err != nil {
			a.logger.Warn("Snapshot prune failed", zap.String("object", name), zap.Error(err))
		}
	}
}
