package catalog

import (
	"context"
	"testing"

	"upgrade-tracker/core/storage/mocks"
	"upgrade-tracker/feature/catalog/models"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func objectChannel(keys ...string) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		ch <- minio.ObjectInfo{Key: k}
	}
	close(ch)
	return ch
}

func TestNewSnapshotArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("Existing Bucket", func(t *testing.T) {
		client := &mocks.Client{}
		client.On("BucketExists", mock.Anything, "snapshots").Return(true, nil)

		archive, err := NewSnapshotArchive(ctx, client, "snapshots", zap.NewNop())
		require.NoError(t, err)
		assert.NotNil(t, archive)
		client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Creates Missing Bucket", func(t *testing.T) {
		client := &mocks.Client{}
		client.On("BucketExists", mock.Anything, "snapshots").Return(false, nil)
		client.On("MakeBucket", mock.Anything, "snapshots", mock.Anything).Return(nil)

		_, err := NewSnapshotArchive(ctx, client, "snapshots", zap.NewNop())
		require.NoError(t, err)
		client.AssertExpectations(t)
	})
}

func TestSnapshotArchive_Archive(t *testing.T) {
	ctx := context.Background()

	t.Run("Uploads JSON Payload", func(t *testing.T) {
		client := &mocks.Client{}
		client.On("BucketExists", mock.Anything, "snapshots").Return(true, nil)
		client.On("PutObject", mock.Anything, "snapshots",
			mock.MatchedBy(func(name string) bool {
				return len(name) > len("snapshots/ships/") && name[:len("snapshots/ships/")] == "snapshots/ships/"
			}),
			mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, nil)
		client.On("ListObjects", mock.Anything, "snapshots", mock.Anything).
			Return(objectChannel())

		archive, err := NewSnapshotArchive(ctx, client, "snapshots", zap.NewNop())
		require.NoError(t, err)

		err = archive.Archive(ctx, models.CategoryShips,
			[]models.RawShip{{Name: "Gladius", ManufacturerName: "Aegis Dynamics"}})
		require.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("Prunes Beyond Retention", func(t *testing.T) {
		client := &mocks.Client{}
		client.On("BucketExists", mock.Anything, "snapshots").Return(true, nil)
		client.On("PutObject", mock.Anything, "snapshots", mock.Anything,
			mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, nil)
		client.On("ListObjects", mock.Anything, "snapshots", mock.Anything).
			Return(objectChannel(
				"snapshots/ships/20240101T000000Z.json",
				"snapshots/ships/20240102T000000Z.json",
				"snapshots/ships/20240103T000000Z.json",
			))
		client.On("RemoveObject", mock.Anything, "snapshots",
			"snapshots/ships/20240101T000000Z.json", mock.Anything).Return(nil)

		archive, err := NewSnapshotArchive(ctx, client, "snapshots", zap.NewNop())
		require.NoError(t, err)
		archive.Retain = 2

		err = archive.Archive(ctx, models.CategoryShips, []models.RawShip{})
		require.NoError(t, err)
		client.AssertExpectations(t)
	})
}
