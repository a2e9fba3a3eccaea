package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"graph-store/core/storage"
	"graph-store/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var _ storage.Client = (*mocks.Client)(nil)

func TestNewClient(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "localhost:9000",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			Bucket:    "test-bucket",
			Region:    "us-east-1",
		}

		client, err := storage.NewClient(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("EndpointWithHTTP", func(t *testing.T) {
		client, err := storage.NewClient(storage.Config{Endpoint: "http://localhost:9000"})
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("EndpointWithHTTPS", func(t *testing.T) {
		client, err := storage.NewClient(storage.Config{
			Endpoint: "https://s3.amazonaws.com",
			UseSSL:   true,
			Region:   "us-east-1",
		})
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestReadObject(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.Client)
		body := io.NopCloser(strings.NewReader(`[{"id":"p-1"}]`))
		mockClient.On("GetObject", mock.Anything, "graph", "imports/person.json", mock.Anything).Return(body, nil)

		data, err := storage.ReadObject(context.Background(), mockClient, "graph", "imports/person.json")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"p-1"}]`, string(data))
	})

	t.Run("GetError", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("GetObject", mock.Anything, "graph", "missing.json", mock.Anything).Return(nil, errors.New("no such key"))

		_, err := storage.ReadObject(context.Background(), mockClient, "graph", "missing.json")
		assert.ErrorContains(t, err, "missing.json")
	})
}

func TestWriteObject(t *testing.T) {
	mockClient := new(mocks.Client)
	mockClient.On("PutObject", mock.Anything, "graph", "exports/person.json", mock.Anything, int64(2),
		mock.MatchedBy(func(opts minio.PutObjectOptions) bool {
			return opts.ContentType == "application/json"
		})).Return(minio.UploadInfo{}, nil)

	err := storage.WriteObject(context.Background(), mockClient, "graph", "exports/person.json", "application/json", []byte("[]"))
	assert.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestEnsureBucket(t *testing.T) {
	t.Run("Exists", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "graph").Return(true, nil)

		assert.NoError(t, storage.EnsureBucket(context.Background(), mockClient, "graph", ""))
		mockClient.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Creates", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "graph").Return(false, nil)
		mockClient.On("MakeBucket", mock.Anything, "graph", minio.MakeBucketOptions{Region: "eu"}).Return(nil)

		assert.NoError(t, storage.EnsureBucket(context.Background(), mockClient, "graph", "eu"))
		mockClient.AssertExpectations(t)
	})

	t.Run("CheckFails", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "graph").Return(false, errors.New("offline"))

		assert.Error(t, storage.EnsureBucket(context.Background(), mockClient, "graph", ""))
	})
}
