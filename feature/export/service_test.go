package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"graph-store/core/graph"
	"graph-store/core/model"
	"graph-store/core/storage/mocks"
	"graph-store/core/store"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testModel = `
entities:
  - name: person
    attributes:
      name: {type: string}
  - name: pet
    identifier: tag
    attributes:
      species: {type: string}
`

func setupService(t *testing.T) (*Service, *mocks.Client) {
	t.Helper()
	m, err := model.Parse([]byte(testModel))
	require.NoError(t, err)

	stack := graph.NewStack(store.NewMemory())
	t.Cleanup(stack.Close)

	err = stack.Main().Perform(context.Background(), func(c *graph.Context) error {
		for _, uid := range []string{"p-2", "p-1"} {
			o := c.Insert("person")
			o.SetUID(uid)
			o.Set("name", "name "+uid)
		}
		o := c.Insert("pet")
		o.SetUID("t-1")
		o.Set("species", "cat")
		return c.Save(context.Background())
	})
	require.NoError(t, err)

	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "graph").Return(true, nil).Maybe()
	return NewService(stack, m, client, "graph", zap.NewNop()), client
}

func TestService_Encode(t *testing.T) {
	svc, _ := setupService(t)

	data, count, err := svc.Encode(context.Background(), "person")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "p-1", items[0]["id"])
	assert.Equal(t, "name p-1", items[0]["name"])

	_, _, err = svc.Encode(context.Background(), "robot")
	assert.ErrorIs(t, err, model.ErrUnknownEntity)
}

func TestService_Export(t *testing.T) {
	t.Run("AllEntities", func(t *testing.T) {
		svc, client := setupService(t)
		client.On("PutObject", mock.Anything, "graph", "exports/person.json", mock.Anything, mock.Anything, mock.Anything).Return(minio.UploadInfo{}, nil)
		client.On("PutObject", mock.Anything, "graph", "exports/pet.json", mock.Anything, mock.Anything, mock.Anything).Return(minio.UploadInfo{}, nil)

		snapshots, err := svc.Export(context.Background())
		require.NoError(t, err)
		require.Len(t, snapshots, 2)
		assert.Equal(t, "person", snapshots[0].Entity)
		assert.Equal(t, 2, snapshots[0].Count)
		assert.Equal(t, "exports/pet.json", snapshots[1].Object)
		assert.Equal(t, 1, snapshots[1].Count)
		client.AssertExpectations(t)
	})

	t.Run("UploadFails", func(t *testing.T) {
		svc, client := setupService(t)
		client.On("PutObject", mock.Anything, "graph", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(minio.UploadInfo{}, errors.New("denied"))

		_, err := svc.Export(context.Background(), "person")
		assert.ErrorContains(t, err, "denied")
	})

	t.Run("UnknownEntity", func(t *testing.T) {
		svc, client := setupService(t)

		_, err := svc.Export(context.Background(), "person", "robot")
		assert.ErrorIs(t, err, model.ErrUnknownEntity)
		client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("BucketUnavailable", func(t *testing.T) {
		m, err := model.Parse([]byte(testModel))
		require.NoError(t, err)
		stack := graph.NewStack(store.NewMemory())
		t.Cleanup(stack.Close)

		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "graph").Return(false, errors.New("offline"))
		_, err = NewService(stack, m, client, "graph", nil).Export(context.Background(), "person")
		assert.ErrorContains(t, err, "offline")
		client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandler(t *testing.T) {
	svc, client := setupService(t)
	client.On("PutObject", mock.Anything, "graph", "exports/pet.json", mock.Anything, mock.Anything, mock.Anything).Return(minio.UploadInfo{}, nil)

	app := fiber.New()
	NewHandler(svc).RegisterRoutes(app)

	t.Run("Export", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("POST", "/export/pet", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("Download", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/export/pet", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.True(t, bytes.Contains(body, []byte(`"tag": "t-1"`)))
	})

	t.Run("Unknown", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/export/robot", nil))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	})
}

func TestLoader(t *testing.T) {
	svc, _ := setupService(t)
	feature := NewFeature(svc)

	assert.Equal(t, "export", feature.Name())
	assert.True(t, feature.IsEnabled())
	assert.NoError(t, feature.Load(fiber.New()))
}
