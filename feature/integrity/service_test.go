package integrity

import (
	"context"
	"sync"
	"testing"

	"graph-store/core/model"
	"graph-store/core/storage/mocks"
	"graph-store/core/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const testModel = `
entities:
  - name: person
    attributes:
      name: {type: string}
`

// setupMockDB creates a mock GORM DB for testing.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func setupService(t *testing.T, db *gorm.DB) (*Service, *mocks.Client, *store.Memory) {
	t.Helper()
	m, err := model.Parse([]byte(testModel))
	require.NoError(t, err)

	backend := store.NewMemory()
	require.NoError(t, backend.Commit(context.Background(), store.ChangeSet{Inserts: []store.Record{
		{ID: "a", Entity: "person", UID: "p-1"},
		{ID: "b", Entity: "person", UID: "p-1"},
	}}))

	client := new(mocks.Client)
	return NewService(client, "graph", zap.NewNop(), backend, db, m), client, backend
}

func emptyListing() <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo)
	close(ch)
	return ch
}

func TestService_Structure(t *testing.T) {
	svc, client, _ := setupService(t, nil)

	t.Run("CheckStructure", func(t *testing.T) {
		client.On("BucketExists", mock.Anything, "graph").Return(true, nil)
		client.On("ListObjects", mock.Anything, "graph", mock.Anything).Return(emptyListing())

		missing, err := svc.CheckStructure(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, []string{"imports", "exports"}, missing)
	})

	t.Run("FixStructure", func(t *testing.T) {
		client.On("PutObject", mock.Anything, "graph", mock.Anything, mock.Anything, int64(0), mock.Anything).Return(minio.UploadInfo{}, nil)

		err := svc.FixStructure(context.Background(), []string{"imports"})
		assert.NoError(t, err)
	})

	t.Run("NoStorage", func(t *testing.T) {
		bare := NewService(nil, "graph", zap.NewNop(), store.NewMemory(), nil, svc.model)
		_, err := bare.CheckStructure(context.Background())
		assert.ErrorIs(t, err, errStorageDisabled)
		assert.ErrorIs(t, bare.FixStructure(context.Background(), nil), errStorageDisabled)
	})
}

func TestService_CheckDuplicates(t *testing.T) {
	svc, _, _ := setupService(t, nil)

	report, err := svc.CheckDuplicates(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Clean)
	require.Len(t, report.Entities["person"], 1)
	assert.Equal(t, "p-1", report.Entities["person"][0].UID)

	_, err = svc.CheckDuplicates(context.Background(), "robot")
	assert.ErrorIs(t, err, model.ErrUnknownEntity)
}

func TestService_Run(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	rows := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"})
	for _, col := range store.ExpectedColumns {
		rows.AddRow(col, "text", "YES", "", nil, "")
	}
	sqlMock.ExpectQuery("SHOW COLUMNS FROM `objects`").WillReturnRows(rows)

	svc, client, _ := setupService(t, db)
	client.On("BucketExists", mock.Anything, "graph").Return(true, nil)
	client.On("ListObjects", mock.Anything, "graph", mock.Anything).Return(emptyListing())

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "issues", report.Structure.Status)
	assert.Equal(t, "issues", report.Duplicates.Status)
	assert.Equal(t, "ok", report.Schema.Status)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestService_RunWithoutDatabase(t *testing.T) {
	svc, client, _ := setupService(t, nil)
	client.On("BucketExists", mock.Anything, "graph").Return(true, nil)
	client.On("ListObjects", mock.Anything, "graph", mock.Anything).Return(emptyListing())

	var wg sync.WaitGroup
	reports := make([]*Report, 4)
	for i := range reports {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := svc.Run(context.Background())
			assert.NoError(t, err)
			reports[i] = r
		}()
	}
	wg.Wait()

	for _, r := range reports {
		require.NotNil(t, r)
		assert.Equal(t, "error", r.Schema.Status)
		assert.Contains(t, r.Schema.Error, "nil")
	}
}
