package loader

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockFeature struct {
	mock.Mock
}

func (m *mockFeature) Name() string {
	return m.Called().String(0)
}

func (m *mockFeature) IsEnabled() bool {
	return m.Called().Bool(0)
}

func (m *mockFeature) Load(app fiber.Router) error {
	return m.Called(app).Error(0)
}

func newFeature(name string, enabled bool, loadErr error) *mockFeature {
	f := new(mockFeature)
	f.On("Name").Return(name)
	f.On("IsEnabled").Return(enabled)
	f.On("Load", mock.Anything).Return(loadErr)
	return f
}

func TestManager_Register(t *testing.T) {
	m := NewManager(nil)

	assert.NoError(t, m.Register(newFeature("import", true, nil)))
	assert.Error(t, m.Register(newFeature("import", true, nil)))
	assert.Len(t, m.Features(), 1)
}

func TestManager_LoadAll(t *testing.T) {
	t.Run("SkipsDisabled", func(t *testing.T) {
		m := NewManager(nil)
		enabled := newFeature("import", true, nil)
		disabled := newFeature("export", false, nil)
		assert.NoError(t, m.Register(enabled))
		assert.NoError(t, m.Register(disabled))

		assert.NoError(t, m.LoadAll(fiber.New()))
		enabled.AssertCalled(t, "Load", mock.Anything)
		disabled.AssertNotCalled(t, "Load", mock.Anything)
	})

	t.Run("StopsOnError", func(t *testing.T) {
		m := NewManager(nil)
		failing := newFeature("import", true, errors.New("boom"))
		next := newFeature("export", true, nil)
		assert.NoError(t, m.Register(failing))
		assert.NoError(t, m.Register(next))

		err := m.LoadAll(fiber.New())
		assert.ErrorContains(t, err, "import")
		next.AssertNotCalled(t, "Load", mock.Anything)
	})
}
