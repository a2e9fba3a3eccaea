package importer

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	svc, _, _ := setupService(t)
	app := fiber.New()
	NewHandler(svc).RegisterRoutes(app)
	return app
}

func decodeBody(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r).Decode(&body))
	return body
}

func TestHandleImport(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest("POST", "/import/person?mode=batch", bytes.NewReader(people(4)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	assert.Equal(t, "person", body["entity"])
	assert.Equal(t, "batch", body["mode"])
	result := body["result"].(map[string]any)
	assert.Equal(t, 4.0, result["created"])

	resp, err = app.Test(httptest.NewRequest("GET", "/objects/person/p-002", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "person 2", decodeBody(t, resp.Body)["name"])
}

func TestHandleImport_Errors(t *testing.T) {
	app := setupTestApp(t)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"InvalidMode", "/import/person?mode=fast", `[]`, 400},
		{"UnknownEntity", "/import/robot", `[]`, 404},
		{"Validation", "/import/person", `[{"id":"p-1","age":-3,"name":"x"}]`, 422},
		{"MissingIdentifier", "/import/person", `[{"name":"x","age":3}]`, 400},
		{"EmptyIdentifier", "/import/person", `[{"id":"","name":"x"}]`, 400},
		{"Malformed", "/import/person", `not json`, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("POST", tt.path, bytes.NewReader([]byte(tt.body))))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, decodeBody(t, resp.Body)["error"])
		})
	}
}

func TestHandleLookup_NotFound(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/objects/person/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
