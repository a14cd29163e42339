package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udecfit/backend/internal/model"
)

func seedCollections(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.docs.PutDocument(ctx, "maquinas", model.Document{
		ID:   "m1",
		Data: map[string]any{"nombre": "Press banca"},
	}))
	require.NoError(t, env.docs.PutDocument(ctx, "rutinas", model.Document{
		ID:   "r1",
		Data: map[string]any{"dias": "3"},
	}))
}

func TestCreateBackup_Unauthenticated(t *testing.T) {
	env := newTestEnv()

	resp, err := env.backup.CreateBackup(context.Background(), makeAnonRequest("POST", "/backups", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateBackup_NonAdminForbidden(t *testing.T) {
	env := newTestEnv()

	req := makeAnonRequest("POST", "/backups", "")
	req.Headers["Authorization"] = "Bearer " + makeToken("user")
	resp, err := env.backup.CreateBackup(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateBackup_Success(t *testing.T) {
	env := newTestEnv()
	seedCollections(t, env)

	resp, err := env.backup.CreateBackup(context.Background(), makeRequest("POST", "/backups", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	var result struct {
		Message string `json:"message"`
		Folder  string `json:"folder"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &result))
	assert.NotEmpty(t, result.Message)
	assert.Contains(t, result.Folder, "backups/")

	names, err := env.objects.List(context.Background(), result.Folder+"/")
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func TestRestoreBackup_MissingFolder(t *testing.T) {
	env := newTestEnv()

	resp, err := env.backup.RestoreBackup(context.Background(), makeRequest("POST", "/backups/restore", "{}"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRestoreBackup_UnknownFolder(t *testing.T) {
	env := newTestEnv()

	body := `{"folder":"2020-01-01T00-00-00-000Z"}`
	resp, err := env.backup.RestoreBackup(context.Background(), makeRequest("POST", "/backups/restore", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRestoreBackup_FolderFromQueryString(t *testing.T) {
	env := newTestEnv()
	seedCollections(t, env)

	createResp, err := env.backup.CreateBackup(context.Background(), makeRequest("POST", "/backups", ""))
	require.NoError(t, err)
	var created struct {
		Folder string `json:"folder"`
	}
	require.NoError(t, json.Unmarshal([]byte(createResp.Body), &created))
	folder := created.Folder[len("backups/"):]

	req := makeRequest("POST", "/backups/restore", "")
	req.QueryStringParameters = map[string]string{"folder": folder}
	resp, err := env.backup.RestoreBackup(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
}

func TestRestoreBackup_LegacyCarpetaParameter(t *testing.T) {
	env := newTestEnv()
	seedCollections(t, env)

	createResp, err := env.backup.CreateBackup(context.Background(), makeRequest("POST", "/backups", ""))
	require.NoError(t, err)
	var created struct {
		Folder string `json:"folder"`
	}
	require.NoError(t, json.Unmarshal([]byte(createResp.Body), &created))
	folder := created.Folder[len("backups/"):]

	body := `{"carpeta":"` + folder + `"}`
	resp, err := env.backup.RestoreBackup(context.Background(), makeRequest("POST", "/backups/restore", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
}

func TestListBackups_ReturnsDescending(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	require.NoError(t, env.objects.Put(ctx, "backups/2024-01-01T10-00-00-000Z/users.json", []byte("[]")))
	require.NoError(t, env.objects.Put(ctx, "backups/2024-01-02T10-00-00-000Z/users.json", []byte("[]")))

	resp, err := env.backup.ListBackups(ctx, makeRequest("GET", "/backups", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Backups []string `json:"backups"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &result))
	assert.Equal(t, []string{"2024-01-02T10-00-00-000Z", "2024-01-01T10-00-00-000Z"}, result.Backups)
}

func TestListBackups_Unauthenticated(t *testing.T) {
	env := newTestEnv()

	resp, err := env.backup.ListBackups(context.Background(), makeAnonRequest("GET", "/backups", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
