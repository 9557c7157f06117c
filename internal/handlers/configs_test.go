package handlers

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/juhojo/blabbermouth/internal/logging"
	"github.com/juhojo/blabbermouth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configRouter(configs *fakeConfigStore, fields *fakeFieldStore, notifier *fakeNotifier) http.Handler {
	ch := NewConfigHandler(configs, logging.Discard())
	fh := NewFieldHandler(configs, fields, notifier, logging.Discard())
	return newRouter(func(r chi.Router) {
		r.Get("/users/{uid}/configs", ch.List)
		r.Post("/users/{uid}/configs", ch.Create)
		r.Get("/users/{uid}/configs/{cid}", ch.Get)
		r.Patch("/users/{uid}/configs/{cid}", ch.Update)
		r.Delete("/users/{uid}/configs/{cid}", ch.Delete)

		r.Get("/users/{uid}/configs/{cid}/fields", fh.List)
		r.Post("/users/{uid}/configs/{cid}/fields", fh.Create)
		r.Get("/users/{uid}/configs/{cid}/fields/{fid}", fh.Get)
		r.Patch("/users/{uid}/configs/{cid}/fields/{fid}", fh.Update)
		r.Delete("/users/{uid}/configs/{cid}/fields/{fid}", fh.Delete)
	})
}

func TestConfigHandler(t *testing.T) {
	configs := newFakeConfigStore()
	h := configRouter(configs, &fakeFieldStore{fields: map[int64]*models.Field{}}, &fakeNotifier{})

	rec := do(t, h, http.MethodPost, "/users/5/configs", map[string]string{"name": "staging"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[models.ConfigWithFields](t, rec)
	assert.Equal(t, "staging", created.Name)
	assert.NotEmpty(t, created.Key.Value)

	rec = do(t, h, http.MethodPost, "/users/5/configs", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/users/5/configs", map[string]string{"name": strings.Repeat("x", 33)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/users/5/configs", nil)
	assert.Equal(t, 2, decode[ListResponse[models.Config]](t, rec).Count)

	rec = do(t, h, http.MethodGet, "/users/5/configs/10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tz4a98xxat96iws9zmbrgj3a", decode[models.ConfigWithFields](t, rec).Key.Value)

	// config of user 5 is invisible under user 7
	rec = do(t, h, http.MethodGet, "/users/7/configs/10", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPatch, "/users/5/configs/10", map[string]string{"name": "production"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "production", configs.configs[10].Name)

	rec = do(t, h, http.MethodDelete, "/users/5/configs/10", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/users/5/configs/10", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFieldHandler_MutationsNotify(t *testing.T) {
	fields := &fakeFieldStore{fields: map[int64]*models.Field{}}
	notifier := &fakeNotifier{}
	h := configRouter(newFakeConfigStore(), fields, notifier)

	rec := do(t, h, http.MethodPost, "/users/5/configs/10/fields", map[string]string{"key": "DB_HOST", "value": "db.internal"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "DB_HOST", decode[models.Field](t, rec).Key)

	rec = do(t, h, http.MethodPatch, "/users/5/configs/10/fields/1", map[string]string{"value": "db2.internal"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "db2.internal", fields.fields[1].Value)

	rec = do(t, h, http.MethodGet, "/users/5/configs/10/fields/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/users/5/configs/10/fields", nil)
	assert.Equal(t, 1, decode[ListResponse[models.Field]](t, rec).Count)

	rec = do(t, h, http.MethodDelete, "/users/5/configs/10/fields/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, []int64{10, 10, 10}, notifier.updated)
}

func TestFieldHandler_Rejects(t *testing.T) {
	notifier := &fakeNotifier{}
	h := configRouter(newFakeConfigStore(), &fakeFieldStore{fields: map[int64]*models.Field{}}, notifier)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"bad key", http.MethodPost, "/users/5/configs/10/fields", map[string]string{"key": "db-host", "value": "x"}, http.StatusBadRequest},
		{"empty key", http.MethodPost, "/users/5/configs/10/fields", map[string]string{"key": "", "value": "x"}, http.StatusBadRequest},
		{"foreign config", http.MethodPost, "/users/7/configs/10/fields", map[string]string{"key": "A", "value": "x"}, http.StatusNotFound},
		{"missing value", http.MethodPatch, "/users/5/configs/10/fields/1", map[string]string{}, http.StatusBadRequest},
		{"unknown field", http.MethodPatch, "/users/5/configs/10/fields/1", map[string]string{"value": "x"}, http.StatusNotFound},
		{"bad field id", http.MethodDelete, "/users/5/configs/10/fields/0", nil, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
	assert.Empty(t, notifier.updated)
}

func TestFieldHandler_NotifyFailureDoesNotFailRequest(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("redis down")}
	h := configRouter(newFakeConfigStore(), &fakeFieldStore{fields: map[int64]*models.Field{}}, notifier)

	rec := do(t, h, http.MethodPost, "/users/5/configs/10/fields", map[string]string{"key": "A", "value": "x"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, notifier.updated, 1)
}
