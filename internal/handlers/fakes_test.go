package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/juhojo/blabbermouth/internal/models"
	"github.com/juhojo/blabbermouth/internal/services"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	user      *models.User
	err       error
	requested string
}

func (f *fakeAuth) RequestPasscode(_ context.Context, email string) (*models.User, *models.Passcode, error) {
	f.requested = email
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.user, &models.Passcode{Value: 4821, UserID: f.user.ID}, nil
}

func (f *fakeAuth) Verify(_ context.Context, email string, passcode int) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if email != f.user.Email || passcode != 4821 {
		return nil, services.ErrUnauthorized
	}
	return f.user, nil
}

type fakeUserStore struct {
	users map[int64]*models.User
	err   error
}

func (f *fakeUserStore) List(context.Context) ([]models.User, error) {
	var out []models.User
	for id := int64(1); id <= int64(len(f.users)); id++ {
		if u, ok := f.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, f.err
}

func (f *fakeUserStore) Get(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) Create(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return nil, services.ErrConflict
		}
	}
	u := &models.User{ID: int64(len(f.users) + 1), Email: email, CreatedAt: time.Now()}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) UpdateEmail(_ context.Context, id int64, email string) error {
	u, ok := f.users[id]
	if !ok {
		return services.ErrNotFound
	}
	u.Email = email
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return services.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

type fakePasscodeStore struct {
	current *models.Passcode
}

func (f *fakePasscodeStore) Issue(_ context.Context, userID int64) (*models.Passcode, error) {
	f.current = &models.Passcode{ID: 1, Value: 4821, UserID: userID, CreatedAt: time.Now()}
	return f.current, nil
}

func (f *fakePasscodeStore) Current(context.Context, int64) (*models.Passcode, error) {
	if f.current == nil {
		return nil, services.ErrNotFound
	}
	return f.current, nil
}

func (f *fakePasscodeStore) Delete(_ context.Context, _, id int64) error {
	if f.current == nil || f.current.ID != id {
		return services.ErrNotFound
	}
	f.current = nil
	return nil
}

// fakeConfigStore holds configs owned by user 5.
type fakeConfigStore struct {
	configs map[int64]*models.ConfigWithFields
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{configs: map[int64]*models.ConfigWithFields{
		10: {
			Config: models.Config{ID: 10, Name: "prod", OwnerID: 5},
			Key:    models.Key{ID: 20, Value: "tz4a98xxat96iws9zmbrgj3a", ConfigID: 10},
			Fields: []models.Field{},
		},
	}}
}

func (f *fakeConfigStore) owned(ownerID, id int64) (*models.ConfigWithFields, error) {
	c, ok := f.configs[id]
	if !ok || c.OwnerID != ownerID {
		return nil, services.ErrNotFound
	}
	return c, nil
}

func (f *fakeConfigStore) ListByOwner(_ context.Context, ownerID int64) ([]models.Config, error) {
	var out []models.Config
	for _, c := range f.configs {
		if c.OwnerID == ownerID {
			out = append(out, c.Config)
		}
	}
	return out, nil
}

func (f *fakeConfigStore) Get(_ context.Context, ownerID, id int64) (*models.ConfigWithFields, error) {
	return f.owned(ownerID, id)
}

func (f *fakeConfigStore) Exists(_ context.Context, ownerID, id int64) (bool, error) {
	_, err := f.owned(ownerID, id)
	return err == nil, nil
}

func (f *fakeConfigStore) Create(_ context.Context, ownerID int64, name string) (*models.ConfigWithFields, error) {
	id := int64(100 + len(f.configs))
	c := &models.ConfigWithFields{
		Config: models.Config{ID: id, Name: name, OwnerID: ownerID},
		Key:    models.Key{ID: id, Value: "newkeyaaaaaaaaaaaaaaaaaa", ConfigID: id},
		Fields: []models.Field{},
	}
	f.configs[id] = c
	return c, nil
}

func (f *fakeConfigStore) Rename(_ context.Context, ownerID, id int64, name string) error {
	c, err := f.owned(ownerID, id)
	if err != nil {
		return err
	}
	c.Name = name
	return nil
}

func (f *fakeConfigStore) Delete(_ context.Context, ownerID, id int64) error {
	if _, err := f.owned(ownerID, id); err != nil {
		return err
	}
	delete(f.configs, id)
	return nil
}

type fakeFieldStore struct {
	fields map[int64]*models.Field
}

func (f *fakeFieldStore) List(_ context.Context, configID int64) ([]models.Field, error) {
	var out []models.Field
	for _, fd := range f.fields {
		if fd.ConfigID == configID {
			out = append(out, *fd)
		}
	}
	return out, nil
}

func (f *fakeFieldStore) Get(_ context.Context, configID, id int64) (*models.Field, error) {
	fd, ok := f.fields[id]
	if !ok || fd.ConfigID != configID {
		return nil, services.ErrNotFound
	}
	return fd, nil
}

func (f *fakeFieldStore) Create(_ context.Context, configID int64, key, value string) (*models.Field, error) {
	fd := &models.Field{ID: int64(len(f.fields) + 1), ConfigID: configID, Key: key, Value: value}
	f.fields[fd.ID] = fd
	return fd, nil
}

func (f *fakeFieldStore) UpdateValue(ctx context.Context, configID, id int64, value string) error {
	fd, err := f.Get(ctx, configID, id)
	if err != nil {
		return err
	}
	fd.Value = value
	return nil
}

func (f *fakeFieldStore) Delete(ctx context.Context, configID, id int64) error {
	if _, err := f.Get(ctx, configID, id); err != nil {
		return err
	}
	delete(f.fields, id)
	return nil
}

type fakeNotifier struct {
	updated []int64
	err     error
}

func (f *fakeNotifier) OnConfigUpdated(_ context.Context, id int64) error {
	f.updated = append(f.updated, id)
	return f.err
}

// do runs one request against h and returns the recorder.
func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func newRouter(mount func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	mount(r)
	return r
}
