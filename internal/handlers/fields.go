package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/juhojo/blabbermouth/internal/models"
	"github.com/juhojo/blabbermouth/internal/services"
	"github.com/juhojo/blabbermouth/pkg/utils"
)

type FieldStore interface {
	List(ctx context.Context, configID int64) ([]models.Field, error)
	Get(ctx context.Context, configID, id int64) (*models.Field, error)
	Create(ctx context.Context, configID int64, key, value string) (*models.Field, error)
	UpdateValue(ctx context.Context, configID, id int64, value string) error
	Delete(ctx context.Context, configID, id int64) error
}

// ConfigOwnership reports whether a config belongs to a user.
type ConfigOwnership interface {
	Exists(ctx context.Context, ownerID, id int64) (bool, error)
}

type ConfigNotifier interface {
	OnConfigUpdated(ctx context.Context, configID int64) error
}

type CreateFieldRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type UpdateFieldRequest struct {
	Value *string `json:"value"`
}

// FieldHandler serves /users/{uid}/configs/{cid}/fields. Every mutation is
// followed by a push to the config's subscribers.
type FieldHandler struct {
	configs  ConfigOwnership
	fields   FieldStore
	notifier ConfigNotifier
	log      *slog.Logger
}

func NewFieldHandler(configs ConfigOwnership, fields FieldStore, notifier ConfigNotifier, log *slog.Logger) *FieldHandler {
	return &FieldHandler{configs: configs, fields: fields, notifier: notifier, log: log}
}

// scope parses the path ids and checks that {cid} belongs to {uid}.
func (h *FieldHandler) scope(w http.ResponseWriter, r *http.Request, names ...string) ([]int64, bool) {
	ids, err := pathIDs(r, append([]string{"uid", "cid"}, names...)...)
	if err != nil {
		writeValidation(w, err)
		return nil, false
	}

	owned, err := h.configs.Exists(r.Context(), ids[0], ids[1])
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return nil, false
	}
	if !owned {
		writeServiceError(w, r, h.log, services.ErrNotFound)
		return nil, false
	}
	return ids, true
}

func (h *FieldHandler) notify(r *http.Request, configID int64) {
	if err := h.notifier.OnConfigUpdated(r.Context(), configID); err != nil {
		h.log.WarnContext(r.Context(), "config update not pushed", "config_id", configID, "error", err)
	}
}

func (h *FieldHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.scope(w, r)
	if !ok {
		return
	}

	fields, err := h.fields.List(r.Context(), ids[1])
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(fields))
}

func (h *FieldHandler) Create(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req CreateFieldRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidateFieldKey(req.Key); err != nil {
		writeValidation(w, err)
		return
	}

	field, err := h.fields.Create(r.Context(), ids[1], req.Key, req.Value)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	h.notify(r, ids[1])
	writeJSON(w, http.StatusCreated, field)
}

func (h *FieldHandler) Get(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.scope(w, r, "fid")
	if !ok {
		return
	}

	field, err := h.fields.Get(r.Context(), ids[1], ids[2])
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, field)
}

// Update changes the value only; keys are immutable.
func (h *FieldHandler) Update(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.scope(w, r, "fid")
	if !ok {
		return
	}

	var req UpdateFieldRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Value == nil {
		writeValidation(w, &utils.ValidationError{Field: "value", Message: "Value is required"})
		return
	}

	if err := h.fields.UpdateValue(r.Context(), ids[1], ids[2], *req.Value); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	h.notify(r, ids[1])
	w.WriteHeader(http.StatusNoContent)
}

func (h *FieldHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.scope(w, r, "fid")
	if !ok {
		return
	}

	if err := h.fields.Delete(r.Context(), ids[1], ids[2]); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	h.notify(r, ids[1])
	w.WriteHeader(http.StatusNoContent)
}
