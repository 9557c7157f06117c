package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/juhojo/blabbermouth/internal/models"
	"github.com/juhojo/blabbermouth/pkg/utils"
)

type ConfigStore interface {
	ListByOwner(ctx context.Context, ownerID int64) ([]models.Config, error)
	Get(ctx context.Context, ownerID, id int64) (*models.ConfigWithFields, error)
	Exists(ctx context.Context, ownerID, id int64) (bool, error)
	Create(ctx context.Context, ownerID int64, name string) (*models.ConfigWithFields, error)
	Rename(ctx context.Context, ownerID, id int64, name string) error
	Delete(ctx context.Context, ownerID, id int64) error
}

type ConfigRequest struct {
	Name string `json:"name"`
}

type ConfigHandler struct {
	configs ConfigStore
	log     *slog.Logger
}

func NewConfigHandler(configs ConfigStore, log *slog.Logger) *ConfigHandler {
	return &ConfigHandler{configs: configs, log: log}
}

func (h *ConfigHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "uid")
	if err != nil {
		writeValidation(w, err)
		return
	}

	configs, err := h.configs.ListByOwner(r.Context(), ids[0])
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(configs))
}

// Create makes the config and its capability key together and returns both.
func (h *ConfigHandler) Create(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "uid")
	if err != nil {
		writeValidation(w, err)
		return
	}
	name, ok := h.decodeName(w, r)
	if !ok {
		return
	}

	cfg, err := h.configs.Create(r.Context(), ids[0], name)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

// Get returns the config detail view including key and fields.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "uid", "cid")
	if err != nil {
		writeValidation(w, err)
		return
	}

	cfg, err := h.configs.Get(r.Context(), ids[0], ids[1])
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "uid", "cid")
	if err != nil {
		writeValidation(w, err)
		return
	}
	name, ok := h.decodeName(w, r)
	if !ok {
		return
	}

	if err := h.configs.Rename(r.Context(), ids[0], ids[1], name); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConfigHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "uid", "cid")
	if err != nil {
		writeValidation(w, err)
		return
	}

	if err := h.configs.Delete(r.Context(), ids[0], ids[1]); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConfigHandler) decodeName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req ConfigRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	name := strings.TrimSpace(req.Name)
	if err := utils.ValidateConfigName(name); err != nil {
		writeValidation(w, err)
		return "", false
	}
	return name, true
}
