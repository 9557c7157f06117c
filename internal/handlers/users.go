package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/juhojo/blabbermouth/internal/models"
	"github.com/juhojo/blabbermouth/pkg/utils"
)

type UserStore interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, email string) (*models.User, error)
	UpdateEmail(ctx context.Context, id int64, email string) error
	Delete(ctx context.Context, id int64) error
}

type UserRequest struct {
	Email string `json:"email"`
}

type UserHandler struct {
	users UserStore
	log   *slog.Logger
}

func NewUserHandler(users UserStore, log *slog.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(users))
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	email, ok := h.decodeEmail(w, r)
	if !ok {
		return
	}

	user, err := h.users.Create(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "uid")
	if err != nil {
		writeValidation(w, err)
		return
	}

	user, err := h.users.Get(r.Context(), ids[0])
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "uid")
	if err != nil {
		writeValidation(w, err)
		return
	}
	email, ok := h.decodeEmail(w, r)
	if !ok {
		return
	}

	if err := h.users.UpdateEmail(r.Context(), ids[0], email); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes the user together with everything it owns.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "uid")
	if err != nil {
		writeValidation(w, err)
		return
	}

	if err := h.users.Delete(r.Context(), ids[0]); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) decodeEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req UserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	email := utils.NormalizeEmail(req.Email)
	if err := utils.ValidateEmail(email); err != nil {
		writeValidation(w, err)
		return "", false
	}
	return email, true
}
