package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/juhojo/blabbermouth/internal/models"
	"github.com/juhojo/blabbermouth/internal/services"
)

type PasscodeStore interface {
	Issue(ctx context.Context, userID int64) (*models.Passcode, error)
	Current(ctx context.Context, userID int64) (*models.Passcode, error)
	Delete(ctx context.Context, userID, id int64) error
}

// PasscodeHandler is the administrative view of a user's passcode.
type PasscodeHandler struct {
	passcodes PasscodeStore
	log       *slog.Logger
}

func NewPasscodeHandler(passcodes PasscodeStore, log *slog.Logger) *PasscodeHandler {
	return &PasscodeHandler{passcodes: passcodes, log: log}
}

// Get returns {item} with the current passcode row, or null.
func (h *PasscodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "uid")
	if err != nil {
		writeValidation(w, err)
		return
	}

	p, err := h.passcodes.Current(r.Context(), ids[0])
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemResponse[models.Passcode]{Item: p})
}

func (h *PasscodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "uid")
	if err != nil {
		writeValidation(w, err)
		return
	}

	if _, err := h.passcodes.Issue(r.Context(), ids[0]); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, emptyObject)
}

func (h *PasscodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "uid", "pid")
	if err != nil {
		writeValidation(w, err)
		return
	}

	if err := h.passcodes.Delete(r.Context(), ids[0], ids[1]); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
