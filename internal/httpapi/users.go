package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
	"github.com/vladislavdragonenkov/crm-console/internal/service/loader"
)

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	res := h.loader.Load(r.Context(), session(r), loader.Users)
	writeJSON(w, http.StatusOK, domain.Refreshed[domain.User]{Items: res.Users, Notices: res.Notices})
}

func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if !decodeJSON(w, r, &reg) {
		return
	}
	out, err := h.directory.CreateUser(r.Context(), session(r), reg)
	if err != nil {
		writeError(w, h.logger, err, "Impossible d'ajouter l'utilisateur.")
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var upd domain.UserUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	out, err := h.directory.UpdateUser(r.Context(), session(r), strings.TrimSpace(chi.URLParam(r, "id")), upd)
	if err != nil {
		writeError(w, h.logger, err, "Impossible de modifier l'utilisateur.")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	out, err := h.directory.DeleteUser(r.Context(), session(r), strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, h.logger, err, "La suppression a échoué.")
		return
	}
	writeJSON(w, http.StatusOK, out)
}
