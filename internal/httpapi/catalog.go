package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
	"github.com/vladislavdragonenkov/crm-console/internal/service/loader"
)

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	res := h.loader.Load(r.Context(), session(r), loader.Products)
	writeJSON(w, http.StatusOK, domain.Refreshed[domain.Product]{Items: res.Products, Notices: res.Notices})
}

func (h *handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	out, err := h.directory.CreateProduct(r.Context(), session(r), p)
	if err != nil {
		writeError(w, h.logger, err, "L'ajout a échoué.")
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.logger, err, "")
		return
	}
	var p domain.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	out, err := h.directory.UpdateProduct(r.Context(), session(r), id, p)
	if err != nil {
		writeError(w, h.logger, err, "La modification a échoué.")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.logger, err, "")
		return
	}
	out, err := h.directory.DeleteProduct(r.Context(), session(r), id)
	if err != nil {
		writeError(w, h.logger, err, "La suppression a échoué.")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) listClients(w http.ResponseWriter, r *http.Request) {
	res := h.loader.Load(r.Context(), session(r), loader.Clients)
	writeJSON(w, http.StatusOK, domain.Refreshed[domain.Client]{Items: res.Clients, Notices: res.Notices})
}

func (h *handler) createClient(w http.ResponseWriter, r *http.Request) {
	var c domain.Client
	if !decodeJSON(w, r, &c) {
		return
	}
	out, err := h.directory.CreateClient(r.Context(), session(r), c)
	if err != nil {
		writeError(w, h.logger, err, "L'ajout a échoué.")
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *handler) updateClient(w http.ResponseWriter, r *http.Request) {
	var c domain.Client
	if !decodeJSON(w, r, &c) {
		return
	}
	out, err := h.directory.UpdateClient(r.Context(), session(r), strings.TrimSpace(chi.URLParam(r, "id")), c)
	if err != nil {
		writeError(w, h.logger, err, "La modification a échoué.")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) deleteClient(w http.ResponseWriter, r *http.Request) {
	out, err := h.directory.DeleteClient(r.Context(), session(r), strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, h.logger, err, "La suppression a échoué.")
		return
	}
	writeJSON(w, http.StatusOK, out)
}
