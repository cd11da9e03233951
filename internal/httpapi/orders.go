package httpapi

import (
	"net/http"
	"strings"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
	"github.com/vladislavdragonenkov/crm-console/internal/service/loader"
	"github.com/vladislavdragonenkov/crm-console/internal/service/orders"
)

// cancelRequest — тело POST /console/orders/{id}/cancel.
type cancelRequest struct {
	Confirm  bool   `json:"confirm"`
	ClientID string `json:"clientId,omitempty"`
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	clientID := strings.TrimSpace(r.URL.Query().Get("clientId"))

	if clientID == "" {
		res := h.loader.Load(r.Context(), sess, loader.Clients, loader.Orders)
		writeJSON(w, http.StatusOK, domain.Refreshed[orders.View]{
			Items:   orders.Present(res.Orders, res.Clients),
			Notices: res.Notices,
		})
		return
	}

	res := h.loader.Load(r.Context(), sess, loader.Clients)
	notices := res.Notices
	list, err := h.orders.List(r.Context(), sess, clientID)
	if err != nil {
		h.logger.WithError(err).WithField("client_id", clientID).Warn("failed to list client orders")
		notices = append(notices, domain.ErrorNotice("Impossible de récupérer les commandes."))
		list = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, domain.Refreshed[orders.View]{
		Items:   orders.Present(list, res.Clients),
		Notices: notices,
	})
}

func (h *handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var o domain.Order
	if !decodeJSON(w, r, &o) {
		return
	}
	out, err := h.orders.Create(r.Context(), session(r), o)
	if err != nil {
		writeError(w, h.logger, err, "La création de la commande a échoué.")
		return
	}
	h.writeOrders(w, r, http.StatusCreated, out)
}

func (h *handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.logger, err, "")
		return
	}
	var o domain.Order
	if !decodeJSON(w, r, &o) {
		return
	}
	// clientId в query — текущий владелец заказа, в теле может быть уже новый клиент.
	owner := strings.TrimSpace(r.URL.Query().Get("clientId"))
	out, err := h.orders.Update(r.Context(), session(r), id, o, owner)
	if err != nil {
		writeError(w, h.logger, err, "La modification a échoué.")
		return
	}
	h.writeOrders(w, r, http.StatusOK, out)
}

func (h *handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.logger, err, "")
		return
	}
	var req cancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.orders.Cancel(r.Context(), session(r), id, strings.TrimSpace(req.ClientID), req.Confirm)
	if err != nil {
		writeError(w, h.logger, err, "L'annulation a échoué.")
		return
	}
	h.writeOrders(w, r, http.StatusOK, out)
}

func (h *handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.logger, err, "")
		return
	}
	clientHint := strings.TrimSpace(r.URL.Query().Get("clientId"))
	out, err := h.orders.Delete(r.Context(), session(r), id, clientHint)
	if err != nil {
		writeError(w, h.logger, err, "La suppression a échoué.")
		return
	}
	h.writeOrders(w, r, http.StatusOK, out)
}

// writeOrders отдаёт перечитанные заказы с подписями клиентов и политикой редактирования.
func (h *handler) writeOrders(w http.ResponseWriter, r *http.Request, code int, out domain.Refreshed[domain.Order]) {
	res := h.loader.Load(r.Context(), session(r), loader.Clients)
	writeJSON(w, code, domain.Refreshed[orders.View]{
		Items:   orders.Present(out.Items, res.Clients),
		Notices: append(out.Notices, res.Notices...),
	})
}
