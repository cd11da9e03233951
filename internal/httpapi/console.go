package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/crm-console/internal/dashboard"
	"github.com/vladislavdragonenkov/crm-console/internal/domain"
	"github.com/vladislavdragonenkov/crm-console/internal/service/loader"
)

type dashboardResponse struct {
	dashboard.Stats
	Notices []domain.Notice `json:"notices,omitempty"`
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	res := h.loader.Load(r.Context(), session(r), loader.All...)

	stats := dashboard.Compute(dashboard.Inputs{
		Products: res.Products,
		Clients:  res.Clients,
		Users:    res.Users,
		Orders:   res.Orders,
	}, h.now())

	if h.metrics != nil {
		revenue, _ := stats.TotalRevenue.Float64()
		h.metrics.RecordDashboardBuild(revenue)
	}
	writeJSON(w, http.StatusOK, dashboardResponse{Stats: stats, Notices: res.Notices})
}

func (h *handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	entity := domain.Entity(chi.URLParam(r, "entity"))
	events, err := h.activity.History(entity, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err, "Impossible de charger l'historique.")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.AuditEvent{"items": events})
}
