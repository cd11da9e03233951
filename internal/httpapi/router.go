// Package httpapi содержит HTTP-поверхность консоли: прокси аутентификации, дашборд и CRUD-экраны.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm-console/internal/access"
	"github.com/vladislavdragonenkov/crm-console/internal/domain"
	"github.com/vladislavdragonenkov/crm-console/internal/service/activity"
	"github.com/vladislavdragonenkov/crm-console/internal/service/directory"
	"github.com/vladislavdragonenkov/crm-console/internal/service/loader"
	"github.com/vladislavdragonenkov/crm-console/internal/service/orders"
)

const defaultRequestTimeout = 30 * time.Second

// DashboardMetrics получает итог каждого построения дашборда.
type DashboardMetrics interface {
	RecordDashboardBuild(confirmedRevenue float64)
}

// Deps собирает зависимости HTTP-слоя.
type Deps struct {
	Auth      domain.AuthGateway
	Loader    *loader.Loader
	Orders    *orders.Service
	Directory *directory.Service
	Activity  *activity.Recorder
	Metrics   DashboardMetrics
	Logger    *log.Entry

	// RequestTimeout ограничивает обработку одного запроса.
	RequestTimeout time.Duration
	// Now подменяется в тестах.
	Now func() time.Time
}

type handler struct {
	auth      domain.AuthGateway
	loader    *loader.Loader
	orders    *orders.Service
	directory *directory.Service
	activity  *activity.Recorder
	metrics   DashboardMetrics
	logger    *log.Entry
	now       func() time.Time
}

// NewRouter собирает chi-роутер консоли.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	h := &handler{
		auth:      deps.Auth,
		loader:    deps.Loader,
		orders:    deps.Orders,
		directory: deps.Directory,
		activity:  deps.Activity,
		metrics:   deps.Metrics,
		logger:    logger,
		now:       now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(middleware.Timeout(timeout))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Post("/register", h.register)

		r.Group(func(r chi.Router) {
			r.Use(access.Authenticate(deps.Auth, logger))
			r.Get("/me", h.me)
			r.Put("/me", h.updateMe)
		})
	})

	r.Route("/console", func(r chi.Router) {
		r.Use(access.Authenticate(deps.Auth, logger))

		r.Get("/navigation", h.navigation)
		r.Get("/dashboard", h.dashboard)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Post("/", h.createProduct)
			r.Put("/{id}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.listClients)
			r.Post("/", h.createClient)
			r.Put("/{id}", h.updateClient)
			r.Delete("/{id}", h.deleteClient)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/", h.createOrder)
			r.Put("/{id}", h.updateOrder)
			r.Post("/{id}/cancel", h.cancelOrder)
			r.With(access.RequireRole(domain.RoleAdmin)).Delete("/{id}", h.deleteOrder)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(access.RequireRole(domain.RoleAdmin))
			r.Get("/", h.listUsers)
			r.Post("/", h.createUser)
			r.Put("/{id}", h.updateUser)
			r.Delete("/{id}", h.deleteUser)
		})

		r.With(access.RequireRole(domain.RoleAdmin)).Get("/audit/{entity}/{id}", h.auditTrail)
	})

	return r
}

// session достаёт сессию, положенную access.Authenticate.
func session(r *http.Request) domain.Session {
	sess, _ := access.SessionFrom(r.Context())
	return sess
}

// requestLogger пишет метод, путь, статус и длительность каждого запроса.
func requestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			}).Info("http request")
		})
	}
}
