package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/elbarril/appalapapa/api/controllers"
	"github.com/elbarril/appalapapa/api/middleware"
	"github.com/elbarril/appalapapa/internal/audit"
	"github.com/elbarril/appalapapa/internal/auth"
	"github.com/elbarril/appalapapa/internal/dashboard"
	"github.com/elbarril/appalapapa/internal/patients"
	"github.com/elbarril/appalapapa/internal/sessions"
	"github.com/elbarril/appalapapa/pkg/auth/session"
	"github.com/elbarril/appalapapa/pkg/config"
	"github.com/elbarril/appalapapa/pkg/db"
	"github.com/elbarril/appalapapa/pkg/enums"
	"github.com/elbarril/appalapapa/pkg/logger"
	redisclient "github.com/elbarril/appalapapa/pkg/redis"
)

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redisclient.Client
	SessionManager session.AccessSessionChecker
	Auth           auth.Service
	Patients       patients.Service
	Sessions       sessions.Service
	Dashboard      dashboard.Service
	Audit          audit.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
		middleware.ClientMeta(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.ReadinessDeps(p.DB, p.Redis)))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.Post("/register", controllers.AuthRegister(p.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(p.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))
			r.Post("/logout", controllers.AuthLogout(p.Auth, logg))
			r.Post("/change-password", controllers.AuthChangePassword(p.Auth, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))

		r.Get("/dashboard", controllers.Dashboard(p.Dashboard, logg))

		r.Route("/patients", func(r chi.Router) {
			r.Get("/", controllers.PatientList(p.Patients, logg))
			r.Post("/", controllers.PatientCreate(p.Patients, logg))
			r.Get("/selection", controllers.PatientSelection(p.Patients, logg))
			r.Get("/{patientId}", controllers.PatientDetail(p.Patients, logg))
			r.Put("/{patientId}", controllers.PatientUpdate(p.Patients, logg))
			r.Get("/{patientId}/aggregates", controllers.PatientAggregates(p.Patients, logg))
			r.Get("/{patientId}/sessions/{sessionId}", controllers.SessionWithPatient(p.Sessions, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireDeletePermission(logg))
				r.Delete("/{patientId}", controllers.PatientDelete(p.Patients, logg))
				r.Post("/{patientId}/restore", controllers.PatientRestore(p.Patients, logg))
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", controllers.SessionCreate(p.Sessions, logg))
			r.Get("/recent", controllers.SessionsRecent(p.Sessions, logg))
			r.Get("/totals", controllers.SessionTotals(p.Sessions, logg))
			r.Get("/{sessionId}", controllers.SessionDetail(p.Sessions, logg))
			r.Put("/{sessionId}", controllers.SessionUpdate(p.Sessions, logg))
			r.Post("/{sessionId}/toggle-payment", controllers.SessionTogglePayment(p.Sessions, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireDeletePermission(logg))
				r.Delete("/{sessionId}", controllers.SessionDelete(p.Sessions, logg))
			})
		})

		r.Route("/audit", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
			r.Get("/records/{tableName}/{recordId}", controllers.AuditRecordHistory(p.Audit, logg))
			r.Get("/users/{userId}", controllers.AuditUserActivity(p.Audit, logg))
			r.Get("/recent", controllers.AuditRecentActivity(p.Audit, logg))
			r.Get("/security-summary", controllers.AuditSecuritySummary(p.Audit, logg))
		})
	})

	return r
}
