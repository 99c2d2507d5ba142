// Package router lays out the portal's navigation surface. Route
// membership is the authorization model: everything under /staff needs a
// staff session, everything under /student a student one, and the shared
// routes only need any valid session.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hostel-portal/internal/config"
	"hostel-portal/internal/handler"
	"hostel-portal/internal/middleware"
)

type Handlers struct {
	Auth          *handler.AuthHandler
	Students      *handler.StudentsHandler
	Wizard        *handler.WizardHandler
	Complaints    *handler.ComplaintsHandler
	Stock         *handler.StockHandler
	Notifications *handler.NotificationsHandler
	Pages         *handler.PagesHandler
	Shell         *handler.ShellHandler
}

func New(cfg *config.Config, guard *middleware.Guard, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimit := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimit.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Public entry points.
	r.Post("/login", h.Auth.Login)
	r.Post("/signup", h.Auth.Signup)

	// Everything below needs a live session. The websocket route skips the
	// request timeout, the rest of the surface gets it.
	r.Group(func(priv chi.Router) {
		priv.Use(guard.RequireSession)

		priv.With(middleware.Timeout(cfg.RequestTimeout)).Group(func(api chi.Router) {
			api.Post("/logout", h.Auth.Logout)
			api.Get("/me", h.Auth.Me)

			api.Get("/shell/sidebar", h.Shell.Sidebar)
			api.Put("/shell/sidebar", h.Shell.SetSidebar)
			api.Post("/shell/sidebar/toggle", h.Shell.ToggleSidebar)

			api.Get("/notifications", h.Notifications.List)
			api.Post("/notifications/read-all", h.Notifications.MarkAllRead)
			api.Post("/notifications/{id}/read", h.Notifications.MarkRead)

			api.Route("/student", func(student chi.Router) {
				student.Use(guard.RequireRoles("student"))

				student.Get("/dashboard", h.Pages.Dashboard)
				student.Get("/meals", h.Pages.Meals)
				student.Get("/notices", h.Pages.Notices)
				student.Get("/fees", h.Pages.Fees)

				student.Get("/complaints", h.Complaints.MyList)
				student.Post("/complaints", h.Complaints.MyCreate)
			})

			api.Route("/staff", func(staff chi.Router) {
				staff.Use(guard.RequireRoles("staff"))

				staff.Get("/dashboard", h.Pages.Dashboard)
				staff.Get("/analytics", h.Pages.Analytics)
				staff.Get("/activity", h.Pages.Activity)

				staff.Get("/students", h.Students.List)
				staff.Post("/students/wizard", h.Wizard.StartCreate)
				staff.Get("/students/{id}", h.Students.Get)
				staff.Delete("/students/{id}", h.Students.Delete)
				staff.Post("/students/{id}/wizard", h.Wizard.StartEdit)

				staff.Route("/wizard/{draftID}", func(wz chi.Router) {
					wz.Get("/", h.Wizard.State)
					wz.Delete("/", h.Wizard.Close)
					wz.Post("/fields", h.Wizard.SetField)
					wz.Post("/same-address", h.Wizard.SetSameAddress)
					wz.Post("/next", h.Wizard.Next)
					wz.Post("/back", h.Wizard.Back)
					wz.Post("/files/{field}", h.Wizard.Upload)
					wz.Delete("/files/{field}", h.Wizard.RemoveFile)
					wz.Post("/submit", h.Wizard.Submit)
				})

				staff.Get("/complaints", h.Complaints.List)
				staff.Get("/complaints/filters", h.Complaints.Filters)
				staff.Post("/complaints", h.Complaints.Create)
				staff.Get("/complaints/{id}", h.Complaints.Get)
				staff.Post("/complaints/{id}/resolve", h.Complaints.Resolve)

				staff.Get("/stock", h.Stock.List)
				staff.Get("/stock/categories", h.Stock.Categories)
				staff.Get("/stock/export", h.Stock.Export)
				staff.Post("/stock", h.Stock.Create)
				staff.Put("/stock/{id}", h.Stock.Update)
				staff.Delete("/stock/{id}", h.Stock.Delete)
			})
		})

		priv.Get("/ws", h.Notifications.Stream)
	})

	return r
}
