package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crucial707/auditlog-admin/internal/admin"
	"github.com/crucial707/auditlog-admin/internal/auditlog"
	"github.com/crucial707/auditlog-admin/internal/config"
	"github.com/crucial707/auditlog-admin/internal/handlers"
	"github.com/crucial707/auditlog-admin/internal/middleware"
	"github.com/crucial707/auditlog-admin/internal/repo"
)

// app is the wired API: router plus the pieces main needs to reach after startup.
type app struct {
	router     chi.Router
	logEntries *repo.LogEntryRepo
	logAdmin   *admin.LogEntryAdmin
}

func newRouter(db *sql.DB, cfg config.Config) chi.Router {
	return newApp(db, cfg).router
}

func newApp(db *sql.DB, cfg config.Config) *app {
	userRepo := repo.NewUserRepo(db)
	contentTypeRepo := repo.NewContentTypeRepo(db)
	logEntryRepo := repo.NewLogEntryRepo(db)

	logAdmin := admin.NewLogEntryAdmin(logEntryRepo, cfg.Location(), cfg.FilterCacheTTL)
	site := admin.NewDefaultSite(logAdmin)
	userAdmin := site.ModelAdmin("auth", "user")
	contentTypeAdmin := site.ModelAdmin("contenttypes", "contenttype")

	recorder := auditlog.NewRecorder(logEntryRepo, contentTypeRepo)

	authHandler := &handlers.AuthHandler{UserRepo: userRepo, Secret: []byte(cfg.JWTSecret), TokenTTL: cfg.TokenTTL()}
	logEntryHandler := &handlers.LogEntryHandler{Admin: logAdmin}
	contentTypeHandler := &handlers.ContentTypeHandler{
		Repo:       contentTypeRepo,
		Entries:    logEntryRepo,
		Admin:      contentTypeAdmin,
		LogEntries: logAdmin,
	}
	userHandler := &handlers.UserHandler{Repo: userRepo, Admin: userAdmin, Recorder: recorder}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(middleware.APIContentPolicy, cfg.TLSCertFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok\n"))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			handlers.JSONError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ready\n"))
	})
	r.Handle("/metrics", promhttp.Handler())

	loginLimiter := middleware.LoginRateLimiter(cfg.LoginRatePerMinute)
	r.With(loginLimiter.Middleware).Post("/auth/login", authHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTMiddleware([]byte(cfg.JWTSecret)))
		r.Use(middleware.LoadUser(userRepo))

		r.Get("/auth/me", authHandler.Me)

		r.Route("/admin/auditlog/logentry", func(r chi.Router) {
			r.Get("/", admin.Named(logAdmin.URLName(admin.ViewChangelist), logEntryHandler.Changelist))
			r.Get("/filters/", admin.Named(logAdmin.URLName("filters"), logEntryHandler.Filters))
			r.Post("/add/", admin.Named(logAdmin.URLName(admin.ViewAdd), logEntryHandler.Add))
			r.Get("/{id}/change/", admin.Named(logAdmin.URLName(admin.ViewChange), logEntryHandler.Detail))
			r.Post("/{id}/change/", admin.Named(logAdmin.URLName(admin.ViewChange), logEntryHandler.Change))
			r.Post("/{id}/delete/", admin.Named(logAdmin.URLName(admin.ViewDelete), logEntryHandler.Delete))
			r.Get("/{id}/history/", admin.Named(logAdmin.URLName(admin.ViewHistory), logEntryHandler.History))
		})

		r.Route("/admin/contenttypes/contenttype", func(r chi.Router) {
			r.Get("/", admin.Named(contentTypeAdmin.URLName(admin.ViewChangelist), contentTypeHandler.List))
			r.Post("/{id}/delete/", admin.Named(contentTypeAdmin.URLName(admin.ViewDelete), contentTypeHandler.Delete))
		})

		r.Route("/admin/auth/user", func(r chi.Router) {
			r.Get("/", admin.Named(userAdmin.URLName(admin.ViewChangelist), userHandler.ListUsers))
			r.Post("/", admin.Named(userAdmin.URLName(admin.ViewAdd), userHandler.CreateUser))
			r.Get("/{id}/change/", admin.Named(userAdmin.URLName(admin.ViewChange), userHandler.GetUser))
			r.Put("/{id}/change/", admin.Named(userAdmin.URLName(admin.ViewChange), userHandler.UpdateUser))
			r.Post("/{id}/delete/", admin.Named(userAdmin.URLName(admin.ViewDelete), userHandler.DeleteUser))
		})
	})

	return &app{router: r, logEntries: logEntryRepo, logAdmin: logAdmin}
}
