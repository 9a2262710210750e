package main

import (
	"embed"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/crucial707/auditlog-admin/internal/middleware"
)

//go:embed templates
var templatesFS embed.FS

const (
	cookieName  = "auditlog_token"
	defaultPort = "3000"
	defaultAPI  = "http://localhost:8080"
	envWebPort  = "AUDITLOG_WEB_PORT"
	envAPIURL   = "AUDITLOG_API_URL"
)

func main() {
	port := getEnv(envWebPort, defaultPort)
	apiBase := getEnv(envAPIURL, defaultAPI)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newRouter(&apiClient{base: apiBase, http: &http.Client{Timeout: 30 * time.Second}}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("web UI running", "addr", "http://localhost:"+port, "api", apiBase)
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("web UI exited", "err", err)
		os.Exit(1)
	}
}

func newRouter(api *apiClient) chi.Router {
	pages := &pages{api: api, tmpl: mustParseTemplates()}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLog)
	r.Use(middleware.SecurityHeaders(middleware.UIContentPolicy, false))
	r.Use(middleware.MaxBytes(64 << 10))

	// Health (no auth, no templates)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	// Public
	r.Get("/login", pages.loginForm)
	r.Post("/login", pages.loginSubmit)
	r.Get("/logout", logout)

	// Protected
	r.Group(func(r chi.Router) {
		r.Use(requireToken)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/entries", http.StatusFound)
		})
		r.Get("/entries", pages.changelist)
		r.Get("/entries/{id}", pages.detail)
		r.Get("/entries/{id}/history", pages.history)
	})
	return r
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
