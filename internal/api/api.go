package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/inkwell-app/inkwell/internal/auth"
	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/inkwell-app/inkwell/internal/database"
	"github.com/inkwell-app/inkwell/internal/storage"
)

// Api wires the HTTP surface to the stores and the token service. The
// exporter is nil when no S3 bucket is configured.
type Api struct {
	Config   config.Config
	Router   *chi.Mux
	tokens   *auth.TokenManager
	users    database.UserStore
	notes    database.NoteStore
	tags     database.TagStore
	exporter *storage.S3Client
}

func NewApi(cfg config.Config, db *database.DB, tokens *auth.TokenManager, exporter *storage.S3Client) (*Api, error) {
	if cfg.APIPort == 0 {
		return nil, errors.New("must have at least a port to start API")
	}

	api := &Api{
		Config:   cfg,
		Router:   chi.NewRouter(),
		tokens:   tokens,
		users:    database.NewUserStore(db),
		notes:    database.NewNoteStore(db),
		tags:     database.NewTagStore(db),
		exporter: exporter,
	}

	api.setupRoutes()
	return api, nil
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   api.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Heartbeat("/heartbeat"))

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", api.RegisterHandler)
		r.Post("/auth/login", api.LoginHandler)
		r.Post("/auth/logout", api.LogoutHandler)
		r.Get("/shared/{token}", api.SharedNoteHandler)

		// Everything else requires a valid session cookie.
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(api.tokens))

			r.Get("/auth/me", api.MeHandler)

			r.Get("/notes", api.ListNotesHandler)
			r.Post("/notes", api.CreateNoteHandler)
			r.Get("/notes/{noteID}", api.GetNoteHandler)
			r.Put("/notes/{noteID}", api.UpdateNoteHandler)
			r.Delete("/notes/{noteID}", api.DeleteNoteHandler)
			r.Post("/notes/{noteID}/share", api.ShareNoteHandler)
			r.Delete("/notes/{noteID}/share", api.UnshareNoteHandler)

			r.Get("/tags", api.ListTagsHandler)
			r.Post("/tags", api.CreateTagHandler)
			r.Put("/tags/{tagID}", api.UpdateTagHandler)
			r.Delete("/tags/{tagID}", api.DeleteTagHandler)

			r.Get("/dashboard", api.DashboardHandler)
			r.Post("/export", api.ExportHandler)
		})
	})
}

// Serve starts the HTTP server and blocks.
func (api *Api) Serve() {
	addr := fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort)
	log.Printf("Starting API server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, api.Router))
}
