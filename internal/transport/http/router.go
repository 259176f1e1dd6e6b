package http

import (
	"net/http"

	"quiz-funnel-service/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig collects the handlers mounted by NewRouter. Admin is optional.
type RouterConfig struct {
	API         *APIHandler
	Admin       *AdminHandler
	WS          *WSHandler
	CORSOrigins []string
	Logger      logging.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.WS != nil {
		r.Get("/ws", cfg.WS.ServeWS)
	}
	r.Route("/api", func(r chi.Router) {
		if cfg.Admin != nil {
			r.Route("/admin", cfg.Admin.Routes)
		}
		cfg.API.Routes(r)
	})
	return r
}
