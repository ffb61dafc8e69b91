package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/alexlabrioche/modular-strategies/internal/catalog"
	"github.com/alexlabrioche/modular-strategies/internal/hub"
	"github.com/alexlabrioche/modular-strategies/internal/ws"
)

type Deps struct {
	Hub         *hub.Hub
	Catalog     *catalog.Catalog
	Logger      *zap.Logger
	CORSOrigins []string
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/catalog", Catalog(d.Catalog))
	r.Get("/options", Options)

	r.Route("/lobbies", func(r chi.Router) {
		r.Use(LimitRequestBody(DefaultMaxBodyBytes))
		r.Post("/", CreateLobby(d.Hub, d.Logger))
		r.Get("/", ListLobbies(d.Hub))
		r.Get("/{code}", GetLobby(d.Hub))
		r.Post("/{code}/commands", SendCommand(d.Hub))
		r.Delete("/{code}", DeleteLobby(d.Hub))
	})

	r.Get("/ws", ws.Handler(d.Hub, d.Logger, ws.Options{OriginPatterns: originPatterns(d.CORSOrigins)}))
	return r
}

// originPatterns turns CORS origins into websocket host patterns.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		host, ok := strings.CutPrefix(o, "https://")
		if !ok {
			host, _ = strings.CutPrefix(o, "http://")
		}
		if host != "" {
			out = append(out, host)
		}
	}
	return out
}
