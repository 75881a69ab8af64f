package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/voicerelay/backend/internal/handler/chat"
	personahandler "github.com/voicerelay/backend/internal/handler/persona"
	"github.com/voicerelay/backend/internal/metrics"
	"github.com/voicerelay/backend/internal/model/persona"
	"github.com/voicerelay/backend/pkg/utils"
)

// Options toggles optional surfaces.
type Options struct {
	ProgressFrames bool
	// Persona enables GET /persona when set.
	Persona *persona.Config
}

// NewRouter wires HTTP routes to core services. m may be nil to disable /metrics.
func NewRouter(exchanger chat.Exchanger, m *metrics.Metrics, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	chatHandler := chat.New(exchanger, m)
	chatHandler.RegisterRoutes(r)

	wsHandler := chat.NewWebSocketHandler(exchanger, m, opts.ProgressFrames)
	wsHandler.RegisterWebSocketRoutes(r)

	if opts.Persona != nil {
		personahandler.New(*opts.Persona).RegisterRoutes(r)
	}

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	return r
}
