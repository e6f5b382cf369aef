package routes

import (
	"net/http"

	"github.com/moviegrounds/backend/internal/api/handlers"
	"github.com/moviegrounds/backend/internal/api/middleware"
	"github.com/moviegrounds/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	chatHandler   *handlers.ChatHandler
	movieHandler  *handlers.MovieHandler
	statusHandler *handlers.EnrichmentStatusHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	chatHandler *handlers.ChatHandler,
	movieHandler *handlers.MovieHandler,
	statusHandler *handlers.EnrichmentStatusHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:           http.NewServeMux(),
		chatHandler:   chatHandler,
		movieHandler:  movieHandler,
		statusHandler: statusHandler,
		metrics:       metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			return
		}
	})

	r.mux.HandleFunc("POST /api/chat", r.chatHandler.Chat)
	r.mux.HandleFunc("POST /api/chat/reset", r.chatHandler.ResetConversation)
	r.mux.HandleFunc("GET /api/movies/top-rated", r.movieHandler.TopRated)
	r.mux.HandleFunc("GET /api/enrichment/status", r.statusHandler.Status)

	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(handler)
	return handler
}
