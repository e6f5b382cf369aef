package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/moviegrounds/backend/internal/domain/entities"
	"github.com/moviegrounds/backend/internal/infrastructure/observability"
)

const (
	defaultTopRatedLimit = 10
	maxTopRatedLimit     = 100
)

// MovieReader defines the movie lookups used by the handler.
type MovieReader interface {
	GetByID(ctx context.Context, movieID int64) (*entities.Movie, error)
	GetTopRated(ctx context.Context, limit int) ([]*entities.TopRatedMovie, error)
}

// MovieHandler serves movie catalogue lookups.
type MovieHandler struct {
	movies MovieReader
}

// NewMovieHandler creates a new movie handler.
func NewMovieHandler(movies MovieReader) *MovieHandler {
	return &MovieHandler{movies: movies}
}

type topRatedEntry struct {
	MovieID   int64   `json:"movieId"`
	Title     string  `json:"title"`
	AvgRating float64 `json:"avgRating"`
	Count     int64   `json:"count"`
}

// TopRated handles GET /api/movies/top-rated
func (h *MovieHandler) TopRated(w http.ResponseWriter, r *http.Request) {
	limit := defaultTopRatedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if v > maxTopRatedLimit {
			v = maxTopRatedLimit
		}
		limit = v
	}

	top, err := h.movies.GetTopRated(r.Context(), limit)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("top rated lookup failed")
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}

	entries := make([]topRatedEntry, 0, len(top))
	for _, agg := range top {
		entry := topRatedEntry{
			MovieID:   agg.MovieID,
			AvgRating: agg.AvgRating,
			Count:     agg.Count,
		}
		// The ratings database can reference movies missing from the
		// catalogue; those entries go out without a title.
		if movie, err := h.movies.GetByID(r.Context(), agg.MovieID); err == nil {
			entry.Title = movie.Title
		}
		entries = append(entries, entry)
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"movies": entries})
}
